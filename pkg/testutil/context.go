package testutil

import (
	"context"
	"net/http"
	"time"

	"sahayak/pkg/domain"
	"sahayak/pkg/requestcontext"
)

// WithOwner adds an owner id to the request context, as the owner auth
// middleware would for an authenticated request.
func WithOwner(req *http.Request, ownerID domain.OwnerID) *http.Request {
	return req.WithContext(requestcontext.WithOwnerID(req.Context(), ownerID))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// OwnerContext returns a context carrying an owner id and a fixed time.
func OwnerContext(ownerID domain.OwnerID, now time.Time) context.Context {
	ctx := requestcontext.WithOwnerID(context.Background(), ownerID)
	return requestcontext.WithTime(ctx, now)
}

// Clock is a settable time source for services that take func() time.Time.
type Clock struct {
	T time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{T: t} }

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
