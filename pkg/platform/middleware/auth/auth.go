// Package auth authenticates citizens by bearer token. Every owner-scoped
// route sits behind RequireOwner, which is the only place an owner id enters
// the request context.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/httputil"
	"sahayak/pkg/platform/middleware/metadata"
	"sahayak/pkg/requestcontext"
)

type JWTValidator interface {
	ValidateToken(token string) (*JWTClaims, error)
}

// JWTClaims is what the middleware needs from a verified token.
type JWTClaims struct {
	OwnerID string
	// Language is the citizen's saved preference, used when the request
	// does not send Accept-Language.
	Language string
	TokenID  string
}

var errUnauthenticated = dErrors.New(dErrors.CodeUnauthorized, "Please sign in again.")

func RequireOwner(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason string, err error) {
				logger.WarnContext(ctx, "request not authenticated",
					"reason", reason,
					"error", err,
					"client_ip", metadata.GetClientIP(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, errUnauthenticated)
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				reject("missing bearer token", nil)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject("invalid token", err)
				return
			}
			owner, err := domain.ParseOwnerID(claims.OwnerID)
			if err != nil {
				reject("malformed owner claim", err)
				return
			}

			ctx = requestcontext.WithOwnerID(ctx, owner)
			if requestcontext.Language(ctx) == "" && claims.Language != "" {
				ctx = requestcontext.WithLanguage(ctx, claims.Language)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
