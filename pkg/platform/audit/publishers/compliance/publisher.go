// Package compliance writes the events an office or a citizen may later rely
// on: applications created and completed, breaches, owner data deletion and
// calendar publication. Writes are synchronous and fail closed: when the
// store rejects an event the caller's operation fails with it.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "sahayak/pkg/platform/audit"
	"sahayak/pkg/requestcontext"
)

var (
	errNoSubject = errors.New("compliance event needs an owner or a subject")
	errNoAction  = errors.New("compliance event needs an action")
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithClock stamps events that arrive without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// New wraps store, which should be the outbox-backed store in production.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists event before returning. The request id is taken from ctx
// when the event does not carry one.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	switch {
	case event.OwnerID.IsNil() && event.Subject == "":
		return errNoSubject
	case event.Action == "":
		return errNoAction
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	started := time.Now()
	err := p.store.Append(ctx, event.ToEvent())
	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(started).Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
		}
		p.logger.ErrorContext(ctx, "compliance event not recorded",
			"action", event.Action,
			"owner_id", event.OwnerID.String(),
			"subject", event.Subject,
			"error", err,
		)
		return fmt.Errorf("record %s: %w", event.Action, err)
	}
	if p.metrics != nil {
		p.metrics.IncEventsEmitted()
	}
	return nil
}

// Close satisfies the publisher lifecycle; nothing is buffered.
func (p *Publisher) Close() error { return nil }
