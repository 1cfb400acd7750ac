package worker

import (
	"context"
	"log/slog"
	"time"

	audit "sahayak/pkg/platform/audit"

	"github.com/google/uuid"
)

// OutboxStore reads and acknowledges outbox entries.
type OutboxStore interface {
	PendingOutbox(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer delivers a single outbox entry to the event stream.
type Producer interface {
	Produce(ctx context.Context, entry audit.OutboxEntry) error
}

// Relay polls the outbox and publishes entries in creation order. Delivery is
// at-least-once: an entry is marked only after the producer acknowledged it.
type Relay struct {
	store     OutboxStore
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(store OutboxStore, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		producer:  producer,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were delivered.
// It stops at the first producer failure so ordering is preserved.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.PendingOutbox(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	delivered := make([]uuid.UUID, 0, len(entries))
	var produceErr error
	for _, entry := range entries {
		if produceErr = r.producer.Produce(ctx, entry); produceErr != nil {
			break
		}
		delivered = append(delivered, entry.ID)
	}
	if err := r.store.MarkPublished(ctx, delivered, time.Now()); err != nil {
		return 0, err
	}
	return len(delivered), produceErr
}
