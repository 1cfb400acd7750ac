package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sahayak/internal/tracking/metrics"
	"sahayak/pkg/requestcontext"
)

// Sweeper periodically re-evaluates every record that is not completed so
// breaches are detected without the citizen asking.
type Sweeper struct {
	service     *Service
	interval    time.Duration
	parallelism int
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(w *Sweeper) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithParallelism(n int) SweeperOption {
	return func(w *Sweeper) {
		if n > 0 {
			w.parallelism = n
		}
	}
}

func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(w *Sweeper) {
		w.logger = logger
	}
}

func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(w *Sweeper) {
		w.metrics = m
	}
}

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(w *Sweeper) {
		w.now = now
	}
}

func NewSweeper(service *Service, opts ...SweeperOption) *Sweeper {
	w := &Sweeper{
		service:     service,
		interval:    time.Hour,
		parallelism: 8,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "application sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce re-evaluates all active records against a single "now". A
// failure on one record is logged and does not stop the others. It returns
// the number of records re-evaluated successfully.
func (w *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()
	ids, err := w.service.store.ListActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	sweepCtx := requestcontext.WithTime(ctx, w.now())

	var done, failed atomic.Int64
	g, gctx := errgroup.WithContext(sweepCtx)
	g.SetLimit(w.parallelism)
	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if _, err := w.service.Reevaluate(gctx, id); err != nil {
				failed.Add(1)
				if w.metrics != nil {
					w.metrics.IncrementSweepFailure()
				}
				w.logger.WarnContext(gctx, "application reevaluation failed",
					"application_id", id.String(),
					"error", err,
				)
				return nil
			}
			done.Add(1)
			return nil
		})
	}
	err = g.Wait()

	if w.metrics != nil {
		w.metrics.ObserveSweep(start)
	}
	w.logger.InfoContext(ctx, "application sweep finished",
		"active", len(ids),
		"reevaluated", done.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
	return int(done.Load()), err
}
