package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/sentinel"
	"sahayak/pkg/requestcontext"
)

// Tick delivers a timer event to every session active within the live
// window that waits on the citizen or on a command, so silent citizens are
// prompted again and stalled commands are dispatched again. It returns the
// number of sessions that changed.
func (s *Service) Tick(ctx context.Context, parallelism int) (int, error) {
	ids, err := s.store.ListActiveSince(ctx, requestcontext.Now(ctx).Add(-s.liveWindow))
	if err != nil {
		return 0, err
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	var changed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			moved, err := s.tickOne(gctx, id)
			if err != nil {
				s.logger.WarnContext(gctx, "session timer failed",
					"session_id", id.String(),
					"error", err,
				)
				return nil
			}
			if moved {
				changed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(changed.Load()), err
}

func (s *Service) tickOne(ctx context.Context, id domain.SessionID) (bool, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if session.State != models.StateAwaitingInput && session.State != models.StateProcessing {
		return false, nil
	}
	next, err := s.Advance(ctx, session.OwnerID, id, models.TimerElapsed{})
	if err != nil {
		return false, err
	}
	return next.Version != session.Version, nil
}

// Purge removes sessions inactive for the whole retention window.
func (s *Service) Purge(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := requestcontext.Now(ctx).Add(-s.retention)
	purged, err := s.store.PurgeInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, session := range purged {
		s.emit(ctx, session, audit.EventSessionPurged, "purged", "retention_elapsed")
	}
	if s.metrics != nil {
		s.metrics.AddPurged(len(purged))
		s.metrics.ObservePurge(start)
	}
	if len(purged) > 0 {
		s.logger.InfoContext(ctx, "inactive sessions purged",
			"count", len(purged),
			"cutoff", cutoff,
		)
	}
	return len(purged), nil
}

// PurgeTask is extra work run on every purge cycle, such as retrying owner
// deletions that did not complete.
type PurgeTask struct {
	Name string
	Run  func(ctx context.Context) error
}

// Worker drives the session timers and the purge cycle.
type Worker struct {
	service       *Service
	tickInterval  time.Duration
	purgeInterval time.Duration
	parallelism   int
	tasks         []PurgeTask
	logger        *slog.Logger
	now           func() time.Time
}

type WorkerOption func(*Worker)

func WithTickInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.tickInterval = d
		}
	}
}

func WithPurgeInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.purgeInterval = d
		}
	}
}

func WithWorkerParallelism(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.parallelism = n
		}
	}
}

func WithPurgeTask(task PurgeTask) WorkerOption {
	return func(w *Worker) {
		if task.Run != nil {
			w.tasks = append(w.tasks, task)
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

func NewWorker(service *Service, opts ...WorkerOption) *Worker {
	w := &Worker{
		service:       service,
		tickInterval:  2 * time.Second,
		purgeInterval: time.Hour,
		parallelism:   8,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run purges once immediately, then ticks and purges on their intervals
// until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticks := time.NewTicker(w.tickInterval)
	defer ticks.Stop()
	purges := time.NewTicker(w.purgeInterval)
	defer purges.Stop()

	w.PurgeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks.C:
			if _, err := w.service.Tick(requestcontext.WithTime(ctx, w.now()), w.parallelism); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "session tick failed", "error", err)
			}
		case <-purges.C:
			w.PurgeOnce(ctx)
		}
	}
}

// PurgeOnce runs the retention purge and every registered task. Failures
// are logged and retried on the next cycle.
func (w *Worker) PurgeOnce(ctx context.Context) error {
	ctx = requestcontext.WithTime(ctx, w.now())
	var errs []error
	if _, err := w.service.Purge(ctx); err != nil {
		w.failed(ctx, "sessions", err)
		errs = append(errs, err)
	}
	for _, task := range w.tasks {
		if err := task.Run(ctx); err != nil {
			w.failed(ctx, task.Name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Worker) failed(ctx context.Context, task string, err error) {
	if w.service.metrics != nil {
		w.service.metrics.IncrementPurgeTaskFailure(task)
	}
	w.logger.ErrorContext(ctx, "purge task failed", "task", task, "error", err)
}
