package collaborator

import (
	"context"
	"log/slog"
	"time"

	"sahayak/pkg/platform/circuit"
)

// Invoker applies the call policy for one collaborator: a per-attempt
// timeout, bounded retries with exponential backoff for retryable failures,
// and a circuit breaker that fails fast while the collaborator is down.
type Invoker struct {
	name    string
	timeout time.Duration
	retries int
	backoff time.Duration
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

type InvokerOption func(*Invoker)

func WithTimeout(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithRetries sets how many times a retryable failure is retried.
func WithRetries(n int) InvokerOption {
	return func(i *Invoker) {
		if n >= 0 {
			i.retries = n
		}
	}
}

// WithBackoff sets the first retry delay; each later retry doubles it.
func WithBackoff(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d > 0 {
			i.backoff = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) InvokerOption {
	return func(i *Invoker) {
		i.breaker = b
	}
}

func WithMetrics(m *Metrics) InvokerOption {
	return func(i *Invoker) {
		i.metrics = m
	}
}

func WithLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) InvokerOption {
	return func(i *Invoker) {
		i.sleep = sleep
	}
}

func NewInvoker(name string, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		name:    name,
		timeout: 8 * time.Second,
		retries: 3,
		backoff: 200 * time.Millisecond,
		logger:  slog.Default(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Invoker) Name() string { return i.name }

// Call runs fn under inv's policy. Every error it returns is a *Error.
func Call[T any](ctx context.Context, inv *Invoker, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	var lastErr *Error

	for attempt := 0; attempt <= inv.retries; attempt++ {
		if attempt > 0 {
			if inv.metrics != nil {
				inv.metrics.retried(inv.name, operation)
			}
			delay := inv.backoff << (attempt - 1)
			if err := inv.sleep(ctx, delay); err != nil {
				lastErr = classify(inv.name, err)
				break
			}
		}
		if inv.breaker != nil && !inv.breaker.Allow() {
			lastErr = NewError(ErrorCircuitOpen, inv.name, "collaborator temporarily disabled", nil)
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, inv.timeout)
		v, err := fn(attemptCtx)
		cancel()
		if err == nil {
			inv.recordSuccess(ctx)
			inv.observe(operation, "ok", start)
			return v, nil
		}

		lastErr = classify(inv.name, err)
		if !lastErr.Retryable {
			break
		}
		inv.recordFailure(ctx)
		inv.logger.WarnContext(ctx, "collaborator call failed",
			"collaborator", inv.name,
			"operation", operation,
			"attempt", attempt+1,
			"category", lastErr.Category,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}

	inv.observe(operation, string(lastErr.Category), start)
	return zero, lastErr
}

func (i *Invoker) recordSuccess(ctx context.Context) {
	if i.breaker == nil {
		return
	}
	if _, change := i.breaker.RecordSuccess(); change.Closed {
		i.logger.InfoContext(ctx, "collaborator circuit closed", "collaborator", i.name)
		if i.metrics != nil {
			i.metrics.circuit(i.name, false)
		}
	}
}

func (i *Invoker) recordFailure(ctx context.Context) {
	if i.breaker == nil {
		return
	}
	if _, change := i.breaker.RecordFailure(); change.Opened {
		i.logger.WarnContext(ctx, "collaborator circuit opened", "collaborator", i.name)
		if i.metrics != nil {
			i.metrics.circuit(i.name, true)
		}
	}
}

func (i *Invoker) observe(operation, outcome string, start time.Time) {
	if i.metrics != nil {
		i.metrics.observe(i.name, operation, outcome, time.Since(start))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
