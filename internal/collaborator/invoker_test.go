package collaborator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"sahayak/pkg/platform/circuit"
	"sahayak/pkg/platform/sentinel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestInvoker(rec *sleepRecorder, opts ...InvokerOption) *Invoker {
	base := []InvokerOption{
		withSleep(rec.sleep),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewInvoker("test", append(base, opts...)...)
}

func TestCall_RetriesWithExponentialBackoff(t *testing.T) {
	rec := &sleepRecorder{}
	inv := newTestInvoker(rec)
	calls := 0

	v, err := Call(context.Background(), inv, "op", func(context.Context) (string, error) {
		calls++
		if calls < 4 {
			return "", NewError(ErrorOutage, "test", "down", nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, rec.delays)
}

func TestCall_GivesUpAfterRetries(t *testing.T) {
	rec := &sleepRecorder{}
	inv := newTestInvoker(rec)
	calls := 0

	_, err := Call(context.Background(), inv, "op", func(context.Context) (int, error) {
		calls++
		return 0, NewError(ErrorRateLimited, "test", "slow down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, ErrorRateLimited, CategoryOf(err))
}

func TestCall_DoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
	}{
		{"not found", NewError(ErrorNotFound, "test", "none", nil), ErrorNotFound},
		{"bad data", NewError(ErrorBadData, "test", "garbled", nil), ErrorBadData},
		{"plain sentinel", sentinel.ErrNotFound, ErrorNotFound},
		{"unknown", errors.New("boom"), ErrorInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sleepRecorder{}
			calls := 0
			_, err := Call(context.Background(), newTestInvoker(rec), "op", func(context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.delays)
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}
}

func TestCall_NotFoundWrapsSentinel(t *testing.T) {
	_, err := Call(context.Background(), newTestInvoker(&sleepRecorder{}), "op", func(context.Context) (int, error) {
		return 0, NewError(ErrorNotFound, "test", "none", nil)
	})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCall_AttemptTimeoutIsRetryable(t *testing.T) {
	rec := &sleepRecorder{}
	inv := newTestInvoker(rec, WithTimeout(10*time.Millisecond), WithRetries(1))
	calls := 0

	_, err := Call(context.Background(), inv, "op", func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, ErrorTimeout, CategoryOf(err))
	assert.True(t, IsRetryable(err))
}

func TestCall_OpenCircuitFailsFast(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	inv := newTestInvoker(&sleepRecorder{}, WithBreaker(breaker))
	calls := 0
	failing := func(context.Context) (int, error) {
		calls++
		return 0, NewError(ErrorOutage, "test", "down", nil)
	}

	_, err := Call(context.Background(), inv, "op", failing)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, ErrorCircuitOpen, CategoryOf(err))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	_, err = Call(context.Background(), inv, "op", failing)
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	now = now.Add(2 * time.Minute)
	v, err := Call(context.Background(), inv, "op", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCall_StopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := newTestInvoker(&sleepRecorder{})
	calls := 0

	_, err := Call(ctx, inv, "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewError(ErrorOutage, "test", "down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExtractionConfident(t *testing.T) {
	kept, dropped := Extraction{Fields: []ExtractedField{
		{Name: "service", Value: "income-certificate", Confidence: 0.92},
		{Name: "submission_date", Value: "2024-01-10", Confidence: 0.74},
		{Name: "jurisdiction", Value: "", Confidence: 0.99},
	}}.Confident(0.75)

	assert.Equal(t, map[string]string{"service": "income-certificate"}, kept)
	assert.Equal(t, []string{"submission_date", "jurisdiction"}, dropped)
}

func TestTranscriptClear(t *testing.T) {
	assert.True(t, Transcript{Text: "haan", Confidence: 0.6}.Clear(0.6))
	assert.False(t, Transcript{Text: "haan", Confidence: 0.59}.Clear(0.6))
	assert.False(t, Transcript{Confidence: 0.9}.Clear(0.6))
}
