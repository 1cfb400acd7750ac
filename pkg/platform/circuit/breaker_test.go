package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outcome is one call result fed to the breaker: 'f' for a failure, 's' for
// a success.
type outcome byte

func replay(b *Breaker, calls string) (opened, closed int) {
	for _, c := range []byte(calls) {
		var change Change
		if outcome(c) == 'f' {
			_, change = b.RecordFailure()
		} else {
			_, change = b.RecordSuccess()
		}
		if change.Opened {
			opened++
		}
		if change.Closed {
			closed++
		}
	}
	return opened, closed
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		successes  int
		calls      string
		wantOpen   bool
		wantOpened int
		wantClosed int
	}{
		{name: "fresh breaker is closed", failures: 3, successes: 2, calls: "", wantOpen: false},
		{name: "failures below threshold", failures: 3, successes: 2, calls: "ff", wantOpen: false},
		{name: "opens at threshold", failures: 3, successes: 2, calls: "fff", wantOpen: true, wantOpened: 1},
		{name: "failures past threshold open once", failures: 3, successes: 2, calls: "fffff", wantOpen: true, wantOpened: 1},
		{name: "success clears the failure streak", failures: 3, successes: 2, calls: "ffsff", wantOpen: false},
		{name: "one probe success is not enough", failures: 1, successes: 2, calls: "fs", wantOpen: true, wantOpened: 1},
		{name: "closes after enough probe successes", failures: 1, successes: 2, calls: "fss", wantOpen: false, wantOpened: 1, wantClosed: 1},
		{name: "failed probe restarts the success streak", failures: 1, successes: 3, calls: "fssfss", wantOpen: true, wantOpened: 1},
		{name: "recovers after a failed probe", failures: 1, successes: 3, calls: "fssfsss", wantOpen: false, wantOpened: 1, wantClosed: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("retrieval", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			opened, closed := replay(b, tt.calls)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantOpened, opened)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestBreakerFallbackSignal(t *testing.T) {
	b := New("transcription", WithFailureThreshold(2))
	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback)
	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, Change{}, change)
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	b := New("retrieval", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(func() time.Time { return now }))
	require.Equal(t, "retrieval", b.Name())
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "open", b.State().String())
	assert.False(t, b.Allow())

	now = now.Add(30 * time.Second)
	assert.False(t, b.Allow())

	// A failed probe restarts the cooldown.
	now = now.Add(31 * time.Second)
	require.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
