package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"sahayak/pkg/domain"
	audit "sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/audit/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore blocks Append until release is closed.
type gatedStore struct {
	*memory.InMemoryStore
	release chan struct{}
}

func (g *gatedStore) Append(ctx context.Context, e audit.Event) error {
	<-g.release
	return g.InMemoryStore.Append(ctx, e)
}

var fixed = time.Date(2024, time.February, 5, 9, 30, 0, 0, time.UTC)

func TestEmitFillsDefaults(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()
	owner := domain.OwnerID(uuid.New())
	earlier := fixed.Add(-time.Hour)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{OwnerID: owner, Action: string(audit.EventSessionStarted)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{OwnerID: owner, Action: string(audit.EventBreachDetected), Timestamp: earlier}))

	events, err := pub.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.Equal(t, earlier, events[1].Timestamp)
	assert.Equal(t, audit.CategoryCompliance, events[1].Category)
}

func TestAsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(64))

	owners := make([]domain.OwnerID, 4)
	var wg sync.WaitGroup
	for i := range owners {
		owners[i] = domain.OwnerID(uuid.New())
		wg.Add(1)
		go func(owner domain.OwnerID) {
			defer wg.Done()
			for range 5 {
				assert.NoError(t, pub.Emit(context.Background(), audit.Event{OwnerID: owner, Action: string(audit.EventEligibilityEvaluated)}))
			}
		}(owners[i])
	}
	wg.Wait()
	pub.Close()

	for _, owner := range owners {
		events, err := store.ListByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Len(t, events, 5)
	}
}

func TestAsyncFullBufferDrops(t *testing.T) {
	store := &gatedStore{InMemoryStore: memory.NewInMemoryStore(), release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))
	owner := domain.OwnerID(uuid.New())
	event := audit.Event{OwnerID: owner, Action: string(audit.EventSessionPurged)}

	// The drain goroutine may hold one event while blocked, the buffer holds
	// another; everything after that is dropped.
	var errs int
	for range 5 {
		if err := pub.Emit(context.Background(), event); err != nil {
			require.ErrorIs(t, err, errBufferFull)
			errs++
		}
	}
	assert.GreaterOrEqual(t, errs, 3)
	assert.Equal(t, int64(errs), pub.Dropped())

	close(store.release)
	pub.Close()
	events, err := store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, events, 5-errs)
}

func TestAsyncRejectsCancelledContext(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(4))
	defer pub.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Action: string(audit.EventSessionStarted)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, pub.Dropped())
}
