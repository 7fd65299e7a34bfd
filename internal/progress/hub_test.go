package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingSink captures consumed batches for assertion.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func (s *recordingSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *recordingSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testEvent() Event {
	return Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: StageRunStart,
		Site:  "candidpix",
	}
}

func TestHubFlushesOnBatchSize(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchEvents: 5, MaxBatchWait: time.Hour}, sink)
	defer func() { _ = hub.Close(context.Background()) }()

	for i := 0; i < 5; i++ {
		hub.Emit(testEvent())
	}
	require.Eventually(t, func() bool { return sink.total() == 5 },
		2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, sink.batchCount())
}

func TestHubFlushesOnTimer(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchEvents: 1000, MaxBatchWait: 20 * time.Millisecond}, sink)
	defer func() { _ = hub.Close(context.Background()) }()

	hub.Emit(testEvent())
	hub.Emit(testEvent())
	require.Eventually(t, func() bool { return sink.total() == 2 },
		2*time.Second, 10*time.Millisecond)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: 20 * time.Millisecond}, sink)

	hub.Emit(Event{}) // missing everything
	hub.Emit(testEvent())

	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, 1, sink.total())
}

func TestHubEmitNeverBlocksWhenFull(t *testing.T) {
	t.Parallel()

	// A sink that blocks until released, so the buffer actually fills.
	release := make(chan struct{})
	blocking := &blockingSink{release: release}
	hub := NewHub(Config{BufferSize: 2, MaxBatchEvents: 1, MaxBatchWait: time.Hour}, blocking)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			hub.Emit(testEvent())
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
	close(release)
	require.NoError(t, hub.Close(context.Background()))
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Consume(context.Context, []Event) error {
	<-s.release
	return nil
}

func (s *blockingSink) Close(context.Context) error { return nil }

func TestHubCloseDrainsAndClosesSinks(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: time.Hour}, sink)

	for i := 0; i < 10; i++ {
		hub.Emit(testEvent())
	}
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, 10, sink.total())
	require.True(t, sink.closed)

	// Emits after close are ignored, and closing again is a no-op.
	hub.Emit(testEvent())
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, 10, sink.total())
}

func TestHubNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(testEvent())
	require.NoError(t, hub.Close(context.Background()))
}
