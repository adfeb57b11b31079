package presence

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger-lab/domain/event"
)

// recordingSink counts consumed events and remembers whether it was
// closed.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	closed bool
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestRegistry_RegisterDeregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &recordingSink{}

	req.False(registry.IsOnline("alice"))

	registry.Register("alice", sink)
	req.True(registry.IsOnline("alice"))
	got, ok := registry.SinkFor("alice")
	req.True(ok)
	req.Same(sink, got.(*recordingSink))

	req.True(registry.Deregister("alice", sink))
	req.False(registry.IsOnline("alice"))
	_, ok = registry.SinkFor("alice")
	req.False(ok)
}

func TestRegistry_SupersededSessionIsClosed(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	first := &recordingSink{}
	second := &recordingSink{}

	registry.Register("alice", first)
	registry.Register("alice", second)

	req.True(first.isClosed())
	req.False(second.isClosed())

	// A late deregister from the superseded connection must not evict
	// the newer session.
	req.False(registry.Deregister("alice", first))
	req.True(registry.IsOnline("alice"))

	req.True(registry.Deregister("alice", second))
	req.False(registry.IsOnline("alice"))
}

func TestRegistry_SnapshotExcludesRequester(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	registry.Register("alice", &recordingSink{})
	registry.Register("bob", &recordingSink{})
	registry.Register("clara", &recordingSink{})

	sinks := registry.Snapshot("alice")
	req.Len(sinks, 2)
	req.NotContains(sinks, "alice")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry(slog.Default())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink := &recordingSink{}
			registry.Register("alice", sink)
			registry.IsOnline("alice")
			registry.Snapshot("bob")
			registry.Deregister("alice", sink)
		}()
	}
	wg.Wait()
}
