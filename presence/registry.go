// Package presence holds the process-wide table of live connections.
// It is the one piece of explicitly shared mutable state in the system
// and is safe for concurrent use from any number of connection
// goroutines. It is constructed at startup and injected; there are no
// hidden statics.
package presence

import (
	"log/slog"
	"sync"

	"messenger-lab/contract"
)

// Registry maps a user identity to the sink of its single live
// connection. One session per identity is a hard invariant: registering
// a second connection for the same identity closes the superseded sink,
// which terminates the old connection's delivery loop.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.ConnectionSink
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]contract.ConnectionSink),
		log:      log,
	}
}

// Register binds userID to sink and marks the user online. A previous
// sink for the same identity is closed so the superseded connection
// tears itself down.
func (r *Registry) Register(userID string, sink contract.ConnectionSink) {
	r.mu.Lock()
	previous, existed := r.sessions[userID]
	r.sessions[userID] = sink
	r.mu.Unlock()

	if existed && previous != sink {
		r.log.Info("session superseded, closing previous connection", "user_id", userID)
		previous.Close()
	}
}

// Deregister removes the entry only while it still refers to the same
// sink. A late deregister from a superseded connection therefore cannot
// evict the newer session. It reports whether the entry was removed.
func (r *Registry) Deregister(userID string, sink contract.ConnectionSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current != sink {
		return false
	}
	delete(r.sessions, userID)
	return true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// SinkFor resolves the live delivery channel for a user, if any.
func (r *Registry) SinkFor(userID string) (contract.ConnectionSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[userID]
	return sink, ok
}

// Snapshot returns the current sinks for every connected user except
// the excluded one. The copy lets a broadcast iterate without holding
// the registry lock while it pushes events.
func (r *Registry) Snapshot(exceptUserID string) map[string]contract.ConnectionSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make(map[string]contract.ConnectionSink, len(r.sessions))
	for userID, sink := range r.sessions {
		if userID == exceptUserID {
			continue
		}
		sinks[userID] = sink
	}
	return sinks
}
