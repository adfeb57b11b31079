// Package sink implements the delivery channel bound to one live
// connection.
package sink

import (
	"context"
	"log/slog"
	"sync"

	"messenger-lab/domain/event"
)

// ChannelSink buffers events for a single connection's write pump.
// Consume never blocks the producer: when the buffer is full the event
// is dropped, which is a soft failure: the message is already durable
// and the next history fetch surfaces it.
type ChannelSink struct {
	Events chan event.DomainEvent

	log  *slog.Logger
	once sync.Once
	done chan struct{}
}

func NewChannelSink(log *slog.Logger, bufferSize int) *ChannelSink {
	return &ChannelSink{
		Events: make(chan event.DomainEvent, bufferSize),
		log:    log,
		done:   make(chan struct{}),
	}
}

func (s *ChannelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case s.Events <- e:
		return nil
	default:
		s.log.Warn("connection buffer full, dropping event", "event", e.EventName())
		return nil
	}
}

// Close releases the write pump draining Events. Safe to call from any
// goroutine, any number of times.
func (s *ChannelSink) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Done is closed once the sink is no longer current.
func (s *ChannelSink) Done() <-chan struct{} {
	return s.done
}
