package contract

import (
	"context"

	"messenger-lab/domain/event"
)

// EventSink receives domain events destined for one consumer.
// Implementations must not block: delivery is best effort and a full
// sink is a soft failure, surfaced on the next history fetch instead.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ConnectionSink is the sink bound to one live connection. Closing it
// releases the consumer draining it; Close is idempotent.
type ConnectionSink interface {
	EventSink
	Close()
}
