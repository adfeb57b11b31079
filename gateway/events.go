package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"messenger-lab/domain"
	"messenger-lab/domain/event"
	"messenger-lab/errors"
	"messenger-lab/sink"
)

// Envelope is the wire frame in both directions: an event name plus its
// payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client→server event names.
const (
	eventSendMessage  = "send_message"
	eventTypingStart  = "typing_start"
	eventTypingStop   = "typing_stop"
	eventMarkRead     = "mark_read"
	eventUpdateStatus = "update_status"
)

type sendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Type       string `json:"type"`
}

type typingPayload struct {
	ReceiverID string `json:"receiverId"`
}

type markReadPayload struct {
	SenderID string `json:"senderId"`
}

type statusPayload struct {
	IsOnline bool `json:"isOnline"`
}

type outboundEnvelope struct {
	Event string            `json:"event"`
	Data  event.DomainEvent `json:"data"`
}

func outbound(e event.DomainEvent) outboundEnvelope {
	return outboundEnvelope{Event: e.EventName(), Data: e}
}

// dispatch routes one inbound event to its handler. A handler failure
// is scoped to this connection: the error event goes back through the
// sink and the connection keeps running.
func (g *Gateway) dispatch(connSink *sink.ChannelSink, user domain.User, env Envelope) {
	ctx := context.Background()

	var err error
	switch env.Event {
	case eventSendMessage:
		err = g.handleSendMessage(ctx, user, env.Data)
	case eventTypingStart:
		err = g.handleTyping(ctx, user, env.Data, true)
	case eventTypingStop:
		err = g.handleTyping(ctx, user, env.Data, false)
	case eventMarkRead:
		err = g.handleMarkRead(ctx, user, env.Data)
	case eventUpdateStatus:
		err = g.handleUpdateStatus(ctx, user, env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", errors.ErrMissingField, env.Event)
	}
	if err != nil {
		g.monitor.HandlerError()
		g.log.Warn("event handler failed",
			"user_id", user.ID, "event", env.Event, "error", err)
		_ = connSink.Consume(ctx, event.Error{Message: errors.PublicMessage(err)})
	}
}

func (g *Gateway) handleSendMessage(ctx context.Context, user domain.User, data json.RawMessage) error {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingField, err)
	}
	_, err := g.messages.Send(ctx, domain.SendMessageCommand{
		SenderID:   user.ID,
		ReceiverID: payload.ReceiverID,
		Content:    payload.Content,
		Type:       domain.MessageType(payload.Type),
	})
	return err
}

func (g *Gateway) handleTyping(ctx context.Context, user domain.User, data json.RawMessage, typing bool) error {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingField, err)
	}
	if payload.ReceiverID == "" {
		return errors.ErrMissingField
	}
	return g.messages.NotifyTyping(ctx, user.ID, payload.ReceiverID, typing)
}

func (g *Gateway) handleMarkRead(ctx context.Context, user domain.User, data json.RawMessage) error {
	var payload markReadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingField, err)
	}
	if payload.SenderID == "" {
		return errors.ErrMissingField
	}
	_, err := g.messages.MarkRead(ctx, user.ID, payload.SenderID)
	return err
}

func (g *Gateway) handleUpdateStatus(ctx context.Context, user domain.User, data json.RawMessage) error {
	var payload statusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingField, err)
	}
	return g.messages.UpdateStatus(ctx, user.ID, payload.IsOnline)
}
