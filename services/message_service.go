package services

import (
	"context"
	"log/slog"
	"time"

	"messenger-lab/domain"
	"messenger-lab/domain/event"
	"messenger-lab/errors"
	"messenger-lab/presence"
	"messenger-lab/repositories"
)

// IMessageService is the delivery coordinator. Both the request/response
// send endpoint and the live send_message event funnel through Send, so
// the validate→persist→push sequence can never diverge between paths.
type IMessageService interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(ctx context.Context, cmd domain.HistoryCommand) ([]domain.Message, error)
	MarkRead(ctx context.Context, readerID, senderID string) (int, error)
	Delete(ctx context.Context, messageID, requesterID string) error
	Conversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	NotifyTyping(ctx context.Context, fromUserID, toUserID string, typing bool) error
	UpdateStatus(ctx context.Context, userID string, online bool) error
}

type MessageService struct {
	log           *slog.Logger
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	conversations repositories.IConversationRepository
	registry      *presence.Registry
}

func NewMessageService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	conversations repositories.IConversationRepository,
	registry *presence.Registry,
) *MessageService {
	return &MessageService{
		log:           log,
		messages:      messages,
		users:         users,
		conversations: conversations,
		registry:      registry,
	}
}

// Send validates, persists, then attempts a live push. Persistence is
// the durability point: once Create returns, the message is retrievable
// through history whatever happens to the push. The persisted message is
// returned to the caller independent of the push outcome.
func (s *MessageService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if cmd.ReceiverID == "" || cmd.Content == "" {
		return domain.Message{}, errors.ErrMissingField
	}
	cmd = cmd.Normalized()

	receiver, err := s.users.GetByID(cmd.ReceiverID)
	if err != nil {
		return domain.Message{}, err
	}

	message, err := s.messages.Create(cmd.SenderID, cmd.ReceiverID, cmd.Content, cmd.Type)
	if err != nil {
		return domain.Message{}, err
	}

	sender, err := s.users.GetByID(cmd.SenderID)
	if err != nil {
		// The message is durable; only the live push is lost.
		s.log.Error("sender lookup failed after persist", "sender_id", cmd.SenderID, "error", err)
		return message, nil
	}

	s.push(ctx, cmd.ReceiverID, event.MessageReceived{
		Message:  message,
		Sender:   sender.Public(),
		Receiver: receiver.Public(),
	})
	s.push(ctx, cmd.SenderID, event.MessageSent{
		Message:  message,
		Sender:   sender.Public(),
		Receiver: receiver.Public(),
	})
	return message, nil
}

// History returns one chronological page of the conversation with the
// peer. Fetching acknowledges: unread messages from the peer are marked
// read by the same repository call.
func (s *MessageService) History(ctx context.Context, cmd domain.HistoryCommand) ([]domain.Message, error) {
	cmd = cmd.Normalized()
	if _, err := s.users.GetByID(cmd.PeerID); err != nil {
		return nil, err
	}
	return s.messages.FetchAndAcknowledge(cmd.UserID, cmd.PeerID, cmd.Page, cmd.PageSize)
}

// MarkRead bulk-acknowledges every unread message from senderID to
// readerID and, when anything changed, notifies the sender's live
// connection that its messages were read.
func (s *MessageService) MarkRead(ctx context.Context, readerID, senderID string) (int, error) {
	updated, err := s.messages.MarkRead(senderID, readerID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		reader, err := s.users.GetByID(readerID)
		if err != nil {
			s.log.Error("reader lookup failed", "user_id", readerID, "error", err)
			return updated, nil
		}
		s.push(ctx, senderID, event.MessagesRead{
			UserID:   reader.ID,
			Username: reader.Username,
		})
	}
	return updated, nil
}

func (s *MessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	_, err := s.messages.DeleteOwned(messageID, requesterID)
	return err
}

func (s *MessageService) Conversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	return s.conversations.Summarize(userID)
}

// NotifyTyping relays a typing indicator to the recipient, if online.
// Nothing is persisted; a missing recipient is a no-op.
func (s *MessageService) NotifyTyping(ctx context.Context, fromUserID, toUserID string, typing bool) error {
	from, err := s.users.GetByID(fromUserID)
	if err != nil {
		return err
	}
	s.push(ctx, toUserID, event.UserTyping{
		UserID:   from.ID,
		Username: from.Username,
		IsTyping: typing,
	})
	return nil
}

// UpdateStatus persists an explicit presence override requested by the
// client itself and broadcasts it to every other connected user.
func (s *MessageService) UpdateStatus(ctx context.Context, userID string, online bool) error {
	user, err := s.users.SetPresence(userID, online, time.Now().UTC())
	if err != nil {
		return err
	}

	update := event.UserStatusUpdate{
		UserID:   user.ID,
		Username: user.Username,
		IsOnline: online,
	}
	if user.LastSeenAt != nil {
		update.LastSeenAt = *user.LastSeenAt
	}
	for peerID, peerSink := range s.registry.Snapshot(userID) {
		if err := peerSink.Consume(ctx, update); err != nil {
			s.log.Warn("status broadcast dropped", "user_id", peerID, "error", err)
		}
	}
	return nil
}

// push attempts best-effort live delivery to one user. An offline user,
// a racing disconnect or a full buffer is a soft failure: the durable
// copy is surfaced by the next history fetch.
func (s *MessageService) push(ctx context.Context, userID string, e event.DomainEvent) {
	userSink, ok := s.registry.SinkFor(userID)
	if !ok {
		return
	}
	if err := userSink.Consume(ctx, e); err != nil {
		s.log.Warn("live push failed", "user_id", userID, "event", e.EventName(), "error", err)
	}
}
