// Package event defines the server→client events carried over live
// connections. Each event knows its wire name; the gateway wraps it in
// an envelope before writing it to the socket.
package event

import (
	"time"

	"messenger-lab/domain"
)

type DomainEvent interface {
	EventName() string
}

// MessageReceived is pushed to the receiver of a freshly persisted
// message. It carries the full message plus resolved display fields.
type MessageReceived struct {
	Message  domain.Message    `json:"message"`
	Sender   domain.PublicUser `json:"sender"`
	Receiver domain.PublicUser `json:"receiver"`
}

func (MessageReceived) EventName() string { return "receive_message" }

// MessageSent is the sender-side acknowledgment of the same message.
type MessageSent struct {
	Message  domain.Message    `json:"message"`
	Sender   domain.PublicUser `json:"sender"`
	Receiver domain.PublicUser `json:"receiver"`
}

func (MessageSent) EventName() string { return "message_sent" }

type UserTyping struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func (UserTyping) EventName() string { return "user_typing" }

// MessagesRead tells a sender that the given user has read their
// messages.
type MessagesRead struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (MessagesRead) EventName() string { return "messages_read" }

type UserStatusUpdate struct {
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	IsOnline   bool      `json:"isOnline"`
	LastSeenAt time.Time `json:"lastSeen"`
}

func (UserStatusUpdate) EventName() string { return "user_status_update" }

// Error is scoped to the connection whose inbound event failed; it
// never closes the connection.
type Error struct {
	Message string `json:"message"`
}

func (Error) EventName() string { return "error" }
