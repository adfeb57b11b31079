// Package domain contains core concepts of the messaging system.
// Messages are immutable once created; only the read status may change,
// and it changes exactly once.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"messenger-lab/errors"
)

// MaxContentLength is the upper bound on message content, in runes.
const MaxContentLength = 1000

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeFile:
		return true
	}
	return false
}

// Message is one direct message between two users.
// SenderID, ReceiverID, Content, Type and CreatedAt never change after
// creation. ReadAt is non-nil exactly when IsRead is true.
type Message struct {
	ID         uuid.UUID   `json:"id" cbor:"1,keyasint"`
	SenderID   string      `json:"senderId" cbor:"2,keyasint"`
	ReceiverID string      `json:"receiverId" cbor:"3,keyasint"`
	Content    string      `json:"content" cbor:"4,keyasint"`
	Type       MessageType `json:"type" cbor:"5,keyasint"`
	IsRead     bool        `json:"isRead" cbor:"6,keyasint"`
	ReadAt     *time.Time  `json:"readAt,omitempty" cbor:"7,keyasint,omitempty"`
	CreatedAt  time.Time   `json:"createdAt" cbor:"8,keyasint"`
}

// ValidateContent trims the raw content and checks the domain rules.
// The trimmed value is the one that must be stored.
func ValidateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", errors.ErrEmptyContent
	}
	if len([]rune(content)) > MaxContentLength {
		return "", errors.ErrContentTooLong
	}
	return content, nil
}
