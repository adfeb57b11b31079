package domain

import "time"

// ConversationSummary is a derived view of the latest exchange with one
// peer. It is recomputed on every request and never persisted: there is
// no cache to invalidate, which trades recompute cost for consistency.
type ConversationSummary struct {
	PeerID             string     `json:"userId"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	IsOnline           bool       `json:"isOnline"`
	LastSeenAt         *time.Time `json:"lastSeen,omitempty"`
	LastMessageContent string     `json:"lastMessage"`
	LastMessageAt      time.Time  `json:"lastMessageTime"`
	UnreadCount        int        `json:"unreadCount"`
}
