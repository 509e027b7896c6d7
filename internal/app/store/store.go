/*
Package store provides persistence for chat messages.

A ChatMessage is immutable once written; the only permitted mutation is the
read-flag transition performed when the receiver opens or polls the
conversation. Messages are never deleted by this subsystem.
*/
package store

import (
	"context"
	"time"
)

// ChatMessage is one persisted chat message between two marketplace users.
type ChatMessage struct {
	ID         int64     `json:"message_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Body       string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the message persistence contract shared by the realtime router and
// the fallback polling API. Both paths write and read the same records, which
// is what makes polling a correct degraded mode.
type Store interface {
	// Insert persists a new unread message and returns it with the assigned id
	// and server timestamp.
	Insert(ctx context.Context, senderID, receiverID int64, body string) (ChatMessage, error)

	// Conversation returns up to limit messages exchanged between userID and
	// partnerID in chronological order. Only messages naming both participants
	// are visible.
	Conversation(ctx context.Context, userID, partnerID int64, limit int) ([]ChatMessage, error)

	// UnreadCount returns the number of unread messages addressed to userID.
	UnreadCount(ctx context.Context, userID int64) (int64, error)

	// MarkConversationRead flags every message from partnerID to userID as read.
	MarkConversationRead(ctx context.Context, userID, partnerID int64) error
}
