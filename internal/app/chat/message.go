/*
Package chat contains the core logic of the realtime messaging layer: connection
lifecycle, the online-user registry, message routing, and the socket server loop.

This file defines the application payload schema carried inside WebSocket text
frames, in both directions.
*/
package chat

import (
	"time"

	"estatechat/internal/app/store"
)

// Server-to-client payload types.
const (
	// TypeSystem is an informational message (e.g., the post-handshake welcome).
	TypeSystem = "system"

	// TypeError reports a recoverable error to the sender; the connection stays open.
	TypeError = "error"

	// TypeSentConfirmation acknowledges a persisted message back to its sender.
	TypeSentConfirmation = "sent_confirmation"

	// TypeMessage delivers a chat message to its receiver.
	TypeMessage = "message"
)

// Client-to-server payload types. A payload without a type field is a chat message.
const (
	// TypeAuth binds the connection to a user identity via a session token.
	TypeAuth = "auth"
)

// createdAtFormat is the wire format for message timestamps.
const createdAtFormat = time.RFC3339

// InboundPayload is the client-to-server payload. Chat messages carry
// receiver_id and message; auth frames carry type "auth" and a token.
type InboundPayload struct {
	Type       string `json:"type,omitempty"`
	Token      string `json:"token,omitempty"`
	ReceiverID int64  `json:"receiver_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SystemPayload is an informational server-to-client message.
type SystemPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorPayload reports an error to the client without closing the connection.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ConfirmationPayload acknowledges a persisted message back to its sender,
// carrying the authoritative id and timestamp assigned by the store.
type ConfirmationPayload struct {
	Type       string `json:"type"`
	MessageID  int64  `json:"message_id"`
	Message    string `json:"message"`
	ReceiverID int64  `json:"receiver_id"`
	CreatedAt  string `json:"created_at"`
}

// DeliveryPayload pushes a chat message to its receiver's live connection.
type DeliveryPayload struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	SenderID  int64  `json:"sender_id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// NewSystemPayload builds a system payload.
func NewSystemPayload(message string) SystemPayload {
	return SystemPayload{Type: TypeSystem, Message: message}
}

// NewErrorPayload builds an error payload.
func NewErrorPayload(message string) ErrorPayload {
	return ErrorPayload{Type: TypeError, Message: message}
}

// NewConfirmationPayload builds the sender acknowledgement for a persisted message.
func NewConfirmationPayload(msg store.ChatMessage) ConfirmationPayload {
	return ConfirmationPayload{
		Type:       TypeSentConfirmation,
		MessageID:  msg.ID,
		Message:    msg.Body,
		ReceiverID: msg.ReceiverID,
		CreatedAt:  msg.CreatedAt.Format(createdAtFormat),
	}
}

// NewDeliveryPayload builds the receiver push for a persisted message.
func NewDeliveryPayload(msg store.ChatMessage) DeliveryPayload {
	return DeliveryPayload{
		Type:      TypeMessage,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
		Message:   msg.Body,
		CreatedAt: msg.CreatedAt.Format(createdAtFormat),
	}
}
