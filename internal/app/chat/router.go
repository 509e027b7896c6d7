/*
Package chat contains the core logic of the realtime messaging layer: connection
lifecycle, the online-user registry, message routing, and the socket server loop.

This file defines the Router struct, which receives decoded application
payloads, binds identities, persists chat messages, and forwards them to the
receiver's live connection when one exists.
*/
package chat

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"estatechat/internal/app/store"
	"estatechat/internal/pkg/auth/jwt"
	"estatechat/internal/pkg/logx"
)

// Router routes decoded application messages. Each connection's frames are
// handled sequentially by that connection's read goroutine, so messages from a
// single sender are persisted and confirmed in the order received.
type Router struct {
	store     store.Store
	registry  *Registry
	jwtSecret string

	// structured logger with Router context.
	logger zerolog.Logger
}

// NewRouter constructs a Router over the given store and registry.
func NewRouter(messageStore store.Store, registry *Registry, jwtSecret string) *Router {
	return &Router{
		store:     messageStore,
		registry:  registry,
		jwtSecret: jwtSecret,
		logger:    logx.Component("Router"),
	}
}

// HandleIncoming processes one decoded text-frame payload from conn.
// Malformed payloads are logged and dropped; they are never fatal for the
// connection or the process.
func (rt *Router) HandleIncoming(ctx context.Context, conn *Conn, rawPayload []byte) {
	var inbound InboundPayload
	if err := json.Unmarshal(rawPayload, &inbound); err != nil {
		rt.logger.Warn().
			Str("conn_id", conn.ID()).
			Err(err).
			Msg("Client sent invalid JSON. Dropping payload.")
		return
	}

	switch inbound.Type {
	case TypeAuth:
		rt.handleAuth(conn, inbound)

	case "":
		rt.handleChatMessage(ctx, conn, inbound)

	default:
		rt.logger.Warn().
			Str("conn_id", conn.ID()).
			Str("msg_type", inbound.Type).
			Msg("Client sent unsupported message type. Dropping payload.")
	}
}

// handleAuth validates the session token and binds the user id to the
// connection. A user's previous connection, if any, is closed: the registry
// holds at most one live connection per user.
func (rt *Router) handleAuth(conn *Conn, inbound InboundPayload) {
	payload, err := jwt.ParseToken(inbound.Token, rt.jwtSecret)
	if err != nil {
		rt.logger.Warn().
			Str("conn_id", conn.ID()).
			Err(err).
			Msg("Auth frame carried invalid token.")

		conn.SendJSON(NewErrorPayload("invalid token"))
		return
	}

	displaced := rt.registry.BindUser(conn, payload.UserID)
	if displaced != nil {
		displaced.SendJSON(NewSystemPayload("session replaced by a new connection"))
		displaced.Close()
		rt.registry.Remove(displaced)
	}

	conn.SendJSON(NewSystemPayload("authenticated"))
}

// handleChatMessage persists the message, confirms it to the sender, and
// pushes it to the receiver's live connection if one exists. Offline receivers
// fetch it later through the polling API; no further delivery attempt is made
// here.
func (rt *Router) handleChatMessage(ctx context.Context, conn *Conn, inbound InboundPayload) {
	if inbound.ReceiverID <= 0 || inbound.Message == "" {
		rt.logger.Warn().
			Str("conn_id", conn.ID()).
			Int64("receiver_id", inbound.ReceiverID).
			Msg("Chat payload missing receiver_id or message. Dropping payload.")
		return
	}

	senderID := conn.UserID()
	if senderID == 0 {
		conn.SendJSON(NewErrorPayload("not authenticated"))
		return
	}

	msg, err := rt.store.Insert(ctx, senderID, inbound.ReceiverID, inbound.Message)
	if err != nil {
		rt.logger.Error().
			Str("conn_id", conn.ID()).
			Int64("sender_id", senderID).
			Err(err).
			Msg("Failed to persist chat message.")

		conn.SendJSON(NewErrorPayload("failed to save message"))
		return
	}

	// Confirm before pushing so the sender's view is ordered by persistence.
	conn.SendJSON(NewConfirmationPayload(msg))

	rt.deliver(msg)
}

// SendFromUser persists a message from senderID and pushes it to the
// receiver's live connection if one exists. It is the shared send path for
// both the realtime router and the HTTP fallback, so a message sent while
// degraded still reaches an online receiver in real time.
func (rt *Router) SendFromUser(ctx context.Context, senderID, receiverID int64, body string) (store.ChatMessage, error) {
	msg, err := rt.store.Insert(ctx, senderID, receiverID, body)
	if err != nil {
		return store.ChatMessage{}, err
	}

	rt.deliver(msg)
	return msg, nil
}

// deliver pushes a persisted message to the receiver's live connection when
// one is registered. The message is only ever written to the connection bound
// to the receiver id named on it.
func (rt *Router) deliver(msg store.ChatMessage) {
	receiver := rt.registry.FindByUser(msg.ReceiverID)
	if receiver == nil {
		rt.logger.Debug().
			Int64("receiver_id", msg.ReceiverID).
			Int64("message_id", msg.ID).
			Msg("Receiver offline. Message available via polling.")
		return
	}

	if err := receiver.SendJSON(NewDeliveryPayload(msg)); err != nil {
		rt.logger.Warn().
			Int64("receiver_id", msg.ReceiverID).
			Str("conn_id", receiver.ID()).
			Err(err).
			Msg("Failed to push message to receiver. Closing receiver connection.")

		receiver.Close()
		rt.registry.Remove(receiver)
	}
}
