/*
Package handler provides the HTTP handlers and routing setup for the fallback
polling API.

This file contains the messages endpoints consumed by clients running in the
degraded polling mode: conversation history (which performs the read-flag
transition), unread counting, and an HTTP send path.
*/
package handler

import (
	"net/http"

	"estatechat/internal/pkg/auth/jwt"
	"estatechat/internal/pkg/errs"
	"estatechat/internal/pkg/logx"
	"estatechat/internal/pkg/req"
	"estatechat/internal/pkg/resp"
)

// conversationPageSize bounds how many messages one poll returns.
const conversationPageSize = 100

// HandleMessagesGet serves GET /messages dispatched on the action query
// parameter: get_messages returns the conversation with a partner and marks it
// read; unread_count returns the caller's unread badge count.
func HandleMessagesGet(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		switch r.URL.Query().Get("action") {
		case "get_messages":
			handleGetMessages(deps, w, r, identity.UserID)

		case "unread_count":
			handleUnreadCount(deps, w, r, identity.UserID)

		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknownAction))
		}
	}
}

// handleGetMessages returns the conversation between the caller and partner_id
// in chronological order. Opening the conversation is the read-flag
// transition: every message from the partner to the caller becomes read.
func handleGetMessages(deps *AppDeps, w http.ResponseWriter, r *http.Request, userID int64) {
	partnerID, customErr := req.QueryInt64(r, "partner_id")
	if customErr != nil {
		resp.RespondError(w, r, customErr)
		return
	}

	messages, err := deps.Store.Conversation(r.Context(), userID, partnerID, conversationPageSize)
	if err != nil {
		logx.Error(err, "Failed to load conversation", "user_id", userID, "partner_id", partnerID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	if err := deps.Store.MarkConversationRead(r.Context(), userID, partnerID); err != nil {
		// The fetch succeeded; a failed read-flag update should not hide the
		// messages from the caller.
		logx.Error(err, "Failed to mark conversation read", "user_id", userID, "partner_id", partnerID)
	}

	resp.RespondSuccess(w, r, map[string]any{
		"messages": messages,
	})
}

// handleUnreadCount returns the number of unread messages addressed to the caller.
func handleUnreadCount(deps *AppDeps, w http.ResponseWriter, r *http.Request, userID int64) {
	count, err := deps.Store.UnreadCount(r.Context(), userID)
	if err != nil {
		logx.Error(err, "Failed to count unread messages", "user_id", userID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	resp.RespondSuccess(w, r, map[string]any{
		"unread_count": count,
	})
}

// sendRequest is the POST /messages body: the same shape the WebSocket path accepts.
type sendRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
}

// HandleMessagesSend serves POST /messages, the degraded-mode send path. The
// message goes through the same router as socket traffic, so an online
// receiver still gets a realtime push even when the sender is polling.
func HandleMessagesSend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var body sendRequest
		if customErr := req.BindJSON(r, &body); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if body.ReceiverID <= 0 || body.Message == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		msg, err := deps.Router.SendFromUser(r.Context(), identity.UserID, body.ReceiverID, body.Message)
		if err != nil {
			logx.Error(err, "Failed to send message via HTTP fallback", "sender_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"message": msg,
		})
	}
}
