package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"estatechat/internal/app/db"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore using the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert persists a new unread message and returns it with the assigned id and
// server timestamp.
func (s *PostgresStore) Insert(ctx context.Context, senderID, receiverID int64, body string) (ChatMessage, error) {
	const query = `
		INSERT INTO chat_messages (sender_id, receiver_id, body, is_read)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at`

	msg := ChatMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		IsRead:     false,
	}

	err := s.pool.QueryRow(ctx, query, senderID, receiverID, body).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if db.IsCheckViolation(err) {
			return ChatMessage{}, fmt.Errorf("message body rejected by constraint: %w", err)
		}
		return ChatMessage{}, fmt.Errorf("failed to insert chat message: %w", err)
	}

	return msg, nil
}

// Conversation returns up to limit messages between userID and partnerID in
// chronological order. The WHERE clause constrains both participants, which
// enforces the visibility invariant at the query level.
func (s *PostgresStore) Conversation(ctx context.Context, userID, partnerID int64, limit int) ([]ChatMessage, error) {
	const query = `
		SELECT id, sender_id, receiver_id, body, is_read, created_at
		FROM (
			SELECT id, sender_id, receiver_id, body, is_read, created_at
			FROM chat_messages
			WHERE (sender_id = $1 AND receiver_id = $2)
			   OR (sender_id = $2 AND receiver_id = $1)
			ORDER BY id DESC
			LIMIT $3
		) recent
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, userID, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]ChatMessage, 0, limit)
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}

	return messages, nil
}

// UnreadCount returns the number of unread messages addressed to userID.
func (s *PostgresStore) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM chat_messages
		WHERE receiver_id = $1 AND is_read = FALSE`

	var count int64
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}

// MarkConversationRead flags every message from partnerID to userID as read.
func (s *PostgresStore) MarkConversationRead(ctx context.Context, userID, partnerID int64) error {
	const query = `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE receiver_id = $1 AND sender_id = $2 AND is_read = FALSE`

	if _, err := s.pool.Exec(ctx, query, userID, partnerID); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}

	return nil
}
