package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/user"
)

// MessageRepo is the append-only message table.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append inserts msg and returns it with the sequence number assigned by the table.
// A sender without a profile row returns user.ErrUnknownSender.
func (r *MessageRepo) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	const query = `
		INSERT INTO messages (id, sender_id, sender_name, sender_avatar, text, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err := r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.SenderName,
		msg.SenderAvatar,
		msg.Text,
		msg.SentAt,
	).Scan(&msg.Seq)
	if IsForeignKeyViolation(err) {
		return chat.Message{}, user.ErrUnknownSender
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// List returns every message ordered by send time, then by insertion order.
func (r *MessageRepo) List(ctx context.Context) ([]chat.Message, error) {
	const query = `
		SELECT id, seq, sender_id, sender_name, sender_avatar, text, sent_at
		FROM messages
		ORDER BY sent_at ASC, seq ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Message, error) {
		var msg chat.Message
		err := row.Scan(
			&msg.ID,
			&msg.Seq,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderAvatar,
			&msg.Text,
			&msg.SentAt,
		)
		return msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return messages, nil
}
