package repository

import (
	"context"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHTurnsRepository lists conversation turns from ClickHouse (final view).
type CHTurnsRepository interface {
	List(ctx context.Context, ch model.Channel, sender string, limit, offset int) ([]model.ConversationTurn, error)
}

type chTurnsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHTurnsRepository(ch *sqlx.DB) CHTurnsRepository {
	return &chTurnsRepository{ch: ch}
}

func (r *chTurnsRepository) List(ctx context.Context, ch model.Channel, sender string, limit, offset int) ([]model.ConversationTurn, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, message_id, channel, sender, text, intent, reply, status, created_at, updated_at
		FROM hgw.conversation_turns_latest
		WHERE 1 = 1
	`
	var args []any

	if ch != "" {
		q += " AND channel = ?"
		args = append(args, ch.String())
	}
	if sender != "" {
		q += " AND sender = ?"
		args = append(args, sender)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.ConversationTurn
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
