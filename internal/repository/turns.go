package repository

import (
	"context"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// TurnsRepository persists conversation turns in MySQL (the authoritative
// store; ClickHouse carries the reporting copy).
type TurnsRepository interface {
	InsertQueued(ctx context.Context, tx *sqlx.Tx, t model.ConversationTurn) error
	MarkReplied(ctx context.Context, id, intent, reply string) error
	MarkFailed(ctx context.Context, id string) error
}

type TurnsRepositoryImpl struct {
	db *sqlx.DB
}

var _ TurnsRepository = (*TurnsRepositoryImpl)(nil)

func NewTurnsRepository(db *sqlx.DB) *TurnsRepositoryImpl {
	return &TurnsRepositoryImpl{db: db}
}

func (r *TurnsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// InsertQueued writes the inbound half of a turn with status=queued.
func (r *TurnsRepositoryImpl) InsertQueued(ctx context.Context, tx *sqlx.Tx, t model.ConversationTurn) error {
	const q = `
		INSERT INTO conversation_turns
		    (id, message_id, channel, sender, text, intent, reply, status, created_at, updated_at)
		VALUES
		    (?,  ?,          ?,       ?,      ?,    '',     '',    'queued', NOW(),   NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			t.ID, t.MessageID, t.Channel.String(), t.Sender, t.Text,
		)
		return err
	})
}

// MarkReplied records the outbound half once the reply has been delivered.
func (r *TurnsRepositoryImpl) MarkReplied(ctx context.Context, id, intent, reply string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_turns
		   SET intent = ?, reply = ?, status = 'replied', updated_at = NOW()
		 WHERE id = ?
	`, intent, reply, id)
	return err
}

func (r *TurnsRepositoryImpl) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_turns
		   SET status = 'failed', updated_at = NOW()
		 WHERE id = ?
	`, id)
	return err
}
