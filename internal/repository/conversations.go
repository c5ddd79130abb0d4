package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// ConversationsRepository persists per-sender dialogue state keyed by
// (channel, sender). Slots are stored as a JSON column.
type ConversationsRepository interface {
	// Get returns nil when no conversation exists yet.
	Get(ctx context.Context, ch model.Channel, sender string) (*model.Conversation, error)
	Upsert(ctx context.Context, conv model.Conversation) error
}

type ConversationsRepositoryImpl struct {
	db *sqlx.DB
}

var _ ConversationsRepository = (*ConversationsRepositoryImpl)(nil)

func NewConversationsRepository(db *sqlx.DB) *ConversationsRepositoryImpl {
	return &ConversationsRepositoryImpl{db: db}
}

type conversationRow struct {
	Channel    string       `db:"channel"`
	Sender     string       `db:"sender"`
	LastIntent string       `db:"last_intent"`
	Slots      []byte       `db:"slots"`
	UpdatedAt  sql.NullTime `db:"updated_at"`
}

func (r *ConversationsRepositoryImpl) Get(ctx context.Context, ch model.Channel, sender string) (*model.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT channel, sender, last_intent, slots, updated_at
		  FROM conversations
		 WHERE channel = ? AND sender = ? LIMIT 1
	`, ch.String(), sender)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		Channel:      model.Channel(row.Channel),
		Sender:       row.Sender,
		LastIntent:   row.LastIntent,
		ContextSlots: map[string]string{},
	}
	if row.UpdatedAt.Valid {
		conv.UpdatedAt = row.UpdatedAt.Time
	}
	if len(row.Slots) > 0 {
		_ = json.Unmarshal(row.Slots, &conv.ContextSlots)
	}
	return conv, nil
}

func (r *ConversationsRepositoryImpl) Upsert(ctx context.Context, conv model.Conversation) error {
	slots, err := json.Marshal(conv.ContextSlots)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO conversations (channel, sender, last_intent, slots, updated_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
		    last_intent = VALUES(last_intent),
		    slots       = VALUES(slots),
		    updated_at  = NOW()
	`
	_, err = r.db.ExecContext(ctx, q, conv.Channel.String(), conv.Sender, conv.LastIntent, slots)
	return err
}
