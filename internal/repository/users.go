package repository

import (
	"context"
	"database/sql"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// UsersRepository persists registered recipients. Registration is
// automatic: the first inbound message from a phone number creates the row.
type UsersRepository interface {
	// RegisterOrTouch upserts the user for (phone, channel), bumping
	// message_count and last_seen_at, and returns the current row.
	RegisterOrTouch(ctx context.Context, phone string, ch model.Channel) (model.User, error)
	ListActiveRecipients(ctx context.Context) ([]model.User, error)
	Deactivate(ctx context.Context, phone string) (bool, error)
	CountAll(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type UsersRepositoryImpl struct {
	db *sqlx.DB
}

var _ UsersRepository = (*UsersRepositoryImpl)(nil)

func NewUsersRepository(db *sqlx.DB) *UsersRepositoryImpl {
	return &UsersRepositoryImpl{db: db}
}

func (r *UsersRepositoryImpl) RegisterOrTouch(ctx context.Context, phone string, ch model.Channel) (model.User, error) {
	const up = `
		INSERT INTO users (phone, channel, active, message_count, last_seen_at, created_at)
		VALUES (?, ?, 1, 1, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    message_count = message_count + 1,
		    last_seen_at  = NOW()
	`
	if _, err := r.db.ExecContext(ctx, up, phone, ch.String()); err != nil {
		return model.User{}, err
	}

	var u model.User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, phone, channel, active, message_count, last_seen_at, created_at
		  FROM users
		 WHERE phone = ? LIMIT 1
	`, phone)
	return u, err
}

func (r *UsersRepositoryImpl) ListActiveRecipients(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, phone, channel, active, message_count, last_seen_at, created_at
		  FROM users
		 WHERE active = 1
		 ORDER BY id
	`)
	return out, err
}

func (r *UsersRepositoryImpl) Deactivate(ctx context.Context, phone string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET active = 0 WHERE phone = ?`, phone)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *UsersRepositoryImpl) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (r *UsersRepositoryImpl) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE active = 1`)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
