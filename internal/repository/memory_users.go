package repository

import (
	"context"
	"sync"
	"time"

	"github.com/arogyabot/health-gateway/internal/model"
)

// MemoryUsersRepository is the in-memory double for tests and single-node
// dev runs without MySQL.
type MemoryUsersRepository struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	byKey  map[string]int64 // phone -> id
	nextID int64
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{
		byID:  make(map[int64]*model.User),
		byKey: make(map[string]int64),
	}
}

func (r *MemoryUsersRepository) RegisterOrTouch(_ context.Context, phone string, ch model.Channel) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if id, ok := r.byKey[phone]; ok {
		u := r.byID[id]
		u.MessageCount++
		u.LastSeenAt = now
		return *u, nil
	}
	r.nextID++
	u := &model.User{
		ID:           r.nextID,
		Phone:        phone,
		Channel:      ch,
		Active:       true,
		MessageCount: 1,
		LastSeenAt:   now,
		CreatedAt:    now,
	}
	r.byID[u.ID] = u
	r.byKey[phone] = u.ID
	return *u, nil
}

func (r *MemoryUsersRepository) ListActiveRecipients(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.User, 0, len(r.byID))
	for id := int64(1); id <= r.nextID; id++ {
		if u, ok := r.byID[id]; ok && u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *MemoryUsersRepository) Deactivate(_ context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[phone]
	if !ok {
		return false, nil
	}
	r.byID[id].Active = false
	return true, nil
}

func (r *MemoryUsersRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *MemoryUsersRepository) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.byID {
		if u.Active {
			n++
		}
	}
	return n, nil
}
