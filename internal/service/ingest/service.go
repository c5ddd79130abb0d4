// Package ingest durably enqueues inbound messages so the webhook can be
// acked before the router pipeline runs. A turn row plus an outbox event
// are written in one transaction; Debezium ships the event to Kafka.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/repository"
	"github.com/arogyabot/health-gateway/internal/util"
)

const InboundTopic = "inbound.messages"

type Service struct {
	db     *sqlx.DB
	users  repository.UsersRepository
	turns  repository.TurnsRepository
	outbox repository.OutboxRepository
	topic  string
}

func New(db *sqlx.DB, users repository.UsersRepository, turns repository.TurnsRepository, outbox repository.OutboxRepository, topic string) *Service {
	if topic == "" {
		topic = InboundTopic
	}
	return &Service{db: db, users: users, turns: turns, outbox: outbox, topic: topic}
}

// Enqueue registers (or touches) the sender, then persists the turn and
// its outbox event atomically. Returns the generated turn ID.
func (s *Service) Enqueue(ctx context.Context, msg model.InboundMessage) (string, error) {
	if _, err := s.users.RegisterOrTouch(ctx, msg.Sender, msg.Channel); err != nil {
		return "", fmt.Errorf("register user: %w", err)
	}

	turnID := util.NewID()
	env := model.Envelope{ID: turnID, Message: msg}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	turn := model.ConversationTurn{
		ID:        turnID,
		MessageID: msg.ID,
		Channel:   msg.Channel,
		Sender:    msg.Sender,
		Text:      msg.Text,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.turns.InsertQueued(ctx, tx, turn); err != nil {
		return "", fmt.Errorf("insert turn: %w", err)
	}
	// Debezium's outbox router uses aggregate_id as the Kafka record key.
	// Keying by sender (not by turn) keeps all of one sender's turns on one
	// partition, which is what preserves per-sender receipt order.
	if err := s.outbox.Insert(ctx, tx, "turn", senderKey(msg), s.topic, payload); err != nil {
		return "", fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return turnID, nil
}

// senderKey is the outbox aggregate id and therefore the Kafka record key.
func senderKey(msg model.InboundMessage) string {
	return msg.Channel.String() + "|" + msg.Sender
}
