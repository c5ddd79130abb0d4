package model

import "time"

// Conversation holds per-sender dialogue state, keyed by (channel, sender).
// ContextSlots carry values extracted in earlier turns (age, state, ...) so
// follow-up questions can be answered without repeating everything.
type Conversation struct {
	Channel      Channel           `db:"channel"`
	Sender       string            `db:"sender"`
	LastIntent   string            `db:"last_intent"`
	ContextSlots map[string]string `db:"-"` // stored as JSON in slots column
	UpdatedAt    time.Time         `db:"updated_at"`
}

// CloneSlots returns a copy of the context slots so a turn can work on a
// scratch map without touching the persisted state.
func (c *Conversation) CloneSlots() map[string]string {
	out := make(map[string]string, len(c.ContextSlots))
	for k, v := range c.ContextSlots {
		out[k] = v
	}
	return out
}

// ConversationTurn is one inbound/outbound pair, persisted for audit and
// reporting.
type ConversationTurn struct {
	ID        string    `db:"id"` // turn ULID
	MessageID string    `db:"message_id"`
	Channel   Channel   `db:"channel"`
	Sender    string    `db:"sender"`
	Text      string    `db:"text"`
	Intent    string    `db:"intent"`
	Reply     string    `db:"reply"`
	Status    string    `db:"status"` // queued | replied | failed
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const (
	TurnStatusQueued  = "queued"
	TurnStatusReplied = "replied"
	TurnStatusFailed  = "failed"
)
