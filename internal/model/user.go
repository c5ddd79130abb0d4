package model

import "time"

// User is a registered recipient. Rows are created automatically on the
// first inbound message from a phone number.
type User struct {
	ID           int64     `db:"id"`
	Phone        string    `db:"phone"` // E.164
	Channel      Channel   `db:"channel"`
	Active       bool      `db:"active"` // inactive users are excluded from broadcasts
	MessageCount int64     `db:"message_count"`
	LastSeenAt   time.Time `db:"last_seen_at"`
	CreatedAt    time.Time `db:"created_at"`
}
