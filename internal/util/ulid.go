package util

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string
func NewID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.Reader, 0)

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewBroadcastID generates the operator-visible id for one alert broadcast.
func NewBroadcastID() string {
	return "alert_" + strings.ToLower(NewID())
}
