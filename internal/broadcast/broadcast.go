// Package broadcast fans one operator-authored alert out to every active
// recipient: bounded worker pool, shared rate limiter, bounded retries with
// exponential backoff, and a single collector goroutine that owns the
// aggregate report.
package broadcast

import (
	"errors"
	"fmt"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes input; empty => medium.
// Returns (value, true) if valid; otherwise (medium, false).
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	case "high":
		return PriorityHigh, true
	default:
		return PriorityMedium, false
	}
}

// ValidationError rejects bad operator input before any recipient is
// touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrStoreUnavailable: the recipient store could not be read. The whole
// broadcast fails with zero deliveries attempted; this is the only
// system-level failure mode.
var ErrStoreUnavailable = errors.New("recipient store unavailable")

// FormatAlert decorates the raw message with its priority marker. Pure
// formatting; masking and slots play no part here.
func FormatAlert(message string, p Priority) string {
	var prefix string
	switch p {
	case PriorityLow:
		prefix = "INFO"
	case PriorityHigh:
		prefix = "URGENT"
	default:
		prefix = "ALERT"
	}
	return prefix + ": " + message + "\n\n- Health Assistant"
}
