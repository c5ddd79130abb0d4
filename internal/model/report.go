package model

import "github.com/arogyabot/health-gateway/internal/util"

type DeliveryStatus string

const (
	DeliveryDelivered   DeliveryStatus = "delivered"
	DeliveryFailed      DeliveryStatus = "failed"
	DeliveryRateLimited DeliveryStatus = "rate_limited"
)

// DeliveryOutcome is the final per-recipient result of one broadcast
// delivery. The recipient is masked at construction, so no consumer of an
// outcome ever sees a full phone number.
type DeliveryOutcome struct {
	Recipient string         `json:"recipient"` // masked
	Status    DeliveryStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	Attempts  int            `json:"attempts"`
}

// NewDeliveryOutcome builds an outcome, masking the recipient.
func NewDeliveryOutcome(recipient string, status DeliveryStatus, attempts int, errMsg string) DeliveryOutcome {
	return DeliveryOutcome{
		Recipient: util.MaskPhone(recipient),
		Status:    status,
		Error:     errMsg,
		Attempts:  attempts,
	}
}

// BroadcastReport aggregates every recipient's final state for one
// broadcast. Invariant: Successful + Failed == UsersTargeted. The engine
// merges outcomes through a single collector, so the report is never
// mutated concurrently and is immutable once returned.
type BroadcastReport struct {
	BroadcastID   string   `json:"broadcast_id"`
	UsersTargeted int      `json:"users_targeted"`
	Successful    int      `json:"successful"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors"` // "<masked recipient>: <reason>"
}

// Merge folds one outcome into the report counters. Rate-limited exhaustion
// counts as failed so the counting invariant holds.
func (r *BroadcastReport) Merge(o DeliveryOutcome) {
	if o.Status == DeliveryDelivered {
		r.Successful++
		return
	}
	r.Failed++
	if o.Error != "" {
		r.Errors = append(r.Errors, o.Recipient+": "+o.Error)
	}
}
