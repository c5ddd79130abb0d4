package model

import "time"

// InboundMessage is the canonical form of one webhook message.
// Constructed once by a channel adapter, consumed once by the router,
// never mutated.
type InboundMessage struct {
	ID         string    `json:"id"` // channel-unique message id
	Channel    Channel   `json:"channel"`
	Sender     string    `json:"sender"` // E.164 phone
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// OutboundMessage is what a channel adapter delivers. Produced by the
// reply path (CorrelationID = inbound message id) or by a broadcast
// (CorrelationID = broadcast id).
type OutboundMessage struct {
	Recipient     string  `json:"recipient"`
	Body          string  `json:"body"`
	Channel       Channel `json:"channel"`
	CorrelationID string  `json:"correlation_id"`
}
