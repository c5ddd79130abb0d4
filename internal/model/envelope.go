package model

// Envelope is the payload published to Kafka (via Debezium outbox SMT).
type Envelope struct {
	ID      string         `json:"id"` // turn ULID
	Message InboundMessage `json:"message"`
}
