// Package kafka wraps the segmentio reader for the inbound-message stream.
// Events are produced by Debezium from the outbox table; the aggregate_id
// column (channel|sender) becomes the record key, so one sender's turns
// stay on one partition. The worker re-derives the same key from the
// envelope when sharding, so per-sender order holds even for records keyed
// differently by an older producer.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	Topic   string
	GroupID string

	MinBytes int // default 1KB
	MaxBytes int // default 10MB

	// CommitInterval > 0 batches offset commits. The router tolerates
	// redelivery (dedup makes turns idempotent), so async commits are safe
	// here and cheaper than per-message sync commits.
	CommitInterval time.Duration // default 1s
	MaxWait        time.Duration // default 50ms
}

// Message aliases the underlying reader message so callers shard on Key
// without importing segmentio directly.
type Message = kafka.Message

type Consumer struct {
	r *kafka.Reader
}

func NewConsumerFromConfig(c Config) *Consumer {
	if c.MinBytes <= 0 {
		c.MinBytes = 1 << 10
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	if c.CommitInterval <= 0 {
		c.CommitInterval = time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 50 * time.Millisecond
	}

	return &Consumer{r: kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       c.MinBytes,
		MaxBytes:       c.MaxBytes,
		CommitInterval: c.CommitInterval,
		MaxWait:        c.MaxWait,
		StartOffset:    kafka.FirstOffset,
	})}
}

// Fetch blocks for the next message without committing its offset.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

// Commit acknowledges m. Skipping the commit after a processing failure is
// what turns an infrastructure error into a redelivery.
func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

func (c *Consumer) Close() error { return c.r.Close() }
