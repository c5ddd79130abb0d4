package worker

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"time"

	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/kafka"
	"github.com/arogyabot/health-gateway/internal/logger"
	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/router"
)

// RouterKafka:
// - fetches inbound-message envelopes from Kafka,
// - shards them by sender so messages from the same sender are processed
//   in receipt order (the per-sender serialization point),
// - drives each through the router pipeline.
type RouterKafka struct {
	Consumer *kafka.Consumer
	Router   *router.Router

	// Processors is the number of shard goroutines. Different senders run
	// concurrently; one sender always lands on the same shard.
	Processors int
}

func NewRouterKafka(consumer *kafka.Consumer, r *router.Router) *RouterKafka {
	return &RouterKafka{
		Consumer:   consumer,
		Router:     r,
		Processors: 16,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *RouterKafka) Run(ctx context.Context) error {
	if w.Processors <= 0 {
		w.Processors = 16
	}

	shards := make([]chan kafka.Message, w.Processors)
	for i := range shards {
		shards[i] = make(chan kafka.Message, 32)
	}

	for i := range shards {
		go w.runShard(ctx, shards[i])
	}

	// Fetch loop → route to shard by sender hash.
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.Warn("kafka fetch failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}

		idx := w.shardOf(m)
		select {
		case shards[idx] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// shardOf hashes the envelope's channel|sender so one sender always lands
// on the same shard, regardless of how the record was keyed upstream. The
// record key is only a last resort for payloads that fail to parse; those
// are committed as poison downstream anyway.
func (w *RouterKafka) shardOf(m kafka.Message) int {
	key := m.Key
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err == nil && env.Message.Sender != "" {
		key = []byte(env.Message.Channel.String() + "|" + env.Message.Sender)
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int(h.Sum32() % uint32(w.Processors))
}

func (w *RouterKafka) runShard(ctx context.Context, in <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m)
		}
	}
}

func (w *RouterKafka) processOne(ctx context.Context, m kafka.Message) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" {
		// poison message: commit and skip
		_ = w.Consumer.Commit(ctx, m)
		logger.Log.Warn("bad envelope, skipped", zap.Error(err))
		return
	}

	if err := w.Router.ProcessTurn(ctx, env.ID, env.Message); err != nil {
		// Infrastructure failure (dedup store, conversation store). Do not
		// commit: the message is redelivered and the deduplicator keeps
		// the turn idempotent.
		logger.Log.Error("turn processing failed", zap.String("turn", env.ID), zap.Error(err))
		return
	}

	if err := w.Consumer.Commit(ctx, m); err != nil {
		logger.Log.Warn("kafka commit failed", zap.Error(err))
	}
}
