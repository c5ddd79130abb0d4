// Package dedup decides whether an inbound webhook message has already
// been processed. Providers retry webhooks on slow acks, so the check and
// the mark must be one atomic step: two concurrent deliveries of the same
// message id must never both see "not seen".
package dedup

import "context"

// Deduplicator records message ids for a bounded TTL window. A duplicate
// arriving after the TTL is treated as new; that is an accepted tradeoff
// to keep the store bounded, not a bug.
type Deduplicator interface {
	// CheckAndMark atomically marks messageID as seen and reports whether
	// it had been seen before.
	CheckAndMark(ctx context.Context, messageID string) (seen bool, err error)
	// Unmark releases a claim taken by CheckAndMark. Callers that marked a
	// message but then failed before processing it must unmark, otherwise
	// the redelivered message is swallowed as a duplicate.
	Unmark(ctx context.Context, messageID string) error
}
