// Package ratelimit is the shared send-rate policy for both the reply path
// and the broadcast path. One token bucket exists per channel key, so a
// large broadcast and live conversational replies compete for the same
// budget — and interactive traffic wins: replies block on the bucket for
// as long as their turn allows, while bulk senders give up a contended
// reservation after a bounded wait and back off.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBulkLimited is returned when a bulk acquisition timed out waiting for
// a token. It is a retryable condition.
var ErrBulkLimited = errors.New("rate limited")

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	rps         rate.Limit
	burst       int
	bulkTimeout time.Duration
}

func New(rps, burst int, bulkTimeout time.Duration) *Limiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = rps
	}
	if bulkTimeout <= 0 {
		bulkTimeout = 2 * time.Second
	}
	return &Limiter{
		buckets:     make(map[string]*rate.Limiter),
		rps:         rate.Limit(rps),
		burst:       burst,
		bulkTimeout: bulkTimeout,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	return b
}

// AcquireInteractive blocks until a token is available or ctx expires.
// Used by the reply path.
func (l *Limiter) AcquireInteractive(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

// AcquireBulk takes a token if one becomes available within the configured
// bulk timeout; otherwise it cancels the reservation and returns
// ErrBulkLimited so the caller can back off and retry. This is what keeps
// broadcast workers from starving interactive sends.
func (l *Limiter) AcquireBulk(ctx context.Context, key string) error {
	b := l.bucket(key)

	r := b.Reserve()
	if !r.OK() {
		return ErrBulkLimited
	}
	delay := r.Delay()
	if delay > l.bulkTimeout {
		r.Cancel()
		return ErrBulkLimited
	}
	if delay == 0 {
		return nil
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
