package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/logger"
	"github.com/arogyabot/health-gateway/internal/metrics"
	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/ratelimit"
	"github.com/arogyabot/health-gateway/internal/util"
)

const MaxMessageLen = 1000 // runes

// RecipientStore lists the users a broadcast targets. The snapshot is
// taken once at broadcast start; registrations that land mid-run are not
// included.
type RecipientStore interface {
	ListActiveRecipients(ctx context.Context) ([]model.User, error)
}

// TokenSource is the slice of the shared limiter the engine needs.
type TokenSource interface {
	AcquireBulk(ctx context.Context, key string) error
}

type Config struct {
	Workers     int
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Deadline    time.Duration // overall per-broadcast deadline; 0 = caller's ctx only
}

func (c *Config) normalize() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 200 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 5 * time.Second
	}
}

type Engine struct {
	store    RecipientStore
	adapters map[model.Channel]channel.Adapter
	limiter  TokenSource
	cfg      Config
}

func NewEngine(store RecipientStore, limiter TokenSource, cfg Config, adapters ...channel.Adapter) *Engine {
	cfg.normalize()
	m := make(map[model.Channel]channel.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Channel()] = a
	}
	return &Engine{store: store, adapters: m, limiter: limiter, cfg: cfg}
}

// Broadcast validates the message, snapshots the recipient set, and
// delivers to every recipient with bounded concurrency. It blocks until
// every targeted recipient has a final outcome and returns the aggregate
// report. No single recipient's failure aborts the batch.
func (e *Engine) Broadcast(ctx context.Context, message string, priority Priority) (model.BroadcastReport, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		metrics.BroadcastsTotal.WithLabelValues("rejected").Inc()
		return model.BroadcastReport{}, &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLen {
		metrics.BroadcastsTotal.WithLabelValues("rejected").Inc()
		return model.BroadcastReport{}, &ValidationError{Field: "message", Reason: fmt.Sprintf("length %d exceeds %d", n, MaxMessageLen)}
	}

	broadcastID := util.NewBroadcastID()
	log := logger.Log.With(zap.String("broadcast_id", broadcastID), zap.String("priority", string(priority)))

	// Snapshot once. A store failure means zero deliveries were attempted
	// and the call fails as a whole.
	recipients, err := e.store.ListActiveRecipients(ctx)
	if err != nil {
		metrics.BroadcastsTotal.WithLabelValues("unavailable").Inc()
		return model.BroadcastReport{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	report := model.BroadcastReport{BroadcastID: broadcastID, UsersTargeted: len(recipients)}
	if len(recipients) == 0 {
		log.Info("broadcast with no recipients")
		metrics.BroadcastsTotal.WithLabelValues("completed").Inc()
		return report, nil
	}

	body := FormatAlert(message, priority)

	dctx := ctx
	if e.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	log.Info("broadcast started", zap.Int("recipients", len(recipients)), zap.Int("workers", e.cfg.Workers))
	start := time.Now()

	jobs := make(chan model.User)
	outcomes := make(chan model.DeliveryOutcome, e.cfg.Workers)

	// Collector: the only goroutine that touches the report.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for o := range outcomes {
			report.Merge(o)
		}
	}()

	var wg sync.WaitGroup
	workers := e.cfg.Workers
	if workers > len(recipients) {
		workers = len(recipients)
	}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for u := range jobs {
				o := e.deliverOne(dctx, u, body, broadcastID)
				metrics.DeliveriesTotal.WithLabelValues(string(o.Status), u.Channel.String()).Inc()
				outcomes <- o
			}
		}()
	}

	for _, u := range recipients {
		jobs <- u
	}
	close(jobs)
	wg.Wait()
	close(outcomes)
	<-done

	log.Info("broadcast finished",
		zap.Int("targeted", report.UsersTargeted),
		zap.Int("successful", report.Successful),
		zap.Int("failed", report.Failed),
		zap.Duration("dur", time.Since(start)),
	)
	metrics.BroadcastsTotal.WithLabelValues("completed").Inc()

	return report, nil
}

// deliverOne produces exactly one final outcome per recipient. Outcomes
// are masked at construction; a full phone number never leaves this
// function.
func (e *Engine) deliverOne(ctx context.Context, u model.User, body, broadcastID string) model.DeliveryOutcome {
	// Deadline already hit: record without attempting.
	if ctx.Err() != nil {
		return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, 0, "deadline exceeded")
	}

	// Pre-flight: recipients we cannot even address count as failed, not
	// silently dropped.
	if !util.ValidPhone(u.Phone) {
		return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, 0, "invalid phone number format")
	}
	adapter, ok := e.adapters[u.Channel]
	if !ok {
		return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, 0, "no adapter for channel "+u.Channel.String())
	}

	msg := model.OutboundMessage{
		Recipient:     u.Phone,
		Body:          body,
		Channel:       u.Channel,
		CorrelationID: broadcastID,
	}

	var lastErr error
	rateLimited := false
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := e.limiter.AcquireBulk(ctx, u.Channel.String()); err != nil {
			if ctx.Err() != nil {
				return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, attempt-1, "deadline exceeded")
			}
			// bucket contended: back off and retry, bounded like any
			// other transient failure
			lastErr = err
			rateLimited = true
			if !e.backoff(ctx, attempt) {
				return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, attempt, "deadline exceeded")
			}
			continue
		}

		// An in-flight send is allowed to finish past the broadcast
		// deadline; the adapter's own timeout still bounds it.
		err := adapter.Send(context.WithoutCancel(ctx), msg)
		if err == nil {
			return model.NewDeliveryOutcome(u.Phone, model.DeliveryDelivered, attempt, "")
		}
		lastErr = err
		rateLimited = false
		if channel.IsPermanent(err) {
			return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, attempt, err.Error())
		}
		if attempt < e.cfg.MaxAttempts {
			if !e.backoff(ctx, attempt) {
				return model.NewDeliveryOutcome(u.Phone, model.DeliveryFailed, attempt, "deadline exceeded")
			}
		}
	}

	status := model.DeliveryFailed
	if rateLimited {
		status = model.DeliveryRateLimited
	}
	reason := "delivery failed"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return model.NewDeliveryOutcome(u.Phone, status, e.cfg.MaxAttempts, reason)
}

// backoff sleeps for the exponential delay of the given attempt. Returns
// false if the deadline expired while waiting.
func (e *Engine) backoff(ctx context.Context, attempt int) bool {
	d := e.cfg.BackoffBase << (attempt - 1)
	if d > e.cfg.BackoffCap {
		d = e.cfg.BackoffCap
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ TokenSource = (*ratelimit.Limiter)(nil)
