// Package router drives one inbound message through
// dedup → classification → domain dispatch → conversation logging → reply.
// Every non-duplicate message gets exactly one reply, falling back to a
// canned message when the classifier or a domain service misbehaves.
package router

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/dedup"
	"github.com/arogyabot/health-gateway/internal/dispatch"
	"github.com/arogyabot/health-gateway/internal/logger"
	"github.com/arogyabot/health-gateway/internal/metrics"
	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/nlp"
	"github.com/arogyabot/health-gateway/internal/repository"
	"github.com/arogyabot/health-gateway/internal/util"
)

// FallbackReply is sent when classification or dispatch fails; the user
// must always receive some reply.
const FallbackReply = "Sorry, I'm having trouble right now. Please try again later."

// lastIntentSlot carries the previous turn's intent into classification so
// a bare slot answer ("5 years") can continue the topic. Never persisted.
const lastIntentSlot = "_last_intent"

type TokenSource interface {
	AcquireInteractive(ctx context.Context, key string) error
}

type Router struct {
	dedup      dedup.Deduplicator
	classifier nlp.Classifier
	dispatcher *dispatch.Dispatcher
	convs      repository.ConversationsRepository
	turns      repository.TurnsRepository
	adapters   map[model.Channel]channel.Adapter
	limiter    TokenSource
	nlpTimeout time.Duration
}

func New(
	dd dedup.Deduplicator,
	classifier nlp.Classifier,
	dispatcher *dispatch.Dispatcher,
	convs repository.ConversationsRepository,
	turns repository.TurnsRepository,
	limiter TokenSource,
	nlpTimeout time.Duration,
	adapters ...channel.Adapter,
) *Router {
	if nlpTimeout <= 0 {
		nlpTimeout = 2 * time.Second
	}
	m := make(map[model.Channel]channel.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Channel()] = a
	}
	return &Router{
		dedup:      dd,
		classifier: classifier,
		dispatcher: dispatcher,
		convs:      convs,
		turns:      turns,
		adapters:   m,
		limiter:    limiter,
		nlpTimeout: nlpTimeout,
	}
}

// ProcessTurn handles one inbound message end to end. Duplicates are
// acknowledged without producing a new outbound message. The returned
// error is infrastructural only; user-facing failures are absorbed into
// fallback replies.
func (r *Router) ProcessTurn(ctx context.Context, turnID string, msg model.InboundMessage) error {
	log := logger.Log.With(
		zap.String("turn", turnID),
		zap.String("channel", msg.Channel.String()),
		zap.String("sender", util.MaskPhone(msg.Sender)),
	)

	seen, err := r.dedup.CheckAndMark(ctx, msg.ID)
	if err != nil {
		return err
	}
	if seen {
		log.Debug("duplicate message, acknowledged without reply", zap.String("message_id", msg.ID))
		metrics.TurnsTotal.WithLabelValues("duplicate", msg.Channel.String()).Inc()
		return nil
	}
	metrics.TurnsTotal.WithLabelValues("received", msg.Channel.String()).Inc()

	conv, err := r.convs.Get(ctx, msg.Channel, msg.Sender)
	if err != nil {
		// The id is already claimed in dedup. Release it so the
		// uncommitted message is processed, not swallowed, when Kafka
		// redelivers it.
		if uerr := r.dedup.Unmark(ctx, msg.ID); uerr != nil {
			log.Warn("dedup unmark failed", zap.Error(uerr))
		}
		return err
	}
	if conv == nil {
		conv = &model.Conversation{
			Channel:      msg.Channel,
			Sender:       msg.Sender,
			ContextSlots: map[string]string{},
		}
	}

	intent, reply, fellBack := r.resolve(ctx, msg, conv)

	stage := "replied"
	if fellBack {
		stage = "fallback"
	}

	if err := r.sendReply(ctx, msg, reply); err != nil {
		log.Warn("reply delivery failed", zap.Error(err))
		if r.turns != nil {
			_ = r.turns.MarkFailed(ctx, turnID)
		}
		metrics.TurnsTotal.WithLabelValues("failed", msg.Channel.String()).Inc()
		return nil
	}

	if r.turns != nil {
		if err := r.turns.MarkReplied(ctx, turnID, intent, reply); err != nil {
			log.Warn("turn log update failed", zap.Error(err))
		}
	}
	metrics.TurnsTotal.WithLabelValues(stage, msg.Channel.String()).Inc()
	return nil
}

// resolve classifies and dispatches, returning the reply text. Context
// slots are persisted only after a successful dispatch, so a failed or
// clarifying turn leaves the conversation state exactly as it was.
func (r *Router) resolve(ctx context.Context, msg model.InboundMessage, conv *model.Conversation) (intent, reply string, fellBack bool) {
	scratch := conv.CloneSlots()
	if conv.LastIntent != "" {
		scratch[lastIntentSlot] = conv.LastIntent
	}

	cctx, cancel := context.WithTimeout(ctx, r.nlpTimeout)
	res, err := r.classifier.Classify(cctx, msg.Text, scratch)
	cancel()
	if err != nil {
		return "", FallbackReply, true
	}

	merged := conv.CloneSlots()
	for k, v := range res.Slots {
		if k == lastIntentSlot {
			continue
		}
		merged[k] = v
	}

	payload, err := r.dispatcher.Dispatch(ctx, res.Intent, merged)
	if err != nil {
		var missing *dispatch.MissingSlotError
		if errors.As(err, &missing) {
			// Clarifying question: a controlled outcome, not a failed
			// turn. Persist the intent and the slots gathered so far so
			// the user's answer completes the flow.
			conv.LastIntent = res.Intent
			conv.ContextSlots = merged
			if err := r.convs.Upsert(ctx, *conv); err != nil {
				logger.Log.Warn("conversation upsert failed", zap.Error(err))
			}
			return res.Intent, missing.Prompt, false
		}
		return res.Intent, FallbackReply, true
	}

	// An unrecognized intent gets the generic reply but leaves the
	// conversation state untouched.
	if res.Intent == nlp.IntentUnknown {
		return res.Intent, payload.Text, true
	}

	conv.LastIntent = res.Intent
	conv.ContextSlots = merged
	if err := r.convs.Upsert(ctx, *conv); err != nil {
		logger.Log.Warn("conversation upsert failed", zap.Error(err))
	}
	return res.Intent, payload.Text, false
}

// replySendAttempts bounds the delivery tries for one reply: the first
// send plus one retry when the failure is transient.
const replySendAttempts = 2

func (r *Router) sendReply(ctx context.Context, msg model.InboundMessage, reply string) error {
	adapter, ok := r.adapters[msg.Channel]
	if !ok {
		return errors.New("no adapter for channel " + msg.Channel.String())
	}
	out := model.OutboundMessage{
		Recipient:     msg.Sender,
		Body:          reply,
		Channel:       msg.Channel,
		CorrelationID: msg.ID,
	}

	var lastErr error
	for attempt := 0; attempt < replySendAttempts; attempt++ {
		if err := r.limiter.AcquireInteractive(ctx, msg.Channel.String()); err != nil {
			return err
		}
		err := adapter.Send(ctx, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if channel.IsPermanent(err) {
			return err
		}
	}
	return lastErr
}
