package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/dedup"
	"github.com/arogyabot/health-gateway/internal/dispatch"
	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/nlp"
)

type memConvs struct {
	mu      sync.Mutex
	byKey   map[string]model.Conversation
	upserts int
	getErr  error // returned by the next Get, then cleared
}

func newMemConvs() *memConvs { return &memConvs{byKey: map[string]model.Conversation{}} }

func (m *memConvs) key(ch model.Channel, sender string) string { return ch.String() + "|" + sender }

func (m *memConvs) Get(_ context.Context, ch model.Channel, sender string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		err := m.getErr
		m.getErr = nil
		return nil, err
	}
	c, ok := m.byKey[m.key(ch, sender)]
	if !ok {
		return nil, nil
	}
	cp := c
	cp.ContextSlots = c.CloneSlots()
	return &cp, nil
}

func (m *memConvs) Upsert(_ context.Context, conv model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.byKey[m.key(conv.Channel, conv.Sender)] = conv
	return nil
}

type memTurns struct {
	mu      sync.Mutex
	replied map[string]string // turn id -> intent
	failed  map[string]bool
}

func newMemTurns() *memTurns {
	return &memTurns{replied: map[string]string{}, failed: map[string]bool{}}
}

func (m *memTurns) InsertQueued(context.Context, *sqlx.Tx, model.ConversationTurn) error { return nil }

func (m *memTurns) MarkReplied(_ context.Context, id, intent, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replied[id] = intent
	return nil
}

func (m *memTurns) MarkFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = true
	return nil
}

type recAdapter struct {
	mu        sync.Mutex
	out       []model.OutboundMessage
	attempts  int
	fail      error // returned on every send
	failTimes int   // fail the first N sends with failWith
	failWith  error
}

func (a *recAdapter) Channel() model.Channel                              { return model.ChannelWhatsApp }
func (a *recAdapter) ParseWebhook([]byte) ([]model.InboundMessage, error) { return nil, nil }

func (a *recAdapter) Send(_ context.Context, msg model.OutboundMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts++
	if a.fail != nil {
		return a.fail
	}
	if a.failTimes > 0 {
		a.failTimes--
		return a.failWith
	}
	a.out = append(a.out, msg)
	return nil
}

func (a *recAdapter) sendAttempts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

func (a *recAdapter) sentBodies() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.out))
	for i, m := range a.out {
		out[i] = m.Body
	}
	return out
}

type openLimiter struct{}

func (openLimiter) AcquireInteractive(context.Context, string) error { return nil }

type errClassifier struct{}

func (errClassifier) Classify(context.Context, string, map[string]string) (nlp.Result, error) {
	return nlp.Result{}, errors.New("classifier down")
}

func newTestRouter(classifier nlp.Classifier, convs *memConvs, turns *memTurns, adapter channel.Adapter) *Router {
	dispatcher := dispatch.NewDispatcher(
		dispatch.NewFallbackHandler(),
		dispatch.NewGreetingHandler(),
		dispatch.NewHelpHandler(),
		dispatch.NewVaccinationHandler(),
		dispatch.NewOutbreakHandler(),
	)
	return New(
		dedup.NewMemoryDeduplicator(time.Hour),
		classifier, dispatcher, convs, turns,
		openLimiter{}, time.Second, adapter,
	)
}

func inbound(id, text string) model.InboundMessage {
	return model.InboundMessage{
		ID:         id,
		Channel:    model.ChannelWhatsApp,
		Sender:     "+919876543210",
		Text:       text,
		ReceivedAt: time.Now(),
	}
}

func TestProcessTurnDuplicateNoReply(t *testing.T) {
	adapter := &recAdapter{}
	r := newTestRouter(nlp.NewKeywordClassifier(), newMemConvs(), newMemTurns(), adapter)
	ctx := context.Background()

	if err := r.ProcessTurn(ctx, "t1", inbound("wamid.dup", "hello")); err != nil {
		t.Fatal(err)
	}
	if err := r.ProcessTurn(ctx, "t2", inbound("wamid.dup", "hello")); err != nil {
		t.Fatal(err)
	}
	if n := len(adapter.sentBodies()); n != 1 {
		t.Fatalf("duplicate produced %d outbound messages, want 1", n)
	}
}

func TestProcessTurnUnknownIntentLeavesContext(t *testing.T) {
	convs := newMemConvs()
	seeded := model.Conversation{
		Channel:      model.ChannelWhatsApp,
		Sender:       "+919876543210",
		LastIntent:   nlp.IntentGreeting,
		ContextSlots: map[string]string{"state": "kerala"},
	}
	_ = convs.Upsert(context.Background(), seeded)
	convs.upserts = 0

	adapter := &recAdapter{}
	r := newTestRouter(nlp.NewKeywordClassifier(), convs, newMemTurns(), adapter)

	if err := r.ProcessTurn(context.Background(), "t1", inbound("wamid.1", "qwerty zxcvb")); err != nil {
		t.Fatal(err)
	}
	if n := len(adapter.sentBodies()); n != 1 {
		t.Fatalf("got %d replies, want 1", n)
	}
	if convs.upserts != 0 {
		t.Fatal("unrecognized turn must not touch conversation state")
	}
	got, _ := convs.Get(context.Background(), model.ChannelWhatsApp, "+919876543210")
	if got.LastIntent != nlp.IntentGreeting || got.ContextSlots["state"] != "kerala" {
		t.Fatalf("conversation state changed: %+v", got)
	}
}

func TestProcessTurnSlotFillingFlow(t *testing.T) {
	convs := newMemConvs()
	turns := newMemTurns()
	adapter := &recAdapter{}
	r := newTestRouter(nlp.NewKeywordClassifier(), convs, turns, adapter)
	ctx := context.Background()

	// turn 1: topic without slots -> clarifying question for age
	if err := r.ProcessTurn(ctx, "t1", inbound("wamid.1", "vaccine schedule")); err != nil {
		t.Fatal(err)
	}
	// turn 2: bare age answer continues the topic -> asks for state
	if err := r.ProcessTurn(ctx, "t2", inbound("wamid.2", "5 years")); err != nil {
		t.Fatal(err)
	}
	// turn 3: state completes the slots -> full answer
	if err := r.ProcessTurn(ctx, "t3", inbound("wamid.3", "odisha")); err != nil {
		t.Fatal(err)
	}

	bodies := adapter.sentBodies()
	if len(bodies) != 3 {
		t.Fatalf("got %d replies, want 3", len(bodies))
	}
	if !strings.Contains(strings.ToLower(bodies[0]), "age") {
		t.Errorf("turn 1 should ask for the age, got %q", bodies[0])
	}
	if !strings.Contains(strings.ToLower(bodies[1]), "state") {
		t.Errorf("turn 2 should ask for the state, got %q", bodies[1])
	}
	if !strings.Contains(bodies[2], "odisha") || !strings.Contains(bodies[2], "schedule") {
		t.Errorf("turn 3 should answer the schedule, got %q", bodies[2])
	}

	if turns.replied["t3"] != nlp.IntentVaccineInfo {
		t.Errorf("turn 3 logged intent %q, want %q", turns.replied["t3"], nlp.IntentVaccineInfo)
	}
	conv, _ := convs.Get(ctx, model.ChannelWhatsApp, "+919876543210")
	if conv == nil || conv.ContextSlots["age"] != "5" || conv.ContextSlots["state"] != "odisha" {
		t.Fatalf("slots not accumulated across turns: %+v", conv)
	}
}

func TestProcessTurnClassifierFailureFallsBack(t *testing.T) {
	adapter := &recAdapter{}
	turns := newMemTurns()
	r := newTestRouter(errClassifier{}, newMemConvs(), turns, adapter)

	if err := r.ProcessTurn(context.Background(), "t1", inbound("wamid.1", "hello")); err != nil {
		t.Fatal(err)
	}
	bodies := adapter.sentBodies()
	if len(bodies) != 1 || bodies[0] != FallbackReply {
		t.Fatalf("got %v, want the fallback reply", bodies)
	}
	if _, ok := turns.replied["t1"]; !ok {
		t.Fatal("fallback turn should still be logged as replied")
	}
}

func TestProcessTurnInfraErrorThenRedelivery(t *testing.T) {
	convs := newMemConvs()
	convs.getErr = errors.New("mysql gone away")
	adapter := &recAdapter{}
	r := newTestRouter(nlp.NewKeywordClassifier(), convs, newMemTurns(), adapter)
	ctx := context.Background()
	msg := inbound("wamid.redeliver", "hello")

	// First delivery fails on the conversation store: the error must
	// surface (so the consumer skips the commit) and the dedup claim must
	// be released.
	if err := r.ProcessTurn(ctx, "t1", msg); err == nil {
		t.Fatal("infra failure should propagate")
	}
	if n := len(adapter.sentBodies()); n != 0 {
		t.Fatalf("failed turn sent %d replies", n)
	}

	// Redelivery of the same message id must now be processed as new, not
	// swallowed as a duplicate.
	if err := r.ProcessTurn(ctx, "t1", msg); err != nil {
		t.Fatal(err)
	}
	if n := len(adapter.sentBodies()); n != 1 {
		t.Fatalf("redelivered turn produced %d replies, want 1", n)
	}
}

func TestProcessTurnReplyRetriesTransientOnce(t *testing.T) {
	adapter := &recAdapter{failTimes: 1, failWith: channel.Transient(errors.New("provider 502"))}
	turns := newMemTurns()
	r := newTestRouter(nlp.NewKeywordClassifier(), newMemConvs(), turns, adapter)

	if err := r.ProcessTurn(context.Background(), "t1", inbound("wamid.1", "hello")); err != nil {
		t.Fatal(err)
	}
	if n := len(adapter.sentBodies()); n != 1 {
		t.Fatalf("got %d delivered replies, want 1", n)
	}
	if n := adapter.sendAttempts(); n != 2 {
		t.Fatalf("adapter tried %d times, want 2 (one transient retry)", n)
	}
	if _, ok := turns.replied["t1"]; !ok {
		t.Fatal("turn should be marked replied after the retry succeeds")
	}
}

func TestProcessTurnReplyPermanentFailureNoRetry(t *testing.T) {
	adapter := &recAdapter{fail: channel.Permanent(errors.New("recipient blocked"))}
	turns := newMemTurns()
	r := newTestRouter(nlp.NewKeywordClassifier(), newMemConvs(), turns, adapter)

	if err := r.ProcessTurn(context.Background(), "t1", inbound("wamid.1", "hello")); err != nil {
		t.Fatal(err)
	}
	if n := adapter.sendAttempts(); n != 1 {
		t.Fatalf("permanent failure retried: %d attempts, want 1", n)
	}
	if !turns.failed["t1"] {
		t.Fatal("turn should be marked failed")
	}
}

func TestProcessTurnSendFailureMarksTurnFailed(t *testing.T) {
	adapter := &recAdapter{fail: errors.New("provider 500")}
	turns := newMemTurns()
	r := newTestRouter(nlp.NewKeywordClassifier(), newMemConvs(), turns, adapter)

	if err := r.ProcessTurn(context.Background(), "t1", inbound("wamid.1", "hello")); err != nil {
		t.Fatal(err)
	}
	if !turns.failed["t1"] {
		t.Fatal("undelivered reply should mark the turn failed")
	}
	if _, ok := turns.replied["t1"]; ok {
		t.Fatal("failed turn must not be marked replied")
	}
}
