package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arogyabot/health-gateway/internal/nlp"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(
		NewFallbackHandler(),
		NewGreetingHandler(),
		NewHelpHandler(),
		NewVaccinationHandler(),
		NewOutbreakHandler(),
	)
}

func TestVaccinationHandlerSlotPrompts(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	_, err := d.Dispatch(ctx, nlp.IntentVaccineInfo, map[string]string{})
	var missing *MissingSlotError
	if !errors.As(err, &missing) || missing.Slot != "age" {
		t.Fatalf("no slots: got %v, want missing age", err)
	}

	_, err = d.Dispatch(ctx, nlp.IntentVaccineInfo, map[string]string{"age": "5"})
	if !errors.As(err, &missing) || missing.Slot != "state" {
		t.Fatalf("age only: got %v, want missing state", err)
	}

	// a non-numeric age re-prompts instead of failing the turn
	_, err = d.Dispatch(ctx, nlp.IntentVaccineInfo, map[string]string{"age": "five", "state": "odisha"})
	if !errors.As(err, &missing) || missing.Slot != "age" {
		t.Fatalf("bad age: got %v, want missing age", err)
	}

	p, err := d.Dispatch(ctx, nlp.IntentVaccineInfo, map[string]string{"age": "5", "state": "odisha"})
	if err != nil {
		t.Fatalf("complete slots: %v", err)
	}
	if !strings.Contains(p.Text, "odisha") || !strings.Contains(p.Text, "5") {
		t.Fatalf("reply missing slot values: %q", p.Text)
	}
}

func TestOutbreakHandlerRequiresState(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	_, err := d.Dispatch(ctx, nlp.IntentOutbreakInfo, map[string]string{})
	var missing *MissingSlotError
	if !errors.As(err, &missing) || missing.Slot != "state" {
		t.Fatalf("got %v, want missing state", err)
	}

	p, err := d.Dispatch(ctx, nlp.IntentOutbreakInfo, map[string]string{"state": "kerala"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.Text, "kerala") {
		t.Fatalf("reply does not mention the state: %q", p.Text)
	}
}

func TestDispatchUnknownIntentFallsBack(t *testing.T) {
	d := newTestDispatcher()

	p, err := d.Dispatch(context.Background(), "weather_report", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Text == "" {
		t.Fatal("fallback produced an empty reply")
	}

	p2, _ := d.Dispatch(context.Background(), nlp.IntentUnknown, nil)
	if p2.Text != p.Text {
		t.Fatal("unknown intent and unregistered intent should share the fallback reply")
	}
}
