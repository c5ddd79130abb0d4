package dispatch

import (
	"context"

	"github.com/arogyabot/health-gateway/internal/nlp"
)

const helpText = "I'm your Health Assistant. You can ask me about:\n" +
	"- vaccination schedules (tell me the child's age and your state)\n" +
	"- disease outbreak alerts for your state\n" +
	"Send 'help' anytime to see this message again."

// GreetingHandler welcomes a user starting a conversation.
type GreetingHandler struct{}

var _ Handler = (*GreetingHandler)(nil)

func NewGreetingHandler() *GreetingHandler { return &GreetingHandler{} }

func (h *GreetingHandler) Intent() string { return nlp.IntentGreeting }

func (h *GreetingHandler) Handle(_ context.Context, _ map[string]string) (ReplyPayload, error) {
	return ReplyPayload{Text: "Hello! Welcome to the Health Assistant.\n\n" + helpText}, nil
}

// HelpHandler lists capabilities.
type HelpHandler struct{}

var _ Handler = (*HelpHandler)(nil)

func NewHelpHandler() *HelpHandler { return &HelpHandler{} }

func (h *HelpHandler) Intent() string { return nlp.IntentHelp }

func (h *HelpHandler) Handle(_ context.Context, _ map[string]string) (ReplyPayload, error) {
	return ReplyPayload{Text: helpText}, nil
}

// FallbackHandler answers anything no other handler claims.
type FallbackHandler struct{}

var _ Handler = (*FallbackHandler)(nil)

func NewFallbackHandler() *FallbackHandler { return &FallbackHandler{} }

func (h *FallbackHandler) Intent() string { return nlp.IntentUnknown }

func (h *FallbackHandler) Handle(_ context.Context, _ map[string]string) (ReplyPayload, error) {
	return ReplyPayload{Text: "Sorry, I didn't understand that. Try asking about 'vaccination' or 'outbreak', or send 'help'."}, nil
}
