// Package dispatch maps a resolved intent to a domain service and
// normalizes the result into a reply payload. Handlers have no side
// effects; persistence belongs to the caller.
package dispatch

import (
	"context"
	"fmt"
)

type ReplyPayload struct {
	Text string
}

// MissingSlotError means a handler cannot answer without a value the user
// has not provided yet. The router turns it into a clarifying question,
// never a hard failure.
type MissingSlotError struct {
	Slot   string
	Prompt string
}

func (e *MissingSlotError) Error() string {
	return fmt.Sprintf("missing slot %q", e.Slot)
}

type Handler interface {
	Intent() string
	Handle(ctx context.Context, slots map[string]string) (ReplyPayload, error)
}

type Dispatcher struct {
	handlers map[string]Handler
	fallback Handler
}

func NewDispatcher(fallback Handler, handlers ...Handler) *Dispatcher {
	m := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		m[h.Intent()] = h
	}
	return &Dispatcher{handlers: m, fallback: fallback}
}

// Dispatch invokes the handler registered for intent, or the generic
// fallback when the intent is unknown.
func (d *Dispatcher) Dispatch(ctx context.Context, intent string, slots map[string]string) (ReplyPayload, error) {
	if h, ok := d.handlers[intent]; ok {
		return h.Handle(ctx, slots)
	}
	return d.fallback.Handle(ctx, slots)
}
