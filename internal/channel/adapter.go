// Package channel abstracts the external messaging transports. Adapters
// normalize provider webhooks into canonical inbound messages and deliver
// outbound messages, surfacing transient-vs-permanent failure kinds so
// callers can decide retry eligibility.
package channel

import (
	"context"

	"github.com/arogyabot/health-gateway/internal/model"
)

type Adapter interface {
	Channel() model.Channel
	// Send delivers one outbound message. Failures are wrapped as
	// *DeliveryError; anything else is treated as transient.
	Send(ctx context.Context, msg model.OutboundMessage) error
	// ParseWebhook normalizes a raw provider payload. One payload may
	// carry several messages.
	ParseWebhook(raw []byte) ([]model.InboundMessage, error)
}
