package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/util"
)

// WhatsAppAdapter talks to the WhatsApp Cloud API messages endpoint.
type WhatsAppAdapter struct {
	apiURL        string
	accessToken   string
	phoneNumberID string
	client        *http.Client
	br            *MicroBreaker
}

var _ Adapter = (*WhatsAppAdapter)(nil)

func NewWhatsAppAdapter(apiURL, accessToken, phoneNumberID string, timeoutMs, failThreshold, openForMs int) *WhatsAppAdapter {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &WhatsAppAdapter{
		apiURL:        strings.TrimRight(apiURL, "/"),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		client:        &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:            NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (a *WhatsAppAdapter) Channel() model.Channel { return model.ChannelWhatsApp }

type waTextPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (a *WhatsAppAdapter) Send(ctx context.Context, msg model.OutboundMessage) error {
	if !a.br.TryAcquire() {
		return Transient(fmt.Errorf("whatsapp: circuit open"))
	}

	p := waTextPayload{MessagingProduct: "whatsapp", To: msg.Recipient, Type: "text"}
	p.Text.Body = msg.Body
	b, _ := json.Marshal(p)

	url := a.apiURL + "/" + a.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		a.br.OnFailure()
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	res, err := a.client.Do(req)
	if err != nil {
		a.br.OnFailure()
		return Transient(err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode/100 == 2:
		a.br.OnSuccess()
		return nil
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode/100 == 5:
		a.br.OnFailure()
		return Transient(fmt.Errorf("whatsapp: status=%d", res.StatusCode))
	default:
		// 4xx other than 429: bad recipient, auth, malformed request.
		a.br.OnFailure()
		return Permanent(fmt.Errorf("whatsapp: status=%d", res.StatusCode))
	}
}

// Cloud API webhook payload, trimmed to the fields we consume.
type waWebhook struct {
	Entry []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWebhook extracts text messages from a Cloud API webhook payload.
// Status updates and non-text message types are skipped, not errors.
func (a *WhatsAppAdapter) ParseWebhook(raw []byte) ([]model.InboundMessage, error) {
	var wh waWebhook
	if err := json.Unmarshal(raw, &wh); err != nil {
		return nil, fmt.Errorf("whatsapp webhook: %w", err)
	}

	var out []model.InboundMessage
	for _, e := range wh.Entry {
		for _, ch := range e.Changes {
			if ch.Field != "messages" {
				continue
			}
			for _, m := range ch.Value.Messages {
				if m.ID == "" || m.From == "" || m.Type != "text" {
					continue
				}
				out = append(out, model.InboundMessage{
					ID:         m.ID,
					Channel:    model.ChannelWhatsApp,
					Sender:     util.NormalizePhone(m.From),
					Text:       m.Text.Body,
					ReceivedAt: parseUnixSeconds(m.Timestamp),
				})
			}
		}
	}
	return out, nil
}

func parseUnixSeconds(s string) time.Time {
	var sec int64
	if _, err := fmt.Sscanf(s, "%d", &sec); err != nil || sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
