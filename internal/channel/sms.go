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

// SMSAdapter posts to a generic HTTP SMS provider.
type SMSAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	br      *MicroBreaker
}

var _ Adapter = (*SMSAdapter)(nil)

func NewSMSAdapter(baseURL, apiKey string, timeoutMs, failThreshold, openForMs int) *SMSAdapter {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &SMSAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:      NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (a *SMSAdapter) Channel() model.Channel { return model.ChannelSMS }

func (a *SMSAdapter) Send(ctx context.Context, msg model.OutboundMessage) error {
	if !a.br.TryAcquire() {
		return Transient(fmt.Errorf("sms: circuit open"))
	}

	b, _ := json.Marshal(map[string]string{"to": msg.Recipient, "text": msg.Body})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(b))
	if err != nil {
		a.br.OnFailure()
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)

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
		return Transient(fmt.Errorf("sms: status=%d", res.StatusCode))
	default:
		a.br.OnFailure()
		return Permanent(fmt.Errorf("sms: status=%d", res.StatusCode))
	}
}

type smsWebhook struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix seconds, optional
}

func (a *SMSAdapter) ParseWebhook(raw []byte) ([]model.InboundMessage, error) {
	var wh smsWebhook
	if err := json.Unmarshal(raw, &wh); err != nil {
		return nil, fmt.Errorf("sms webhook: %w", err)
	}
	if wh.MessageID == "" || wh.From == "" {
		return nil, fmt.Errorf("sms webhook: missing message_id or from")
	}

	at := time.Now().UTC()
	if wh.Timestamp > 0 {
		at = time.Unix(wh.Timestamp, 0).UTC()
	}
	return []model.InboundMessage{{
		ID:         wh.MessageID,
		Channel:    model.ChannelSMS,
		Sender:     util.NormalizePhone(wh.From),
		Text:       wh.Text,
		ReceivedAt: at,
	}}, nil
}
