package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPConnector calls an external NLP engine's classify endpoint.
type HTTPConnector struct {
	endpoint string
	client   *http.Client
}

var _ Classifier = (*HTTPConnector)(nil)

func NewHTTPConnector(endpoint string, timeoutMs int) *HTTPConnector {
	if timeoutMs <= 0 {
		timeoutMs = 2000
	}
	return &HTTPConnector{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

type classifyReq struct {
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

func (c *HTTPConnector) Classify(ctx context.Context, text string, contextSlots map[string]string) (Result, error) {
	b, _ := json.Marshal(classifyReq{Text: text, Context: contextSlots})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/classify", bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return Result{}, fmt.Errorf("nlp: status=%d", res.StatusCode)
	}

	var out Result
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("nlp: decode: %w", err)
	}
	if out.Intent == "" {
		out.Intent = IntentUnknown
	}
	if out.Slots == nil {
		out.Slots = map[string]string{}
	}
	return out, nil
}
