package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/arogyabot/health-gateway/internal/broadcast"
	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/repository"
)

type okAdapter struct{ ch model.Channel }

func (a okAdapter) Channel() model.Channel                              { return a.ch }
func (a okAdapter) ParseWebhook([]byte) ([]model.InboundMessage, error) { return nil, nil }
func (a okAdapter) Send(context.Context, model.OutboundMessage) error   { return nil }

type openLimiter struct{}

func (openLimiter) AcquireBulk(context.Context, string) error { return nil }

func newTestEngine(t *testing.T, n int) *broadcast.Engine {
	t.Helper()
	users := repository.NewMemoryUsersRepository()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		phone := "+9198765432" + string(rune('0'+i%10)) + string(rune('0'+i/10))
		if _, err := users.RegisterOrTouch(ctx, phone, model.ChannelWhatsApp); err != nil {
			t.Fatal(err)
		}
	}
	return broadcast.NewEngine(users, openLimiter{}, broadcast.Config{
		Workers:     2,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		BackoffCap:  time.Millisecond,
	}, okAdapter{ch: model.ChannelWhatsApp})
}

func postAlert(h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/alerts", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = h(e.NewContext(req, rec))
	return rec
}

func TestBroadcastAlertHandler(t *testing.T) {
	h := broadcastAlertHandler(newTestEngine(t, 3))

	rec := postAlert(h, `{"message":"Clinic hours extended","priority":"high"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}

	var resp alertResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatal("success = false")
	}
	if resp.UsersTargeted != 3 || resp.SuccessfulDeliveries != 3 || resp.FailedDeliveries != 0 {
		t.Fatalf("got targeted=%d ok=%d failed=%d, want 3/3/0",
			resp.UsersTargeted, resp.SuccessfulDeliveries, resp.FailedDeliveries)
	}
	if !strings.HasPrefix(resp.MessageID, "alert_") {
		t.Errorf("message_id = %q, want alert_ prefix", resp.MessageID)
	}
	if resp.Errors == nil {
		t.Error("errors should marshal as an empty array, not null")
	}
}

func TestBroadcastAlertHandlerRejectsEmptyMessage(t *testing.T) {
	h := broadcastAlertHandler(newTestEngine(t, 1))

	rec := postAlert(h, `{"message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBroadcastAlertHandlerRejectsBadPriority(t *testing.T) {
	h := broadcastAlertHandler(newTestEngine(t, 1))

	rec := postAlert(h, `{"message":"hello","priority":"urgent"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBroadcastAlertHandlerEmptyRecipientSet(t *testing.T) {
	h := broadcastAlertHandler(newTestEngine(t, 0))

	rec := postAlert(h, `{"message":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp alertResp
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.UsersTargeted != 0 || resp.SuccessfulDeliveries != 0 || resp.FailedDeliveries != 0 {
		t.Fatalf("empty broadcast should succeed with zero counts, got %+v", resp)
	}
}
