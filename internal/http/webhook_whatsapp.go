package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/logger"
	"github.com/arogyabot/health-gateway/internal/service/ingest"
)

// verifyWhatsAppHandler answers the Cloud API subscription handshake.
func verifyWhatsAppHandler(verifyToken string) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := c.QueryParam("hub.mode")
		challenge := c.QueryParam("hub.challenge")
		token := c.QueryParam("hub.verify_token")

		if mode == "" && challenge == "" && token == "" {
			return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
		}
		if verifyToken == "" {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "verify token not configured"})
		}
		if mode != "subscribe" || token != verifyToken {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "verification failed"})
		}
		return c.String(http.StatusOK, challenge)
	}
}

// receiveWhatsAppHandler acks the webhook as soon as every message in the
// payload is durably enqueued. The router pipeline runs later, in the
// worker, so slow classification never makes the provider retry.
func receiveWhatsAppHandler(adapter channel.Adapter, svc *ingest.Service, appSecret string) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := io.ReadAll(c.Request().Body)
		if err != nil || len(raw) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty payload"})
		}

		if appSecret != "" {
			sig := c.Request().Header.Get("X-Hub-Signature-256")
			if !validSignature(appSecret, raw, sig) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			}
		}

		msgs, err := adapter.ParseWebhook(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid webhook payload"})
		}

		enqueued := 0
		for _, m := range msgs {
			if _, err := svc.Enqueue(c.Request().Context(), m); err != nil {
				logger.Log.Error("enqueue failed", zap.String("message_id", m.ID), zap.Error(err))
				continue
			}
			enqueued++
		}
		if enqueued == 0 && len(msgs) > 0 {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "enqueue failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{"status": "received", "enqueued": enqueued})
	}
}

// validSignature checks the X-Hub-Signature-256 HMAC over the raw body.
func validSignature(secret string, body []byte, header string) bool {
	header = strings.TrimSpace(header)
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
