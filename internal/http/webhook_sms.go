package http

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/logger"
	"github.com/arogyabot/health-gateway/internal/service/ingest"
)

// receiveSMSHandler ingests inbound SMS webhooks from the provider,
// fast-acking once durably enqueued, same as the WhatsApp path.
func receiveSMSHandler(adapter channel.Adapter, svc *ingest.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := io.ReadAll(c.Request().Body)
		if err != nil || len(raw) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty payload"})
		}

		msgs, err := adapter.ParseWebhook(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid webhook payload"})
		}

		for _, m := range msgs {
			if _, err := svc.Enqueue(c.Request().Context(), m); err != nil {
				logger.Log.Error("enqueue failed", zap.String("message_id", m.ID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "enqueue failed"})
			}
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "received"})
	}
}
