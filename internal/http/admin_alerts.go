package http

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/broadcast"
	"github.com/arogyabot/health-gateway/internal/logger"
)

type alertReq struct {
	Message  string `json:"message"`
	Priority string `json:"priority"` // "low" | "medium" | "high", default medium
}

type alertResp struct {
	Success              bool     `json:"success"`
	UsersTargeted        int      `json:"users_targeted"`
	SuccessfulDeliveries int      `json:"successful_deliveries"`
	FailedDeliveries     int      `json:"failed_deliveries"`
	MessageID            string   `json:"message_id"`
	Errors               []string `json:"errors"`
}

func broadcastAlertHandler(engine *broadcast.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req alertReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		prio, ok := broadcast.ParsePriority(req.Priority)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "priority must be low, medium or high"})
		}

		report, err := engine.Broadcast(c.Request().Context(), req.Message, prio)
		if err != nil {
			var ve *broadcast.ValidationError
			switch {
			case errors.As(err, &ve):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": ve.Error()})
			case errors.Is(err, broadcast.ErrStoreUnavailable):
				logger.Log.Error("broadcast unavailable", zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "recipient store unavailable"})
			default:
				logger.Log.Error("broadcast failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "broadcast failed"})
			}
		}

		errs := report.Errors
		if errs == nil {
			errs = []string{}
		}
		return c.JSON(http.StatusOK, alertResp{
			Success:              true,
			UsersTargeted:        report.UsersTargeted,
			SuccessfulDeliveries: report.Successful,
			FailedDeliveries:     report.Failed,
			MessageID:            report.BroadcastID,
			Errors:               errs,
		})
	}
}
