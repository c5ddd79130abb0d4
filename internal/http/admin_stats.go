package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/arogyabot/health-gateway/internal/model"
	"github.com/arogyabot/health-gateway/internal/repository"
	"github.com/arogyabot/health-gateway/internal/util"
)

func adminStatsHandler(users repository.UsersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		total, err := users.CountAll(ctx)
		if err != nil {
			c.Logger().Errorf("stats count failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		active, err := users.CountActive(ctx)
		if err != nil {
			c.Logger().Errorf("stats count failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"total_users":    total,
			"active_users":   active,
			"inactive_users": total - active,
		})
	}
}

// adminConversationsHandler lists recent turns from the ClickHouse
// reporting view. Sender filters are normalized; senders in the response
// are masked.
func adminConversationsHandler(chRepo repository.CHTurnsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var ch model.Channel
		if raw := strings.TrimSpace(c.QueryParam("channel")); raw != "" {
			parsed, ok := model.ParseChannel(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid channel"})
			}
			ch = parsed
		}
		sender := util.NormalizePhone(strings.TrimSpace(c.QueryParam("sender")))

		turns, err := chRepo.List(c.Request().Context(), ch, sender, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		type turnView struct {
			ID      string `json:"id"`
			Channel string `json:"channel"`
			Sender  string `json:"sender"` // masked
			Text    string `json:"text"`
			Intent  string `json:"intent"`
			Reply   string `json:"reply"`
			Status  string `json:"status"`
		}
		results := make([]turnView, 0, len(turns))
		for _, t := range turns {
			results = append(results, turnView{
				ID:      t.ID,
				Channel: t.Channel.String(),
				Sender:  util.MaskPhone(t.Sender),
				Text:    t.Text,
				Intent:  t.Intent,
				Reply:   t.Reply,
				Status:  t.Status,
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(results),
			"results": results,
		})
	}
}
