package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

// APIKeyMiddleware authenticates operator requests using the X-API-Key
// header against the configured key. An unset key disables the admin API
// entirely rather than leaving it open.
func APIKeyMiddleware(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "admin api not configured"})
			}
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			return next(c)
		}
	}
}
