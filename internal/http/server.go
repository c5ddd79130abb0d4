package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/arogyabot/health-gateway/internal/broadcast"
	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/config"
	"github.com/arogyabot/health-gateway/internal/http/middleware"
	"github.com/arogyabot/health-gateway/internal/metrics"
	"github.com/arogyabot/health-gateway/internal/ratelimit"
	"github.com/arogyabot/health-gateway/internal/repository"
	"github.com/arogyabot/health-gateway/internal/service/ingest"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	usersRepo := repository.NewUsersRepository(mysqlDB)
	turnsRepo := repository.NewTurnsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	chTurnsRepo := repository.NewCHTurnsRepository(clickhouseDB)

	// adapters
	wa := channel.NewWhatsAppAdapter(
		cfg.WhatsApp.APIURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID,
		cfg.WhatsApp.TimeoutMs, cfg.WhatsApp.Breaker.FailThreshold, cfg.WhatsApp.Breaker.OpenForMs,
	)
	sms := channel.NewSMSAdapter(
		cfg.SMS.BaseURL, cfg.SMS.APIKey,
		cfg.SMS.TimeoutMs, cfg.SMS.Breaker.FailThreshold, cfg.SMS.Breaker.OpenForMs,
	)

	// services
	ingestSvc := ingest.New(mysqlDB, usersRepo, turnsRepo, outboxRepo, cfg.Kafka.Topic)

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.BulkAcquireTimeout)
	engine := broadcast.NewEngine(usersRepo, limiter, broadcast.Config{
		Workers:     cfg.Broadcast.Workers,
		MaxAttempts: cfg.Broadcast.MaxAttempts,
		BackoffBase: cfg.Broadcast.BackoffBase,
		BackoffCap:  cfg.Broadcast.BackoffCap,
		Deadline:    cfg.Broadcast.Deadline,
	}, wa, sms)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.WARN)
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// webhooks (provider-authenticated, not API-keyed)
	e.GET("/webhook/whatsapp", verifyWhatsAppHandler(cfg.WhatsApp.VerifyToken))
	e.POST("/webhook/whatsapp", receiveWhatsAppHandler(wa, ingestSvc, cfg.WhatsApp.AppSecret))
	e.POST("/webhook/sms", receiveSMSHandler(sms, ingestSvc))

	// admin
	authMW := middleware.APIKeyMiddleware(cfg.Admin.APIKey)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.Admin.RPS,
		KeyPrefix:      "rl:admin:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	admin := e.Group("/admin", authMW, rlMW)
	admin.POST("/alerts", broadcastAlertHandler(engine))
	admin.GET("/stats", adminStatsHandler(usersRepo))
	admin.GET("/conversations", adminConversationsHandler(chTurnsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
