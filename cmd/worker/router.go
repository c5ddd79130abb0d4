package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arogyabot/health-gateway/internal/channel"
	"github.com/arogyabot/health-gateway/internal/config"
	"github.com/arogyabot/health-gateway/internal/db"
	"github.com/arogyabot/health-gateway/internal/dedup"
	"github.com/arogyabot/health-gateway/internal/dispatch"
	"github.com/arogyabot/health-gateway/internal/kafka"
	"github.com/arogyabot/health-gateway/internal/logger"
	"github.com/arogyabot/health-gateway/internal/metrics"
	"github.com/arogyabot/health-gateway/internal/nlp"
	"github.com/arogyabot/health-gateway/internal/ratelimit"
	"github.com/arogyabot/health-gateway/internal/repository"
	"github.com/arogyabot/health-gateway/internal/router"
	"github.com/arogyabot/health-gateway/internal/worker"
)

var routerCmd = &cobra.Command{
	Use:   "router",
	Short: "Run the inbound message router",
	RunE:  runRouter,
}

func runRouter(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) stores
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	rds, err := db.NewRedisClient(db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer func() { _ = rds.Close() }()

	convsRepo := repository.NewConversationsRepository(dbx)
	turnsRepo := repository.NewTurnsRepository(dbx)

	// 3) pipeline pieces
	dd := dedup.NewRedisDeduplicator(rds, cfg.Dedup.KeyPrefix, cfg.Dedup.TTL)

	var classifier nlp.Classifier
	if cfg.NLP.Endpoint != "" {
		classifier = nlp.NewHTTPConnector(cfg.NLP.Endpoint, cfg.NLP.TimeoutMs)
	} else {
		classifier = nlp.NewKeywordClassifier()
	}

	dispatcher := dispatch.NewDispatcher(
		dispatch.NewFallbackHandler(),
		dispatch.NewGreetingHandler(),
		dispatch.NewHelpHandler(),
		dispatch.NewVaccinationHandler(),
		dispatch.NewOutbreakHandler(),
	)

	wa := channel.NewWhatsAppAdapter(
		cfg.WhatsApp.APIURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID,
		cfg.WhatsApp.TimeoutMs, cfg.WhatsApp.Breaker.FailThreshold, cfg.WhatsApp.Breaker.OpenForMs,
	)
	sms := channel.NewSMSAdapter(
		cfg.SMS.BaseURL, cfg.SMS.APIKey,
		cfg.SMS.TimeoutMs, cfg.SMS.Breaker.FailThreshold, cfg.SMS.Breaker.OpenForMs,
	)

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.BulkAcquireTimeout)

	rt := router.New(dd, classifier, dispatcher, convsRepo, turnsRepo, limiter, cfg.Worker.NLPTimeout, wa, sms)

	// 4) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "hgw-router"
	}
	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewRouterKafka(consumer, rt)
	if cfg.Worker.Processors > 0 {
		w.Processors = cfg.Worker.Processors
	}

	// 5) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("router worker started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", groupID),
		zap.Int("processors", w.Processors),
	)

	return w.Run(ctx)
}
