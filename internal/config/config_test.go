package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Kafka.Topic != "inbound.messages" {
		t.Errorf("kafka topic = %q", cfg.Kafka.Topic)
	}
	if cfg.Broadcast.Workers != 8 || cfg.Broadcast.MaxAttempts != 3 {
		t.Errorf("broadcast defaults = %+v", cfg.Broadcast)
	}
	if cfg.Broadcast.BackoffBase != 200*time.Millisecond || cfg.Broadcast.BackoffCap != 5*time.Second {
		t.Errorf("backoff defaults = %v/%v", cfg.Broadcast.BackoffBase, cfg.Broadcast.BackoffCap)
	}
	if cfg.Dedup.TTL != 24*time.Hour {
		t.Errorf("dedup ttl = %v", cfg.Dedup.TTL)
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("rate limit defaults = %+v", cfg.RateLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HGW_BROADCAST_WORKERS", "4")
	t.Setenv("HGW_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Broadcast.Workers != 4 {
		t.Errorf("env override ignored: workers = %d", cfg.Broadcast.Workers)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("env override ignored: log level = %q", cfg.Log.Level)
	}
}
