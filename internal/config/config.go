package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	WhatsApp   WhatsAppConfig  `mapstructure:"whatsapp"`
	SMS        SMSConfig       `mapstructure:"sms"`
	NLP        NLPConfig       `mapstructure:"nlp"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Broadcast  BroadcastConfig `mapstructure:"broadcast"`
	Dedup      DedupConfig     `mapstructure:"dedup"`
	Worker     WorkerConfig    `mapstructure:"worker"`
	Admin      AdminConfig     `mapstructure:"admin"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type WhatsAppConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	AccessToken   string        `mapstructure:"access_token"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	VerifyToken   string        `mapstructure:"verify_token"`
	AppSecret     string        `mapstructure:"app_secret"`
	TimeoutMs     int           `mapstructure:"timeout_ms"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

type SMSConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type NLPConfig struct {
	Endpoint  string `mapstructure:"endpoint"` // empty => built-in keyword classifier
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

type RateLimitConfig struct {
	RPS                int           `mapstructure:"rps"`   // per-channel token refill rate
	Burst              int           `mapstructure:"burst"` // per-channel bucket size
	BulkAcquireTimeout time.Duration `mapstructure:"bulk_acquire_timeout"`
}

type BroadcastConfig struct {
	Workers     int           `mapstructure:"workers"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffCap  time.Duration `mapstructure:"backoff_cap"`
	Deadline    time.Duration `mapstructure:"deadline"`
}

type DedupConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type WorkerConfig struct {
	Processors int           `mapstructure:"processors"`
	NLPTimeout time.Duration `mapstructure:"nlp_timeout"`
}

type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
	RPS    int    `mapstructure:"rps"` // admin API fixed-window limit
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (HGW_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (HGW_*), nested keys joined with underscores
	v.SetEnvPrefix("HGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
