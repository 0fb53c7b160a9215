// Package config loads the service configuration once at process start.
//
// Loading order: Default() values, then the YAML file (only the fields it
// sets), then environment overrides, then Validate(). Every threshold, weight
// and timeout is named here and range-checked before anything is wired.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"txguard/pkg/platform/retry"
)

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Screening ScreeningConfig `yaml:"screening"`
	Sanctions SanctionsConfig `yaml:"sanctions"`
	Risk      RiskConfig      `yaml:"risk"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	KYC       KYCConfig       `yaml:"kyc"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	NATS      NATSConfig      `yaml:"nats"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// JWTSigningKey enables bearer authentication on /v1 routes when set.
	JWTSigningKey string `yaml:"jwt_signing_key"`
	JWTIssuer     string `yaml:"jwt_issuer"`
	JWTAudience   string `yaml:"jwt_audience"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScreeningConfig bounds the per-transaction fan-out.
type ScreeningConfig struct {
	CheckTimeout time.Duration `yaml:"check_timeout"`
	TotalTimeout time.Duration `yaml:"total_timeout"`
}

type SanctionsConfig struct {
	MatchThreshold  float64       `yaml:"match_threshold"`
	Source          string        `yaml:"source"` // file | postgres
	FilePath        string        `yaml:"file_path"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LookupTimeout   time.Duration `yaml:"lookup_timeout"`
	MaxStaleness    time.Duration `yaml:"max_staleness"`
}

// RiskWeights are the points each normalized factor contributes at 1.0.
type RiskWeights struct {
	Amount       float64 `yaml:"amount"`
	Geography    float64 `yaml:"geography"`
	Velocity     float64 `yaml:"velocity"`
	Counterparty float64 `yaml:"counterparty"`
	KYC          float64 `yaml:"kyc"`
	// AnomalyMax is the anomaly contribution at score 1.0, and the
	// contribution used when the anomaly model is unavailable.
	AnomalyMax float64 `yaml:"anomaly_max"`
}

// RiskLevels are the lower bounds of MEDIUM, HIGH and CRITICAL.
type RiskLevels struct {
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

type RiskConfig struct {
	Weights                RiskWeights                `yaml:"weights"`
	Levels                 RiskLevels                 `yaml:"levels"`
	AmountThresholds       map[string]decimal.Decimal `yaml:"amount_thresholds"`
	DefaultAmountThreshold decimal.Decimal            `yaml:"default_amount_threshold"`
	StructuringBand        float64                    `yaml:"structuring_band"`
	StructuringFactor      float64                    `yaml:"structuring_factor"`
	CountryTiers           map[string]string          `yaml:"country_tiers"`
	DefaultCountryTier     string                     `yaml:"default_country_tier"`
	VelocityWindow         time.Duration              `yaml:"velocity_window"`
	BaselineWindow         time.Duration              `yaml:"baseline_window"`
	VelocityMultiplier     float64                    `yaml:"velocity_multiplier"`
	History                string                     `yaml:"history"` // memory | redis
}

// RetryConfig is shared by collaborator clients and the dispatcher.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// Policy converts the configured bounds to an exponential backoff policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: r.InitialBackoff,
		MaxInterval:     r.MaxBackoff,
		Multiplier:      2,
		Jitter:          0.2,
	}
}

type AnomalyConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	Retry            RetryConfig   `yaml:"retry"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

type KYCConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

type LedgerConfig struct {
	Backend        string        `yaml:"backend"` // memory | file | sqlite | postgres
	Path           string        `yaml:"path"`
	HashAlgorithm  string        `yaml:"hash_algorithm"` // sha256 | blake2b-256
	AppendTimeout  time.Duration `yaml:"append_timeout"`
	AnchorInterval time.Duration `yaml:"anchor_interval"`
	AnchorSink     string        `yaml:"anchor_sink"` // none | log | kafka
	AnchorTopic    string        `yaml:"anchor_topic"`
}

type DispatchConfig struct {
	Sink       string        `yaml:"sink"` // log | webhook | kafka | nats
	WebhookURL string        `yaml:"webhook_url"`
	Topic      string        `yaml:"topic"` // kafka topic or nats subject
	Timeout    time.Duration `yaml:"timeout"`
	Retry      RetryConfig   `yaml:"retry"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RateLimitConfig bounds /v1 requests per caller over a sliding window.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Backend  string        `yaml:"backend"` // memory | redis
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	ClientID string   `yaml:"client_id"`
}

type NATSConfig struct {
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Country risk tiers.
const (
	TierLow        = "LOW"
	TierMedium     = "MEDIUM"
	TierHigh       = "HIGH"
	TierProhibited = "PROHIBITED"
)

// Default returns the built-in configuration.
func Default() *Config {
	tenK := decimal.NewFromInt(10_000)
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			JWTIssuer:         "txguard",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Screening: ScreeningConfig{
			CheckTimeout: 2 * time.Second,
			TotalTimeout: 5 * time.Second,
		},
		Sanctions: SanctionsConfig{
			MatchThreshold:  0.85,
			Source:          "file",
			FilePath:        "sanctions.yaml",
			RefreshInterval: time.Minute,
			LookupTimeout:   30 * time.Second,
			MaxStaleness:    24 * time.Hour,
		},
		Risk: RiskConfig{
			Weights: RiskWeights{
				Amount:       25,
				Geography:    25,
				Velocity:     15,
				Counterparty: 15,
				KYC:          10,
				AnomalyMax:   20,
			},
			Levels: RiskLevels{Medium: 50, High: 80, Critical: 95},
			AmountThresholds: map[string]decimal.Decimal{
				"USD":  tenK,
				"USDC": tenK,
				"USDT": tenK,
				"EUR":  tenK,
				"BTC":  decimal.NewFromInt(1),
				"ETH":  decimal.NewFromInt(5),
			},
			DefaultAmountThreshold: tenK,
			StructuringBand:        0.8,
			StructuringFactor:      0.9,
			CountryTiers:           defaultCountryTiers(),
			DefaultCountryTier:     TierMedium,
			VelocityWindow:         time.Hour,
			BaselineWindow:         30 * 24 * time.Hour,
			VelocityMultiplier:     3,
			History:                "memory",
		},
		Anomaly: AnomalyConfig{
			Timeout:          time.Second,
			Retry:            RetryConfig{MaxAttempts: 2, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 200 * time.Millisecond},
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         10 * time.Second,
		},
		KYC: KYCConfig{
			Timeout: time.Second,
			Retry:   RetryConfig{MaxAttempts: 2, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 200 * time.Millisecond},
		},
		Ledger: LedgerConfig{
			Backend:        "sqlite",
			Path:           "ledger.db",
			HashAlgorithm:  "sha256",
			AppendTimeout:  2 * time.Second,
			AnchorInterval: 5 * time.Minute,
			AnchorSink:     "log",
			AnchorTopic:    "txguard.ledger.checkpoints",
		},
		Dispatch: DispatchConfig{
			Sink:      "log",
			Topic:     "txguard.compliance.alerts",
			Timeout:   3 * time.Second,
			Retry:     RetryConfig{MaxAttempts: 4, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second},
			Workers:   4,
			QueueSize: 1024,
		},
		Database: DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 5},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Kafka: KafkaConfig{ClientID: "txguard"},
		NATS: NATSConfig{
			Name:           "txguard",
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  60,
			ConnectTimeout: 2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 600,
			Window:   time.Minute,
			Backend:  "memory",
		},
	}
}

func defaultCountryTiers() map[string]string {
	tiers := map[string]string{}
	for _, c := range []string{"IR", "KP", "SY", "CU"} {
		tiers[c] = TierProhibited
	}
	for _, c := range []string{"RU", "AF", "MM", "BY"} {
		tiers[c] = TierHigh
	}
	for _, c := range []string{"VE", "PK", "TR", "AE", "HK"} {
		tiers[c] = TierMedium
	}
	for _, c := range []string{"US", "GB", "DE", "FR", "NL", "CH", "SG", "JP", "CA", "AU"} {
		tiers[c] = TierLow
	}
	return tiers
}

// Load builds the configuration from defaults, an optional YAML file and the
// process environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	if path == "" {
		path, _ = lookup("TXGUARD_CONFIG")
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg, lookup)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("TXGUARD_ADDR", &cfg.Server.Addr)
	set("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	set("DATABASE_URL", &cfg.Database.URL)
	set("REDIS_URL", &cfg.Redis.URL)
	set("NATS_URL", &cfg.NATS.URL)
	set("LEDGER_BACKEND", &cfg.Ledger.Backend)
	set("LEDGER_PATH", &cfg.Ledger.Path)
	set("LOG_LEVEL", &cfg.Log.Level)
	set("LOG_FORMAT", &cfg.Log.Format)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
