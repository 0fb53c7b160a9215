package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.85, cfg.Sanctions.MatchThreshold)
	assert.Equal(t, 2*time.Second, cfg.Screening.CheckTimeout)
	assert.Equal(t, 5*time.Second, cfg.Screening.TotalTimeout)
	assert.Equal(t, 30*time.Second, cfg.Sanctions.LookupTimeout)
	assert.Equal(t, RiskLevels{Medium: 50, High: 80, Critical: 95}, cfg.Risk.Levels)
	assert.Equal(t, RateLimitConfig{Enabled: true, Requests: 600, Window: time.Minute, Backend: "memory"}, cfg.RateLimit)
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
screening:
  check_timeout: 1500ms
sanctions:
  match_threshold: 0.9
risk:
  weights:
    anomaly_max: 30
  amount_thresholds:
    GBP: "8000"
  country_tiers:
    PA: HIGH
ledger:
  backend: file
  path: /var/lib/txguard/ledger.jsonl
  hash_algorithm: blake2b-256
`)
	cfg, err := load(path, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Screening.CheckTimeout)
	assert.Equal(t, 5*time.Second, cfg.Screening.TotalTimeout, "unset fields keep defaults")
	assert.Equal(t, 0.9, cfg.Sanctions.MatchThreshold)
	assert.Equal(t, 30.0, cfg.Risk.Weights.AnomalyMax)
	assert.Equal(t, 25.0, cfg.Risk.Weights.Amount)
	assert.True(t, cfg.Risk.AmountThresholds["GBP"].Equal(decimal.NewFromInt(8000)))
	assert.True(t, cfg.Risk.AmountThresholds["USD"].Equal(decimal.NewFromInt(10000)), "maps merge with defaults")
	assert.Equal(t, TierHigh, cfg.Risk.CountryTiers["PA"])
	assert.Equal(t, TierProhibited, cfg.Risk.CountryTiers["KP"])
	assert.Equal(t, "blake2b-256", cfg.Ledger.HashAlgorithm)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  addr: \":9000\"\n")
	cfg, err := load("", envFrom(map[string]string{
		"TXGUARD_CONFIG": path,
		"TXGUARD_ADDR":   ":7000",
		"KAFKA_BROKERS":  "k1:9092, k2:9092,",
		"NATS_URL":       "nats://nats:4222",
		"LEDGER_BACKEND": "memory",
		"LOG_FORMAT":     "text",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, "memory", cfg.Ledger.Backend)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envFrom(nil))
		assert.ErrorContains(t, err, "read config")
	})
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := load(writeFile(t, "screening: [oops"), envFrom(nil))
		assert.ErrorContains(t, err, "parse config")
	})
	t.Run("invalid values", func(t *testing.T) {
		_, err := load(writeFile(t, "sanctions:\n  match_threshold: 1.5\n"), envFrom(nil))
		assert.ErrorContains(t, err, "match_threshold")
	})
}

func TestValidate_RangeChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero threshold", func(c *Config) { c.Sanctions.MatchThreshold = 0 }, "match_threshold"},
		{"zero lookup timeout", func(c *Config) { c.Sanctions.LookupTimeout = 0 }, "sanctions.lookup_timeout"},
		{"lookup exceeds refresh interval", func(c *Config) { c.Sanctions.LookupTimeout = 2 * time.Minute }, "sanctions.lookup_timeout"},
		{"check exceeds total", func(c *Config) { c.Screening.CheckTimeout = 6 * time.Second }, "must not exceed total_timeout"},
		{"negative weight", func(c *Config) { c.Risk.Weights.Velocity = -1 }, "risk.weights.velocity"},
		{"weight over 100", func(c *Config) { c.Risk.Weights.AnomalyMax = 101 }, "risk.weights.anomaly_max"},
		{"levels not increasing", func(c *Config) { c.Risk.Levels.High = 40 }, "strictly increasing"},
		{"critical above 100", func(c *Config) { c.Risk.Levels.Critical = 120 }, "strictly increasing"},
		{"unknown tier", func(c *Config) { c.Risk.CountryTiers["FR"] = "SEVERE" }, "country_tiers.FR"},
		{"bad country code", func(c *Config) { c.Risk.CountryTiers["France"] = TierLow }, "ISO-3166"},
		{"too many attempts", func(c *Config) { c.Dispatch.Retry.MaxAttempts = 11 }, "dispatch.retry.max_attempts"},
		{"backoff inverted", func(c *Config) { c.Dispatch.Retry.MaxBackoff = time.Millisecond }, "initial_backoff <= max_backoff"},
		{"unknown ledger backend", func(c *Config) { c.Ledger.Backend = "s3" }, "ledger.backend"},
		{"unknown hash", func(c *Config) { c.Ledger.HashAlgorithm = "md5" }, "hash_algorithm"},
		{"postgres without url", func(c *Config) { c.Ledger.Backend = "postgres" }, "database.url"},
		{"webhook without url", func(c *Config) { c.Dispatch.Sink = "webhook" }, "webhook_url"},
		{"kafka without brokers", func(c *Config) { c.Dispatch.Sink = "kafka" }, "kafka.brokers"},
		{"nats without url", func(c *Config) { c.Dispatch.Sink = "nats" }, "nats.url"},
		{"unknown sink", func(c *Config) { c.Dispatch.Sink = "sqs" }, "dispatch.sink"},
		{"redis history without url", func(c *Config) { c.Risk.History = "redis" }, "redis.url"},
		{"zero rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, "rate_limit.requests"},
		{"unknown rate limit backend", func(c *Config) { c.RateLimit.Backend = "etcd" }, "rate_limit.backend"},
		{"redis rate limit without url", func(c *Config) { c.RateLimit.Backend = "redis" }, "redis rate limit backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRetryConfig_Policy(t *testing.T) {
	p := Default().Dispatch.Retry.Policy()
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 2*time.Second, p.MaxInterval)
	assert.Equal(t, 2.0, p.Multiplier)
}
