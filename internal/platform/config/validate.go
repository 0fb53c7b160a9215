package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var countryCode = regexp.MustCompile(`^[A-Z]{2}$`)

// Validate range-checks every named threshold, weight and timeout.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		add("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	if !oneOf(c.Log.Format, "json", "text") {
		add("log.format %q must be json or text", c.Log.Format)
	}

	s := c.Screening
	if s.CheckTimeout <= 0 {
		add("screening.check_timeout must be positive")
	}
	if s.TotalTimeout <= 0 {
		add("screening.total_timeout must be positive")
	}
	if s.CheckTimeout > s.TotalTimeout {
		add("screening.check_timeout (%s) must not exceed total_timeout (%s)", s.CheckTimeout, s.TotalTimeout)
	}

	sc := c.Sanctions
	if sc.MatchThreshold <= 0 || sc.MatchThreshold > 1 {
		add("sanctions.match_threshold %v must be in (0,1]", sc.MatchThreshold)
	}
	switch sc.Source {
	case "file":
		if sc.FilePath == "" {
			add("sanctions.file_path is required for the file source")
		}
	case "postgres":
		if c.Database.URL == "" {
			add("database.url is required for the postgres sanctions source")
		}
	default:
		add("sanctions.source %q must be file or postgres", sc.Source)
	}
	if sc.RefreshInterval <= 0 {
		add("sanctions.refresh_interval must be positive")
	}
	if sc.LookupTimeout <= 0 || sc.LookupTimeout > sc.RefreshInterval {
		add("sanctions.lookup_timeout must be positive and within refresh_interval")
	}
	if sc.MaxStaleness <= 0 {
		add("sanctions.max_staleness must be positive")
	}

	errs = append(errs, c.Risk.validate()...)

	if c.Anomaly.Timeout <= 0 || c.Anomaly.Timeout > s.CheckTimeout {
		add("anomaly.timeout must be positive and within screening.check_timeout")
	}
	errs = append(errs, c.Anomaly.Retry.validate("anomaly.retry")...)
	if c.Anomaly.FailureThreshold < 1 || c.Anomaly.SuccessThreshold < 1 {
		add("anomaly breaker thresholds must be at least 1")
	}
	if c.KYC.Timeout <= 0 || c.KYC.Timeout > s.CheckTimeout {
		add("kyc.timeout must be positive and within screening.check_timeout")
	}
	errs = append(errs, c.KYC.Retry.validate("kyc.retry")...)

	l := c.Ledger
	switch l.Backend {
	case "memory":
	case "file", "sqlite":
		if l.Path == "" {
			add("ledger.path is required for the %s backend", l.Backend)
		}
	case "postgres":
		if c.Database.URL == "" {
			add("database.url is required for the postgres ledger backend")
		}
	default:
		add("ledger.backend %q must be memory, file, sqlite or postgres", l.Backend)
	}
	if !oneOf(l.HashAlgorithm, "sha256", "blake2b-256") {
		add("ledger.hash_algorithm %q must be sha256 or blake2b-256", l.HashAlgorithm)
	}
	if l.AppendTimeout <= 0 {
		add("ledger.append_timeout must be positive")
	}
	if !oneOf(l.AnchorSink, "none", "log", "kafka") {
		add("ledger.anchor_sink %q must be none, log or kafka", l.AnchorSink)
	}
	if l.AnchorSink != "none" && l.AnchorInterval <= 0 {
		add("ledger.anchor_interval must be positive when anchoring is enabled")
	}
	if l.AnchorSink == "kafka" && (len(c.Kafka.Brokers) == 0 || l.AnchorTopic == "") {
		add("kafka anchoring requires kafka.brokers and ledger.anchor_topic")
	}

	d := c.Dispatch
	switch d.Sink {
	case "log":
	case "webhook":
		if d.WebhookURL == "" {
			add("dispatch.webhook_url is required for the webhook sink")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || d.Topic == "" {
			add("kafka dispatch requires kafka.brokers and dispatch.topic")
		}
	case "nats":
		if c.NATS.URL == "" || d.Topic == "" {
			add("nats dispatch requires nats.url and dispatch.topic")
		}
		if c.NATS.ReconnectWait <= 0 || c.NATS.ConnectTimeout <= 0 {
			add("nats.reconnect_wait and nats.connect_timeout must be positive")
		}
	default:
		add("dispatch.sink %q must be log, webhook, kafka or nats", d.Sink)
	}
	errs = append(errs, d.Retry.validate("dispatch.retry")...)
	if d.Timeout <= 0 {
		add("dispatch.timeout must be positive")
	}
	if d.Workers < 1 || d.QueueSize < 1 {
		add("dispatch.workers and dispatch.queue_size must be at least 1")
	}

	if rl := c.RateLimit; rl.Enabled {
		if rl.Requests < 1 || rl.Window <= 0 {
			add("rate_limit.requests and rate_limit.window must be positive")
		}
		if !oneOf(rl.Backend, "memory", "redis") {
			add("rate_limit.backend %q must be memory or redis", rl.Backend)
		}
		if rl.Backend == "redis" && c.Redis.URL == "" {
			add("redis.url is required for the redis rate limit backend")
		}
	}

	if c.Risk.History == "redis" && c.Redis.URL == "" {
		add("redis.url is required for the redis history backend")
	}

	return errors.Join(errs...)
}

func (r RiskConfig) validate() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	weights := map[string]float64{
		"amount":       r.Weights.Amount,
		"geography":    r.Weights.Geography,
		"velocity":     r.Weights.Velocity,
		"counterparty": r.Weights.Counterparty,
		"kyc":          r.Weights.KYC,
		"anomaly_max":  r.Weights.AnomalyMax,
	}
	for name, w := range weights {
		if w < 0 || w > 100 {
			add("risk.weights.%s %v must be in [0,100]", name, w)
		}
	}
	lv := r.Levels
	if !(lv.Medium > 0 && lv.Medium < lv.High && lv.High < lv.Critical && lv.Critical <= 100) {
		add("risk.levels must be strictly increasing within (0,100]: medium=%v high=%v critical=%v", lv.Medium, lv.High, lv.Critical)
	}
	if !r.DefaultAmountThreshold.IsPositive() {
		add("risk.default_amount_threshold must be positive")
	}
	for cur, th := range r.AmountThresholds {
		if !th.IsPositive() {
			add("risk.amount_thresholds.%s must be positive", cur)
		}
	}
	if r.StructuringBand <= 0 || r.StructuringBand >= 1 {
		add("risk.structuring_band %v must be in (0,1)", r.StructuringBand)
	}
	if r.StructuringFactor < 0 || r.StructuringFactor > 1 {
		add("risk.structuring_factor %v must be in [0,1]", r.StructuringFactor)
	}
	for country, tier := range r.CountryTiers {
		if !countryCode.MatchString(country) {
			add("risk.country_tiers key %q must be an ISO-3166 alpha-2 code", country)
		}
		if !validTier(tier) {
			add("risk.country_tiers.%s tier %q must be LOW, MEDIUM, HIGH or PROHIBITED", country, tier)
		}
	}
	if !validTier(r.DefaultCountryTier) {
		add("risk.default_country_tier %q must be LOW, MEDIUM, HIGH or PROHIBITED", r.DefaultCountryTier)
	}
	if r.VelocityWindow <= 0 || r.BaselineWindow <= r.VelocityWindow {
		add("risk.velocity_window must be positive and shorter than baseline_window")
	}
	if r.VelocityMultiplier <= 1 {
		add("risk.velocity_multiplier %v must be greater than 1", r.VelocityMultiplier)
	}
	if !oneOf(r.History, "memory", "redis") {
		add("risk.history %q must be memory or redis", r.History)
	}
	return errs
}

func (r RetryConfig) validate(prefix string) []error {
	var errs []error
	if r.MaxAttempts < 1 || r.MaxAttempts > 10 {
		errs = append(errs, fmt.Errorf("%s.max_attempts %d must be in [1,10]", prefix, r.MaxAttempts))
	}
	if r.InitialBackoff <= 0 || r.MaxBackoff < r.InitialBackoff {
		errs = append(errs, fmt.Errorf("%s backoff must satisfy 0 < initial_backoff <= max_backoff", prefix))
	}
	if r.MaxBackoff > time.Minute {
		errs = append(errs, fmt.Errorf("%s.max_backoff must not exceed 1m", prefix))
	}
	return errs
}

func validTier(t string) bool {
	return oneOf(t, TierLow, TierMedium, TierHigh, TierProhibited)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
