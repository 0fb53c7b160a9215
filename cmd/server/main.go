package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"txguard/internal/compliance/handler"
	"txguard/internal/compliance/service"
	decisionmetrics "txguard/internal/decision/metrics"
	"txguard/internal/dispatch"
	"txguard/internal/kyc"
	"txguard/internal/ledger"
	"txguard/internal/ledger/backend"
	"txguard/internal/platform/config"
	"txguard/internal/platform/httpserver"
	"txguard/internal/platform/kafka"
	"txguard/internal/platform/logger"
	"txguard/internal/platform/metrics"
	natsconn "txguard/internal/platform/nats"
	"txguard/internal/platform/postgres"
	"txguard/internal/platform/redis"
	"txguard/internal/ratelimit"
	"txguard/internal/risk"
	"txguard/internal/risk/anomaly"
	"txguard/internal/risk/history"
	"txguard/internal/sanctions"
	"txguard/internal/sanctions/sources"
	"txguard/internal/screening"
	httptransport "txguard/internal/transport/http"
	"txguard/pkg/platform/circuit"
	"txguard/pkg/platform/middleware/auth"
)

// main loads configuration, wires the screening pipeline and serves HTTP
// until SIGINT or SIGTERM. Business logic lives in internal packages.
func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $TXGUARD_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "txguard: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("txguard exited", "error", err)
		os.Exit(1)
	}
}

// app holds the long-running components started by run.
type app struct {
	refresher  *sanctions.Refresher
	watch      func(ctx context.Context) error
	anchorer   *ledger.Anchorer
	dispatcher *dispatch.Dispatcher
	server     *http.Server
	closers    []func() error
}

func (a *app) close(log *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("failed to close dependency", "error", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := build(ctx, cfg, log)
	if a != nil {
		defer a.close(log)
	}
	if err != nil {
		return err
	}

	// Prime the snapshot so the first requests are not screened against an
	// empty list; a failure here leaves sanctions UNAVAILABLE until a refresh succeeds.
	if err := a.refresher.Refresh(ctx); err != nil {
		log.Warn("initial sanctions load failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.refresher.Run(gctx) })
	if a.watch != nil {
		g.Go(func() error { return a.watch(gctx) })
	}
	if a.anchorer != nil {
		g.Go(func() error { return a.anchorer.Run(gctx) })
	}
	g.Go(func() error { return a.dispatcher.Run(gctx) })
	g.Go(func() error { return httpserver.Run(gctx, a.server, cfg.Server, log) })

	log.Info("starting txguard",
		"addr", cfg.Server.Addr,
		"ledger_backend", cfg.Ledger.Backend,
		"sanctions_source", cfg.Sanctions.Source,
		"dispatch_sink", cfg.Dispatch.Sink,
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("txguard stopped")
	return nil
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	var health []httptransport.HealthCheck

	// Kafka is shared by the anchor and dispatch sinks.
	var kafkaClient *kgo.Client
	if cfg.Ledger.AnchorSink == "kafka" || cfg.Dispatch.Sink == "kafka" {
		client, err := kafka.NewClient(cfg.Kafka)
		if err != nil {
			return a, fmt.Errorf("connect kafka: %w", err)
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		topics := make([]string, 0, 2)
		if cfg.Ledger.AnchorSink == "kafka" {
			topics = append(topics, cfg.Ledger.AnchorTopic)
		}
		if cfg.Dispatch.Sink == "kafka" {
			topics = append(topics, cfg.Dispatch.Topic)
		}
		if err := kafka.EnsureTopics(ctx, client, 1, topics...); err != nil {
			return a, fmt.Errorf("ensure kafka topics: %w", err)
		}
		kafkaClient = client
	}

	// Sanctions list.
	var provider sanctions.Provider
	switch cfg.Sanctions.Source {
	case "postgres":
		pool, err := postgres.OpenPool(ctx, cfg.Database)
		if err != nil {
			return a, fmt.Errorf("open sanctions database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		src := sources.NewPostgres(pool)
		if err := src.EnsureSchema(ctx); err != nil {
			return a, fmt.Errorf("prepare sanctions schema: %w", err)
		}
		provider = src
		health = append(health, httptransport.HealthCheck{Name: "sanctions_db", Check: pool.Ping})
	default:
		src := sources.NewFile(cfg.Sanctions.FilePath)
		provider = src
		a.watch = func(ctx context.Context) error {
			return src.Watch(ctx, func() { a.refresher.Trigger() }, log)
		}
	}
	holder := sanctions.NewHolder()
	sanctionsMetrics := sanctions.NewMetrics()
	a.refresher = sanctions.NewRefresher(provider, holder, cfg.Sanctions.RefreshInterval,
		sanctions.WithLookupTimeout(cfg.Sanctions.LookupTimeout),
		sanctions.WithRefresherMetrics(sanctionsMetrics),
		sanctions.WithRefresherLogger(log),
	)
	matcher := sanctions.NewMatcher(holder, cfg.Sanctions.MatchThreshold,
		sanctions.WithMaxStaleness(cfg.Sanctions.MaxStaleness),
		sanctions.WithMetrics(sanctionsMetrics),
		sanctions.WithLogger(log),
	)

	// Risk inputs.
	var kycSvc kyc.Service = kyc.NewMemoryStore()
	if cfg.KYC.URL != "" {
		kycSvc = kyc.NewClient(cfg.KYC.URL, cfg.KYC.Timeout, cfg.KYC.Retry.Policy(), nil)
	} else {
		log.Warn("kyc.url not set, using empty in-memory KYC store")
	}

	var model risk.AnomalyScorer
	if cfg.Anomaly.URL != "" {
		breaker := circuit.New("anomaly",
			circuit.WithFailureThreshold(cfg.Anomaly.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Anomaly.SuccessThreshold),
			circuit.WithCooldown(cfg.Anomaly.Cooldown),
		)
		model = anomaly.New(cfg.Anomaly.URL, cfg.Anomaly.Timeout, cfg.Anomaly.Retry.Policy(),
			anomaly.WithBreaker(breaker),
			anomaly.WithLogger(log),
		)
	} else {
		log.Warn("anomaly.url not set, anomaly scoring runs degraded")
	}

	// Redis backs velocity history and the rate limiter when either asks for it.
	var rc *redis.Client
	if cfg.Risk.History == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis") {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return a, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		health = append(health, httptransport.HealthCheck{Name: "redis", Check: client.Health})
		rc = client
	}

	var velocity risk.History
	if cfg.Risk.History == "redis" {
		velocity = history.NewRedis(rc.Client, cfg.Risk.BaselineWindow)
	} else {
		velocity = history.NewMemory(cfg.Risk.BaselineWindow)
	}

	scorer := risk.NewScorer(cfg.Risk, kycSvc, velocity, model,
		risk.WithMetrics(risk.NewMetrics()),
		risk.WithLogger(log),
	)
	orchestrator := screening.New(matcher, scorer, cfg.Screening,
		screening.WithMetrics(screening.NewMetrics()),
		screening.WithLogger(log),
	)

	// Ledger.
	ledgerMetrics := ledger.NewMetrics()
	l, closeLedger, err := backend.Open(ctx, cfg,
		ledger.WithMetrics(ledgerMetrics),
		ledger.WithLogger(log),
	)
	if err != nil {
		return a, fmt.Errorf("open ledger: %w", err)
	}
	a.closers = append(a.closers, closeLedger)
	health = append(health, httptransport.HealthCheck{Name: "ledger", Check: func(context.Context) error {
		if ierr, bad := l.Compromised(); bad {
			return ierr
		}
		return nil
	}})

	switch cfg.Ledger.AnchorSink {
	case "log":
		a.anchorer = ledger.NewAnchorer(l, ledger.NewLogSink(log), cfg.Ledger.AnchorInterval,
			ledger.WithAnchorMetrics(ledgerMetrics), ledger.WithAnchorLogger(log))
	case "kafka":
		a.anchorer = ledger.NewAnchorer(l, ledger.NewKafkaSink(kafkaClient, cfg.Ledger.AnchorTopic, "txguard"),
			cfg.Ledger.AnchorInterval, ledger.WithAnchorMetrics(ledgerMetrics), ledger.WithAnchorLogger(log))
	}

	// Alert dispatch.
	var sink dispatch.Sink
	switch cfg.Dispatch.Sink {
	case "webhook":
		sink = dispatch.NewWebhookSink(cfg.Dispatch.WebhookURL, nil)
	case "kafka":
		sink = dispatch.NewKafkaSink(kafkaClient, cfg.Dispatch.Topic)
	case "nats":
		conn, err := natsconn.Connect(cfg.NATS, log)
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, conn.Drain)
		health = append(health, httptransport.HealthCheck{Name: "nats", Check: func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New("nats not connected")
			}
			return nil
		}})
		sink = dispatch.NewNATSSink(conn, cfg.Dispatch.Topic)
	default:
		sink = dispatch.NewLogSink(log)
	}
	a.dispatcher = dispatch.New(sink, cfg.Dispatch.Retry.Policy(),
		dispatch.WithMetrics(dispatch.NewMetrics()),
		dispatch.WithLogger(log),
		dispatch.WithAttemptTimeout(cfg.Dispatch.Timeout),
		dispatch.WithQueue(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize),
	)

	svc := service.New(orchestrator, l, cfg.Sanctions.MatchThreshold,
		service.WithHistory(velocity),
		service.WithNotifier(a.dispatcher),
		service.WithMetrics(decisionmetrics.New()),
		service.WithLogger(log),
	)

	var validator auth.JWTValidator
	if cfg.Server.JWTSigningKey != "" {
		validator = auth.NewHS256(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	} else {
		log.Warn("server.jwt_signing_key not set, /v1 is served without authentication")
	}

	var limit func(http.Handler) http.Handler
	if rl := cfg.RateLimit; rl.Enabled {
		var store ratelimit.Store = ratelimit.NewMemory()
		if rl.Backend == "redis" {
			store = ratelimit.NewRedis(rc.Client)
		}
		limit = ratelimit.New(store, rl.Requests, rl.Window,
			ratelimit.WithMetrics(ratelimit.NewMetrics()),
			ratelimit.WithLogger(log),
		).Handler
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Compliance: handler.New(svc, log),
		Metrics:    metrics.New(),
		Auth:       validator,
		RateLimit:  limit,
		Health:     health,
		Logger:     log,
	})
	a.server = httpserver.New(cfg.Server, router)
	return a, nil
}
