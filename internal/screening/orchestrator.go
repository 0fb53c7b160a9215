// Package screening runs the per-transaction checks concurrently and joins
// their results. Every child has its own deadline and writes only its own slot;
// a child that misses its deadline is recorded as TIMEOUT.
package screening

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"txguard/internal/compliance/models"
	"txguard/internal/platform/config"
	"txguard/internal/risk"
)

const tracerName = "txguard/internal/screening"

// Results is the joined output of one transaction's fan-out.
type Results struct {
	Sender   models.ScreeningResult
	Receiver models.ScreeningResult
	Risk     models.RiskScore
}

// Sanctions returns the sanctions results in sender, receiver order.
func (r Results) Sanctions() []models.ScreeningResult {
	return []models.ScreeningResult{r.Sender, r.Receiver}
}

// Orchestrator owns the fan-out for each transaction it processes.
type Orchestrator struct {
	sanctions    SanctionsScreener
	risk         RiskAssessor
	checkTimeout time.Duration
	totalTimeout time.Duration
	metrics      *Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func New(sanctions SanctionsScreener, assessor RiskAssessor, cfg config.ScreeningConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sanctions:    sanctions,
		risk:         assessor,
		checkTimeout: cfg.CheckTimeout,
		totalTimeout: cfg.TotalTimeout,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process screens both parties and scores the transaction concurrently. It
// returns only once every check has produced a result or been timed out, and
// never returns an error: failures are folded into the results.
func (o *Orchestrator) Process(ctx context.Context, tx models.Transaction) Results {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "screening.Process",
		trace.WithAttributes(attribute.String("transaction_id", tx.ID.String())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.totalTimeout)
	defer cancel()

	var res Results
	var g errgroup.Group
	g.Go(func() error {
		res.Sender = o.screenParty(ctx, tx, models.CheckSanctionsSender, tx.Sender)
		return nil
	})
	g.Go(func() error {
		res.Receiver = o.screenParty(ctx, tx, models.CheckSanctionsReceiver, tx.Receiver)
		return nil
	})
	g.Go(func() error {
		res.Risk = o.score(ctx, tx)
		return nil
	})
	_ = g.Wait()

	o.metrics.ObserveProcess(time.Since(start))
	span.SetAttributes(
		attribute.String("sender_outcome", string(res.Sender.Outcome)),
		attribute.String("receiver_outcome", string(res.Receiver.Outcome)),
		attribute.Float64("risk_score", res.Risk.Score),
	)
	return res
}

func (o *Orchestrator) screenParty(ctx context.Context, tx models.Transaction, check models.CheckName, party models.Party) models.ScreeningResult {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "screening."+string(check))
	defer span.End()

	res, ok := runWithDeadline(ctx, o.checkTimeout, func(cctx context.Context) models.ScreeningResult {
		return o.sanctions.Screen(cctx, party)
	})
	if !ok {
		o.logger.WarnContext(ctx, "screening check timed out",
			"transaction_id", tx.ID,
			"check", check,
		)
		res = models.ScreeningResult{Outcome: models.OutcomeTimeout, Detail: "check deadline exceeded"}
	}
	res.TransactionID = tx.ID
	res.Check = check
	res.Latency = time.Since(start)

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	if !res.Outcome.Completed() {
		span.SetStatus(codes.Error, string(res.Outcome))
	}
	o.metrics.ObserveCheck(check, string(res.Outcome), res.Latency)
	return res
}

func (o *Orchestrator) score(ctx context.Context, tx models.Transaction) models.RiskScore {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "screening."+string(models.CheckRisk))
	defer span.End()

	rs, ok := runWithDeadline(ctx, o.checkTimeout, func(cctx context.Context) models.RiskScore {
		return o.risk.Assess(cctx, tx)
	})
	outcome := "completed"
	if !ok {
		o.logger.WarnContext(ctx, "risk scoring timed out, using maximal score",
			"transaction_id", tx.ID,
		)
		rs = risk.Unavailable(tx.ID)
		outcome = string(models.OutcomeTimeout)
		span.SetStatus(codes.Error, outcome)
	}
	rs.TransactionID = tx.ID

	span.SetAttributes(
		attribute.Float64("score", rs.Score),
		attribute.String("level", string(rs.Level)),
		attribute.Bool("degraded", rs.Degraded),
	)
	o.metrics.ObserveCheck(models.CheckRisk, outcome, time.Since(start))
	return rs
}

// runWithDeadline runs fn under its own timeout. It reports false when the
// deadline (or the parent context) ends first; fn's late result is dropped.
func runWithDeadline[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) T) (T, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan T, 1)
	go func() {
		done <- fn(cctx)
	}()

	select {
	case v := <-done:
		if cctx.Err() != nil {
			var zero T
			return zero, false
		}
		return v, true
	case <-cctx.Done():
		var zero T
		return zero, false
	}
}
