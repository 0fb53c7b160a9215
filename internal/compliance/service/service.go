// Package service is the outward face of the compliance core: submit a
// transaction for a verdict, look up its audit record, verify the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"txguard/internal/compliance/models"
	"txguard/internal/decision"
	"txguard/internal/decision/metrics"
	"txguard/internal/dispatch"
	"txguard/internal/ledger"
	id "txguard/pkg/domain"
	dErrors "txguard/pkg/domain-errors"
	"txguard/pkg/platform/sentinel"
	"txguard/pkg/requestcontext"
)

const tracerName = "txguard/internal/compliance/service"

// Result is everything Submit learned about one transaction.
type Result struct {
	Verdict   models.Verdict
	Sanctions []models.ScreeningResult
	Risk      models.RiskScore
	Record    models.AuditRecord
	Dispatch  dispatch.DispatchResult
}

// VerifyResult reports a ledger verification.
type VerifyResult struct {
	Valid           bool
	From            uint64
	To              uint64
	Checked         uint64
	FirstInvalidSeq *uint64
	Reason          string
}

type Service struct {
	screener  Screener
	ledger    Ledger
	history   VelocityRecorder
	notifier  Notifier
	threshold float64
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every decided transaction for velocity scoring.
func WithHistory(h VelocityRecorder) Option {
	return func(s *Service) { s.history = h }
}

// WithNotifier forwards FLAG and BLOCK verdicts after they are recorded.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock sets the clock that stamps screening start and decision time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the service. threshold is the sanctions match threshold the
// verdict policy applies.
func New(screener Screener, l Ledger, threshold float64, opts ...Option) *Service {
	s := &Service{
		screener:  screener,
		ledger:    l,
		threshold: threshold,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates, screens and decides tx, then records the verdict in the
// ledger. No verdict is returned unless its audit record is durable.
func (s *Service) Submit(ctx context.Context, tx models.Transaction) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.Submit",
		trace.WithAttributes(attribute.String("transaction_id", tx.ID.String())))
	defer span.End()

	if err := tx.Validate(requestcontext.Now(ctx)); err != nil {
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	agg := decision.NewAggregation(tx.ID, s.threshold, s.metrics)
	if err := agg.BeginScreening(s.now()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "aggregation failed")
	}

	results := s.screener.Process(ctx, tx)
	if err := ctx.Err(); err != nil {
		// The caller is gone; nothing was decided or recorded.
		span.SetStatus(codes.Error, "cancelled")
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "submission cancelled before a verdict was recorded")
	}

	sanctions := results.Sanctions()
	if err := agg.RecordResults(sanctions, results.Risk); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "aggregation failed")
	}
	verdict, err := agg.Decide(s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "aggregation failed")
	}
	span.SetAttributes(attribute.String("verdict", string(verdict.Status)))

	rec, err := s.ledger.Append(ctx, ledger.Entry{
		Transaction: tx,
		Sanctions:   sanctions,
		Risk:        results.Risk,
		Verdict:     verdict,
	})
	if err != nil {
		span.SetStatus(codes.Error, "ledger append failed")
		s.logger.ErrorContext(ctx, "CRITICAL: verdict withheld, audit record not durable",
			"request_id", requestcontext.RequestID(ctx),
			"transaction_id", tx.ID,
			"verdict", verdict.Status,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit ledger unavailable; transaction not cleared")
	}

	if s.history != nil {
		if err := s.history.Record(ctx, tx.Sender.ID, tx.ID, tx.Timestamp); err != nil {
			s.logger.WarnContext(ctx, "velocity history not updated",
				"transaction_id", tx.ID,
				"error", err,
			)
		}
	}

	res := &Result{
		Verdict:   verdict,
		Sanctions: sanctions,
		Risk:      results.Risk,
		Record:    rec,
	}
	if s.notifier != nil {
		res.Dispatch = s.notifier.Enqueue(dispatch.NewNotification(verdict, rec, verdict.DecidedAt))
	}

	s.logger.InfoContext(ctx, "transaction screened",
		"request_id", requestcontext.RequestID(ctx),
		"transaction_id", tx.ID,
		"verdict", verdict.Status,
		"reasons", verdict.Reasons,
		"risk_score", results.Risk.Score,
		"risk_level", results.Risk.Level,
		"audit_seq", rec.Seq,
	)
	return res, nil
}

// GetAuditRecord returns the latest audit record for txID.
func (s *Service) GetAuditRecord(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error) {
	if txID.IsNil() {
		return models.AuditRecord{}, dErrors.New(dErrors.CodeValidation, "transaction id is required")
	}
	rec, err := s.ledger.GetByTransaction(ctx, txID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.AuditRecord{}, dErrors.Wrap(err, dErrors.CodeNotFound, "no audit record for transaction")
		}
		return models.AuditRecord{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit ledger unavailable")
	}
	return rec, nil
}

// VerifyLedger recomputes the chain over [from, to], or the whole ledger when
// both are nil. A broken chain is reported in the result together with an
// error carrying CodeIntegrityViolation.
func (s *Service) VerifyLedger(ctx context.Context, from, to *uint64) (VerifyResult, error) {
	var (
		report ledger.Report
		err    error
	)
	switch {
	case from == nil && to == nil:
		report, err = s.ledger.VerifyAll(ctx)
	case from == nil || to == nil:
		return VerifyResult{}, dErrors.New(dErrors.CodeBadRequest, "from and to must be given together")
	default:
		report, err = s.ledger.Verify(ctx, *from, *to)
	}

	result := VerifyResult{
		Valid:           report.Valid,
		From:            report.From,
		To:              report.To,
		Checked:         report.Checked,
		FirstInvalidSeq: report.FirstInvalidSeq,
	}
	if err == nil {
		return result, nil
	}

	var ie *ledger.IntegrityError
	if errors.As(err, &ie) {
		result.Reason = ie.Reason
		s.logger.ErrorContext(ctx, "CRITICAL: ledger verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"seq", ie.Seq,
			"reason", ie.Reason,
		)
		return result, dErrors.Wrap(err, dErrors.CodeIntegrityViolation,
			fmt.Sprintf("ledger integrity violation at seq %d", ie.Seq))
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return VerifyResult{}, err
	}
	return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit ledger unavailable")
}
