// Package risk fuses rule-based factors with an external anomaly score into a
// 0-100 risk score and level. Collaborator failures always push the score up.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"txguard/internal/compliance/models"
	"txguard/internal/kyc"
	"txguard/internal/platform/config"
	"txguard/pkg/platform/sentinel"
)

// Inputs are the collaborator reads a score is computed from. A nil field
// means the collaborator could not answer.
type Inputs struct {
	Sender   *models.KYCProfile
	Receiver *models.KYCProfile
	Velocity *VelocityStats
}

// Scorer computes RiskScores. Weights and bands come from configuration.
type Scorer struct {
	cfg     config.RiskConfig
	kyc     kyc.Service
	history History
	anomaly AnomalyScorer
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

func WithMetrics(m *Metrics) Option {
	return func(s *Scorer) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScorer wires the scorer's collaborators. A nil anomaly scorer is treated
// as permanently unavailable.
func NewScorer(cfg config.RiskConfig, kycSvc kyc.Service, history History, anomaly AnomalyScorer, opts ...Option) *Scorer {
	s := &Scorer{
		cfg:     cfg,
		kyc:     kycSvc,
		history: history,
		anomaly: anomaly,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess gathers inputs and scores tx.
func (s *Scorer) Assess(ctx context.Context, tx models.Transaction) models.RiskScore {
	return s.Score(ctx, tx, s.Gather(ctx, tx))
}

// Gather reads both KYC profiles and the sender's velocity concurrently.
func (s *Scorer) Gather(ctx context.Context, tx models.Transaction) Inputs {
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in.Sender = s.profile(gctx, tx.Sender)
		return nil
	})
	g.Go(func() error {
		in.Receiver = s.profile(gctx, tx.Receiver)
		return nil
	})
	g.Go(func() error {
		in.Velocity = s.velocity(gctx, tx)
		return nil
	})
	_ = g.Wait()
	return in
}

func (s *Scorer) profile(ctx context.Context, party models.Party) *models.KYCProfile {
	if s.kyc == nil {
		return nil
	}
	p, err := s.kyc.Profile(ctx, party.ID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "kyc profile unavailable", "party_id", party.ID, "error", err)
		}
		return nil
	}
	return &p
}

func (s *Scorer) velocity(ctx context.Context, tx models.Transaction) *VelocityStats {
	if s.history == nil {
		return nil
	}
	at := tx.Timestamp
	recentFrom := at.Add(-s.cfg.VelocityWindow)
	recent, err := s.history.Count(ctx, tx.Sender.ID, recentFrom, at)
	if err != nil {
		s.logger.WarnContext(ctx, "velocity history unavailable", "party_id", tx.Sender.ID, "error", err)
		return nil
	}
	baseline, err := s.history.Count(ctx, tx.Sender.ID, at.Add(-s.cfg.BaselineWindow), recentFrom)
	if err != nil {
		s.logger.WarnContext(ctx, "velocity history unavailable", "party_id", tx.Sender.ID, "error", err)
		return nil
	}
	return &VelocityStats{Recent: recent, Baseline: baseline}
}

// Score computes clamp(0,100, sum(weight*factor) + anomaly). It is
// deterministic for fixed inputs and a fixed anomaly answer.
func (s *Scorer) Score(ctx context.Context, tx models.Transaction, in Inputs) models.RiskScore {
	w := s.cfg.Weights
	amount, amountRatio := amountFactor(tx.Amount, tx.Currency, s.cfg)
	velocity, velocityRatio := velocityFactor(in.Velocity, s.cfg)

	factors := []models.RiskFactor{
		factor(FactorAmount, w.Amount, amount),
		factor(FactorGeography, w.Geography, geographyFactor(tx.Sender.Country, tx.Receiver.Country, s.cfg)),
		factor(FactorVelocity, w.Velocity, velocity),
		factor(FactorCounterparty, w.Counterparty, counterpartyFactor(in.Receiver)),
		factor(FactorKYC, w.KYC, kycFactor(in.Sender, in.Receiver)),
	}
	ruleScore := 0.0
	for _, f := range factors {
		ruleScore += f.Contribution
	}

	degraded := in.Sender == nil || in.Receiver == nil || in.Velocity == nil
	anomalyScore, err := s.inferAnomaly(ctx, tx, Features{
		Amount:          tx.Amount.InexactFloat64(),
		AmountRatio:     amountRatio,
		Currency:        tx.Currency,
		Chain:           tx.Chain,
		SenderCountry:   tx.Sender.Country,
		ReceiverCountry: tx.Receiver.Country,
		VelocityRatio:   velocityRatio,
		RuleScore:       round2(ruleScore),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "anomaly model unavailable, scoring at maximum weight",
			"transaction_id", tx.ID,
			"error", err,
		)
		s.metrics.IncDegraded(FactorAnomalyUnavailable)
		factors = append(factors, factor(FactorAnomalyUnavailable, w.AnomalyMax, 1))
		degraded = true
	} else {
		factors = append(factors, factor(FactorAnomaly, w.AnomalyMax, anomalyScore))
	}

	total := 0.0
	for _, f := range factors {
		total += f.Contribution
	}
	score := round2(clamp(total, 0, 100))
	rs := models.RiskScore{
		TransactionID: tx.ID,
		Score:         score,
		Level:         Level(score, s.cfg.Levels),
		Factors:       factors,
		Degraded:      degraded,
	}
	s.metrics.ObserveScore(rs)
	return rs
}

var errNoAnomalyModel = errors.New("anomaly model not configured")

func (s *Scorer) inferAnomaly(ctx context.Context, tx models.Transaction, f Features) (float64, error) {
	if s.anomaly == nil {
		return 0, errNoAnomalyModel
	}
	v, err := s.anomaly.Infer(ctx, tx, f)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, models.NewExternalServiceError("anomaly", models.ErrorBadData, fmt.Errorf("score %v outside [0,1]", v))
	}
	return v, nil
}

func factor(name string, weight, value float64) models.RiskFactor {
	return models.RiskFactor{
		Name:         name,
		Weight:       weight,
		Value:        round2(value),
		Contribution: round2(weight * value),
	}
}
