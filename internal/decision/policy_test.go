package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
)

const threshold = 0.85

var decidedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func sr(check models.CheckName, outcome models.Outcome, confidence float64) models.ScreeningResult {
	return models.ScreeningResult{TransactionID: "tx-1", Check: check, Outcome: outcome, Confidence: confidence}
}

func sender(o models.Outcome, c float64) models.ScreeningResult {
	return sr(models.CheckSanctionsSender, o, c)
}

func receiver(o models.Outcome, c float64) models.ScreeningResult {
	return sr(models.CheckSanctionsReceiver, o, c)
}

func score(level models.RiskLevel, v float64) models.RiskScore {
	return models.RiskScore{TransactionID: "tx-1", Score: v, Level: level}
}

var (
	allOutcomes = []models.Outcome{models.OutcomeMatch, models.OutcomeNoMatch, models.OutcomeError, models.OutcomeTimeout}
	allLevels   = []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical}
)

func TestDecide_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		sanctions   []models.ScreeningResult
		risk        models.RiskScore
		wantStatus  models.VerdictStatus
		wantReasons []models.Reason
		wantActions []models.Action
	}{
		{
			name:        "clean transaction clears",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeNoMatch, 0.2), receiver(models.OutcomeNoMatch, 0.1)},
			risk:        score(models.RiskLow, 40),
			wantStatus:  models.VerdictClear,
			wantReasons: []models.Reason{models.ReasonAllChecksPassed},
			wantActions: []models.Action{},
		},
		{
			name:        "receiver match blocks despite low risk",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeNoMatch, 0.2), receiver(models.OutcomeMatch, 0.92)},
			risk:        score(models.RiskLow, 40),
			wantStatus:  models.VerdictBlock,
			wantReasons: []models.Reason{models.ReasonSanctionsMatch},
			wantActions: []models.Action{models.ActionBlockTransaction, models.ActionFileSanctionsReport},
		},
		{
			name:        "sender timeout blocks",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeTimeout, 0), receiver(models.OutcomeNoMatch, 0.1)},
			risk:        score(models.RiskLow, 10),
			wantStatus:  models.VerdictBlock,
			wantReasons: []models.Reason{models.ReasonScreeningUnavailable},
			wantActions: []models.Action{models.ActionBlockTransaction, models.ActionInvestigateScreening},
		},
		{
			name:        "match and outage report both in sender-receiver order",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeError, 0), receiver(models.OutcomeMatch, 1)},
			risk:        score(models.RiskLow, 10),
			wantStatus:  models.VerdictBlock,
			wantReasons: []models.Reason{models.ReasonScreeningUnavailable, models.ReasonSanctionsMatch},
			wantActions: []models.Action{models.ActionBlockTransaction, models.ActionInvestigateScreening, models.ActionFileSanctionsReport},
		},
		{
			name:        "match below threshold does not block",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeMatch, 0.80), receiver(models.OutcomeNoMatch, 0)},
			risk:        score(models.RiskMedium, 60),
			wantStatus:  models.VerdictClear,
			wantReasons: []models.Reason{models.ReasonAllChecksPassed},
			wantActions: []models.Action{},
		},
		{
			name:        "high risk flags",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeNoMatch, 0), receiver(models.OutcomeNoMatch, 0)},
			risk:        score(models.RiskHigh, 90),
			wantStatus:  models.VerdictFlag,
			wantReasons: []models.Reason{models.ReasonHighRisk},
			wantActions: []models.Action{models.ActionManualReview},
		},
		{
			name:        "critical risk flags",
			sanctions:   []models.ScreeningResult{sender(models.OutcomeNoMatch, 0), receiver(models.OutcomeNoMatch, 0)},
			risk:        score(models.RiskCritical, 100),
			wantStatus:  models.VerdictFlag,
			wantReasons: []models.Reason{models.ReasonHighRisk},
			wantActions: []models.Action{models.ActionManualReview},
		},
		{
			name:        "no sanctions results blocks",
			risk:        score(models.RiskLow, 0),
			wantStatus:  models.VerdictBlock,
			wantReasons: []models.Reason{models.ReasonScreeningUnavailable},
			wantActions: []models.Action{models.ActionBlockTransaction, models.ActionInvestigateScreening},
		},
		{
			name:        "unknown outcome fails closed",
			sanctions:   []models.ScreeningResult{sender("SKIPPED", 0), receiver(models.OutcomeNoMatch, 0)},
			risk:        score(models.RiskLow, 0),
			wantStatus:  models.VerdictBlock,
			wantReasons: []models.Reason{models.ReasonScreeningUnavailable},
			wantActions: []models.Action{models.ActionBlockTransaction, models.ActionInvestigateScreening},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Decide(tt.sanctions, tt.risk, threshold, decidedAt)
			assert.Equal(t, id.TransactionID("tx-1"), v.TransactionID)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantReasons, v.Reasons)
			assert.Equal(t, tt.wantActions, v.Actions)
			assert.Equal(t, decidedAt, v.DecidedAt)
		})
	}
}

func TestDecide_FailClosedForEveryRiskLevel(t *testing.T) {
	for _, level := range allLevels {
		for _, bad := range []models.Outcome{models.OutcomeError, models.OutcomeTimeout} {
			for _, other := range allOutcomes {
				for _, pair := range [][]models.ScreeningResult{
					{sender(bad, 0), receiver(other, 0.5)},
					{sender(other, 0.5), receiver(bad, 0)},
				} {
					v := Decide(pair, score(level, 0), threshold, decidedAt)
					assert.Equal(t, models.VerdictBlock, v.Status, "level=%s bad=%s other=%s", level, bad, other)
				}
			}
		}
	}
}

func TestDecide_SanctionsMatchDominates(t *testing.T) {
	for _, level := range allLevels {
		for _, other := range allOutcomes {
			v := Decide([]models.ScreeningResult{sender(other, 0.3), receiver(models.OutcomeMatch, threshold)}, score(level, 0), threshold, decidedAt)
			assert.Equal(t, models.VerdictBlock, v.Status)
			assert.Contains(t, v.Reasons, models.ReasonSanctionsMatch)
		}
	}
}

func TestDecide_IsDeterministic(t *testing.T) {
	for _, level := range allLevels {
		for _, a := range allOutcomes {
			for _, b := range allOutcomes {
				in := []models.ScreeningResult{sender(a, 0.9), receiver(b, 0.9)}
				first := Decide(in, score(level, 50), threshold, decidedAt)
				second := Decide(in, score(level, 50), threshold, decidedAt)
				assert.Equal(t, first, second)
			}
		}
	}
}
