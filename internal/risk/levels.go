package risk

import (
	"math"

	"txguard/internal/compliance/models"
	"txguard/internal/platform/config"
	id "txguard/pkg/domain"
)

// Level maps a score to its band. Bounds are inclusive lower limits.
func Level(score float64, levels config.RiskLevels) models.RiskLevel {
	switch {
	case score >= levels.Critical:
		return models.RiskCritical
	case score >= levels.High:
		return models.RiskHigh
	case score >= levels.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Unavailable is the score used when scoring could not finish: maximal and flagged.
func Unavailable(txID id.TransactionID) models.RiskScore {
	return models.RiskScore{
		TransactionID: txID,
		Score:         100,
		Level:         models.RiskCritical,
		Factors: []models.RiskFactor{
			{Name: FactorScoringUnavailable, Weight: 100, Value: 1, Contribution: 100},
		},
		Degraded: true,
	}
}
