package risk

import (
	"strings"

	"github.com/shopspring/decimal"

	"txguard/internal/compliance/models"
	"txguard/internal/platform/config"
)

// Factor names recorded on every RiskScore.
const (
	FactorAmount             = "amount"
	FactorGeography          = "geography"
	FactorVelocity           = "velocity"
	FactorCounterparty       = "counterparty"
	FactorKYC                = "kyc"
	FactorAnomaly            = "anomaly"
	FactorAnomalyUnavailable = "anomaly_unavailable"
	FactorScoringUnavailable = "scoring_unavailable"
)

var tierFactor = map[string]float64{
	config.TierLow:        0,
	config.TierMedium:     0.4,
	config.TierHigh:       0.7,
	config.TierProhibited: 1,
}

// amountFactor is amount/threshold capped at 1. Amounts just under the
// threshold score at least the structuring factor.
func amountFactor(amount decimal.Decimal, currency string, cfg config.RiskConfig) (float64, float64) {
	threshold, ok := cfg.AmountThresholds[currency]
	if !ok {
		threshold = cfg.DefaultAmountThreshold
	}
	ratio := amount.Div(threshold).InexactFloat64()
	if ratio >= 1 {
		return 1, ratio
	}
	if ratio >= cfg.StructuringBand && ratio < 1 && cfg.StructuringFactor > ratio {
		return cfg.StructuringFactor, ratio
	}
	return clamp(ratio, 0, 1), ratio
}

func countryTier(country string, cfg config.RiskConfig) string {
	if tier, ok := cfg.CountryTiers[strings.ToUpper(country)]; ok {
		return tier
	}
	return cfg.DefaultCountryTier
}

// geographyFactor takes the riskier of the two parties' countries.
func geographyFactor(sender, receiver string, cfg config.RiskConfig) float64 {
	a := tierFactor[countryTier(sender, cfg)]
	b := tierFactor[countryTier(receiver, cfg)]
	if a > b {
		return a
	}
	return b
}

// VelocityStats are a party's transaction counts around a transaction.
type VelocityStats struct {
	Recent   int64 // in the velocity window before the transaction
	Baseline int64 // in the rest of the baseline window
}

// velocityFactor compares the recent rate (including this transaction) with
// the baseline rate per window. Missing history scores 1.
func velocityFactor(stats *VelocityStats, cfg config.RiskConfig) (float64, float64) {
	if stats == nil {
		return 1, 0
	}
	windows := float64(cfg.BaselineWindow-cfg.VelocityWindow) / float64(cfg.VelocityWindow)
	perWindow := float64(stats.Baseline) / windows
	if perWindow < 1 {
		perWindow = 1
	}
	ratio := float64(stats.Recent+1) / perWindow
	return clamp((ratio-1)/(cfg.VelocityMultiplier-1), 0, 1), ratio
}

// counterpartyFactor scores the receiver's KYC risk tier.
func counterpartyFactor(receiver *models.KYCProfile) float64 {
	if receiver == nil {
		return 1
	}
	switch receiver.RiskTier {
	case models.KYCTierLow:
		return 0
	case models.KYCTierMedium:
		return 0.5
	default:
		return 1
	}
}

// kycFactor scores the weaker verification status of the two parties.
func kycFactor(sender, receiver *models.KYCProfile) float64 {
	worst := 0.0
	for _, p := range []*models.KYCProfile{sender, receiver} {
		v := 1.0
		if p != nil {
			switch p.VerificationStatus {
			case models.KYCVerified:
				v = 0
			case models.KYCPending:
				v = 0.5
			}
		}
		if v > worst {
			worst = v
		}
	}
	return worst
}
