package models

import id "txguard/pkg/domain"

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskFactor is one weighted contribution to a score. Value is normalized to [0,1].
type RiskFactor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// RiskScore is produced once per transaction.
type RiskScore struct {
	TransactionID id.TransactionID `json:"transaction_id"`
	Score         float64          `json:"score"`
	Level         RiskLevel        `json:"level"`
	Factors       []RiskFactor     `json:"factors"`
	// Degraded is set when a collaborator was unavailable and its factor was
	// scored at maximum.
	Degraded bool `json:"degraded,omitempty"`
}

// KYC tiers and verification states reported by the identity service.
type (
	KYCRiskTier string
	KYCStatus   string
)

const (
	KYCTierLow    KYCRiskTier = "LOW"
	KYCTierMedium KYCRiskTier = "MEDIUM"
	KYCTierHigh   KYCRiskTier = "HIGH"

	KYCVerified   KYCStatus = "VERIFIED"
	KYCPending    KYCStatus = "PENDING"
	KYCUnverified KYCStatus = "UNVERIFIED"
	KYCRejected   KYCStatus = "REJECTED"
)

// KYCProfile is the identity service's view of a party.
type KYCProfile struct {
	PartyID            id.PartyID  `json:"party_id"`
	RiskTier           KYCRiskTier `json:"risk_tier"`
	VerificationStatus KYCStatus   `json:"verification_status"`
}
