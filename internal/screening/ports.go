package screening

import (
	"context"

	"txguard/internal/compliance/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// SanctionsScreener screens one party against the current sanctions list.
type SanctionsScreener interface {
	Screen(ctx context.Context, party models.Party) models.ScreeningResult
}

// RiskAssessor produces a transaction's risk score. It must not fail; collaborator
// failures are folded into a degraded score.
type RiskAssessor interface {
	Assess(ctx context.Context, tx models.Transaction) models.RiskScore
}
