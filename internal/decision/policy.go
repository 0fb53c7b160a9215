package decision

import (
	"slices"
	"time"

	"txguard/internal/compliance/models"
)

// Decide applies the screening policy. This is pure domain logic: no I/O, and
// identical inputs always yield an identical verdict.
//
// Rule priority:
//  1. A sanctions MATCH at or above threshold blocks, whatever the risk score.
//  2. A sanctions check that did not complete blocks (fail closed).
//  3. A HIGH or CRITICAL risk level flags for manual review.
//  4. Otherwise the transaction is cleared.
//
// Sanctions results are expected in sender, receiver order; reasons follow it.
func Decide(sanctions []models.ScreeningResult, score models.RiskScore, threshold float64, decidedAt time.Time) models.Verdict {
	v := models.Verdict{
		TransactionID: score.TransactionID,
		DecidedAt:     decidedAt.UTC(),
	}
	if len(sanctions) > 0 && v.TransactionID.IsNil() {
		v.TransactionID = sanctions[0].TransactionID
	}

	// Missing sanctions results can never clear a transaction.
	if len(sanctions) == 0 {
		v.Status = models.VerdictBlock
		v.Reasons = []models.Reason{models.ReasonScreeningUnavailable}
		v.Actions = []models.Action{models.ActionBlockTransaction, models.ActionInvestigateScreening}
		return v
	}

	for _, r := range sanctions {
		switch {
		case r.Outcome == models.OutcomeMatch && r.Confidence >= threshold:
			v.Status = models.VerdictBlock
			v.Reasons = appendUnique(v.Reasons, models.ReasonSanctionsMatch)
			v.Actions = appendUnique(v.Actions, models.ActionBlockTransaction, models.ActionFileSanctionsReport)
		case r.Outcome == models.OutcomeMatch, r.Outcome == models.OutcomeNoMatch:
			// completed below threshold
		default:
			v.Status = models.VerdictBlock
			v.Reasons = appendUnique(v.Reasons, models.ReasonScreeningUnavailable)
			v.Actions = appendUnique(v.Actions, models.ActionBlockTransaction, models.ActionInvestigateScreening)
		}
	}
	if v.Status == models.VerdictBlock {
		return v
	}

	switch score.Level {
	case models.RiskHigh, models.RiskCritical:
		v.Status = models.VerdictFlag
		v.Reasons = []models.Reason{models.ReasonHighRisk}
		v.Actions = []models.Action{models.ActionManualReview}
	case models.RiskLow, models.RiskMedium:
		v.Status = models.VerdictClear
		v.Reasons = []models.Reason{models.ReasonAllChecksPassed}
		v.Actions = []models.Action{}
	default:
		// an unrecognized level is not evidence of low risk
		v.Status = models.VerdictFlag
		v.Reasons = []models.Reason{models.ReasonHighRisk}
		v.Actions = []models.Action{models.ActionManualReview}
	}
	return v
}

func appendUnique[T comparable](s []T, vals ...T) []T {
	for _, v := range vals {
		if !slices.Contains(s, v) {
			s = append(s, v)
		}
	}
	return s
}
