package risk

import (
	"context"
	"time"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Features are the rule-derived inputs handed to the anomaly model.
type Features struct {
	Amount          float64 `json:"amount"`
	AmountRatio     float64 `json:"amount_ratio"`
	Currency        string  `json:"currency"`
	Chain           string  `json:"chain,omitempty"`
	SenderCountry   string  `json:"sender_country,omitempty"`
	ReceiverCountry string  `json:"receiver_country,omitempty"`
	VelocityRatio   float64 `json:"velocity_ratio"`
	RuleScore       float64 `json:"rule_score"`
}

// AnomalyScorer infers a normalized anomaly score in [0,1].
type AnomalyScorer interface {
	Infer(ctx context.Context, tx models.Transaction, features Features) (float64, error)
}

// History counts a party's past transactions for velocity scoring.
type History interface {
	Record(ctx context.Context, partyID id.PartyID, txID id.TransactionID, at time.Time) error
	Count(ctx context.Context, partyID id.PartyID, from, to time.Time) (int64, error)
}
