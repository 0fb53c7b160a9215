package models

import (
	"time"

	id "txguard/pkg/domain"
)

// CheckName identifies one check in the per-transaction fan-out.
type CheckName string

const (
	CheckSanctionsSender   CheckName = "sanctions_sender"
	CheckSanctionsReceiver CheckName = "sanctions_receiver"
	CheckRisk              CheckName = "risk_score"
)

// Outcome is the normalized result of a check.
type Outcome string

const (
	OutcomeMatch   Outcome = "MATCH"
	OutcomeNoMatch Outcome = "NO_MATCH"
	OutcomeError   Outcome = "ERROR"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Completed reports whether the check ran to a definite answer.
func (o Outcome) Completed() bool {
	return o == OutcomeMatch || o == OutcomeNoMatch
}

// ScreeningResult is produced once per (transaction, check).
type ScreeningResult struct {
	TransactionID id.TransactionID `json:"transaction_id"`
	Check         CheckName        `json:"check"`
	Outcome       Outcome          `json:"outcome"`
	Confidence    float64          `json:"confidence"`
	Latency       time.Duration    `json:"latency"`
	MatchedEntry  string           `json:"matched_entry,omitempty"`
	Program       string           `json:"program,omitempty"`
	ListVersion   uint64           `json:"list_version,omitempty"`
	Detail        string           `json:"detail,omitempty"`
}

// SanctionsEntry is one listed entity. Read-only to the core.
type SanctionsEntry struct {
	Name        string       `json:"name" yaml:"name"`
	Aliases     []string     `json:"aliases,omitempty" yaml:"aliases"`
	Identifiers []Identifier `json:"identifiers,omitempty" yaml:"identifiers"`
	Program     string       `json:"program,omitempty" yaml:"program"`
	ListedAt    time.Time    `json:"listed_at,omitempty" yaml:"listed_at"`
}
