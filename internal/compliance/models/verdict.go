package models

import (
	"time"

	id "txguard/pkg/domain"
)

type VerdictStatus string

const (
	VerdictClear VerdictStatus = "CLEAR"
	VerdictFlag  VerdictStatus = "FLAG"
	VerdictBlock VerdictStatus = "BLOCK"
)

// Reason codes are stable identifiers consumed by downstream reporting.
type Reason string

const (
	ReasonSanctionsMatch       Reason = "sanctions_match"
	ReasonScreeningUnavailable Reason = "screening_unavailable"
	ReasonHighRisk             Reason = "high_risk"
	ReasonAllChecksPassed      Reason = "all_checks_passed"
)

type Action string

const (
	ActionBlockTransaction     Action = "block_transaction"
	ActionFileSanctionsReport  Action = "file_sanctions_report"
	ActionManualReview         Action = "manual_review"
	ActionInvestigateScreening Action = "investigate_screening_outage"
)

// Verdict is derived deterministically from screening results and the risk score.
type Verdict struct {
	TransactionID id.TransactionID `json:"transaction_id"`
	Status        VerdictStatus    `json:"verdict"`
	Reasons       []Reason         `json:"reasons"`
	Actions       []Action         `json:"required_actions"`
	DecidedAt     time.Time        `json:"decided_at"`
}

// RequiresAction reports whether downstream collaborators must be notified.
func (v Verdict) RequiresAction() bool {
	return v.Status == VerdictFlag || v.Status == VerdictBlock
}

// AuditRecord is one link of the ledger's hash chain.
type AuditRecord struct {
	Seq           uint64           `json:"seq"`
	TransactionID id.TransactionID `json:"transaction_id"`
	PayloadHash   string           `json:"payload_hash"`
	PrevHash      string           `json:"prev_hash"`
	RecordHash    string           `json:"record_hash"`
	Timestamp     time.Time        `json:"timestamp"`
	// Payload holds the exact canonical bytes that PayloadHash covers.
	Payload []byte `json:"payload"`
}
