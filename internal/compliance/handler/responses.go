package handler

import (
	"time"

	"txguard/internal/compliance/models"
	"txguard/internal/compliance/service"
)

// ScreenResponse is the HTTP response for POST /v1/transactions/screen.
type ScreenResponse struct {
	TransactionID   string           `json:"transaction_id"`
	Verdict         string           `json:"verdict"`
	Reasons         []string         `json:"reasons"`
	RequiredActions []string         `json:"required_actions"`
	DecidedAt       time.Time        `json:"decided_at"`
	Risk            RiskResponse     `json:"risk"`
	Sanctions       []CheckResponse  `json:"sanctions"`
	Audit           AuditRefResponse `json:"audit"`
	Dispatch        string           `json:"dispatch"`
}

type RiskResponse struct {
	Score    float64             `json:"score"`
	Level    string              `json:"level"`
	Degraded bool                `json:"degraded"`
	Factors  []models.RiskFactor `json:"factors"`
}

type CheckResponse struct {
	Check        string  `json:"check"`
	Outcome      string  `json:"outcome"`
	Confidence   float64 `json:"confidence"`
	MatchedEntry string  `json:"matched_entry,omitempty"`
	Program      string  `json:"program,omitempty"`
	ListVersion  uint64  `json:"list_version,omitempty"`
}

type AuditRefResponse struct {
	Seq        uint64 `json:"seq"`
	RecordHash string `json:"record_hash"`
}

// FromResult converts a service result to an HTTP response.
func FromResult(r *service.Result) *ScreenResponse {
	resp := &ScreenResponse{
		TransactionID:   r.Verdict.TransactionID.String(),
		Verdict:         string(r.Verdict.Status),
		Reasons:         make([]string, 0, len(r.Verdict.Reasons)),
		RequiredActions: make([]string, 0, len(r.Verdict.Actions)),
		DecidedAt:       r.Verdict.DecidedAt,
		Risk: RiskResponse{
			Score:    r.Risk.Score,
			Level:    string(r.Risk.Level),
			Degraded: r.Risk.Degraded,
			Factors:  r.Risk.Factors,
		},
		Audit:    AuditRefResponse{Seq: r.Record.Seq, RecordHash: r.Record.RecordHash},
		Dispatch: dispatchStatus(r),
	}
	for _, reason := range r.Verdict.Reasons {
		resp.Reasons = append(resp.Reasons, string(reason))
	}
	for _, action := range r.Verdict.Actions {
		resp.RequiredActions = append(resp.RequiredActions, string(action))
	}
	for _, s := range r.Sanctions {
		resp.Sanctions = append(resp.Sanctions, CheckResponse{
			Check:        string(s.Check),
			Outcome:      string(s.Outcome),
			Confidence:   s.Confidence,
			MatchedEntry: s.MatchedEntry,
			Program:      s.Program,
			ListVersion:  s.ListVersion,
		})
	}
	return resp
}

func dispatchStatus(r *service.Result) string {
	switch d := r.Dispatch; {
	case d.Skipped:
		return "skipped"
	case d.Queued:
		return "queued"
	case d.Delivered:
		return "delivered"
	case d.Err != nil:
		return "failed"
	default:
		return "none"
	}
}

// AuditRecordResponse is the HTTP response for GET /v1/audit/transactions/{id}.
type AuditRecordResponse struct {
	Seq           uint64    `json:"seq"`
	TransactionID string    `json:"transaction_id"`
	PayloadHash   string    `json:"payload_hash"`
	PrevHash      string    `json:"prev_hash"`
	RecordHash    string    `json:"record_hash"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       []byte    `json:"payload"`
}

func FromRecord(rec models.AuditRecord) *AuditRecordResponse {
	return &AuditRecordResponse{
		Seq:           rec.Seq,
		TransactionID: rec.TransactionID.String(),
		PayloadHash:   rec.PayloadHash,
		PrevHash:      rec.PrevHash,
		RecordHash:    rec.RecordHash,
		Timestamp:     rec.Timestamp,
		Payload:       rec.Payload,
	}
}

// VerifyResponse is the HTTP response for GET /v1/audit/verify.
type VerifyResponse struct {
	Valid           bool    `json:"valid"`
	From            uint64  `json:"from"`
	To              uint64  `json:"to"`
	Checked         uint64  `json:"checked"`
	FirstInvalidSeq *uint64 `json:"first_invalid_seq"`
	Reason          string  `json:"reason,omitempty"`
}

func FromVerify(v service.VerifyResult) *VerifyResponse {
	return &VerifyResponse{
		Valid:           v.Valid,
		From:            v.From,
		To:              v.To,
		Checked:         v.Checked,
		FirstInvalidSeq: v.FirstInvalidSeq,
		Reason:          v.Reason,
	}
}
