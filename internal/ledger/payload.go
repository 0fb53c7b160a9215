package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"txguard/internal/compliance/models"
)

// PayloadVersion is bumped whenever the canonical layout changes.
const PayloadVersion = 1

// Entry is what one ledger record attests to: the verdict and its inputs.
type Entry struct {
	Transaction models.Transaction
	Sanctions   []models.ScreeningResult
	Risk        models.RiskScore
	Verdict     models.Verdict
}

// Payload is the canonical serialization of an Entry. Structs only, no maps,
// so field order is fixed; times are UTC and decimals are strings.
type Payload struct {
	Version     int                `json:"v"`
	Transaction PayloadTransaction `json:"transaction"`
	Sanctions   []PayloadResult    `json:"sanctions"`
	Risk        PayloadRisk        `json:"risk"`
	Verdict     PayloadVerdict     `json:"verdict"`
}

type PayloadTransaction struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Chain      string    `json:"chain"`
}

type PayloadResult struct {
	Check         string  `json:"check"`
	Outcome       string  `json:"outcome"`
	Confidence    float64 `json:"confidence"`
	LatencyMicros int64   `json:"latency_us"`
	MatchedEntry  string  `json:"matched_entry"`
	Program       string  `json:"program"`
	ListVersion   uint64  `json:"list_version"`
}

type PayloadFactor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

type PayloadRisk struct {
	Score    float64         `json:"score"`
	Level    string          `json:"level"`
	Degraded bool            `json:"degraded"`
	Factors  []PayloadFactor `json:"factors"`
}

type PayloadVerdict struct {
	Status    string    `json:"status"`
	Reasons   []string  `json:"reasons"`
	Actions   []string  `json:"actions"`
	DecidedAt time.Time `json:"decided_at"`
}

// CanonicalPayload serializes e deterministically.
func CanonicalPayload(e Entry) ([]byte, error) {
	tx := e.Transaction
	p := Payload{
		Version: PayloadVersion,
		Transaction: PayloadTransaction{
			ID:         tx.ID.String(),
			Timestamp:  tx.Timestamp.UTC(),
			SenderID:   tx.Sender.ID.String(),
			ReceiverID: tx.Receiver.ID.String(),
			Amount:     tx.Amount.String(),
			Currency:   tx.Currency,
			Chain:      tx.Chain,
		},
		Sanctions: make([]PayloadResult, 0, len(e.Sanctions)),
		Risk: PayloadRisk{
			Score:    e.Risk.Score,
			Level:    string(e.Risk.Level),
			Degraded: e.Risk.Degraded,
			Factors:  make([]PayloadFactor, 0, len(e.Risk.Factors)),
		},
		Verdict: PayloadVerdict{
			Status:    string(e.Verdict.Status),
			Reasons:   make([]string, 0, len(e.Verdict.Reasons)),
			Actions:   make([]string, 0, len(e.Verdict.Actions)),
			DecidedAt: e.Verdict.DecidedAt.UTC(),
		},
	}
	for _, r := range e.Sanctions {
		p.Sanctions = append(p.Sanctions, PayloadResult{
			Check:         string(r.Check),
			Outcome:       string(r.Outcome),
			Confidence:    r.Confidence,
			LatencyMicros: r.Latency.Microseconds(),
			MatchedEntry:  r.MatchedEntry,
			Program:       r.Program,
			ListVersion:   r.ListVersion,
		})
	}
	for _, f := range e.Risk.Factors {
		p.Risk.Factors = append(p.Risk.Factors, PayloadFactor(f))
	}
	for _, r := range e.Verdict.Reasons {
		p.Verdict.Reasons = append(p.Verdict.Reasons, string(r))
	}
	for _, a := range e.Verdict.Actions {
		p.Verdict.Actions = append(p.Verdict.Actions, string(a))
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger payload: %w", err)
	}
	return b, nil
}

// DecodePayload parses stored payload bytes for display.
func DecodePayload(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("decode ledger payload: %w", err)
	}
	return p, nil
}
