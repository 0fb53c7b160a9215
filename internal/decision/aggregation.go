// Package decision turns joined screening results into a verdict. The
// Aggregation state machine tracks one transaction from submission to verdict.
package decision

import (
	"fmt"
	"slices"
	"time"

	"txguard/internal/compliance/models"
	"txguard/internal/decision/metrics"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

// State is an aggregation lifecycle state.
type State string

const (
	StatePending   State = "PENDING"
	StateScreening State = "SCREENING"
	StateScored    State = "SCORED"
	StateDecided   State = "DECIDED"
)

var transitions = map[State]State{
	StatePending:   StateScreening,
	StateScreening: StateScored,
	StateScored:    StateDecided,
}

// CanTransitionTo reports whether to is the single legal successor of s.
func (s State) CanTransitionTo(to State) bool {
	next, ok := transitions[s]
	return ok && next == to
}

// TransitionError is returned for an illegal state change. It matches
// sentinel.ErrInvalidState.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal aggregation transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return sentinel.ErrInvalidState
}

// Aggregation collects one transaction's results and decides it exactly once.
// It is not safe for concurrent use; the orchestrator's join owns it.
type Aggregation struct {
	txID      id.TransactionID
	threshold float64
	state     State
	startedAt time.Time
	sanctions []models.ScreeningResult
	score     models.RiskScore
	verdict   models.Verdict
	metrics   *metrics.Metrics
}

// NewAggregation starts in PENDING. threshold is the sanctions match threshold.
func NewAggregation(txID id.TransactionID, threshold float64, m *metrics.Metrics) *Aggregation {
	return &Aggregation{
		txID:      txID,
		threshold: threshold,
		state:     StatePending,
		metrics:   m,
	}
}

func (a *Aggregation) State() State {
	return a.state
}

func (a *Aggregation) transition(to State) error {
	if !a.state.CanTransitionTo(to) {
		a.metrics.IncrementIllegalTransition(string(a.state), string(to))
		return &TransitionError{From: a.state, To: to}
	}
	a.state = to
	return nil
}

// BeginScreening moves PENDING -> SCREENING.
func (a *Aggregation) BeginScreening(now time.Time) error {
	if err := a.transition(StateScreening); err != nil {
		return err
	}
	a.startedAt = now
	return nil
}

// RecordResults moves SCREENING -> SCORED once every check has reported.
// Results for another transaction are rejected.
func (a *Aggregation) RecordResults(sanctions []models.ScreeningResult, score models.RiskScore) error {
	for _, r := range sanctions {
		if r.TransactionID != a.txID {
			return fmt.Errorf("result for %s recorded on aggregation %s: %w", r.TransactionID, a.txID, sentinel.ErrInvalidState)
		}
	}
	if score.TransactionID != a.txID {
		return fmt.Errorf("risk score for %s recorded on aggregation %s: %w", score.TransactionID, a.txID, sentinel.ErrInvalidState)
	}
	if err := a.transition(StateScored); err != nil {
		return err
	}
	a.sanctions = slices.Clone(sanctions)
	a.score = score
	return nil
}

// Decide moves SCORED -> DECIDED and returns the verdict.
func (a *Aggregation) Decide(now time.Time) (models.Verdict, error) {
	if err := a.transition(StateDecided); err != nil {
		return models.Verdict{}, err
	}
	a.verdict = Decide(a.sanctions, a.score, a.threshold, now)
	a.verdict.TransactionID = a.txID

	reasons := make([]string, len(a.verdict.Reasons))
	for i, r := range a.verdict.Reasons {
		reasons[i] = string(r)
	}
	a.metrics.IncrementVerdict(string(a.verdict.Status), reasons)
	if !a.startedAt.IsZero() {
		a.metrics.ObserveDecideLatency(now.Sub(a.startedAt))
	}
	return a.verdict, nil
}

// Verdict returns the decided verdict, or false before DECIDED.
func (a *Aggregation) Verdict() (models.Verdict, bool) {
	return a.verdict, a.state == StateDecided
}
