package screening

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"txguard/internal/compliance/models"
	"txguard/internal/platform/config"
	"txguard/internal/risk"
	"txguard/internal/screening/mocks"
)

var fastTimeouts = config.ScreeningConfig{
	CheckTimeout: 50 * time.Millisecond,
	TotalTimeout: 200 * time.Millisecond,
}

func testTransaction() models.Transaction {
	return models.Transaction{
		ID:        "tx-1",
		Timestamp: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Sender:    models.Party{ID: "alice", Name: "Alice"},
		Receiver:  models.Party{ID: "bob", Name: "Bob"},
		Amount:    decimal.NewFromInt(100),
		Currency:  "USD",
	}
}

type screenerFunc func(ctx context.Context, party models.Party) models.ScreeningResult

func (f screenerFunc) Screen(ctx context.Context, party models.Party) models.ScreeningResult {
	return f(ctx, party)
}

type assessorFunc func(ctx context.Context, tx models.Transaction) models.RiskScore

func (f assessorFunc) Assess(ctx context.Context, tx models.Transaction) models.RiskScore {
	return f(ctx, tx)
}

func lowRisk(ctx context.Context, tx models.Transaction) models.RiskScore {
	return models.RiskScore{TransactionID: tx.ID, Score: 12, Level: models.RiskLow}
}

func TestProcess_JoinsAllChecks(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := testTransaction()

	screener := mocks.NewMockSanctionsScreener(ctrl)
	screener.EXPECT().Screen(gomock.Any(), tx.Sender).
		Return(models.ScreeningResult{Outcome: models.OutcomeNoMatch, Confidence: 0.31})
	screener.EXPECT().Screen(gomock.Any(), tx.Receiver).
		Return(models.ScreeningResult{Outcome: models.OutcomeMatch, Confidence: 0.92, MatchedEntry: "Bob Listed"})
	assessor := mocks.NewMockRiskAssessor(ctrl)
	assessor.EXPECT().Assess(gomock.Any(), tx).
		Return(models.RiskScore{Score: 40, Level: models.RiskLow})

	reg := prometheus.NewRegistry()
	o := New(screener, assessor, fastTimeouts, WithMetrics(NewMetricsWithRegisterer(reg)))
	res := o.Process(context.Background(), tx)

	assert.Equal(t, models.CheckSanctionsSender, res.Sender.Check)
	assert.Equal(t, models.OutcomeNoMatch, res.Sender.Outcome)
	assert.Equal(t, tx.ID, res.Sender.TransactionID)
	assert.Equal(t, models.CheckSanctionsReceiver, res.Receiver.Check)
	assert.Equal(t, models.OutcomeMatch, res.Receiver.Outcome)
	assert.Equal(t, "Bob Listed", res.Receiver.MatchedEntry)
	assert.Equal(t, tx.ID, res.Risk.TransactionID, "risk score stamped with the transaction")
	assert.Equal(t, 40.0, res.Risk.Score)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestProcess_SlowCheckBecomesTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	screener := screenerFunc(func(ctx context.Context, p models.Party) models.ScreeningResult {
		if p.ID == "alice" {
			// ignores its context entirely
			<-release
			return models.ScreeningResult{Outcome: models.OutcomeNoMatch}
		}
		return models.ScreeningResult{Outcome: models.OutcomeNoMatch}
	})

	o := New(screener, assessorFunc(lowRisk), fastTimeouts)
	start := time.Now()
	res := o.Process(context.Background(), testTransaction())

	assert.Less(t, time.Since(start), fastTimeouts.TotalTimeout, "join is bounded by the check timeout")
	assert.Equal(t, models.OutcomeTimeout, res.Sender.Outcome)
	assert.Equal(t, models.CheckSanctionsSender, res.Sender.Check)
	assert.Equal(t, models.OutcomeNoMatch, res.Receiver.Outcome)
	assert.Equal(t, models.RiskLow, res.Risk.Level)
}

func TestProcess_LateResultIsDiscarded(t *testing.T) {
	screener := screenerFunc(func(ctx context.Context, p models.Party) models.ScreeningResult {
		if p.ID == "bob" {
			<-ctx.Done()
			// a completed answer delivered after the deadline
			return models.ScreeningResult{Outcome: models.OutcomeNoMatch}
		}
		return models.ScreeningResult{Outcome: models.OutcomeNoMatch}
	})

	res := New(screener, assessorFunc(lowRisk), fastTimeouts).Process(context.Background(), testTransaction())
	assert.Equal(t, models.OutcomeTimeout, res.Receiver.Outcome)
}

func TestProcess_SlowScoringYieldsUnavailableScore(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	noMatch := screenerFunc(func(context.Context, models.Party) models.ScreeningResult {
		return models.ScreeningResult{Outcome: models.OutcomeNoMatch}
	})
	slow := assessorFunc(func(ctx context.Context, tx models.Transaction) models.RiskScore {
		<-release
		return models.RiskScore{Score: 5, Level: models.RiskLow}
	})

	res := New(noMatch, slow, fastTimeouts).Process(context.Background(), testTransaction())
	assert.Equal(t, risk.Unavailable("tx-1"), res.Risk)
	assert.Equal(t, models.OutcomeNoMatch, res.Sender.Outcome)
}

func TestProcess_ParentCancellationStopsEveryChild(t *testing.T) {
	var mu sync.Mutex
	cancelled := 0
	blocking := screenerFunc(func(ctx context.Context, _ models.Party) models.ScreeningResult {
		<-ctx.Done()
		mu.Lock()
		cancelled++
		mu.Unlock()
		return models.ScreeningResult{Outcome: models.OutcomeTimeout}
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	o := New(blocking, assessorFunc(lowRisk), config.ScreeningConfig{CheckTimeout: time.Minute, TotalTimeout: time.Minute})
	res := o.Process(ctx, testTransaction())

	assert.Equal(t, models.OutcomeTimeout, res.Sender.Outcome)
	assert.Equal(t, models.OutcomeTimeout, res.Receiver.Outcome)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return cancelled == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRunWithDeadline(t *testing.T) {
	v, ok := runWithDeadline(context.Background(), time.Second, func(context.Context) int { return 7 })
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = runWithDeadline(context.Background(), 10*time.Millisecond, func(ctx context.Context) int {
		<-ctx.Done()
		return 7
	})
	assert.False(t, ok)
	assert.Zero(t, v)
}
