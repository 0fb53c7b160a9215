package service

import (
	"context"
	"time"

	"txguard/internal/compliance/models"
	"txguard/internal/dispatch"
	"txguard/internal/ledger"
	"txguard/internal/screening"
	id "txguard/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Screener runs the concurrent checks for one transaction.
type Screener interface {
	Process(ctx context.Context, tx models.Transaction) screening.Results
}

// Ledger is the append-only audit trail.
type Ledger interface {
	Append(ctx context.Context, e ledger.Entry) (models.AuditRecord, error)
	GetByTransaction(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error)
	Verify(ctx context.Context, from, to uint64) (ledger.Report, error)
	VerifyAll(ctx context.Context) (ledger.Report, error)
}

// VelocityRecorder feeds screened transactions back into velocity history.
type VelocityRecorder interface {
	Record(ctx context.Context, partyID id.PartyID, txID id.TransactionID, at time.Time) error
}

// Notifier hands FLAG and BLOCK verdicts to alerting without waiting on delivery.
type Notifier interface {
	Enqueue(n dispatch.Notification) dispatch.DispatchResult
}
