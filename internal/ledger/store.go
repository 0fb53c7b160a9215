package ledger

import (
	"context"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

// Store persists audit records. Implementations live in ledger/store.
//
// Append must be durable when it returns nil and must fail with
// sentinel.ErrConflict if rec.Seq is already taken. Last returns
// sentinel.ErrNotFound on an empty store. Range is inclusive and ascending.
type Store interface {
	Append(ctx context.Context, rec models.AuditRecord) error
	Last(ctx context.Context) (models.AuditRecord, error)
	Range(ctx context.Context, from, to uint64) ([]models.AuditRecord, error)
	ByTransaction(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error)
}
