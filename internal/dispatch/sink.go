package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"txguard/internal/compliance/models"
)

//go:generate mockgen -source=sink.go -destination=mocks/mocks.go -package=mocks

// Notification is what downstream alerting receives for one verdict. ID is an
// idempotency key: retries of one notification reuse it.
type Notification struct {
	ID         string         `json:"id"`
	Verdict    models.Verdict `json:"verdict"`
	AuditSeq   uint64         `json:"audit_seq"`
	RecordHash string         `json:"record_hash"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewNotification ties a verdict to the audit record that attests it.
func NewNotification(v models.Verdict, rec models.AuditRecord, now time.Time) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Verdict:    v,
		AuditSeq:   rec.Seq,
		RecordHash: rec.RecordHash,
		CreatedAt:  now.UTC(),
	}
}

// Sink delivers notifications to an external alerting or reporting system.
// Errors wrapped with retry.Permanent are not retried.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}
