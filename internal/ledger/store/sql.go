package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

// Both SQL stores keep recorded_at as microseconds since the epoch so records
// round-trip exactly regardless of the engine's timestamp type.
const recordColumns = "seq, transaction_id, payload_hash, prev_hash, record_hash, recorded_at_us, payload"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.AuditRecord, error) {
	var (
		rec        models.AuditRecord
		seq        int64
		txID       string
		recordedAt int64
	)
	err := row.Scan(&seq, &txID, &rec.PayloadHash, &rec.PrevHash, &rec.RecordHash, &recordedAt, &rec.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuditRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.AuditRecord{}, fmt.Errorf("scan audit record: %w", err)
	}
	rec.Seq = uint64(seq)
	rec.TransactionID = id.TransactionID(txID)
	rec.Timestamp = time.UnixMicro(recordedAt).UTC()
	return rec, nil
}

func collect(rows *sql.Rows) ([]models.AuditRecord, error) {
	defer rows.Close()
	var out []models.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

func recordArgs(rec models.AuditRecord) []any {
	return []any{
		int64(rec.Seq),
		rec.TransactionID.String(),
		rec.PayloadHash,
		rec.PrevHash,
		rec.RecordHash,
		rec.Timestamp.UnixMicro(),
		rec.Payload,
	}
}
