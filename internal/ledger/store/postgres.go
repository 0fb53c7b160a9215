package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_records (
	seq            BIGINT PRIMARY KEY,
	transaction_id TEXT   NOT NULL,
	payload_hash   TEXT   NOT NULL,
	prev_hash      TEXT   NOT NULL,
	record_hash    TEXT   NOT NULL,
	recorded_at_us BIGINT NOT NULL,
	payload        BYTEA  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_records_transaction ON ledger_records (transaction_id, seq DESC);
`

// Postgres stores records in a PostgreSQL table. A committed INSERT is durable.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates the schema if needed.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Append(ctx context.Context, rec models.AuditRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_records (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		recordArgs(rec)...,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("seq %d: %w", rec.Seq, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (s *Postgres) Last(ctx context.Context) (models.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM ledger_records ORDER BY seq DESC LIMIT 1`)
	return scanRecord(row)
}

func (s *Postgres) Range(ctx context.Context, from, to uint64) ([]models.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM ledger_records WHERE seq BETWEEN $1 AND $2 ORDER BY seq`,
		int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("query ledger records: %w", err)
	}
	return collect(rows)
}

func (s *Postgres) ByTransaction(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM ledger_records WHERE transaction_id = $1 ORDER BY seq DESC LIMIT 1`,
		txID.String())
	return scanRecord(row)
}
