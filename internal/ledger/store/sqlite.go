package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq            INTEGER PRIMARY KEY,
	transaction_id TEXT    NOT NULL,
	payload_hash   TEXT    NOT NULL,
	prev_hash      TEXT    NOT NULL,
	record_hash    TEXT    NOT NULL,
	recorded_at_us INTEGER NOT NULL,
	payload        BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_records_transaction ON audit_records(transaction_id, seq);
`

// SQLite stores records in an embedded database. Durability comes from
// synchronous=FULL on the connection (see internal/platform/sqlite).
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the schema if needed.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, rec models.AuditRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		recordArgs(rec)...,
	)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return fmt.Errorf("seq %d: %w", rec.Seq, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *SQLite) Last(ctx context.Context) (models.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM audit_records ORDER BY seq DESC LIMIT 1`)
	return scanRecord(row)
}

func (s *SQLite) Range(ctx context.Context, from, to uint64) ([]models.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM audit_records WHERE seq BETWEEN ? AND ? ORDER BY seq`,
		int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	return collect(rows)
}

func (s *SQLite) ByTransaction(ctx context.Context, txID id.TransactionID) (models.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM audit_records WHERE transaction_id = ? ORDER BY seq DESC LIMIT 1`,
		txID.String())
	return scanRecord(row)
}
