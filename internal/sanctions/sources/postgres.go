package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"txguard/internal/compliance/models"
	"txguard/internal/sanctions"
)

const schema = `
CREATE TABLE IF NOT EXISTS sanctions_list_versions (
	version      BIGINT PRIMARY KEY,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS sanctions_entries (
	version     BIGINT NOT NULL REFERENCES sanctions_list_versions(version),
	name        TEXT NOT NULL,
	aliases     TEXT[] NOT NULL DEFAULT '{}',
	identifiers JSONB NOT NULL DEFAULT '[]',
	program     TEXT NOT NULL DEFAULT '',
	listed_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_sanctions_entries_version ON sanctions_entries(version);
`

// Postgres reads the newest published list version from PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the list tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create sanctions schema: %w", err)
	}
	return nil
}

// CurrentEntries implements sanctions.Provider.
func (p *Postgres) CurrentEntries(ctx context.Context) (sanctions.List, error) {
	var version int64
	err := p.pool.QueryRow(ctx, `SELECT version FROM sanctions_list_versions ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sanctions.List{}, models.NewExternalServiceError("sanctions_db", models.ErrorNotFound, errors.New("no published sanctions list"))
		}
		return sanctions.List{}, models.NewExternalServiceError("sanctions_db", models.ErrorOutage, err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT name, aliases, identifiers, program, listed_at
		FROM sanctions_entries
		WHERE version = $1
		ORDER BY name`, version)
	if err != nil {
		return sanctions.List{}, models.NewExternalServiceError("sanctions_db", models.ErrorOutage, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SanctionsEntry, error) {
		var (
			e        models.SanctionsEntry
			listedAt *time.Time
		)
		if err := row.Scan(&e.Name, &e.Aliases, &e.Identifiers, &e.Program, &listedAt); err != nil {
			return e, err
		}
		if listedAt != nil {
			e.ListedAt = listedAt.UTC()
		}
		return e, nil
	})
	if err != nil {
		return sanctions.List{}, models.NewExternalServiceError("sanctions_db", models.ErrorBadData, err)
	}
	return sanctions.List{Version: uint64(version), Entries: entries}, nil
}

// Publish writes a complete list under a new version in one transaction.
func (p *Postgres) Publish(ctx context.Context, version uint64, entries []models.SanctionsEntry) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO sanctions_list_versions (version) VALUES ($1)`, int64(version)); err != nil {
			return fmt.Errorf("insert list version: %w", err)
		}
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			var listedAt *time.Time
			if !e.ListedAt.IsZero() {
				t := e.ListedAt
				listedAt = &t
			}
			aliases := e.Aliases
			if aliases == nil {
				aliases = []string{}
			}
			idents := e.Identifiers
			if idents == nil {
				idents = []models.Identifier{}
			}
			rows = append(rows, []any{int64(version), e.Name, aliases, idents, e.Program, listedAt})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"sanctions_entries"},
			[]string{"version", "name", "aliases", "identifiers", "program", "listed_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy sanctions entries: %w", err)
		}
		return nil
	})
}
