// Package backend opens the configured ledger store and the ledger over it.
package backend

import (
	"context"
	"fmt"

	"txguard/internal/ledger"
	"txguard/internal/ledger/store"
	"txguard/internal/platform/config"
	"txguard/internal/platform/postgres"
	"txguard/internal/platform/sqlite"
)

// Closer releases whatever the store holds open. It is never nil.
type Closer func() error

func noop() error { return nil }

// OpenStore builds the store named by cfg.Ledger.Backend.
func OpenStore(ctx context.Context, cfg *config.Config) (ledger.Store, Closer, error) {
	switch cfg.Ledger.Backend {
	case "memory":
		return store.NewMemory(), noop, nil
	case "file":
		f, err := store.OpenFile(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLite(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgres(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// Open opens the store and recovers the ledger head from it. Extra options are
// applied after the configured hasher and append timeout.
func Open(ctx context.Context, cfg *config.Config, opts ...ledger.Option) (*ledger.Ledger, Closer, error) {
	hasher, err := ledger.NewHasher(cfg.Ledger.HashAlgorithm)
	if err != nil {
		return nil, nil, err
	}
	s, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger store: %w", err)
	}
	base := []ledger.Option{
		ledger.WithHasher(hasher),
		ledger.WithAppendTimeout(cfg.Ledger.AppendTimeout),
	}
	l, err := ledger.Open(ctx, s, append(base, opts...)...)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return l, closeStore, nil
}
