//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"txguard/internal/platform/config"
	"txguard/internal/platform/postgres"
	"txguard/pkg/testutil/containers"
)

func TestPostgres_Contract(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	db, err := postgres.Open(ctx, config.DatabaseConfig{URL: pg.DSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewPostgres(ctx, db)
	require.NoError(t, err)
	runContract(t, s)
}
