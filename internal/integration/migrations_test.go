package integration

import (
	"context"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/db"
	"github.com/aliuyar1234/tasktally/migrations"
	"github.com/stretchr/testify/require"
)

func TestIntegration_MigrationsApplyToFreshPostgres(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	for _, table := range []string{"users", "organizations", "org_memberships", "projects", "tasks", "task_history", "notifications", "invitation_links", "audit_log"} {
		var count int
		err := pool.QueryRow(context.Background(), `
			SELECT COUNT(*)
			FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		`, table).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, table)
	}
}

func TestIntegration_MigrationsAreIdempotent(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	applied, err := db.Migrate(context.Background(), pool, migrations.FS)
	require.NoError(t, err)
	require.Zero(t, applied)

	var versions int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	require.Equal(t, 1, versions)
}
