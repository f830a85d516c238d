package integration

import (
	"context"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIntegration_AuditPagesAcrossEqualTimestamps(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	orgID := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO audit_log (org_id, action, created_at)
		SELECT $1, 'task.deleted', '2026-03-01T10:00:00Z'::timestamptz
		FROM generate_series(1, 3)
	`, orgID)
	require.NoError(t, err)

	reader := audit.NewReader(pool)
	first, err := reader.List(ctx, orgID, audit.Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Events, 2)
	require.NotNil(t, first.NextBefore)

	second, err := reader.List(ctx, orgID, audit.Query{Limit: 2, Before: first.NextBefore})
	require.NoError(t, err)
	require.Len(t, second.Events, 1)
	require.Nil(t, second.NextBefore)

	seen := map[uuid.UUID]bool{}
	for _, ev := range append(first.Events, second.Events...) {
		require.False(t, seen[ev.ID])
		seen[ev.ID] = true
	}
	require.Len(t, seen, 3)
}
