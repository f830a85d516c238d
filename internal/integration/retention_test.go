package integration

import (
	"context"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/retention"
	"github.com/stretchr/testify/require"
)

func TestIntegration_RetentionKeepsUnreadNotifications(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	var userID string
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash) VALUES ('keeper@example.com', 'x') RETURNING id
	`).Scan(&userID))

	_, err := pool.Exec(ctx, `
		INSERT INTO notifications (user_id, type, message, read, created_at) VALUES
		  ($1, 'task_assigned', 'old read', TRUE, NOW() - INTERVAL '200 days'),
		  ($1, 'task_assigned', 'old unread', FALSE, NOW() - INTERVAL '200 days'),
		  ($1, 'task_assigned', 'fresh read', TRUE, NOW())
	`, userID)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO audit_log (action, meta, created_at) VALUES ('task.deleted', '{}', NOW() - INTERVAL '400 days')
	`)
	require.NoError(t, err)

	require.NoError(t, retention.RunRetentionJob(ctx, pool, 90, 0))

	var messages []string
	rows, err := pool.Query(ctx, `SELECT message FROM notifications ORDER BY message`)
	require.NoError(t, err)
	for rows.Next() {
		var m string
		require.NoError(t, rows.Scan(&m))
		messages = append(messages, m)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"fresh read", "old unread"}, messages)

	var auditRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&auditRows))
	require.Equal(t, 1, auditRows, "zero audit retention keeps everything")

	deleted, err := retention.DeleteOldAuditEvents(ctx, pool, 365)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}
