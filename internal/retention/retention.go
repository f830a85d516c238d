package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DeleteReadNotifications deletes read notifications older than the specified days.
// Unread notifications are never deleted. The function is idempotent.
//
// Returns the number of rows deleted.
func DeleteReadNotifications(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE read
		  AND created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOldAuditEvents deletes audit_log rows older than the specified days.
// A non-positive retention keeps the audit log forever.
func DeleteOldAuditEvents(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	tag, err := pool.Exec(ctx, `
		DELETE FROM audit_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunRetentionJob executes both retention operations and logs the results.
// This is the main entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, notificationDays, auditDays int) error {
	log.Info().
		Int("notification_retention_days", notificationDays).
		Int("audit_retention_days", auditDays).
		Msg("Starting retention job")

	startTime := time.Now()

	notificationsDeleted, err := DeleteReadNotifications(ctx, pool, notificationDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete read notifications")
		return fmt.Errorf("notification cleanup failed: %w", err)
	}

	auditDeleted, err := DeleteOldAuditEvents(ctx, pool, auditDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old audit events")
		return fmt.Errorf("audit cleanup failed: %w", err)
	}

	log.Info().
		Int64("notifications_deleted", notificationsDeleted).
		Int64("audit_events_deleted", auditDeleted).
		Dur("duration", time.Since(startTime)).
		Msg("Retention job completed")

	return nil
}
