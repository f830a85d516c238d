package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/tasktally/internal/lifecycle"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ScanDueSoon emits task_due_soon notifications for open, assigned tasks
// falling due within threshold of now. A task is notified at most once per
// due date: due_soon_notified_for records the due date last notified, so
// moving the due date re-arms the notification.
//
// Returns the number of notifications created.
func ScanDueSoon(ctx context.Context, pool *pgxpool.Pool, now time.Time, threshold time.Duration) (int, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, project_id, title, assigned_to_id, status, due_date
		FROM tasks
		WHERE due_date BETWEEN $1 AND $2
		  AND assigned_to_id IS NOT NULL
		  AND status <> 'completed'
		  AND due_soon_notified_for IS DISTINCT FROM due_date
		ORDER BY due_date ASC
	`, now, now.Add(threshold))
	if err != nil {
		return 0, fmt.Errorf("failed to query due tasks: %w", err)
	}

	var candidates []models.Task
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.ProjectID, &task.Title, &task.AssignedToID, &task.Status, &task.DueDate); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan task: %w", err)
		}
		candidates = append(candidates, task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating task rows: %w", err)
	}

	created := 0
	for _, task := range candidates {
		if !lifecycle.IsDueSoon(task, now, threshold) {
			continue
		}
		ok, err := notifyDueSoon(ctx, pool, task, now)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	return created, nil
}

// notifyDueSoon claims the task for its current due date and inserts the
// notification in one transaction. A concurrent scan that already claimed
// it makes this a no-op.
func notifyDueSoon(ctx context.Context, pool *pgxpool.Pool, task models.Task, now time.Time) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET due_soon_notified_for = due_date
		WHERE id = $1
		  AND due_date = $2
		  AND due_soon_notified_for IS DISTINCT FROM due_date
	`, task.ID, task.DueDate)
	if err != nil {
		return false, fmt.Errorf("failed to claim task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := Insert(ctx, tx, []models.Notification{lifecycle.DueSoonNotification(task, now)}); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// RunDueSoonJob is the entry point called by the cron scheduler
func RunDueSoonJob(ctx context.Context, pool *pgxpool.Pool, threshold time.Duration) error {
	startTime := time.Now()
	runID := uuid.New()

	log.Info().
		Str("run_id", runID.String()).
		Dur("threshold", threshold).
		Msg("Starting due-soon scan")

	created, err := ScanDueSoon(ctx, pool, startTime.UTC(), threshold)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID.String()).Msg("Due-soon scan failed")
		return fmt.Errorf("due-soon scan failed: %w", err)
	}

	log.Info().
		Str("run_id", runID.String()).
		Int("notifications_created", created).
		Dur("duration", time.Since(startTime)).
		Msg("Due-soon scan completed")

	return nil
}
