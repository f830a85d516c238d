// Package notifications stores the notifications produced by task
// mutations and the due-soon scan, and lets recipients read them.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotificationNotFound is returned when the notification does not exist or belongs to someone else
var ErrNotificationNotFound = errors.New("notification not found")

// Execer is satisfied by *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Service provides notification operations for a recipient
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Insert stores notifications produced by the lifecycle hook
func Insert(ctx context.Context, db Execer, notifications []models.Notification) error {
	for _, n := range notifications {
		if n.UserID == uuid.Nil {
			continue
		}
		if _, err := db.Exec(ctx, `
			INSERT INTO notifications (user_id, task_id, type, message, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, n.UserID, n.TaskID, n.Type, n.Message, n.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}
	return nil
}

// List returns the user's notifications, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, task_id, type, message, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TaskID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return out, nil
}

// UnreadCount returns how many unread notifications the user has
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read
	`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := s.pool.QueryRow(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, task_id, type, message, read, created_at
	`, notificationID, userID).Scan(&n.ID, &n.UserID, &n.TaskID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}

// MarkAllRead marks every unread notification of the user as read
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
