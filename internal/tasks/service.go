// Package tasks persists tasks. Every mutation authorizes, applies, diffs
// and records history and notifications inside one transaction, against
// the row locked for that transaction.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/lifecycle"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/aliuyar1234/tasktally/internal/notifications"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrTaskNotFound is returned when a task is not found in the organization
	ErrTaskNotFound = errors.New("task not found")

	// ErrProjectNotFound is returned when the task's project is not in the organization
	ErrProjectNotFound = errors.New("project not found")

	// ErrAssigneeNotMember is returned when assigning a task to someone outside the organization
	ErrAssigneeNotMember = errors.New("assignee is not a member of this organization")
)

const taskColumns = `t.id, t.project_id, t.title, t.description, t.assigned_to_id, t.created_by_id,
	t.status, t.pricing_type, t.currency, t.hourly_rate, t.fixed_price, t.duration_seconds,
	t.start_date, t.end_date, t.start_time, t.end_time, t.due_date, t.created_at, t.updated_at,
	p.organization_id`

// Settings are the service-wide defaults
type Settings struct {
	DefaultCurrency  string
	DueSoonThreshold time.Duration
}

// Service provides task operations
type Service struct {
	pool     *pgxpool.Pool
	settings Settings
	now      func() time.Time
}

// NewService creates a new task service
func NewService(pool *pgxpool.Pool, settings Settings) *Service {
	if settings.DefaultCurrency == "" {
		settings.DefaultCurrency = "PHP"
	}
	return &Service{pool: pool, settings: settings, now: time.Now}
}

// scoped is a task together with the organization owning its project
type scoped struct {
	models.Task
	OrganizationID uuid.UUID
}

func (t scoped) resource() access.Resource {
	task := t.Task
	return access.Resource{OrganizationID: t.OrganizationID, Task: &task}
}

// Get returns a task the actor may read
func (s *Service) Get(ctx context.Context, actor models.User, orgID, taskID uuid.UUID) (*models.Task, error) {
	t, err := s.load(ctx, s.pool, orgID, taskID, false)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ActionTaskRead, t.resource()); err != nil {
		return nil, err
	}
	return &t.Task, nil
}

// Filter narrows a task listing. Zero values match everything.
type Filter struct {
	ProjectIDs   []uuid.UUID
	Status       models.TaskStatus
	AssignedToID *uuid.UUID
	Currency     string
	From         *time.Time
	To           *time.Time
}

// List returns the organization's tasks the actor may read, oldest first.
// Staff and unapproved users only see their own tasks.
func (s *Service) List(ctx context.Context, actor models.User, orgID uuid.UUID, filter Filter) ([]models.Task, error) {
	if actor.IsApproved {
		if d := access.ViewOrganization(actor, orgID); !d.Allowed {
			return nil, &access.DeniedError{Action: access.ActionTaskRead, Decision: d}
		}
	} else if orgID != actor.CurrentOrganizationID {
		return nil, &access.DeniedError{Action: access.ActionTaskRead, Decision: access.Authorize(actor, access.ActionTaskRead, access.Resource{OrganizationID: orgID})}
	}

	var ownerID *uuid.UUID
	if access.VisibleToAssigneeOnly(actor) {
		ownerID = &actor.ID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE p.organization_id = $1
		  AND (cardinality($2::uuid[]) = 0 OR t.project_id = ANY($2))
		  AND ($3 = '' OR t.status = $3)
		  AND ($4::uuid IS NULL OR t.assigned_to_id = $4)
		  AND ($5 = '' OR t.currency = $5)
		  AND ($6::timestamptz IS NULL OR COALESCE(t.start_date::timestamptz, t.created_at) >= $6)
		  AND ($7::timestamptz IS NULL OR COALESCE(t.start_date::timestamptz, t.created_at) < $7)
		  AND ($8::uuid IS NULL OR t.assigned_to_id = $8 OR t.created_by_id = $8)
		ORDER BY COALESCE(t.start_date::timestamptz, t.created_at) ASC, t.start_time ASC NULLS LAST, t.created_at ASC, t.id ASC
	`, orgID, nonNilIDs(filter.ProjectIDs), string(filter.Status), filter.AssignedToID, filter.Currency, filter.From, filter.To, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if access.Authorize(actor, access.ActionTaskRead, t.resource()).Allowed {
			out = append(out, t.Task)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return out, nil
}

// Create stores a new task. Tasks created by staff are always assigned to their creator.
func (s *Service) Create(ctx context.Context, actor models.User, orgID uuid.UUID, in Input) (*models.Task, error) {
	now := s.now().UTC()
	task := models.Task{
		CreatedByID: actor.ID,
		Status:      models.StatusTodo,
		PricingType: models.PricingHourly,
		Currency:    s.settings.DefaultCurrency,
	}
	if err := in.Apply(&task); err != nil {
		return nil, err
	}
	if task.ProjectID == uuid.Nil {
		return nil, invalid("project_id", "is required")
	}
	if task.Title == "" {
		return nil, invalid("title", "is required")
	}
	if access.CreatesAutoAssigned(actor) {
		self := actor.ID
		task.AssignedToID = &self
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkProject(ctx, tx, orgID, task.ProjectID); err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ActionTaskCreate, access.Resource{OrganizationID: orgID, Task: &task}); err != nil {
		return nil, err
	}
	if err := checkAssignee(ctx, tx, orgID, task.AssignedToID); err != nil {
		return nil, err
	}
	if err := checkAmount(task); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO tasks (project_id, title, description, assigned_to_id, created_by_id, status,
			pricing_type, currency, hourly_rate, fixed_price, duration_seconds,
			start_date, end_date, start_time, end_time, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		RETURNING id, created_at, updated_at
	`, task.ProjectID, task.Title, task.Description, task.AssignedToID, task.CreatedByID, task.Status,
		task.PricingType, task.Currency, task.HourlyRate, task.FixedPrice, task.DurationSeconds,
		task.StartDate, task.EndDate, task.StartTime, task.EndTime, task.DueDate, now,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	if err := s.record(ctx, tx, actor, task, lifecycle.DiffTask(nil, task), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &task, nil
}

// Update applies a partial update. It returns the updated task and the change set recorded.
func (s *Service) Update(ctx context.Context, actor models.User, orgID, taskID uuid.UUID, in Input) (*models.Task, lifecycle.ChangeSet, error) {
	now := s.now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, lifecycle.ChangeSet{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.load(ctx, tx, orgID, taskID, true)
	if err != nil {
		return nil, lifecycle.ChangeSet{}, err
	}
	if err := access.Require(actor, access.ActionTaskUpdate, current.resource()); err != nil {
		return nil, lifecycle.ChangeSet{}, err
	}

	before := current.Task
	after := current.Task
	if err := in.Apply(&after); err != nil {
		return nil, lifecycle.ChangeSet{}, err
	}
	if after.ProjectID != before.ProjectID {
		if err := checkProject(ctx, tx, orgID, after.ProjectID); err != nil {
			return nil, lifecycle.ChangeSet{}, err
		}
	}
	if !sameID(after.AssignedToID, before.AssignedToID) {
		if err := checkAssignee(ctx, tx, orgID, after.AssignedToID); err != nil {
			return nil, lifecycle.ChangeSet{}, err
		}
	}
	if err := checkAmount(after); err != nil {
		return nil, lifecycle.ChangeSet{}, err
	}

	cs := lifecycle.DiffTask(&before, after)
	if cs.Empty() {
		return &before, cs, nil
	}

	err = tx.QueryRow(ctx, `
		UPDATE tasks SET
			project_id = $2, title = $3, description = $4, assigned_to_id = $5, status = $6,
			pricing_type = $7, currency = $8, hourly_rate = $9, fixed_price = $10, duration_seconds = $11,
			start_date = $12, end_date = $13, start_time = $14, end_time = $15, due_date = $16,
			updated_at = $17
		WHERE id = $1
		RETURNING updated_at
	`, after.ID, after.ProjectID, after.Title, after.Description, after.AssignedToID, after.Status,
		after.PricingType, after.Currency, after.HourlyRate, after.FixedPrice, after.DurationSeconds,
		after.StartDate, after.EndDate, after.StartTime, after.EndTime, after.DueDate, now,
	).Scan(&after.UpdatedAt)
	if err != nil {
		return nil, lifecycle.ChangeSet{}, fmt.Errorf("failed to update task: %w", err)
	}

	if err := s.record(ctx, tx, actor, after, cs, now); err != nil {
		return nil, lifecycle.ChangeSet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, lifecycle.ChangeSet{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &after, cs, nil
}

// Delete removes a task. Its history is kept.
func (s *Service) Delete(ctx context.Context, actor models.User, orgID, taskID uuid.UUID) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.load(ctx, tx, orgID, taskID, true)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ActionTaskDelete, current.resource()); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, current.ID); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &current.Task, nil
}

// History returns a task's history entries in the order they were recorded
func (s *Service) History(ctx context.Context, actor models.User, orgID, taskID uuid.UUID) ([]models.TaskHistory, error) {
	t, err := s.load(ctx, s.pool, orgID, taskID, false)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ActionTaskRead, t.resource()); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, user_id, action, details, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at ASC, seq ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	defer rows.Close()

	out := []models.TaskHistory{}
	for rows.Next() {
		var h models.TaskHistory
		var userID uuid.NullUUID
		var details []byte
		if err := rows.Scan(&h.ID, &h.TaskID, &userID, &h.Action, &details, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task history: %w", err)
		}
		h.UserID = userID.UUID
		if err := json.Unmarshal(details, &h.Details); err != nil {
			return nil, fmt.Errorf("failed to decode task history details: %w", err)
		}
		if h.Details.Changes == nil {
			h.Details.Changes = []models.FieldChange{}
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task history rows: %w", err)
	}

	return out, nil
}

// Comment appends a comment to a task's history. Commenting needs update rights.
func (s *Service) Comment(ctx context.Context, actor models.User, orgID, taskID uuid.UUID, comment string) (*models.TaskHistory, error) {
	now := s.now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := s.load(ctx, tx, orgID, taskID, true)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, access.ActionTaskUpdate, t.resource()); err != nil {
		return nil, err
	}

	entry := lifecycle.CommentEvent(actor, t.Task, comment, now)
	if err := insertHistory(ctx, tx, &entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &entry, nil
}

// record persists the events a mutation implies
func (s *Service) record(ctx context.Context, tx pgx.Tx, actor models.User, task models.Task, cs lifecycle.ChangeSet, now time.Time) error {
	events := lifecycle.DeriveEvents(actor, task, cs, lifecycle.Options{
		Now:              now,
		DueSoonThreshold: s.settings.DueSoonThreshold,
	})

	if err := insertHistory(ctx, tx, &events.History); err != nil {
		return err
	}
	if err := notifications.Insert(ctx, tx, events.Notifications); err != nil {
		return err
	}

	if !lifecycle.DueSoonRearmed(cs) {
		return nil
	}

	// Claim the due date when the notice went out, otherwise clear the claim
	// so the scan notifies the current assignee.
	notified := false
	for _, n := range events.Notifications {
		if n.Type == models.NotificationTaskDueSoon {
			notified = true
			break
		}
	}
	query := `UPDATE tasks SET due_soon_notified_for = NULL WHERE id = $1`
	if notified {
		query = `UPDATE tasks SET due_soon_notified_for = due_date WHERE id = $1`
	}
	if _, err := tx.Exec(ctx, query, task.ID); err != nil {
		return fmt.Errorf("failed to update due-soon claim: %w", err)
	}

	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Service) load(ctx context.Context, q queryRower, orgID, taskID uuid.UUID, lock bool) (scoped, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND p.organization_id = $2`
	if lock {
		query += ` FOR UPDATE OF t`
	}

	t, err := scanTask(q.QueryRow(ctx, query, taskID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scoped{}, ErrTaskNotFound
		}
		return scoped{}, fmt.Errorf("failed to load task: %w", err)
	}
	return t, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry *models.TaskHistory) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode history details: %w", err)
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO task_history (task_id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, entry.TaskID, entry.UserID, entry.Action, details, entry.CreatedAt).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to insert task history: %w", err)
	}
	return nil
}

func checkProject(ctx context.Context, tx pgx.Tx, orgID, projectID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND organization_id = $2)
	`, projectID, orgID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return ErrProjectNotFound
	}
	return nil
}

func checkAssignee(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, assignee *uuid.UUID) error {
	if assignee == nil {
		return nil
	}
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM org_memberships WHERE org_id = $1 AND user_id = $2)
	`, orgID, *assignee).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !exists {
		return ErrAssigneeNotMember
	}
	return nil
}

func scanTask(row pgx.Row) (scoped, error) {
	var t scoped
	var createdBy uuid.NullUUID
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.AssignedToID,
		&createdBy,
		&t.Status,
		&t.PricingType,
		&t.Currency,
		&t.HourlyRate,
		&t.FixedPrice,
		&t.DurationSeconds,
		&t.StartDate,
		&t.EndDate,
		&t.StartTime,
		&t.EndTime,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.OrganizationID,
	)
	if err != nil {
		return scoped{}, err
	}
	t.CreatedByID = createdBy.UUID
	return t, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}
