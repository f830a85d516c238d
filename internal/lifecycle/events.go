package lifecycle

import (
	"fmt"
	"time"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
)

// DefaultDueSoonThreshold is used when Options leaves the threshold unset
const DefaultDueSoonThreshold = 24 * time.Hour

// Options carries the evaluation clock and the due-soon window
type Options struct {
	Now              time.Time
	DueSoonThreshold time.Duration
}

func (o Options) threshold() time.Duration {
	if o.DueSoonThreshold <= 0 {
		return DefaultDueSoonThreshold
	}
	return o.DueSoonThreshold
}

// Events are the records a mutation produces. IDs are left to the store.
type Events struct {
	History       models.TaskHistory
	Notifications []models.Notification
}

// DeriveEvents projects a change set onto one history entry and the
// notifications it implies. The actor is not notified of their own assignment
// or status change. A due-soon notice always goes to the assignee.
func DeriveEvents(actor models.User, task models.Task, cs ChangeSet, opts Options) Events {
	action := models.HistoryUpdated
	if cs.Created {
		action = models.HistoryCreated
	}

	changes := cs.Changes
	if changes == nil {
		changes = []models.FieldChange{}
	}

	ev := Events{
		History: models.TaskHistory{
			TaskID:    task.ID,
			UserID:    actor.ID,
			Action:    action,
			Details:   models.HistoryDetails{Changes: changes},
			CreatedAt: opts.Now,
		},
	}

	if cs.Has(FieldAssignedToID) && task.AssignedToID != nil && *task.AssignedToID != actor.ID {
		ev.Notifications = append(ev.Notifications, notification(*task.AssignedToID, task, models.NotificationTaskAssigned,
			fmt.Sprintf("You have been assigned to %q", task.Title), opts.Now))
	}

	if change, ok := cs.Get(FieldStatus); ok && !cs.Created {
		msg := fmt.Sprintf("%q moved from %s to %s", task.Title, change.From, change.To)
		for _, recipient := range recipients(actor.ID, &task.CreatedByID, task.AssignedToID) {
			ev.Notifications = append(ev.Notifications, notification(recipient, task, models.NotificationTaskStatusChanged, msg, opts.Now))
		}
	}

	if DueSoonRearmed(cs) && IsDueSoon(task, opts.Now, opts.threshold()) {
		ev.Notifications = append(ev.Notifications, DueSoonNotification(task, opts.Now))
	}

	return ev
}

// DueSoonRearmed reports whether a change makes the due-soon notice owed
// again: a new due date or a new assignee.
func DueSoonRearmed(cs ChangeSet) bool {
	return cs.Has(FieldDueDate) || cs.Has(FieldAssignedToID)
}

// CommentEvent builds the history entry for a comment on a task
func CommentEvent(actor models.User, task models.Task, comment string, now time.Time) models.TaskHistory {
	return models.TaskHistory{
		TaskID:    task.ID,
		UserID:    actor.ID,
		Action:    models.HistoryCommented,
		Details:   models.HistoryDetails{Changes: []models.FieldChange{}, Comment: comment},
		CreatedAt: now,
	}
}

// IsDueSoon reports whether an open, assigned task falls due within threshold of now.
// Overdue tasks are not due soon.
func IsDueSoon(task models.Task, now time.Time, threshold time.Duration) bool {
	if task.DueDate == nil || task.AssignedToID == nil || task.Status == models.StatusCompleted {
		return false
	}
	until := task.DueDate.Sub(now)
	return until >= 0 && until <= threshold
}

// DueSoonNotification builds the task_due_soon payload for the assignee. The
// caller decides that the condition holds, usually via IsDueSoon.
func DueSoonNotification(task models.Task, now time.Time) models.Notification {
	var recipient uuid.UUID
	if task.AssignedToID != nil {
		recipient = *task.AssignedToID
	}
	var due string
	if task.DueDate != nil {
		due = task.DueDate.UTC().Format("Jan 2, 15:04 MST")
	}
	return notification(recipient, task, models.NotificationTaskDueSoon,
		fmt.Sprintf("%q is due %s", task.Title, due), now)
}

// recipients dedupes the given users and drops the actor and unset ids
func recipients(actor uuid.UUID, ids ...*uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{actor: true, uuid.Nil: true}
	for _, id := range ids {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		out = append(out, *id)
	}
	return out
}

func notification(userID uuid.UUID, task models.Task, typ models.NotificationType, msg string, now time.Time) models.Notification {
	taskID := task.ID
	return models.Notification{
		UserID:    userID,
		TaskID:    &taskID,
		Type:      typ,
		Message:   msg,
		CreatedAt: now,
	}
}
