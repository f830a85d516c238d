package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction is the kind of task history entry
type HistoryAction string

const (
	HistoryCreated   HistoryAction = "created"
	HistoryUpdated   HistoryAction = "updated"
	HistoryCommented HistoryAction = "commented"
)

// FieldChange is one before/after pair. Values are rendered as strings, empty means unset.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// HistoryDetails is the structured payload stored with a history entry
type HistoryDetails struct {
	Changes []FieldChange `json:"changes"`
	Comment string        `json:"comment,omitempty"`
}

// TaskHistory is append-only
type TaskHistory struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	TaskID    uuid.UUID      `db:"task_id" json:"task_id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Action    HistoryAction  `db:"action" json:"action"`
	Details   HistoryDetails `db:"details" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// NotificationType names the event that produced a notification
type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "task_assigned"
	NotificationTaskStatusChanged NotificationType = "task_status_changed"
	NotificationTaskDueSoon       NotificationType = "task_due_soon"
)

// Notification is created by the lifecycle hook and only mutated by its recipient marking it read
type Notification struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"user_id"`
	TaskID    *uuid.UUID       `db:"task_id" json:"task_id"`
	Type      NotificationType `db:"type" json:"type"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
