package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// IsValid returns true if the status is known
func (s TaskStatus) IsValid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusCompleted
}

// PricingType selects which of HourlyRate/FixedPrice is meaningful
type PricingType string

const (
	PricingHourly PricingType = "hourly"
	PricingFixed  PricingType = "fixed"
)

// IsValid returns true if the pricing type is known
func (p PricingType) IsValid() bool {
	return p == PricingHourly || p == PricingFixed
}

// Task is a unit of billable work. All money fields are integer cents.
//
// StartDate/EndDate carry the calendar date (UTC midnight) and
// StartTime/EndTime carry a wall clock "HH:MM". DurationSeconds is the
// externally supplied duration used for hourly tasks without a full span.
type Task struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	ProjectID       uuid.UUID   `db:"project_id" json:"project_id"`
	Title           string      `db:"title" json:"title"`
	Description     string      `db:"description" json:"description"`
	AssignedToID    *uuid.UUID  `db:"assigned_to_id" json:"assigned_to_id"`
	CreatedByID     uuid.UUID   `db:"created_by_id" json:"created_by_id"`
	Status          TaskStatus  `db:"status" json:"status"`
	PricingType     PricingType `db:"pricing_type" json:"pricing_type"`
	Currency        string      `db:"currency" json:"currency"`
	HourlyRate      *int64      `db:"hourly_rate" json:"hourly_rate"`
	FixedPrice      *int64      `db:"fixed_price" json:"fixed_price"`
	DurationSeconds *int64      `db:"duration_seconds" json:"duration_seconds"`
	StartDate       *time.Time  `db:"start_date" json:"start_date"`
	EndDate         *time.Time  `db:"end_date" json:"end_date"`
	StartTime       *string     `db:"start_time" json:"start_time"`
	EndTime         *string     `db:"end_time" json:"end_time"`
	DueDate         *time.Time  `db:"due_date" json:"due_date"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}
