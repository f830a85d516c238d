// Package lifecycle turns task mutations into history entries and
// notifications. It never touches task state or storage.
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
)

// Fields that trigger notifications
const (
	FieldStatus       = "status"
	FieldAssignedToID = "assigned_to_id"
	FieldDueDate      = "due_date"
)

// ChangeSet is the ordered list of field changes of one mutation.
// Created is set when there was no prior state.
type ChangeSet struct {
	Created bool
	Changes []models.FieldChange
}

// Get returns the change recorded for field
func (cs ChangeSet) Get(field string) (models.FieldChange, bool) {
	for _, c := range cs.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return models.FieldChange{}, false
}

// Has reports whether field changed
func (cs ChangeSet) Has(field string) bool {
	_, ok := cs.Get(field)
	return ok
}

// Empty reports whether nothing changed on an existing task
func (cs ChangeSet) Empty() bool {
	return !cs.Created && len(cs.Changes) == 0
}

// Describe renders the change set as one human-readable line per field
func (cs ChangeSet) Describe() string {
	if cs.Created && len(cs.Changes) == 0 {
		return "created"
	}
	lines := make([]string, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		switch {
		case c.From == "":
			lines = append(lines, fmt.Sprintf("%s set to %q", label(c.Field), c.To))
		case c.To == "":
			lines = append(lines, fmt.Sprintf("%s cleared (was %q)", label(c.Field), c.From))
		default:
			lines = append(lines, fmt.Sprintf("%s changed from %q to %q", label(c.Field), c.From, c.To))
		}
	}
	return strings.Join(lines, "\n")
}

func label(field string) string {
	switch field {
	case FieldAssignedToID:
		return "assignee"
	case FieldDueDate:
		return "due date"
	}
	return strings.ReplaceAll(field, "_", " ")
}

type trackedField struct {
	name  string
	value func(t *models.Task) string
}

// tracked lists the fields recorded in history, in display order
var tracked = []trackedField{
	{FieldStatus, func(t *models.Task) string { return string(t.Status) }},
	{FieldAssignedToID, func(t *models.Task) string { return formatUUID(t.AssignedToID) }},
	{FieldDueDate, func(t *models.Task) string { return formatTime(t.DueDate) }},
	{"title", func(t *models.Task) string { return t.Title }},
	{"description", func(t *models.Task) string { return t.Description }},
	{"project_id", func(t *models.Task) string { return uuidString(t.ProjectID) }},
	{"pricing_type", func(t *models.Task) string { return string(t.PricingType) }},
	{"currency", func(t *models.Task) string { return t.Currency }},
	{"hourly_rate", func(t *models.Task) string { return formatInt(t.HourlyRate) }},
	{"fixed_price", func(t *models.Task) string { return formatInt(t.FixedPrice) }},
	{"duration_seconds", func(t *models.Task) string { return formatInt(t.DurationSeconds) }},
	{"start_date", func(t *models.Task) string { return formatDate(t.StartDate) }},
	{"end_date", func(t *models.Task) string { return formatDate(t.EndDate) }},
	{"start_time", func(t *models.Task) string { return formatString(t.StartTime) }},
	{"end_time", func(t *models.Task) string { return formatString(t.EndTime) }},
}

// DiffTask compares two versions of a task field by field. A nil before
// means the task is being created; every set field is then a change from "".
func DiffTask(before *models.Task, after models.Task) ChangeSet {
	cs := ChangeSet{Created: before == nil}
	prior := before
	if prior == nil {
		prior = &models.Task{}
	}

	for _, f := range tracked {
		from, to := f.value(prior), f.value(&after)
		if from != to {
			cs.Changes = append(cs.Changes, models.FieldChange{Field: f.name, From: from, To: to})
		}
	}
	return cs
}

func formatUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return uuidString(*id)
}

func uuidString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
