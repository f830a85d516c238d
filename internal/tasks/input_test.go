package tasks

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func decodeInput(t *testing.T, body string) Input {
	t.Helper()
	var in Input
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func requireInputError(t *testing.T, err error, field string) {
	t.Helper()
	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr), "expected InputError, got %v", err)
	require.Equal(t, field, inputErr.Field)
}

func TestField_DistinguishesAbsentNullAndSet(t *testing.T) {
	in := decodeInput(t, `{"assigned_to_id": null, "title": "Write report"}`)

	require.True(t, in.AssignedToID.Set)
	require.True(t, in.AssignedToID.Null)
	require.True(t, in.Title.Set)
	require.False(t, in.Title.Null)
	require.Equal(t, "Write report", in.Title.Value)
	require.False(t, in.DueDate.Set)
}

func TestInputApply_ParsesMoneyAndHoursOnce(t *testing.T) {
	in := decodeInput(t, `{
		"project_id": "0b0c8c8e-3f7b-4f55-9a0c-2e1d7d6d0a01",
		"title": "  Audit  ",
		"pricing_type": "hourly",
		"currency": "usd",
		"hourly_rate": "1,250.50",
		"hours": "2.5",
		"start_date": "2024-06-01",
		"start_time": "09:00",
		"due_date": "2024-06-10T12:00:00+02:00"
	}`)

	var task models.Task
	require.NoError(t, in.Apply(&task))

	require.Equal(t, "Audit", task.Title)
	require.Equal(t, "USD", task.Currency)
	require.Equal(t, int64(125050), *task.HourlyRate)
	require.Equal(t, int64(9000), *task.DurationSeconds)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *task.StartDate)
	require.Equal(t, "09:00", *task.StartTime)
	require.Equal(t, time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC), *task.DueDate)
	require.Equal(t, time.UTC, task.DueDate.Location())
}

func TestInputApply_PartialUpdateKeepsAbsentFields(t *testing.T) {
	assignee := uuid.New()
	rate := int64(5000)
	due := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	task := models.Task{
		Title:        "Original",
		Status:       models.StatusTodo,
		AssignedToID: &assignee,
		HourlyRate:   &rate,
		DueDate:      &due,
	}

	require.NoError(t, decodeInput(t, `{"status": "in_progress"}`).Apply(&task))
	require.Equal(t, models.StatusInProgress, task.Status)
	require.Equal(t, "Original", task.Title)
	require.Equal(t, assignee, *task.AssignedToID)
	require.Equal(t, rate, *task.HourlyRate)
	require.Equal(t, due, *task.DueDate)
}

func TestInputApply_NullClearsNullableFields(t *testing.T) {
	assignee := uuid.New()
	rate := int64(5000)
	due := time.Now()
	task := models.Task{AssignedToID: &assignee, HourlyRate: &rate, DueDate: &due}

	in := decodeInput(t, `{"assigned_to_id": null, "hourly_rate": null, "due_date": null}`)
	require.NoError(t, in.Apply(&task))
	require.Nil(t, task.AssignedToID)
	require.Nil(t, task.HourlyRate)
	require.Nil(t, task.DueDate)
}

func TestInputApply_DoesNotAliasPreviousValues(t *testing.T) {
	rate := int64(5000)
	before := models.Task{HourlyRate: &rate}
	after := before

	require.NoError(t, decodeInput(t, `{"hourly_rate": "60.00"}`).Apply(&after))
	require.Equal(t, int64(6000), *after.HourlyRate)
	require.Equal(t, int64(5000), *before.HourlyRate)
}

func TestInputApply_Rejects(t *testing.T) {
	cases := map[string]string{
		`{"project_id": null}`:         "project_id",
		`{"title": ""}`:                "title",
		`{"title": null}`:              "title",
		`{"status": "done"}`:           "status",
		`{"pricing_type": "retainer"}`: "pricing_type",
		`{"currency": "DOLLARS"}`:      "currency",
		`{"currency": null}`:           "currency",
		`{"hourly_rate": "-10.00"}`:    "hourly_rate",
		`{"fixed_price": "10.005"}`:    "fixed_price",
		`{"fixed_price": "ten"}`:       "fixed_price",
		`{"hours": "1.234"}`:           "hours",
		`{"start_date": "06/01/2024"}`: "start_date",
		`{"end_time": "9am"}`:          "end_time",
		`{"start_time": "24:00"}`:      "start_time",
	}
	for body, field := range cases {
		var task models.Task
		requireInputError(t, decodeInput(t, body).Apply(&task), field)
	}
}

func TestCheckAmount_RejectsSpanEndingBeforeStart(t *testing.T) {
	var task models.Task
	task.PricingType = models.PricingHourly
	in := decodeInput(t, `{
		"hourly_rate": "10.00",
		"start_date": "2024-06-02", "start_time": "09:00",
		"end_date": "2024-06-01", "end_time": "09:00"
	}`)
	require.NoError(t, in.Apply(&task))

	err := checkAmount(task)
	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
}
