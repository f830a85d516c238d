package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aliuyar1234/tasktally/internal/billing"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/google/uuid"
)

// MaxDescriptionLength bounds task descriptions
const MaxDescriptionLength = 10000

var clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

// Field is a JSON member that tells absent, null and present apart, so a
// partial update can clear nullable columns.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Null = true
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// Input is the body of a task create or update. Money and hours are
// decimal strings ("1,250.00", "2.5") converted to cents and seconds once, here.
type Input struct {
	ProjectID    Field[uuid.UUID]          `json:"project_id"`
	Title        Field[string]             `json:"title"`
	Description  Field[string]             `json:"description"`
	AssignedToID Field[uuid.UUID]          `json:"assigned_to_id"`
	Status       Field[models.TaskStatus]  `json:"status"`
	PricingType  Field[models.PricingType] `json:"pricing_type"`
	Currency     Field[string]             `json:"currency"`
	HourlyRate   Field[string]             `json:"hourly_rate"`
	FixedPrice   Field[string]             `json:"fixed_price"`
	Hours        Field[string]             `json:"hours"`
	StartDate    Field[string]             `json:"start_date"`
	EndDate      Field[string]             `json:"end_date"`
	StartTime    Field[string]             `json:"start_time"`
	EndTime      Field[string]             `json:"end_time"`
	DueDate      Field[time.Time]          `json:"due_date"`
}

// InputError is a rejected task field
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &InputError{Field: field, Message: message}
}

// Apply writes the present fields of in onto task. The task is left
// partially modified when an error is returned.
func (in Input) Apply(task *models.Task) error {
	if in.ProjectID.Set {
		if in.ProjectID.Null || in.ProjectID.Value == uuid.Nil {
			return invalid("project_id", "is required")
		}
		task.ProjectID = in.ProjectID.Value
	}

	if in.Title.Set {
		title := validation.NormalizeName(in.Title.Value)
		if in.Title.Null || validation.ValidateName(title) != nil {
			return invalid("title", "is required and must be at most 200 characters")
		}
		task.Title = title
	}

	if in.Description.Set {
		if len(in.Description.Value) > MaxDescriptionLength {
			return invalid("description", "is too long")
		}
		task.Description = in.Description.Value
	}

	if in.AssignedToID.Set {
		if in.AssignedToID.Null || in.AssignedToID.Value == uuid.Nil {
			task.AssignedToID = nil
		} else {
			id := in.AssignedToID.Value
			task.AssignedToID = &id
		}
	}

	if in.Status.Set {
		if in.Status.Null || !in.Status.Value.IsValid() {
			return invalid("status", "must be one of todo, in_progress, completed")
		}
		task.Status = in.Status.Value
	}

	if in.PricingType.Set {
		if in.PricingType.Null || !in.PricingType.Value.IsValid() {
			return invalid("pricing_type", "must be hourly or fixed")
		}
		task.PricingType = in.PricingType.Value
	}

	if in.Currency.Set {
		if in.Currency.Null {
			return invalid("currency", "is required")
		}
		code, err := validation.NormalizeCurrency(in.Currency.Value)
		if err != nil {
			return invalid("currency", "must be an ISO 4217 code")
		}
		task.Currency = code
	}

	var err error
	if task.HourlyRate, err = applyCents("hourly_rate", in.HourlyRate, task.HourlyRate); err != nil {
		return err
	}
	if task.FixedPrice, err = applyCents("fixed_price", in.FixedPrice, task.FixedPrice); err != nil {
		return err
	}

	if in.Hours.Set {
		if in.Hours.Null || in.Hours.Value == "" {
			task.DurationSeconds = nil
		} else {
			seconds, err := billing.ParseHours(in.Hours.Value)
			if err != nil {
				return invalid("hours", "must be a non-negative number with at most two decimals")
			}
			task.DurationSeconds = &seconds
		}
	}

	if task.StartDate, err = applyDate("start_date", in.StartDate, task.StartDate); err != nil {
		return err
	}
	if task.EndDate, err = applyDate("end_date", in.EndDate, task.EndDate); err != nil {
		return err
	}
	if task.StartTime, err = applyClock("start_time", in.StartTime, task.StartTime); err != nil {
		return err
	}
	if task.EndTime, err = applyClock("end_time", in.EndTime, task.EndTime); err != nil {
		return err
	}

	if in.DueDate.Set {
		if in.DueDate.Null {
			task.DueDate = nil
		} else {
			due := in.DueDate.Value.UTC()
			task.DueDate = &due
		}
	}

	return nil
}

func applyCents(name string, f Field[string], current *int64) (*int64, error) {
	if !f.Set {
		return current, nil
	}
	if f.Null || f.Value == "" {
		return nil, nil
	}
	cents, err := billing.ParseCents(f.Value)
	if err != nil {
		return nil, invalid(name, "must be a non-negative amount with at most two decimals")
	}
	return &cents, nil
}

func applyDate(name string, f Field[string], current *time.Time) (*time.Time, error) {
	if !f.Set {
		return current, nil
	}
	if f.Null || f.Value == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, f.Value)
	if err != nil {
		return nil, invalid(name, "must be a date in YYYY-MM-DD form")
	}
	return &d, nil
}

func applyClock(name string, f Field[string], current *string) (*string, error) {
	if !f.Set {
		return current, nil
	}
	if f.Null || f.Value == "" {
		return nil, nil
	}
	if !clockRegex.MatchString(f.Value) {
		return nil, invalid(name, "must be a time in HH:MM or HH:MM:SS form")
	}
	v := f.Value
	return &v, nil
}

// checkAmount validates the task through the billing engine so malformed
// pricing is rejected at entry instead of breaking an invoice later
func checkAmount(task models.Task) error {
	if _, err := billing.ComputeTaskAmount(task); err != nil {
		var ce *billing.ComputationError
		if errors.As(err, &ce) {
			return invalid(ce.Field, ce.Reason)
		}
		return err
	}
	return nil
}
