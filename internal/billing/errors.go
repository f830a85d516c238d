package billing

import (
	"fmt"

	"github.com/google/uuid"
)

// ComputationError reports malformed billing input. It is never used for
// missing data, which degrades to a zero amount instead.
type ComputationError struct {
	TaskID uuid.UUID
	Field  string
	Reason string
}

func (e *ComputationError) Error() string {
	if e.TaskID == uuid.Nil {
		return fmt.Sprintf("billing: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("billing: task %s: %s: %s", e.TaskID, e.Field, e.Reason)
}

func computationErr(taskID uuid.UUID, field, reason string) error {
	return &ComputationError{TaskID: taskID, Field: field, Reason: reason}
}
