package tasks

import (
	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/billing"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
)

// Permissions tells a client which affordances to show. It is the policy's
// answer, clients never derive it themselves.
type Permissions struct {
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// View is a task as returned by the API, with its computed amount
type View struct {
	models.Task
	AmountCents int64       `json:"amount_cents"`
	Hours       string      `json:"hours"`
	Permissions Permissions `json:"permissions"`
}

// NewView computes the amount and permissions of a task for actor
func NewView(actor models.User, orgID uuid.UUID, task models.Task) (View, error) {
	amount, err := billing.ComputeTaskAmount(task)
	if err != nil {
		return View{}, err
	}
	res := access.Resource{OrganizationID: orgID, Task: &task}
	return View{
		Task:        task,
		AmountCents: amount.AmountCents,
		Hours:       amount.Hours,
		Permissions: Permissions{
			Update: access.Authorize(actor, access.ActionTaskUpdate, res).Allowed,
			Delete: access.Authorize(actor, access.ActionTaskDelete, res).Allowed,
		},
	}, nil
}

// NewViews is NewView over a list
func NewViews(actor models.User, orgID uuid.UUID, tasks []models.Task) ([]View, error) {
	out := make([]View, 0, len(tasks))
	for _, task := range tasks {
		v, err := NewView(actor, orgID, task)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
