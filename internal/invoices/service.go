// Package invoices builds invoice reports over the tasks a user may see.
package invoices

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aliuyar1234/tasktally/internal/billing"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/aliuyar1234/tasktally/internal/projects"
	"github.com/aliuyar1234/tasktally/internal/tasks"
	"github.com/google/uuid"
)

// Request selects the tasks of an invoice and carries its parties
type Request struct {
	Filter        tasks.Filter
	Currency      string
	InvoiceNumber string
	IssuedOn      *time.Time
	Parties       billing.Parties
}

// Invoice is a computed invoice ready for rendering
type Invoice struct {
	InvoiceNumber string                  `json:"invoice_number,omitempty"`
	IssuedOn      string                  `json:"issued_on"`
	Parties       billing.ResolvedParties `json:"parties"`
	Report        *billing.Report         `json:"report"`
	TaskCount     int                     `json:"task_count"`
}

// Service builds invoices
type Service struct {
	tasks    *tasks.Service
	projects *projects.Service
	now      func() time.Time
}

func NewService(taskService *tasks.Service, projectService *projects.Service) *Service {
	return &Service{tasks: taskService, projects: projectService, now: time.Now}
}

// Build lists the actor's visible tasks matching the request, orders them
// chronologically and runs them through the billing engine.
func (s *Service) Build(ctx context.Context, actor models.User, orgID uuid.UUID, req Request) (*Invoice, error) {
	filter := req.Filter
	filter.Currency = ""

	list, err := s.tasks.List(ctx, actor, orgID, filter)
	if err != nil {
		return nil, err
	}
	SortChronologically(list)

	byID, err := s.projects.ByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	report, err := billing.BuildInvoiceReport(list, byID, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice report: %w", err)
	}

	issued := s.now().UTC()
	if req.IssuedOn != nil {
		issued = req.IssuedOn.UTC()
	}

	return &Invoice{
		InvoiceNumber: req.InvoiceNumber,
		IssuedOn:      issued.Format(time.DateOnly),
		Parties:       billing.ResolveParties(req.Parties),
		Report:        report,
		TaskCount:     len(list),
	}, nil
}

// SortChronologically orders tasks by when the work started: start date and
// time when recorded, creation time otherwise. Ties keep their order.
func SortChronologically(list []models.Task) {
	sort.SliceStable(list, func(i, j int) bool {
		return workedAt(list[i]).Before(workedAt(list[j]))
	})
}

func workedAt(task models.Task) time.Time {
	if start, ok := billing.StartedAt(task); ok {
		return start
	}
	return task.CreatedAt
}
