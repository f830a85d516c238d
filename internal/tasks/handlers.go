package tasks

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxCommentLength bounds task comments
const MaxCommentLength = 5000

// Handlers serves the task endpoints
type Handlers struct {
	service *Service
	auditor *audit.Writer
}

// NewHandlers creates task handlers over service
func NewHandlers(service *Service, auditor *audit.Writer) *Handlers {
	return &Handlers{service: service, auditor: auditor}
}

// Create handles POST /api/v1/orgs/{org_id}/tasks
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return
	}

	var in Input
	if !apperrors.DecodeJSON(w, r, &in) {
		return
	}

	task, err := h.service.Create(ctx, actor, orgID, in)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to create task")
		return
	}

	log.Info().
		Str("task_id", task.ID.String()).
		Str("project_id", task.ProjectID.String()).
		Str("user_id", actor.ID.String()).
		Msg("Task created")

	h.writeTask(w, r, http.StatusCreated, actor, orgID, *task)
}

// List handles GET /api/v1/orgs/{org_id}/tasks
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return
	}

	filter, err := ParseFilter(r)
	if err != nil {
		apperrors.WriteBadRequest(w, r, err.Error())
		return
	}

	tasks, err := h.service.List(ctx, actor, orgID, filter)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to list tasks")
		return
	}

	views, err := NewViews(actor, orgID, tasks)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute task amounts")
		apperrors.WriteInternalError(w, r, "Failed to compute task amounts")
		return
	}

	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"tasks": views,
	})
}

// Get handles GET /api/v1/orgs/{org_id}/tasks/{task_id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, taskID, ok := parseTaskPath(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(ctx, actor, orgID, taskID)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to get task")
		return
	}

	h.writeTask(w, r, http.StatusOK, actor, orgID, *task)
}

// Update handles PATCH /api/v1/orgs/{org_id}/tasks/{task_id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, taskID, ok := parseTaskPath(w, r)
	if !ok {
		return
	}

	var in Input
	if !apperrors.DecodeJSON(w, r, &in) {
		return
	}

	task, cs, err := h.service.Update(ctx, actor, orgID, taskID, in)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to update task")
		return
	}

	if !cs.Empty() {
		log.Info().
			Str("task_id", task.ID.String()).
			Str("user_id", actor.ID.String()).
			Str("changes", cs.Describe()).
			Msg("Task updated")
	}

	h.writeTask(w, r, http.StatusOK, actor, orgID, *task)
}

// Delete handles DELETE /api/v1/orgs/{org_id}/tasks/{task_id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, taskID, ok := parseTaskPath(w, r)
	if !ok {
		return
	}

	task, err := h.service.Delete(ctx, actor, orgID, taskID)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to delete task")
		return
	}

	if err := h.auditor.LogTaskDeleted(ctx, orgID, task.ProjectID, task.ID, actor.ID, task.Title); err != nil {
		log.Error().Err(err).Msg("Failed to log audit event")
	}

	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

// History handles GET /api/v1/orgs/{org_id}/tasks/{task_id}/history
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, taskID, ok := parseTaskPath(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(ctx, actor, orgID, taskID)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to get task history")
		return
	}

	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"history": entries,
	})
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

// Comment handles POST /api/v1/orgs/{org_id}/tasks/{task_id}/comments
func (h *Handlers) Comment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.GetActor(ctx)

	orgID, taskID, ok := parseTaskPath(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if !apperrors.DecodeJSON(w, r, &req) {
		return
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" || len(comment) > MaxCommentLength {
		apperrors.WriteBadRequest(w, r, "Comment must be between 1 and 5000 characters")
		return
	}

	entry, err := h.service.Comment(ctx, actor, orgID, taskID, comment)
	if err != nil {
		h.writeError(w, r, orgID, actor, err, "Failed to add comment")
		return
	}

	apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
		"entry": entry,
	})
}

func (h *Handlers) writeTask(w http.ResponseWriter, r *http.Request, status int, actor models.User, orgID uuid.UUID, task models.Task) {
	view, err := NewView(actor, orgID, task)
	if err != nil {
		log.Error().Err(err).Str("task_id", task.ID.String()).Msg("Failed to compute task amount")
		apperrors.WriteInternalError(w, r, "Failed to compute task amount")
		return
	}
	apperrors.WriteSuccess(w, r, status, map[string]any{
		"task": view,
	})
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, orgID uuid.UUID, actor models.User, err error, message string) {
	var denied *access.DeniedError
	var inputErr *InputError
	switch {
	case errors.As(err, &denied):
		h.auditor.Deny(w, r, orgID, actor.ID, denied)
	case errors.As(err, &inputErr):
		apperrors.WriteBadRequest(w, r, inputErr.Error())
	case errors.Is(err, ErrTaskNotFound):
		apperrors.WriteNotFound(w, r, "Task not found")
	case errors.Is(err, ErrProjectNotFound):
		apperrors.WriteNotFound(w, r, "Project not found")
	case errors.Is(err, ErrAssigneeNotMember):
		apperrors.WriteBadRequest(w, r, "Assignee is not a member of this organization")
	default:
		log.Error().Err(err).Msg(message)
		apperrors.WriteInternalError(w, r, message)
	}
}

// ParseFilter reads a task filter from query parameters:
// project_id (repeatable), status, assigned_to_id, currency, from, to (YYYY-MM-DD, to exclusive)
func ParseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	for _, raw := range q["project_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Filter{}, errors.New("invalid project ID")
		}
		f.ProjectIDs = append(f.ProjectIDs, id)
	}

	if raw := q.Get("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.IsValid() {
			return Filter{}, errors.New("invalid status")
		}
		f.Status = status
	}

	if raw := q.Get("assigned_to_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Filter{}, errors.New("invalid assignee ID")
		}
		f.AssignedToID = &id
	}

	f.Currency = strings.ToUpper(strings.TrimSpace(q.Get("currency")))

	var err error
	if f.From, err = parseDay(q.Get("from")); err != nil {
		return Filter{}, errors.New("invalid from date")
	}
	if f.To, err = parseDay(q.Get("to")); err != nil {
		return Filter{}, errors.New("invalid to date")
	}

	return f, nil
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTaskPath(w http.ResponseWriter, r *http.Request) (orgID, taskID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return uuid.Nil, uuid.Nil, false
	}
	taskID, err = uuid.Parse(chi.URLParam(r, "task_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid task ID")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, taskID, true
}
