package projects

import (
	"errors"
	"net/http"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MaxDescriptionLength bounds project descriptions
const MaxDescriptionLength = 2000

// CreateRequest represents the request to create a project
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateRequest represents a partial project update
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/projects
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req CreateRequest
		if !apperrors.DecodeJSON(w, r, &req) {
			return
		}

		name := validation.NormalizeName(req.Name)
		if err := validation.ValidateName(name); err != nil {
			apperrors.WriteBadRequest(w, r, "Project "+err.Error())
			return
		}
		if len(req.Description) > MaxDescriptionLength {
			apperrors.WriteBadRequest(w, r, "Project description is too long")
			return
		}

		project, err := NewService(pool).Create(ctx, actor, orgID, name, req.Description)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrNameConflict):
				apperrors.WriteConflict(w, r, "Project name already exists in organization")
			default:
				log.Error().Err(err).Msg("Failed to create project")
				apperrors.WriteInternalError(w, r, "Failed to create project")
			}
			return
		}

		if err := auditor.LogProjectCreated(ctx, orgID, project.ID, actor.ID, project.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"project": project,
		})
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/projects
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		projects, err := NewService(pool).ListByOrg(ctx, actor, orgID)
		if err != nil {
			var denied *access.DeniedError
			if errors.As(err, &denied) {
				apperrors.WriteDenial(w, r, denied)
				return
			}
			log.Error().Err(err).Msg("Failed to list projects")
			apperrors.WriteInternalError(w, r, "Failed to list projects")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"projects": projects,
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}/projects/{project_id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, projectID, ok := parseProjectPath(w, r)
		if !ok {
			return
		}

		project, err := NewService(pool).Get(ctx, actor, orgID, projectID)
		if err != nil {
			writeError(w, r, nil, orgID, actor.ID, err, "Failed to get project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"project": project,
		})
	}
}

// HandleUpdate handles PATCH /api/v1/orgs/{org_id}/projects/{project_id}
func HandleUpdate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, projectID, ok := parseProjectPath(w, r)
		if !ok {
			return
		}

		var req UpdateRequest
		if !apperrors.DecodeJSON(w, r, &req) {
			return
		}
		if req.Name != nil {
			name := validation.NormalizeName(*req.Name)
			if err := validation.ValidateName(name); err != nil {
				apperrors.WriteBadRequest(w, r, "Project "+err.Error())
				return
			}
			req.Name = &name
		}
		if req.Description != nil && len(*req.Description) > MaxDescriptionLength {
			apperrors.WriteBadRequest(w, r, "Project description is too long")
			return
		}

		project, err := NewService(pool).Update(ctx, actor, orgID, projectID, UpdateParams{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			writeError(w, r, auditor, orgID, actor.ID, err, "Failed to update project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"project": project,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}/projects/{project_id}
func HandleDelete(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, projectID, ok := parseProjectPath(w, r)
		if !ok {
			return
		}

		project, err := NewService(pool).Delete(ctx, actor, orgID, projectID)
		if err != nil {
			writeError(w, r, auditor, orgID, actor.ID, err, "Failed to delete project")
			return
		}

		if err := auditor.LogProjectDeleted(ctx, orgID, project.ID, actor.ID, project.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

// writeError maps service errors. Denials are audited when auditor is set.
func writeError(w http.ResponseWriter, r *http.Request, auditor *audit.Writer, orgID, actorID uuid.UUID, err error, message string) {
	var denied *access.DeniedError
	switch {
	case errors.As(err, &denied):
		if auditor != nil {
			auditor.Deny(w, r, orgID, actorID, denied)
			return
		}
		apperrors.WriteDenial(w, r, denied)
	case errors.Is(err, ErrProjectNotFound):
		apperrors.WriteNotFound(w, r, "Project not found")
	case errors.Is(err, ErrNameConflict):
		apperrors.WriteConflict(w, r, "Project name already exists in organization")
	default:
		log.Error().Err(err).Msg(message)
		apperrors.WriteInternalError(w, r, message)
	}
}

func parseProjectPath(w http.ResponseWriter, r *http.Request) (orgID, projectID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return uuid.Nil, uuid.Nil, false
	}
	projectID, err = uuid.Parse(chi.URLParam(r, "project_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid project ID")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, projectID, true
}
