package orgs

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

// NameRequest carries an organization name for create and rename
type NameRequest struct {
	Name string `json:"name"`
}

func decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req NameRequest
	if !apperrors.DecodeJSON(w, r, &req) {
		return "", false
	}
	name := validation.NormalizeName(req.Name)
	if err := validation.ValidateName(name); err != nil {
		apperrors.WriteBadRequest(w, r, "Organization "+err.Error())
		return "", false
	}
	return name, true
}

// HandleCreate handles POST /api/v1/orgs
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		name, ok := decodeName(w, r)
		if !ok {
			return
		}

		org, err := NewService(pool).Create(ctx, actor, name)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, uuid.Nil, actor.ID, denied)
			case errors.Is(err, ErrNameConflict):
				apperrors.WriteConflict(w, r, "Organization name already exists")
			default:
				log.Error().Err(err).Msg("Failed to create organization")
				apperrors.WriteInternalError(w, r, "Failed to create organization")
			}
			return
		}

		if err := auditor.LogOrgCreated(ctx, org.ID, actor.ID, org.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"org": org,
		})
	}
}

// HandleList handles GET /api/v1/orgs
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgs, err := NewService(pool).ListForUser(ctx, actor)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list organizations")
			apperrors.WriteInternalError(w, r, "Failed to list organizations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"orgs":                    orgs,
			"current_organization_id": actor.CurrentOrganizationID,
		})
	}
}

// HandleRename handles PATCH /api/v1/orgs/{org_id}
func HandleRename(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		name, ok := decodeName(w, r)
		if !ok {
			return
		}

		org, previous, err := NewService(pool).Rename(ctx, actor, orgID, name)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrOrgNotFound):
				apperrors.WriteNotFound(w, r, "Organization not found")
			case errors.Is(err, ErrNameConflict):
				apperrors.WriteConflict(w, r, "Organization name already exists")
			default:
				log.Error().Err(err).Msg("Failed to rename organization")
				apperrors.WriteInternalError(w, r, "Failed to rename organization")
			}
			return
		}

		if previous != org.Name {
			if err := auditor.LogOrgRenamed(ctx, org.ID, actor.ID, previous, org.Name); err != nil {
				log.Error().Err(err).Msg("Failed to log audit event")
			}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"org": org,
		})
	}
}

// HandleListMembers handles GET /api/v1/orgs/{org_id}/members
func HandleListMembers(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		members, err := NewService(pool).ListMembers(ctx, actor, orgID)
		if err != nil {
			var denied *access.DeniedError
			if errors.As(err, &denied) {
				apperrors.WriteDenial(w, r, denied)
				return
			}
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"members": members,
		})
	}
}
