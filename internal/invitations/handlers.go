package invitations

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type CreateRequest struct {
	Role           models.Role `json:"role"`
	ExpiresInHours *int        `json:"expires_in_hours"`
	MaxUses        *int        `json:"max_uses"`
}

type CreateResponse struct {
	models.InvitationLink
	SignupURL string `json:"signup_url"`
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/invitations
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
		if req.Role == "" {
			req.Role = models.RoleStaff
		}

		params := CreateParams{Role: req.Role, MaxUses: req.MaxUses}
		if req.ExpiresInHours != nil {
			d := time.Duration(*req.ExpiresInHours) * time.Hour
			params.ExpiresIn = &d
		}

		link, err := NewService(pool).Create(ctx, actor, orgID, params)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrCannotInviteSuperAdmin), errors.Is(err, ErrInvalidLimits):
				apperrors.WriteBadRequest(w, r, err.Error())
			default:
				log.Error().Err(err).Msg("Failed to create invitation")
				apperrors.WriteInternalError(w, r, "Failed to create invitation")
			}
			return
		}

		if err := auditor.LogInvitationCreated(ctx, orgID, actor.ID, link.ID, string(link.Role), link.MaxUses, link.Expires); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invitation": CreateResponse{
				InvitationLink: *link,
				SignupURL:      "/signup?invitation_token=" + url.QueryEscape(link.Token),
			},
		})
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/invitations
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		links, err := NewService(pool).List(ctx, actor, orgID, r.URL.Query().Get("all") == "true")
		if err != nil {
			var denied *access.DeniedError
			if errors.As(err, &denied) {
				apperrors.WriteDenial(w, r, denied)
				return
			}
			log.Error().Err(err).Msg("Failed to list invitations")
			apperrors.WriteInternalError(w, r, "Failed to list invitations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitations": links,
		})
	}
}

// HandleRevoke handles DELETE /api/v1/orgs/{org_id}/invitations/{invitation_id}
func HandleRevoke(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		linkID, err := uuid.Parse(chi.URLParam(r, "invitation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		link, err := NewService(pool).Revoke(ctx, actor, orgID, linkID)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrInvitationNotFound):
				apperrors.WriteNotFound(w, r, "Invitation not found")
			default:
				log.Error().Err(err).Msg("Failed to revoke invitation")
				apperrors.WriteInternalError(w, r, "Failed to revoke invitation")
			}
			return
		}

		if err := auditor.LogInvitationRevoked(ctx, orgID, actor.ID, link.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// HandleValidate handles GET /api/v1/invitations/validate/{token}. It is public.
func HandleValidate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := NewService(pool).Check(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			log.Error().Err(err).Msg("Failed to validate invitation")
			apperrors.WriteInternalError(w, r, "Failed to validate invitation")
			return
		}
		if !res.Valid {
			WriteInvalid(w, r, res.Reason)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitation": res,
		})
	}
}

// WriteInvalid maps an invitation failure reason onto its HTTP status
func WriteInvalid(w http.ResponseWriter, r *http.Request, reason Reason) {
	switch reason {
	case ReasonNotFound:
		apperrors.WriteError(w, r, http.StatusNotFound, string(reason), "Invitation not found")
	case ReasonInactive:
		apperrors.WriteError(w, r, http.StatusConflict, string(reason), "Invitation has been revoked")
	case ReasonExpired:
		apperrors.WriteGone(w, r, string(reason), "Invitation has expired")
	case ReasonExhausted:
		apperrors.WriteError(w, r, http.StatusConflict, string(reason), "Invitation has been used up")
	default:
		apperrors.WriteBadRequest(w, r, "Invalid invitation")
	}
}
