package users

import (
	"errors"
	"net/http"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/invitations"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Email           string     `json:"email"`
	Password        string     `json:"password"`
	Name            string     `json:"name"`
	InvitationToken string     `json:"invitation_token"`
	OrganizationID  *uuid.UUID `json:"organization_id"`
}

// HandleSignup handles POST /api/v1/auth/signup
func HandleSignup(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SignupRequest
		if !apperrors.DecodeJSON(w, r, &req) {
			return
		}

		result, err := NewService(pool).Signup(ctx, SignupParams{
			Email:           req.Email,
			Password:        req.Password,
			Name:            req.Name,
			InvitationToken: req.InvitationToken,
			OrganizationID:  req.OrganizationID,
		})
		if err != nil {
			var invalid *invitations.InvalidError
			switch {
			case errors.As(err, &invalid):
				invitations.WriteInvalid(w, r, invalid.Reason)
			case errors.Is(err, validation.ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, "Invalid email address")
			case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, validation.ErrNameRequired), errors.Is(err, validation.ErrNameTooLong):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, ErrEmailTaken):
				apperrors.WriteConflict(w, r, "Email address already registered")
			case errors.Is(err, ErrOrganizationNotFound):
				apperrors.WriteNotFound(w, r, "Organization not found")
			default:
				log.Error().Err(err).Msg("Failed to sign up user")
				apperrors.WriteInternalError(w, r, "Failed to create account")
			}
			return
		}

		user := result.User
		var orgID *uuid.UUID
		if user.CurrentOrganizationID != uuid.Nil {
			orgID = &user.CurrentOrganizationID
		}
		if err := auditor.LogUserSignup(ctx, user.ID, user.Email, orgID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
		if link := result.Invitation; link != nil {
			if err := auditor.LogInvitationRedeemed(ctx, link.OrganizationID, user.ID, link.ID, string(link.Role), link.UsedCount); err != nil {
				log.Error().Err(err).Msg("Failed to log audit event")
			}
		}

		if err := auth.StartSession(w, user.ID, jwtSecret, sessionDays, isProduction); err != nil {
			log.Error().Err(err).Msg("Failed to create token")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}

		log.Info().
			Str("user_id", user.ID.String()).
			Str("role", string(user.Role)).
			Bool("approved", user.IsApproved).
			Msg("User signed up successfully")

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"user": user,
		})
	}
}

// HandleListPending handles GET /api/v1/orgs/{org_id}/users/pending
func HandleListPending(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		pending, err := NewService(pool).ListPending(ctx, actor, orgID)
		if err != nil {
			var denied *access.DeniedError
			if errors.As(err, &denied) {
				apperrors.WriteDenial(w, r, denied)
				return
			}
			log.Error().Err(err).Msg("Failed to list pending users")
			apperrors.WriteInternalError(w, r, "Failed to list pending users")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"users": pending,
		})
	}
}

type ApproveRequest struct {
	ProjectIDs []uuid.UUID `json:"project_ids"`
}

// HandleApprove handles POST /api/v1/orgs/{org_id}/users/{user_id}/approve
func HandleApprove(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, targetUserID, ok := parseMemberPath(w, r)
		if !ok {
			return
		}

		var req ApproveRequest
		if r.ContentLength != 0 {
			if !apperrors.DecodeJSON(w, r, &req) {
				return
			}
		}

		user, err := NewService(pool).Approve(ctx, actor, orgID, targetUserID, req.ProjectIDs)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "User not found")
			case errors.Is(err, ErrAlreadyApproved):
				apperrors.WriteConflict(w, r, "User is already approved")
			case errors.Is(err, ErrProjectNotInOrg):
				apperrors.WriteBadRequest(w, r, "Project does not belong to this organization")
			default:
				log.Error().Err(err).Msg("Failed to approve user")
				apperrors.WriteInternalError(w, r, "Failed to approve user")
			}
			return
		}

		if err := auditor.LogUserApproved(ctx, orgID, actor.ID, user.ID, req.ProjectIDs); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user": user,
		})
	}
}

type UpdateRequest struct {
	Name *string      `json:"name"`
	Role *models.Role `json:"role"`
}

// HandleUpdate handles PATCH /api/v1/orgs/{org_id}/users/{user_id}
func HandleUpdate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, targetUserID, ok := parseMemberPath(w, r)
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
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			req.Name = &name
		}

		user, prevRole, err := NewService(pool).Update(ctx, actor, orgID, targetUserID, UpdateParams{Name: req.Name, Role: req.Role})
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "User not found")
			case errors.Is(err, ErrInvalidRole):
				apperrors.WriteBadRequest(w, r, "Invalid role")
			default:
				log.Error().Err(err).Msg("Failed to update user")
				apperrors.WriteInternalError(w, r, "Failed to update user")
			}
			return
		}

		if err := auditor.LogUserUpdated(ctx, orgID, actor.ID, user.ID, string(prevRole), string(user.Role)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user": user,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}/users/{user_id}
func HandleDelete(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, targetUserID, ok := parseMemberPath(w, r)
		if !ok {
			return
		}

		user, err := NewService(pool).Delete(ctx, actor, orgID, targetUserID)
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.As(err, &denied):
				auditor.Deny(w, r, orgID, actor.ID, denied)
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "User not found")
			case errors.Is(err, ErrCannotDeleteSelf):
				apperrors.WriteConflict(w, r, "You cannot delete your own account")
			default:
				log.Error().Err(err).Msg("Failed to delete user")
				apperrors.WriteInternalError(w, r, "Failed to delete user")
			}
			return
		}

		if err := auditor.LogUserDeleted(ctx, orgID, actor.ID, user.ID, user.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

type SwitchOrganizationRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
}

// HandleSwitchOrganization handles PUT /api/v1/me/organization
func HandleSwitchOrganization(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		var req SwitchOrganizationRequest
		if !apperrors.DecodeJSON(w, r, &req) {
			return
		}
		if req.OrganizationID == uuid.Nil {
			apperrors.WriteBadRequest(w, r, "organization_id is required")
			return
		}

		user, err := NewService(pool).SwitchOrganization(ctx, actor, req.OrganizationID)
		if err != nil {
			if errors.Is(err, ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to switch organization")
			apperrors.WriteInternalError(w, r, "Failed to switch organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user": user,
		})
	}
}

func parseMemberPath(w http.ResponseWriter, r *http.Request) (orgID, userID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid user ID")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, userID, true
}
