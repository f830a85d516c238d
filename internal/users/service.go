// Package users stores accounts and implements registration, approval and
// the organization-scoped user administration actions.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUserNotFound is returned when a user does not exist or is not in the organization
	ErrUserNotFound = auth.ErrUserNotFound

	// ErrAlreadyApproved is returned when approving a user twice
	ErrAlreadyApproved = errors.New("user is already approved")

	// ErrCannotDeleteSelf is returned when an actor tries to delete their own account
	ErrCannotDeleteSelf = errors.New("cannot delete yourself")

	// ErrInvalidRole is returned for unknown roles
	ErrInvalidRole = errors.New("invalid role")

	// ErrProjectNotInOrg is returned when approval names a project of another organization
	ErrProjectNotInOrg = errors.New("project does not belong to this organization")

	// ErrNotMember is returned when switching to an organization the user does not belong to
	ErrNotMember = errors.New("user is not a member of this organization")
)

const userColumns = `id, email, name, role, is_approved, current_organization_id, created_at, updated_at`

// Service provides user-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new user service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// GetByID loads a user. It satisfies auth.ActorLoader.
func (s *Service) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListPending returns the unapproved members of an organization, oldest first
func (s *Service) ListPending(ctx context.Context, actor models.User, orgID uuid.UUID) ([]models.User, error) {
	if err := access.Require(actor, access.ActionUserApprove, access.Resource{OrganizationID: orgID}); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.is_approved, u.current_organization_id, u.created_at, u.updated_at
		FROM users u
		INNER JOIN org_memberships m ON m.user_id = u.id
		WHERE m.org_id = $1 AND NOT u.is_approved
		ORDER BY u.created_at ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// Approve marks a pending member approved and optionally adds them to projects.
// Approval happens exactly once.
func (s *Service) Approve(ctx context.Context, actor models.User, orgID, targetUserID uuid.UUID, projectIDs []uuid.UUID) (*models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	target, err := lockMember(ctx, tx, orgID, targetUserID)
	if err != nil {
		return nil, err
	}

	if err := access.Require(actor, access.ActionUserApprove, access.Resource{OrganizationID: orgID, User: target}); err != nil {
		return nil, err
	}
	if target.IsApproved {
		return nil, ErrAlreadyApproved
	}

	if err := tx.QueryRow(ctx, `
		UPDATE users
		SET is_approved = TRUE,
		    current_organization_id = COALESCE(current_organization_id, $2),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, target.ID, orgID).Scan(&target.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to approve user: %w", err)
	}
	target.IsApproved = true
	if target.CurrentOrganizationID == uuid.Nil {
		target.CurrentOrganizationID = orgID
	}

	for _, projectID := range projectIDs {
		tag, err := tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id)
			SELECT id, $2 FROM projects WHERE id = $1 AND organization_id = $3
			ON CONFLICT DO NOTHING
		`, projectID, target.ID, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to assign project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND organization_id = $2)
			`, projectID, orgID).Scan(&exists); err != nil {
				return nil, fmt.Errorf("failed to check project: %w", err)
			}
			if !exists {
				return nil, ErrProjectNotInOrg
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Str("user_id", target.ID.String()).
		Str("org_id", orgID.String()).
		Int("projects", len(projectIDs)).
		Msg("User approved")

	return target, nil
}

// UpdateParams holds the editable user fields. Nil means unchanged.
type UpdateParams struct {
	Name *string
	Role *models.Role
}

// Update edits a member's name or role and returns the previous role.
// Role changes are additionally gated by access.AssignRole.
func (s *Service) Update(ctx context.Context, actor models.User, orgID, targetUserID uuid.UUID, params UpdateParams) (*models.User, models.Role, error) {
	if params.Role != nil && !params.Role.IsValid() {
		return nil, "", ErrInvalidRole
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	target, err := lockMember(ctx, tx, orgID, targetUserID)
	if err != nil {
		return nil, "", err
	}
	previousRole := target.Role

	if err := access.Require(actor, access.ActionUserUpdate, access.Resource{OrganizationID: orgID, User: target}); err != nil {
		return nil, "", err
	}

	if params.Role != nil && *params.Role != target.Role {
		if d := access.AssignRole(actor, *params.Role); !d.Allowed {
			return nil, "", &access.DeniedError{Action: access.ActionUserUpdate, Decision: d}
		}
		target.Role = *params.Role
	}
	if params.Name != nil {
		target.Name = *params.Name
	}

	if err := tx.QueryRow(ctx, `
		UPDATE users SET name = $2, role = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, target.ID, target.Name, target.Role).Scan(&target.UpdatedAt); err != nil {
		return nil, "", fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return target, previousRole, nil
}

// Delete removes a member's account. Their tasks stay, unassigned.
func (s *Service) Delete(ctx context.Context, actor models.User, orgID, targetUserID uuid.UUID) (*models.User, error) {
	if targetUserID == actor.ID {
		return nil, ErrCannotDeleteSelf
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	target, err := lockMember(ctx, tx, orgID, targetUserID)
	if err != nil {
		return nil, err
	}

	if err := access.Require(actor, access.ActionUserDelete, access.Resource{OrganizationID: orgID, User: target}); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, target.ID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return target, nil
}

// SwitchOrganization changes the actor's active organization. A super_admin
// may switch to any existing organization, everyone else needs a membership.
func (s *Service) SwitchOrganization(ctx context.Context, actor models.User, orgID uuid.UUID) (*models.User, error) {
	var allowed bool
	if actor.Role == models.RoleSuperAdmin {
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)
		`, orgID).Scan(&allowed); err != nil {
			return nil, fmt.Errorf("failed to check organization: %w", err)
		}
	} else {
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM org_memberships WHERE org_id = $1 AND user_id = $2)
		`, orgID, actor.ID).Scan(&allowed); err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	}
	if !allowed {
		return nil, ErrNotMember
	}

	user, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET current_organization_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		actor.ID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to switch organization: %w", err)
	}

	return user, nil
}

// lockMember loads and locks a user that belongs to orgID
func lockMember(ctx context.Context, tx pgx.Tx, orgID, userID uuid.UUID) (*models.User, error) {
	user, err := scanUser(tx.QueryRow(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.is_approved, u.current_organization_id, u.created_at, u.updated_at
		FROM users u
		INNER JOIN org_memberships m ON m.user_id = u.id AND m.org_id = $2
		WHERE u.id = $1
		FOR UPDATE OF u
	`, userID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var currentOrg uuid.NullUUID
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.IsApproved,
		&currentOrg,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CurrentOrganizationID = currentOrg.UUID
	return &user, nil
}
