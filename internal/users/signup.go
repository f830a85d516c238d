package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/invitations"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email address already registered")

	// ErrOrganizationNotFound is returned when signup names an unknown organization
	ErrOrganizationNotFound = errors.New("organization not found")
)

// SignupParams is a registration request. Any role the client asks for is
// ignored: the role comes from the invitation, or is staff.
type SignupParams struct {
	Email           string
	Password        string
	Name            string
	InvitationToken string
	OrganizationID  *uuid.UUID
}

// SignupResult is the created account and, when one was used, the consumed invitation
type SignupResult struct {
	User       models.User
	Invitation *models.InvitationLink
}

// Normalize trims the free-text fields and lower-cases the email
func (p *SignupParams) Normalize() {
	p.Email = validation.NormalizeEmail(p.Email)
	p.Name = validation.NormalizeName(p.Name)
}

// Validate checks the fields that need no database access
func (p SignupParams) Validate() error {
	if err := validation.ValidateEmail(p.Email); err != nil {
		return err
	}
	if err := auth.ValidatePassword(p.Password); err != nil {
		return err
	}
	return validation.ValidateName(p.Name)
}

// Signup registers an account. With an invitation token the invitation is
// consumed in the same transaction that creates the user, and the user is
// approved into the invitation's organization at the invitation's role.
// Without one the user is an unapproved staff member, pending in the
// requested organization if any.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*SignupResult, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	result := &SignupResult{User: models.User{
		Email: params.Email,
		Name:  params.Name,
		Role:  models.RoleStaff,
	}}

	switch {
	case params.InvitationToken != "":
		res, link, err := invitations.NewService(s.pool).Redeem(ctx, tx, params.InvitationToken)
		if err != nil {
			return nil, err
		}
		if err := invitations.Admit(res, &result.User); err != nil {
			return nil, err
		}
		result.Invitation = link
	case params.OrganizationID != nil:
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)
		`, *params.OrganizationID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check organization: %w", err)
		}
		if !exists {
			return nil, ErrOrganizationNotFound
		}
		result.User.CurrentOrganizationID = *params.OrganizationID
	}

	currentOrg := uuid.NullUUID{UUID: result.User.CurrentOrganizationID, Valid: result.User.CurrentOrganizationID != uuid.Nil}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_approved, current_organization_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, result.User.Email, result.User.Name, passwordHash, result.User.Role, result.User.IsApproved, currentOrg).Scan(
		&result.User.ID,
		&result.User.CreatedAt,
		&result.User.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if currentOrg.Valid {
		if _, err := tx.Exec(ctx, `
			INSERT INTO org_memberships (org_id, user_id) VALUES ($1, $2)
		`, currentOrg.UUID, result.User.ID); err != nil {
			return nil, fmt.Errorf("failed to create membership: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}
