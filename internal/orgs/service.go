package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrOrgNotFound is returned when an organization is not found
	ErrOrgNotFound = errors.New("organization not found")

	// ErrNameConflict is returned when an organization name already exists
	ErrNameConflict = errors.New("organization name already exists")
)

// Member is a user listed within an organization
type Member struct {
	UserID     uuid.UUID   `json:"user_id"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Role       models.Role `json:"role"`
	IsApproved bool        `json:"is_approved"`
	JoinedAt   time.Time   `json:"joined_at"`
}

// Service provides organization-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new organization service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// GetByID retrieves an organization by ID
func (s *Service) GetByID(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := scanOrg(s.pool.QueryRow(ctx, `
		SELECT id, name, created_by_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListForUser returns the organizations the actor belongs to. A super_admin sees all of them.
func (s *Service) ListForUser(ctx context.Context, actor models.User) ([]models.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.name, o.created_by_id, o.created_at, o.updated_at
		FROM organizations o
		WHERE $2 OR EXISTS (
			SELECT 1 FROM org_memberships m WHERE m.org_id = o.id AND m.user_id = $1
		)
		ORDER BY o.name ASC
	`, actor.ID, actor.Role == models.RoleSuperAdmin && actor.IsApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orgs: %w", err)
	}
	defer rows.Close()

	orgs := []models.Organization{}
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan org: %w", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating org rows: %w", err)
	}

	return orgs, nil
}

// Create creates an organization with the actor as its first member.
// The actor's current organization is set if they had none.
func (s *Service) Create(ctx context.Context, actor models.User, name string) (*models.Organization, error) {
	if err := access.Require(actor, access.ActionOrganizationManage, access.Resource{}); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	org, err := scanOrg(tx.QueryRow(ctx, `
		INSERT INTO organizations (name, created_by_id)
		VALUES ($1, $2)
		RETURNING id, name, created_by_id, created_at, updated_at
	`, name, actor.ID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO org_memberships (org_id, user_id) VALUES ($1, $2)
	`, org.ID, actor.ID); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET current_organization_id = $2, updated_at = NOW()
		WHERE id = $1 AND current_organization_id IS NULL
	`, actor.ID, org.ID); err != nil {
		return nil, fmt.Errorf("failed to set current organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return org, nil
}

// Rename changes an organization's name and returns the previous one
func (s *Service) Rename(ctx context.Context, actor models.User, orgID uuid.UUID, name string) (*models.Organization, string, error) {
	if err := access.Require(actor, access.ActionOrganizationManage, access.Resource{OrganizationID: orgID}); err != nil {
		return nil, "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous string
	if err := tx.QueryRow(ctx, `
		SELECT name FROM organizations WHERE id = $1 FOR UPDATE
	`, orgID).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrOrgNotFound
		}
		return nil, "", fmt.Errorf("failed to load organization: %w", err)
	}

	org, err := scanOrg(tx.QueryRow(ctx, `
		UPDATE organizations SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, created_by_id, created_at, updated_at
	`, orgID, name))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", ErrNameConflict
		}
		return nil, "", fmt.Errorf("failed to rename organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return org, previous, nil
}

// ListMembers retrieves all members of an organization
func (s *Service) ListMembers(ctx context.Context, actor models.User, orgID uuid.UUID) ([]Member, error) {
	if err := requireView(actor, orgID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.is_approved, m.created_at
		FROM org_memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.org_id = $1
		ORDER BY m.created_at ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var member Member
		err := rows.Scan(
			&member.UserID,
			&member.Email,
			&member.Name,
			&member.Role,
			&member.IsApproved,
			&member.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

func requireView(actor models.User, orgID uuid.UUID) error {
	if d := access.ViewOrganization(actor, orgID); !d.Allowed {
		return &access.DeniedError{Action: access.ActionOrganizationManage, Decision: d}
	}
	return nil
}

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	var createdBy uuid.NullUUID
	if err := row.Scan(&org.ID, &org.Name, &createdBy, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.CreatedByID = createdBy.UUID
	return &org, nil
}
