package invitations

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
	ErrInvalidRole            = errors.New("invalid invitation role")
	ErrCannotInviteSuperAdmin = errors.New("cannot invite super_admin role")
	ErrInvitationNotFound     = errors.New("invitation not found")
	ErrInvalidLimits          = errors.New("max uses and expiry must be positive")
)

const linkColumns = `id, organization_id, role, expires, max_uses, used_count, active, created_by_id, created_at`

// Service persists invitation links
type Service struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, now: time.Now}
}

// CreateParams are the options of a new invitation link
type CreateParams struct {
	Role      models.Role
	ExpiresIn *time.Duration
	MaxUses   *int
}

// Create issues a new link. The plaintext token is only ever returned here.
func (s *Service) Create(ctx context.Context, actor models.User, orgID uuid.UUID, params CreateParams) (*models.InvitationLink, error) {
	if params.Role == models.RoleSuperAdmin {
		return nil, ErrCannotInviteSuperAdmin
	}
	if !access.CanInviteAs(params.Role) {
		return nil, ErrInvalidRole
	}
	if (params.MaxUses != nil && *params.MaxUses <= 0) || (params.ExpiresIn != nil && *params.ExpiresIn <= 0) {
		return nil, ErrInvalidLimits
	}

	if err := access.Require(actor, access.ActionInvitationCreate, access.Resource{
		OrganizationID: orgID,
		InvitationRole: params.Role,
	}); err != nil {
		return nil, err
	}

	var expires *time.Time
	if params.ExpiresIn != nil {
		t := s.now().UTC().Add(*params.ExpiresIn)
		expires = &t
	}

	for attempt := 0; attempt < 3; attempt++ {
		token, tokenHash, err := GenerateToken()
		if err != nil {
			return nil, err
		}

		link, err := scanLink(s.pool.QueryRow(ctx, `
			INSERT INTO invitation_links (organization_id, token_hash, role, expires, max_uses, created_by_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+linkColumns,
			orgID, tokenHash, params.Role, expires, params.MaxUses, actor.ID))
		if err == nil {
			link.Token = token
			return link, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil, fmt.Errorf("failed to create invitation: token collision retry exhausted")
}

// List returns the organization's links, newest first
func (s *Service) List(ctx context.Context, actor models.User, orgID uuid.UUID, includeInactive bool) ([]models.InvitationLink, error) {
	if err := access.Require(actor, access.ActionInvitationCreate, access.Resource{
		OrganizationID: orgID,
		InvitationRole: models.RoleStaff,
	}); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+linkColumns+`
		FROM invitation_links
		WHERE organization_id = $1
		  AND (active OR $2)
		ORDER BY created_at DESC
	`, orgID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	links := []models.InvitationLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return links, nil
}

// Revoke deactivates a link. Revoked links are never reactivated.
func (s *Service) Revoke(ctx context.Context, actor models.User, orgID, linkID uuid.UUID) (*models.InvitationLink, error) {
	link, err := scanLink(s.pool.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM invitation_links
		WHERE id = $1 AND organization_id = $2
	`, linkID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	if err := access.Require(actor, access.ActionInvitationDelete, access.Resource{
		OrganizationID: link.OrganizationID,
		InvitationRole: link.Role,
	}); err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE invitation_links SET active = FALSE WHERE id = $1
	`, link.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke invitation: %w", err)
	}
	link.Active = false

	return link, nil
}

// Check validates a token without consuming it
func (s *Service) Check(ctx context.Context, token string) (Result, error) {
	link, err := s.loadByToken(ctx, s.pool, token, false)
	if err != nil {
		return Result{}, err
	}
	return Validate(link, s.now()), nil
}

// Redeem validates and consumes a token inside tx. The link row is locked
// and the increment is conditional, so concurrent registrations can never
// push used_count past max_uses. It returns the link as consumed.
func (s *Service) Redeem(ctx context.Context, tx pgx.Tx, token string) (Result, *models.InvitationLink, error) {
	now := s.now()

	link, err := s.loadByToken(ctx, tx, token, true)
	if err != nil {
		return Result{}, nil, err
	}

	res := Validate(link, now)
	if !res.Valid {
		return res, link, res.Err()
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invitation_links
		SET used_count = used_count + 1
		WHERE id = $1
		  AND active
		  AND (max_uses IS NULL OR used_count < max_uses)
		  AND (expires IS NULL OR expires >= $2)
	`, link.ID, now)
	if err != nil {
		return Result{}, nil, fmt.Errorf("failed to consume invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		res = Result{Reason: ReasonExhausted}
		return res, link, res.Err()
	}
	Consume(link)

	return res, link, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// loadByToken returns nil, nil for unknown or malformed tokens
func (s *Service) loadByToken(ctx context.Context, q queryRower, token string, lock bool) (*models.InvitationLink, error) {
	if !ValidTokenFormat(token) {
		return nil, nil
	}

	query := `SELECT ` + linkColumns + ` FROM invitation_links WHERE token_hash = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	link, err := scanLink(q.QueryRow(ctx, query, HashToken(token)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	return link, nil
}

func scanLink(row pgx.Row) (*models.InvitationLink, error) {
	var link models.InvitationLink
	var createdBy uuid.NullUUID
	err := row.Scan(
		&link.ID,
		&link.OrganizationID,
		&link.Role,
		&link.Expires,
		&link.MaxUses,
		&link.UsedCount,
		&link.Active,
		&createdBy,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	link.CreatedByID = createdBy.UUID
	return &link, nil
}
