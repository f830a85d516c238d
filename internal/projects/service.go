package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProjectNotFound is returned when a project is not found
	ErrProjectNotFound = errors.New("project not found")

	// ErrNameConflict is returned when a project name already exists in the organization
	ErrNameConflict = errors.New("project name already exists in organization")
)

const projectColumns = `id, organization_id, name, description, created_by_id, created_at, updated_at`

// Service provides project-related operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new project service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// GetByID retrieves a project by ID with no authorization check
func (s *Service) GetByID(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := scanProject(s.pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1
	`, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// Get retrieves a project of orgID the actor may see
func (s *Service) Get(ctx context.Context, actor models.User, orgID, projectID uuid.UUID) (*models.Project, error) {
	if d := access.ViewOrganization(actor, orgID); !d.Allowed {
		return nil, &access.DeniedError{Action: access.ActionTaskRead, Decision: d}
	}
	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OrganizationID != orgID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// ListByOrg retrieves all projects for an organization, ordered by name
func (s *Service) ListByOrg(ctx context.Context, actor models.User, orgID uuid.UUID) ([]models.Project, error) {
	if d := access.ViewOrganization(actor, orgID); !d.Allowed {
		return nil, &access.DeniedError{Action: access.ActionTaskRead, Decision: d}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE organization_id = $1
		ORDER BY lower(name) ASC, created_at ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

// Create creates a new project
func (s *Service) Create(ctx context.Context, actor models.User, orgID uuid.UUID, name, description string) (*models.Project, error) {
	if err := access.Require(actor, access.ActionProjectCreate, access.Resource{OrganizationID: orgID}); err != nil {
		return nil, err
	}

	project, err := scanProject(s.pool.QueryRow(ctx, `
		INSERT INTO projects (organization_id, name, description, created_by_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+projectColumns,
		orgID, name, description, actor.ID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// UpdateParams holds the editable project fields. Nil means unchanged.
type UpdateParams struct {
	Name        *string
	Description *string
}

// Update edits a project's name or description
func (s *Service) Update(ctx context.Context, actor models.User, orgID, projectID uuid.UUID, params UpdateParams) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	project, err := lockProject(ctx, tx, orgID, projectID)
	if err != nil {
		return nil, err
	}

	if err := access.Require(actor, access.ActionProjectUpdate, access.Resource{OrganizationID: project.OrganizationID, Project: project}); err != nil {
		return nil, err
	}

	if params.Name != nil {
		project.Name = *params.Name
	}
	if params.Description != nil {
		project.Description = *params.Description
	}

	updated, err := scanProject(tx.QueryRow(ctx, `
		UPDATE projects SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+projectColumns,
		project.ID, project.Name, project.Description))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// Delete removes a project and its tasks. Task history is kept.
func (s *Service) Delete(ctx context.Context, actor models.User, orgID, projectID uuid.UUID) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	project, err := lockProject(ctx, tx, orgID, projectID)
	if err != nil {
		return nil, err
	}

	if err := access.Require(actor, access.ActionProjectDelete, access.Resource{OrganizationID: project.OrganizationID, Project: project}); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, project.ID); err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return project, nil
}

// ByID maps project IDs of an organization to their projects
func (s *Service) ByID(ctx context.Context, orgID uuid.UUID) (map[uuid.UUID]models.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]models.Project)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out[project.ID] = *project
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return out, nil
}

func lockProject(ctx context.Context, tx pgx.Tx, orgID, projectID uuid.UUID) (*models.Project, error) {
	project, err := scanProject(tx.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, projectID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var project models.Project
	var createdBy uuid.NullUUID
	err := row.Scan(
		&project.ID,
		&project.OrganizationID,
		&project.Name,
		&project.Description,
		&createdBy,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	project.CreatedByID = createdBy.UUID
	return &project, nil
}
