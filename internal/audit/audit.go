package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	EventUserSignup          = "user.signup"
	EventLoginFailed         = "auth.login_failed"
	EventOrgCreated          = "org.created"
	EventOrgRenamed          = "org.renamed"
	EventInvitationCreated   = "invitation.created"
	EventInvitationRevoked   = "invitation.revoked"
	EventInvitationRedeemed  = "invitation.redeemed"
	EventUserApproved        = "user.approved"
	EventUserUpdated         = "user.updated"
	EventUserDeleted         = "user.deleted"
	EventProjectCreated      = "project.created"
	EventProjectDeleted      = "project.deleted"
	EventTaskDeleted         = "task.deleted"
	EventAuthorizationDenied = "authorization.denied"
)

// Writer provides methods to write audit log entries.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	OrgID       *uuid.UUID
	ProjectID   *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit meta")
			return err
		}
		metaJSON = b
	}

	query := `
		INSERT INTO audit_log (org_id, project_id, actor_user_id, action, meta)
		VALUES ($1, $2, $3, $4, $5)
	`

	orgID := toNullUUID(params.OrgID)
	projectID := toNullUUID(params.ProjectID)
	actorUserID := toNullUUID(params.ActorUserID)

	_, err := w.pool.Exec(ctx, query, orgID, projectID, actorUserID, params.Action, metaJSON)
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Info().
		Str("action", params.Action).
		Interface("org_id", params.OrgID).
		Interface("project_id", params.ProjectID).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID, email string, orgID *uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       orgID,
		ActorUserID: &userID,
		Action:      EventUserSignup,
		Meta: map[string]interface{}{
			"email": email,
		},
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}

func (w *Writer) LogOrgCreated(ctx context.Context, orgID, userID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &userID,
		Action:      EventOrgCreated,
		Meta: map[string]interface{}{
			"name": name,
		},
	})
}

func (w *Writer) LogOrgRenamed(ctx context.Context, orgID, userID uuid.UUID, previousName, newName string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &userID,
		Action:      EventOrgRenamed,
		Meta: map[string]interface{}{
			"previous_name": previousName,
			"new_name":      newName,
		},
	})
}

func (w *Writer) LogInvitationCreated(ctx context.Context, orgID, actorUserID, invitationID uuid.UUID, role string, maxUses *int, expires *time.Time) error {
	meta := map[string]interface{}{
		"invitation_id": invitationID.String(),
		"role":          role,
	}
	if maxUses != nil {
		meta["max_uses"] = *maxUses
	}
	if expires != nil {
		meta["expires"] = expires.UTC().Format(time.RFC3339)
	}
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventInvitationCreated,
		Meta:        meta,
	})
}

func (w *Writer) LogInvitationRevoked(ctx context.Context, orgID, actorUserID, invitationID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventInvitationRevoked,
		Meta: map[string]interface{}{
			"invitation_id": invitationID.String(),
		},
	})
}

func (w *Writer) LogInvitationRedeemed(ctx context.Context, orgID, userID, invitationID uuid.UUID, role string, usedCount int) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &userID,
		Action:      EventInvitationRedeemed,
		Meta: map[string]interface{}{
			"invitation_id": invitationID.String(),
			"role":          role,
			"used_count":    usedCount,
		},
	})
}

func (w *Writer) LogUserApproved(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID, projectIDs []uuid.UUID) error {
	projects := make([]string, 0, len(projectIDs))
	for _, id := range projectIDs {
		projects = append(projects, id.String())
	}
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventUserApproved,
		Meta: map[string]interface{}{
			"target_user_id": targetUserID.String(),
			"project_ids":    projects,
		},
	})
}

func (w *Writer) LogUserUpdated(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID, previousRole, newRole string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventUserUpdated,
		Meta: map[string]interface{}{
			"target_user_id": targetUserID.String(),
			"previous_role":  previousRole,
			"new_role":       newRole,
		},
	})
}

func (w *Writer) LogUserDeleted(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventUserDeleted,
		Meta: map[string]interface{}{
			"target_user_id": targetUserID.String(),
			"email":          email,
		},
	})
}

func (w *Writer) LogProjectCreated(ctx context.Context, orgID, projectID, userID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ProjectID:   &projectID,
		ActorUserID: &userID,
		Action:      EventProjectCreated,
		Meta: map[string]interface{}{
			"name": name,
		},
	})
}

func (w *Writer) LogProjectDeleted(ctx context.Context, orgID, projectID, userID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ProjectID:   &projectID,
		ActorUserID: &userID,
		Action:      EventProjectDeleted,
		Meta: map[string]interface{}{
			"name": name,
		},
	})
}

// LogTaskDeleted records deletions; task history itself is kept by the task store
func (w *Writer) LogTaskDeleted(ctx context.Context, orgID, projectID, taskID, userID uuid.UUID, title string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ProjectID:   &projectID,
		ActorUserID: &userID,
		Action:      EventTaskDeleted,
		Meta: map[string]interface{}{
			"task_id": taskID.String(),
			"title":   title,
		},
	})
}

func (w *Writer) LogAuthorizationDenied(ctx context.Context, orgID, actorUserID uuid.UUID, action, reason string) error {
	var org *uuid.UUID
	if orgID != uuid.Nil {
		org = &orgID
	}
	return w.Log(ctx, LogParams{
		OrgID:       org,
		ActorUserID: &actorUserID,
		Action:      EventAuthorizationDenied,
		Meta: map[string]interface{}{
			"action": action,
			"reason": reason,
		},
	})
}
