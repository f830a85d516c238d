package orgs

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ParseAuditQuery reads action, actor_user_id, before (RFC 3339) and limit.
func ParseAuditQuery(values url.Values) (audit.Query, error) {
	q := audit.Query{Action: values.Get("action")}

	if raw := values.Get("actor_user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, fmt.Errorf("actor_user_id must be a UUID")
		}
		q.ActorUserID = &id
	}
	if raw := values.Get("before"); raw != "" {
		cursor, err := audit.ParseCursor(raw)
		if err != nil {
			return q, fmt.Errorf("before must be a next_before cursor or an RFC 3339 timestamp")
		}
		q.Before = &cursor
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("limit must be a positive integer")
		}
		q.Limit = n
	}
	return q, nil
}

// HandleListAudit handles GET /api/v1/orgs/{org_id}/audit
func HandleListAudit(pool *pgxpool.Pool) http.HandlerFunc {
	reader := audit.NewReader(pool)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if d := access.Authorize(actor, access.ActionOrganizationManage, access.Resource{OrganizationID: orgID}); !d.Allowed {
			apperrors.WriteDenial(w, r, &access.DeniedError{Action: access.ActionOrganizationManage, Decision: d})
			return
		}

		query, err := ParseAuditQuery(r.URL.Query())
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		page, err := reader.List(ctx, orgID, query)
		if err != nil {
			log.Error().Err(err).Str("org_id", orgID.String()).Msg("Failed to list audit log")
			apperrors.WriteInternalError(w, r, "Failed to list audit log")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"events":      page.Events,
			"next_before": page.NextBefore,
		})
	}
}
