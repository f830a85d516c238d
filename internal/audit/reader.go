package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Reader pages through an organization's audit trail, newest first.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// Query narrows a page of events. Zero values match everything.
type Query struct {
	Action      string
	ActorUserID *uuid.UUID
	Before      *Cursor
	Limit       int
}

// Cursor is the (created_at, id) position of the last event on a page.
// A zero ID compares on the timestamp alone.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// String renders the cursor as "<RFC 3339 timestamp>,<id>".
func (c Cursor) String() string {
	return c.CreatedAt.UTC().Format(time.RFC3339Nano) + "," + c.ID.String()
}

func (c Cursor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCursor accepts the String form or a bare RFC 3339 timestamp.
func ParseCursor(raw string) (Cursor, error) {
	ts, id, hasID := strings.Cut(raw, ",")
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	c := Cursor{CreatedAt: createdAt}
	if hasID {
		if c.ID, err = uuid.Parse(id); err != nil {
			return Cursor{}, fmt.Errorf("invalid cursor id: %w", err)
		}
	}
	return c, nil
}

// PageSize clamps Limit into 1..200, defaulting to 50.
func (q Query) PageSize() int {
	if q.Limit <= 0 || q.Limit > maxPageSize {
		return defaultPageSize
	}
	return q.Limit
}

type Event struct {
	ID          uuid.UUID      `json:"id"`
	Action      string         `json:"action"`
	OrgID       uuid.UUID      `json:"org_id"`
	ProjectID   *uuid.UUID     `json:"project_id,omitempty"`
	ActorUserID *uuid.UUID     `json:"actor_user_id,omitempty"`
	ActorEmail  string         `json:"actor_email,omitempty"`
	Meta        map[string]any `json:"meta"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Page holds one page of events. NextBefore is set when a full page was returned
// and can be passed back as Query.Before.
type Page struct {
	Events     []Event `json:"events"`
	NextBefore *Cursor `json:"next_before,omitempty"`
}

func (r *Reader) List(ctx context.Context, orgID uuid.UUID, q Query) (Page, error) {
	limit := q.PageSize()

	var actor uuid.NullUUID
	if q.ActorUserID != nil {
		actor = uuid.NullUUID{UUID: *q.ActorUserID, Valid: true}
	}
	var beforeAt *time.Time
	var beforeID uuid.NullUUID
	if q.Before != nil {
		beforeAt = &q.Before.CreatedAt
		if q.Before.ID != uuid.Nil {
			beforeID = uuid.NullUUID{UUID: q.Before.ID, Valid: true}
		}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT al.id, al.org_id, al.project_id, al.actor_user_id, u.email,
		       al.action, al.meta, al.created_at
		FROM audit_log al
		LEFT JOIN users u ON u.id = al.actor_user_id
		WHERE al.org_id = $1
		  AND ($2 = '' OR al.action = $2)
		  AND ($3::uuid IS NULL OR al.actor_user_id = $3)
		  AND ($4::timestamptz IS NULL
		       OR ($5::uuid IS NULL AND al.created_at < $4)
		       OR ($5::uuid IS NOT NULL AND (al.created_at, al.id) < ($4, $5)))
		ORDER BY al.created_at DESC, al.id DESC
		LIMIT $6
	`, orgID, q.Action, actor, beforeAt, beforeID, limit)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	page := Page{Events: []Event{}}
	for rows.Next() {
		var (
			ev          Event
			projectID   uuid.NullUUID
			actorUserID uuid.NullUUID
			actorEmail  *string
			metaRaw     []byte
		)
		if err := rows.Scan(&ev.ID, &ev.OrgID, &projectID, &actorUserID, &actorEmail, &ev.Action, &metaRaw, &ev.CreatedAt); err != nil {
			return Page{}, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if projectID.Valid {
			ev.ProjectID = &projectID.UUID
		}
		if actorUserID.Valid {
			ev.ActorUserID = &actorUserID.UUID
		}
		if actorEmail != nil {
			ev.ActorEmail = *actorEmail
		}
		ev.Meta = map[string]any{}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &ev.Meta); err != nil {
				ev.Meta = map[string]any{"raw": string(metaRaw)}
			}
		}
		page.Events = append(page.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("error iterating audit rows: %w", err)
	}

	if len(page.Events) == limit {
		last := page.Events[len(page.Events)-1]
		page.NextBefore = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}
