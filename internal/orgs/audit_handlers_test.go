package orgs

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseAuditQuery(t *testing.T) {
	actor := uuid.New()
	values := url.Values{
		"action":        {"task.deleted"},
		"actor_user_id": {actor.String()},
		"before":        {"2026-03-01T10:00:00Z"},
		"limit":         {"25"},
	}

	q, err := ParseAuditQuery(values)
	require.NoError(t, err)
	require.Equal(t, "task.deleted", q.Action)
	require.Equal(t, actor, *q.ActorUserID)
	require.True(t, q.Before.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	require.Equal(t, uuid.Nil, q.Before.ID)
	require.Equal(t, 25, q.PageSize())
}

func TestParseAuditQuery_KeysetCursor(t *testing.T) {
	id := uuid.New()
	q, err := ParseAuditQuery(url.Values{"before": {"2026-03-01T10:00:00.123456Z," + id.String()}})
	require.NoError(t, err)
	require.Equal(t, id, q.Before.ID)
	require.Equal(t, 123456000, q.Before.CreatedAt.Nanosecond())
}

func TestParseAuditQuery_Empty(t *testing.T) {
	q, err := ParseAuditQuery(url.Values{})
	require.NoError(t, err)
	require.Empty(t, q.Action)
	require.Nil(t, q.ActorUserID)
	require.Nil(t, q.Before)
	require.Equal(t, 50, q.PageSize())
}

func TestParseAuditQuery_Rejects(t *testing.T) {
	for name, values := range map[string]url.Values{
		"actor":  {"actor_user_id": {"nope"}},
		"before": {"before": {"yesterday"}},
		"cursor": {"before": {"2026-03-01T10:00:00Z,not-a-uuid"}},
		"limit":  {"limit": {"0"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAuditQuery(values)
			require.Error(t, err)
		})
	}
}

func TestPageSize_Clamps(t *testing.T) {
	q, err := ParseAuditQuery(url.Values{"limit": {"5000"}})
	require.NoError(t, err)
	require.Equal(t, 50, q.PageSize())
}
