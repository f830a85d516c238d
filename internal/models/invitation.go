package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationLink pre-authorizes registration into an organization at a fixed role.
// Only the token hash is persisted; Token is populated once, at creation.
type InvitationLink struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Token          string     `db:"-" json:"token,omitempty"`
	Role           Role       `db:"role" json:"role"`
	Expires        *time.Time `db:"expires" json:"expires"`
	MaxUses        *int       `db:"max_uses" json:"max_uses"`
	UsedCount      int        `db:"used_count" json:"used_count"`
	Active         bool       `db:"active" json:"active"`
	CreatedByID    uuid.UUID  `db:"created_by_id" json:"created_by_id"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
