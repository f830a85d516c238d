package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's global role. Roles are compared by explicit rules, never by rank.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleSupervisor Role = "supervisor"
	RoleTeamLead   Role = "team_lead"
	RoleStaff      Role = "staff"
)

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleSupervisor, RoleTeamLead, RoleStaff:
		return true
	default:
		return false
	}
}

// User is an identified account. CurrentOrganizationID is the active tenancy context.
type User struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	Email                 string    `db:"email" json:"email"`
	Name                  string    `db:"name" json:"name"`
	Role                  Role      `db:"role" json:"role"`
	IsApproved            bool      `db:"is_approved" json:"is_approved"`
	CurrentOrganizationID uuid.UUID `db:"current_organization_id" json:"current_organization_id"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
