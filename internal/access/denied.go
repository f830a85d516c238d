package access

import (
	"fmt"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
)

// DeniedError carries a denial out of a service call so the transport can
// render it. It wraps a Decision, it is never produced by Authorize itself.
type DeniedError struct {
	Action   Action
	Decision Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Action, e.Decision.Reason)
}

// Code is the machine-readable denial reason
func (e *DeniedError) Code() string {
	return string(e.Decision.Reason)
}

// UserMessage is the reason-specific explanation shown to the user
func (e *DeniedError) UserMessage() string {
	return e.Decision.Message(e.Action)
}

// Require evaluates Authorize and turns a denial into a *DeniedError
func Require(actor models.User, action Action, res Resource) error {
	d := Authorize(actor, action, res)
	if d.Allowed {
		return nil
	}
	return &DeniedError{Action: action, Decision: d}
}

// ViewOrganization decides whether actor may list the contents of an
// organization. Unapproved users are limited to their own tasks.
func ViewOrganization(actor models.User, orgID uuid.UUID) Decision {
	if !actor.IsApproved {
		return deny(ReasonNotApproved)
	}
	if actor.Role == models.RoleSuperAdmin {
		return allow()
	}
	if orgID == uuid.Nil || orgID != actor.CurrentOrganizationID {
		return deny(ReasonCrossOrganization)
	}
	return allow()
}

// AssignRole decides whether actor may give role to another user. Only a
// super_admin hands out super_admin; team leads never change roles.
func AssignRole(actor models.User, role models.Role) Decision {
	if !actor.IsApproved {
		return deny(ReasonNotApproved)
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return allow()
	case models.RoleSupervisor:
		if role == models.RoleSuperAdmin {
			return deny(ReasonInsufficientRole)
		}
		return allow()
	}
	return deny(ReasonInsufficientRole)
}
