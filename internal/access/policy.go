// Package access holds the authorization rules for every mutating and
// reading action in the tracker. Rules are evaluated explicitly per role;
// there is no role ranking.
package access

import (
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
)

// Action names an operation on a resource
type Action string

const (
	ActionTaskCreate Action = "task.create"
	ActionTaskRead   Action = "task.read"
	ActionTaskUpdate Action = "task.update"
	ActionTaskDelete Action = "task.delete"

	ActionProjectCreate Action = "project.create"
	ActionProjectUpdate Action = "project.update"
	ActionProjectDelete Action = "project.delete"

	ActionUserCreate  Action = "user.create"
	ActionUserUpdate  Action = "user.update"
	ActionUserDelete  Action = "user.delete"
	ActionUserApprove Action = "user.approve"

	ActionOrganizationManage Action = "organization.manage"

	ActionInvitationCreate Action = "invitation.create"
	ActionInvitationDelete Action = "invitation.delete"
)

// Actions lists every known action
var Actions = []Action{
	ActionTaskCreate, ActionTaskRead, ActionTaskUpdate, ActionTaskDelete,
	ActionProjectCreate, ActionProjectUpdate, ActionProjectDelete,
	ActionUserCreate, ActionUserUpdate, ActionUserDelete, ActionUserApprove,
	ActionOrganizationManage,
	ActionInvitationCreate, ActionInvitationDelete,
}

// Resource is the already-loaded context a decision depends on.
//
// OrganizationID is the organization owning the resource (for a task, the
// organization of its project). It is uuid.Nil for actions with no existing
// organization, such as creating one. Task is set for task actions, User is
// the target of user actions and InvitationRole the role of the invitation
// being created or deleted.
type Resource struct {
	OrganizationID uuid.UUID
	Task           *models.Task
	Project        *models.Project
	User           *models.User
	InvitationRole models.Role
}

// Authorize decides whether actor may perform action on res.
// The first matching rule decides.
func Authorize(actor models.User, action Action, res Resource) Decision {
	if !actor.IsApproved {
		return unapproved(actor, action, res)
	}

	switch actor.Role {
	case models.RoleSuperAdmin:
		return allow()
	case models.RoleSupervisor:
		return supervisor(actor, action, res)
	case models.RoleTeamLead:
		return teamLead(actor, action, res)
	case models.RoleStaff:
		return staff(actor, action, res)
	}

	return deny(ReasonInsufficientRole)
}

// unapproved users may only read their own tasks
func unapproved(actor models.User, action Action, res Resource) Decision {
	if action != ActionTaskRead {
		return deny(ReasonNotApproved)
	}
	if !sameOrganization(actor, res) {
		return deny(ReasonNotApproved)
	}
	if IsAssignee(actor, res.Task) || IsCreator(actor, res.Task) {
		return allow()
	}
	return deny(ReasonNotApproved)
}

func supervisor(actor models.User, action Action, res Resource) Decision {
	if d, scoped := scope(actor, res); !scoped {
		return d
	}

	switch action {
	case ActionTaskCreate, ActionTaskRead, ActionTaskUpdate, ActionTaskDelete,
		ActionProjectCreate, ActionProjectUpdate, ActionProjectDelete,
		ActionOrganizationManage:
		return allow()
	case ActionUserCreate, ActionUserUpdate, ActionUserDelete, ActionUserApprove:
		if res.User != nil && res.User.Role == models.RoleSuperAdmin {
			return deny(ReasonInsufficientRole)
		}
		return allow()
	case ActionInvitationCreate, ActionInvitationDelete:
		if res.InvitationRole == models.RoleSuperAdmin {
			return deny(ReasonInsufficientRole)
		}
		return allow()
	}

	return deny(ReasonInsufficientRole)
}

func teamLead(actor models.User, action Action, res Resource) Decision {
	if d, scoped := scope(actor, res); !scoped {
		return d
	}

	switch action {
	case ActionTaskCreate, ActionTaskRead, ActionTaskUpdate, ActionProjectCreate:
		return allow()
	case ActionTaskDelete:
		if IsCreator(actor, res.Task) {
			return allow()
		}
		return deny(ReasonNotOwner)
	case ActionUserUpdate:
		// Routine edits only: never on users above team lead.
		if res.User != nil && res.User.Role != models.RoleStaff && res.User.Role != models.RoleTeamLead {
			return deny(ReasonInsufficientRole)
		}
		return allow()
	case ActionInvitationCreate:
		if invitableByTeamLead(res.InvitationRole) {
			return allow()
		}
		return deny(ReasonInsufficientRole)
	}

	return deny(ReasonInsufficientRole)
}

func staff(actor models.User, action Action, res Resource) Decision {
	if d, scoped := scope(actor, res); !scoped {
		return d
	}

	switch action {
	case ActionTaskCreate, ActionProjectCreate:
		return allow()
	case ActionTaskRead, ActionTaskUpdate, ActionTaskDelete:
		if IsAssignee(actor, res.Task) {
			return allow()
		}
		return deny(ReasonNotOwner)
	}

	return deny(ReasonInsufficientRole)
}

// scope confines an organization-bound actor to its current organization.
// Resources with no organization are out of reach for every role but super_admin.
func scope(actor models.User, res Resource) (Decision, bool) {
	if res.OrganizationID == uuid.Nil {
		return deny(ReasonInsufficientRole), false
	}
	if res.OrganizationID != actor.CurrentOrganizationID {
		return deny(ReasonCrossOrganization), false
	}
	return Decision{}, true
}

func sameOrganization(actor models.User, res Resource) bool {
	return res.OrganizationID != uuid.Nil && res.OrganizationID == actor.CurrentOrganizationID
}

// CreatesAutoAssigned reports whether tasks created by the actor are forced onto the actor
func CreatesAutoAssigned(actor models.User) bool {
	return actor.Role == models.RoleStaff
}

// CanInviteAs reports whether the role may ever be granted by an invitation
func CanInviteAs(role models.Role) bool {
	return role == models.RoleSupervisor || role == models.RoleTeamLead || role == models.RoleStaff
}

// VisibleToAssigneeOnly reports whether the actor's task visibility is limited to tasks assigned to them
func VisibleToAssigneeOnly(actor models.User) bool {
	return !actor.IsApproved || actor.Role == models.RoleStaff
}
