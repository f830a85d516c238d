package access

import (
	"fmt"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testOrgID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

func approvedUser(role models.Role) models.User {
	return models.User{
		ID:                    uuid.New(),
		Role:                  role,
		IsApproved:            true,
		CurrentOrganizationID: testOrgID,
	}
}

func taskFor(assignee *uuid.UUID, creator uuid.UUID) *models.Task {
	return &models.Task{
		ID:           uuid.New(),
		ProjectID:    uuid.New(),
		AssignedToID: assignee,
		CreatedByID:  creator,
		Status:       models.StatusTodo,
	}
}

func TestAuthorize_TaskDelete_RoleOwnershipMatrix(t *testing.T) {
	type ownership struct {
		name     string
		assignee bool
		creator  bool
	}
	ownerships := []ownership{
		{name: "unrelated"},
		{name: "assignee", assignee: true},
		{name: "creator", creator: true},
		{name: "assignee_and_creator", assignee: true, creator: true},
	}

	expected := map[models.Role]func(o ownership) Decision{
		models.RoleSuperAdmin: func(ownership) Decision { return allow() },
		models.RoleSupervisor: func(ownership) Decision { return allow() },
		models.RoleTeamLead: func(o ownership) Decision {
			if o.creator {
				return allow()
			}
			return deny(ReasonNotOwner)
		},
		models.RoleStaff: func(o ownership) Decision {
			if o.assignee {
				return allow()
			}
			return deny(ReasonNotOwner)
		},
	}

	for role, want := range expected {
		for _, o := range ownerships {
			t.Run(fmt.Sprintf("%s/%s", role, o.name), func(t *testing.T) {
				actor := approvedUser(role)

				other := uuid.New()
				assignee := &other
				if o.assignee {
					assignee = &actor.ID
				}
				creator := uuid.New()
				if o.creator {
					creator = actor.ID
				}

				task := taskFor(assignee, creator)
				got := Authorize(actor, ActionTaskDelete, Resource{OrganizationID: testOrgID, Task: task})
				require.Equal(t, want(o), got)
			})
		}
	}
}

func TestAuthorize_StaffAssigneeScenario(t *testing.T) {
	staffID := uuid.MustParse("00000000-0000-0000-0000-000000000005")
	creatorID := uuid.MustParse("00000000-0000-0000-0000-000000000009")
	otherID := uuid.MustParse("00000000-0000-0000-0000-000000000006")

	actor := models.User{ID: staffID, Role: models.RoleStaff, IsApproved: true, CurrentOrganizationID: testOrgID}

	own := taskFor(&staffID, creatorID)
	other := taskFor(&otherID, creatorID)

	require.Equal(t, allow(), Authorize(actor, ActionTaskUpdate, Resource{OrganizationID: testOrgID, Task: own}))
	require.Equal(t, deny(ReasonNotOwner), Authorize(actor, ActionTaskDelete, Resource{OrganizationID: testOrgID, Task: other}))
	require.Equal(t, deny(ReasonNotOwner), Authorize(actor, ActionTaskRead, Resource{OrganizationID: testOrgID, Task: other}))
}

func TestAuthorize_UnapprovedIsLockedOut(t *testing.T) {
	actor := approvedUser(models.RoleStaff)
	actor.IsApproved = false

	d := Authorize(actor, ActionTaskCreate, Resource{OrganizationID: testOrgID})
	require.False(t, d.Allowed)
	require.Equal(t, ReasonNotApproved, d.Reason)

	for _, action := range Actions {
		if action == ActionTaskRead {
			continue
		}
		d := Authorize(actor, action, Resource{OrganizationID: testOrgID, Task: taskFor(&actor.ID, actor.ID)})
		require.Equal(t, deny(ReasonNotApproved), d, "action %s", action)
	}
}

func TestAuthorize_UnapprovedSuperAdminIsLockedOut(t *testing.T) {
	actor := approvedUser(models.RoleSuperAdmin)
	actor.IsApproved = false

	d := Authorize(actor, ActionProjectDelete, Resource{OrganizationID: testOrgID})
	require.Equal(t, deny(ReasonNotApproved), d)
}

func TestAuthorize_UnapprovedMayReadOwnTask(t *testing.T) {
	actor := approvedUser(models.RoleStaff)
	actor.IsApproved = false

	own := taskFor(&actor.ID, uuid.New())
	require.True(t, Authorize(actor, ActionTaskRead, Resource{OrganizationID: testOrgID, Task: own}).Allowed)

	other := uuid.New()
	notOwn := taskFor(&other, uuid.New())
	require.Equal(t, deny(ReasonNotApproved), Authorize(actor, ActionTaskRead, Resource{OrganizationID: testOrgID, Task: notOwn}))
}

func TestAuthorize_SuperAdminIgnoresOrganizationScope(t *testing.T) {
	actor := approvedUser(models.RoleSuperAdmin)

	for _, action := range Actions {
		d := Authorize(actor, action, Resource{OrganizationID: uuid.New()})
		require.True(t, d.Allowed, "action %s", action)
	}
	require.True(t, Authorize(actor, ActionOrganizationManage, Resource{}).Allowed)
}

func TestAuthorize_CrossOrganization(t *testing.T) {
	elsewhere := uuid.New()
	for _, role := range []models.Role{models.RoleSupervisor, models.RoleTeamLead, models.RoleStaff} {
		actor := approvedUser(role)
		task := taskFor(&actor.ID, actor.ID)

		d := Authorize(actor, ActionTaskUpdate, Resource{OrganizationID: elsewhere, Task: task})
		require.Equal(t, deny(ReasonCrossOrganization), d, "role %s", role)
	}
}

func TestAuthorize_Supervisor(t *testing.T) {
	actor := approvedUser(models.RoleSupervisor)
	res := Resource{OrganizationID: testOrgID}

	for _, action := range Actions {
		require.True(t, Authorize(actor, action, res).Allowed, "action %s", action)
	}

	superAdmin := approvedUser(models.RoleSuperAdmin)
	require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, ActionUserDelete, Resource{OrganizationID: testOrgID, User: &superAdmin}))
	require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, ActionInvitationCreate, Resource{OrganizationID: testOrgID, InvitationRole: models.RoleSuperAdmin}))
	require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, ActionOrganizationManage, Resource{}))
}

func TestAuthorize_TeamLead(t *testing.T) {
	actor := approvedUser(models.RoleTeamLead)
	res := Resource{OrganizationID: testOrgID}

	other := uuid.New()
	foreignTask := taskFor(&other, uuid.New())

	require.True(t, Authorize(actor, ActionTaskCreate, res).Allowed)
	require.True(t, Authorize(actor, ActionProjectCreate, res).Allowed)
	require.True(t, Authorize(actor, ActionTaskUpdate, Resource{OrganizationID: testOrgID, Task: foreignTask}).Allowed)
	require.True(t, Authorize(actor, ActionTaskRead, Resource{OrganizationID: testOrgID, Task: foreignTask}).Allowed)

	for _, action := range []Action{ActionProjectUpdate, ActionProjectDelete, ActionUserCreate, ActionUserDelete, ActionUserApprove, ActionOrganizationManage, ActionInvitationDelete} {
		require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, action, res), "action %s", action)
	}

	staffUser := approvedUser(models.RoleStaff)
	supervisorUser := approvedUser(models.RoleSupervisor)
	require.True(t, Authorize(actor, ActionUserUpdate, Resource{OrganizationID: testOrgID, User: &staffUser}).Allowed)
	require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, ActionUserUpdate, Resource{OrganizationID: testOrgID, User: &supervisorUser}))

	require.True(t, Authorize(actor, ActionInvitationCreate, Resource{OrganizationID: testOrgID, InvitationRole: models.RoleStaff}).Allowed)
	require.True(t, Authorize(actor, ActionInvitationCreate, Resource{OrganizationID: testOrgID, InvitationRole: models.RoleTeamLead}).Allowed)
	require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, ActionInvitationCreate, Resource{OrganizationID: testOrgID, InvitationRole: models.RoleSupervisor}))
}

func TestAuthorize_Staff(t *testing.T) {
	actor := approvedUser(models.RoleStaff)
	res := Resource{OrganizationID: testOrgID}

	require.True(t, Authorize(actor, ActionTaskCreate, res).Allowed)
	require.True(t, Authorize(actor, ActionProjectCreate, res).Allowed)

	for _, action := range []Action{ActionProjectUpdate, ActionProjectDelete, ActionUserCreate, ActionUserUpdate, ActionUserDelete, ActionUserApprove, ActionOrganizationManage, ActionInvitationCreate, ActionInvitationDelete} {
		require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, action, res), "action %s", action)
	}

	// Creating a task does not make a staff user its owner.
	created := taskFor(nil, actor.ID)
	require.Equal(t, deny(ReasonNotOwner), Authorize(actor, ActionTaskDelete, Resource{OrganizationID: testOrgID, Task: created}))
}

func TestAuthorize_UnknownRoleDenied(t *testing.T) {
	actor := approvedUser(models.Role("auditor"))
	require.Equal(t, deny(ReasonInsufficientRole), Authorize(actor, ActionTaskRead, Resource{OrganizationID: testOrgID}))
}

func TestAuthorize_Deterministic(t *testing.T) {
	actor := approvedUser(models.RoleTeamLead)
	task := taskFor(nil, uuid.New())
	res := Resource{OrganizationID: testOrgID, Task: task}

	first := Authorize(actor, ActionTaskDelete, res)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Authorize(actor, ActionTaskDelete, res))
	}
}

func TestDecision_Message(t *testing.T) {
	require.Equal(t, "You can only edit tasks assigned to you", deny(ReasonNotOwner).Message(ActionTaskUpdate))
	require.Equal(t, "Your account is awaiting approval", deny(ReasonNotApproved).Message(ActionTaskCreate))
	require.Empty(t, allow().Message(ActionTaskCreate))
}
