package access

import (
	"errors"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequire_WrapsDenial(t *testing.T) {
	org := uuid.New()
	actor := models.User{ID: uuid.New(), Role: models.RoleStaff, IsApproved: true, CurrentOrganizationID: org}
	other := uuid.New()
	task := &models.Task{ID: uuid.New(), AssignedToID: &other, CreatedByID: other}

	err := Require(actor, ActionTaskUpdate, Resource{OrganizationID: org, Task: task})
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	require.Equal(t, "not_owner", denied.Code())
	require.Equal(t, "You can only edit tasks assigned to you", denied.UserMessage())
	require.Contains(t, denied.Error(), "task.update")

	task.AssignedToID = &actor.ID
	require.NoError(t, Require(actor, ActionTaskUpdate, Resource{OrganizationID: org, Task: task}))
}

func TestViewOrganization(t *testing.T) {
	org := uuid.New()
	staffUser := models.User{ID: uuid.New(), Role: models.RoleStaff, IsApproved: true, CurrentOrganizationID: org}

	require.True(t, ViewOrganization(staffUser, org).Allowed)
	require.Equal(t, ReasonCrossOrganization, ViewOrganization(staffUser, uuid.New()).Reason)
	require.Equal(t, ReasonCrossOrganization, ViewOrganization(staffUser, uuid.Nil).Reason)

	staffUser.IsApproved = false
	require.Equal(t, ReasonNotApproved, ViewOrganization(staffUser, org).Reason)

	admin := models.User{ID: uuid.New(), Role: models.RoleSuperAdmin, IsApproved: true}
	require.True(t, ViewOrganization(admin, uuid.New()).Allowed)
}

func TestAssignRole(t *testing.T) {
	supervisorUser := models.User{Role: models.RoleSupervisor, IsApproved: true}
	require.True(t, AssignRole(supervisorUser, models.RoleTeamLead).Allowed)
	require.True(t, AssignRole(supervisorUser, models.RoleSupervisor).Allowed)
	require.Equal(t, ReasonInsufficientRole, AssignRole(supervisorUser, models.RoleSuperAdmin).Reason)

	admin := models.User{Role: models.RoleSuperAdmin, IsApproved: true}
	require.True(t, AssignRole(admin, models.RoleSuperAdmin).Allowed)

	lead := models.User{Role: models.RoleTeamLead, IsApproved: true}
	require.Equal(t, ReasonInsufficientRole, AssignRole(lead, models.RoleStaff).Reason)

	require.Equal(t, ReasonNotApproved, AssignRole(models.User{Role: models.RoleSuperAdmin}, models.RoleStaff).Reason)
}
