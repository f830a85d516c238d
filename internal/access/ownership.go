package access

import "github.com/aliuyar1234/tasktally/internal/models"

// IsAssignee reports whether the task is assigned to the user
func IsAssignee(user models.User, task *models.Task) bool {
	return task != nil && task.AssignedToID != nil && *task.AssignedToID == user.ID
}

// IsCreator reports whether the user created the task
func IsCreator(user models.User, task *models.Task) bool {
	return task != nil && task.CreatedByID == user.ID
}

// invitableByTeamLead lists the roles a team lead may hand out through an invitation
func invitableByTeamLead(role models.Role) bool {
	return role == models.RoleStaff || role == models.RoleTeamLead
}
