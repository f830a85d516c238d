package tasks

import (
	"testing"

	"github.com/aliuyar1234/tasktally/internal/billing"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewView_AmountAndPermissions(t *testing.T) {
	orgID := uuid.New()
	staff := models.User{ID: uuid.New(), Role: models.RoleStaff, IsApproved: true, CurrentOrganizationID: orgID}
	lead := models.User{ID: uuid.New(), Role: models.RoleTeamLead, IsApproved: true, CurrentOrganizationID: orgID}

	seconds := int64(9000)
	rate := int64(10000)
	task := models.Task{
		ID:              uuid.New(),
		CreatedByID:     lead.ID,
		AssignedToID:    &staff.ID,
		PricingType:     models.PricingHourly,
		Currency:        "USD",
		HourlyRate:      &rate,
		DurationSeconds: &seconds,
	}

	v, err := NewView(staff, orgID, task)
	require.NoError(t, err)
	require.Equal(t, int64(25000), v.AmountCents)
	require.Equal(t, "2.50", v.Hours)
	require.Equal(t, Permissions{Update: true, Delete: true}, v.Permissions)

	v, err = NewView(lead, orgID, task)
	require.NoError(t, err)
	require.Equal(t, Permissions{Update: true, Delete: true}, v.Permissions)

	other := models.User{ID: uuid.New(), Role: models.RoleTeamLead, IsApproved: true, CurrentOrganizationID: orgID}
	v, err = NewView(other, orgID, task)
	require.NoError(t, err)
	require.Equal(t, Permissions{Update: true, Delete: false}, v.Permissions)
}

func TestNewView_FixedTask(t *testing.T) {
	price := int64(150000)
	seconds := int64(36000)
	task := models.Task{PricingType: models.PricingFixed, FixedPrice: &price, DurationSeconds: &seconds, Currency: "PHP"}

	v, err := NewView(models.User{}, uuid.New(), task)
	require.NoError(t, err)
	require.Equal(t, int64(150000), v.AmountCents)
	require.Equal(t, billing.FixedHoursLabel, v.Hours)
	require.Equal(t, Permissions{}, v.Permissions)
}

func TestNewViews_PropagatesComputationError(t *testing.T) {
	price := int64(-1)
	_, err := NewViews(models.User{}, uuid.New(), []models.Task{{PricingType: models.PricingFixed, FixedPrice: &price}})
	require.Error(t, err)
}
