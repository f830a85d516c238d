package billing

import (
	"testing"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func project(name string) models.Project {
	return models.Project{ID: uuid.New(), OrganizationID: uuid.New(), Name: name}
}

func fixedTask(projectID uuid.UUID, cents int64, currency string) models.Task {
	return models.Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		PricingType: models.PricingFixed,
		Currency:    currency,
		FixedPrice:  int64Ptr(cents),
	}
}

func lookup(projects ...models.Project) map[uuid.UUID]models.Project {
	m := make(map[uuid.UUID]models.Project, len(projects))
	for _, p := range projects {
		m[p.ID] = p
	}
	return m
}

func TestBuildInvoiceReport_AlphaZeta(t *testing.T) {
	alpha := project("Alpha")
	zeta := project("Zeta")

	hourly := hourlyTask(3*3600, 5000)
	hourly.ProjectID = alpha.ID
	hourly.Currency = "PHP"

	tasks := []models.Task{fixedTask(zeta.ID, 20000, "PHP"), hourly}

	report, err := BuildInvoiceReport(tasks, lookup(zeta, alpha), "")
	require.NoError(t, err)
	require.Len(t, report.Sections, 1)

	section := report.Sections[0]
	require.Equal(t, "PHP", section.Currency)
	require.Len(t, section.Groups, 2)
	require.Equal(t, "Alpha", section.Groups[0].ProjectName)
	require.Equal(t, int64(15000), section.Groups[0].SubtotalCents)
	require.Equal(t, "Zeta", section.Groups[1].ProjectName)
	require.Equal(t, int64(20000), section.Groups[1].SubtotalCents)
	require.Equal(t, int64(35000), section.GrandTotalCents)
}

func TestBuildInvoiceReport_CaseInsensitiveOrderAndStableLines(t *testing.T) {
	beta := project("beta")
	alpha := project("ALPHA")
	gamma := project("Gamma")

	first := fixedTask(beta.ID, 1, "USD")
	second := fixedTask(beta.ID, 2, "USD")
	third := fixedTask(beta.ID, 3, "USD")

	tasks := []models.Task{first, fixedTask(gamma.ID, 10, "USD"), second, fixedTask(alpha.ID, 20, "USD"), third}

	report, err := BuildInvoiceReport(tasks, lookup(alpha, beta, gamma), "USD")
	require.NoError(t, err)

	groups := report.Sections[0].Groups
	require.Equal(t, []string{"ALPHA", "beta", "Gamma"}, []string{groups[0].ProjectName, groups[1].ProjectName, groups[2].ProjectName})

	lines := groups[1].Lines
	require.Len(t, lines, 3)
	require.Equal(t, first.ID, lines[0].Task.ID)
	require.Equal(t, second.ID, lines[1].Task.ID)
	require.Equal(t, third.ID, lines[2].Task.ID)
}

func TestBuildInvoiceReport_UnknownProject(t *testing.T) {
	known := project("Known")
	tasks := []models.Task{
		fixedTask(uuid.New(), 100, "USD"),
		fixedTask(uuid.Nil, 200, "USD"),
		fixedTask(known.ID, 300, "USD"),
	}

	report, err := BuildInvoiceReport(tasks, lookup(known), "")
	require.NoError(t, err)

	groups := report.Sections[0].Groups
	require.Len(t, groups, 2)
	require.Equal(t, "Known", groups[0].ProjectName)
	require.Equal(t, UnknownProjectName, groups[1].ProjectName)
	require.Equal(t, uuid.Nil, groups[1].ProjectID)
	require.Equal(t, int64(300), groups[1].SubtotalCents)
}

func TestBuildInvoiceReport_MultiCurrencyNeverMixes(t *testing.T) {
	p := project("Shared")
	tasks := []models.Task{
		fixedTask(p.ID, 1000, "USD"),
		fixedTask(p.ID, 5000, "php"),
		fixedTask(p.ID, 500, "USD"),
	}

	report, err := BuildInvoiceReport(tasks, lookup(p), "")
	require.NoError(t, err)
	require.Len(t, report.Sections, 2)
	require.Equal(t, map[string]int64{"PHP": 5000, "USD": 1500}, report.GrandTotals())
	require.Empty(t, report.Excluded)

	usd, ok := report.Section("usd")
	require.True(t, ok)
	require.Len(t, usd.Groups, 1)
	require.Len(t, usd.Groups[0].Lines, 2)
}

func TestBuildInvoiceReport_TargetCurrencyListsExcluded(t *testing.T) {
	p := project("Shared")
	php := fixedTask(p.ID, 5000, "PHP")
	tasks := []models.Task{fixedTask(p.ID, 1000, "USD"), php}

	report, err := BuildInvoiceReport(tasks, lookup(p), "usd")
	require.NoError(t, err)
	require.Equal(t, "USD", report.Currency)
	require.Len(t, report.Sections, 1)
	require.Equal(t, int64(1000), report.Sections[0].GrandTotalCents)
	require.Len(t, report.Excluded, 1)
	require.Equal(t, php.ID, report.Excluded[0].Task.ID)
}

func TestBuildInvoiceReport_EmptyInput(t *testing.T) {
	report, err := BuildInvoiceReport(nil, nil, "")
	require.NoError(t, err)
	require.Empty(t, report.Sections)

	report, err = BuildInvoiceReport(nil, nil, "EUR")
	require.NoError(t, err)
	require.Len(t, report.Sections, 1)
	require.Zero(t, report.Sections[0].GrandTotalCents)
	require.NotNil(t, report.Sections[0].Groups)
}

func TestBuildInvoiceReport_GrandTotalEqualsSumOfSubtotals(t *testing.T) {
	projects := []models.Project{project("a"), project("B"), project("c")}
	var tasks []models.Task
	for i := 0; i < 60; i++ {
		p := projects[i%len(projects)]
		if i%2 == 0 {
			tasks = append(tasks, fixedTask(p.ID, int64(i*137), "USD"))
			continue
		}
		task := hourlyTask(int64(i*611), int64(1000+i*7))
		task.ProjectID = p.ID
		tasks = append(tasks, task)
	}

	report, err := BuildInvoiceReport(tasks, lookup(projects...), "")
	require.NoError(t, err)

	for _, section := range report.Sections {
		var sum int64
		for _, g := range section.Groups {
			var lines int64
			for _, l := range g.Lines {
				lines += l.Amount.AmountCents
			}
			require.Equal(t, lines, g.SubtotalCents)
			sum += g.SubtotalCents
		}
		require.Equal(t, sum, section.GrandTotalCents)
	}

	again, err := BuildInvoiceReport(tasks, lookup(projects...), "")
	require.NoError(t, err)
	require.Equal(t, report, again)
}

func TestBuildInvoiceReport_PropagatesComputationError(t *testing.T) {
	bad := hourlyTask(60, -100)
	_, err := BuildInvoiceReport([]models.Task{bad}, nil, "")
	require.Error(t, err)
}

func TestResolveParties(t *testing.T) {
	resolved := ResolveParties(Parties{
		BillFrom: "Acme Corp\nJane Doe",
		BillTo:   "Someone Else",
		From:     Party{OrgName: "Acme Corp", Name: "Jane  Doe"},
		To:       Party{OrgName: "Client Inc", Email: "ap@client.test"},
	})

	require.Equal(t, "Acme Corp\nJane  Doe", resolved.BillFrom)
	require.Equal(t, "Client Inc\nap@client.test", resolved.BillTo)
	require.Equal(t, []string{"bill_to"}, resolved.Divergent)

	freeOnly := ResolveParties(Parties{BillTo: "  Walk-in customer "})
	require.Equal(t, "Walk-in customer", freeOnly.BillTo)
	require.Empty(t, freeOnly.Divergent)
}
