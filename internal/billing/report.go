package billing

import (
	"math"
	"sort"
	"strings"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// UnknownProjectName labels the group collecting tasks whose project could not be resolved
const UnknownProjectName = "Unknown Project"

// Line is one task with its computed amount
type Line struct {
	Task   models.Task `json:"task"`
	Amount Amount      `json:"amount"`
}

// Group is the set of lines billed under one project
type Group struct {
	ProjectID     uuid.UUID `json:"project_id"`
	ProjectName   string    `json:"project_name"`
	Lines         []Line    `json:"tasks"`
	SubtotalCents int64     `json:"subtotal_cents"`
}

// Section holds every group billed in a single currency
type Section struct {
	Currency        string  `json:"currency"`
	Groups          []Group `json:"groups"`
	GrandTotalCents int64   `json:"grand_total_cents"`
}

// Report is an invoice report. Sums never cross currencies: there is one
// section per currency, or exactly one when a target currency is given.
// Tasks in other currencies than the target are listed in Excluded.
type Report struct {
	Currency string    `json:"currency,omitempty"`
	Sections []Section `json:"sections"`
	Excluded []Line    `json:"excluded,omitempty"`
}

// GrandTotals returns the grand total per currency
func (r *Report) GrandTotals() map[string]int64 {
	totals := make(map[string]int64, len(r.Sections))
	for _, s := range r.Sections {
		totals[s.Currency] = s.GrandTotalCents
	}
	return totals
}

// Section returns the section for a currency
func (r *Report) Section(currency string) (*Section, bool) {
	currency = normalizeCurrency(currency)
	for i := range r.Sections {
		if r.Sections[i].Currency == currency {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// BuildInvoiceReport partitions tasks by currency and project and sums their amounts.
//
// Groups are ordered by project name, case-insensitively; lines keep the
// order of tasks. projects resolves project IDs to names; unresolved
// projects collapse into one "Unknown Project" group. currency, when not
// empty, restricts the report to a single currency.
func BuildInvoiceReport(tasks []models.Task, projects map[uuid.UUID]models.Project, currency string) (*Report, error) {
	target := normalizeCurrency(currency)
	report := &Report{Currency: target, Sections: []Section{}}

	type groupKey struct {
		currency  string
		projectID uuid.UUID
	}
	groups := make(map[groupKey]*Group)
	var keys []groupKey

	for _, task := range tasks {
		amount, err := ComputeTaskAmount(task)
		if err != nil {
			return nil, err
		}
		line := Line{Task: task, Amount: amount}

		if target != "" && amount.Currency != target {
			report.Excluded = append(report.Excluded, line)
			continue
		}

		projectID := uuid.Nil
		projectName := UnknownProjectName
		if p, ok := projects[task.ProjectID]; ok && task.ProjectID != uuid.Nil {
			projectID = p.ID
			projectName = p.Name
		}

		key := groupKey{currency: amount.Currency, projectID: projectID}
		g, ok := groups[key]
		if !ok {
			g = &Group{ProjectID: projectID, ProjectName: projectName}
			groups[key] = g
			keys = append(keys, key)
		}

		subtotal, ok := addCents(g.SubtotalCents, amount.AmountCents)
		if !ok {
			return nil, computationErr(task.ID, "amount", "subtotal overflows")
		}
		g.SubtotalCents = subtotal
		g.Lines = append(g.Lines, line)
	}

	sections := make(map[string]*Section)
	var currencies []string
	for _, key := range keys {
		s, ok := sections[key.currency]
		if !ok {
			s = &Section{Currency: key.currency}
			sections[key.currency] = s
			currencies = append(currencies, key.currency)
		}
		g := groups[key]
		total, ok := addCents(s.GrandTotalCents, g.SubtotalCents)
		if !ok {
			return nil, computationErr(uuid.Nil, "amount", "grand total overflows")
		}
		s.GrandTotalCents = total
		s.Groups = append(s.Groups, *g)
	}

	if target != "" && len(currencies) == 0 {
		currencies = append(currencies, target)
		sections[target] = &Section{Currency: target}
	}

	sort.Strings(currencies)
	fold := cases.Fold()
	for _, c := range currencies {
		s := sections[c]
		if s.Groups == nil {
			s.Groups = []Group{}
		}
		sortGroups(s.Groups, fold)
		report.Sections = append(report.Sections, *s)
	}

	return report, nil
}

func sortGroups(groups []Group, fold cases.Caser) {
	folded := make(map[uuid.UUID]string, len(groups))
	for _, g := range groups {
		folded[g.ProjectID] = fold.String(g.ProjectName)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := folded[groups[i].ProjectID], folded[groups[j].ProjectID]
		if a != b {
			return a < b
		}
		return groups[i].ProjectID.String() < groups[j].ProjectID.String()
	})
}

func addCents(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
