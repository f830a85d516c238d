package billing

import "strings"

// Party is one side of an invoice in structured form
type Party struct {
	OrgName string `json:"org_name"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// IsZero reports whether no structured field is set
func (p Party) IsZero() bool {
	return p == Party{}
}

// Render produces the free-text block for a party, one non-empty field per line
func (p Party) Render() string {
	var lines []string
	for _, v := range []string{p.OrgName, p.Name, p.Address, p.Email, p.Phone} {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n")
}

// Parties carries both representations of invoice parties as entered
type Parties struct {
	BillFrom string `json:"bill_from"`
	BillTo   string `json:"bill_to"`
	From     Party  `json:"from"`
	To       Party  `json:"to"`
}

// ResolvedParties is the authoritative party data of an invoice.
// Divergent names the free-text fields that disagreed with their structured form.
type ResolvedParties struct {
	From      Party    `json:"from"`
	To        Party    `json:"to"`
	BillFrom  string   `json:"bill_from"`
	BillTo    string   `json:"bill_to"`
	Divergent []string `json:"divergent,omitempty"`
}

// ResolveParties treats structured fields as the source of truth whenever
// they are set, regenerating the free text from them. Free text that
// disagrees is flagged, not merged.
func ResolveParties(p Parties) ResolvedParties {
	out := ResolvedParties{From: p.From, To: p.To}

	var diverged bool
	out.BillFrom, diverged = resolveText(p.From, p.BillFrom)
	if diverged {
		out.Divergent = append(out.Divergent, "bill_from")
	}
	out.BillTo, diverged = resolveText(p.To, p.BillTo)
	if diverged {
		out.Divergent = append(out.Divergent, "bill_to")
	}

	return out
}

func resolveText(structured Party, freeText string) (string, bool) {
	if structured.IsZero() {
		return strings.TrimSpace(freeText), false
	}
	rendered := structured.Render()
	if strings.TrimSpace(freeText) == "" {
		return rendered, false
	}
	return rendered, normalizeBlock(freeText) != normalizeBlock(rendered)
}

// normalizeBlock ignores blank lines, surrounding and repeated whitespace
func normalizeBlock(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
