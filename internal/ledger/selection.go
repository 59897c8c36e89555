package ledger

import (
	"fmt"
	"slices"
	"strings"

	"sitebook/internal/core"
)

// Selection identifies a slice of the ledger: one project, optionally one
// category, one year and optionally one month (0 means the whole year).
type Selection struct {
	Project  string
	Category string
	Year     int
	Month    int
}

// Matches reports whether r falls inside the selection. An empty Category
// matches every category; records without a parseable date never match.
func (s Selection) Matches(r core.Record) bool {
	if r.Project != s.Project {
		return false
	}
	if s.Category != "" && r.Category != s.Category {
		return false
	}
	if r.Date.IsZero() || r.Date.Year() != s.Year {
		return false
	}
	return s.Month == 0 || int(r.Date.Month()) == s.Month
}

// ValidateForEdit checks the selection names a single editable partition.
func (s Selection) ValidateForEdit() error {
	if strings.TrimSpace(s.Project) == "" {
		return fmt.Errorf("%w: project required", ErrInvalidSelection)
	}
	if strings.TrimSpace(s.Category) == "" {
		return fmt.Errorf("%w: category required", ErrInvalidSelection)
	}
	if s.Year < 1 {
		return fmt.Errorf("%w: year required", ErrInvalidSelection)
	}
	if s.Month < 0 || s.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidSelection, s.Month)
	}
	return nil
}

// PeriodLabel renders the selection's period for headings, e.g. "2025年03月份".
func (s Selection) PeriodLabel() string {
	if s.Month == 0 {
		return fmt.Sprintf("%d年年報", s.Year)
	}
	return fmt.Sprintf("%d年%02d月份", s.Year, s.Month)
}

// MatchesSearch does a case-insensitive substring match over item, note and
// invoice number. A blank keyword matches everything.
func MatchesSearch(r core.Record, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return true
	}
	for _, field := range []string{r.Item, r.Note, r.InvoiceNo} {
		if strings.Contains(strings.ToLower(field), kw) {
			return true
		}
	}
	return false
}

// Filter returns the records inside sel that also match keyword, in ledger order.
func Filter(records []core.Record, sel Selection, keyword string) []core.Record {
	var out []core.Record
	for _, r := range records {
		if sel.Matches(r) && MatchesSearch(r, keyword) {
			out = append(out, r)
		}
	}
	return out
}

// Years lists the distinct years present for a project, newest first.
func Years(records []core.Record, project string) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range records {
		if r.Project != project || r.Date.IsZero() || seen[r.Date.Year()] {
			continue
		}
		seen[r.Date.Year()] = true
		out = append(out, r.Date.Year())
	}
	sortDesc(out)
	return out
}

// Months lists the distinct months present for a project and year, newest first.
func Months(records []core.Record, project string, year int) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range records {
		if r.Project != project || r.Date.IsZero() || r.Date.Year() != year {
			continue
		}
		m := int(r.Date.Month())
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sortDesc(out)
	return out
}

func sortDesc(v []int) {
	slices.Sort(v)
	slices.Reverse(v)
}
