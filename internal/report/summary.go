// Package report turns a filtered set of ledger records into the dashboard
// summary, the printable PDF report and the XLSX detail export. Everything
// here is a pure function of its inputs.
package report

import (
	"sort"

	"sitebook/internal/core"
	"sitebook/internal/settings"

	"github.com/shopspring/decimal"
)

type CategoryAmount struct {
	Key     string
	Display string
	Type    core.CategoryType
	Amount  decimal.Decimal
	Count   int
	// Percent of total expense, 0 when there is no expense. Income rows keep 0.
	Percent float64
}

type Overview struct {
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Balance  decimal.Decimal
	Count    int
	Expenses []CategoryAmount // sorted by amount, largest first
}

// Section is one per-category detail table.
type Section struct {
	Category CategoryAmount
	Records  []core.Record
}

// CategoryType resolves a record's category type from the project config.
// Keys missing from the config count as expense, except the fixed income key.
func CategoryType(key string, cats []core.Category) core.CategoryType {
	for _, c := range cats {
		if c.Key == key {
			return c.Type
		}
	}
	if key == settings.IncomeKey {
		return core.Income
	}
	return core.Expense
}

// DisplayName returns the configured label for key, or key itself.
func DisplayName(key string, cats []core.Category) string {
	for _, c := range cats {
		if c.Key == key {
			return c.Display
		}
	}
	return key
}

// Percent returns part as a percentage of whole, 0 when whole is zero.
func Percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Summarize computes totals and the expense breakdown for records.
func Summarize(records []core.Record, cats []core.Category) Overview {
	var ov Overview
	byKey := map[string]*CategoryAmount{}
	var order []string

	for _, r := range records {
		ov.Count++
		typ := CategoryType(r.Category, cats)
		if typ == core.Income {
			ov.Income = ov.Income.Add(r.Total)
			continue
		}
		ov.Expense = ov.Expense.Add(r.Total)
		ca, ok := byKey[r.Category]
		if !ok {
			ca = &CategoryAmount{Key: r.Category, Display: DisplayName(r.Category, cats), Type: typ}
			byKey[r.Category] = ca
			order = append(order, r.Category)
		}
		ca.Amount = ca.Amount.Add(r.Total)
		ca.Count++
	}
	ov.Balance = ov.Income.Sub(ov.Expense)

	for _, k := range order {
		ca := byKey[k]
		ca.Percent = Percent(ca.Amount, ov.Expense)
		ov.Expenses = append(ov.Expenses, *ca)
	}
	sort.SliceStable(ov.Expenses, func(i, j int) bool {
		return ov.Expenses[i].Amount.GreaterThan(ov.Expenses[j].Amount)
	})
	return ov
}

// Sections groups records per category: income categories first, then
// expense categories by amount, largest first. Records inside a section are
// newest first.
func Sections(records []core.Record, cats []core.Category) []Section {
	groups := map[string]*Section{}
	var order []string
	for _, r := range records {
		s, ok := groups[r.Category]
		if !ok {
			s = &Section{Category: CategoryAmount{
				Key:     r.Category,
				Display: DisplayName(r.Category, cats),
				Type:    CategoryType(r.Category, cats),
			}}
			groups[r.Category] = s
			order = append(order, r.Category)
		}
		s.Records = append(s.Records, r)
		s.Category.Amount = s.Category.Amount.Add(r.Total)
		s.Category.Count++
	}

	out := make([]Section, 0, len(order))
	for _, k := range order {
		s := groups[k]
		sort.SliceStable(s.Records, func(i, j int) bool {
			return s.Records[i].Date.After(s.Records[j].Date.Time)
		})
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Category, out[j].Category
		if a.Type != b.Type {
			return a.Type == core.Income
		}
		return a.Amount.GreaterThan(b.Amount)
	})
	return out
}
