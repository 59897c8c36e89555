package services

import (
	"context"
	"strings"

	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/report"
	"sitebook/internal/settings"

	"github.com/shopspring/decimal"
)

// Period narrows a view to one project and period. Zero Year means the most
// recent year with data, or the current year when there is none.
type Period struct {
	Project string
	Year    int
	Month   int
}

type Dashboard struct {
	Projects  []string
	Selection ledger.Selection
	Years     []int
	Months    []int
	Overview  report.Overview
}

// Dashboard computes the totals for a project and period. A store failure
// yields an empty dashboard and ErrStoreUnavailable.
func (s *LedgerService) Dashboard(ctx context.Context, p Period) (Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	sel := s.selection(snap, p)
	d := Dashboard{
		Projects:  snap.Settings.Projects,
		Selection: sel,
		Years:     ledger.Years(snap.Records, sel.Project),
		Months:    ledger.Months(snap.Records, sel.Project, sel.Year),
		Overview:  report.Summarize(ledger.Filter(snap.Records, sel, ""), snap.Settings.Categories(sel.Project)),
	}
	return d, err
}

// EditorBlock is one category's rows in the records editor.
type EditorBlock struct {
	Category  core.Category
	Rows      []ledger.EditedRow
	Total     decimal.Decimal
	Items     []string
	Locations []string
	Editable  bool
}

type Editor struct {
	Projects  []string
	Selection ledger.Selection
	Search    string
	Years     []int
	Months    []int
	Blocks    []EditorBlock
}

// Editor builds the records editor: one block per configured category of
// the project, filtered by period and search keyword.
func (s *LedgerService) Editor(ctx context.Context, p Period, search string) (Editor, error) {
	snap, err := s.Snapshot(ctx)
	sel := s.selection(snap, p)
	search = strings.TrimSpace(search)
	e := Editor{
		Projects:  snap.Settings.Projects,
		Selection: sel,
		Search:    search,
		Years:     ledger.Years(snap.Records, sel.Project),
		Months:    ledger.Months(snap.Records, sel.Project, sel.Year),
	}
	for _, c := range snap.Settings.Categories(sel.Project) {
		bsel := sel
		bsel.Category = c.Key
		b := EditorBlock{
			Category:  c,
			Items:     snap.Settings.Suggestions(sel.Project, c.Key, settings.ItemSuggestions),
			Locations: snap.Settings.Suggestions(sel.Project, c.Key, settings.LocationSuggestions),
			Editable:  search == "",
		}
		for _, r := range ledger.Filter(snap.Records, bsel, search) {
			b.Rows = append(b.Rows, ledger.EditedRow{Record: r, DayLabel: r.Date.DayLabel()})
			b.Total = b.Total.Add(r.Total)
		}
		e.Blocks = append(e.Blocks, b)
	}
	return e, err
}

// EntryCategory is one entry form on the entry page.
type EntryCategory struct {
	Category  core.Category
	Items     []string
	Locations []string
}

type Entry struct {
	Projects   []string
	Project    string
	Today      core.Date
	DayLabel   string
	Categories []EntryCategory
}

// Entry builds the entry page for a project.
func (s *LedgerService) Entry(ctx context.Context, project string) (Entry, error) {
	doc, err := s.settings.Load(ctx)
	if err != nil {
		err = wrapUnavailable(err)
	}
	project = Snapshot{Settings: doc}.Project(project)
	t := s.now()
	today := core.NewDate(t.Year(), int(t.Month()), t.Day())
	e := Entry{
		Projects: doc.Projects,
		Project:  project,
		Today:    today,
		DayLabel: today.DayLabel(),
	}
	for _, c := range doc.Categories(project) {
		e.Categories = append(e.Categories, EntryCategory{
			Category:  c,
			Items:     doc.Suggestions(project, c.Key, settings.ItemSuggestions),
			Locations: doc.Suggestions(project, c.Key, settings.LocationSuggestions),
		})
	}
	return e, err
}

// Settings returns the current settings document.
func (s *LedgerService) Settings(ctx context.Context) (settings.Document, error) {
	doc, err := s.settings.Load(ctx)
	if err != nil {
		return doc, wrapUnavailable(err)
	}
	return doc, nil
}

func (s *LedgerService) selection(snap Snapshot, p Period) ledger.Selection {
	sel := ledger.Selection{Project: snap.Project(p.Project), Year: p.Year, Month: p.Month}
	if sel.Year == 0 {
		if years := ledger.Years(snap.Records, sel.Project); len(years) > 0 {
			sel.Year = years[0]
		} else {
			sel.Year = s.now().Year()
		}
	}
	if sel.Month < 0 || sel.Month > 12 {
		sel.Month = 0
	}
	return sel
}
