// Package settings models the per-project configuration blob: the project
// list, each project's categories, and the item/location suggestion lists.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"sitebook/internal/core"
)

const (
	CurrentVersion = 2
	DefaultProject = "預設專案"
	IncomeKey      = "入帳金額"
)

const (
	ItemSuggestions     SuggestionKind = "item"
	LocationSuggestions SuggestionKind = "location"
)

type (
	SuggestionKind string

	// Suggestions maps a category key to its ordered suggestion list.
	Suggestions map[string][]string

	Document struct {
		Version   int                        `json:"version"`
		Projects  []string                   `json:"projects"`
		CatConfig map[string][]core.Category `json:"cat_config"`
		Items     map[string]Suggestions     `json:"items"`
		Locations map[string]Suggestions     `json:"locations"`
	}
)

var (
	ErrEmptyName          = errors.New("name must not be empty")
	ErrProjectExists      = errors.New("project already exists")
	ErrUnknownProject     = errors.New("unknown project")
	ErrLastProject        = errors.New("cannot delete the last project")
	ErrCategoryExists     = errors.New("category key already exists")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrSuggestionExists   = errors.New("suggestion already exists")
	ErrUnknownSuggestion  = errors.New("unknown suggestion")
	ErrInvalidSuggestions = errors.New("invalid suggestion kind")
)

var defaultCategories = []core.Category{
	{Key: IncomeKey, Display: "01. 入帳金額 (零用金)", Type: core.Income},
	{Key: "施工耗材", Display: "02. 施工耗材", Type: core.Expense},
	{Key: "工具設備", Display: "03. 施工工具及設備", Type: core.Expense},
	{Key: "雜貨類", Display: "04. 雜貨類", Type: core.Expense},
	{Key: "交通費", Display: "05. 交通費 (含油資)", Type: core.Expense},
	{Key: "維修費", Display: "06. 工具設備維修費", Type: core.Expense},
	{Key: "五金雜貨", Display: "07. 五金雜貨", Type: core.Expense},
}

// DefaultCategories returns a fresh copy of the built-in category list.
func DefaultCategories() []core.Category {
	out := make([]core.Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

// Default returns the document used when nothing has been stored yet.
func Default() Document {
	d := Document{
		Version:   CurrentVersion,
		Projects:  []string{DefaultProject},
		CatConfig: map[string][]core.Category{},
		Items:     map[string]Suggestions{},
		Locations: map[string]Suggestions{},
	}
	d.initProject(DefaultProject, DefaultCategories())
	return d
}

// Marshal encodes the document the way it is stored in the settings cell.
func Marshal(d Document) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{
		Version:   d.Version,
		Projects:  append([]string(nil), d.Projects...),
		CatConfig: make(map[string][]core.Category, len(d.CatConfig)),
		Items:     make(map[string]Suggestions, len(d.Items)),
		Locations: make(map[string]Suggestions, len(d.Locations)),
	}
	for p, cats := range d.CatConfig {
		out.CatConfig[p] = append([]core.Category(nil), cats...)
	}
	for p, s := range d.Items {
		out.Items[p] = s.clone()
	}
	for p, s := range d.Locations {
		out.Locations[p] = s.clone()
	}
	return out
}

func (s Suggestions) clone() Suggestions {
	out := make(Suggestions, len(s))
	for k, v := range s {
		out[k] = append([]string{}, v...)
	}
	return out
}

// HasProject reports whether name is a configured project.
func (d Document) HasProject(name string) bool {
	for _, p := range d.Projects {
		if p == name {
			return true
		}
	}
	return false
}

// Categories returns a copy of the project's category list.
func (d Document) Categories(project string) []core.Category {
	return append([]core.Category(nil), d.CatConfig[project]...)
}

// Category looks a category up by key within a project.
func (d Document) Category(project, key string) (core.Category, bool) {
	for _, c := range d.CatConfig[project] {
		if c.Key == key {
			return c, true
		}
	}
	return core.Category{}, false
}

// Suggestions returns the suggestion list for a project category.
func (d Document) Suggestions(project, key string, kind SuggestionKind) []string {
	m := d.suggestionMap(kind)
	if m == nil {
		return nil
	}
	return append([]string(nil), m[project][key]...)
}

// Scope returns a copy reduced to a single project.
func (d Document) Scope(project string) Document {
	out := Document{
		Version:   CurrentVersion,
		Projects:  []string{project},
		CatConfig: map[string][]core.Category{project: d.Categories(project)},
		Items:     map[string]Suggestions{project: d.Items[project].clone()},
		Locations: map[string]Suggestions{project: d.Locations[project].clone()},
	}
	out.normalize()
	return out
}

// MergeProject copies one project's configuration from src, adding the
// project to the list if needed.
func (d *Document) MergeProject(src Document, project string) error {
	if !src.HasProject(project) {
		return ErrUnknownProject
	}
	if !d.HasProject(project) {
		d.Projects = append(d.Projects, project)
	}
	d.CatConfig[project] = src.Categories(project)
	d.Items[project] = src.Items[project].clone()
	d.Locations[project] = src.Locations[project].clone()
	d.normalize()
	return nil
}

func (d Document) suggestionMap(kind SuggestionKind) map[string]Suggestions {
	switch kind {
	case ItemSuggestions:
		return d.Items
	case LocationSuggestions:
		return d.Locations
	default:
		return nil
	}
}

func (d *Document) initProject(name string, cats []core.Category) {
	d.CatConfig[name] = cats
	d.Items[name] = Suggestions{}
	d.Locations[name] = Suggestions{}
	for _, c := range cats {
		d.Items[name][c.Key] = []string{}
		d.Locations[name][c.Key] = []string{}
	}
}

// normalize fills every gap a hand-edited or older document may have so the
// rest of the package can index without nil checks. It reports whether
// anything changed.
func (d *Document) normalize() bool {
	changed := false
	if d.CatConfig == nil {
		d.CatConfig = map[string][]core.Category{}
		changed = true
	}
	if d.Items == nil {
		d.Items = map[string]Suggestions{}
		changed = true
	}
	if d.Locations == nil {
		d.Locations = map[string]Suggestions{}
		changed = true
	}

	seen := make(map[string]bool, len(d.Projects))
	projects := d.Projects[:0:0]
	for _, p := range d.Projects {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			changed = true
			continue
		}
		seen[p] = true
		projects = append(projects, p)
	}
	if len(projects) == 0 {
		projects = []string{DefaultProject}
		changed = true
	}
	d.Projects = projects

	for _, p := range d.Projects {
		if _, ok := d.CatConfig[p]; !ok {
			d.CatConfig[p] = DefaultCategories()
			changed = true
		}
		for _, m := range []map[string]Suggestions{d.Items, d.Locations} {
			if m[p] == nil {
				m[p] = Suggestions{}
				changed = true
			}
			for _, c := range d.CatConfig[p] {
				if m[p][c.Key] == nil {
					m[p][c.Key] = []string{}
					changed = true
				}
			}
		}
	}
	return changed
}
