package settings

import (
	"fmt"
	"strings"

	"sitebook/internal/core"
)

func cleanName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyName
	}
	return s, nil
}

// AddProject registers a new project seeded with the default categories.
func (d *Document) AddProject(name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if d.HasProject(name) {
		return fmt.Errorf("%w: %s", ErrProjectExists, name)
	}
	d.Projects = append(d.Projects, name)
	d.initProject(name, DefaultCategories())
	return nil
}

// RenameProject moves a project's configuration to a new name, keeping its
// position in the list.
func (d *Document) RenameProject(oldName, newName string) error {
	newName, err := cleanName(newName)
	if err != nil {
		return err
	}
	idx := d.projectIndex(oldName)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProject, oldName)
	}
	if oldName == newName {
		return nil
	}
	if d.HasProject(newName) {
		return fmt.Errorf("%w: %s", ErrProjectExists, newName)
	}
	d.Projects[idx] = newName
	d.CatConfig[newName] = d.CatConfig[oldName]
	d.Items[newName] = d.Items[oldName]
	d.Locations[newName] = d.Locations[oldName]
	delete(d.CatConfig, oldName)
	delete(d.Items, oldName)
	delete(d.Locations, oldName)
	return nil
}

// RemoveProject deletes a project and its configuration. The last remaining
// project cannot be removed.
func (d *Document) RemoveProject(name string) error {
	idx := d.projectIndex(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProject, name)
	}
	if len(d.Projects) == 1 {
		return ErrLastProject
	}
	d.Projects = append(d.Projects[:idx], d.Projects[idx+1:]...)
	delete(d.CatConfig, name)
	delete(d.Items, name)
	delete(d.Locations, name)
	return nil
}

// AddCategory appends a category to a project.
func (d *Document) AddCategory(project string, c core.Category) error {
	if !d.HasProject(project) {
		return fmt.Errorf("%w: %s", ErrUnknownProject, project)
	}
	c.Key = strings.TrimSpace(c.Key)
	c.Display = strings.TrimSpace(c.Display)
	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := d.Category(project, c.Key); ok {
		return fmt.Errorf("%w: %s", ErrCategoryExists, c.Key)
	}
	d.CatConfig[project] = append(d.CatConfig[project], c)
	d.Items[project][c.Key] = []string{}
	d.Locations[project][c.Key] = []string{}
	return nil
}

// UpdateCategory replaces the category stored under oldKey. When the key
// changes, the suggestion lists move with it.
func (d *Document) UpdateCategory(project, oldKey string, c core.Category) error {
	if !d.HasProject(project) {
		return fmt.Errorf("%w: %s", ErrUnknownProject, project)
	}
	c.Key = strings.TrimSpace(c.Key)
	c.Display = strings.TrimSpace(c.Display)
	if err := c.Validate(); err != nil {
		return err
	}
	idx := d.categoryIndex(project, oldKey)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, oldKey)
	}
	if c.Key != oldKey {
		if _, ok := d.Category(project, c.Key); ok {
			return fmt.Errorf("%w: %s", ErrCategoryExists, c.Key)
		}
		for _, m := range []map[string]Suggestions{d.Items, d.Locations} {
			m[project][c.Key] = m[project][oldKey]
			delete(m[project], oldKey)
		}
	}
	d.CatConfig[project][idx] = c
	return nil
}

// RemoveCategory drops a category and its suggestions from a project.
func (d *Document) RemoveCategory(project, key string) error {
	idx := d.categoryIndex(project, key)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, key)
	}
	cats := d.CatConfig[project]
	d.CatConfig[project] = append(cats[:idx], cats[idx+1:]...)
	delete(d.Items[project], key)
	delete(d.Locations[project], key)
	return nil
}

// AddSuggestion appends a value to a category's suggestion list.
func (d *Document) AddSuggestion(project, key string, kind SuggestionKind, value string) error {
	list, err := d.suggestionList(project, key, kind)
	if err != nil {
		return err
	}
	value, err = cleanName(value)
	if err != nil {
		return err
	}
	for _, v := range list {
		if v == value {
			return fmt.Errorf("%w: %s", ErrSuggestionExists, value)
		}
	}
	d.suggestionMap(kind)[project][key] = append(list, value)
	return nil
}

// RemoveSuggestion deletes a value from a category's suggestion list.
func (d *Document) RemoveSuggestion(project, key string, kind SuggestionKind, value string) error {
	list, err := d.suggestionList(project, key, kind)
	if err != nil {
		return err
	}
	for i, v := range list {
		if v == value {
			d.suggestionMap(kind)[project][key] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSuggestion, value)
}

// RenameSuggestion replaces a suggestion in place.
func (d *Document) RenameSuggestion(project, key string, kind SuggestionKind, oldValue, newValue string) error {
	list, err := d.suggestionList(project, key, kind)
	if err != nil {
		return err
	}
	newValue, err = cleanName(newValue)
	if err != nil {
		return err
	}
	idx := -1
	for i, v := range list {
		if v == newValue && v != oldValue {
			return fmt.Errorf("%w: %s", ErrSuggestionExists, newValue)
		}
		if v == oldValue {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSuggestion, oldValue)
	}
	list[idx] = newValue
	return nil
}

func (d *Document) suggestionList(project, key string, kind SuggestionKind) ([]string, error) {
	m := d.suggestionMap(kind)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSuggestions, kind)
	}
	if !d.HasProject(project) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProject, project)
	}
	if _, ok := d.Category(project, key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, key)
	}
	return m[project][key], nil
}

func (d Document) projectIndex(name string) int {
	for i, p := range d.Projects {
		if p == name {
			return i
		}
	}
	return -1
}

func (d Document) categoryIndex(project, key string) int {
	for i, c := range d.CatConfig[project] {
		if c.Key == key {
			return i
		}
	}
	return -1
}
