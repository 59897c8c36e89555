package settings

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sitebook/internal/core"
)

type rawDocument struct {
	Version   int                    `json:"version"`
	Projects  []string               `json:"projects"`
	CatConfig json.RawMessage        `json:"cat_config"`
	Items     map[string]Suggestions `json:"items"`
	Locations map[string]Suggestions `json:"locations"`
}

// Migrate decodes a stored settings blob of any known version and returns
// the current-version document. changed reports whether the result differs
// from what was stored, i.e. whether saving it back would rewrite the cell.
//
// Version 1 documents carry a single category list shared by every project;
// each project receives its own deep copy. Migrate is idempotent: feeding
// its output back in yields an equal document with changed == false.
func Migrate(raw string) (doc Document, changed bool, err error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return Default(), true, nil
	}

	var rd rawDocument
	if err := json.Unmarshal(trimmed, &rd); err != nil {
		return Document{}, false, fmt.Errorf("decode settings: %w", err)
	}

	doc = Document{
		Version:   CurrentVersion,
		Projects:  rd.Projects,
		CatConfig: map[string][]core.Category{},
		Items:     rd.Items,
		Locations: rd.Locations,
	}
	changed = rd.Version != CurrentVersion
	if len(doc.Projects) == 0 {
		doc.Projects = []string{DefaultProject}
		changed = true
	}

	cats := bytes.TrimSpace(rd.CatConfig)
	switch {
	case len(cats) == 0 || bytes.Equal(cats, []byte("null")):
		changed = true
	case cats[0] == '[':
		var shared []core.Category
		if err := json.Unmarshal(cats, &shared); err != nil {
			return Document{}, false, fmt.Errorf("decode legacy cat_config: %w", err)
		}
		for _, p := range doc.Projects {
			doc.CatConfig[p] = append([]core.Category(nil), shared...)
		}
		changed = true
	default:
		if err := json.Unmarshal(cats, &doc.CatConfig); err != nil {
			return Document{}, false, fmt.Errorf("decode cat_config: %w", err)
		}
	}

	if doc.normalize() {
		changed = true
	}
	return doc, changed, nil
}
