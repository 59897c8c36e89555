package ledger

import (
	"context"

	"sitebook/internal/core"
	"sitebook/internal/log"
)

// Rewrite applies fn to every record matching match and reports how many
// changed. The input slice is modified in place.
func Rewrite(records []core.Record, match func(core.Record) bool, fn func(*core.Record)) int {
	n := 0
	for i := range records {
		if match(records[i]) {
			fn(&records[i])
			n++
		}
	}
	return n
}

// RenameProject rewrites the project column across the whole table.
func (s *Store) RenameProject(ctx context.Context, oldName, newName string) (int, error) {
	return s.rewrite(ctx, "project",
		func(r core.Record) bool { return r.Project == oldName },
		func(r *core.Record) { r.Project = newName })
}

// RenameCategory rewrites a category key within one project.
func (s *Store) RenameCategory(ctx context.Context, project, oldKey, newKey string) (int, error) {
	return s.rewrite(ctx, "category",
		func(r core.Record) bool { return r.Project == project && r.Category == oldKey },
		func(r *core.Record) { r.Category = newKey })
}

// RenameItem rewrites an item name within one project category.
func (s *Store) RenameItem(ctx context.Context, project, category, oldName, newName string) (int, error) {
	return s.rewrite(ctx, "item",
		func(r core.Record) bool {
			return r.Project == project && r.Category == category && r.Item == oldName
		},
		func(r *core.Record) { r.Item = newName })
}

// RenameLocation rewrites a purchase location within one project category.
func (s *Store) RenameLocation(ctx context.Context, project, category, oldName, newName string) (int, error) {
	return s.rewrite(ctx, "location",
		func(r core.Record) bool {
			return r.Project == project && r.Category == category && r.Location == oldName
		},
		func(r *core.Record) { r.Location = newName })
}

// RemoveProject drops every record of a project.
func (s *Store) RemoveProject(ctx context.Context, project string) (int, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	kept := all[:0:0]
	for _, r := range all {
		if r.Project != project {
			kept = append(kept, r)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.Replace(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "project records removed", log.FieldProject, project, log.FieldRemoved, removed)
	return removed, nil
}

// ReplaceProject swaps every record of a project for records, leaving other
// projects untouched. Used by single-project restore.
func (s *Store) ReplaceProject(ctx context.Context, project string, records []core.Record) error {
	all, err := s.Load(ctx)
	if err != nil {
		return err
	}
	next := make([]core.Record, 0, len(all)+len(records))
	for _, r := range all {
		if r.Project != project {
			next = append(next, r)
		}
	}
	for _, r := range records {
		r.Project = project
		next = append(next, r)
	}
	return s.Replace(ctx, next)
}

func (s *Store) rewrite(ctx context.Context, field string, match func(core.Record) bool, fn func(*core.Record)) (int, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	n := Rewrite(all, match, fn)
	if n == 0 {
		return 0, nil
	}
	if err := s.Replace(ctx, all); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "cascading rename", log.FieldOperation, log.OpRename, "field", field, log.FieldRows, n)
	return n, nil
}
