package ledger

import "sitebook/internal/core"

// EditedRow is one row of an edited partition as it comes back from the
// editor. Delete marks the row for removal; DayLabel is the display-only
// weekday column and is never persisted.
type EditedRow struct {
	core.Record
	Delete   bool
	DayLabel string
}

// PartitionReplace computes the full ledger after replacing the selected
// partition with the edited rows.
//
// Records outside sel are kept untouched and in their original order. Edited
// rows marked for deletion are dropped; the rest have their total recomputed
// and their project and category forced to the selection's, since the
// editor never lets those change. The result is kept followed by edited.
//
// Only the category-scoped partition is replaced: records of other
// categories in the same project and period are never touched.
func PartitionReplace(all []core.Record, sel Selection, edited []EditedRow) []core.Record {
	out := make([]core.Record, 0, len(all)+len(edited))
	for _, r := range all {
		if !sel.Matches(r) {
			out = append(out, r)
		}
	}
	for _, e := range edited {
		if e.Delete {
			continue
		}
		r := e.Record
		r.Project = sel.Project
		r.Category = sel.Category
		r.Normalize()
		out = append(out, r)
	}
	return out
}

// AnyMarked reports whether at least one row is marked for deletion.
func AnyMarked(rows []EditedRow) bool {
	for _, r := range rows {
		if r.Delete {
			return true
		}
	}
	return false
}
