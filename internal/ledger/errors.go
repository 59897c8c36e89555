package ledger

import "errors"

var (
	// ErrSearchActive refuses an edit while the view is narrowed by a search
	// keyword: the hidden rows of the partition would otherwise be deleted.
	ErrSearchActive     = errors.New("clear the search filter before saving edits")
	ErrNothingMarked    = errors.New("no rows marked for deletion")
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrStoreInconsistent means a whole-table replace failed part way; the
	// backing table may be empty or stale until the next successful write.
	ErrStoreInconsistent = errors.New("ledger store may be inconsistent")
)
