package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitebook/internal/cache"
	"sitebook/internal/core"
	"sitebook/internal/log"
	"sitebook/internal/sheets"
)

const cacheKey = "records"

// Store is the only writer of the ledger table. It exposes two write
// primitives, Append and Replace, and invalidates its read cache right after
// either one. Nothing is retried.
type Store struct {
	table  sheets.Table
	loader *cache.Loader[[]core.Record]
	logger *log.Logger
}

func NewStore(table sheets.Table, ttl time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		table:  table,
		loader: cache.NewLoader[[]core.Record](cache.NewTTLCache[[]core.Record](1, ttl)),
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// Load returns every record in table order. The slice is the caller's to modify.
func (s *Store) Load(ctx context.Context) ([]core.Record, error) {
	recs, err := s.loader.Get(ctx, cacheKey, func(ctx context.Context) ([]core.Record, error) {
		rows, err := s.table.ReadAll(ctx)
		if err != nil {
			return nil, err
		}
		return DecodeRows(rows), nil
	})
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return append([]core.Record(nil), recs...), nil
}

// Invalidate drops the cached read.
func (s *Store) Invalidate() {
	s.loader.Invalidate(cacheKey)
}

// Append validates r and adds it as one row at the end of the table.
func (s *Store) Append(ctx context.Context, r core.Record) error {
	if r.Voucher != core.VoucherInvoice {
		r.InvoiceNo = ""
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}
	err := s.table.AppendOne(ctx, core.Header(), RowFromRecord(r))
	s.Invalidate()
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	s.logger.InfoContext(ctx, "record appended",
		log.FieldOperation, log.OpAppend,
		log.FieldProject, r.Project,
		log.FieldCategory, r.Category)
	return nil
}

// Replace rewrites the whole table with records. A failure here can leave
// the table cleared, so it is reported as ErrStoreInconsistent.
func (s *Store) Replace(ctx context.Context, records []core.Record) error {
	err := s.table.WriteAll(ctx, core.Header(), EncodeRows(records))
	s.Invalidate()
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger replace failed",
			log.FieldOperation, log.OpReplace,
			log.FieldRows, len(records),
			log.FieldError, err)
		return fmt.Errorf("%w: %w", ErrStoreInconsistent, err)
	}
	s.logger.DebugContext(ctx, "ledger replaced", log.FieldOperation, log.OpReplace, log.FieldRows, len(records))
	return nil
}

// Edit is a request to save an edited partition.
type Edit struct {
	Selection Selection
	Rows      []EditedRow
	// Search is the keyword active in the editor when it was submitted.
	Search string
}

// Result summarises a partition rewrite.
type Result struct {
	Kept    int // records outside the selection
	Before  int // records inside the selection before the edit
	Written int // records written for the selection
}

// Removed is how many selected records the edit dropped.
func (r Result) Removed() int {
	if r.Before > r.Written {
		return r.Before - r.Written
	}
	return 0
}

// ApplyEdit replaces the selected partition with the edited rows.
//
// The full ledger is read at apply time and the whole table is rewritten.
// Another writer's change to the same partition between the editor loading
// and this call is lost; this is accepted for a single-operator tool.
func (s *Store) ApplyEdit(ctx context.Context, e Edit) (Result, error) {
	if strings.TrimSpace(e.Search) != "" {
		return Result{}, ErrSearchActive
	}
	if err := e.Selection.ValidateForEdit(); err != nil {
		return Result{}, err
	}
	for i, row := range e.Rows {
		if row.Delete {
			continue
		}
		if err := row.ValidateValues(); err != nil {
			return Result{}, fmt.Errorf("edited row %d: %w", i+1, err)
		}
	}

	all, err := s.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	next := PartitionReplace(all, e.Selection, e.Rows)

	res := Result{}
	for _, r := range all {
		if e.Selection.Matches(r) {
			res.Before++
		}
	}
	res.Kept = len(all) - res.Before
	res.Written = len(next) - res.Kept

	if err := s.Replace(ctx, next); err != nil {
		return Result{}, err
	}
	s.logger.InfoContext(ctx, "partition replaced",
		log.NewFields().
			WithOperation(log.OpEdit).
			WithSelection(e.Selection.Project, e.Selection.Category, e.Selection.Year, e.Selection.Month).
			WithRows(res.Written).ToSlice()...)
	return res, nil
}

// ApplyDelete is ApplyEdit for the delete action: it refuses when nothing
// is marked.
func (s *Store) ApplyDelete(ctx context.Context, e Edit) (Result, error) {
	if !AnyMarked(e.Rows) {
		return Result{}, ErrNothingMarked
	}
	return s.ApplyEdit(ctx, e)
}
