package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitebook/internal/amqp"
	"sitebook/internal/backup"
	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/log"
	"sitebook/internal/settings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Publisher announces writes. *amqp.Client satisfies it.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChanged) error
}

type Config struct {
	// ReportFont is the TTF used for PDF reports.
	ReportFont string
}

// LedgerService orchestrates every user operation over the ledger store and
// the settings document, and publishes a change event after each write.
type LedgerService struct {
	ledger   *ledger.Store
	settings *settings.Store
	events   Publisher
	logger   *log.Logger
	config   Config
	now      func() time.Time
}

// NewLedgerService wires the stores. events may be nil.
func NewLedgerService(l *ledger.Store, s *settings.Store, events Publisher, logger *log.Logger, cfg Config) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		ledger:   l,
		settings: s,
		events:   events,
		logger:   logger.WithComponent(log.ComponentLedger),
		config:   cfg,
		now:      time.Now,
	}
}

// Snapshot is everything a page needs: the settings document and the full
// record set.
type Snapshot struct {
	Settings settings.Document
	Records  []core.Record
}

// Project returns requested when it exists, otherwise the first project.
func (s Snapshot) Project(requested string) string {
	if s.Settings.HasProject(requested) {
		return requested
	}
	if len(s.Settings.Projects) > 0 {
		return s.Settings.Projects[0]
	}
	return settings.DefaultProject
}

// Snapshot loads settings and records concurrently. On a read failure the
// snapshot still carries default settings and whatever did load, and the
// error wraps ErrStoreUnavailable.
func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var g errgroup.Group
	g.Go(func() error {
		doc, err := s.settings.Load(ctx)
		snap.Settings = doc
		return err
	})
	g.Go(func() error {
		recs, err := s.ledger.Load(ctx)
		snap.Records = recs
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "snapshot degraded", log.FieldError, err)
		return snap, wrapUnavailable(err)
	}
	return snap, nil
}

// AddRecord appends one entry after checking the project and category
// against the settings. Income entries get the fixed income defaults.
func (s *LedgerService) AddRecord(ctx context.Context, r core.Record) error {
	doc, err := s.settings.Load(ctx)
	if err != nil {
		return wrapUnavailable(err)
	}
	if !doc.HasProject(r.Project) {
		return fmt.Errorf("%w: %s", settings.ErrUnknownProject, r.Project)
	}
	cat, ok := doc.Category(r.Project, r.Category)
	if !ok {
		return fmt.Errorf("%w: %s", settings.ErrUnknownCategory, r.Category)
	}
	if cat.Type == core.Income {
		applyIncomeDefaults(&r)
	}
	if err := s.ledger.Append(ctx, r); err != nil {
		return err
	}
	s.publish(ctx, amqp.OpAppend, r.Project, 1)
	return nil
}

func applyIncomeDefaults(r *core.Record) {
	r.Location = ""
	r.Voucher = core.VoucherNone
	r.InvoiceNo = ""
	r.Quantity = decimal.NewFromInt(1)
	if r.Unit == "" {
		r.Unit = "次"
	}
}

// EditPartition saves an edited category block.
func (s *LedgerService) EditPartition(ctx context.Context, e ledger.Edit) (ledger.Result, error) {
	res, err := s.ledger.ApplyEdit(ctx, e)
	if err != nil {
		return res, err
	}
	s.publish(ctx, amqp.OpEdit, e.Selection.Project, res.Written)
	return res, nil
}

// DeletePartition removes the marked rows of a category block.
func (s *LedgerService) DeletePartition(ctx context.Context, e ledger.Edit) (ledger.Result, error) {
	res, err := s.ledger.ApplyDelete(ctx, e)
	if err != nil {
		return res, err
	}
	s.publish(ctx, amqp.OpDelete, e.Selection.Project, res.Removed())
	return res, nil
}

// updateSettings runs the read, mutate, write cycle for a settings-only change.
func (s *LedgerService) updateSettings(ctx context.Context, project string, mutate func(*settings.Document) error) error {
	doc, err := s.settings.Load(ctx)
	if err != nil {
		return wrapUnavailable(err)
	}
	if err := mutate(&doc); err != nil {
		return err
	}
	if err := s.settings.Save(ctx, doc); err != nil {
		return err
	}
	s.publish(ctx, amqp.OpSettings, project, 0)
	return nil
}

// cascade validates a settings change on a copy, rewrites the ledger, then
// saves the settings. rewrite returns how many records it touched.
func (s *LedgerService) cascade(ctx context.Context, op, project string, mutate func(*settings.Document) error, rewrite func(context.Context) (int, error)) (int, error) {
	doc, err := s.settings.Load(ctx)
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	next := doc.Clone()
	if err := mutate(&next); err != nil {
		return 0, err
	}

	n, err := rewrite(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.settings.Save(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "settings save failed after ledger rewrite",
			log.FieldOperation, op,
			log.FieldProject, project,
			log.FieldRows, n,
			log.FieldError, err)
		if n > 0 {
			s.publish(ctx, op, project, n)
		}
		return n, fmt.Errorf("%w: %w", ErrRenamePartial, err)
	}
	s.publish(ctx, op, project, n)
	return n, nil
}

func (s *LedgerService) CreateProject(ctx context.Context, name string) error {
	return s.updateSettings(ctx, name, func(d *settings.Document) error {
		return d.AddProject(name)
	})
}

// RenameProject renames a project in every record and in the settings.
func (s *LedgerService) RenameProject(ctx context.Context, oldName, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if newName == oldName {
		return 0, nil
	}
	return s.cascade(ctx, amqp.OpRename, newName,
		func(d *settings.Document) error { return d.RenameProject(oldName, newName) },
		func(ctx context.Context) (int, error) { return s.ledger.RenameProject(ctx, oldName, newName) })
}

// DeleteProject removes a project's records and its configuration.
func (s *LedgerService) DeleteProject(ctx context.Context, name string) (int, error) {
	return s.cascade(ctx, amqp.OpRemoveProject, name,
		func(d *settings.Document) error { return d.RemoveProject(name) },
		func(ctx context.Context) (int, error) { return s.ledger.RemoveProject(ctx, name) })
}

func (s *LedgerService) AddCategory(ctx context.Context, project string, c core.Category) error {
	return s.updateSettings(ctx, project, func(d *settings.Document) error {
		return d.AddCategory(project, c)
	})
}

// UpdateCategory changes a category's label and type, and renames its key
// across the project's records when the key changes.
func (s *LedgerService) UpdateCategory(ctx context.Context, project, oldKey string, c core.Category) (int, error) {
	c.Key = strings.TrimSpace(c.Key)
	mutate := func(d *settings.Document) error { return d.UpdateCategory(project, oldKey, c) }
	if oldKey == c.Key {
		return 0, s.updateSettings(ctx, project, mutate)
	}
	return s.cascade(ctx, amqp.OpRename, project, mutate,
		func(ctx context.Context) (int, error) { return s.ledger.RenameCategory(ctx, project, oldKey, c.Key) })
}

// RemoveCategory drops a category from the project config. Records that
// use it are left alone.
func (s *LedgerService) RemoveCategory(ctx context.Context, project, key string) error {
	return s.updateSettings(ctx, project, func(d *settings.Document) error {
		return d.RemoveCategory(project, key)
	})
}

func (s *LedgerService) AddSuggestion(ctx context.Context, project, key string, kind settings.SuggestionKind, value string) error {
	return s.updateSettings(ctx, project, func(d *settings.Document) error {
		return d.AddSuggestion(project, key, kind, value)
	})
}

func (s *LedgerService) RemoveSuggestion(ctx context.Context, project, key string, kind settings.SuggestionKind, value string) error {
	return s.updateSettings(ctx, project, func(d *settings.Document) error {
		return d.RemoveSuggestion(project, key, kind, value)
	})
}

// RenameSuggestion renames an item or location suggestion and every record
// in the same project and category that used the old value.
func (s *LedgerService) RenameSuggestion(ctx context.Context, project, key string, kind settings.SuggestionKind, oldValue, newValue string) (int, error) {
	newValue = strings.TrimSpace(newValue)
	if newValue == oldValue {
		return 0, nil
	}
	rewrite := func(ctx context.Context) (int, error) {
		if kind == settings.LocationSuggestions {
			return s.ledger.RenameLocation(ctx, project, key, oldValue, newValue)
		}
		return s.ledger.RenameItem(ctx, project, key, oldValue, newValue)
	}
	return s.cascade(ctx, amqp.OpRename, project,
		func(d *settings.Document) error { return d.RenameSuggestion(project, key, kind, oldValue, newValue) },
		rewrite)
}

// publish sends a change event. Failures are logged only.
func (s *LedgerService) publish(ctx context.Context, op, project string, rows int) {
	if s.events == nil {
		return
	}
	msg := amqp.NewLedgerChanged(op, project, rows)
	if err := s.events.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "publish ledger change failed",
			log.FieldEventID, msg.ID,
			log.FieldOperation, op,
			log.FieldError, err)
	}
}

// IsUserError reports whether err is a refusal the user can act on, as
// opposed to a store failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ledger.ErrSearchActive,
		ledger.ErrNothingMarked,
		ledger.ErrInvalidSelection,
		settings.ErrEmptyName,
		settings.ErrProjectExists,
		settings.ErrUnknownProject,
		settings.ErrLastProject,
		settings.ErrCategoryExists,
		settings.ErrUnknownCategory,
		settings.ErrSuggestionExists,
		settings.ErrUnknownSuggestion,
		settings.ErrInvalidSuggestions,
		core.ErrInvalidDate,
		core.ErrEmptyProject,
		core.ErrEmptyCategory,
		core.ErrEmptyItem,
		core.ErrNegativeAmount,
		core.ErrMissingInvoice,
		core.ErrInvalidCategory,
		core.ErrInvalidAmount,
		backup.ErrInvalidArchive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
