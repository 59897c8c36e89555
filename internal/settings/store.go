package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitebook/internal/cache"
	"sitebook/internal/log"
	"sitebook/internal/sheets"
)

const cacheKey = "settings"

// Store reads and writes the settings document through a SettingsCell,
// migrating on every load and caching the decoded result briefly.
type Store struct {
	cell   sheets.SettingsCell
	loader *cache.Loader[Document]
	logger *log.Logger
}

func NewStore(cell sheets.SettingsCell, ttl time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		cell:   cell,
		loader: cache.NewLoader[Document](cache.NewTTLCache[Document](1, ttl)),
		logger: logger.WithComponent(log.ComponentSettings),
	}
}

// Load returns the current document. A missing settings sheet yields the
// defaults with a warning; any other failure returns the defaults together
// with the error so callers can still render.
func (s *Store) Load(ctx context.Context) (Document, error) {
	doc, err := s.loader.Get(ctx, cacheKey, s.fetch)
	if err != nil {
		if errors.Is(err, sheets.ErrSettingsNotFound) {
			s.logger.WarnContext(ctx, "settings sheet missing, using defaults", log.FieldError, err)
			return Default(), nil
		}
		return Default(), err
	}
	return doc.Clone(), nil
}

func (s *Store) fetch(ctx context.Context) (Document, error) {
	raw, err := s.cell.ReadCell(ctx)
	if err != nil {
		return Document{}, err
	}
	doc, changed, err := Migrate(raw)
	if err != nil {
		return Document{}, err
	}
	if changed {
		s.logger.InfoContext(ctx, "settings migrated in memory", log.FieldOperation, log.OpMigrate, "version", CurrentVersion)
	}
	return doc, nil
}

// Save encodes and writes the whole document, then drops the cached copy.
func (s *Store) Save(ctx context.Context, doc Document) error {
	doc.Version = CurrentVersion
	raw, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	err = s.cell.WriteCell(ctx, raw)
	s.loader.Invalidate(cacheKey)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
