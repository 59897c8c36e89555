// Package memory is an in-process Table/SettingsCell used by tests and as a
// scratch backend. It mimics the remote sheet closely enough to reproduce its
// failure modes: a failed WriteAll leaves the table cleared, just like a
// clear that succeeded followed by an update that did not.
package memory

import (
	"context"
	"sync"

	"sitebook/internal/sheets"
)

type Op string

const (
	OpRead      Op = "read"
	OpWrite     Op = "write"
	OpAppend    Op = "append"
	OpReadCell  Op = "read_cell"
	OpWriteCell Op = "write_cell"
)

type Store struct {
	mu          sync.Mutex
	header      []string
	rows        [][]string
	cell        string
	hasSettings bool
	faults      map[Op]error
	calls       map[Op]int
}

var _ sheets.Backend = (*Store)(nil)

// New returns an empty store whose settings cell exists but is blank.
func New() *Store {
	return &Store{hasSettings: true, faults: map[Op]error{}, calls: map[Op]int{}}
}

// NewWithoutSettings returns a store with no settings sheet, so reads of the
// cell report sheets.ErrSettingsNotFound.
func NewWithoutSettings() *Store {
	s := New()
	s.hasSettings = false
	return s
}

// Seed replaces the table contents without counting as a write.
func (s *Store) Seed(header []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), header...)
	s.rows = copyRows(rows)
}

// Fail makes every subsequent op of the given kind return err. A nil err clears it.
func (s *Store) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Calls reports how many times op was attempted.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Rows returns a copy of the raw table, header excluded.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows)
}

func (s *Store) ReadAll(_ context.Context) ([]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRead); err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(s.rows))
	for _, row := range s.rows {
		m := make(map[string]string, len(s.header))
		for i, h := range s.header {
			if i < len(row) {
				m[h] = row[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) WriteAll(_ context.Context, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[OpWrite]++
	// clear always lands first
	s.header, s.rows = nil, nil
	if err := s.faults[OpWrite]; err != nil {
		return err
	}
	s.header = append([]string(nil), header...)
	s.rows = copyRows(rows)
	return nil
}

func (s *Store) AppendOne(_ context.Context, header []string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpAppend); err != nil {
		return err
	}
	if len(s.header) == 0 {
		s.header = append([]string(nil), header...)
	}
	s.rows = append(s.rows, append([]string(nil), row...))
	return nil
}

func (s *Store) ReadCell(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpReadCell); err != nil {
		return "", err
	}
	if !s.hasSettings {
		return "", sheets.ErrSettingsNotFound
	}
	return s.cell, nil
}

func (s *Store) WriteCell(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpWriteCell); err != nil {
		return err
	}
	if !s.hasSettings {
		return sheets.ErrSettingsNotFound
	}
	s.cell = value
	return nil
}

// enter records the call and returns the configured fault, if any. Callers hold mu.
func (s *Store) enter(op Op) error {
	s.calls[op]++
	return s.faults[op]
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
