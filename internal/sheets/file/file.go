// Package file stores the ledger as a CSV file and the settings document as a
// JSON file in a local directory. It is the fallback when no spreadsheet is
// configured or reachable.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sitebook/internal/sheets"
)

const (
	DataFile     = "finance_data.csv"
	SettingsFile = "settings.json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Store struct {
	mu           sync.Mutex
	dataPath     string
	settingsPath string
}

var _ sheets.Backend = (*Store)(nil)

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dataPath:     filepath.Join(dir, DataFile),
		settingsPath: filepath.Join(dir, SettingsFile),
	}, nil
}

func (s *Store) ReadAll(_ context.Context) ([]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.dataPath, err)
	}
	return DecodeCSV(b)
}

func (s *Store) WriteAll(_ context.Context, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := EncodeCSV(header, rows)
	if err != nil {
		return err
	}
	return writeAtomic(s.dataPath, b)
}

func (s *Store) AppendOne(_ context.Context, header []string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.dataPath)
	empty := errors.Is(err, fs.ErrNotExist) || (err == nil && fi.Size() == 0)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", s.dataPath, err)
	}

	f, err := os.OpenFile(s.dataPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.dataPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if empty {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append %s: %w", s.dataPath, err)
	}
	return f.Sync()
}

// ReadCell returns "" when the settings file has not been written yet.
func (s *Store) ReadCell(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.settingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.settingsPath, err)
	}
	return string(b), nil
}

func (s *Store) WriteCell(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.settingsPath, []byte(value))
}

// EncodeCSV renders a header and rows as CSV.
func EncodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses header-keyed rows. A leading BOM and blank lines are
// ignored; short rows are padded with empty values.
func DecodeCSV(b []byte) ([]map[string]string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(rec) {
			continue
		}
		m := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				m[h] = rec[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// writeAtomic replaces path via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
