// Package backup packs the ledger and the settings document into a zip
// archive and reads such archives back.
package backup

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/settings"
	"sitebook/internal/sheets/file"
)

const (
	DataEntry     = file.DataFile
	SettingsEntry = file.SettingsFile

	// FilePrefix and TimestampLayout make up archive names.
	FilePrefix      = "sitebook_backup_"
	TimestampLayout = "20060102_150405"

	maxEntrySize = 64 << 20
)

var ErrInvalidArchive = errors.New("invalid backup archive")

type Archive struct {
	Records  []core.Record
	Settings settings.Document
	// Migrated is set when the archived settings were in an older shape.
	Migrated bool
}

// Scope reduces the archive to one project's records and configuration.
func (a Archive) Scope(project string) Archive {
	out := Archive{Settings: a.Settings.Scope(project), Migrated: a.Migrated}
	for _, r := range a.Records {
		if r.Project == project {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// FileName is the download name for an archive taken at t.
func FileName(project string, t time.Time) string {
	if project == "" {
		return FilePrefix + t.Format(TimestampLayout) + ".zip"
	}
	return FilePrefix + project + "_" + t.Format(TimestampLayout) + ".zip"
}

// Write encodes a as a zip with the CSV ledger and the JSON settings.
func Write(w io.Writer, a Archive) error {
	data, err := file.EncodeCSV(core.Header(), ledger.EncodeRows(a.Records))
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	doc, err := settings.Marshal(a.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	zw := zip.NewWriter(w)
	for _, e := range []struct {
		name string
		body []byte
	}{
		{DataEntry, data},
		{SettingsEntry, []byte(doc)},
	} {
		f, err := zw.Create(e.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", e.name, err)
		}
		if _, err := f.Write(e.body); err != nil {
			return fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// Read decodes an archive. The ledger entry is required; a missing settings
// entry yields the default document.
func Read(r io.ReaderAt, size int64) (Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	var data, doc []byte
	var haveData bool
	for _, f := range zr.File {
		switch f.Name {
		case DataEntry:
			if data, err = readEntry(f); err != nil {
				return Archive{}, err
			}
			haveData = true
		case SettingsEntry:
			if doc, err = readEntry(f); err != nil {
				return Archive{}, err
			}
		}
	}
	if !haveData {
		return Archive{}, fmt.Errorf("%w: missing %s", ErrInvalidArchive, DataEntry)
	}

	rows, err := file.DecodeCSV(data)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	s, migrated, err := settings.Migrate(string(doc))
	if err != nil {
		return Archive{}, fmt.Errorf("%w: settings: %w", ErrInvalidArchive, err)
	}
	return Archive{Records: ledger.DecodeRows(rows), Settings: s, Migrated: migrated}, nil
}

// ReadBytes is Read over an in-memory upload.
func ReadBytes(b []byte) (Archive, error) {
	return Read(bytes.NewReader(b), int64(len(b)))
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidArchive, f.Name, err)
	}
	if len(b) > maxEntrySize {
		return nil, fmt.Errorf("%w: %s too large", ErrInvalidArchive, f.Name)
	}
	return b, nil
}
