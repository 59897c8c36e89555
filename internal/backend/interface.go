package backend

import (
	"context"
	"time"

	"sitebook/internal/sheets"
	gsheet "sitebook/internal/sheets/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result carries the selected backend and what was actually chosen.
type Result struct {
	Backend sheets.Backend
	Type    Type
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// file backend
	DataDir string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	Google gsheet.Options
	// ProbeTimeout bounds the capability check in auto mode.
	ProbeTimeout time.Duration
}

// Type represents the type of backend
type Type string

const (
	Auto   Type = "auto"
	Sheets Type = "sheets"
	File   Type = "file"
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Auto, Sheets, File, SQLite, Memory:
		return true
	default:
		return false
	}
}
