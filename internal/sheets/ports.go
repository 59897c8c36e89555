package sheets

import (
	"context"
	"errors"
)

// ErrSettingsNotFound is returned when the settings worksheet (or file) does
// not exist at all, as opposed to existing but being empty.
var ErrSettingsNotFound = errors.New("settings sheet not found")

// Ports for outbound adapters.
type (
	// Table is a header-addressed table of string cells. Rows come back keyed
	// by header name; writes take rows in header order.
	Table interface {
		ReadAll(ctx context.Context) ([]map[string]string, error)
		// WriteAll clears the table and writes header plus rows.
		WriteAll(ctx context.Context, header []string, rows [][]string) error
		// AppendOne adds a row at the end, writing header first if the table is empty.
		AppendOne(ctx context.Context, header []string, row []string) error
	}

	// SettingsCell is a single cell holding the JSON settings document.
	SettingsCell interface {
		ReadCell(ctx context.Context) (string, error)
		WriteCell(ctx context.Context, value string) error
	}

	// Backend bundles both ports; every storage adapter provides the pair.
	Backend interface {
		Table
		SettingsCell
	}
)
