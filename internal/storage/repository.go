// Package storage keeps the ledger and the settings document in a local
// SQLite database. It satisfies the same whole-table contract as the
// spreadsheet and flat-file backends; rows are stored verbatim as text.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sitebook/internal/core"
	"sitebook/internal/sheets"

	_ "modernc.org/sqlite"
)

// columns maps native header names to table columns, in header order.
var columns = []struct{ header, column string }{
	{core.ColDate, "date"},
	{core.ColProject, "project"},
	{core.ColCategory, "category"},
	{core.ColItem, "item"},
	{core.ColUnit, "unit"},
	{core.ColQuantity, "quantity"},
	{core.ColPrice, "price"},
	{core.ColTotal, "total"},
	{core.ColLocation, "location"},
	{core.ColHandler, "handler"},
	{core.ColVoucher, "voucher"},
	{core.ColInvoiceNo, "invoice_no"},
	{core.ColNote, "note"},
}

var (
	selectRecords = "SELECT " + columnList() + " FROM records ORDER BY id"
	insertRecord  = "INSERT INTO records (" + columnList() + ") VALUES (?" + strings.Repeat(", ?", len(columns)-1) + ")"
)

func columnList() string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.column
	}
	return strings.Join(names, ", ")
}

type SQLiteRepository struct {
	db     *sql.DB
	schema uint
}

var _ sheets.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db, schema: version}, nil
}

// SchemaVersion is the migration version the database was brought to.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schema }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, selectRecords)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []map[string]string
	vals := make([]string, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		m := make(map[string]string, len(columns))
		for i, c := range columns {
			m[c.header] = vals[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// WriteAll swaps the whole table inside one transaction, so unlike the
// remote sheet a failure leaves the previous contents intact.
func (r *SQLiteRepository) WriteAll(ctx context.Context, header []string, rows [][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	idx := headerIndex(header)
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, rowArgs(idx, row)...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AppendOne(ctx context.Context, header []string, row []string) error {
	if _, err := r.db.ExecContext(ctx, insertRecord, rowArgs(headerIndex(header), row)...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// ReadCell returns "" until the settings document has been saved once.
func (r *SQLiteRepository) ReadCell(ctx context.Context) (string, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM settings WHERE id = 1").Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read settings: %w", err)
	}
	return doc, nil
}

func (r *SQLiteRepository) WriteCell(ctx context.Context, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, doc) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`, value)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// headerIndex maps each known column to its position in header, or -1.
func headerIndex(header []string) []int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		if p, ok := pos[c.header]; ok {
			idx[i] = p
		} else {
			idx[i] = -1
		}
	}
	return idx
}

func rowArgs(idx []int, row []string) []any {
	args := make([]any, len(idx))
	for i, p := range idx {
		if p >= 0 && p < len(row) {
			args[i] = row[p]
		} else {
			args[i] = ""
		}
	}
	return args
}
