// Package worker holds the background consumers run by sitebook-worker.
package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitebook/internal/amqp"
	"sitebook/internal/backup"
	"sitebook/internal/log"
)

// Archiver writes a backup archive. *services.LedgerService satisfies it.
type Archiver interface {
	WriteBackup(ctx context.Context, w io.Writer, project string) error
}

// SnapshotWorker writes a full backup archive for every ledger change and
// keeps only the newest ones.
type SnapshotWorker struct {
	source Archiver
	dir    string
	keep   int
	logger *log.Logger
	now    func() time.Time
}

func NewSnapshotWorker(source Archiver, dir string, keep int, logger *log.Logger) *SnapshotWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SnapshotWorker{
		source: source,
		dir:    dir,
		keep:   keep,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleLedgerChanged is the AMQP handler. A returned error drops the
// message; the next change produces a fresh snapshot anyway.
func (w *SnapshotWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChanged) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldEventID, msg.ID,
		log.FieldOperation, msg.Op,
		log.FieldProject, msg.Project,
		log.FieldRows, msg.Rows)

	path, err := w.Snapshot(ctx, msg.ID)
	if err != nil {
		return err
	}
	removed, err := w.Prune()
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to prune old snapshots", log.FieldError, err)
	}
	w.logger.InfoContext(ctx, "Snapshot written",
		log.FieldEventID, msg.ID,
		log.FieldFile, path,
		log.FieldRemoved, removed)
	return nil
}

// Snapshot writes one full archive into the backup directory. The archive is
// written under a temporary name and renamed, so a crash never leaves a
// truncated zip that looks complete.
func (w *SnapshotWorker) Snapshot(ctx context.Context, id string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	tmp := filepath.Join(w.dir, ".snapshot-"+id+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := w.source.WriteBackup(ctx, f, ""); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close snapshot: %w", err)
	}

	final := filepath.Join(w.dir, backup.FileName("", w.now()))
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	return final, nil
}

// Prune deletes all but the newest keep full snapshots. keep <= 0 keeps
// everything.
func (w *SnapshotWorker) Prune() (int, error) {
	if w.keep <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("list backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isFullSnapshot(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= w.keep {
		return 0, nil
	}
	// timestamped names sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	removed := 0
	for _, name := range names[w.keep:] {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// isFullSnapshot matches sitebook_backup_20060102_150405.zip but not
// per-project exports, which carry the project name before the timestamp.
func isFullSnapshot(name string) bool {
	rest, ok := strings.CutPrefix(name, backup.FilePrefix)
	if !ok {
		return false
	}
	stamp, ok := strings.CutSuffix(rest, ".zip")
	if !ok {
		return false
	}
	_, err := time.Parse(backup.TimestampLayout, stamp)
	return err == nil
}
