package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"sitebook/internal/amqp"
	"sitebook/internal/backup"
	"sitebook/internal/ledger"
	"sitebook/internal/log"
	"sitebook/internal/report"
	"sitebook/internal/settings"
)

func (s *LedgerService) reportInput(ctx context.Context, p Period) (report.Input, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return report.Input{}, err
	}
	sel := s.selection(snap, p)
	return report.Input{
		Project:    sel.Project,
		Selection:  sel,
		Printed:    s.now(),
		Records:    ledger.Filter(snap.Records, sel, ""),
		Categories: snap.Settings.Categories(sel.Project),
	}, nil
}

// WriteReportPDF renders the printable report for a project and period.
func (s *LedgerService) WriteReportPDF(ctx context.Context, w io.Writer, p Period) error {
	in, err := s.reportInput(ctx, p)
	if err != nil {
		return err
	}
	logger := s.logger.WithComponent(log.ComponentReport)
	if s.config.ReportFont != "" {
		font, err := os.ReadFile(s.config.ReportFont)
		if err != nil {
			logger.WarnContext(ctx, "report font unavailable, using Helvetica", log.FieldFile, s.config.ReportFont, log.FieldError, err)
		}
		in.Font = font
	}
	fallback, err := report.RenderPDF(w, in)
	if err != nil {
		return err
	}
	if fallback && len(in.Font) > 0 {
		logger.WarnContext(ctx, "report font could not be loaded, using Helvetica", log.FieldFile, s.config.ReportFont)
	}
	logger.InfoContext(ctx, "report rendered",
		log.NewFields().WithOperation(log.OpRender).WithProject(in.Project).WithRows(len(in.Records)).ToSlice()...)
	return nil
}

// WriteReportXLSX writes the detail export for a project and period.
func (s *LedgerService) WriteReportXLSX(ctx context.Context, w io.Writer, p Period) error {
	in, err := s.reportInput(ctx, p)
	if err != nil {
		return err
	}
	return report.RenderXLSX(w, in)
}

// BackupArchive collects the whole ledger and settings, or one project's
// share of them when project is non-empty.
func (s *LedgerService) BackupArchive(ctx context.Context, project string) (backup.Archive, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return backup.Archive{}, err
	}
	a := backup.Archive{Records: snap.Records, Settings: snap.Settings}
	if project != "" {
		if !snap.Settings.HasProject(project) {
			return backup.Archive{}, fmt.Errorf("%w: %s", settings.ErrUnknownProject, project)
		}
		a = a.Scope(project)
	}
	return a, nil
}

// WriteBackup streams a backup zip.
func (s *LedgerService) WriteBackup(ctx context.Context, w io.Writer, project string) error {
	a, err := s.BackupArchive(ctx, project)
	if err != nil {
		return err
	}
	if err := backup.Write(w, a); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "backup written",
		log.NewFields().WithOperation(log.OpBackup).WithProject(project).WithRows(len(a.Records)).ToSlice()...)
	return nil
}

// RestoreResult reports what a restore wrote.
type RestoreResult struct {
	Records  int
	Migrated bool
}

// Restore loads a backup archive. With an empty project the ledger and the
// settings are replaced wholesale; otherwise only that project's records are
// replaced and its settings subtree merged in. Records are written first; a
// settings failure afterwards returns ErrRestorePartial.
func (s *LedgerService) Restore(ctx context.Context, data []byte, project string) (RestoreResult, error) {
	a, err := backup.ReadBytes(data)
	if err != nil {
		return RestoreResult{}, err
	}

	doc := a.Settings
	records := a.Records
	if project != "" {
		if !a.Settings.HasProject(project) {
			return RestoreResult{}, fmt.Errorf("%w: %s not in archive", settings.ErrUnknownProject, project)
		}
		current, err := s.settings.Load(ctx)
		if err != nil {
			return RestoreResult{}, wrapUnavailable(err)
		}
		doc = current.Clone()
		if err := doc.MergeProject(a.Settings, project); err != nil {
			return RestoreResult{}, err
		}
		records = a.Scope(project).Records
		err = s.ledger.ReplaceProject(ctx, project, records)
		if err != nil {
			return RestoreResult{}, err
		}
	} else if err := s.ledger.Replace(ctx, records); err != nil {
		return RestoreResult{}, err
	}

	res := RestoreResult{Records: len(records), Migrated: a.Migrated}
	if err := s.settings.Save(ctx, doc); err != nil {
		s.logger.ErrorContext(ctx, "settings save failed after restore",
			log.FieldOperation, log.OpRestore,
			log.FieldProject, project,
			log.FieldError, err)
		s.publish(ctx, amqp.OpRestore, project, res.Records)
		return res, fmt.Errorf("%w: %w", ErrRestorePartial, err)
	}
	s.logger.InfoContext(ctx, "backup restored",
		log.NewFields().WithOperation(log.OpRestore).WithProject(project).WithRows(res.Records).ToSlice()...)
	s.publish(ctx, amqp.OpRestore, project, res.Records)
	return res, nil
}
