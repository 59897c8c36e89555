package http

import (
	"fmt"
	"net/http"

	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/log"
)

// handleIndex renders the entry page: one form per category of the project.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()

	entry, err := s.svc.Entry(ctx, requestProject(r))
	rememberProject(w, entry.Project)
	s.render(w, r, "index.html", page{
		Title:    "記帳",
		Active:   "entry",
		Project:  entry.Project,
		Projects: entry.Projects,
		Warning:  warning(err),
		View:     entry,
	})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("表單格式錯誤").Write(w)
		return
	}
	rec, err := ParseRecordForm(r.PostForm)
	if err != nil {
		s.respondError(w, r, log.OpAppend, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.svc.AddRecord(ctx, rec); err != nil {
		s.respondError(w, r, log.OpAppend, err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Record created",
		log.FieldOperation, log.OpAppend,
		log.FieldProject, rec.Project,
		log.FieldCategory, rec.Category)

	rememberProject(w, rec.Project)
	msg := fmt.Sprintf("已新增 %s %s %s", rec.Date, rec.Item, core.FormatAmount(rec.Total))
	s.respondOK(w, r, rec.Project, msg, periodURL("/", rec.Project, 0, 0))
}

// handleRecords renders the records editor for a project and period.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()

	p := ParsePeriod(r.URL.Query())
	p.Project = requestProject(r)
	ed, err := s.svc.Editor(ctx, p, sanitizeInput(r.URL.Query().Get("search")))
	rememberProject(w, ed.Selection.Project)
	s.render(w, r, "records.html", page{
		Title:    "明細編輯",
		Active:   "records",
		Project:  ed.Selection.Project,
		Projects: ed.Projects,
		Warning:  warning(err),
		View:     ed,
	})
}

func (s *Server) handleEditRecords(w http.ResponseWriter, r *http.Request) {
	s.applyPartition(w, r, log.OpEdit)
}

func (s *Server) handleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	s.applyPartition(w, r, log.OpDelete)
}

// applyPartition saves or deletes within one editor block.
func (s *Server) applyPartition(w http.ResponseWriter, r *http.Request, op string) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("表單格式錯誤").Write(w)
		return
	}
	edit, err := ParseEdit(r.PostForm)
	if err != nil {
		s.respondError(w, r, op, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()

	var res ledger.Result
	if op == log.OpDelete {
		res, err = s.svc.DeletePartition(ctx, edit)
	} else {
		res, err = s.svc.EditPartition(ctx, edit)
	}
	if err != nil {
		s.respondError(w, r, op, err)
		return
	}

	sel := edit.Selection
	log.FromContext(ctx).InfoContext(ctx, "Partition replaced", log.NewFields().
		WithOperation(op).
		WithSelection(sel.Project, sel.Category, sel.Year, sel.Month).
		WithRows(res.Written).
		ToSlice()...)

	msg := fmt.Sprintf("已儲存 %s %s：%d 筆", sel.PeriodLabel(), sel.Category, res.Written)
	if op == log.OpDelete {
		msg = fmt.Sprintf("已刪除 %d 筆資料", res.Removed())
	}
	s.respondOK(w, r, sel.Project, msg, periodURL("/records", sel.Project, sel.Year, sel.Month))
}
