package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sitebook/internal/log"
	"sitebook/internal/services"
)

// handleDashboard renders totals and the expense breakdown.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()

	p := ParsePeriod(r.URL.Query())
	p.Project = requestProject(r)
	d, err := s.svc.Dashboard(ctx, p)
	rememberProject(w, d.Selection.Project)
	s.render(w, r, "dashboard.html", page{
		Title:    "收支總覽",
		Active:   "dashboard",
		Project:  d.Selection.Project,
		Projects: d.Projects,
		Warning:  warning(err),
		View:     d,
	})
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "application/pdf", "pdf", s.svc.WriteReportPDF)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", s.svc.WriteReportXLSX)
}

// download renders a report fully before sending it, so a failure can still
// be reported as an error instead of a truncated file.
func (s *Server) download(w http.ResponseWriter, r *http.Request, contentType, ext string,
	write func(context.Context, io.Writer, services.Period) error) {
	ctx, cancel := s.storeContext(r)
	defer cancel()

	p := ParsePeriod(r.URL.Query())
	p.Project = requestProject(r)

	var buf bytes.Buffer
	if err := write(ctx, &buf, p); err != nil {
		s.respondError(w, r, log.OpRender, err)
		return
	}

	name := reportFileName(p, s.now().Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment("report."+ext, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func reportFileName(p services.Period, today, ext string) string {
	period := today
	switch {
	case p.Year > 0 && p.Month > 0:
		period = fmt.Sprintf("%d%02d", p.Year, p.Month)
	case p.Year > 0:
		period = strconv.Itoa(p.Year)
	}
	if p.Project == "" {
		return fmt.Sprintf("工地支出報表_%s.%s", period, ext)
	}
	return fmt.Sprintf("工地支出報表_%s_%s.%s", p.Project, period, ext)
}
