// Package http serves the sitebook web UI: server-rendered pages driven by
// htmx, plus report and backup downloads.
package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sitebook/internal/core"
	"sitebook/internal/log"
	"sitebook/internal/middleware/security"
	"sitebook/internal/middleware/trace"
	"sitebook/internal/services"
	appweb "sitebook/web"
)

const defaultStoreTimeout = 20 * time.Second

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	Logger *log.Logger
	// StoreTimeout bounds every backing-store call made for one request.
	StoreTimeout time.Duration
	// MaxUploadBytes limits restore uploads.
	MaxUploadBytes int64
}

type Server struct {
	http.Server
	templates    *template.Template
	svc          *services.LedgerService
	logger       *log.Logger
	trace        *trace.Middleware
	storeTimeout time.Duration
	maxUpload    int64
	started      time.Time
	now          func() time.Time
}

// NewServer parses the embedded templates and configures routes, returning
// a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:          svc,
		logger:       logger.WithComponent(log.ComponentHTTP),
		storeTimeout: opts.StoreTimeout,
		maxUpload:    opts.MaxUploadBytes,
		started:      time.Now(),
		now:          time.Now,
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 64 << 20
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	clientIP := security.NewClientIP()
	s.trace = trace.NewMiddleware(logger, clientIP.Extract)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.trace.Middleware)
	r.Use(headers.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.Post("/records", s.handleCreateRecord)
	r.Get("/records", s.handleRecords)
	r.Post("/records/edit", s.handleEditRecords)
	r.Post("/records/delete", s.handleDeleteRecords)

	r.Get("/dashboard", s.handleDashboard)
	r.Get("/report.pdf", s.handleReportPDF)
	r.Get("/report.xlsx", s.handleReportXLSX)

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.handleSettings)
		r.Post("/projects", s.handleCreateProject)
		r.Post("/projects/rename", s.handleRenameProject)
		r.Post("/projects/delete", s.handleDeleteProject)
		r.Post("/categories", s.handleAddCategory)
		r.Post("/categories/update", s.handleUpdateCategory)
		r.Post("/categories/delete", s.handleRemoveCategory)
		r.Post("/suggestions", s.handleAddSuggestion)
		r.Post("/suggestions/delete", s.handleRemoveSuggestion)
		r.Post("/suggestions/rename", s.handleRenameSuggestion)
	})

	r.Get("/backup.zip", s.handleBackup)
	r.Post("/backup/restore", s.handleRestore)

	s.Handler = r
	return s, nil
}

// storeContext bounds the backing-store calls of one request.
func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storeTimeout)
}

// page is the data every full page template receives.
type page struct {
	Title    string
	Active   string
	Project  string
	Projects []string
	Warning  string
	View     any
}

// render executes a template into a buffer so a failure never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err)
		http.Error(w, "頁面產生失敗", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// warning turns a degraded read into the banner shown above a page.
func warning(err error) string {
	if err == nil {
		return ""
	}
	return errorMessage(err)
}

// respondOK reports a successful write. htmx requests get a notification and
// a page refresh; plain form posts are redirected back.
func (s *Server) respondOK(w http.ResponseWriter, r *http.Request, project, message, redirect string) {
	if !isHTMX(r) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification(message).
		TriggerLedgerChanged(project).
		TriggerFormReset().
		TriggerPageRefresh().
		Write(w)
}

// respondError logs err and reports it to the user. Store failures are
// logged at error level, refusals at info.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	if services.IsUserError(err) {
		logger.InfoContext(ctx, "Request refused", log.FieldOperation, op, log.FieldError, err)
	} else {
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, op, nil)
	}
	msg := errorMessage(err)
	ErrorResponse(errorStatus(err), msg).
		TriggerErrorNotification(msg).
		Write(w)
}

// periodURL builds a link to path keeping the selected period.
func periodURL(path, project string, year, month int) string {
	q := url.Values{}
	if project != "" {
		q.Set("project", project)
	}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if month > 0 {
		q.Set("month", strconv.Itoa(month))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"amount":  core.FormatAmount,
		"number":  core.FormatNumber,
		"percent": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) + "%" },
		"periodURL": func(path, project string, year, month int) template.URL {
			return template.URL(periodURL(path, project, year, month))
		},
		"monthLabel": func(m int) string {
			if m == 0 {
				return "全年"
			}
			return fmt.Sprintf("%02d月", m)
		},
		"months": func() []int { return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12} },
		"add":    func(a, b int) int { return a + b },
		"isIncome": func(t core.CategoryType) bool {
			return t == core.Income
		},
		"suggestionBlock": func(project, category, kind string, values []string) suggestionBlock {
			return suggestionBlock{Project: project, Category: category, Kind: kind, Values: values}
		},
	}
}
