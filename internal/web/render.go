package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/logger"
	"github.com/hpungsan/wrench/internal/ops"
	"github.com/hpungsan/wrench/internal/repair"
	"github.com/hpungsan/wrench/internal/stats"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "dashboard", "records", "report"
	Source  string // file being served, empty for the database
}

// DashboardPageData is the template data for the dashboard page.
type DashboardPageData struct {
	PageData
	Filter     repair.Filter
	Query      template.URL // encoded filter for links
	Options    repair.FilterOptions
	Summary    stats.Summary
	Brands     []stats.BrandStat
	Components []stats.ComponentStat
	ToolTypes  []stats.ToolTypeCount
	Outcomes   []stats.OutcomeCount
	Failures   []stats.CategoryCount
	Matrix     stats.Matrix
	Sources    []stats.Source
}

// RecordsPageData is the template data for the records table page.
type RecordsPageData struct {
	PageData
	Filter     repair.Filter
	Query      template.URL
	Options    repair.FilterOptions
	Items      []repair.Record
	Pagination ops.Pagination
}

// ReportPageData is the template data for the rendered report page.
type ReportPageData struct {
	PageData
	Query        template.URL
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       *logger.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
// A template that fails to parse is returned as an error.
func NewRenderer(templateFS fs.FS, version string, log *logger.Logger) (*Renderer, error) {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"comma":      func(n int) string { return humanize.Comma(int64(n)) },
		"rate":       func(r float64) string { return fmt.Sprintf("%.1f%%", r) },
		"truncate":   func(n int, s string) string { return runewidth.Truncate(s, n, "…") },
		"formatTime": formatTime,
		"deref":      deref,
		"hasValue":   hasValue,
		"selected":   selected,
		"join":       strings.Join,
	}

	layoutTmpl, err := template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"dashboard": "dashboard.html",
		"records":   "records.html",
		"report":    "report.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layoutTmpl.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", file, err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	if log == nil {
		log = logger.NewNop()
	}
	return &Renderer{
		templates: templates,
		version:   version,
		log:       log,
	}, nil
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for htmx partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.log.Error("template not found", "template", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.Error("template execution error", "template", page, "block", block, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var wErr *errors.WrenchError
	if !stderrors.As(err, &wErr) {
		wErr = errors.NewInternal(err)
	}

	status := wErr.Status
	message := wErr.Message
	if status >= 500 {
		r.log.Error("request failed", "path", req.URL.Path, "error", err)
	}

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request (API routes always answer JSON)
	if strings.HasPrefix(req.URL.Path, "/api/") || strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(wErr.Code),
				"message": message,
				"status":  status,
				"details": wErr.Details,
			},
		})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// selected reports whether v is among the chosen filter values.
// values may be []string or []repair.Outcome.
func selected(values any, v string) bool {
	switch vs := values.(type) {
	case []string:
		return slices.ContainsFunc(vs, func(s string) bool { return strings.EqualFold(s, v) })
	case []repair.Outcome:
		return slices.Contains(vs, repair.Outcome(v))
	}
	return false
}

// deref dereferences a pointer, returning the zero value if nil.
func deref(v any) any {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Zero(rv.Type().Elem()).Interface()
		}
		return rv.Elem().Interface()
	}
	return v
}

// hasValue checks if a pointer value is non-nil.
func hasValue(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return !rv.IsNil()
	}
	return true
}
