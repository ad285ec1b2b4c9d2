package web

import (
	"database/sql"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/ops"
	"github.com/hpungsan/wrench/internal/repair"
	"github.com/hpungsan/wrench/internal/stats"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	file     string // when set, records are read from this JSON file instead of db
	renderer *Renderer
}

// HandleDashboard handles GET /dashboard: summary tables for the filtered records.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	in := parseFilter(r)
	f, err := in.ToFilter()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	all, err := ops.LoadRecords(r.Context(), h.db, h.cfg, h.file)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	records := f.Apply(all)

	data := DashboardPageData{
		PageData:   h.pageData("Dashboard", "dashboard"),
		Filter:     f,
		Query:      filterQuery(in),
		Options:    repair.Options(all),
		Summary:    stats.Summarize(records),
		Brands:     stats.BrandStats(records),
		Components: stats.ComponentStats(records),
		ToolTypes:  stats.ToolTypeCounts(records),
		Outcomes:   stats.OutcomeCounts(records),
		Failures:   stats.FailureCategoryCounts(records),
		Matrix:     stats.BrandToolMatrix(records),
		Sources:    stats.Sources(records),
	}

	// If htmx targets #dashboard-body (filter form change), render only the tables
	if r.Header.Get("HX-Target") == "dashboard-body" {
		h.renderer.renderBlock(w, http.StatusOK, "dashboard", "dashboard-body", data)
		return
	}
	h.renderer.renderPage(w, r, "dashboard", data)
}

// HandleRecords handles GET /records: paginated record table.
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	in := parseFilter(r)
	f, err := in.ToFilter()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.List(r.Context(), h.db, h.cfg, ops.ListInput{
		File:   h.file,
		Filter: in,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	opts, err := ops.Filters(r.Context(), h.db, h.cfg, h.file)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "records", RecordsPageData{
		PageData:   h.pageData("Records", "records"),
		Filter:     f,
		Query:      filterQuery(in),
		Options:    *opts,
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleReport handles GET /report: the markdown report rendered to HTML.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	in := parseFilter(r)
	result, err := ops.Report(r.Context(), h.db, h.cfg, ops.ReportInput{
		File:   h.file,
		Filter: in,
		Top:    parseIntParam(r, "top", ops.DefaultReportTop),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// Raw markdown download
	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="repair-report.md"`)
		_, _ = w.Write([]byte(result.Markdown))
		return
	}

	html, err := ops.RenderReportHTML(result.Markdown)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "report", ReportPageData{
		PageData:     h.pageData("Report", "report"),
		Query:        filterQuery(in),
		RenderedHTML: template.HTML(html), //nolint:gosec // goldmark escapes raw HTML by default
	})
}

// HandleAPIStats handles GET /api/stats/{kind}: one aggregation table as JSON.
func (h *Handlers) HandleAPIStats(w http.ResponseWriter, r *http.Request) {
	kind, err := ops.ParseStatsKind(r.PathValue("kind"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Stats(r.Context(), h.db, h.cfg, ops.StatsInput{
		Kind:   kind,
		File:   h.file,
		Filter: parseFilter(r),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAPIRecords handles GET /api/records: a page of records as JSON.
func (h *Handlers) HandleAPIRecords(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.db, h.cfg, ops.ListInput{
		File:   h.file,
		Filter: parseFilter(r),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAPIFilters handles GET /api/filters: distinct values per filter dimension.
func (h *Handlers) HandleAPIFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := ops.Filters(r.Context(), h.db, h.cfg, h.file)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, opts)
}

func (h *Handlers) pageData(title, nav string) PageData {
	return PageData{
		Title:   title,
		Version: h.renderer.version,
		Nav:     nav,
		Source:  h.file,
	}
}

// parseFilter reads the repeatable brand, tool_type, component and outcome
// query parameters.
func parseFilter(r *http.Request) ops.FilterInput {
	q := r.URL.Query()
	return ops.FilterInput{
		Brands:     q["brand"],
		ToolTypes:  q["tool_type"],
		Components: q["component"],
		Outcomes:   q["outcome"],
	}
}

// filterQuery encodes a filter back into query parameters for links.
func filterQuery(in ops.FilterInput) template.URL {
	q := url.Values{}
	for _, v := range in.Brands {
		q.Add("brand", v)
	}
	for _, v := range in.ToolTypes {
		q.Add("tool_type", v)
	}
	for _, v := range in.Components {
		q.Add("component", v)
	}
	for _, v := range in.Outcomes {
		q.Add("outcome", v)
	}
	return template.URL(q.Encode()) //nolint:gosec // url.Values.Encode output
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
