package web

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/db"
	"github.com/hpungsan/wrench/internal/ops"
	"github.com/hpungsan/wrench/internal/repair"
)

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer, err := NewRenderer(templateSub, "test", nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	return &Handlers{
		db:       database,
		cfg:      cfg,
		renderer: renderer,
	}
}

func sampleRaws() []repair.RawRecord {
	return []repair.RawRecord{
		{
			Brand: stringPtr("DeWalt"), ToolType: stringPtr("Drill"), Problem: "won't start",
			Components: repair.ComponentList{"motor brushes"}, Successful: boolPtr(true),
			VideoURL: "https://example.com/v/1", VideoTitle: "Drill fix",
		},
		{
			Brand: stringPtr("DeWalt"), ToolType: stringPtr("Drill"), Problem: "smoke",
			Components: repair.ComponentList{"armature"}, Successful: boolPtr(false),
			FailureReason: stringPtr("not economical to repair"),
			VideoURL:      "https://example.com/v/1", VideoTitle: "Drill fix",
		},
		{
			Brand: stringPtr("Makita"), ToolType: stringPtr("Grinder"), Problem: "grinding noise",
			Components: repair.ComponentList{"bearings", "switch"}, Successful: boolPtr(true),
			VideoURL: "https://example.com/v/2", VideoTitle: "Grinder rebuild",
		},
		{
			ToolType: stringPtr("Saw"), Problem: "blade wobble",
			Components: repair.ComponentList{"widget"},
			VideoURL:   "https://example.com/v/3", VideoTitle: "Saw teardown",
		},
	}
}

// seedRecords imports the sample records into the handler's store.
func seedRecords(t *testing.T, h *Handlers) {
	t.Helper()
	if _, err := ops.ImportRecords(context.Background(), h.db, h.cfg, sampleRaws(), stringPtr("test")); err != nil {
		t.Fatalf("seed records: %v", err)
	}
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// --- NewServer / NewRenderer ---

func TestNewServer_ParsesEmbeddedTemplates(t *testing.T) {
	srv, err := NewServer(nil, config.DefaultConfig(), nil, Options{Version: "test", Bind: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if srv.Handler == nil {
		t.Fatal("expected a handler")
	}
	if srv.Addr != "127.0.0.1:0" {
		t.Errorf("Addr = %q", srv.Addr)
	}
}

func TestNewRenderer_BrokenTemplate(t *testing.T) {
	broken := fstest.MapFS{
		"layout.html":    {Data: []byte(`{{define "layout"}}{{template "content" .}}{{end}}`)},
		"dashboard.html": {Data: []byte(`{{define "content"}}{{if .}}open{{end}}`)},
		"records.html":   {Data: []byte(`{{define "content"}}{{end}}`)},
		"report.html":    {Data: []byte(`{{define "content"}}{{end}}`)},
		"error.html":     {Data: []byte(`{{define "content"}}{{end}}`)},
	}
	r, err := NewRenderer(broken, "test", nil)
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
	if r != nil {
		t.Error("expected nil renderer on error")
	}
	if !strings.Contains(err.Error(), "dashboard.html") {
		t.Errorf("error should name the file: %v", err)
	}
}

// --- HandleDashboard ---

func TestHandleDashboard_Default(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleDashboard, httptest.NewRequest("GET", "/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "DeWalt", "Makita", "Motor Brushes", "(unmapped)", "66.7%", "Not Economical", "Sources (3)", `href="https://example.com/v/2"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in dashboard", want)
		}
	}
}

func TestHandleDashboard_FilteredFragment(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	req := httptest.NewRequest("GET", "/dashboard?brand=makita", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "dashboard-body")
	rec := serve(h.HandleDashboard, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("fragment should not contain full layout")
	}
	if !strings.Contains(body, "Makita") {
		t.Error("expected Makita in filtered tables")
	}
	if strings.Contains(body, "DeWalt") {
		t.Error("did not expect DeWalt in filtered tables")
	}
}

func TestHandleDashboard_Empty(t *testing.T) {
	h := setupTest(t)

	rec := serve(h.HandleDashboard, httptest.NewRequest("GET", "/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No records match") {
		t.Error("expected empty state message")
	}
}

func TestHandleDashboard_InvalidOutcome(t *testing.T) {
	h := setupTest(t)

	rec := serve(h.HandleDashboard, httptest.NewRequest("GET", "/dashboard?outcome=maybe", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "outcome must be one of") {
		t.Error("expected validation message on error page")
	}
}

// --- HandleRecords ---

func TestHandleRecords_Default(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleRecords, httptest.NewRequest("GET", "/records", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Armature") {
		t.Error("expected normalized component in records table")
	}
	if !strings.Contains(body, "of 4") {
		t.Error("expected pagination total")
	}
}

func TestHandleRecords_Paginated(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleRecords, httptest.NewRequest("GET", "/records?limit=2&brand=DeWalt&brand=Makita", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Next") {
		t.Error("expected next page link")
	}
	if !strings.Contains(body, "brand=DeWalt&amp;brand=Makita") {
		t.Error("expected filter carried into pager links")
	}
}

func TestHandleRecords_HtmxReturnsContentOnly(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	req := httptest.NewRequest("GET", "/records", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(h.HandleRecords, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx response should not contain full layout")
	}
	if !strings.Contains(body, "Grinder rebuild") {
		t.Error("htmx response should contain record data")
	}
}

func TestHandleRecords_InvalidLimitFallsBack(t *testing.T) {
	h := setupTest(t)

	rec := serve(h.HandleRecords, httptest.NewRequest("GET", "/records?limit=notanumber&offset=bad", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No records found") {
		t.Error("expected empty state message")
	}
}

// --- HandleReport ---

func TestHandleReport_HTML(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleReport, httptest.NewRequest("GET", "/report", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Power tool repair report</h1>") {
		t.Error("expected rendered report heading")
	}
	if !strings.Contains(body, "<table>") {
		t.Error("expected rendered tables")
	}
}

func TestHandleReport_Markdown(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleReport, httptest.NewRequest("GET", "/report?format=md&outcome=failed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q, want text/markdown", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "# Power tool repair report") {
		t.Error("expected raw markdown body")
	}
	if !strings.Contains(body, "Filtered by outcome Failed.") {
		t.Errorf("expected filter description, got:\n%s", body)
	}
}

// --- JSON API ---

func TestHandleAPIStats_Brands(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	req := httptest.NewRequest("GET", "/api/stats/brands", nil)
	req.SetPathValue("kind", "brands")
	rec := serve(h.HandleAPIStats, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Kind    string           `json:"kind"`
		Records int              `json:"records"`
		Rows    []map[string]any `json:"rows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if resp.Kind != "brands" || resp.Records != 4 {
		t.Errorf("kind/records = %q/%d, want brands/4", resp.Kind, resp.Records)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (null brand excluded)", len(resp.Rows))
	}
	if resp.Rows[0]["brand"] != "DeWalt" || resp.Rows[0]["success_rate"] != float64(50) {
		t.Errorf("first row = %v", resp.Rows[0])
	}
}

func TestHandleAPIStats_UnknownKind(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/api/stats/histogram", nil)
	req.SetPathValue("kind", "histogram")
	rec := serve(h.HandleAPIStats, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	if errObj["code"] != "INVALID_REQUEST" {
		t.Errorf("error.code = %v, want INVALID_REQUEST", errObj["code"])
	}
}

func TestHandleAPIRecords_Filtered(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleAPIRecords, httptest.NewRequest("GET", "/api/records?outcome=Failed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ops.ListOutput
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	if resp.Items[0].FailureCategory != repair.CategoryNotEconomical {
		t.Errorf("failure_category = %q", resp.Items[0].FailureCategory)
	}
}

func TestHandleAPIFilters(t *testing.T) {
	h := setupTest(t)
	seedRecords(t, h)

	rec := serve(h.HandleAPIFilters, httptest.NewRequest("GET", "/api/filters", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var opts repair.FilterOptions
	if err := json.NewDecoder(rec.Body).Decode(&opts); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if strings.Join(opts.Brands, ",") != "DeWalt,Makita" {
		t.Errorf("brands = %v", opts.Brands)
	}
	if len(opts.Outcomes) != 3 {
		t.Errorf("outcomes = %v, want all three", opts.Outcomes)
	}
}

func TestHandlers_FileSource(t *testing.T) {
	h := setupTest(t)
	h.db = nil
	h.cfg.AllowUnsafePaths = true

	data, err := json.Marshal(sampleRaws())
	if err != nil {
		t.Fatal(err)
	}
	h.file = filepath.Join(t.TempDir(), "repairs.json")
	if err := os.WriteFile(h.file, data, 0600); err != nil {
		t.Fatal(err)
	}

	rec := serve(h.HandleDashboard, httptest.NewRequest("GET", "/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "repairs.json") {
		t.Error("expected file source in header")
	}
	if !strings.Contains(body, "Makita") {
		t.Error("expected records loaded from file")
	}
}

// --- Routing ---

func TestRoutes_RedirectAndHeaders(t *testing.T) {
	h := setupTest(t)
	handler := securityHeaders(routes(h, fstest.MapFS{"style.css": {Data: []byte("body{}")}}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected security headers")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("api status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("static status = %d, want 200", rec.Code)
	}
}

// --- Error rendering ---

func TestErrorRendering_HtmxFragment(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/records?outcome=maybe", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(h.HandleRecords, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "error-message") {
		t.Error("expected error-message div in htmx error response")
	}
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx error should not contain full layout")
	}
}

func TestErrorRendering_JSONAccept(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/records?outcome=maybe", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(h.HandleRecords, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	if errObj["status"] != float64(400) {
		t.Errorf("error.status = %v, want 400", errObj["status"])
	}
}

func TestErrorRendering_FullErrorPage(t *testing.T) {
	h := setupTest(t)
	h.db = nil

	rec := serve(h.HandleRecords, httptest.NewRequest("GET", "/records", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("full error page should contain layout")
	}
	if !strings.Contains(body, "400") {
		t.Error("error page should show status code")
	}
}

// --- Helper functions ---

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query    string
		name     string
		def      int
		expected int
	}{
		{"", "limit", 20, 20},
		{"limit=50", "limit", 20, 50},
		{"limit=bad", "limit", 20, 20},
		{"offset=10", "offset", 0, 10},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/?"+tt.query, nil)
		got := parseIntParam(req, tt.name, tt.def)
		if got != tt.expected {
			t.Errorf("parseIntParam(%q, %q, %d) = %d, want %d", tt.query, tt.name, tt.def, got, tt.expected)
		}
	}
}

func TestParseFilter_RoundTrip(t *testing.T) {
	req := httptest.NewRequest("GET", "/?brand=DeWalt&brand=Makita&tool_type=Drill&component=Switch&outcome=Failed", nil)
	in := parseFilter(req)

	if len(in.Brands) != 2 || in.ToolTypes[0] != "Drill" || in.Components[0] != "Switch" || in.Outcomes[0] != "Failed" {
		t.Fatalf("parseFilter = %+v", in)
	}
	got := filterQuery(in)
	want := template.URL("brand=DeWalt&brand=Makita&component=Switch&outcome=Failed&tool_type=Drill")
	if got != want {
		t.Errorf("filterQuery = %q, want %q", got, want)
	}
	if filterQuery(ops.FilterInput{}) != "" {
		t.Error("empty filter should encode to empty query")
	}
}

func TestSelected(t *testing.T) {
	if !selected([]string{"DeWalt"}, "dewalt") {
		t.Error("string match should fold case")
	}
	if !selected([]repair.Outcome{repair.OutcomeFailed}, "Failed") {
		t.Error("outcome match")
	}
	if selected(nil, "x") {
		t.Error("nil never selects")
	}
}

func TestDerefAndHasValue(t *testing.T) {
	var nilStr *string
	if deref(nilStr) != "" {
		t.Error("nil *string should deref to empty string")
	}
	if deref(stringPtr("x")) != "x" {
		t.Error("deref value")
	}
	if hasValue(nilStr) || !hasValue(stringPtr("")) {
		t.Error("hasValue reports pointer presence")
	}
}
