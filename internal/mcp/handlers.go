package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// FilterArgs are the file and filter arguments shared by the read tools.
type FilterArgs struct {
	File       string   `json:"file,omitempty"`
	Brands     []string `json:"brands,omitempty"`
	ToolTypes  []string `json:"tool_types,omitempty"`
	Components []string `json:"components,omitempty"`
	Outcomes   []string `json:"outcomes,omitempty"`
}

func (a FilterArgs) filter() ops.FilterInput {
	return ops.FilterInput{
		Brands:     a.Brands,
		ToolTypes:  a.ToolTypes,
		Components: a.Components,
		Outcomes:   a.Outcomes,
	}
}

// StatsRequest represents the arguments for repair_stats.
type StatsRequest struct {
	Kind string `json:"kind"`
	FilterArgs
}

// ListRequest represents the arguments for repair_list.
type ListRequest struct {
	FilterArgs
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// FiltersRequest represents the arguments for repair_filters.
type FiltersRequest struct {
	File string `json:"file,omitempty"`
}

// ReportRequest represents the arguments for repair_report.
type ReportRequest struct {
	FilterArgs
	Top int `json:"top,omitempty"`
}

// NormalizeRequest represents the arguments for repair_normalize.
type NormalizeRequest struct {
	Texts []string `json:"texts"`
}

// CategorizeRequest represents the arguments for repair_categorize.
type CategorizeRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// ImportRequest represents the arguments for repair_import.
type ImportRequest struct {
	Path   string  `json:"path"`
	Source *string `json:"source,omitempty"`
}

// ExportRequest represents the arguments for repair_export.
type ExportRequest struct {
	Path    string `json:"path,omitempty"`
	BatchID string `json:"batch_id,omitempty"`
}

// Handler implementations

// HandleStats handles the repair_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Stats(ctx, h.db, h.cfg, ops.StatsInput{
		Kind:   ops.StatsKind(input.Kind),
		File:   input.File,
		Filter: input.filter(),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the repair_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, h.cfg, ops.ListInput{
		File:   input.File,
		Filter: input.filter(),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFilters handles the repair_filters tool call.
func (h *Handlers) HandleFilters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FiltersRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Filters(ctx, h.db, h.cfg, input.File)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReport handles the repair_report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Report(ctx, h.db, h.cfg, ops.ReportInput{
		File:   input.File,
		Filter: input.filter(),
		Top:    input.Top,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleNormalize handles the repair_normalize tool call.
func (h *Handlers) HandleNormalize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NormalizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	items, err := ops.Normalize(input.Texts)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"items": items})
}

// HandleCategorize handles the repair_categorize tool call.
func (h *Handlers) HandleCategorize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CategorizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	return successResult(ops.Categorize(input.Reason))
}

// HandleBatches handles the repair_batches tool call.
func (h *Handlers) HandleBatches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Batches(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the repair_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path:   input.Path,
		Source: input.Source,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the repair_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:    input.Path,
		BatchID: input.BatchID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var wErr *errors.WrenchError
	if stderrors.As(err, &wErr) {
		message := wErr.Message
		// Keep wrapper context such as "records[3]: ..."
		if err != error(wErr) {
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    wErr.Code,
			"message": message,
			"status":  wErr.Status,
		}
		if wErr.Code != errors.ErrInternal && wErr.Details != nil {
			errorObj["details"] = wErr.Details
		}
		if wErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
