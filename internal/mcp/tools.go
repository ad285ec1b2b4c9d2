package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/wrench/internal/ops"
)

func statsKindNames() []string {
	kinds := ops.StatsKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// filterOptions are the shared file and filter arguments of the read tools.
func filterOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("file",
			mcp.Description("Read records from this JSON array file instead of the database"),
		),
		mcp.WithArray("brands",
			mcp.Description("Keep records whose brand equals any of these (case-insensitive)"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("tool_types",
			mcp.Description("Keep records whose tool type equals any of these (case-insensitive)"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("components",
			mcp.Description("Keep records with at least one of these normalized component labels"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("outcomes",
			mcp.Description("Keep records with any of these outcomes: Successful, Failed, Pending"),
			mcp.WithStringItems(),
		),
	}
}

func readTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	all = append(all, opts...)
	return mcp.NewTool(name, all...)
}

var statsToolDef = readTool("repair_stats",
	"Aggregate repair records into one table: brands (success rate per brand), components, "+
		"tool-types, matrix (brand by tool type), outcomes, failures (failure reason categories), "+
		"unmapped (non-standard components) or summary.",
	append([]mcp.ToolOption{
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Table to compute"),
			mcp.Enum(statsKindNames()...),
		),
	}, filterOptions()...)...,
)

var listToolDef = readTool("repair_list",
	"List normalized repair records in store order with pagination.",
	append(filterOptions(),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
		mcp.WithNumber("offset", mcp.Description("Records to skip (default 0)")),
	)...,
)

var filtersToolDef = readTool("repair_filters",
	"List the distinct brands, tool types, components and outcomes available for filtering.",
	mcp.WithString("file",
		mcp.Description("Read records from this JSON array file instead of the database"),
	),
)

var reportToolDef = readTool("repair_report",
	"Render a markdown report of the (filtered) repair records.",
	append(filterOptions(),
		mcp.WithNumber("top", mcp.Description("Rows per ranked table (default 15)")),
	)...,
)

var normalizeToolDef = readTool("repair_normalize",
	"Map free-text component descriptions to standard component labels.",
	mcp.WithArray("texts",
		mcp.Required(),
		mcp.Description("Component descriptions, e.g. \"carbon brushes and switch\""),
		mcp.WithStringItems(),
	),
)

var categorizeToolDef = readTool("repair_categorize",
	"Classify a failure reason into a failure category.",
	mcp.WithString("reason",
		mcp.Description("Failure reason text; omit for Unknown"),
	),
)

var batchesToolDef = readTool("repair_batches",
	"List import batches, newest first.",
)

var importToolDef = mcp.NewTool("repair_import",
	mcp.WithDescription("Append the records of a JSON array file to the database as one batch. "+
		"Records are never updated or deleted once stored."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("JSON file to import (must be under ~/.wrench/exports unless allowed by config)"),
	),
	mcp.WithString("source",
		mcp.Description("Label for the batch (default: file name)"),
	),
)

var exportToolDef = mcp.NewTool("repair_export",
	mcp.WithDescription("Write stored records to a JSON array file."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("path",
		mcp.Description("Output file (default: ~/.wrench/exports/<name>-<timestamp>.json)"),
	),
	mcp.WithString("batch_id",
		mcp.Description("Export only this batch"),
	),
)
