package ops

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
	"github.com/hpungsan/wrench/internal/stats"
)

// Report limits
const (
	DefaultReportTop = 15
	maxCellWidth     = 40
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	File   string // optional, read a JSON array instead of the store
	Filter FilterInput
	Top    int // rows per ranked table, default: 15
}

// ReportOutput contains the result of the Report operation.
type ReportOutput struct {
	Markdown string        `json:"markdown"`
	Summary  stats.Summary `json:"summary"`
}

// Report renders a markdown summary of the (filtered) record set.
func Report(ctx context.Context, database *sql.DB, cfg *config.Config, input ReportInput) (*ReportOutput, error) {
	records, f, err := loadFiltered(ctx, database, cfg, input.File, input.Filter)
	if err != nil {
		return nil, err
	}
	top := input.Top
	if top <= 0 {
		top = DefaultReportTop
	}
	return &ReportOutput{
		Markdown: BuildReport(records, f, top),
		Summary:  stats.Summarize(records),
	}, nil
}

// BuildReport renders the markdown report for records.
func BuildReport(records []repair.Record, f repair.Filter, top int) string {
	var b strings.Builder
	s := stats.Summarize(records)

	b.WriteString("# Power tool repair report\n\n")
	if !f.IsZero() {
		fmt.Fprintf(&b, "Filtered by %s.\n\n", describeFilter(f))
	}
	if s.Records == 0 {
		b.WriteString("No records.\n")
		return b.String()
	}

	b.WriteString("## Summary\n\n")
	writeTable(&b, []string{"Records", "Videos", "Brands", "Successful", "Failed", "Pending", "Success rate"}, [][]string{{
		humanize.Comma(int64(s.Records)),
		humanize.Comma(int64(s.Videos)),
		humanize.Comma(int64(s.Brands)),
		humanize.Comma(int64(s.Successful)),
		humanize.Comma(int64(s.Failed)),
		humanize.Comma(int64(s.Pending)),
		formatRate(s.SuccessRate),
	}})

	brands := stats.BrandStats(records)
	if len(brands) > 0 {
		b.WriteString("## Brands\n\n")
		rows := make([][]string, 0, top)
		for _, bs := range head(brands, top) {
			rows = append(rows, []string{
				bs.Brand,
				humanize.Comma(int64(bs.Total)),
				humanize.Comma(int64(bs.Successful)),
				humanize.Comma(int64(bs.Failed)),
				humanize.Comma(int64(bs.Pending)),
				formatRate(bs.SuccessRate),
			})
		}
		writeTable(&b, []string{"Brand", "Total", "Successful", "Failed", "Pending", "Success rate"}, rows)
		writeMore(&b, len(brands), top, "brands")
	}

	components := stats.ComponentStats(records)
	if len(components) > 0 {
		b.WriteString("## Components\n\n")
		rows := make([][]string, 0, top)
		for _, cs := range head(components, top) {
			name := cs.Component
			if !cs.Standard {
				name += " (unmapped)"
			}
			rows = append(rows, []string{name, humanize.Comma(int64(cs.Count))})
		}
		writeTable(&b, []string{"Component", "Count"}, rows)
		writeMore(&b, len(components), top, "components")
	}

	toolTypes := stats.ToolTypeCounts(records)
	if len(toolTypes) > 0 {
		b.WriteString("## Tool types\n\n")
		rows := make([][]string, 0, top)
		for _, tc := range head(toolTypes, top) {
			name := "(none)"
			if tc.ToolType != nil {
				name = *tc.ToolType
			}
			rows = append(rows, []string{name, humanize.Comma(int64(tc.Count))})
		}
		writeTable(&b, []string{"Tool type", "Count"}, rows)
		writeMore(&b, len(toolTypes), top, "tool types")
	}

	b.WriteString("## Outcomes\n\n")
	var outcomeRows [][]string
	for _, oc := range stats.OutcomeCounts(records) {
		outcomeRows = append(outcomeRows, []string{string(oc.Outcome), humanize.Comma(int64(oc.Count))})
	}
	writeTable(&b, []string{"Outcome", "Count"}, outcomeRows)

	if failures := stats.FailureCategoryCounts(records); len(failures) > 0 {
		b.WriteString("## Failure reasons\n\n")
		var rows [][]string
		for _, cc := range failures {
			rows = append(rows, []string{string(cc.Category), humanize.Comma(int64(cc.Count))})
		}
		writeTable(&b, []string{"Category", "Count"}, rows)
	}

	if sources := stats.Sources(records); len(sources) > 0 {
		b.WriteString("## Sources\n\n")
		for i, src := range sources {
			title := src.VideoTitle
			if strings.TrimSpace(title) == "" {
				title = src.VideoURL
			}
			fmt.Fprintf(&b, "%d. [%s](<%s>)\n", i+1, linkText.Replace(title), src.VideoURL)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// linkText escapes characters that would end a markdown link label early.
var linkText = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`, "\n", " ")

// RenderReportHTML converts report markdown to HTML with GFM tables.
func RenderReportHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := reportMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", errors.NewInternal(fmt.Errorf("render report: %w", err))
	}
	return buf.String(), nil
}

var reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = escapeCell(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func writeMore(b *strings.Builder, total, shown int, noun string) {
	if total > shown {
		fmt.Fprintf(b, "_%s more %s not shown._\n\n", humanize.Comma(int64(total-shown)), noun)
	}
}

// escapeCell truncates long free text and escapes markdown table syntax.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = runewidth.Truncate(s, maxCellWidth, "…")
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}

func describeFilter(f repair.Filter) string {
	var parts []string
	if len(f.Brands) > 0 {
		parts = append(parts, "brand "+strings.Join(f.Brands, " or "))
	}
	if len(f.ToolTypes) > 0 {
		parts = append(parts, "tool type "+strings.Join(f.ToolTypes, " or "))
	}
	if len(f.Components) > 0 {
		parts = append(parts, "component "+strings.Join(f.Components, " or "))
	}
	if len(f.Outcomes) > 0 {
		outcomes := make([]string, len(f.Outcomes))
		for i, o := range f.Outcomes {
			outcomes[i] = string(o)
		}
		parts = append(parts, "outcome "+strings.Join(outcomes, " or "))
	}
	return strings.Join(parts, "; ")
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
