package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"github.com/hpungsan/wrench/internal/db"
	"github.com/hpungsan/wrench/internal/ops"
	"github.com/hpungsan/wrench/internal/repair"
	"github.com/hpungsan/wrench/internal/stats"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxTextWidth = 40

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// tableFor renders a command result as a table. ok is false for values
// with no tabular form; callers fall back to JSON.
func tableFor(v any) (string, bool) {
	switch t := v.(type) {
	case *ops.StatsOutput:
		return tableFor(t.Rows)
	case *ops.ListOutput:
		return recordsTable(t.Items) + fmt.Sprintf("\n%s–%s of %s",
			humanize.Comma(int64(min(t.Pagination.Offset+1, t.Pagination.Total))),
			humanize.Comma(int64(t.Pagination.Offset+len(t.Items))),
			humanize.Comma(int64(t.Pagination.Total))), true
	case *ops.BatchesOutput:
		return batchesTable(t.Items), true
	case *repair.FilterOptions:
		return filterOptionsTable(t), true
	case []ops.NormalizeOutput:
		rows := make([][]string, 0, len(t))
		for _, n := range t {
			rows = append(rows, []string{truncate(n.Input), strings.Join(n.Components, ", "), strings.Join(n.Unmapped, ", ")})
		}
		return renderTable([]string{"Input", "Components", "Unmapped"}, rows, nil), true
	case ops.CategorizeOutput:
		return renderTable([]string{"Reason", "Category"},
			[][]string{{truncate(repair.Deref(t.Reason)), string(t.Category)}}, nil), true

	case []stats.BrandStat:
		rows := make([][]string, 0, len(t))
		for _, b := range t {
			rows = append(rows, []string{b.Brand, count(b.Total), count(b.Successful), count(b.Failed), count(b.Pending), rate(b.SuccessRate)})
		}
		return renderTable([]string{"Brand", "Total", "Successful", "Failed", "Pending", "Success rate"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}), true
	case []stats.ComponentStat:
		rows := make([][]string, 0, len(t))
		for _, c := range t {
			name := truncate(c.Component)
			if !c.Standard {
				name += " (unmapped)"
			}
			rows = append(rows, []string{name, count(c.Count)})
		}
		return renderTable([]string{"Component", "Count"}, rows, []columnAlignment{alignLeft, alignRight}), true
	case []stats.ToolTypeCount:
		rows := make([][]string, 0, len(t))
		for _, c := range t {
			name := "(none)"
			if c.ToolType != nil {
				name = *c.ToolType
			}
			rows = append(rows, []string{name, count(c.Count)})
		}
		return renderTable([]string{"Tool type", "Count"}, rows, []columnAlignment{alignLeft, alignRight}), true
	case stats.Matrix:
		headers := append([]string{"Brand"}, t.ToolTypes...)
		aligns := make([]columnAlignment, len(headers))
		for i := 1; i < len(aligns); i++ {
			aligns[i] = alignRight
		}
		rows := make([][]string, 0, len(t.Brands))
		for i, b := range t.Brands {
			row := []string{b}
			for _, n := range t.Counts[i] {
				row = append(row, count(n))
			}
			rows = append(rows, row)
		}
		return renderTable(headers, rows, aligns), true
	case []stats.OutcomeCount:
		rows := make([][]string, 0, len(t))
		for _, o := range t {
			rows = append(rows, []string{string(o.Outcome), count(o.Count)})
		}
		return renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}), true
	case []stats.CategoryCount:
		rows := make([][]string, 0, len(t))
		for _, c := range t {
			rows = append(rows, []string{string(c.Category), count(c.Count)})
		}
		return renderTable([]string{"Failure category", "Count"}, rows, []columnAlignment{alignLeft, alignRight}), true
	case []stats.Source:
		rows := make([][]string, 0, len(t))
		for i, src := range t {
			rows = append(rows, []string{fmt.Sprint(i + 1), truncate(src.VideoTitle), src.VideoURL})
		}
		return renderTable([]string{"#", "Title", "URL"}, rows, []columnAlignment{alignRight}), true
	case stats.Summary:
		rows := [][]string{
			{"Records", count(t.Records)},
			{"Videos", count(t.Videos)},
			{"Brands", count(t.Brands)},
			{"Successful", count(t.Successful)},
			{"Failed", count(t.Failed)},
			{"Pending", count(t.Pending)},
			{"Success rate", rate(t.SuccessRate)},
		}
		return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}), true
	}
	return "", false
}

func recordsTable(records []repair.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			fmt.Sprint(r.Seq),
			repair.Deref(r.Brand),
			repair.Deref(r.ToolType),
			repair.Deref(r.Model),
			truncate(r.Problem),
			truncate(strings.Join(r.Components, ", ")),
			string(r.Outcome),
			string(r.FailureCategory),
		})
	}
	return renderTable(
		[]string{"#", "Brand", "Tool type", "Model", "Problem", "Components", "Outcome", "Failure"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func batchesTable(batches []db.Batch) string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			b.ID,
			truncate(repair.Deref(b.Source)),
			count(b.RecordCount),
			humanize.Time(unixTime(b.ImportedAt)),
		})
	}
	return renderTable([]string{"Batch", "Source", "Records", "Imported"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}

func filterOptionsTable(o *repair.FilterOptions) string {
	outcomes := make([]string, len(o.Outcomes))
	for i, v := range o.Outcomes {
		outcomes[i] = string(v)
	}
	rows := [][]string{
		{"Brands", strings.Join(o.Brands, ", ")},
		{"Tool types", strings.Join(o.ToolTypes, ", ")},
		{"Components", strings.Join(o.Components, ", ")},
		{"Outcomes", strings.Join(outcomes, ", ")},
	}
	return renderTable([]string{"Filter", "Values"}, rows, nil)
}

func truncate(s string) string {
	return runewidth.Truncate(s, maxTextWidth, "…")
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func rate(r float64) string {
	return fmt.Sprintf("%.1f%%", r)
}
