package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
	"github.com/hpungsan/wrench/internal/stats"
)

// StatsKind names an aggregation table.
type StatsKind string

const (
	StatsBrands     StatsKind = "brands"
	StatsComponents StatsKind = "components"
	StatsToolTypes  StatsKind = "tool-types"
	StatsMatrix     StatsKind = "matrix"
	StatsOutcomes   StatsKind = "outcomes"
	StatsFailures   StatsKind = "failures"
	StatsUnmapped   StatsKind = "unmapped"
	StatsSources    StatsKind = "sources"
	StatsSummary    StatsKind = "summary"
)

// StatsKinds lists every kind in display order.
func StatsKinds() []StatsKind {
	return []StatsKind{
		StatsSummary, StatsBrands, StatsComponents, StatsToolTypes,
		StatsMatrix, StatsOutcomes, StatsFailures, StatsUnmapped, StatsSources,
	}
}

// ParseStatsKind accepts a kind name; "tool_types" is accepted for tool-types.
func ParseStatsKind(s string) (StatsKind, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, k := range StatsKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, 0, len(StatsKinds()))
	for _, k := range StatsKinds() {
		names = append(names, string(k))
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("kind must be one of: %s", strings.Join(names, ", ")))
}

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	Kind   StatsKind
	File   string // optional, read a JSON array instead of the store
	Filter FilterInput
}

// StatsOutput contains the result of the Stats operation.
// Rows holds the table for Kind: []stats.BrandStat, []stats.ComponentStat,
// []stats.ToolTypeCount, stats.Matrix, []stats.OutcomeCount,
// []stats.CategoryCount, []stats.Source or stats.Summary.
type StatsOutput struct {
	Kind    StatsKind     `json:"kind"`
	Records int           `json:"records"`
	Filter  repair.Filter `json:"filter"`
	Rows    any           `json:"rows"`
}

// Stats loads, filters and aggregates records.
func Stats(ctx context.Context, database *sql.DB, cfg *config.Config, input StatsInput) (*StatsOutput, error) {
	kind, err := ParseStatsKind(string(input.Kind))
	if err != nil {
		return nil, err
	}
	records, f, err := loadFiltered(ctx, database, cfg, input.File, input.Filter)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{
		Kind:    kind,
		Records: len(records),
		Filter:  f,
		Rows:    Aggregate(kind, records),
	}, nil
}

// Aggregate computes the table for kind. kind must be valid.
func Aggregate(kind StatsKind, records []repair.Record) any {
	switch kind {
	case StatsBrands:
		return stats.BrandStats(records)
	case StatsComponents:
		return stats.ComponentStats(records)
	case StatsToolTypes:
		return stats.ToolTypeCounts(records)
	case StatsMatrix:
		return stats.BrandToolMatrix(records)
	case StatsOutcomes:
		return stats.OutcomeCounts(records)
	case StatsFailures:
		return stats.FailureCategoryCounts(records)
	case StatsUnmapped:
		return stats.UnmappedComponents(records)
	case StatsSources:
		return stats.Sources(records)
	default:
		return stats.Summarize(records)
	}
}
