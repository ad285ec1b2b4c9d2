// Package stats computes aggregate tables over canonical repair records.
// Every function is a pure function of its input.
package stats

import (
	"sort"

	"github.com/hpungsan/wrench/internal/repair"
)

// BrandStat is one row of the per-brand table.
type BrandStat struct {
	Brand       string  `json:"brand"`
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// ComponentStat is one row of the per-component table.
type ComponentStat struct {
	Component string `json:"component"`
	Count     int    `json:"count"`
	// Standard is false for labels the normalizer passed through verbatim.
	Standard bool `json:"standard"`
}

// ToolTypeCount is one row of the tool type frequency table.
// ToolType is nil for records with no tool type.
type ToolTypeCount struct {
	ToolType *string `json:"tool_type"`
	Count    int     `json:"count"`
}

// Matrix is a brand by tool type contingency table.
// Counts[i][j] is the number of records with Brands[i] and ToolTypes[j].
type Matrix struct {
	Brands    []string `json:"brands"`
	ToolTypes []string `json:"tool_types"`
	Counts    [][]int  `json:"counts"`
}

// Cell returns the count for a brand and tool type, or 0 if either is absent.
func (m Matrix) Cell(brand, toolType string) int {
	i := sort.SearchStrings(m.Brands, brand)
	j := sort.SearchStrings(m.ToolTypes, toolType)
	if i >= len(m.Brands) || m.Brands[i] != brand || j >= len(m.ToolTypes) || m.ToolTypes[j] != toolType {
		return 0
	}
	return m.Counts[i][j]
}

// SuccessRate is successful / (successful + failed) * 100, or 0 when no
// record has a decided outcome.
func SuccessRate(successful, failed int) float64 {
	decided := successful + failed
	if decided == 0 {
		return 0
	}
	return float64(successful) / float64(decided) * 100
}

// BrandStats counts outcomes per brand. Records without a brand are skipped.
// Rows are ordered by total descending, then brand.
func BrandStats(records []repair.Record) []BrandStat {
	byBrand := map[string]*BrandStat{}
	for _, r := range records {
		if r.Brand == nil {
			continue
		}
		s, ok := byBrand[*r.Brand]
		if !ok {
			s = &BrandStat{Brand: *r.Brand}
			byBrand[*r.Brand] = s
		}
		s.Total++
		switch r.Outcome {
		case repair.OutcomeSuccessful:
			s.Successful++
		case repair.OutcomeFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}

	out := make([]BrandStat, 0, len(byBrand))
	for _, s := range byBrand {
		s.SuccessRate = SuccessRate(s.Successful, s.Failed)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Brand < out[j].Brand
	})
	return out
}

// ComponentStats explodes each record's component list and counts each
// label. Rows are ordered by count descending, then label.
func ComponentStats(records []repair.Record) []ComponentStat {
	counts := map[string]int{}
	for _, r := range records {
		for _, c := range r.Components {
			if c == "" {
				continue
			}
			counts[c]++
		}
	}

	out := make([]ComponentStat, 0, len(counts))
	for c, n := range counts {
		out = append(out, ComponentStat{Component: c, Count: n, Standard: repair.IsStandardComponent(c)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Component < out[j].Component
	})
	return out
}

// UnmappedComponents is ComponentStats restricted to labels outside the
// standard taxonomy. These are the candidates for new keyword rules.
func UnmappedComponents(records []repair.Record) []ComponentStat {
	var out []ComponentStat
	for _, s := range ComponentStats(records) {
		if !s.Standard {
			out = append(out, s)
		}
	}
	if out == nil {
		out = []ComponentStat{}
	}
	return out
}

// ToolTypeCounts counts records per tool type, with records lacking a tool
// type in their own nil bucket. Rows are ordered by count descending, then
// name, with the nil bucket last among equal counts.
func ToolTypeCounts(records []repair.Record) []ToolTypeCount {
	counts := map[string]int{}
	missing := 0
	for _, r := range records {
		if r.ToolType == nil {
			missing++
			continue
		}
		counts[*r.ToolType]++
	}

	out := make([]ToolTypeCount, 0, len(counts)+1)
	for name, n := range counts {
		out = append(out, ToolTypeCount{ToolType: &name, Count: n})
	}
	if missing > 0 {
		out = append(out, ToolTypeCount{Count: missing})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.ToolType == nil || b.ToolType == nil {
			return b.ToolType == nil && a.ToolType != nil
		}
		return *a.ToolType < *b.ToolType
	})
	return out
}

// BrandToolMatrix cross-tabulates brand against tool type. Records missing
// either field are left out. Rows and columns are sorted; absent
// combinations are zero.
func BrandToolMatrix(records []repair.Record) Matrix {
	type key struct{ brand, toolType string }
	cells := map[key]int{}
	brands := map[string]bool{}
	types := map[string]bool{}
	for _, r := range records {
		if r.Brand == nil || r.ToolType == nil {
			continue
		}
		cells[key{*r.Brand, *r.ToolType}]++
		brands[*r.Brand] = true
		types[*r.ToolType] = true
	}

	m := Matrix{Brands: sortedKeys(brands), ToolTypes: sortedKeys(types)}
	m.Counts = make([][]int, len(m.Brands))
	for i, b := range m.Brands {
		m.Counts[i] = make([]int, len(m.ToolTypes))
		for j, tt := range m.ToolTypes {
			m.Counts[i][j] = cells[key{b, tt}]
		}
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
