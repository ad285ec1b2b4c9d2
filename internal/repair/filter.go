package repair

import (
	"slices"
	"sort"
	"strings"
)

// Filter selects records. An empty slice places no constraint on that field.
// Values within a field are ORed; fields are ANDed.
type Filter struct {
	Brands     []string  `json:"brands,omitempty"`
	ToolTypes  []string  `json:"tool_types,omitempty"`
	Components []string  `json:"components,omitempty"`
	Outcomes   []Outcome `json:"outcomes,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return len(f.Brands) == 0 && len(f.ToolTypes) == 0 && len(f.Components) == 0 && len(f.Outcomes) == 0
}

// Matches reports whether r passes the filter. Brand, tool type and
// component comparisons ignore case. A record with no brand never matches a
// brand constraint.
func (f Filter) Matches(r Record) bool {
	if len(f.Brands) > 0 && (r.Brand == nil || !containsFold(f.Brands, *r.Brand)) {
		return false
	}
	if len(f.ToolTypes) > 0 && (r.ToolType == nil || !containsFold(f.ToolTypes, *r.ToolType)) {
		return false
	}
	if len(f.Outcomes) > 0 && !slices.Contains(f.Outcomes, r.Outcome) {
		return false
	}
	if len(f.Components) > 0 {
		hit := false
		for _, c := range r.Components {
			if containsFold(f.Components, c) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Apply returns the records passing the filter, preserving order.
func (f Filter) Apply(records []Record) []Record {
	if f.IsZero() {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterOptions are the distinct values present in a record set, for
// populating filter controls.
type FilterOptions struct {
	Brands     []string  `json:"brands"`
	ToolTypes  []string  `json:"tool_types"`
	Components []string  `json:"components"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Options collects the sorted distinct brands, tool types and components.
// Values that differ only in case are one option, since filters match
// without regard to case; the first spelling seen is kept.
// Outcomes are always the full set in display order.
func Options(records []Record) FilterOptions {
	brands := distinctFold{}
	types := distinctFold{}
	comps := distinctFold{}
	for _, r := range records {
		if r.Brand != nil {
			brands.add(*r.Brand)
		}
		if r.ToolType != nil {
			types.add(*r.ToolType)
		}
		for _, c := range r.Components {
			comps.add(c)
		}
	}
	return FilterOptions{
		Brands:     brands.sorted(),
		ToolTypes:  types.sorted(),
		Components: comps.sorted(),
		Outcomes:   Outcomes(),
	}
}

// distinctFold maps a case-folded value to its first spelling.
type distinctFold map[string]string

func (d distinctFold) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	key := fold(s)
	if _, ok := d[key]; !ok {
		d[key] = s
	}
}

func (d distinctFold) sorted() []string {
	out := make([]string, 0, len(d))
	for _, v := range d {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
