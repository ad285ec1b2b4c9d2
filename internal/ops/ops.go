package ops

import (
	"strings"

	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// FilterInput is the user-facing form of repair.Filter. Outcomes are
// parsed case-insensitively.
type FilterInput struct {
	Brands     []string `json:"brands,omitempty"`
	ToolTypes  []string `json:"tool_types,omitempty"`
	Components []string `json:"components,omitempty"`
	Outcomes   []string `json:"outcomes,omitempty"`
}

// ToFilter validates the input and drops blank values.
func (in FilterInput) ToFilter() (repair.Filter, error) {
	f := repair.Filter{
		Brands:     nonBlank(in.Brands),
		ToolTypes:  nonBlank(in.ToolTypes),
		Components: nonBlank(in.Components),
	}
	for _, s := range nonBlank(in.Outcomes) {
		o, ok := repair.ParseOutcome(s)
		if !ok {
			return repair.Filter{}, errors.NewInvalidRequest("outcome must be one of: Successful, Failed, Pending")
		}
		f.Outcomes = append(f.Outcomes, o)
	}
	return f, nil
}

// paginate clamps limit/offset and returns the page bounds.
func paginate(total, limit, offset int) (Pagination, int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = max(offset, 0)

	start := min(offset, total)
	end := min(start+limit, total)
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}, start, end
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
