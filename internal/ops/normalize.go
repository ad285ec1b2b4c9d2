package ops

import (
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// NormalizeOutput is the result of normalizing one component description.
type NormalizeOutput struct {
	Input      string   `json:"input"`
	Components []string `json:"components"`
	// Unmapped lists results that fell through to verbatim pass-through.
	Unmapped []string `json:"unmapped"`
}

// Normalize runs the component normalizer on each text.
func Normalize(texts []string) ([]NormalizeOutput, error) {
	if len(texts) == 0 {
		return nil, errors.NewInvalidRequest("text is required")
	}
	out := make([]NormalizeOutput, 0, len(texts))
	for _, t := range texts {
		comps := repair.NormalizeComponents(t)
		unmapped := []string{}
		for _, c := range comps {
			if !repair.IsStandardComponent(c) {
				unmapped = append(unmapped, c)
			}
		}
		out = append(out, NormalizeOutput{Input: t, Components: comps, Unmapped: unmapped})
	}
	return out, nil
}

// CategorizeOutput is the result of categorizing one failure reason.
type CategorizeOutput struct {
	Reason   *string                `json:"reason"`
	Category repair.FailureCategory `json:"category"`
}

// Categorize runs the failure categorizer. A nil reason is Unknown.
func Categorize(reason *string) CategorizeOutput {
	return CategorizeOutput{Reason: reason, Category: repair.CategorizeFailure(reason)}
}
