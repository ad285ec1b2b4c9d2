// Package repair holds the repair record model and the rule tables that map
// free-text component and failure descriptions onto fixed taxonomies.
package repair

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the tri-state result of a repair.
type Outcome string

const (
	OutcomeSuccessful Outcome = "Successful"
	OutcomeFailed     Outcome = "Failed"
	OutcomePending    Outcome = "Pending"
)

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeSuccessful, OutcomeFailed, OutcomePending}
}

// ParseOutcome matches an outcome name case-insensitively.
func ParseOutcome(s string) (Outcome, bool) {
	for _, o := range Outcomes() {
		if strings.EqualFold(strings.TrimSpace(s), string(o)) {
			return o, true
		}
	}
	return "", false
}

// OutcomeOf derives the outcome from the stored successful flag.
func OutcomeOf(successful *bool) Outcome {
	switch {
	case successful == nil:
		return OutcomePending
	case *successful:
		return OutcomeSuccessful
	default:
		return OutcomeFailed
	}
}

// RawRecord is a repair record as written by the extraction step.
// Field names are the JSON contract with upstream producers.
type RawRecord struct {
	Brand         *string       `json:"brand"`
	ToolType      *string       `json:"tool_type"`
	Model         *string       `json:"model"`
	Problem       string        `json:"problem"`
	Component     *string       `json:"component,omitempty"`
	Components    ComponentList `json:"components,omitempty"`
	Successful    *bool         `json:"successful"`
	FailureReason *string       `json:"failure_reason"`
	VideoURL      string        `json:"video_url"`
	VideoTitle    string        `json:"video_title"`
}

// ComponentList is the current-format components field. On input it also
// accepts a bare string or null; blank entries are dropped.
type ComponentList []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *ComponentList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*c = nil
			return nil
		}
		*c = ComponentList{s}
		return nil
	}

	var items []*string
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("components must be a string or a list of strings: %w", err)
	}
	out := make(ComponentList, 0, len(items))
	for _, item := range items {
		if item != nil && strings.TrimSpace(*item) != "" {
			out = append(out, *item)
		}
	}
	*c = out
	return nil
}

// Record is a repair record with its derived fields computed.
type Record struct {
	// Seq is the 1-based position in the store. Records have no other identity.
	Seq int `json:"seq"`

	Brand         *string `json:"brand"`
	ToolType      *string `json:"tool_type"`
	Model         *string `json:"model"`
	Problem       string  `json:"problem"`
	FailureReason *string `json:"failure_reason"`
	VideoURL      string  `json:"video_url"`
	VideoTitle    string  `json:"video_title"`

	// Components is the normalized label list. Never nil.
	Components []string `json:"components"`

	Outcome Outcome `json:"outcome"`

	// FailureCategory is set only when Outcome is Failed.
	FailureCategory FailureCategory `json:"failure_category,omitempty"`
}

// Canonicalize resolves the legacy and current component shapes and derives
// outcome and failure category. seq is the record's store position.
func Canonicalize(raw RawRecord, seq int) Record {
	r := Record{
		Seq:           seq,
		Brand:         cleanOptional(raw.Brand),
		ToolType:      cleanOptional(raw.ToolType),
		Model:         cleanOptional(raw.Model),
		Problem:       strings.TrimSpace(raw.Problem),
		FailureReason: cleanOptional(raw.FailureReason),
		VideoURL:      strings.TrimSpace(raw.VideoURL),
		VideoTitle:    strings.TrimSpace(raw.VideoTitle),
		Outcome:       OutcomeOf(raw.Successful),
	}

	if len(raw.Components) > 0 {
		r.Components = normalizeList(raw.Components)
	} else if raw.Component != nil {
		r.Components = NormalizeComponents(*raw.Component)
	} else {
		r.Components = []string{}
	}

	if r.Outcome == OutcomeFailed {
		r.FailureCategory = CategorizeFailure(raw.FailureReason)
	}

	return r
}

// CanonicalizeAll canonicalizes raw records in store order (seq starts at 1).
func CanonicalizeAll(raws []RawRecord) []Record {
	out := make([]Record, len(raws))
	for i, raw := range raws {
		out[i] = Canonicalize(raw, i+1)
	}
	return out
}

// normalizeList runs every entry through the normalizer and merges the
// results, keeping first-seen order.
func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		for _, label := range NormalizeComponents(item) {
			if !seen[label] {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	return out
}

// cleanOptional trims s and maps blank to nil.
func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Deref returns *s or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
