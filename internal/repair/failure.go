package repair

import "strings"

// FailureCategory is the root-cause bucket of a failed repair.
type FailureCategory string

const (
	CategoryNotEconomical    FailureCategory = "Not Economical"
	CategoryWaterCorrosion   FailureCategory = "Water/Corrosion"
	CategoryPartsUnavailable FailureCategory = "Parts Unavailable"
	CategorySevereDamage     FailureCategory = "Severe Damage"
	CategoryComponentFailure FailureCategory = "Component Failure"
	CategoryOther            FailureCategory = "Other"
	CategoryUnknown          FailureCategory = "Unknown"
)

// FailureCategories lists every category in rule priority order, followed by
// the two fallbacks.
func FailureCategories() []FailureCategory {
	out := make([]FailureCategory, 0, len(failureRules)+2)
	for _, r := range failureRules {
		out = append(out, r.label)
	}
	return append(out, CategoryOther, CategoryUnknown)
}

// ParseFailureCategory matches a category name case-insensitively.
func ParseFailureCategory(s string) (FailureCategory, bool) {
	for _, c := range FailureCategories() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// failureRules are checked in order. Economic reasons come first so a reason
// like "burnt board, not worth fixing" is Not Economical.
var failureRules = []rule[FailureCategory]{
	{CategoryNotEconomical, []string{
		"not econom",
		"uneconom",
		"not cost effective",
		"cost effective",
		"not worth",
		"too expensive",
		"exceed tool value",
		"exceed value",
		"cost more than",
		"costs more than",
		"cost nearly",
		"costs nearly",
		"costs as much",
		"cost as much",
		"cost equals",
		"costs equal",
		"making repair",
		"not viable",
	}},
	{CategoryWaterCorrosion, []string{"water", "corrosion", "acid", "rust"}},
	{CategoryPartsUnavailable, []string{
		"not available",
		"no replacement",
		"not in stock",
		"need to be ordered",
		"needed to be ordered",
		"no longer available",
		"obsolete",
		"could not find",
		"did not have",
		"wrong size",
		"did not fit",
	}},
	{CategorySevereDamage, []string{
		"burnt",
		"burned",
		"burn damage",
		"melted",
		"destroyed",
		"beyond repair",
		"shorted out",
		"completely failed",
		"severe",
		"trauma",
	}},
	{CategoryComponentFailure, []string{
		"circuit board",
		"controller",
		"switch failure",
		"motor failure",
		"broken wires",
		"faulty",
		"cells",
		"battery",
		"board fail",
	}},
}

// CategorizeFailure assigns a failure reason to exactly one category.
// A missing reason is Unknown; any present reason matching no rule,
// blank included, is Other.
func CategorizeFailure(reason *string) FailureCategory {
	if reason == nil {
		return CategoryUnknown
	}
	text := strings.TrimSpace(fold(*reason))
	if c, _, ok := firstMatch(failureRules, text); ok {
		return c
	}
	return CategoryOther
}

// CategorizeFailureText is CategorizeFailure for a plain string.
func CategorizeFailureText(reason string) FailureCategory {
	return CategorizeFailure(&reason)
}
