package repair

import (
	"regexp"
	"strings"
)

// componentRules is the component taxonomy. Order is precedence: the first
// rule with a matching keyword wins, even over a longer keyword further down.
var componentRules = []rule[string]{
	{"Motor Brushes", []string{
		"motor brushes",
		"brush holder",
		"brush spring",
		"motor windings and brushes",
		"motor brushes and",
		"brushes",
	}},
	{"Armature", []string{"armature"}},
	{"Battery", []string{"battery", "lithium ion cells"}},
	{"Power Cord", []string{"power cord", "power cable", "power wire", "cable guard"}},
	{"Controller / Circuit Board", []string{
		"circuit board",
		"controller",
		"control board",
		"speed controller",
		"power supply board",
		"selector switch board",
		"rotary encoder",
		"filter capacitor",
		"internal electronics",
		"capacitor",
	}},
	{"Switch", []string{"switch", "trigger"}},
	{"Motor", []string{"motor", "field coil", "field connection", "field", "motor/coil"}},
	{"Chuck", []string{"chuck", "collet", "bit holder"}},
	{"Bearing", []string{"bearing"}},
	{"Tool Holder", []string{
		"tool holder",
		"blade clamp",
		"blade holder",
		"blade lock",
		"blade mounting",
		"blade installation",
		"sds tool holder",
	}},
	{"Gearbox / Gears", []string{"gearbox", "gear", "clutch", "reduction gear"}},
	{"Housing / Case", []string{
		"housing",
		"case ",
		"base/guard",
		"base adjustment",
		"plastic cover",
		"rubber cap",
		"rubber front",
		"mounting bracket",
	}},
	{"Anvil", []string{"anvil"}},
	{"Belt / Drive", []string{"belt", "drive pin", "drive belt"}},
	{"Piston / Hammer Mechanism", []string{"piston", "hammer mechanism", "impact bolt", "connecting rod"}},
	{"Spring", []string{"spring", "lifter spring"}},
	{"Nail Gun Mechanism", []string{"nail", "firing pin", "magazine"}},
	{"Fan", []string{"fan"}},
	{"Wiring / Connectors", []string{"wiring", "connectors", "terminals", "cable,"}},
	{"O-Ring / Seal", []string{"o-ring", "gasket"}},
}

// componentDelims splits a multi-component description.
var componentDelims = regexp.MustCompile(`[,/]| and `)

var standardComponents = func() map[string]bool {
	m := make(map[string]bool, len(componentRules))
	for _, r := range componentRules {
		m[r.label] = true
	}
	return m
}()

// ComponentLabels returns the standardized labels in precedence order.
func ComponentLabels() []string {
	labels := make([]string, len(componentRules))
	for i, r := range componentRules {
		labels[i] = r.label
	}
	return labels
}

// IsStandardComponent reports whether label belongs to the taxonomy.
func IsStandardComponent(label string) bool {
	return standardComponents[label]
}

// MatchComponent maps a single fragment to a standardized label.
func MatchComponent(fragment string) (string, bool) {
	label, _, ok := firstMatch(componentRules, strings.TrimSpace(fold(fragment)))
	return label, ok
}

// NormalizeComponents maps a free-text component description to an ordered,
// duplicate-free list of standardized labels.
//
// The whole string is matched first so multi-word keywords survive intact. That
// match is final when the text has no delimiter, or when the matched keyword
// itself spans a delimiter ("motor windings and brushes"). Otherwise each
// delimited fragment is matched on its own. Text that matches nothing is
// returned verbatim as a single label. Blank input yields an empty list.
func NormalizeComponents(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []string{}
	}

	text := fold(trimmed)
	whole, kw, ok := firstMatch(componentRules, text)
	if ok && (!componentDelims.MatchString(text) || componentDelims.MatchString(kw)) {
		return []string{whole}
	}

	var matched []string
	seen := make(map[string]bool)
	for _, part := range componentDelims.Split(text, -1) {
		label, _, found := firstMatch(componentRules, strings.TrimSpace(part))
		if found && !seen[label] {
			seen[label] = true
			matched = append(matched, label)
		}
	}

	switch {
	case len(matched) > 0:
		return matched
	case ok:
		return []string{whole}
	default:
		return []string{trimmed}
	}
}
