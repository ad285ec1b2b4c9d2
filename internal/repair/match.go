package repair

import (
	"strings"

	"golang.org/x/text/cases"
)

// rule maps a label to the keywords that select it.
type rule[L ~string] struct {
	label    L
	keywords []string
}

// fold case-folds text for keyword matching. Keywords are stored folded.
func fold(s string) string {
	return cases.Fold().String(s)
}

// firstMatch returns the first rule (table order) with a keyword contained in
// text, along with that keyword. text must already be folded.
func firstMatch[L ~string](rules []rule[L], text string) (L, string, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.label, kw, true
			}
		}
	}
	var zero L
	return zero, "", false
}
