package todo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle trims surrounding whitespace and applies NFC so that
// visually identical titles compare equal regardless of client encoding.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// ValidateTitle returns the normalized title or a ValidationError if it is empty.
func ValidateTitle(title string) (string, error) {
	t := NormalizeTitle(title)
	if t == "" {
		return "", NewValidationError("title", "must not be empty")
	}
	return t, nil
}

// fold maps s to its case-folded NFC form. A new Caser is built per call
// because cases.Caser is stateful and not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// MatchesTitle reports whether title contains substr, ignoring case.
// An empty substr matches every title.
func MatchesTitle(title, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(fold(title), fold(substr))
}

// Filter returns the items whose title contains substr, preserving order.
func Filter(items []Item, substr string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if MatchesTitle(it.Title, substr) {
			out = append(out, it)
		}
	}
	return out
}
