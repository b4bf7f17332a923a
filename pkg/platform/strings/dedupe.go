// Package strings provides string manipulation utilities.
package strings

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold trims surrounding whitespace and applies Unicode case folding, producing
// a key suitable for case-insensitive comparison.
//
// Example:
//
//	Fold("  Ana SILVA ") // "ana silva"
func Fold(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	// cases.Caser is stateful; one per call keeps Fold safe for concurrent use.
	return cases.Fold().String(trimmed)
}

// EqualFold reports whether a and b are equal after Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// DedupeFold removes empty strings and values that are equal under Fold,
// trimming whitespace from each element. Order is preserved and the first
// spelling of each value wins.
//
// Example:
//
//	DedupeFold([]string{" SAP", "sap", "TruAM"})
//	// Returns: []string{"SAP", "TruAM"}
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		key := Fold(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
