package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "idgov/pkg/domain-errors"
	pstrings "idgov/pkg/platform/strings"
)

// SystemName identifies an identity partition: the authoritative HR feed or a
// target system such as "SAP" or "AD".
// Invariant: non-empty, at most MaxSystemNameLength runes, printable, trimmed.
//
// Usage: construct via ParseSystemName at trust boundaries (path params, CLI
// flags, CSV import). Partition names compare case-insensitively; use Key or
// Equal rather than ==.
type SystemName string

const (
	// HRSystem is the authoritative partition every target is compared against.
	HRSystem SystemName = "RH"
	// GlobalScope is the reserved dashboard name selecting every target system.
	GlobalScope SystemName = "Geral"

	MaxSystemNameLength = 64
)

// ParseSystemName constructs a SystemName from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, too long, not
// valid UTF-8, or contains control characters.
func ParseSystemName(s string) (SystemName, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "system name cannot be empty")
	}
	if !utf8.ValidString(trimmed) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "system name must be valid UTF-8")
	}
	if utf8.RuneCountInString(trimmed) > MaxSystemNameLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "system name too long")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "system name contains control characters")
		}
	}
	return SystemName(trimmed), nil
}

// Key returns the case-folded form used for partition lookups.
func (s SystemName) Key() string {
	return pstrings.Fold(string(s))
}

// Equal reports whether two names denote the same partition.
func (s SystemName) Equal(other SystemName) bool {
	return s.Key() == other.Key()
}

// IsHR reports whether s names the authoritative HR partition.
func (s SystemName) IsHR() bool {
	return s.Equal(HRSystem)
}

// IsGlobal reports whether s is the reserved all-systems scope name.
func (s SystemName) IsGlobal() bool {
	return s.Equal(GlobalScope)
}

func (s SystemName) String() string {
	return string(s)
}
