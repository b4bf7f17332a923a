package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	pstrings "idgov/pkg/platform/strings"
)

// normalizeText folds a name or email for comparison. NFC first, so composed
// and decomposed accents compare equal.
func normalizeText(s string) string {
	return pstrings.Fold(norm.NFC.String(s))
}

// digitsOnly strips every non-digit rune, so formatted and bare CPFs compare equal.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// textDiffers is true only when both sides carry a value and the values differ.
func textDiffers(a, b string) bool {
	na, nb := normalizeText(a), normalizeText(b)
	return na != "" && nb != "" && na != nb
}

func cpfDiffers(a, b string) bool {
	da, db := digitsOnly(a), digitsOnly(b)
	return da != "" && db != "" && da != db
}
