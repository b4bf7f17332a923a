package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical columns an import file may carry. Any other header becomes a
// free-form attribute.
const (
	ColumnIdentityID = "id_user"
	ColumnName       = "name"
	ColumnEmail      = "email"
	ColumnCPF        = "cpf"
	ColumnStatus     = "status"
	ColumnUserType   = "user_type"
	ColumnProfile    = "profile"
	ColumnLastLogin  = "last_login"
)

// headerAliases maps normalized header names to canonical columns.
var headerAliases = map[string]string{
	"id_user":       ColumnIdentityID,
	"id_usuario":    ColumnIdentityID,
	"identity_id":   ColumnIdentityID,
	"user_id":       ColumnIdentityID,
	"nome":          ColumnName,
	"name":          ColumnName,
	"nome_completo": ColumnName,
	"email":         ColumnEmail,
	"e_mail":        ColumnEmail,
	"cpf":           ColumnCPF,
	"status":        ColumnStatus,
	"situacao":      ColumnStatus,
	"tipo_usuario":  ColumnUserType,
	"user_type":     ColumnUserType,
	"tipo":          ColumnUserType,
	"perfil":        ColumnProfile,
	"profile":       ColumnProfile,
	"last_login":    ColumnLastLogin,
	"ultimo_login":  ColumnLastLogin,
	"ultimo_acesso": ColumnLastLogin,
}

// NormalizeHeader lowercases, strips accents, and joins words with
// underscores, so "Último Acesso" and "ultimo-acesso" both read ultimo_acesso.
func NormalizeHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(h))
	if err != nil {
		stripped = strings.TrimSpace(h)
	}
	stripped = strings.ToLower(stripped)
	return strings.Join(strings.FieldsFunc(stripped, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	}), "_")
}

// canonicalColumn returns the canonical column for a raw header, or "" for a
// free-form attribute.
func canonicalColumn(h string) string {
	return headerAliases[NormalizeHeader(h)]
}
