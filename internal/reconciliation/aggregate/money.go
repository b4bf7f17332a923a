package aggregate

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MoneyFormatter renders amounts in a locale's currency, e.g. "R$ 58.000,00"
// for pt-BR. Safe for concurrent use.
type MoneyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewMoneyFormatter builds a formatter for a BCP 47 locale. Unknown locales
// fall back to pt-BR.
func NewMoneyFormatter(locale string) *MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	unit, conf := currency.FromTag(tag)
	if conf == language.No {
		tag = language.BrazilianPortuguese
		unit = currency.BRL
	}
	return &MoneyFormatter{
		printer: message.NewPrinter(tag),
		unit:    unit,
	}
}

// Format renders d rounded to the currency's standard scale.
func (m *MoneyFormatter) Format(d decimal.Decimal) string {
	return m.printer.Sprint(currency.Symbol(m.unit.Amount(d.InexactFloat64())))
}
