package annotate

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	fxcurrency "github.com/Veraticus/fxlens/internal/currency"
)

// FormatCurrency renders amount in code for the given locale, with no
// fraction digits for zero-decimal currencies and two otherwise. Codes the
// locale data does not know fall back to "<CODE> <amount>".
func FormatCurrency(amount float64, code string, tag language.Tag) string {
	decimals := fxcurrency.Decimals(code)

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.*f", code, decimals, amount)
	}

	p := message.NewPrinter(tag)
	symbol := p.Sprint(currency.NarrowSymbol(unit))
	value := p.Sprint(number.Decimal(amount,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals),
	))
	if symbol == "" {
		return fmt.Sprintf("%s %s", code, value)
	}
	if r, _ := utf8.DecodeLastRuneInString(symbol); unicode.IsLetter(r) {
		// "CHF 12.00", not "CHF12.00"
		return symbol + " " + value
	}
	return symbol + value
}
