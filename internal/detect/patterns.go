package detect

import (
	"github.com/Veraticus/fxlens/internal/currency"
)

// Kind tells how the currency group of a pattern is resolved.
type Kind string

const (
	// KindCode patterns capture an ISO code directly.
	KindCode Kind = "code"
	// KindSymbol patterns capture a symbol or suffix looked up in the lexicon.
	KindSymbol Kind = "symbol"
)

const (
	// space also accepts the no-break spaces used as group separators.
	space = `[\s\x{00A0}\x{2009}\x{202F}]`
	// number is digits with optional grouping and up to two decimals.
	number = `\d+(?:[,.\s\x{00A0}\x{2009}\x{202F}]\d{3})*(?:[.,]\d{1,2})?`
)

// DefaultPatterns returns the detection patterns in priority order.
// Earlier patterns claim a range of text before later ones.
func DefaultPatterns() []Pattern {
	codes := currency.CodesPattern()

	return []Pattern{
		{
			// "USD 1,000.00", "USD1,000"
			Name:          "code-prefix",
			Regex:         `\b(` + codes + `)` + space + `?(` + number + `)\b`,
			CurrencyGroup: 1,
			AmountGroup:   2,
			Kind:          KindCode,
		},
		{
			// "1,000.00 USD"
			Name:          "code-suffix",
			Regex:         `\b(` + number + `)` + space + `?(` + codes + `)\b`,
			CurrencyGroup: 2,
			AmountGroup:   1,
			Kind:          KindCode,
		},
		{
			// "R$100"
			Name:          "multi-symbol-prefix",
			Regex:         `(R\$)` + space + `?(` + number + `)`,
			CurrencyGroup: 1,
			AmountGroup:   2,
			Kind:          KindSymbol,
		},
		{
			// "$100", "€50", "¥10,000"
			Name:          "symbol-prefix",
			Regex:         `(` + currency.SingleSymbolClass + `)` + space + `?(` + number + `)`,
			CurrencyGroup: 1,
			AmountGroup:   2,
			Kind:          KindSymbol,
		},
		{
			// "1000円", "500元", "199 kr"; the suffix must not run into a word
			Name:                "suffix-symbol",
			Regex:               `(` + number + `)` + space + `?(` + currency.SuffixAlternation + `)`,
			CurrencyGroup:       2,
			AmountGroup:         1,
			Kind:                KindSymbol,
			RequireNonWordAfter: true,
		},
	}
}
