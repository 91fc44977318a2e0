// Package amount parses raw numeric price text whose thousands and decimal
// separators depend on the regional convention of the page.
package amount

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/fxlens/internal/currency"
)

var (
	// ErrUnparsable is returned when no number can be read from the input.
	ErrUnparsable = errors.New("unparsable amount")
	// ErrNonPositive is returned for zero or negative amounts.
	ErrNonPositive = errors.New("amount must be positive")
)

// leadingNumber mirrors a lenient float parse: it reads the longest numeric
// prefix and ignores anything after it.
var leadingNumber = regexp.MustCompile(`^(?:\d+\.?\d*|\.\d+)`)

// Parse converts raw amount text to a float using the decimal convention of
// currencyCode.
//
// Separator policy, in priority order:
//  1. both ',' and '.': the rightmost one is the decimal point
//  2. only ',': thousands for zero-decimal currencies, or when exactly three
//     digits follow the last comma; otherwise the decimal point
//  3. only '.': thousands only for zero-decimal currencies with exactly three
//     trailing digits; otherwise the decimal point
//  4. neither: plain digits
func Parse(raw, currencyCode string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	zeroDecimal := currency.IsZeroDecimal(currencyCode)
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma != -1 && lastDot != -1:
		if lastComma > lastDot {
			// 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma != -1:
		if zeroDecimal || len(cleaned)-lastComma-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case lastDot != -1:
		if zeroDecimal && len(cleaned)-lastDot-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	number := leadingNumber.FindString(cleaned)
	if number == "" {
		return 0, ErrUnparsable
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, ErrUnparsable
	}
	if value <= 0 {
		return 0, ErrNonPositive
	}

	return value, nil
}
