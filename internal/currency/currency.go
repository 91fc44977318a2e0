// Package currency holds the static currency tables used by detection and formatting.
package currency

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnknownIndicator is returned when a symbol or suffix has no ISO code mapping.
var ErrUnknownIndicator = errors.New("unknown currency indicator")

// Info describes a supported currency.
type Info struct {
	Code string
	Name string
}

// supported is ordered; the order is used for pickers and random selection.
var supported = []Info{
	{Code: "USD", Name: "US Dollar"},
	{Code: "EUR", Name: "Euro"},
	{Code: "GBP", Name: "British Pound"},
	{Code: "JPY", Name: "Japanese Yen"},
	{Code: "CNY", Name: "Chinese Yuan"},
	{Code: "AUD", Name: "Australian Dollar"},
	{Code: "CAD", Name: "Canadian Dollar"},
	{Code: "CHF", Name: "Swiss Franc"},
	{Code: "HKD", Name: "Hong Kong Dollar"},
	{Code: "SGD", Name: "Singapore Dollar"},
	{Code: "SEK", Name: "Swedish Krona"},
	{Code: "NOK", Name: "Norwegian Krone"},
	{Code: "DKK", Name: "Danish Krone"},
	{Code: "NZD", Name: "New Zealand Dollar"},
	{Code: "MXN", Name: "Mexican Peso"},
	{Code: "BRL", Name: "Brazilian Real"},
	{Code: "INR", Name: "Indian Rupee"},
	{Code: "KRW", Name: "South Korean Won"},
	{Code: "THB", Name: "Thai Baht"},
	{Code: "IDR", Name: "Indonesian Rupiah"},
	{Code: "MYR", Name: "Malaysian Ringgit"},
	{Code: "PHP", Name: "Philippine Peso"},
	{Code: "PLN", Name: "Polish Zloty"},
	{Code: "CZK", Name: "Czech Koruna"},
	{Code: "HUF", Name: "Hungarian Forint"},
	{Code: "RON", Name: "Romanian Leu"},
	{Code: "TRY", Name: "Turkish Lira"},
	{Code: "ZAR", Name: "South African Rand"},
	{Code: "ILS", Name: "Israeli Shekel"},
	{Code: "ISK", Name: "Icelandic Krona"},
	{Code: "BGN", Name: "Bulgarian Lev"},
}

// symbols maps a currency symbol or suffix to its ISO code.
// The slice order is the scan order used by GuessFromText; R$ precedes $ so
// Brazilian prices are not reported as dollars.
var symbols = []struct {
	Symbol string
	Code   string
}{
	{"R$", "BRL"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"￥", "JPY"},
	{"₹", "INR"},
	{"₩", "KRW"},
	{"円", "JPY"},
	{"元", "CNY"},
	{"kr", "SEK"},
	{"Fr", "CHF"},
	{"zł", "PLN"},
	{"Kč", "CZK"},
	{"Ft", "HUF"},
}

var zeroDecimal = map[string]bool{
	"JPY": true,
	"KRW": true,
	"ISK": true,
	"HUF": true,
}

var (
	symbolToCode = func() map[string]string {
		m := make(map[string]string, len(symbols))
		for _, s := range symbols {
			m[s.Symbol] = s.Code
		}
		return m
	}()

	supportedSet = func() map[string]bool {
		m := make(map[string]bool, len(supported))
		for _, c := range supported {
			m[c.Code] = true
		}
		return m
	}()
)

// Pattern fragments shared with the detector.
const (
	// SingleSymbolClass matches one single-character prefix symbol.
	SingleSymbolClass = `[$€£¥￥₹₩]`
	// SuffixAlternation matches a symbol written after the amount.
	SuffixAlternation = `円|元|kr|Kč|Ft|zł|Fr`
)

var (
	quickTest = regexp.MustCompile(
		`[$€£¥￥₹₩円元]|R\$|(?:` + CodesPattern() + `)\s?\d|\d\s?(?:` + CodesPattern() + `)\b|\d\s?(?:kr|Kč|Ft|zł|Fr|円|元)`)

	symbolOnly = regexp.MustCompile(`^[$€£¥￥₹₩円元]$|^R\$$|^kr$|^Kč$|^Ft$|^zł$|^Fr$`)

	amountAndIndicator = regexp.MustCompile(
		`\d.*[$€£¥￥₹₩円元]|[$€£¥￥₹₩円元].*\d|R\$.*\d|\d.*(?:kr|Kč|Ft|zł|Fr)`)
)

// Supported returns every supported currency in display order.
func Supported() []Info {
	out := make([]Info, len(supported))
	copy(out, supported)
	return out
}

// Codes returns the supported ISO codes in display order.
func Codes() []string {
	codes := make([]string, len(supported))
	for i, c := range supported {
		codes[i] = c.Code
	}
	return codes
}

// CodesPattern returns the supported codes joined as a regexp alternation.
func CodesPattern() string {
	return strings.Join(Codes(), "|")
}

// IsSupported reports whether code is one of the supported ISO codes.
func IsSupported(code string) bool {
	return supportedSet[code]
}

// Name returns the English name of a supported currency.
func Name(code string) string {
	for _, c := range supported {
		if c.Code == code {
			return c.Name
		}
	}
	return code
}

// IsZeroDecimal reports whether code is displayed without fractional digits.
func IsZeroDecimal(code string) bool {
	return zeroDecimal[code]
}

// Decimals returns the number of fraction digits used when displaying code.
func Decimals(code string) int {
	if IsZeroDecimal(code) {
		return 0
	}
	return 2
}

// LookupSymbol resolves a symbol or suffix to its ISO code.
func LookupSymbol(symbol string) (string, error) {
	code, ok := symbolToCode[symbol]
	if !ok {
		return "", ErrUnknownIndicator
	}
	return code, nil
}

// QuickTest is the cheap pre-filter: it reports whether text may contain a price.
func QuickTest(text string) bool {
	return quickTest.MatchString(text)
}

// IsSymbolOnly reports whether text is exactly a bare currency symbol or suffix.
func IsSymbolOnly(text string) bool {
	return symbolOnly.MatchString(text)
}

// HasAmountAndIndicator reports whether text holds both a digit and a currency symbol.
func HasAmountAndIndicator(text string) bool {
	return amountAndIndicator.MatchString(text)
}

// GuessFromText returns the code of the first known symbol contained in text.
func GuessFromText(text string) (string, bool) {
	for _, s := range symbols {
		if strings.Contains(text, s.Symbol) {
			return s.Code, true
		}
	}
	return "", false
}
