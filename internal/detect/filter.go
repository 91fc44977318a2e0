package detect

import (
	"regexp"
	"unicode/utf8"
)

// Context window sizes, in runes.
const (
	contextWindow = 20
	dateWindow    = 5
)

var (
	versionShape = regexp.MustCompile(`v?\d+\.\d+\.\d+`)
	cssLength    = regexp.MustCompile(`\d+(?:px|em|rem|vh|vw|pt|cm|mm|%)\b`)
	dateBefore   = regexp.MustCompile(`\d[/\-]$`)
	dateAfter    = regexp.MustCompile(`^[/\-]\d`)
)

// IsLikelyFalsePositive applies best-effort heuristics to a candidate range
// [start, end) of text. It rejects candidates whose surroundings contain a
// dotted version number or a CSS length, and candidates glued to a date
// separator. The heuristics can reject real prices and miss non-prices.
func IsLikelyFalsePositive(text string, start, end int) bool {
	context := text[runesBack(text, start, contextWindow):runesForward(text, end, contextWindow)]

	if versionShape.MatchString(context) {
		return true
	}
	if cssLength.MatchString(context) {
		return true
	}

	before := text[runesBack(text, start, dateWindow):start]
	after := text[end:runesForward(text, end, dateWindow)]

	return dateBefore.MatchString(before) || dateAfter.MatchString(after)
}

// runesBack returns the byte index n runes before i.
func runesBack(text string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
	}
	return i
}

// runesForward returns the byte index n runes after i.
func runesForward(text string, i, n int) int {
	for ; n > 0 && i < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}
