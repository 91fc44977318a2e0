// Package detect finds monetary amounts in unstructured text.
package detect

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/Veraticus/fxlens/internal/amount"
	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/model"
)

// Pattern is one detection rule.
type Pattern struct {
	Name          string
	Regex         string
	Kind          Kind
	CurrencyGroup int
	AmountGroup   int
	// RequireNonWordAfter rejects a match followed by an ASCII word character.
	RequireNonWordAfter bool
}

type compiledPattern struct {
	compiledRegex *regexp.Regexp
	Pattern
}

// Detector applies an ordered list of patterns to text.
type Detector struct {
	patterns []compiledPattern
}

var defaultDetector = MustNewDetector(DefaultPatterns())

// NewDetector compiles patterns, keeping their order as the priority order.
func NewDetector(patterns []Pattern) (*Detector, error) {
	compiled := make([]compiledPattern, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Name, err)
		}
		groups := re.NumSubexp()
		if p.CurrencyGroup < 1 || p.CurrencyGroup > groups || p.AmountGroup < 1 || p.AmountGroup > groups {
			return nil, fmt.Errorf("pattern %s: group index out of range (has %d groups)", p.Name, groups)
		}
		compiled = append(compiled, compiledPattern{
			Pattern:       p,
			compiledRegex: re,
		})
	}

	return &Detector{patterns: compiled}, nil
}

// MustNewDetector is like NewDetector but panics on an invalid pattern.
func MustNewDetector(patterns []Pattern) *Detector {
	d, err := NewDetector(patterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Default returns the detector built from DefaultPatterns.
func Default() *Detector {
	return defaultDetector
}

// Detect runs the default detector over text.
func Detect(text string) []model.Detection {
	return defaultDetector.Detect(text)
}

// Detect returns every accepted amount in text, sorted by start offset.
// Patterns are applied in priority order and a range claimed by an earlier
// match is never reused, so the result never contains overlapping ranges.
func (d *Detector) Detect(text string) []model.Detection {
	var results []model.Detection

	for _, p := range d.patterns {
		for _, loc := range p.matches(text) {
			start, end := loc[0], loc[1]

			if claimed(results, start, end) {
				continue
			}
			if IsLikelyFalsePositive(text, start, end) {
				continue
			}

			indicator := group(text, loc, p.CurrencyGroup)
			raw := group(text, loc, p.AmountGroup)

			code := indicator
			if p.Kind == KindSymbol {
				var err error
				if code, err = currency.LookupSymbol(indicator); err != nil {
					continue
				}
			}

			value, err := amount.Parse(raw, code)
			if err != nil {
				continue
			}

			results = append(results, model.Detection{
				MatchedText:  text[start:end],
				CurrencyCode: code,
				RawAmount:    raw,
				Amount:       value,
				Start:        start,
				End:          end,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Start < results[j].Start
	})

	return results
}

// matches returns all non-overlapping submatch locations of the pattern.
// It holds no scan state between calls.
func (p compiledPattern) matches(text string) [][]int {
	if !p.RequireNonWordAfter {
		return p.compiledRegex.FindAllStringSubmatchIndex(text, -1)
	}

	var out [][]int
	for pos := 0; pos < len(text); {
		loc := p.compiledRegex.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}

		if isWordByte(text, loc[1]) {
			// retry from the next rune, as a backtracking scan would
			_, size := utf8.DecodeRuneInString(text[loc[0]:])
			pos = loc[0] + size
			continue
		}

		out = append(out, loc)
		pos = loc[1]
	}
	return out
}

func group(text string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

func claimed(results []model.Detection, start, end int) bool {
	for _, r := range results {
		if r.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func isWordByte(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	c := text[i]
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
