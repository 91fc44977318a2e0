// Package classify selects the regions of a document that are worth scanning
// for prices.
package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/page"
)

const (
	// maxClimb bounds how many ancestors the split-node strategy inspects.
	maxClimb = 4
	// maxSplitText is the longest rendered text accepted for a split-node region.
	maxSplitText = 200
)

// skipTags are containers whose text is never scanned.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
	"input":    true,
	"select":   true,
	"code":     true,
	"pre":      true,
	"kbd":      true,
	"samp":     true,
	"svg":      true,
	"math":     true,
	"noscript": true,
	"template": true,
}

var (
	// priceSelector matches elements that commonly hold a complete price.
	priceSelector = page.MustSelector(strings.Join([]string{
		`.a-price`,
		`[class*="price"]`,
		`[class*="Price"]`,
		`[class*="cost"]`,
		`[class*="Cost"]`,
		`[class*="amount"]`,
		`[class*="Amount"]`,
		`[data-price]`,
		`[itemprop="price"]`,
	}, ","))

	// offscreenSelector matches screen-reader copies and split price widgets
	// that the merged-element strategy handles as a whole.
	offscreenSelector = page.MustSelector(`.a-offscreen, .a-price`)
)

// Marks answers whether a node has already been annotated.
type Marks interface {
	// IsAnnotated reports whether n or one of its ancestors is annotated.
	IsAnnotated(n *html.Node) bool
	// ContainsAnnotated reports whether an annotated node lies strictly under n.
	ContainsAnnotated(n *html.Node) bool
}

// Regions is the output of one classification pass.
type Regions struct {
	// Text holds text nodes scanned as a whole unit.
	Text []*html.Node
	// Merged holds price elements in document order.
	Merged []*html.Node
	// Split holds ancestors of bare currency symbols.
	Split []*html.Node
}

// Candidates reports whether any text unit or merged element was found.
func (r Regions) Candidates() bool {
	return len(r.Text) > 0 || len(r.Merged) > 0
}

// Classifier implements the three region strategies.
type Classifier struct {
	marks Marks
}

// New creates a Classifier consulting marks for already annotated regions.
func New(marks Marks) *Classifier {
	return &Classifier{marks: marks}
}

// Classify runs all three strategies under root.
func (c *Classifier) Classify(root *html.Node) Regions {
	return Regions{
		Text:   c.TextUnits(root),
		Merged: c.PriceElements(root),
		Split:  c.SplitElements(root),
	}
}

// TextUnits returns text nodes under root that pass the currency pre-filter.
func (c *Classifier) TextUnits(root *html.Node) []*html.Node {
	return lo.Filter(page.TextNodes(root), func(n *html.Node, _ int) bool {
		if strings.TrimSpace(n.Data) == "" {
			return false
		}
		if c.skipText(n) {
			return false
		}
		return currency.QuickTest(n.Data)
	})
}

// PriceElements returns elements matching the price selectors, root included,
// whose rendered text passes the pre-filter and which are neither annotated
// nor hold an annotated descendant.
func (c *Classifier) PriceElements(root *html.Node) []*html.Node {
	if !page.IsElement(root) {
		return nil
	}

	var candidates []*html.Node
	if page.Matches(root, priceSelector) {
		candidates = append(candidates, root)
	}
	candidates = append(candidates, page.Select(root, priceSelector)...)

	return lo.Filter(candidates, func(el *html.Node, _ int) bool {
		if c.marks.IsAnnotated(el) || c.marks.ContainsAnnotated(el) {
			return false
		}
		if inSkippedContainer(el) {
			return false
		}
		text := page.RenderedText(el)
		return strings.TrimSpace(text) != "" && currency.QuickTest(text)
	})
}

// SplitElements finds text nodes that are a bare currency symbol and, for
// each, the innermost ancestor within maxClimb levels whose rendered text
// holds both a digit and a currency indicator.
func (c *Classifier) SplitElements(root *html.Node) []*html.Node {
	if !page.IsElement(root) {
		return nil
	}

	var results []*html.Node
	seen := make(map[*html.Node]bool)

	for _, n := range page.TextNodes(root) {
		if c.skipText(n) || !currency.IsSymbolOnly(strings.TrimSpace(n.Data)) {
			continue
		}

		el := page.ParentElement(n)
		for depth := 0; el != nil && depth < maxClimb; depth++ {
			if seen[el] || c.marks.IsAnnotated(el) || c.marks.ContainsAnnotated(el) || skipTags[el.Data] {
				break
			}

			combined := strings.TrimSpace(page.RenderedText(el))
			if utf8.RuneCountInString(combined) > maxSplitText {
				break
			}
			if currency.HasAmountAndIndicator(combined) {
				seen[el] = true
				results = append(results, el)
				break
			}
			el = page.ParentElement(el)
		}
	}

	return results
}

// skipText reports whether a text node must not be scanned as a unit.
func (c *Classifier) skipText(n *html.Node) bool {
	parent := page.ParentElement(n)
	if parent == nil {
		return true
	}
	if inSkippedContainer(parent) || isContentEditable(parent) {
		return true
	}
	if c.marks.IsAnnotated(parent) {
		return true
	}
	return page.Closest(parent, offscreenSelector) != nil
}

func inSkippedContainer(el *html.Node) bool {
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && skipTags[cur.Data] {
			return true
		}
	}
	return false
}

func isContentEditable(el *html.Node) bool {
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if v, ok := page.Attr(cur, "contenteditable"); ok {
			return !strings.EqualFold(v, "false")
		}
	}
	return false
}
