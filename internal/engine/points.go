package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/page"
)

const (
	pointClimb   = 3
	maxPointText = 80
)

var (
	pointKeywords = regexp.MustCompile(`ポイント|獲得|エントリー|\dpt[\s(]|\dpt$`)

	loyaltySelector = page.MustSelector(strings.Join([]string{
		`#loyalty-points-offer`,
		`[class*="loyaltyPoints"]`,
		`[class*="LoyaltyPoints"]`,
		`[class*="loyalty-points"]`,
		`[id*="loyaltyPoints"]`,
		`[id*="loyalty-points"]`,
	}, ","))
)

// hidePoints hides loyalty point badges under root: small containers of
// point keyword text, and elements matching the loyalty selectors.
func (c *Controller) hidePoints(root *html.Node) int {
	if !page.IsElement(root) {
		return 0
	}

	var toHide []*html.Node
	seen := make(map[*html.Node]bool)
	add := func(el *html.Node) {
		if el != nil && !seen[el] {
			seen[el] = true
			toHide = append(toHide, el)
		}
	}

	for _, n := range page.TextNodes(root) {
		if !pointKeywords.MatchString(strings.TrimSpace(n.Data)) {
			continue
		}
		el := page.ParentElement(n)
		if el == nil || isDocumentShell(el) {
			continue
		}
		for i := 0; i < pointClimb; i++ {
			parent := page.ParentElement(el)
			if parent == nil || isDocumentShell(parent) || renderedLen(parent) > maxPointText {
				break
			}
			el = parent
		}
		if renderedLen(el) <= maxPointText {
			add(el)
		}
	}

	if page.Matches(root, loyaltySelector) && !isDocumentShell(root) {
		add(root)
	}
	for _, el := range page.Select(root, loyaltySelector) {
		add(el)
	}

	hidden := 0
	for _, el := range toHide {
		if c.annotator.Hide(el) {
			hidden++
		}
	}
	return hidden
}

// isDocumentShell reports whether el is html or body, which are never hidden.
func isDocumentShell(el *html.Node) bool {
	return el.Data == "html" || el.Data == "body"
}

func renderedLen(el *html.Node) int {
	return utf8.RuneCountInString(strings.TrimSpace(page.RenderedText(el)))
}
