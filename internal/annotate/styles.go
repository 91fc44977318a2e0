package annotate

import (
	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/page"
)

// StyleElementID identifies the injected presentation stylesheet.
const StyleElementID = "fxlens-styles"

// Stylesheet renders attribute-mode values with ::after and honours the
// view flags on body.
const Stylesheet = `.fxlens-amount .fxlens-converted { margin-left: 0.25em; opacity: 0.85; }
.fxlens-amount .fxlens-converted::before { content: "("; }
.fxlens-amount .fxlens-converted::after { content: ")"; }
.fxlens-original[data-currency-converted]::after { content: attr(data-fxlens-converted); opacity: 0.85; }
body[data-fxlens-hide-original] .fxlens-amount .fxlens-original { display: none; }
body[data-fxlens-hide-original] .fxlens-amount .fxlens-converted { margin-left: 0; }
body[data-fxlens-hide-original] .fxlens-amount .fxlens-converted::before,
body[data-fxlens-hide-original] .fxlens-amount .fxlens-converted::after { content: none; }
body[data-fxlens-hide-original] .fxlens-original[data-currency-converted] { font-size: 0; }
body[data-fxlens-hide-original] .fxlens-original[data-currency-converted]::after { content: attr(data-fxlens-converted-bare); font-size: 1rem; }
body[data-fxlens-hidden] .fxlens-amount .fxlens-converted { display: none; }
body[data-fxlens-hidden] .fxlens-amount .fxlens-original { display: inline; }
body[data-fxlens-hidden] .fxlens-original[data-currency-converted]::after { content: none; }
body[data-fxlens-hidden] .fxlens-original[data-currency-converted] { font-size: inherit; }
`

var styleSelector = page.MustSelector("style#" + StyleElementID)

// InjectStyles adds the stylesheet to the document head once.
func InjectStyles(doc *page.Document) error {
	if len(page.Select(doc.Root(), styleSelector)) > 0 {
		return nil
	}
	head := doc.Selection().Find("head")
	var parent *html.Node
	if head.Length() > 0 {
		parent = head.Nodes[0]
	} else {
		parent = doc.Body()
	}
	return doc.AppendHTML(parent, `<style id="`+StyleElementID+`">`+Stylesheet+`</style>`)
}

// RemoveStyles removes every injected stylesheet and returns how many were found.
func RemoveStyles(doc *page.Document) int {
	found := page.Select(doc.Root(), styleSelector)
	for _, n := range found {
		if n.Parent != nil {
			doc.RemoveChild(n.Parent, n)
		}
	}
	return len(found)
}
