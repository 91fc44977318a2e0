package annotate

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/page"
)

var (
	convertedSelector   = page.MustSelector("[" + AttrConverted + "]")
	originalSelector    = page.MustSelector("." + ClassOriginal)
	pointHiddenSelector = page.MustSelector("[" + AttrPointHidden + "]")
)

// Hide hides el without removing it and records its previous style.
// It reports false when el is already hidden.
func (a *Annotator) Hide(el *html.Node) bool {
	if !page.IsElement(el) || a.reg.IsHidden(el) || page.HasAttr(el, AttrPointHidden) {
		return false
	}

	style, hadStyle := page.Attr(el, "style")
	a.doc.SetAttr(el, AttrPointHidden, "true")
	a.doc.SetAttr(el, "style", addDeclaration(style, hiddenDeclaration))
	a.reg.addHidden(&hiddenRecord{node: el, style: style, hadStyle: hadStyle})
	return true
}

// ShowAll reverses every Hide, including stale markers from earlier runs,
// and returns how many elements became visible again.
func (a *Annotator) ShowAll() int {
	shown := 0
	for _, rec := range a.reg.drainHidden() {
		a.doc.RemoveAttr(rec.node, AttrPointHidden)
		if rec.hadStyle {
			a.doc.SetAttr(rec.node, "style", rec.style)
		} else {
			a.doc.RemoveAttr(rec.node, "style")
		}
		shown++
	}

	for _, el := range page.Select(a.doc.Root(), pointHiddenSelector) {
		a.doc.RemoveAttr(el, AttrPointHidden)
		if style, ok := page.Attr(el, "style"); ok {
			if rest := removeDeclaration(style, hiddenDeclaration); rest != "" {
				a.doc.SetAttr(el, "style", rest)
			} else {
				a.doc.RemoveAttr(el, "style")
			}
		}
		shown++
	}
	return shown
}

func addDeclaration(style, decl string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return decl
	}
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	return style + " " + decl
}

func removeDeclaration(style, decl string) string {
	parts := strings.Split(style, ";")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == decl {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "; ")
}
