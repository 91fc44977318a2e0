// Package annotate applies reversible currency annotations to a page.
package annotate

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/language"

	"github.com/Veraticus/fxlens/internal/model"
	"github.com/Veraticus/fxlens/internal/page"
)

// Markers written into the document.
const (
	AttrConverted     = "data-currency-converted"
	AttrDisplay       = "data-fxlens-converted"
	AttrBare          = "data-fxlens-converted-bare"
	AttrPointHidden   = "data-fxlens-point-hidden"
	AttrViewHidden    = "data-fxlens-hidden"
	AttrHideOriginal  = "data-fxlens-hide-original"
	ClassWrapper      = "fxlens-amount"
	ClassOriginal     = "fxlens-original"
	ClassConverted    = "fxlens-converted"
	hiddenDeclaration = "display: none"
)

var (
	// ErrDetached is returned when the target node is no longer in a tree.
	ErrDetached = errors.New("node is detached")
	// ErrUnresolvableRate is returned when no cross rate exists for a pair.
	ErrUnresolvableRate = errors.New("unresolvable rate")
)

// Annotator writes annotations into a document and records them in a registry.
type Annotator struct {
	doc *page.Document
	reg *Registry
	tag language.Tag
}

// DefaultLocale formats converted amounts when no locale is configured.
var DefaultLocale = language.AmericanEnglish

// New creates an Annotator formatting amounts for tag.
func New(doc *page.Document, reg *Registry, tag language.Tag) *Annotator {
	return &Annotator{doc: doc, reg: reg, tag: tag}
}

// Registry returns the registry the annotator writes to.
func (a *Annotator) Registry() *Registry {
	return a.reg
}

// AnnotateText replaces the detected substring of text node n with a marker
// holding the original and converted text. It returns the text node holding
// the text before the detection, or nil when there is none, so callers can
// continue with earlier detections of the same unit.
func (a *Annotator) AnnotateText(n *html.Node, d model.Detection, target string, rate float64) (*html.Node, error) {
	if !page.IsText(n) {
		return nil, fmt.Errorf("annotate text: not a text node")
	}
	if n.Parent == nil {
		return nil, ErrDetached
	}
	if rate <= 0 {
		return nil, ErrUnresolvableRate
	}
	if d.Start < 0 || d.End > len(n.Data) || d.Start >= d.End {
		return nil, fmt.Errorf("annotate text: range [%d,%d) outside unit of length %d", d.Start, d.End, len(n.Data))
	}

	original := n.Data[d.Start:d.End]
	converted := d.Amount * rate
	rendered := FormatCurrency(converted, target, a.tag)

	wrapper := page.NewElement("span",
		html.Attribute{Key: AttrConverted, Val: "true"},
		html.Attribute{Key: "class", Val: ClassWrapper},
	)
	wrapper.DataAtom = atom.Span
	orig := page.NewElement("span", html.Attribute{Key: "class", Val: ClassOriginal})
	orig.DataAtom = atom.Span
	orig.AppendChild(page.NewText(original))
	conv := page.NewElement("span", html.Attribute{Key: "class", Val: ClassConverted})
	conv.DataAtom = atom.Span
	conv.AppendChild(page.NewText(rendered))
	wrapper.AppendChild(orig)
	wrapper.AppendChild(conv)

	var before *html.Node
	nodes := make([]*html.Node, 0, 3)
	if d.Start > 0 {
		before = page.NewText(n.Data[:d.Start])
		nodes = append(nodes, before)
	}
	nodes = append(nodes, wrapper)
	if d.End < len(n.Data) {
		nodes = append(nodes, page.NewText(n.Data[d.End:]))
	}

	if err := a.doc.ReplaceWith(n, nodes...); err != nil {
		return nil, err
	}

	a.reg.add(&Record{
		Node: wrapper,
		Annotation: model.Annotation{
			Original:     original,
			Rendered:     rendered,
			FromCurrency: d.CurrencyCode,
			ToCurrency:   target,
			Amount:       d.Amount,
			Converted:    converted,
			Mode:         model.ModeReplacement,
		},
	})

	return before, nil
}

// AnnotateElement marks el as converted and stores the rendered value as
// attributes, leaving its children untouched.
func (a *Annotator) AnnotateElement(el *html.Node, amount float64, from, target string, rate float64) error {
	if !page.IsElement(el) {
		return fmt.Errorf("annotate element: not an element")
	}
	if el.Parent == nil {
		return ErrDetached
	}
	if rate <= 0 {
		return ErrUnresolvableRate
	}

	converted := amount * rate
	rendered := FormatCurrency(converted, target, a.tag)
	class, hadClass := page.Attr(el, "class")

	a.doc.SetAttr(el, AttrConverted, "true")
	a.doc.SetAttr(el, "class", addClass(class, ClassOriginal))
	a.doc.SetAttr(el, AttrDisplay, " ("+rendered+")")
	a.doc.SetAttr(el, AttrBare, rendered)

	a.reg.add(&Record{
		Node: el,
		Annotation: model.Annotation{
			Original:     strings.TrimSpace(page.RenderedText(el)),
			Rendered:     rendered,
			FromCurrency: from,
			ToCurrency:   target,
			Amount:       amount,
			Converted:    converted,
			Mode:         model.ModeAttribute,
		},
		class:    class,
		hadClass: hadClass,
	})

	return nil
}

// RemoveAll reverts every annotation, newest first, then sweeps markers the
// registry does not know about. It returns the number of reverted regions.
func (a *Annotator) RemoveAll() int {
	removed := 0
	for _, rec := range a.reg.drain() {
		if rec.Node.Parent == nil {
			continue
		}
		switch rec.Annotation.Mode {
		case model.ModeReplacement:
			a.unwrap(rec.Node, rec.Annotation.Original)
		case model.ModeAttribute:
			a.stripAttributes(rec.Node)
			if rec.hadClass {
				a.doc.SetAttr(rec.Node, "class", rec.class)
			} else {
				a.doc.RemoveAttr(rec.Node, "class")
			}
		}
		removed++
	}

	return removed + a.SweepStale(a.doc.Root())
}

// SweepStale reverts markers under root that were written by an earlier run
// and are not tracked by the registry.
func (a *Annotator) SweepStale(root *html.Node) int {
	swept := 0
	for _, el := range page.Select(root, convertedSelector) {
		if el.Parent == nil || a.reg.IsAnnotated(el) {
			continue
		}
		if page.HasClass(el, ClassWrapper) {
			original := ""
			if orig := page.Select(el, originalSelector); len(orig) > 0 {
				original = page.TextContent(orig[0])
			}
			a.unwrap(el, original)
		} else {
			a.stripAttributes(el)
			if class, ok := page.Attr(el, "class"); ok {
				if rest := removeClass(class, ClassOriginal); rest != "" {
					a.doc.SetAttr(el, "class", rest)
				} else {
					a.doc.RemoveAttr(el, "class")
				}
			}
		}
		swept++
	}

	for _, el := range page.Select(root, pointHiddenSelector) {
		if a.reg.IsHidden(el) {
			continue
		}
		a.doc.RemoveAttr(el, AttrPointHidden)
		if style, ok := page.Attr(el, "style"); ok {
			if rest := removeDeclaration(style, hiddenDeclaration); rest != "" {
				a.doc.SetAttr(el, "style", rest)
			} else {
				a.doc.RemoveAttr(el, "style")
			}
		}
		swept++
	}

	return swept
}

// unwrap replaces a wrapper with a single text node and merges it with
// adjacent text so the unit reads exactly as before annotation.
func (a *Annotator) unwrap(wrapper *html.Node, original string) {
	text := page.NewText(original)
	if err := a.doc.ReplaceWith(wrapper, text); err != nil {
		return
	}
	a.mergeText(text)
}

func (a *Annotator) mergeText(n *html.Node) {
	first := n
	for first.PrevSibling != nil && first.PrevSibling.Type == html.TextNode {
		first = first.PrevSibling
	}

	var sb strings.Builder
	sb.WriteString(first.Data)
	for next := first.NextSibling; next != nil && next.Type == html.TextNode; next = first.NextSibling {
		sb.WriteString(next.Data)
		a.doc.RemoveChild(first.Parent, next)
	}
	a.doc.SetText(first, sb.String())
}

func (a *Annotator) stripAttributes(el *html.Node) {
	a.doc.RemoveAttr(el, AttrConverted)
	a.doc.RemoveAttr(el, AttrDisplay)
	a.doc.RemoveAttr(el, AttrBare)
}

// ApplyViewFlags writes the visibility flags onto body.
func (a *Annotator) ApplyViewFlags(body *html.Node, hidden, hideOriginal bool) {
	if !page.IsElement(body) {
		return
	}
	setFlag(a.doc, body, AttrViewHidden, hidden)
	setFlag(a.doc, body, AttrHideOriginal, hideOriginal)
}

func setFlag(doc *page.Document, el *html.Node, key string, on bool) {
	if on {
		doc.SetAttr(el, key, "true")
	} else {
		doc.RemoveAttr(el, key)
	}
}

func addClass(list, class string) string {
	for _, c := range strings.Fields(list) {
		if c == class {
			return list
		}
	}
	if strings.TrimSpace(list) == "" {
		return class
	}
	return list + " " + class
}

func removeClass(list, class string) string {
	fields := strings.Fields(list)
	out := fields[:0]
	for _, c := range fields {
		if c != class {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}
