// Package page exposes an HTML document as the host structure the engine
// scans and annotates. Every structural write goes through Document so that
// observers can consume a stream of mutation records.
package page

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML tree plus its pending mutation records.
type Document struct {
	doc     *goquery.Document
	records []Mutation
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.doc.Nodes[0]
}

// Body returns the body element, or the document node when there is none.
func (d *Document) Body() *html.Node {
	if body := d.doc.Find("body"); body.Length() > 0 {
		return body.Nodes[0]
	}
	return d.Root()
}

// Selection returns a goquery selection over the whole document.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.Root())
}

// HTML renders the document to a string.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// InsertBefore inserts child into parent before ref, or appends when ref is nil.
// A child still attached elsewhere is detached first.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if child.Parent != nil {
		d.RemoveChild(child.Parent, child)
	}
	parent.InsertBefore(child, ref)
	d.record(Mutation{Kind: ChildList, Target: parent, Added: []*html.Node{child}})
}

// AppendChild appends child to parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.InsertBefore(parent, child, nil)
}

// RemoveChild detaches child from parent. It is a no-op when child belongs
// to another parent.
func (d *Document) RemoveChild(parent, child *html.Node) {
	if child.Parent != parent {
		return
	}
	parent.RemoveChild(child)
	d.record(Mutation{Kind: ChildList, Target: parent, Removed: []*html.Node{child}})
}

// ReplaceWith puts nodes where old was and detaches old, as one record.
func (d *Document) ReplaceWith(old *html.Node, nodes ...*html.Node) error {
	parent := old.Parent
	if parent == nil {
		return fmt.Errorf("cannot replace a detached %s node", nodeName(old))
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
	d.record(Mutation{
		Kind:    ChildList,
		Target:  parent,
		Added:   append([]*html.Node(nil), nodes...),
		Removed: []*html.Node{old},
	})
	return nil
}

// ReplaceChildren swaps all children of parent for nodes.
func (d *Document) ReplaceChildren(parent *html.Node, nodes ...*html.Node) {
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.AppendChild(n)
	}
	d.record(Mutation{
		Kind:    ChildList,
		Target:  parent,
		Added:   append([]*html.Node(nil), nodes...),
		Removed: removed,
	})
}

// SetText changes the data of a text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n.Type != html.TextNode || n.Data == text {
		return
	}
	n.Data = text
	d.record(Mutation{Kind: CharacterData, Target: n})
}

// SetAttr sets an attribute on an element.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			if n.Attr[i].Val == val {
				return
			}
			n.Attr[i].Val = val
			d.record(Mutation{Kind: Attributes, Target: n, Attribute: key})
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	d.record(Mutation{Kind: Attributes, Target: n, Attribute: key})
}

// RemoveAttr deletes an attribute from an element.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.record(Mutation{Kind: Attributes, Target: n, Attribute: key})
			return
		}
	}
}

// ParseFragment parses markup in the context of the given element.
func (d *Document) ParseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	return nodes, nil
}

// AppendHTML parses markup and appends the resulting nodes to parent.
func (d *Document) AppendHTML(parent *html.Node, markup string) error {
	nodes, err := d.ParseFragment(markup, parent)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	d.record(Mutation{Kind: ChildList, Target: parent, Added: nodes})
	return nil
}

// TakeRecords returns and clears the pending mutation records.
func (d *Document) TakeRecords() []Mutation {
	out := d.records
	d.records = nil
	return out
}

func (d *Document) record(m Mutation) {
	d.records = append(d.records, m)
}

func nodeName(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return "text"
	case html.ElementNode:
		return n.Data
	default:
		return "non-element"
	}
}
