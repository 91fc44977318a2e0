package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// hiddenText holds elements whose text is never rendered.
var hiddenText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"title":    true,
}

// MustSelector compiles a CSS selector group, panicking on a syntax error.
func MustSelector(sel string) cascadia.Selector {
	return cascadia.MustCompile(sel)
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// NewElement creates a detached element with the given attributes.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, Attr: attrs}
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// Attr returns the value of an attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries the attribute.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// HasClass reports whether the class list of n contains class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// ParentElement returns the closest element ancestor of n.
func ParentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Closest returns n or its nearest element ancestor matching m.
func Closest(n *html.Node, m goquery.Matcher) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && m.Match(cur) {
			return cur
		}
	}
	return nil
}

// Matches reports whether element n matches m.
func Matches(n *html.Node, m goquery.Matcher) bool {
	return IsElement(n) && m.Match(n)
}

// Select returns descendants of root matching m, in document order.
func Select(root *html.Node, m goquery.Matcher) []*html.Node {
	if root == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(root).FindMatcher(m).Nodes
}

// Contains reports whether n is ancestor or n itself.
func Contains(ancestor, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// TextNodes returns the text nodes under root in document order. When root
// is itself a text node it is the only result.
func TextNodes(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// TextContent concatenates all text under n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	for _, t := range TextNodes(n) {
		sb.WriteString(t.Data)
	}
	return sb.String()
}

// RenderedText approximates the visible text of n: text under script, style
// and similar containers is left out and runs of document white space
// collapse to a single space, as they do on screen.
func RenderedText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return collapseSpace(n.Data)
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			sb.WriteString(cur.Data)
			return
		case html.ElementNode:
			if hiddenText[cur.Data] {
				return
			}
		case html.CommentNode:
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(sb.String())
}

// collapseSpace folds runs of HTML white space (space, tab, CR, LF, FF) into
// one space. Non-breaking spaces are content and survive.
func collapseSpace(s string) string {
	if !strings.ContainsAny(s, "\t\n\r\f") && !strings.Contains(s, "  ") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case ' ', '\t', '\n', '\r', '\f':
			if !inSpace {
				sb.WriteByte(' ')
			}
			inSpace = true
		default:
			sb.WriteByte(b)
			inSpace = false
		}
	}
	return sb.String()
}
