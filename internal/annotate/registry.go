package annotate

import (
	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/model"
)

// Record is one annotation applied to the document.
type Record struct {
	Node       *html.Node
	Annotation model.Annotation

	// attribute mode: class attribute before annotation
	class    string
	hadClass bool
}

type hiddenRecord struct {
	node     *html.Node
	style    string
	hadStyle bool
}

// Registry tracks annotated and hidden nodes by identity.
type Registry struct {
	records map[*html.Node]*Record
	order   []*html.Node
	hidden  map[*html.Node]*hiddenRecord
	hOrder  []*html.Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[*html.Node]*Record),
		hidden:  make(map[*html.Node]*hiddenRecord),
	}
}

// IsAnnotated reports whether n or one of its ancestors carries an annotation.
func (r *Registry) IsAnnotated(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if _, ok := r.records[cur]; ok {
			return true
		}
	}
	return false
}

// ContainsAnnotated reports whether an annotated node lies strictly under n.
// It walks the subtree of n, so the cost matches reading n's text.
func (r *Registry) ContainsAnnotated(n *html.Node) bool {
	if n == nil || len(r.records) == 0 {
		return false
	}
	stack := make([]*html.Node, 0, 16)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stack = append(stack, c)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := r.records[cur]; ok {
			return true
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			stack = append(stack, c)
		}
	}
	return false
}

// Lookup returns the record for an annotated node.
func (r *Registry) Lookup(n *html.Node) (*Record, bool) {
	rec, ok := r.records[n]
	return rec, ok
}

// Len returns the number of live annotations.
func (r *Registry) Len() int {
	return len(r.records)
}

// Annotations returns the live annotations in the order they were made.
func (r *Registry) Annotations() []model.Annotation {
	out := make([]model.Annotation, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.records[n].Annotation)
	}
	return out
}

// IsHidden reports whether n was hidden by the point sweep.
func (r *Registry) IsHidden(n *html.Node) bool {
	_, ok := r.hidden[n]
	return ok
}

// HiddenCount returns the number of hidden elements.
func (r *Registry) HiddenCount() int {
	return len(r.hidden)
}

func (r *Registry) add(rec *Record) {
	r.records[rec.Node] = rec
	r.order = append(r.order, rec.Node)
}

func (r *Registry) addHidden(rec *hiddenRecord) {
	r.hidden[rec.node] = rec
	r.hOrder = append(r.hOrder, rec.node)
}

// drain returns all records, newest first, and empties the registry.
func (r *Registry) drain() []*Record {
	out := make([]*Record, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.records[r.order[i]])
	}
	r.records = make(map[*html.Node]*Record)
	r.order = nil
	return out
}

func (r *Registry) drainHidden() []*hiddenRecord {
	out := make([]*hiddenRecord, 0, len(r.hOrder))
	for _, n := range r.hOrder {
		out = append(out, r.hidden[n])
	}
	r.hidden = make(map[*html.Node]*hiddenRecord)
	r.hOrder = nil
	return out
}
