package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/page"
)

// fakeMarks treats the listed elements and their descendants as annotated.
type fakeMarks struct {
	nodes []*html.Node
}

func (m fakeMarks) IsAnnotated(n *html.Node) bool {
	for _, a := range m.nodes {
		if a == n || page.Contains(a, n) {
			return true
		}
	}
	return false
}

func (m fakeMarks) ContainsAnnotated(n *html.Node) bool {
	for _, a := range m.nodes {
		if a != n && page.Contains(n, a) {
			return true
		}
	}
	return false
}

func parse(t *testing.T, markup string) *page.Document {
	t.Helper()
	doc, err := page.ParseString(markup)
	require.NoError(t, err)
	return doc
}

func texts(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.TextNode {
			out = append(out, strings.TrimSpace(n.Data))
		} else {
			out = append(out, strings.TrimSpace(page.RenderedText(n)))
		}
	}
	return out
}

func TestTextUnits(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{
			name:   "plain paragraphs",
			markup: `<p>Lunch $12</p><p>no price here</p><p>Dinner 30 EUR</p>`,
			want:   []string{"Lunch $12", "Dinner 30 EUR"},
		},
		{
			name:   "skipped containers",
			markup: `<p>$1</p><script>var p = "$2"</script><pre>$3</pre><textarea>$4</textarea><code>$5</code>`,
			want:   []string{"$1"},
		},
		{
			name:   "contenteditable",
			markup: `<div contenteditable="true"><p>$1</p></div><div contenteditable="false"><p>$2</p></div>`,
			want:   []string{"$2"},
		},
		{
			name:   "offscreen copies",
			markup: `<span class="a-offscreen">$19.99</span><span class="a-price"><span>$19.99</span></span><p>$5</p>`,
			want:   []string{"$5"},
		},
		{
			name:   "whitespace only",
			markup: `<p>   </p>`,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.markup)
			got := New(fakeMarks{}).TextUnits(doc.Body())
			assert.Equal(t, tt.want, texts(got))
		})
	}
}

func TestTextUnits_SkipsAnnotated(t *testing.T) {
	doc := parse(t, `<p>Keep $1</p><span id="done">Done $2</span>`)
	done := page.Select(doc.Root(), page.MustSelector("#done"))
	require.Len(t, done, 1)

	got := New(fakeMarks{nodes: done}).TextUnits(doc.Body())
	assert.Equal(t, []string{"Keep $1"}, texts(got))
}

func TestPriceElements(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{
			name:   "price classes and attributes",
			markup: `<span class="product-price">$10</span><div data-price="5">€5</div><meta itemprop="price" content="3"><span class="Amount">£7</span>`,
			want:   []string{"$10", "€5", "£7"},
		},
		{
			name:   "nested price elements both returned",
			markup: `<div class="price-box"><span class="price">$10</span></div>`,
			want:   []string{"$10", "$10"},
		},
		{
			name:   "no currency text",
			markup: `<span class="price">call us</span>`,
			want:   []string{},
		},
		{
			name:   "inside skipped container",
			markup: `<noscript><span class="price">$1</span></noscript>`,
			want:   []string{},
		},
		{
			name:   "indented markup",
			markup: "<div class=\"price\">\n    <span>€</span>\n    <span>20</span>\n  </div>",
			want:   []string{"€ 20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.markup)
			got := New(fakeMarks{}).PriceElements(doc.Body())
			assert.Equal(t, tt.want, texts(got))
		})
	}
}

func TestPriceElements_RootAndMarks(t *testing.T) {
	doc := parse(t, `<div class="price-box"><span class="price">$10</span><span class="cost">$3</span></div>`)
	box := page.Select(doc.Root(), page.MustSelector(".price-box"))[0]
	inner := page.Select(doc.Root(), page.MustSelector(".price"))[0]

	got := New(fakeMarks{}).PriceElements(box)
	require.Len(t, got, 3)
	assert.Same(t, box, got[0])

	got = New(fakeMarks{nodes: []*html.Node{inner}}).PriceElements(box)
	assert.Equal(t, []string{"$3"}, texts(got))

	text := inner.FirstChild
	assert.Empty(t, New(fakeMarks{}).PriceElements(text))
}

func TestSplitElements(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{
			name:   "symbol and amount in sibling spans",
			markup: `<div class="p"><span>$</span><span>19</span><sup>99</sup></div>`,
			want:   []string{"$1999"},
		},
		{
			name:   "suffix symbol",
			markup: `<p><b>1,280</b><small>円</small></p>`,
			want:   []string{"1,280円"},
		},
		{
			name:   "indented suffix symbol",
			markup: "<p>\n    <span>6,980</span>\n    <span>円</span>\n  </p>",
			want:   []string{"6,980 円"},
		},
		{
			name:   "indented prefix symbol",
			markup: "<div>\n\t<span>$</span>\r\n\t<span>19</span>\n</div>",
			want:   []string{"$ 19"},
		},
		{
			name:   "no amount nearby",
			markup: `<p><span>$</span></p>`,
			want:   []string{},
		},
		{
			name:   "symbol with text is not split",
			markup: `<p><span>$ 5</span></p>`,
			want:   []string{},
		},
		{
			name:   "one region for two symbols",
			markup: `<p><span>$</span>5 or <span>$</span>6</p>`,
			want:   []string{"$5 or $6"},
		},
		{
			name:   "too much surrounding text",
			markup: `<p><span>$</span>` + strings.Repeat("words ", 50) + `5</p>`,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.markup)
			got := New(fakeMarks{}).SplitElements(doc.Body())
			assert.Equal(t, tt.want, texts(got))
		})
	}
}

func TestClassify(t *testing.T) {
	doc := parse(t, `<p>Tea $3</p><span class="price"><span>€</span><span>4</span></span>`)

	regions := New(fakeMarks{}).Classify(doc.Body())
	assert.True(t, regions.Candidates())
	assert.Len(t, regions.Text, 2)
	assert.Len(t, regions.Merged, 1)
	assert.Len(t, regions.Split, 1)

	empty := New(fakeMarks{}).Classify(parse(t, `<p>nothing</p>`).Body())
	assert.False(t, empty.Candidates())
}
