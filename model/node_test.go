package model_test

import (
	"testing"

	. "github.com/cozy/docengine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeString(t *testing.T) {
	doc := parse(`<p>AB</p><ul><li><p>x</p></li></ul>`)
	assert.Equal(t, `body(p("AB"), ul(li(p("x"))))`, doc.Root().String())
}

func TestNodeKinds(t *testing.T) {
	doc := parse(`<div><p>a<b>c</b></p></div>`)
	div := child(doc.Root(), 0)
	p := child(div, 0)
	b := child(p, 1)
	text := child(b, 0)

	assert.Equal(t, Container, div.Kind())
	assert.Equal(t, Paragraph, p.Kind())
	assert.Equal(t, Inline, b.Kind())
	assert.Equal(t, Text, text.Kind())
	assert.Equal(t, TextName, text.Name())
	assert.True(t, text.IsInline())
	assert.True(t, p.IsBlock())
	assert.False(t, b.IsBlock())
	assert.Equal(t, "paragraph", p.Kind().String())
}

func TestNodeNavigation(t *testing.T) {
	doc := parse(`<p>a</p><p>b</p><p>c</p>`)
	root := doc.Root()
	second := child(root, 1)

	assert.Equal(t, 3, root.ChildCount())
	assert.Equal(t, 1, second.Index())
	assert.Equal(t, child(root, 0), second.PrevSibling())
	assert.Equal(t, child(root, 2), second.NextSibling())
	assert.Nil(t, root.LastChild().NextSibling())
	assert.Equal(t, root, second.Parent())
	assert.Equal(t, 2, child(second, 0).Depth())
	assert.True(t, root.IsAncestorOf(child(second, 0)))
	assert.False(t, second.IsAncestorOf(root))

	_, err := root.Child(3)
	assert.Error(t, err)
	c, err := root.Child(2)
	require.NoError(t, err)
	assert.Equal(t, "c", c.TextContent())

	var names []int
	root.ForEach(func(n *Node, i int) { names = append(names, i) })
	assert.Equal(t, []int{0, 1, 2}, names)
}

func TestNodeAttributes(t *testing.T) {
	doc := parse(`<p class="intro main" id="x">a</p>`)
	p := child(doc.Root(), 0)
	class, ok := p.Attr("class")
	assert.True(t, ok)
	assert.Equal(t, "intro main", class)
	assert.Equal(t, []string{"class", "id"}, p.AttrNames())
	assert.True(t, p.HasClass("main"))
	assert.False(t, p.HasClass("mai"))

	attrs := p.Attrs()
	attrs["class"] = "changed"
	class, _ = p.Attr("class")
	assert.Equal(t, "intro main", class)
}

func TestNodeByID(t *testing.T) {
	doc := parse(`<p>a</p>`)
	p := child(doc.Root(), 0)
	assert.Equal(t, p, doc.NodeByID(p.ID()))

	doc.DeleteNode(p)
	assert.Nil(t, doc.NodeByID(p.ID()))
	assert.False(t, p.IsAttached())
}

func TestNewElementOwnsChildren(t *testing.T) {
	doc := newDoc()
	text := doc.NewText("hi")
	p := doc.NewElement("p", map[string]string{"class": "c"}, text)
	assert.Equal(t, p, text.Parent())
	assert.False(t, p.IsAttached())
	assert.Equal(t, Paragraph, p.Kind())

	assert.PanicsWithError(t, `NewElement: child #text already has a parent`, func() {
		doc.NewElement("p", nil, text)
	})
	assert.Panics(t, func() { doc.NewElement(TextName, nil) })
}

func TestShallowCopyAndClone(t *testing.T) {
	doc := parse(`<p id="a" class="c">x<b>y</b></p>`)
	p := child(doc.Root(), 0)

	copied := doc.ShallowCopy(p)
	assert.Equal(t, 0, copied.ChildCount())
	_, hasID := copied.Attr("id")
	assert.False(t, hasID)
	class, _ := copied.Attr("class")
	assert.Equal(t, "c", class)
	assert.NotEqual(t, p.ID(), copied.ID())

	deep := doc.Clone(p, true)
	assert.True(t, Eq(p, deep))
	assert.NotEqual(t, p.ID(), deep.ID())
	assert.Equal(t, `p("x", b("y"))`, deep.String())
}

func TestHasContent(t *testing.T) {
	doc := parse(`<p> </p><p><img src="a.png"></p><p><b> x </b></p>`)
	root := doc.Root()
	assert.False(t, HasContent(child(root, 0)))
	assert.True(t, HasContent(child(root, 1)))
	assert.True(t, HasContent(child(root, 2)))
	assert.True(t, child(root, 0, 0).IsWhitespace())
}

func TestTraversal(t *testing.T) {
	doc := parse(`<p>a<b>b</b></p><p>c</p>`)
	root := doc.Root()
	a := child(root, 0, 0)
	b := child(root, 0, 1, 0)
	c := child(root, 1, 0)

	assert.Equal(t, b, NextTextNode(a))
	assert.Equal(t, c, NextTextNode(b))
	assert.Nil(t, NextTextNode(c))
	assert.Equal(t, b, PrevTextNode(c))
	assert.Equal(t, a, PrevTextNode(b))
	assert.Equal(t, child(root, 0, 1), FirstChildElement(child(root, 0)))
	assert.Nil(t, LastChildElement(child(root, 1)))

	var entered []string
	next := NextNode(b, func(n *Node) { entered = append(entered, n.Name()) }, nil)
	assert.Equal(t, child(root, 1), next)
	assert.Equal(t, []string{"p"}, entered)
}
