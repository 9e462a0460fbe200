package transform_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cozy/docengine/model"
	"github.com/cozy/docengine/test/builder"
	. "github.com/cozy/docengine/transform"
)

func repaired(t *testing.T, html string) *Session {
	t.Helper()
	s, _ := builder.Session(html)
	require.NoError(t, s.Repair())
	require.NoError(t, CheckHierarchy(s.Tree()))
	return s
}

func TestRepairFixtures(t *testing.T) {
	repair := func(html, expected string) {
		s := repaired(t, html)
		assert.Equal(t, expected, s.Tree().Root().String(), html)
	}

	// stray text in the body
	repair(`one<p>two</p>`, `body(p("one"), p("two"))`)
	// stray inline run
	repair(`a <b>b</b><p>c</p>`, `body(p("a ", b("b")), p("c"))`)
	// inline content of a list item
	repair(`<ul><li>one</li></ul>`, `body(ul(li(p("one"))))`)
	// heading in a list item
	repair(`<ul><li>before<h2>T</h2>after</li></ul>`,
		`body(ul(li(p("before"))), h2("T"), ul(li(p("after"))))`)
	// heading alone in a list item
	repair(`<ul><li><h2>T</h2></li></ul>`, `body(h2("T"))`)
	// block in an inline element
	repair(`<b>x<p>y</p>z</b>`, `body(p(b("x")), p(b("y")), p(b("z")))`)
	// valid documents are left alone
	repair(`<p>a<b>b</b></p><ul><li><p>c</p></li></ul>`, `body(p("a", b("b")), ul(li(p("c"))))`)
}

func TestRepairIsIdempotent(t *testing.T) {
	for _, html := range []string{
		`one<p>two</p>`,
		`<ul><li>before<h2>T</h2>after</li></ul>`,
		`<b>x<p>y</p>z</b>`,
		`<div>a<ul><li>b<h1>c</h1></li></ul></div>`,
	} {
		s := repaired(t, html)
		once := s.Tree().Root().String()
		require.NoError(t, s.Repair())
		assert.Equal(t, once, s.Tree().Root().String(), html)
	}
}

func TestTypingIntoContainer(t *testing.T) {
	s, _ := builder.Session(`<p>a</p>`)
	doc := s.Tree()
	root := doc.Root()

	require.NoError(t, s.Perform("type", func() {
		doc.AppendChild(root, doc.NewText("x"))
	}))
	assert.Equal(t, `body(p("a"), p("x"))`, root.String())
	assert.Equal(t, 1, s.UndoManager().GetIndex())

	require.NoError(t, s.Undo())
	assert.Equal(t, `body(p("a"))`, root.String())

	require.NoError(t, s.Redo())
	assert.Equal(t, `body(p("a"), p("x"))`, root.String())
}

func TestInsertHeadingIntoParagraph(t *testing.T) {
	s, _ := builder.Session(`<p>ab</p>`)
	doc := s.Tree()
	root := doc.Root()

	require.NoError(t, s.Perform("heading", func() {
		doc.AppendChild(child(root, 0), doc.NewElement("h1", nil, doc.NewText("T")))
	}))
	assert.Equal(t, `body(p("ab"), h1("T"))`, root.String())

	require.NoError(t, s.Undo())
	assert.Equal(t, `body(p("ab"))`, root.String())
}

func TestInsertParagraphIntoInline(t *testing.T) {
	s, _ := builder.Session(`<p>a<b>bc</b>d</p>`)
	doc := s.Tree()
	root := doc.Root()
	before := root.HTML()

	require.NoError(t, s.Perform("insert", func() {
		doc.AppendChild(child(root, 0, 1), doc.NewElement("p", nil, doc.NewText("N")))
	}))
	assert.Equal(t, `body(p("a", b("bc")), p(b("N")), p("d"))`, root.String())
	assert.NoError(t, CheckHierarchy(doc))

	require.NoError(t, s.Undo())
	assert.Equal(t, before, root.HTML())
}

func TestInsertInlineRunAroundBlock(t *testing.T) {
	insert := func(build func(doc *model.Tree) *model.Node, expected string) {
		s, _ := builder.Session(`<p>a</p>`)
		doc := s.Tree()
		root := doc.Root()
		before := root.HTML()

		require.NoError(t, s.Perform("insert", func() { doc.AppendChild(root, build(doc)) }))
		assert.Equal(t, expected, root.String())
		assert.NoError(t, CheckHierarchy(doc))

		require.NoError(t, s.Undo())
		assert.Equal(t, before, root.HTML())
		require.NoError(t, s.Redo())
		assert.Equal(t, expected, root.String())
	}

	// Text on both sides of the block.
	insert(func(doc *model.Tree) *model.Node {
		return doc.NewElement("b", nil, doc.NewText("x"), doc.NewElement("p", nil, doc.NewText("y")), doc.NewText("z"))
	}, `body(p("a"), p(b("x")), p(b("y")), p(b("z")))`)
	// The inserted element is emptied by the extraction.
	insert(func(doc *model.Tree) *model.Node {
		return doc.NewElement("b", nil, doc.NewElement("p", nil, doc.NewText("y")), doc.NewText("z"))
	}, `body(p("a"), p(b("y")), p(b("z")))`)
	// The block is nested two inline elements deep.
	insert(func(doc *model.Tree) *model.Node {
		return doc.NewElement("i", nil, doc.NewElement("b", nil, doc.NewElement("p", nil, doc.NewText("y"))), doc.NewText("z"))
	}, `body(p("a"), p(i(b("y"))), p(i("z")))`)
	// The block is a list with inline content in its item.
	insert(func(doc *model.Tree) *model.Node {
		return doc.NewElement("b", nil, doc.NewElement("ul", nil, doc.NewElement("li", nil, doc.NewText("t"))), doc.NewText("z"))
	}, `body(p("a"), ul(li(p(b("t")))), p(b("z")))`)
}

func TestInsertInlineHeadingIntoListItem(t *testing.T) {
	s, _ := builder.Session(`<ul><li><p>a</p></li></ul>`)
	doc := s.Tree()
	root := doc.Root()
	li := child(root, 0, 0)

	require.NoError(t, s.Perform("insert", func() {
		doc.AppendChild(li, doc.NewElement("b", nil, doc.NewElement("h2", nil, doc.NewText("T")), doc.NewText("z")))
	}))
	assert.Equal(t, `body(ul(li(p("a"))), h2("T"), ul(li(p(b("z")))))`, root.String())
	assert.NoError(t, CheckHierarchy(doc))
}

func TestExtractFromRestrictiveContainer(t *testing.T) {
	s, _ := builder.Session(`<figure><figcaption><p>cap</p></figcaption></figure>`)
	doc := s.Tree()
	root := doc.Root()

	require.NoError(t, s.Perform("table", func() {
		doc.AppendChild(child(root, 0, 0), doc.NewElement("table", nil))
	}))
	assert.Equal(t, `body(figure(figcaption(p("cap"))), table)`, root.String())
}

func TestExtractSkipsIDSpans(t *testing.T) {
	s, _ := builder.Session(`<span id="anchor">x<p>y</p></span>`)
	require.NoError(t, s.Repair())
	root := s.Tree().Root()
	assert.Equal(t, `body(p(span("x")), p("y"))`, root.String())
	assert.NoError(t, CheckHierarchy(s.Tree()))
}

func TestEnsureInlineNodesInParagraph(t *testing.T) {
	inParagraph := func(html string, weak bool, expected string) {
		s, tags := builder.Session(html)
		require.NoError(t, s.Perform("wrap", func() {
			s.Hierarchy().EnsureInlineNodesInParagraph(tags["a"].Node(), weak)
		}))
		assert.Equal(t, expected, s.Tree().Root().String(), html)
	}

	inParagraph(`<div>one <b>t{a}wo</b><p>three</p></div>`, false, `body(div(p("one ", b("two")), p("three")))`)
	inParagraph(`<p>o{a}ne</p>`, false, `body(p("one"))`)
	inParagraph(`<table><tbody><tr><td>c{a}ell</td></tr></tbody></table>`, true,
		`body(table(tbody(tr(td("cell")))))`)
	inParagraph(`<table><tbody><tr><td>c{a}ell</td></tr></tbody></table>`, false,
		`body(table(tbody(tr(td(p("cell"))))))`)
}

func TestAvoidInlineChildren(t *testing.T) {
	s, _ := builder.Session(`<div>a<b>b</b><p>p</p> </div>`)
	root := s.Tree().Root()
	require.NoError(t, s.Perform("avoid", func() {
		s.Hierarchy().AvoidInlineChildren(child(root, 0))
	}))
	assert.Equal(t, `body(div(p("a", b("b")), p("p")))`, root.String())
}

func TestEnsureRangeValidHierarchy(t *testing.T) {
	s, tags := builder.Session(`<ul><li><h1>{a}T{b}</h1></li></ul>`)
	r := &model.Range{Start: tags["a"], End: tags["b"]}
	require.NoError(t, s.Perform("range", func() {
		s.Hierarchy().EnsureRangeValidHierarchy(r)
	}))
	assert.Equal(t, `body(h1("T"))`, s.Tree().Root().String())
	assert.Equal(t, 0, r.Start.Offset())
	assert.Equal(t, 1, r.End.Offset())
	assert.False(t, r.Start.IsTracked())
}

func TestEnsureRangeInlineNodesInParagraph(t *testing.T) {
	s, tags := builder.Session(`<div>{a}one <b>two</b>{b}</div>`)
	r := &model.Range{Start: tags["a"], End: tags["b"]}
	require.NoError(t, s.Perform("range", func() {
		s.Hierarchy().EnsureRangeInlineNodesInParagraph(r)
	}))
	assert.Equal(t, `body(div(p("one ", b("two"))))`, s.Tree().Root().String())
}

func TestRepairLimit(t *testing.T) {
	doc := builder.MustParse(`<ul><li><p>a</p></li></ul>`)
	h := NewHierarchy(doc.Tree, WithMaxAscents(1))
	li := child(doc.Root(), 0, 0)
	text := doc.NewText("x")
	doc.AppendChild(li, text)

	var ie *model.InvariantError
	assert.Panics(t, func() {
		defer func() {
			if r := recover(); r != nil {
				ie, _ = r.(*model.InvariantError)
				panic(r)
			}
		}()
		h.EnsureValidHierarchy(text, true)
	})
	require.NotNil(t, ie)
	assert.Contains(t, ie.Error(), "too many iterations")
}

func TestHierarchyLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s, _ := builder.Session(`<b>x<p>y</p></b>`, WithLogger(zap.New(core)))
	require.NoError(t, s.Repair())

	var messages []string
	for _, entry := range logs.FilterLoggerName("hierarchy").All() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "extract block")
	assert.Contains(t, messages, "wrap inline nodes")
	assert.True(t, strings.HasPrefix(s.Tree().Root().String(), "body(p(b("))
}
