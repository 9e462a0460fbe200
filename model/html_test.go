package model_test

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/cozy/docengine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	doc := parse(`<p id="x" class="c">A &amp; <b>B</b></p>`)
	assert.Equal(t, `<body><p class="c" id="x">A &amp; <b>B</b></p></body>`, doc.Root().HTML())
	assert.Equal(t, `<p class="c" id="x">A &amp; <b>B</b></p>`, doc.Root().InnerHTML())

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, child(doc.Root(), 0, 1)))
	assert.Equal(t, `<b>B</b>`, buf.String())
}

func TestParseHTML(t *testing.T) {
	doc := newDoc()
	nodes, err := doc.ParseHTML(`<p>a</p><!-- note --><ul><li>b</li></ul>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, `p("a")`, nodes[0].String())
	assert.Equal(t, `ul(li("b"))`, nodes[1].String())
	assert.False(t, nodes[0].IsAttached())
}

func TestLoadHTML(t *testing.T) {
	doc := newDoc()
	src := `<!DOCTYPE html><html><head><title>t</title></head><body class="doc"><p>Hi</p></body></html>`
	require.NoError(t, doc.LoadHTML(strings.NewReader(src)))
	assert.Equal(t, `body(p("Hi"))`, doc.Root().String())
	class, _ := doc.Root().Attr("class")
	assert.Equal(t, "doc", class)
	assert.False(t, doc.UndoManager().CanUndo())
}

func TestLoadRejectsTrackedPositions(t *testing.T) {
	doc := parse(`<p>a</p>`)
	p := NewPosition(doc.Root(), 0)
	doc.Track(p)
	defer doc.Untrack(p)
	assert.Panics(t, func() { doc.Load(nil) })
}
