package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozy/docengine/test/builder"
)

func TestParseTags(t *testing.T) {
	doc, err := builder.Parse(`<p>He{a}llo{b}</p><p>{c}{d}x</p>`)
	require.NoError(t, err)
	assert.Equal(t, `body(p("Hello"), p("x"))`, doc.Root().String())

	first := doc.Root().MaybeChild(0).MaybeChild(0)
	assert.Equal(t, first, doc.Tags["a"].Node())
	assert.Equal(t, 2, doc.Tags["a"].Offset())
	assert.Equal(t, 5, doc.Tags["b"].Offset())
	assert.Equal(t, 0, doc.Tags["c"].Offset())
	assert.Equal(t, 0, doc.Tags["d"].Offset())
	assert.Equal(t, 0, doc.TrackedCount())
	assert.False(t, doc.UndoManager().CanUndo())
}

func TestParseMarkerOnlyText(t *testing.T) {
	doc := builder.MustParse(`<p>a</p>{x}<p>b</p>`)
	assert.Equal(t, `body(p("a"), p("b"))`, doc.Root().String())
	assert.Equal(t, doc.Root(), doc.Tags["x"].Node())
	assert.Equal(t, 1, doc.Tags["x"].Offset())
}

func TestParseDuplicateTag(t *testing.T) {
	_, err := builder.Parse(`<p>{a}x{a}</p>`)
	assert.EqualError(t, err, `duplicate tag "a"`)
	assert.Panics(t, func() { builder.MustParse(`<p>{a}</p><p>{a}</p>`) })
}

func TestSessionKeepsInvalidFixture(t *testing.T) {
	s, tags := builder.Session(`text{a}`)
	assert.Equal(t, `body("text")`, s.Tree().Root().String())
	assert.Equal(t, 4, tags["a"].Offset())
	assert.Equal(t, 0, s.Queue().Len())
}
