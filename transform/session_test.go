package transform_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cozy/docengine/postponed"
	"github.com/cozy/docengine/schema/basic"
	"github.com/cozy/docengine/test/builder"
	. "github.com/cozy/docengine/transform"
	"github.com/cozy/docengine/undo"
)

func TestPerformRecoversInvariant(t *testing.T) {
	var reported []error
	s, _ := builder.Session(`<ul><li><p>a</p></li></ul>`,
		WithRepairLimit(1),
		WithErrorSink(func(err error) { reported = append(reported, err) }))
	doc := s.Tree()
	li := child(doc.Root(), 0, 0)

	err := s.Perform("type", func() { doc.AppendChild(li, doc.NewText("x")) })
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
	require.Len(t, reported, 1)
	assert.Equal(t, err, reported[0])
	assert.Equal(t, 0, s.Queue().Len())
	assert.Equal(t, 0, doc.PendingRepairs())
	// The tree is left as it was when the violation was found.
	assert.Equal(t, `body(ul(li(p("a"), "x")))`, doc.Root().String())

	// The session is usable afterwards.
	require.NoError(t, s.Perform("noop", func() {}))
}

func TestPerformRepanicsOnMisuse(t *testing.T) {
	s, _ := builder.Session(`<p>a</p>`)
	doc := s.Tree()
	assert.Panics(t, func() {
		_ = s.Perform("bad", func() { doc.DeleteCharacters(doc.Root(), 0, 1) })
	})

	require.NoError(t, s.Perform("type", func() {
		doc.InsertCharacters(child(doc.Root(), 0, 0), 1, "b")
	}))
	assert.Equal(t, `body(p("ab"))`, doc.Root().String())
}

func TestPerformTooManyRounds(t *testing.T) {
	var reported int
	s, _ := builder.Session(`<p>a</p>`, WithMaxRounds(3), WithErrorSink(func(error) { reported++ }))
	var add func(n int)
	add = func(n int) {
		if n > 0 {
			s.Queue().Add(func() { add(n - 1) })
		}
	}

	err := s.Perform("loop", func() { add(20) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, postponed.ErrTooManyRounds))
	assert.True(t, IsInvariant(err))
	assert.Contains(t, err.Error(), "loop")
	assert.Equal(t, 1, reported)
	assert.Equal(t, 0, s.Queue().Len())
}

func TestPerformDefaultSinkLogs(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s, _ := builder.Session(`<ul><li><p>a</p></li></ul>`, WithRepairLimit(1), WithLogger(zap.New(core)))
	doc := s.Tree()
	err := s.Perform("type", func() { doc.AppendChild(child(doc.Root(), 0, 0), doc.NewText("x")) })
	require.Error(t, err)

	entries := logs.FilterMessage("invariant violated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, err.Error(), entries[0].ContextMap()["error"])
}

func TestPerformGroupsOneEdit(t *testing.T) {
	s, _ := builder.Session(`<p>a</p>`)
	doc := s.Tree()
	text := child(doc.Root(), 0, 0)

	require.NoError(t, s.Perform("outer", func() {
		doc.InsertCharacters(text, 1, "b")
		require.NoError(t, s.Perform("inner", func() {
			doc.InsertCharacters(text, 2, "c")
		}))
	}))
	assert.Equal(t, "abc", text.Text())
	assert.Equal(t, 1, s.UndoManager().GetIndex())
	assert.Equal(t, "", s.UndoManager().GroupLabel())

	require.NoError(t, s.Undo())
	assert.Equal(t, "a", text.Text())
}

func TestPerformClosesItsGroup(t *testing.T) {
	s, _ := builder.Session(`<p>a</p>`)
	doc := s.Tree()
	text := child(doc.Root(), 0, 0)

	require.NoError(t, s.Perform("type", func() { doc.InsertCharacters(text, 1, "b") }))
	assert.Equal(t, undo.Idle, s.UndoManager().State())
	// A mutation made outside of an edit is undone on its own.
	doc.InsertCharacters(text, 2, "c")
	assert.Equal(t, 2, s.UndoManager().GetIndex())

	require.NoError(t, s.Undo())
	assert.Equal(t, "ab", text.Text())
	require.NoError(t, s.Undo())
	assert.Equal(t, "a", text.Text())
}

func TestPerformDuringReplay(t *testing.T) {
	s, _ := builder.Session(`<p>a</p>`)
	m := s.UndoManager()
	var inner error
	m.NewGroup("replay", nil)
	m.AddAction("perform during replay", func() {
		inner = s.Perform("nested", func() {})
	})

	require.NoError(t, s.Undo())
	assert.Equal(t, undo.ErrReplayInProgress, inner)
}

func TestTrackScope(t *testing.T) {
	s, tags := builder.Session(`<p>a{a}b</p>`)
	doc := s.Tree()
	pos := tags["a"]

	require.NoError(t, s.Perform("type", func() {
		s.Track(pos)
		assert.True(t, pos.IsTracked())
		doc.InsertCharacters(pos.Node(), 0, "x")
	}))
	assert.Equal(t, 2, pos.Offset())
	assert.False(t, pos.IsTracked())
	assert.Equal(t, 0, doc.TrackedCount())

	assert.Panics(t, func() { s.Track(pos) })
}

func TestSessionLoad(t *testing.T) {
	s := NewSession(basic.Default)
	src := `<html><body>intro<p id="a">x</p><p id="a">y</p><ul><li>item</li></ul></body></html>`
	require.NoError(t, s.Load(strings.NewReader(src)))

	root := s.Tree().Root()
	assert.Equal(t, `body(p("intro"), p("x"), p("y"), ul(li(p("item"))))`, root.String())
	id, _ := child(root, 2).Attr("id")
	assert.Equal(t, "a1", id)
	assert.False(t, s.UndoManager().CanUndo())
	assert.NoError(t, CheckHierarchy(s.Tree()))
}

func TestUndoRedoThroughSession(t *testing.T) {
	s, _ := builder.Session(`<p>a</p>`)
	doc := s.Tree()
	root := doc.Root()
	var states []string
	states = append(states, root.HTML())
	for _, word := range []string{"one", "two", "three"} {
		require.NoError(t, s.Perform("add "+word, func() {
			doc.AppendChild(root, doc.NewText(word))
		}))
		states = append(states, root.HTML())
	}

	require.NoError(t, s.SetIndex(0))
	assert.Equal(t, states[0], root.HTML())
	require.NoError(t, s.SetIndex(2))
	assert.Equal(t, states[2], root.HTML())

	// A new edit drops the redo stack.
	require.NoError(t, s.Perform("other", func() {
		doc.InsertCharacters(child(root, 0, 0), 0, "z")
	}))
	assert.False(t, s.UndoManager().CanRedo())
	assert.Equal(t, 3, s.UndoManager().GetLength())
}
