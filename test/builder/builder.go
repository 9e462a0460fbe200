// Package builder builds test documents from HTML. Markers like {a} in the
// text are removed and become tagged positions, so that a fixture such as
// <p>He{a}llo</p> names the position after "He".
package builder

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/cozy/docengine/model"
	"github.com/cozy/docengine/schema/basic"
	"github.com/cozy/docengine/transform"
)

// Tags maps marker names to the positions where they were found.
type Tags map[string]*model.Position

// Doc is a tree built from a fixture, with its tags.
type Doc struct {
	*model.Tree
	Tags Tags
}

var marker = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Load replaces the content of t with the HTML fragment src. Nothing is
// recorded in the undo log and no repair is scheduled, so the fixture can
// hold an invalid hierarchy.
func Load(t *model.Tree, src string) (Tags, error) {
	nodes, err := t.ParseHTML(src)
	if err != nil {
		return nil, err
	}
	t.Load(nil, nodes...)
	tags := Tags{}
	var texts []*model.Node
	t.Root().Descendants(func(n *model.Node) bool {
		if n.IsText() {
			texts = append(texts, n)
		}
		return true
	})

	var tracked []*model.Position
	var failure error
	t.UndoManager().DisableWhileExecuting(func() {
		t.RunRepair(func() {
			for _, n := range texts {
				text := n.Text()
				matches := marker.FindAllStringSubmatchIndex(text, -1)
				if len(matches) == 0 {
					continue
				}
				type span struct{ start, end int }
				spans := make([]span, len(matches))
				for i, m := range matches {
					name := text[m[2]:m[3]]
					if _, dup := tags[name]; dup {
						failure = fmt.Errorf("duplicate tag %q", name)
						return
					}
					start := utf8.RuneCountInString(text[:m[0]])
					end := start + utf8.RuneCountInString(text[m[0]:m[1]])
					spans[i] = span{start, end}
					p := model.NewPosition(n, start)
					t.Track(p)
					tracked = append(tracked, p)
					tags[name] = p
				}
				for i := len(spans) - 1; i >= 0; i-- {
					t.DeleteCharacters(n, spans[i].start, spans[i].end)
				}
				if n.Len() == 0 {
					t.DeleteNode(n)
				}
			}
		})
	})
	t.Untrack(tracked...)
	if failure != nil {
		return nil, failure
	}
	return tags, nil
}

// MustLoad is Load for fixtures known to be valid.
func MustLoad(t *model.Tree, src string) Tags {
	tags, err := Load(t, src)
	if err != nil {
		panic(err)
	}
	return tags
}

// Parse builds a standalone tree of the default grammar.
func Parse(src string) (*Doc, error) {
	t := model.NewTree(basic.Default)
	tags, err := Load(t, src)
	if err != nil {
		return nil, err
	}
	return &Doc{Tree: t, Tags: tags}, nil
}

// MustParse is Parse for fixtures known to be valid.
func MustParse(src string) *Doc {
	doc, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return doc
}

// Session returns a session of the default grammar editing the fixture.
func Session(src string, opts ...transform.SessionOption) (*transform.Session, Tags) {
	s := transform.NewSession(basic.Default, opts...)
	return s, MustLoad(s.Tree(), src)
}
