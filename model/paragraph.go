package model

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Run is the span [Start, End) that a text node covers in the flattened
// text of its paragraph.
type Run struct {
	Node  *Node
	Start int
	End   int
}

// Boundaries delimit a paragraph as the children [Start, End) of Node. This
// is either the content of a paragraph element, or a sequence of inline
// nodes between two blocks.
type Boundaries struct {
	Node  *Node
	Start int
	End   int
}

// FindParagraphBoundaries climbs from pos out of inline content, and
// extends the span over the adjacent inline siblings.
func FindParagraphBoundaries(pos *Position) Boundaries {
	if err := pos.Validate(); err != nil {
		Invariantf("FindParagraphBoundaries", "%s", err)
	}
	start, end := pos.offset, pos.offset
	n := pos.node
	for n.IsInline() && n.parent != nil {
		start = n.Index()
		end = start + 1
		n = n.parent
	}
	if n.IsText() {
		Invariantf("FindParagraphBoundaries", "not an element node: %s", n)
	}
	for start > 0 && n.MaybeChild(start-1).IsInline() {
		start--
	}
	for end < n.ChildCount() && n.MaybeChild(end).IsInline() {
		end++
	}
	return Boundaries{Node: n, Start: start, End: end}
}

// ParagraphText is the flattened text of a paragraph and the runs mapping it
// back to text nodes. Offsets are character indexes.
type ParagraphText struct {
	Boundaries
	Runs []Run
	Text string

	runes []rune
}

// AnalyseParagraph reconstructs the paragraph around pos.
func AnalyseParagraph(pos *Position) *ParagraphText {
	b := FindParagraphBoundaries(pos)
	p := &ParagraphText{Boundaries: b}
	var sb strings.Builder
	offset := 0
	var recurse func(n *Node)
	recurse = func(n *Node) {
		if n.IsText() {
			sb.WriteString(string(n.text))
			p.Runs = append(p.Runs, Run{Node: n, Start: offset, End: offset + len(n.text)})
			offset += len(n.text)
		}
		for _, c := range n.content.content {
			recurse(c)
		}
	}
	for i := b.Start; i < b.End; i++ {
		recurse(b.Node.MaybeChild(i))
	}
	p.Text = sb.String()
	p.runes = []rune(p.Text)
	return p
}

// Len returns the number of characters of the paragraph.
func (p *ParagraphText) Len() int { return len(p.runes) }

// RunFromOffset returns the run holding the character at offset. When end
// is set, the run holding the character before offset is returned instead,
// so that an offset between two runs belongs to the first one. It returns
// nil when no run matches.
func (p *ParagraphText) RunFromOffset(offset int, end bool) *Run {
	if len(p.Runs) == 0 {
		Invariantf("RunFromOffset", "paragraph has no runs")
	}
	for i := range p.Runs {
		r := &p.Runs[i]
		if !end {
			if offset >= r.Start && offset < r.End {
				return r
			}
			if i == len(p.Runs)-1 && offset == r.End {
				return r
			}
		} else {
			if offset > r.Start && offset <= r.End {
				return r
			}
			if i == 0 && offset == 0 {
				return r
			}
		}
	}
	return nil
}

// RunFromNode returns the run of a text node of the paragraph.
func (p *ParagraphText) RunFromNode(n *Node) *Run {
	for i := range p.Runs {
		if p.Runs[i].Node == n {
			return &p.Runs[i]
		}
	}
	Invariantf("RunFromNode", "run for text node #%d not found", n.id)
	return nil
}

// PositionAtOffset maps a paragraph offset back to a text position.
func (p *ParagraphText) PositionAtOffset(offset int, end bool) *Position {
	r := p.RunFromOffset(offset, end)
	if r == nil {
		Invariantf("PositionAtOffset", "run at offset %d not found", offset)
	}
	return &Position{node: r.Node, offset: offset - r.Start}
}

// OffsetAtPosition maps a text position to a paragraph offset.
func (p *ParagraphText) OffsetAtPosition(pos *Position) int {
	return p.RunFromNode(pos.node).Start + pos.offset
}

// NextCharacter returns the offset of the grapheme cluster boundary after
// offset, or the length of the paragraph.
func (p *ParagraphText) NextCharacter(offset int) int {
	for _, b := range p.graphemeBoundaries() {
		if b > offset {
			return b
		}
	}
	return len(p.runes)
}

// PrevCharacter returns the offset of the grapheme cluster boundary before
// offset, or 0.
func (p *ParagraphText) PrevCharacter(offset int) int {
	prev := 0
	for _, b := range p.graphemeBoundaries() {
		if b >= offset {
			break
		}
		prev = b
	}
	return prev
}

// graphemeBoundaries lists the end offsets of the grapheme clusters.
func (p *ParagraphText) graphemeBoundaries() []int {
	var bounds []int
	offset := 0
	g := uniseg.NewGraphemes(p.Text)
	for g.Next() {
		offset += len(g.Runes())
		bounds = append(bounds, offset)
	}
	return bounds
}

type segment struct {
	start, end int
	word       bool
}

// words splits the paragraph at Unicode word boundaries.
func (p *ParagraphText) words() []segment {
	var segs []segment
	rest := p.Text
	state := -1
	offset := 0
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		size := len([]rune(word))
		isWord := false
		for _, r := range word {
			if IsWordChar(r) {
				isWord = true
				break
			}
		}
		segs = append(segs, segment{start: offset, end: offset + size, word: isWord})
		offset += size
	}
	return segs
}

// WordStart returns the start of the word that holds or ends at offset, or
// offset itself outside of words.
func (p *ParagraphText) WordStart(offset int) int {
	for _, s := range p.words() {
		if s.word && s.start < offset && offset <= s.end {
			return s.start
		}
	}
	return offset
}

// WordEnd returns the end of the word that holds or starts at offset, or
// offset itself outside of words.
func (p *ParagraphText) WordEnd(offset int) int {
	for _, s := range p.words() {
		if s.word && s.start <= offset && offset < s.end {
			return s.end
		}
	}
	return offset
}
