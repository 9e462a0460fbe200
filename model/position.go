package model

import (
	"fmt"
	"iter"
	"unicode"
)

// Position identifies a location in a tree. For a text node, the offset is a
// character index in [0, Len]. For an element, it is a child index in
// [0, ChildCount], meaning between child offset-1 and child offset.
//
// A tracked position is kept consistent by the primitive mutations of the
// tree; an untracked one is only valid until the next mutation.
type Position struct {
	node     *Node
	offset   int
	tracking int
}

// NewPosition returns an untracked position.
func NewPosition(node *Node, offset int) *Position {
	if node == nil {
		Misusef("NewPosition", "nil node")
	}
	return &Position{node: node, offset: offset}
}

// Node is the node the position is in.
func (p *Position) Node() *Node { return p.node }

// Offset is the character or child index of the position.
func (p *Position) Offset() int { return p.offset }

// IsTracked reports whether the position is registered with its tree.
func (p *Position) IsTracked() bool { return p.tracking > 0 }

// Set moves the position. A tracked position stays tracked.
func (p *Position) Set(node *Node, offset int) {
	if p.tracking > 0 && p.node != node {
		p.node.tree.unregister(p)
		p.node = node
		p.offset = offset
		node.tree.register(p)
		return
	}
	p.node = node
	p.offset = offset
}

// Copy returns an untracked position at the same location.
func (p *Position) Copy() *Position {
	return &Position{node: p.node, offset: p.offset}
}

func (p *Position) String() string {
	if p.node.IsText() {
		text := p.node.text
		if p.offset < 0 || p.offset > len(text) {
			return fmt.Sprintf("%q!%d", string(text), p.offset)
		}
		return fmt.Sprintf("%q", string(text[:p.offset])+"|"+string(text[p.offset:]))
	}
	return fmt.Sprintf("(%s#%d,%d)", p.node.name, p.node.id, p.offset)
}

// Validate checks that the node of the position is attached and that the
// offset is in range.
func (p *Position) Validate() error {
	if !p.node.IsAttached() {
		return fmt.Errorf("Position node %s is not in tree", p.node.name)
	}
	if p.offset < 0 || p.offset > p.node.Len() {
		return fmt.Errorf("Position (in %s) has invalid offset %d (max allowed is %d)",
			p.node.name, p.offset, p.node.Len())
	}
	return nil
}

// Equal reports whether a and b denote the same location. Two nil positions
// are equal.
func Equal(a, b *Position) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.node == b.node && a.offset == b.offset
}

// indexPath returns the child indexes leading from the root to the node,
// followed by the offset.
func (p *Position) indexPath(op string) []int {
	if !p.node.IsAttached() {
		Invariantf(op, "position %s is not in tree", p)
	}
	path := []int{p.offset}
	for n := p.node; n.parent != nil; n = n.parent {
		path = append(path, n.Index())
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Compare returns a negative number when a is before b in document order, a
// positive one when it is after, and 0 when they are equal. A point between
// children comes before everything inside the child that follows it.
func Compare(a, b *Position) int {
	if a.node == b.node {
		return a.offset - b.offset
	}
	pa := a.indexPath("Compare")
	pb := b.indexPath("Compare")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] - pb[i]
		}
	}
	return len(pa) - len(pb)
}

// Prev returns the position just before p, descending into the end of the
// preceding child. It returns nil at the start of the root.
func (p *Position) Prev() *Position {
	n := p.node
	if n.IsText() {
		if p.offset > 0 {
			return &Position{node: n, offset: p.offset - 1}
		}
	} else if p.offset > 0 {
		child := n.MaybeChild(p.offset - 1)
		if child != nil {
			return &Position{node: child, offset: child.Len()}
		}
	}
	if n.parent == nil {
		return nil
	}
	return &Position{node: n.parent, offset: n.Index()}
}

// Next returns the position just after p, descending into the start of the
// following child. It returns nil at the end of the root.
func (p *Position) Next() *Position {
	n := p.node
	if n.IsText() {
		if p.offset < len(n.text) {
			return &Position{node: n, offset: p.offset + 1}
		}
	} else if child := n.MaybeChild(p.offset); child != nil {
		return &Position{node: child, offset: 0}
	}
	if n.parent == nil {
		return nil
	}
	return &Position{node: n.parent, offset: n.Index() + 1}
}

// PrevMatch returns the first position before p satisfying fn, or nil.
func (p *Position) PrevMatch(fn func(*Position) bool) *Position {
	pos := p.Prev()
	for pos != nil && !fn(pos) {
		pos = pos.Prev()
	}
	return pos
}

// NextMatch returns the first position after p satisfying fn, or nil.
func (p *Position) NextMatch(fn func(*Position) bool) *Position {
	pos := p.Next()
	for pos != nil && !fn(pos) {
		pos = pos.Next()
	}
	return pos
}

// Forwards is the lazy sequence of positions from p to the end of the
// document, p included.
func (p *Position) Forwards() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for pos := p.Copy(); pos != nil; pos = pos.Next() {
			if !yield(pos) {
				return
			}
		}
	}
}

// Backwards is the lazy sequence of positions from p to the start of the
// document, p included.
func (p *Position) Backwards() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for pos := p.Copy(); pos != nil; pos = pos.Prev() {
			if !yield(pos) {
				return
			}
		}
	}
}

// ClosestMatchForwards returns the first position from p onwards that
// satisfies fn, or nil when the end of the document is reached first.
func ClosestMatchForwards(p *Position, fn func(*Position) bool) *Position {
	if p == nil {
		return nil
	}
	for pos := range p.Forwards() {
		if fn(pos) {
			return pos
		}
	}
	return nil
}

// ClosestMatchBackwards returns the first position from p backwards that
// satisfies fn, or nil when the start of the document is reached first.
func ClosestMatchBackwards(p *Position, fn func(*Position) bool) *Position {
	if p == nil {
		return nil
	}
	for pos := range p.Backwards() {
		if fn(pos) {
			return pos
		}
	}
	return nil
}

// NearestMatch looks for a position satisfying fn close to p: p itself or
// an equivalent text position, then forwards, then backwards. When nothing
// matches, it returns the end of the root.
func NearestMatch(p *Position, fn func(*Position) bool, forwards bool) *Position {
	if p == nil {
		return nil
	}
	if !fn(p) {
		p = equivalentPosition(p, fn)
	}
	if fn(p) {
		return p
	}
	first, second := p.NextMatch, p.PrevMatch
	if !forwards {
		first, second = p.PrevMatch, p.NextMatch
	}
	if pos := first(fn); pos != nil {
		return pos
	}
	if pos := second(fn); pos != nil {
		return pos
	}
	root := p.node.tree.root
	return &Position{node: root, offset: root.ChildCount()}
}

func equivalentPosition(p *Position, fn func(*Position) bool) *Position {
	n := p.node
	if !n.IsText() {
		if before := n.MaybeChild(p.offset - 1); before != nil && before.IsText() {
			if c := (&Position{node: before, offset: len(before.text)}); fn(c) {
				return c
			}
		}
		if after := n.MaybeChild(p.offset); after != nil && after.IsText() {
			if c := (&Position{node: after, offset: 0}); fn(c) {
				return c
			}
		}
		return p
	}
	for _, r := range n.text[p.offset:] {
		if !unicode.IsSpace(r) {
			return p
		}
	}
	// Trailing white space renders as one space: stand just after it.
	trail := len(n.text)
	for trail > 0 && unicode.IsSpace(n.text[trail-1]) {
		trail--
	}
	if trail == len(n.text) {
		return p
	}
	return &Position{node: n, offset: trail + 1}
}

// PreferTextPosition moves a position between children into an adjacent
// text node, when there is one.
func PreferTextPosition(p *Position) *Position {
	n := p.node
	if !n.IsText() {
		if before := n.MaybeChild(p.offset - 1); before != nil && before.IsText() {
			return &Position{node: before, offset: len(before.text)}
		}
		if after := n.MaybeChild(p.offset); after != nil && after.IsText() {
			return &Position{node: after, offset: 0}
		}
	}
	return p
}

// PreferElementPosition moves a position at either end of a text node
// between the children of its parent.
func PreferElementPosition(p *Position) *Position {
	n := p.node
	if n.IsText() {
		if n.parent == nil {
			Invariantf("PreferElementPosition", "position %s has no parent node", p)
		}
		if p.offset == 0 {
			return &Position{node: n.parent, offset: n.Index()}
		}
		if p.offset == len(n.text) {
			return &Position{node: n.parent, offset: n.Index() + 1}
		}
	}
	return p
}

// ClosestActualNode returns the node the position is in or next to. Between
// two children, the following one is returned, unless preferElement is set
// and only the preceding one is an element.
func ClosestActualNode(p *Position, preferElement bool) *Node {
	n := p.node
	if n.IsText() || n.ChildCount() == 0 {
		return n
	}
	if p.offset == 0 {
		return n.FirstChild()
	}
	if p.offset >= n.ChildCount() {
		return n.LastChild()
	}
	prev := n.MaybeChild(p.offset - 1)
	next := n.MaybeChild(p.offset)
	if preferElement && next.IsText() && !prev.IsText() {
		return prev
	}
	return next
}

// IsWordChar is the predicate used by word movement.
var IsWordChar = func(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// MoveToStartOfWord moves a text position left while the characters before
// it are word characters. It does nothing for element positions.
func (p *Position) MoveToStartOfWord() {
	if !p.node.IsText() {
		return
	}
	offset := p.offset
	for offset > 0 && IsWordChar(p.node.text[offset-1]) {
		offset--
	}
	p.Set(p.node, offset)
}

// MoveToEndOfWord moves a text position right while the characters after
// it are word characters. It does nothing for element positions.
func (p *Position) MoveToEndOfWord() {
	if !p.node.IsText() {
		return
	}
	offset := p.offset
	for offset < len(p.node.text) && IsWordChar(p.node.text[offset]) {
		offset++
	}
	p.Set(p.node, offset)
}

// OkForInsertion reports whether content may be inserted at p.
func OkForInsertion(p *Position) bool {
	return OkForMovement(p, true)
}

// OkForMovement reports whether the cursor may be placed at p. Positions
// inside opaque nodes are never acceptable; in text, a position is
// acceptable next to a visible character.
func OkForMovement(p *Position, insertion bool) bool {
	n := p.node
	policy := n.tree.policy
	for a := n; a != nil; a = a.parent {
		if !a.IsText() && policy.IsOpaque(a) {
			return false
		}
	}
	if n.IsText() {
		return okInText(p, insertion)
	}
	if n.ChildCount() == 0 {
		return n.IsParagraph() || n.IsContainer() || n.kind == Inline
	}
	prev := n.MaybeChild(p.offset - 1)
	next := n.MaybeChild(p.offset)
	if next != nil && policy.IsOpaque(next) && next.IsInline() {
		return false
	}
	if prev != nil && !prev.IsText() && policy.IsOpaque(prev) {
		return next == nil || next.IsWhitespace()
	}
	if (prev != nil && prev.IsText()) || (next != nil && next.IsText()) {
		return false
	}
	// Between two blocks there is no line to put the cursor on.
	return n.IsParagraph() || n.kind == Inline
}

func okInText(p *Position, insertion bool) bool {
	n := p.node
	// Adjacent text nodes are considered as one.
	value := append([]rune(nil), n.text...)
	offset := p.offset
	first, last := n, n
	for first.PrevSibling() != nil && first.PrevSibling().IsText() {
		first = first.PrevSibling()
		value = append(append([]rune(nil), first.text...), value...)
		offset += len(first.text)
	}
	for last.NextSibling() != nil && last.NextSibling().IsText() {
		last = last.NextSibling()
		value = append(value, last.text...)
	}
	visible := func(i int) bool {
		return i >= 0 && i < len(value) && !unicode.IsSpace(value[i])
	}
	havePrev := visible(offset - 1)
	haveNext := visible(offset)
	if havePrev && haveNext {
		return true
	}
	allSpace := true
	for _, r := range value {
		if !unicode.IsSpace(r) {
			allSpace = false
			break
		}
	}
	if allSpace {
		if offset != 0 {
			return false
		}
		if first.PrevSibling() == nil && last.NextSibling() == nil {
			return true
		}
		prev := first.PrevSibling()
		return insertion && prev != nil && prev.IsInline() && !n.tree.policy.IsOpaque(prev)
	}
	if insertion {
		return true
	}
	return havePrev || haveNext
}
