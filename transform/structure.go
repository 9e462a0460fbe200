package transform

import (
	"regexp"
	"strconv"

	"github.com/cozy/docengine/model"
)

// The structural operations below are compositions of the primitive
// mutations of model.Tree, so they are undoable and keep the tracked
// positions consistent. Where the primitives alone would collapse a tracked
// position, it is relocated the way a user would expect.

type savedPosition struct {
	pos    *model.Position
	offset int
}

func saveTracked(n *model.Node) []savedPosition {
	tracked := n.Tree().TrackedPositions(n)
	saved := make([]savedPosition, len(tracked))
	for i, p := range tracked {
		saved[i] = savedPosition{pos: p, offset: p.Offset()}
	}
	return saved
}

func siblingsBetween(first, last *model.Node) []*model.Node {
	var nodes []*model.Node
	for n := first; n != nil; n = n.NextSibling() {
		nodes = append(nodes, n)
		if n == last {
			return nodes
		}
	}
	model.Misusef("WrapSiblings", "%s is not a following sibling of %s", last, first)
	return nil
}

// WrapNode wraps n in a new element.
func WrapNode(n *model.Node, name string) *model.Node {
	return WrapSiblings(n, n, name)
}

// WrapSiblings moves the siblings from first to last into a new element
// inserted where they were, and returns it. Tracked positions between the
// wrapped siblings move into the wrapper.
func WrapSiblings(first, last *model.Node, name string) *model.Node {
	const op = "WrapSiblings"
	parent := first.Parent()
	if parent == nil || last.Parent() != parent {
		model.Misusef(op, "%s and %s are not siblings", first, last)
	}
	t := parent.Tree()
	nodes := siblingsBetween(first, last)
	firstOffset := first.Index()
	lastOffset := firstOffset + len(nodes) - 1
	saved := saveTracked(parent)

	wrapper := t.NewElement(name, nil)
	t.InsertBefore(parent, wrapper, first)
	for _, n := range nodes {
		t.AppendChild(wrapper, n)
	}

	for _, s := range saved {
		switch {
		case s.offset >= firstOffset && s.offset <= lastOffset+1:
			s.pos.Set(wrapper, s.offset-firstOffset)
		case s.offset > lastOffset+1:
			s.pos.Set(parent, s.offset-(len(nodes)-1))
		default:
			s.pos.Set(parent, s.offset)
		}
	}
	return wrapper
}

// RemoveNodeButKeepChildren replaces n by its children. Tracked positions
// in n move to the same place in its parent.
func RemoveNodeButKeepChildren(n *model.Node) {
	parent := n.Parent()
	if parent == nil {
		model.Misusef("RemoveNodeButKeepChildren", "%s has no parent", n)
	}
	t := n.Tree()
	offset := n.Index()
	count := n.ChildCount()
	savedParent := saveTracked(parent)
	savedNode := saveTracked(n)

	for _, child := range n.Children() {
		t.InsertBefore(parent, child, n)
	}
	t.DeleteNode(n)

	for _, s := range savedParent {
		if s.offset > offset {
			s.pos.Set(parent, s.offset+count-1)
		} else {
			s.pos.Set(parent, s.offset)
		}
	}
	for _, s := range savedNode {
		s.pos.Set(parent, offset+s.offset)
	}
}

// ReplaceElement replaces n by a new element with the same attributes and
// children, and returns it.
func ReplaceElement(n *model.Node, name string) *model.Node {
	parent := n.Parent()
	if parent == nil || n.IsText() {
		model.Misusef("ReplaceElement", "cannot replace %s", n)
	}
	t := n.Tree()
	saved := saveTracked(n)
	replacement := t.NewElement(name, n.Attrs())
	t.InsertBefore(parent, replacement, n)
	for _, child := range n.Children() {
		t.AppendChild(replacement, child)
	}
	t.DeleteNode(n)
	for _, s := range saved {
		s.pos.Set(replacement, s.offset)
	}
	return replacement
}

// NodesMergeable reports whether a and b can be merged. Text nodes always
// can. Elements can when they have the same name and attributes and the
// name is in the whitelist; the "force" key of the whitelist merges any two
// paragraphs.
func NodesMergeable(a, b *model.Node, whitelist map[string]bool) bool {
	if a.IsText() && b.IsText() {
		return true
	}
	if a.IsText() || b.IsText() {
		return false
	}
	if whitelist["force"] && a.IsParagraph() && b.IsParagraph() {
		return true
	}
	return a.Name() == b.Name() && whitelist[a.Name()] && model.SameMarkup(a, b)
}

// MergeWithNextSibling merges the next sibling of current into it, when
// they are mergeable, and then goes on with the last child.
func MergeWithNextSibling(current *model.Node, whitelist map[string]bool) {
	next := current.NextSibling()
	if next == nil || !NodesMergeable(current, next, whitelist) {
		return
	}
	t := current.Tree()
	parent := current.Parent()
	if current.IsText() {
		length := current.Len()
		nextOffset := next.Index()
		savedNext := saveTracked(next)
		var savedParent []savedPosition
		for _, s := range saveTracked(parent) {
			if s.offset == nextOffset {
				savedParent = append(savedParent, s)
			}
		}
		t.InsertCharacters(current, length, next.Text())
		t.DeleteNode(next)
		for _, s := range savedNext {
			s.pos.Set(current, length+s.offset)
		}
		for _, s := range savedParent {
			s.pos.Set(current, length)
		}
		return
	}
	last := current.LastChild()
	t.AppendChild(current, next)
	RemoveNodeButKeepChildren(next)
	if last != nil {
		MergeWithNextSibling(last, whitelist)
	}
}

// DeleteAllChildren removes every child of n.
func DeleteAllChildren(n *model.Node) {
	t := n.Tree()
	for n.FirstChild() != nil {
		t.DeleteNode(n.FirstChild())
	}
}

func onlyWhitespace(nodes []*model.Node) bool {
	for _, n := range nodes {
		if !n.IsWhitespace() {
			return false
		}
	}
	return true
}

// MovePreceding splits the ancestors of pos, up to the first one accepted
// by stop or the root: the content before pos goes into copies of the
// ancestors inserted before them. With force, an empty copy is made even
// when there is nothing to move. It returns the end of the innermost copy,
// or pos when nothing was copied.
func MovePreceding(pos *model.Position, stop func(*model.Node) bool, force bool) *model.Position {
	node := pos.Node()
	t := node.Tree()
	if stop(node) || node == t.Root() {
		return pos
	}
	if node.IsText() {
		model.Misusef("MovePreceding", "position %s is in a text node", pos)
	}
	var toMove []*model.Node
	for i := 0; i < pos.Offset(); i++ {
		toMove = append(toMove, node.MaybeChild(i))
	}
	result := pos
	parent := node.Parent()
	if len(toMove) > 0 || force {
		if onlyWhitespace(toMove) && !force {
			for _, n := range toMove {
				t.InsertBefore(parent, n, node)
			}
		} else {
			clone := t.ShallowCopy(node)
			t.InsertBefore(parent, clone, node)
			for _, n := range toMove {
				t.AppendChild(clone, n)
			}
			result = model.NewPosition(clone, clone.ChildCount())
		}
	}
	MovePreceding(model.NewPosition(parent, node.Index()), stop, force)
	return result
}

// MoveFollowing is MovePreceding for the content after pos: it goes into
// copies of the ancestors inserted after them. It returns the start of the
// innermost copy, or pos when nothing was copied.
func MoveFollowing(pos *model.Position, stop func(*model.Node) bool, force bool) *model.Position {
	node := pos.Node()
	t := node.Tree()
	if stop(node) || node == t.Root() {
		return pos
	}
	if node.IsText() {
		model.Misusef("MoveFollowing", "position %s is in a text node", pos)
	}
	var toMove []*model.Node
	for i := pos.Offset(); i < node.ChildCount(); i++ {
		toMove = append(toMove, node.MaybeChild(i))
	}
	result := pos
	parent := node.Parent()
	if len(toMove) > 0 || force {
		ref := node.NextSibling()
		if onlyWhitespace(toMove) && !force {
			for _, n := range toMove {
				t.InsertBefore(parent, n, ref)
			}
		} else {
			clone := t.ShallowCopy(node)
			t.InsertBefore(parent, clone, ref)
			for _, n := range toMove {
				t.AppendChild(clone, n)
			}
			result = model.NewPosition(clone, 0)
		}
	}
	MoveFollowing(model.NewPosition(parent, node.Index()+1), stop, force)
	return result
}

// ReplaceCharacters replaces the characters [start, end) of a text node.
// Tracked positions at end are left after the replacement.
func ReplaceCharacters(n *model.Node, start, end int, replacement string) {
	t := n.Tree()
	t.TypeCharacters(n, end, replacement)
	t.DeleteCharacters(n, start, end)
}

// RemoveAdjacentWhitespace deletes the white space text nodes around n.
func RemoveAdjacentWhitespace(n *model.Node) {
	t := n.Tree()
	for prev := n.PrevSibling(); prev != nil && prev.IsWhitespace(); prev = n.PrevSibling() {
		t.DeleteNode(prev)
	}
	for next := n.NextSibling(); next != nil && next.IsWhitespace(); next = n.NextSibling() {
		t.DeleteNode(next)
	}
}

var trailingDigits = regexp.MustCompile(`[0-9]+$`)

// EnsureUniqueIDs renames the elements of the subtree of root whose id
// attribute repeats the id of a previous element. The new id is the old
// one without its trailing digits, followed by the first free number.
func EnsureUniqueIDs(root *model.Node) {
	ids := make(map[string]bool)
	var duplicates []*model.Node
	var discover func(n *model.Node)
	discover = func(n *model.Node) {
		if n.IsText() {
			return
		}
		if id, ok := n.Attr("id"); ok && id != "" {
			if ids[id] {
				duplicates = append(duplicates, n)
			} else {
				ids[id] = true
			}
		}
		n.ForEach(func(child *model.Node, _ int) { discover(child) })
	}
	discover(root)

	t := root.Tree()
	next := make(map[string]int)
	for _, n := range duplicates {
		id, _ := n.Attr("id")
		prefix := trailingDigits.ReplaceAllString(id, "")
		num := next[prefix]
		if num == 0 {
			num = 1
		}
		candidate := prefix + strconv.Itoa(num)
		for ids[candidate] {
			num++
			candidate = prefix + strconv.Itoa(num)
		}
		t.SetAttribute(n, "id", candidate)
		ids[candidate] = true
		next[prefix] = num + 1
	}
}

// significantChildren reports whether n has a child that is not white
// space text.
func significantChildren(n *model.Node) bool {
	for _, c := range n.Children() {
		if !c.IsWhitespace() {
			return true
		}
	}
	return false
}
