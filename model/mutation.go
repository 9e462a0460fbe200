package model

import (
	"fmt"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// The primitive mutations below are the only way to change an attached
// tree. Each of them records its inverse into the undo log, re-anchors the
// tracked positions, and schedules a repair when it may have broken the
// grammar.

// InsertBefore inserts child into parent before ref, or at the end when ref
// is nil. When child is already in the tree, it is moved.
func (t *Tree) InsertBefore(parent, child, ref *Node) {
	const op = "InsertBefore"
	t.checkAttached(op, parent)
	t.checkOwned(op, child)
	if parent.IsText() {
		Misusef(op, "cannot insert into a text node")
	}
	if ref != nil && ref.parent != parent {
		Misusef(op, "reference node is not a child of %s", parent.name)
	}
	if child == t.root || child.IsAncestorOf(parent) {
		Misusef(op, "inserting %s into %s would create a cycle", child.name, parent.name)
	}
	if child == ref {
		return
	}

	if oldParent := child.parent; oldParent != nil {
		if !oldParent.IsAttached() {
			Misusef(op, "cannot move %s out of a detached subtree", child.name)
		}
		oldOffset := child.Index()
		oldNext := child.NextSibling()
		oldParent.content.remove(oldOffset)
		child.parent = nil
		t.mapOffsets(oldParent, Splice{Start: oldOffset, Old: 1}, Before)
		t.undo.AddAction(fmt.Sprintf("move %s#%d back to %s#%d", child.name, child.id, oldParent.name, oldParent.id),
			func() { t.InsertBefore(oldParent, child, oldNext) })
	} else {
		t.undo.AddAction(fmt.Sprintf("delete %s#%d", child.name, child.id),
			func() { t.DeleteNode(child) })
	}

	offset := parent.ChildCount()
	if ref != nil {
		offset = ref.Index()
	}
	parent.content.insert(offset, child)
	child.parent = parent
	t.mapOffsets(parent, Splice{Start: offset, New: 1}, Before)
	t.scheduleRepair(child)
}

// AppendChild inserts or moves child at the end of parent.
func (t *Tree) AppendChild(parent, child *Node) {
	t.InsertBefore(parent, child, nil)
}

// DeleteNode detaches n from its parent. Tracked positions inside n move to
// where n was. Deleting a node without parent does nothing.
func (t *Tree) DeleteNode(n *Node) {
	const op = "DeleteNode"
	t.checkOwned(op, n)
	parent := n.parent
	if parent == nil {
		return
	}
	t.checkAttached(op, parent)
	offset := n.Index()
	next := n.NextSibling()
	parent.content.remove(offset)
	n.parent = nil
	t.mapOffsets(parent, Splice{Start: offset, Old: 1}, Before)
	t.relocateSubtree(n, parent, offset)
	t.undo.AddAction(fmt.Sprintf("reinsert %s#%d into %s#%d", n.name, n.id, parent.name, parent.id),
		func() { t.InsertBefore(parent, n, next) })
}

// InsertCharacters inserts s at offset in the text node n. Tracked
// positions at offset stay before the new characters.
func (t *Tree) InsertCharacters(n *Node, offset int, s string) {
	t.insertCharacters("InsertCharacters", n, offset, s, Before)
}

// TypeCharacters is InsertCharacters for typing at the cursor: tracked
// positions at offset move after the new characters.
func (t *Tree) TypeCharacters(n *Node, offset int, s string) {
	t.insertCharacters("TypeCharacters", n, offset, s, After)
}

func (t *Tree) insertCharacters(op string, n *Node, offset int, s string, assoc Assoc) {
	t.checkText(op, n)
	if offset < 0 || offset > len(n.text) {
		Misusef(op, "invalid offset %d for %d characters", offset, len(n.text))
	}
	chars := []rune(s)
	if len(chars) == 0 {
		return
	}
	text := make([]rune, 0, len(n.text)+len(chars))
	text = append(text, n.text[:offset]...)
	text = append(text, chars...)
	n.text = append(text, n.text[offset:]...)
	t.mapOffsets(n, Splice{Start: offset, New: len(chars)}, assoc)
	end := offset + len(chars)
	t.undo.AddAction(fmt.Sprintf("delete characters %d-%d of #%d", offset, end, n.id),
		func() { t.DeleteCharacters(n, offset, end) })
	t.scheduleRepair(n)
}

// DeleteCharacters removes the characters [start, end) of the text node n.
func (t *Tree) DeleteCharacters(n *Node, start, end int) {
	const op = "DeleteCharacters"
	t.checkText(op, n)
	if start < 0 || end < start || end > len(n.text) {
		Misusef(op, "invalid range %d-%d for %d characters", start, end, len(n.text))
	}
	if start == end {
		return
	}
	removed := string(n.text[start:end])
	text := make([]rune, 0, len(n.text)-(end-start))
	text = append(text, n.text[:start]...)
	n.text = append(text, n.text[end:]...)
	t.mapOffsets(n, Splice{Start: start, Old: end - start}, Before)
	t.undo.AddAction(fmt.Sprintf("insert %q at %d of #%d", removed, start, n.id),
		func() { t.InsertCharacters(n, start, removed) })
}

// MoveCharacters moves the characters [srcStart, srcEnd) of src to
// destOffset in dest. Tracked positions inside the moved span follow the
// characters; excludeStart and excludeEnd leave the positions at either
// end of the span behind.
func (t *Tree) MoveCharacters(src *Node, srcStart, srcEnd int, dest *Node, destOffset int, excludeStart, excludeEnd bool) {
	const op = "MoveCharacters"
	t.checkText(op, src)
	t.checkText(op, dest)
	if src == dest {
		Misusef(op, "src and dest text nodes cannot be the same")
	}
	if srcStart < 0 || srcEnd < srcStart || srcEnd > len(src.text) {
		Misusef(op, "invalid src range %d-%d", srcStart, srcEnd)
	}
	if destOffset < 0 || destOffset > len(dest.text) {
		Misusef(op, "invalid dest offset %d", destOffset)
	}
	length := srcEnd - srcStart

	for _, p := range t.tracked[dest.id] {
		if p.offset > destOffset || (!excludeStart && p.offset == destOffset) {
			p.offset += length
		}
	}
	for _, p := range t.TrackedPositions(src) {
		startMatch := p.offset > srcStart || (!excludeStart && p.offset == srcStart)
		endMatch := p.offset < srcEnd || (!excludeEnd && p.offset == srcEnd)
		if startMatch && endMatch {
			p.Set(dest, destOffset+p.offset-srcStart)
		} else if p.offset >= srcEnd {
			p.offset -= length
		}
	}

	extract := append([]rune(nil), src.text[srcStart:srcEnd]...)
	rest := make([]rune, 0, len(src.text)-length)
	rest = append(rest, src.text[:srcStart]...)
	src.text = append(rest, src.text[srcEnd:]...)
	text := make([]rune, 0, len(dest.text)+length)
	text = append(text, dest.text[:destOffset]...)
	text = append(text, extract...)
	dest.text = append(text, dest.text[destOffset:]...)

	t.undo.AddAction(fmt.Sprintf("move characters back from #%d to #%d", dest.id, src.id),
		func() {
			t.MoveCharacters(dest, destOffset, destOffset+length, src, srcStart, excludeStart, excludeEnd)
		})
	t.scheduleRepair(dest)
}

// SetText rewrites the text node n as value, through the smallest sequence
// of deletions and insertions, so that tracked positions in unchanged text
// keep their characters.
func (t *Tree) SetText(n *Node, value string) {
	t.checkText("SetText", n)
	old := string(n.text)
	if old == value {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, value, false)
	offset := 0
	for _, d := range diffs {
		size := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			offset += size
		case diffmatchpatch.DiffDelete:
			t.DeleteCharacters(n, offset, offset+size)
		case diffmatchpatch.DiffInsert:
			t.InsertCharacters(n, offset, d.Text)
			offset += size
		}
	}
}

// SetAttribute sets an attribute of the element n.
func (t *Tree) SetAttribute(n *Node, name, value string) {
	t.setAttribute("SetAttribute", n, name, &value)
}

// RemoveAttribute removes an attribute of the element n.
func (t *Tree) RemoveAttribute(n *Node, name string) {
	t.setAttribute("RemoveAttribute", n, name, nil)
}

func (t *Tree) setAttribute(op string, n *Node, name string, value *string) {
	t.checkAttached(op, n)
	if n.IsText() {
		Misusef(op, "text nodes have no attributes")
	}
	old, had := n.attrs[name]
	if (value == nil && !had) || (value != nil && had && old == *value) {
		return
	}
	if value == nil {
		delete(n.attrs, name)
	} else {
		n.attrs[name] = *value
	}
	if had {
		t.undo.AddAction(fmt.Sprintf("set %s=%q on #%d", name, old, n.id),
			func() { t.SetAttribute(n, name, old) })
	} else {
		t.undo.AddAction(fmt.Sprintf("remove %s from #%d", name, n.id),
			func() { t.RemoveAttribute(n, name) })
	}
}

func (t *Tree) checkText(op string, n *Node) {
	t.checkAttached(op, n)
	if !n.IsText() {
		Misusef(op, "%s is not a text node", n.name)
	}
}
