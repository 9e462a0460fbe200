package model

// SameMarkup compares the name and the attributes of two nodes, but not
// their content.
func SameMarkup(a, b *Node) bool {
	if a.kind != b.kind || a.name != b.name || len(a.attrs) != len(b.attrs) {
		return false
	}
	for k, v := range a.attrs {
		if w, ok := b.attrs[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Eq reports whether two nodes have the same markup and the same content.
// Identities are not compared, so a node equals its deep clone.
func Eq(a, b *Node) bool {
	if !SameMarkup(a, b) {
		return false
	}
	if a.IsText() {
		return string(a.text) == string(b.text)
	}
	return FindDiffStart(a, b) == nil
}

// FindDiffStart returns the first position in a where the content of a and
// b differ, or nil when it is the same.
func FindDiffStart(a, b *Node) *Position {
	for i := 0; ; i++ {
		if i == a.ChildCount() || i == b.ChildCount() {
			if a.ChildCount() == b.ChildCount() {
				return nil
			}
			return &Position{node: a, offset: i}
		}
		childA := a.content.content[i]
		childB := b.content.content[i]
		if childA == childB {
			continue
		}
		if !SameMarkup(childA, childB) {
			return &Position{node: a, offset: i}
		}
		if childA.IsText() {
			ta, tb := childA.text, childB.text
			j := 0
			for j < len(ta) && j < len(tb) && ta[j] == tb[j] {
				j++
			}
			if j < len(ta) || j < len(tb) {
				return &Position{node: childA, offset: j}
			}
			continue
		}
		if inner := FindDiffStart(childA, childB); inner != nil {
			return inner
		}
	}
}

// FindDiffEnd returns the last positions, in a and in b, where their
// content differs, or nil when it is the same.
func FindDiffEnd(a, b *Node) (*Position, *Position) {
	ia, ib := a.ChildCount(), b.ChildCount()
	for {
		if ia == 0 || ib == 0 {
			if ia == ib {
				return nil, nil
			}
			return &Position{node: a, offset: ia}, &Position{node: b, offset: ib}
		}
		ia--
		ib--
		childA := a.content.content[ia]
		childB := b.content.content[ib]
		if childA == childB {
			continue
		}
		if !SameMarkup(childA, childB) {
			return &Position{node: a, offset: ia + 1}, &Position{node: b, offset: ib + 1}
		}
		if childA.IsText() {
			ta, tb := childA.text, childB.text
			same := 0
			for same < len(ta) && same < len(tb) && ta[len(ta)-same-1] == tb[len(tb)-same-1] {
				same++
			}
			if same < len(ta) || same < len(tb) {
				return &Position{node: childA, offset: len(ta) - same}, &Position{node: childB, offset: len(tb) - same}
			}
			continue
		}
		if pa, pb := FindDiffEnd(childA, childB); pa != nil {
			return pa, pb
		}
	}
}
