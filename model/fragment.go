package model

import "fmt"

// A Fragment is the ordered list of a node's children. It is owned by its
// node and only changed through the primitive mutations of Tree.
type Fragment struct {
	content []*Node
}

// ChildCount returns the number of child nodes in this fragment.
func (f *Fragment) ChildCount() int {
	return len(f.content)
}

// Child returns the child node at the given index. Raises an error when the
// index is out of range.
func (f *Fragment) Child(index int) (*Node, error) {
	if index < 0 || index >= len(f.content) {
		return nil, fmt.Errorf("Index %d out of range for %d children", index, len(f.content))
	}
	return f.content[index], nil
}

// MaybeChild returns the child node at the given index, if it exists.
func (f *Fragment) MaybeChild(index int) *Node {
	if index < 0 || index >= len(f.content) {
		return nil
	}
	return f.content[index]
}

// IndexOf returns the index of child, or -1 when it is not in the fragment.
func (f *Fragment) IndexOf(child *Node) int {
	for i, c := range f.content {
		if c == child {
			return i
		}
	}
	return -1
}

// ForEach calls fn for every child with its index.
func (f *Fragment) ForEach(fn func(node *Node, index int)) {
	for i, c := range f.content {
		fn(c, i)
	}
}

func (f *Fragment) insert(index int, child *Node) {
	f.content = append(f.content, nil)
	copy(f.content[index+1:], f.content[index:])
	f.content[index] = child
}

func (f *Fragment) remove(index int) {
	copy(f.content[index:], f.content[index+1:])
	f.content[len(f.content)-1] = nil
	f.content = f.content[:len(f.content)-1]
}
