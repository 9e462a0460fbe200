package model

import (
	"fmt"
	"sort"
	"strings"
)

// Node is an element or a text node of a document tree. The root of a Tree
// is a Node, and so are all of its descendants.
//
// Nodes change only through the primitive mutations of their Tree, which
// keep the undo log and the tracked positions consistent. A node has at
// most one parent at a time; the parent pointer is a non-owning back
// reference.
type Node struct {
	id      int
	kind    Kind
	name    string
	attrs   map[string]string
	text    []rune
	content Fragment
	parent  *Node
	tree    *Tree
}

// ID is the integer identity of the node. It is assigned once, on creation,
// and never reused by the tree.
func (n *Node) ID() int { return n.id }

// Kind is the structural class of the node.
func (n *Node) Kind() Kind { return n.kind }

// Name is the element name of the node, or TextName for text nodes.
func (n *Node) Name() string { return n.name }

// Tree returns the tree that allocated the node.
func (n *Node) Tree() *Tree { return n.tree }

// True when this is a text node.
func (n *Node) IsText() bool { return n.kind == Text }

// True when this is a container node.
func (n *Node) IsContainer() bool { return n.kind == Container }

// True when this is a paragraph node.
func (n *Node) IsParagraph() bool { return n.kind == Paragraph }

// IsInline is true for inline elements and for text.
func (n *Node) IsInline() bool { return n.kind == Inline || n.kind == Text }

// IsBlock is true for containers and paragraphs.
func (n *Node) IsBlock() bool { return n.kind == Container || n.kind == Paragraph }

// Text returns the characters of a text node, and the empty string for
// elements.
func (n *Node) Text() string { return string(n.text) }

// Len returns the largest valid offset of a position in this node: the
// number of characters for text, the number of children otherwise.
func (n *Node) Len() int {
	if n.IsText() {
		return len(n.text)
	}
	return n.content.ChildCount()
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// AttrNames returns the names of the node's attributes in sorted order.
func (n *Node) AttrNames() []string {
	names := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Attrs returns a copy of the node's attributes.
func (n *Node) Attrs() map[string]string {
	attrs := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		attrs[k] = v
	}
	return attrs
}

// HasClass reports whether the class attribute of the node lists class.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

// Parent returns the parent node, or nil for a root or a detached node.
func (n *Node) Parent() *Node { return n.parent }

// The number of children that the node has.
func (n *Node) ChildCount() int { return n.content.ChildCount() }

// Get the child node at the given index. Raises an error when the index is out
// of range.
func (n *Node) Child(index int) (*Node, error) { return n.content.Child(index) }

// Get the child node at the given index, if it exists.
func (n *Node) MaybeChild(index int) *Node { return n.content.MaybeChild(index) }

// FirstChild returns the first child, if any.
func (n *Node) FirstChild() *Node { return n.content.MaybeChild(0) }

// LastChild returns the last child, if any.
func (n *Node) LastChild() *Node { return n.content.MaybeChild(n.content.ChildCount() - 1) }

// Children returns a copy of the list of children.
func (n *Node) Children() []*Node {
	children := make([]*Node, len(n.content.content))
	copy(children, n.content.content)
	return children
}

// ForEach calls fn for every child with its index.
func (n *Node) ForEach(fn func(child *Node, index int)) { n.content.ForEach(fn) }

// Index returns the offset of the node in its parent, or -1 without parent.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	return n.parent.content.IndexOf(n)
}

// PrevSibling returns the node just before this one in its parent.
func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.content.MaybeChild(n.Index() - 1)
}

// NextSibling returns the node just after this one in its parent.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.content.MaybeChild(n.Index() + 1)
}

// IsAncestorOf reports whether n is other or one of its ancestors.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Depth is the number of ancestors of the node.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// IsAttached reports whether the node is reachable from the root of its
// tree.
func (n *Node) IsAttached() bool {
	if n.tree == nil {
		return false
	}
	p := n
	for p.parent != nil {
		p = p.parent
	}
	return p == n.tree.root
}

// TextContent concatenates all the text nodes found in this node.
func (n *Node) TextContent() string {
	if n.IsText() {
		return string(n.text)
	}
	var sb strings.Builder
	n.Descendants(func(d *Node) bool {
		if d.IsText() {
			sb.WriteString(string(d.text))
		}
		return true
	})
	return sb.String()
}

// IsWhitespace is true for a text node made only of white space characters.
func (n *Node) IsWhitespace() bool {
	return n.IsText() && strings.TrimSpace(string(n.text)) == ""
}

// Descendants calls fn for the node's descendants in document order. When
// fn returns false for a given node, that node's children will not be
// recursed over.
func (n *Node) Descendants(fn func(node *Node) bool) {
	for _, child := range n.Children() {
		if fn(child) {
			child.Descendants(fn)
		}
	}
}

// Return a debugging string that describes this node, like
// body(p("AB"), ul(li(p("x")))).
func (n *Node) String() string {
	if n.IsText() {
		return fmt.Sprintf("%q", string(n.text))
	}
	name := n.name
	if n.ChildCount() > 0 {
		parts := make([]string, 0, n.ChildCount())
		for _, child := range n.content.content {
			parts = append(parts, child.String())
		}
		name += fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	}
	return name
}
