package model

// PrevNode returns the node before n in document order: the deepest last
// descendant of its previous sibling, or its parent.
func PrevNode(n *Node) *Node {
	if prev := n.PrevSibling(); prev != nil {
		for prev.LastChild() != nil {
			prev = prev.LastChild()
		}
		return prev
	}
	return n.parent
}

// NextNodeAfter returns the node following n in document order, skipping
// the descendants of n. The callbacks, when not nil, are called for every
// node left and entered on the way.
func NextNodeAfter(n *Node, entering, exiting func(*Node)) *Node {
	for n != nil {
		if next := n.NextSibling(); next != nil {
			if exiting != nil {
				exiting(n)
			}
			if entering != nil {
				entering(next)
			}
			return next
		}
		if exiting != nil {
			exiting(n)
		}
		n = n.parent
	}
	return nil
}

// NextNode returns the node following n in document order, descending into
// its children first.
func NextNode(n *Node, entering, exiting func(*Node)) *Node {
	if first := n.FirstChild(); first != nil {
		if entering != nil {
			entering(first)
		}
		return first
	}
	return NextNodeAfter(n, entering, exiting)
}

// PrevTextNode returns the closest text node before n.
func PrevTextNode(n *Node) *Node {
	for n = PrevNode(n); n != nil && !n.IsText(); n = PrevNode(n) {
	}
	return n
}

// NextTextNode returns the closest text node after n.
func NextTextNode(n *Node) *Node {
	for n = NextNode(n, nil, nil); n != nil && !n.IsText(); n = NextNode(n, nil, nil) {
	}
	return n
}

// FirstChildElement returns the first child of n that is not text.
func FirstChildElement(n *Node) *Node {
	for _, c := range n.content.content {
		if !c.IsText() {
			return c
		}
	}
	return nil
}

// LastChildElement returns the last child of n that is not text.
func LastChildElement(n *Node) *Node {
	for i := len(n.content.content) - 1; i >= 0; i-- {
		if c := n.content.content[i]; !c.IsText() {
			return c
		}
	}
	return nil
}

// HasContent reports whether n holds something visible: non white space
// text, or an empty inline element such as an image.
func HasContent(n *Node) bool {
	if n.IsText() {
		return !n.IsWhitespace()
	}
	if n.kind == Inline && n.ChildCount() == 0 {
		return true
	}
	for _, c := range n.content.content {
		if HasContent(c) {
			return true
		}
	}
	return false
}
