package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Range is an ordered pair of positions. The start is not necessarily
// before the end in document order; Forwards normalizes it.
type Range struct {
	Start *Position
	End   *Position
}

// NewRange returns a range between two untracked positions.
func NewRange(startNode *Node, startOffset int, endNode *Node, endOffset int) *Range {
	return &Range{Start: NewPosition(startNode, startOffset), End: NewPosition(endNode, endOffset)}
}

func (r *Range) String() string {
	return r.Start.String() + " - " + r.End.String()
}

// Validate checks both ends of the range.
func (r *Range) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return fmt.Errorf("range start: %w", err)
	}
	if err := r.End.Validate(); err != nil {
		return fmt.Errorf("range end: %w", err)
	}
	return nil
}

// IsEmpty is true when both ends denote the same location.
func (r *Range) IsEmpty() bool {
	return Equal(r.Start, r.End)
}

// IsForwards is true when the start precedes or equals the end.
func (r *Range) IsForwards() bool {
	return Compare(r.Start, r.End) <= 0
}

// Forwards returns the range itself when it is forwards, a reversed copy
// otherwise.
func (r *Range) Forwards() *Range {
	if r.IsForwards() {
		return r
	}
	return &Range{Start: r.End.Copy(), End: r.Start.Copy()}
}

// Track registers both ends with the tracking registry.
func (r *Range) Track() {
	r.Start.node.tree.Track(r.Start, r.End)
}

// Untrack releases both ends.
func (r *Range) Untrack() {
	r.Start.node.tree.Untrack(r.Start, r.End)
}

// TrackWhileExecuting tracks the range while fn runs. A nil range just runs
// fn.
func (r *Range) TrackWhileExecuting(fn func()) {
	if r == nil {
		fn()
		return
	}
	r.Start.node.tree.TrackWhileExecuting([]*Position{r.Start, r.End}, fn)
}

// Expand moves the ends outwards while they are at the boundary of their
// node, up to the root.
func (r *Range) Expand() {
	root := r.Start.node.tree.root
	for r.Start.offset == 0 && r.Start.node != root && r.Start.node.parent != nil {
		n := r.Start.node
		r.Start.Set(n.parent, n.Index())
	}
	for r.End.offset == r.End.node.Len() && r.End.node != root && r.End.node.parent != nil {
		n := r.End.node
		r.End.Set(n.parent, n.Index()+1)
	}
}

// Detail gives the (parent, child) pairs of both ends of a range and their
// lowest common ancestor. A nil child means after the last child.
type Detail struct {
	StartParent    *Node
	StartChild     *Node
	EndParent      *Node
	EndChild       *Node
	CommonAncestor *Node
	StartAncestor  *Node
	EndAncestor    *Node
}

// Detail computes the detail of the forwards version of the range.
func (r *Range) Detail() *Detail {
	r = r.Forwards()
	d := &Detail{}
	start, end := r.Start, r.End
	if !start.node.IsText() {
		d.StartParent = start.node
		d.StartChild = start.node.MaybeChild(start.offset)
	} else {
		d.StartParent = start.node.parent
		d.StartChild = start.node
	}
	switch {
	case !end.node.IsText():
		d.EndParent = end.node
		d.EndChild = end.node.MaybeChild(end.offset)
	case end.offset == 0:
		d.EndParent = end.node.parent
		d.EndChild = end.node
	default:
		d.EndParent = end.node.parent
		d.EndChild = end.node.NextSibling()
	}

	for sp, sc := d.StartParent, d.StartChild; sp != nil; sp, sc = sp.parent, sp {
		for ep, ec := d.EndParent, d.EndChild; ep != nil; ep, ec = ep.parent, ep {
			if sp == ep {
				d.CommonAncestor = sp
				d.StartAncestor = sc
				d.EndAncestor = ec
				return d
			}
		}
	}
	Invariantf("Range.Detail", "start and end of range %s have no common ancestor", r)
	return nil
}

// SingleNode returns the node closest to the start of the range.
func (r *Range) SingleNode() *Node {
	return ClosestActualNode(r.Start, true)
}

// OutermostNodes returns the minimal list of whole subtrees, in document
// order, whose union covers the range. For an empty range, the list is
// empty unless atLeastOne is set, in which case it holds the single node of
// the range.
func (r *Range) OutermostNodes(atLeastOne bool) []*Node {
	fallback := func() []*Node {
		if atLeastOne {
			return []*Node{r.SingleNode()}
		}
		return nil
	}
	if r.IsEmpty() {
		return fallback()
	}
	d := r.Detail()
	common := d.CommonAncestor
	var before, middle, after []*Node

	topParent, topChild := d.StartParent, d.StartChild
	for topParent != common {
		if topChild != nil {
			before = append(before, topChild)
		}
		for (topChild == nil || topChild.NextSibling() == nil) && topParent != common {
			topChild = topParent
			topParent = topParent.parent
		}
		if topParent != common {
			topChild = topChild.NextSibling()
		}
	}

	if d.StartAncestor != d.EndAncestor {
		c := d.StartAncestor
		if c != nil && c != d.StartChild {
			c = c.NextSibling()
		}
		for ; c != d.EndAncestor && c != nil; c = c.NextSibling() {
			middle = append(middle, c)
		}
	}

	prevSibling := func(parent, child *Node) *Node {
		if child != nil {
			return child.PrevSibling()
		}
		return parent.LastChild()
	}
	bottomParent, bottomChild := d.EndParent, d.EndChild
	for {
		for prevSibling(bottomParent, bottomChild) == nil && bottomParent != common {
			bottomChild = bottomParent
			bottomParent = bottomParent.parent
		}
		if bottomParent == common {
			break
		}
		bottomChild = prevSibling(bottomParent, bottomChild)
		after = append(after, bottomChild)
	}
	for i, j := 0, len(after)-1; i < j; i, j = i+1, j-1 {
		after[i], after[j] = after[j], after[i]
	}

	result := append(append(before, middle...), after...)
	if len(result) == 0 {
		return fallback()
	}
	return result
}

// SelectedNodes is OutermostNodes without the single node fallback.
func (r *Range) SelectedNodes() []*Node {
	return r.OutermostNodes(false)
}

// AllNodes returns the outermost nodes of the range and all their
// descendants, in document order.
func (r *Range) AllNodes(atLeastOne bool) []*Node {
	var result []*Node
	for _, n := range r.OutermostNodes(atLeastOne) {
		result = append(result, n)
		n.Descendants(func(d *Node) bool {
			result = append(result, d)
			return true
		})
	}
	return result
}

// selectedText returns the part of the text node n that lies in the
// forwards range r.
func (r *Range) selectedText(n *Node) []rune {
	start, end := 0, len(n.text)
	if n == r.Start.node {
		start = r.Start.offset
	}
	if n == r.End.node {
		end = r.End.offset
	}
	if start > end {
		return nil
	}
	return n.text[start:end]
}

// HasContent reports whether the range covers visible content.
func (r *Range) HasContent() bool {
	fr := r.Forwards()
	for _, n := range fr.OutermostNodes(false) {
		if n.IsText() {
			if strings.TrimSpace(string(fr.selectedText(n))) != "" {
				return true
			}
		} else if HasContent(n) {
			return true
		}
	}
	return false
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Text returns the text covered by the range, with runs of white space
// collapsed to one space and a newline before every paragraph.
func (r *Range) Text() string {
	fr := r.Forwards()
	boundary := func(p *Position) (*Node, int) {
		if p.node.IsText() {
			return p.node, p.offset
		}
		if c := p.node.MaybeChild(p.offset); c != nil {
			return c, 0
		}
		return NextNodeAfter(p.node, nil, nil), 0
	}
	startNode, startOffset := boundary(fr.Start)
	endNode, endOffset := boundary(fr.End)
	if startNode == nil || endNode == nil {
		return ""
	}

	var sb strings.Builder
	significant := true
	entering := func(n *Node) {
		if n.IsParagraph() {
			significant = true
			sb.WriteString("\n")
		}
	}
	exiting := func(n *Node) {
		if n.IsParagraph() {
			significant = false
		}
	}
	for n := startNode; ; n = NextNode(n, entering, exiting) {
		if n == nil {
			Invariantf("Range.Text", "cannot find end node of %s", r)
		}
		if n.IsText() {
			if !significant && !n.IsWhitespace() {
				significant = true
				sb.WriteString("\n")
			}
			if significant {
				from, to := 0, len(n.text)
				if n == startNode {
					from = startOffset
				}
				if n == endNode {
					to = endOffset
				}
				if from < to {
					sb.WriteString(whitespaceRun.ReplaceAllString(string(n.text[from:to]), " "))
				}
			}
		}
		if n == endNode {
			break
		}
	}
	return sb.String()
}

// CloneContents returns detached copies of the content of the range. Text
// at either end is cut at the range boundary, and inline ancestors of the
// common ancestor are copied around the result.
func (r *Range) CloneContents() []*Node {
	fr := r.Forwards()
	t := fr.Start.node.tree
	outermost := fr.OutermostNodes(false)
	selected := make(map[int]bool)
	ancestors := make(map[int]bool)
	haveContent := false
	for _, n := range outermost {
		if !n.IsWhitespace() {
			haveContent = true
		}
		selected[n.id] = true
		for a := n; a != nil; a = a.parent {
			ancestors[a.id] = true
		}
	}
	if !haveContent {
		return nil
	}

	var recurse func(parent *Node) *Node
	recurse = func(parent *Node) *Node {
		clone := t.Clone(parent, false)
		for _, child := range parent.content.content {
			var c *Node
			switch {
			case selected[child.id] && child.IsText():
				c = t.NewText(string(fr.selectedText(child)))
			case selected[child.id]:
				c = t.Clone(child, true)
			case ancestors[child.id]:
				c = recurse(child)
			default:
				continue
			}
			clone.content.insert(clone.content.ChildCount(), c)
			c.parent = clone
		}
		return clone
	}
	d := fr.Detail()
	clone := recurse(d.CommonAncestor)
	for a := d.CommonAncestor; a.IsInline() && a.parent != nil; a = a.parent {
		wrapper := t.Clone(a.parent, false)
		wrapper.content.insert(0, clone)
		clone.parent = wrapper
		clone = wrapper
	}
	if clone.name == "ul" || clone.name == "ol" {
		return []*Node{clone}
	}
	children := clone.Children()
	for _, c := range children {
		c.parent = nil
	}
	clone.content.content = nil
	return children
}
