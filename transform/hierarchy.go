package transform

import (
	"go.uber.org/zap"

	"github.com/cozy/docengine/model"
)

// DefaultMaxAscents caps the number of steps of one repair. A repair that
// takes more is looping on a malformed tree.
const DefaultMaxAscents = 200

// Hierarchy repairs the structural grammar of a tree: every path from the
// root to a leaf reads as containers, then at most one paragraph, then
// inline content. It is the model.Repairer of a Session.
type Hierarchy struct {
	tree       *model.Tree
	maxAscents int
	log        *zap.Logger
	// Ancestors split by the current repair, with the copies made of them.
	splits []*model.Node
}

var _ model.Repairer = (*Hierarchy)(nil)

// HierarchyOption configures a Hierarchy.
type HierarchyOption func(*Hierarchy)

// WithMaxAscents sets the iteration cap of a repair.
func WithMaxAscents(n int) HierarchyOption {
	return func(h *Hierarchy) {
		if n > 0 {
			h.maxAscents = n
		}
	}
}

// WithHierarchyLogger sets the logger the repairs are reported to.
func WithHierarchyLogger(log *zap.Logger) HierarchyOption {
	return func(h *Hierarchy) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHierarchy returns the repair engine of t.
func NewHierarchy(t *model.Tree, opts ...HierarchyOption) *Hierarchy {
	h := &Hierarchy{tree: t, maxAscents: DefaultMaxAscents, log: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Repair implements model.Repairer: the subtree of n is made valid, and so
// is its position in the tree.
func (h *Hierarchy) Repair(n *model.Node) {
	h.EnsureValidHierarchy(n, true)
	if n.IsAttached() {
		h.EnsureInlineNodesInParagraph(n, false)
	}
}

type counter struct {
	op    string
	n     int
	limit int
}

func (c *counter) step() {
	c.n++
	if c.n > c.limit {
		model.Invariantf(c.op, "too many iterations (%d)", c.limit)
	}
}

// EnsureValidHierarchy moves n, and each of its ancestors, out of the
// ancestors that may not hold them. Inline ancestors left behind are copied
// around the content of the extracted block. With recursive, the blocks of
// the subtree of n are repaired first, and the inline content found
// directly in its containers is wrapped in paragraphs. Inline content that
// a split leaves directly in a container is wrapped in a paragraph too.
func (h *Hierarchy) EnsureValidHierarchy(n *model.Node, recursive bool) {
	h.splits = nil
	if recursive {
		var blocks []*model.Node
		var collect func(node *model.Node)
		collect = func(node *model.Node) {
			for _, child := range node.Children() {
				collect(child)
			}
			if node != n && node.IsBlock() {
				blocks = append(blocks, node)
			}
		}
		collect(n)
		for _, b := range blocks {
			if b.IsAttached() {
				h.ensureValid(b)
			}
		}
		if n.IsAttached() {
			h.wrapStrayInline(n)
		}
	}
	if n.IsAttached() {
		h.ensureValid(n)
	}
	h.wrapSplits()
}

func (h *Hierarchy) ensureValid(node *model.Node) {
	root := h.tree.Root()
	policy := h.tree.Policy()
	c := &counter{op: "EnsureValidHierarchy", limit: h.maxAscents}
	for node != nil && node.Parent() != nil && node != root {
		c.step()
		if policy.IsHeading(node) && !policy.HeadingAllowedIn(node.Parent()) {
			h.hoistHeading(node, c)
			continue
		}
		if node.IsBlock() && !policy.NestingAllowed(node.Parent(), node) {
			h.extract(node, c)
		}
		node = node.Parent()
	}
}

// hoistHeading moves a heading one level up, after its parent. The content
// of its ancestors that followed it is split off, up to the ancestor that
// may hold headings.
func (h *Hierarchy) hoistHeading(heading *model.Node, c *counter) {
	root := h.tree.Root()
	policy := h.tree.Policy()
	parent := heading.Parent()
	grand := parent.Parent()
	if grand == nil {
		model.Invariantf("EnsureValidHierarchy", "heading %s has nowhere to go", heading)
	}
	target := grand
	for target != root && !policy.HeadingAllowedIn(target) {
		target = target.Parent()
	}

	h.log.Debug("hoist heading",
		zap.String("heading", heading.Name()),
		zap.String("from", parent.Name()),
		zap.String("target", target.Name()))
	top := parent
	for top.Parent() != target {
		top = top.Parent()
	}
	MoveFollowing(model.NewPosition(parent, heading.Index()+1), func(n *model.Node) bool { return n == target }, false)
	h.splitAt(top)
	grand = parent.Parent()
	h.tree.InsertBefore(grand, heading, parent.NextSibling())
	for parent != root && parent != target && !significantChildren(parent) {
		c.step()
		next := parent.Parent()
		h.tree.DeleteNode(parent)
		parent = next
	}
}

// extract moves a block out of its parent, splitting the ancestors up to
// the closest container, until the nesting is allowed.
func (h *Hierarchy) extract(node *model.Node, c *counter) {
	root := h.tree.Root()
	policy := h.tree.Policy()

	var ancestors []*model.Node
	for child := node; child.Parent() != nil && !child.Parent().IsContainer(); child = child.Parent() {
		p := child.Parent()
		if p.IsInline() && !onlyID(p) {
			ancestors = append(ancestors, p)
		}
	}

	for !policy.NestingAllowed(node.Parent(), node) {
		c.step()
		parent := node.Parent()
		if parent == root {
			model.Invariantf("EnsureValidHierarchy", "root may not hold %s", node.Name())
		}
		h.log.Debug("extract block",
			zap.String("block", node.Name()),
			zap.String("from", parent.Name()))
		var top *model.Node
		if !parent.IsContainer() {
			top = parent
			for !top.Parent().IsContainer() {
				top = top.Parent()
			}
		}
		MoveFollowing(model.NewPosition(parent, node.Index()+1), (*model.Node).IsContainer, false)
		if top != nil {
			h.splitAt(top)
		}
		h.tree.InsertBefore(parent.Parent(), node, parent.NextSibling())
		if !significantChildren(parent) {
			h.tree.DeleteNode(parent)
		}
	}
	if len(ancestors) > 0 {
		h.wrapInlineChildrenInAncestors(node, ancestors)
		h.splits = append(h.splits, node)
	}
}

// splitAt records top, the outermost node split by a move, and the copy
// of it the move placed right after it.
func (h *Hierarchy) splitAt(top *model.Node) {
	h.splits = append(h.splits, top)
	if next := top.NextSibling(); next != nil {
		h.splits = append(h.splits, next)
	}
}

// wrapSplits puts back in paragraphs the inline content that the splits of
// the last repair left in containers.
func (h *Hierarchy) wrapSplits() {
	splits := h.splits
	h.splits = nil
	for _, n := range splits {
		switch {
		case !n.IsAttached():
		case n.IsContainer():
			h.wrapStrayInline(n)
		case n.IsInline() && n.Parent().IsContainer() && !n.IsWhitespace():
			h.WrapInlineNodesInParagraph(n)
		}
	}
}

// onlyID is true for a span that carries nothing but an id.
func onlyID(n *model.Node) bool {
	if n.Name() != "span" {
		return false
	}
	names := n.AttrNames()
	return len(names) == 1 && names[0] == "id"
}

// wrapInlineChildrenInAncestors wraps the inline runs of the subtree of n
// in nested copies of ancestors, the first ancestor being the innermost.
func (h *Hierarchy) wrapInlineChildrenInAncestors(n *model.Node, ancestors []*model.Node) {
	var first, last *model.Node
	flush := func() {
		if first != nil {
			h.wrapInlineChildren(first, last, ancestors)
		}
		first, last = nil, nil
	}
	for _, child := range n.Children() {
		if child.IsInline() {
			if first == nil {
				first = child
			}
			last = child
			continue
		}
		flush()
		h.wrapInlineChildrenInAncestors(child, ancestors)
	}
	flush()
}

func (h *Hierarchy) wrapInlineChildren(first, last *model.Node, ancestors []*model.Node) {
	nodes := siblingsBetween(first, last)
	if onlyWhitespace(nodes) {
		return
	}
	parent := first.Parent()
	ref := first
	for i := len(ancestors) - 1; i >= 0; i-- {
		clone := h.tree.ShallowCopy(ancestors[i])
		h.tree.InsertBefore(parent, clone, ref)
		for _, n := range nodes {
			h.tree.AppendChild(clone, n)
		}
		parent, ref = clone, nil
	}
}

// wrapStrayInline wraps in paragraphs the inline content found directly in
// the containers of the subtree of n.
func (h *Hierarchy) wrapStrayInline(n *model.Node) {
	if n.IsContainer() {
		for _, child := range n.Children() {
			if child.IsAttached() && child.Parent() == n && child.IsInline() && !child.IsWhitespace() {
				h.WrapInlineNodesInParagraph(child)
			}
		}
	}
	for _, child := range n.Children() {
		h.wrapStrayInline(child)
	}
}

// EnsureInlineNodesInParagraph climbs from n to the first inline node that
// is the direct child of a container, and wraps it together with its
// adjacent inline siblings in a paragraph. White space text is left alone,
// and so are table cells when weak is set.
func (h *Hierarchy) EnsureInlineNodesInParagraph(n *model.Node, weak bool) {
	root := h.tree.Root()
	c := &counter{op: "EnsureInlineNodesInParagraph", limit: h.maxAscents}
	for node := n; node != nil && node.Parent() != nil && node != root; node = node.Parent() {
		c.step()
		parent := node.Parent()
		if node.IsInline() && parent.IsContainer() && !node.IsWhitespace() &&
			(!weak || !isTableCell(parent)) {
			h.WrapInlineNodesInParagraph(node)
			return
		}
	}
}

func isTableCell(n *model.Node) bool {
	return n.Name() == "td" || n.Name() == "th"
}

// WrapInlineNodesInParagraph wraps n and the inline siblings around it in
// a new paragraph, and returns the paragraph.
func (h *Hierarchy) WrapInlineNodesInParagraph(n *model.Node) *model.Node {
	start, end := n, n
	for start.PrevSibling() != nil && start.PrevSibling().IsInline() {
		start = start.PrevSibling()
	}
	for end.NextSibling() != nil && end.NextSibling().IsInline() {
		end = end.NextSibling()
	}
	h.log.Debug("wrap inline nodes",
		zap.String("parent", n.Parent().Name()),
		zap.Int("first", start.Index()),
		zap.Int("last", end.Index()))
	return WrapSiblings(start, end, h.tree.Policy().ParagraphName())
}

// AvoidInlineChildren wraps every run of inline children of parent in a
// paragraph. Runs without content are deleted instead.
func (h *Hierarchy) AvoidInlineChildren(parent *model.Node) {
	child := parent.FirstChild()
	for child != nil {
		if !child.IsInline() {
			child = child.NextSibling()
			continue
		}
		start, end := child, child
		haveContent := model.HasContent(end)
		for end.NextSibling() != nil && end.NextSibling().IsInline() {
			end = end.NextSibling()
			if model.HasContent(end) {
				haveContent = true
			}
		}
		child = end.NextSibling()
		if haveContent {
			WrapSiblings(start, end, h.tree.Policy().ParagraphName())
			continue
		}
		for _, n := range siblingsBetween(start, end) {
			h.tree.DeleteNode(n)
		}
	}
}

// EnsureRangeValidHierarchy repairs every node of the range, deepest
// first. The range is tracked while the tree changes.
func (h *Hierarchy) EnsureRangeValidHierarchy(r *model.Range) {
	r.TrackWhileExecuting(func() {
		nodes := r.AllNodes(true)
		for i := len(nodes) - 1; i >= 0; i-- {
			if nodes[i].IsAttached() {
				h.EnsureValidHierarchy(nodes[i], false)
			}
		}
	})
}

// EnsureRangeInlineNodesInParagraph puts the inline content of the range
// in paragraphs.
func (h *Hierarchy) EnsureRangeInlineNodesInParagraph(r *model.Range) {
	r.TrackWhileExecuting(func() {
		for _, n := range r.OutermostNodes(true) {
			if n.IsAttached() {
				h.EnsureInlineNodesInParagraph(n, false)
			}
		}
	})
}
