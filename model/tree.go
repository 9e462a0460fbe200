package model

import (
	"github.com/mitchellh/copystructure"

	"github.com/cozy/docengine/postponed"
	"github.com/cozy/docengine/undo"
)

// DefaultRootName is the element name of the root of a new tree.
const DefaultRootName = "body"

// A Repairer restores the structural grammar around a node after a
// primitive mutation put it in place. The hierarchy engine of the transform
// package is the usual one.
type Repairer interface {
	Repair(n *Node)
}

// Tree owns a document: its root, the id allocator, the tracked-position
// registry, and the undo log and postponed queue that every primitive
// mutation feeds.
type Tree struct {
	policy    Policy
	root      *Node
	nextID    int
	nodes     map[int]*Node
	tracked   map[int][]*Position
	undo      *undo.Manager
	queue     *postponed.Queue
	repairer  Repairer
	pending   map[int]bool
	repairing int
}

// Option configures a Tree.
type Option func(*Tree)

// WithUndoManager makes the tree record its inverses into m.
func WithUndoManager(m *undo.Manager) Option {
	return func(t *Tree) { t.undo = m }
}

// WithQueue makes the tree schedule its repairs on q.
func WithQueue(q *postponed.Queue) Option {
	return func(t *Tree) { t.queue = q }
}

// WithRepairer sets the repairer scheduled after structural mutations.
func WithRepairer(r Repairer) Option {
	return func(t *Tree) { t.repairer = r }
}

// NewTree returns a tree holding an empty root element.
func NewTree(policy Policy, opts ...Option) *Tree {
	t := &Tree{
		policy:  policy,
		nodes:   make(map[int]*Node),
		tracked: make(map[int][]*Position),
		pending: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.undo == nil {
		t.undo = undo.NewManager()
	}
	if t.queue == nil {
		t.queue = postponed.NewQueue(t.undo)
	}
	t.root = t.newNode(Container, DefaultRootName, nil)
	return t
}

// Root returns the root element.
func (t *Tree) Root() *Node { return t.root }

// Policy returns the grammar table of the tree.
func (t *Tree) Policy() Policy { return t.policy }

// UndoManager returns the undo log fed by the tree.
func (t *Tree) UndoManager() *undo.Manager { return t.undo }

// Queue returns the postponed queue the tree schedules repairs on.
func (t *Tree) Queue() *postponed.Queue { return t.queue }

// SetRepairer replaces the repairer.
func (t *Tree) SetRepairer(r Repairer) { t.repairer = r }

// NodeByID returns the attached node with the given id, or nil.
func (t *Tree) NodeByID(id int) *Node {
	n := t.nodes[id]
	if n == nil || !n.IsAttached() {
		return nil
	}
	return n
}

func (t *Tree) newNode(kind Kind, name string, attrs map[string]string) *Node {
	t.nextID++
	n := &Node{id: t.nextID, kind: kind, name: name, attrs: copyAttrs(attrs), tree: t}
	t.nodes[n.id] = n
	return n
}

func copyAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return map[string]string{}
	}
	return copystructure.Must(copystructure.Copy(attrs)).(map[string]string)
}

// NewElement returns a detached element. The children must be detached
// nodes of the same tree; they become owned by the new element.
func (t *Tree) NewElement(name string, attrs map[string]string, children ...*Node) *Node {
	if name == TextName || name == "" {
		Misusef("NewElement", "invalid element name %q", name)
	}
	n := t.newNode(t.policy.KindOf(name), name, attrs)
	for _, child := range children {
		t.checkOwned("NewElement", child)
		if child.parent != nil || child == t.root {
			Misusef("NewElement", "child %s already has a parent", child.name)
		}
		n.content.insert(n.content.ChildCount(), child)
		child.parent = n
	}
	return n
}

// NewText returns a detached text node.
func (t *Tree) NewText(text string) *Node {
	n := t.newNode(Text, TextName, nil)
	n.text = []rune(text)
	return n
}

// ShallowCopy returns a detached copy of n without its children, and
// without its id attribute.
func (t *Tree) ShallowCopy(n *Node) *Node {
	if n.IsText() {
		return t.NewText(string(n.text))
	}
	c := t.newNode(n.kind, n.name, n.attrs)
	delete(c.attrs, "id")
	return c
}

// Clone returns a detached copy of n, with fresh identities. When deep is
// set, the descendants are cloned too.
func (t *Tree) Clone(n *Node, deep bool) *Node {
	if n.IsText() {
		return t.NewText(string(n.text))
	}
	c := t.newNode(n.kind, n.name, n.attrs)
	if deep {
		for _, child := range n.content.content {
			cc := t.Clone(child, true)
			c.content.insert(c.content.ChildCount(), cc)
			cc.parent = c
		}
	}
	return c
}

func (t *Tree) checkOwned(op string, n *Node) {
	if n == nil {
		Misusef(op, "nil node")
	}
	if n.tree != t {
		Misusef(op, "node %s belongs to another tree", n.name)
	}
}

func (t *Tree) checkAttached(op string, n *Node) {
	t.checkOwned(op, n)
	if !n.IsAttached() {
		Misusef(op, "node %s#%d is detached", n.name, n.id)
	}
}

// Track registers positions with the tracking registry. Tracking is
// counted: a position tracked twice needs two calls to Untrack.
func (t *Tree) Track(positions ...*Position) {
	for _, p := range positions {
		if p.tracking == 0 {
			t.checkAttached("Track", p.node)
			t.register(p)
		}
		p.tracking++
	}
}

// Untrack releases positions tracked with Track.
func (t *Tree) Untrack(positions ...*Position) {
	for _, p := range positions {
		if p.tracking == 0 {
			Misusef("Untrack", "position %s is not tracked", p)
		}
		p.tracking--
		if p.tracking == 0 {
			t.unregister(p)
		}
	}
}

// TrackWhileExecuting tracks positions while fn runs, and untracks them on
// every exit path.
func (t *Tree) TrackWhileExecuting(positions []*Position, fn func()) {
	t.Track(positions...)
	defer t.Untrack(positions...)
	fn()
}

// TrackedCount returns the number of tracked positions.
func (t *Tree) TrackedCount() int {
	count := 0
	for _, ps := range t.tracked {
		count += len(ps)
	}
	return count
}

// TrackedPositions returns the tracked positions whose node is n. The
// slice is a copy; the positions can be moved with Set.
func (t *Tree) TrackedPositions(n *Node) []*Position {
	ps := t.tracked[n.id]
	for _, p := range ps {
		if p.node != n {
			Invariantf("TrackedPositions", "position %s has wrong node", p)
		}
	}
	out := make([]*Position, len(ps))
	copy(out, ps)
	return out
}

func (t *Tree) register(p *Position) {
	t.tracked[p.node.id] = append(t.tracked[p.node.id], p)
}

func (t *Tree) unregister(p *Position) {
	ps := t.tracked[p.node.id]
	for i, q := range ps {
		if q == p {
			ps = append(ps[:i], ps[i+1:]...)
			break
		}
	}
	if len(ps) == 0 {
		delete(t.tracked, p.node.id)
	} else {
		t.tracked[p.node.id] = ps
	}
}

// mapOffsets re-anchors the tracked positions of n through a splice.
func (t *Tree) mapOffsets(n *Node, s Splice, assoc Assoc) {
	for _, p := range t.tracked[n.id] {
		p.offset = s.Map(p.offset, assoc)
	}
}

// relocateSubtree puts the tracked positions of root and of its
// descendants at (parent, offset).
func (t *Tree) relocateSubtree(root, parent *Node, offset int) {
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, child := range n.content.content {
			visit(child)
		}
		for _, p := range t.TrackedPositions(n) {
			p.Set(parent, offset)
		}
	}
	visit(root)
}

// scheduleRepair queues one repair of n on the postponed queue. Nothing is
// scheduled during an undo or redo replay (the replayed inverses already
// hold the repairs), nor by the repair itself.
func (t *Tree) scheduleRepair(n *Node) {
	if t.repairer == nil || t.undo.IsActive() || t.repairing > 0 || t.pending[n.id] {
		return
	}
	t.pending[n.id] = true
	t.queue.Add(func() {
		delete(t.pending, n.id)
		if !n.IsAttached() {
			return
		}
		t.RunRepair(func() { t.repairer.Repair(n) })
	})
}

// RunRepair runs fn as a repair: the mutations it makes do not schedule
// further repairs.
func (t *Tree) RunRepair(fn func()) {
	t.repairing++
	defer func() { t.repairing-- }()
	fn()
}

// PendingRepairs returns the number of repairs waiting on the queue.
func (t *Tree) PendingRepairs() int { return len(t.pending) }

// DiscardRepairs forgets the repairs scheduled but not run, after their
// queue was cleared.
func (t *Tree) DiscardRepairs() {
	t.pending = make(map[int]bool)
}
