package transform

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/cozy/docengine/model"
	"github.com/cozy/docengine/postponed"
	"github.com/cozy/docengine/undo"
)

// ErrorSink receives the invariant violations caught by Perform.
type ErrorSink func(err error)

// Session ties together a tree, its undo log, its postponed queue and the
// hierarchy engine that repairs it. Edits are made through Perform.
type Session struct {
	tree      *model.Tree
	undo      *undo.Manager
	queue     *postponed.Queue
	hierarchy *Hierarchy
	log       *zap.Logger
	sink      ErrorSink
	scope     []*model.Position
	depth     int
}

type sessionOptions struct {
	log        *zap.Logger
	sink       ErrorSink
	undoLimit  int
	maxRounds  int
	maxAscents int
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithLogger sets the logger of the session and of its parts.
func WithLogger(log *zap.Logger) SessionOption {
	return func(o *sessionOptions) { o.log = log }
}

// WithErrorSink sets the function invariant violations are reported to.
// The default one logs them at error level.
func WithErrorSink(sink ErrorSink) SessionOption {
	return func(o *sessionOptions) { o.sink = sink }
}

// WithUndoLimit sets the number of groups kept on the undo stack.
func WithUndoLimit(n int) SessionOption {
	return func(o *sessionOptions) { o.undoLimit = n }
}

// WithMaxRounds sets the number of rounds of the postponed queue.
func WithMaxRounds(n int) SessionOption {
	return func(o *sessionOptions) { o.maxRounds = n }
}

// WithRepairLimit sets the iteration cap of the hierarchy repairs.
func WithRepairLimit(n int) SessionOption {
	return func(o *sessionOptions) { o.maxAscents = n }
}

// NewSession returns a session editing an empty document of the given
// grammar.
func NewSession(policy model.Policy, opts ...SessionOption) *Session {
	o := &sessionOptions{
		log:        zap.NewNop(),
		undoLimit:  undo.DefaultLimit,
		maxRounds:  postponed.DefaultMaxRounds,
		maxAscents: DefaultMaxAscents,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	s := &Session{log: o.log}
	s.undo = undo.NewManager(undo.WithLimit(o.undoLimit), undo.WithLogger(o.log.Named("undo")))
	s.queue = postponed.NewQueue(s.undo, postponed.WithMaxRounds(o.maxRounds), postponed.WithLogger(o.log.Named("postponed")))
	s.tree = model.NewTree(policy, model.WithUndoManager(s.undo), model.WithQueue(s.queue))
	s.hierarchy = NewHierarchy(s.tree, WithMaxAscents(o.maxAscents), WithHierarchyLogger(o.log.Named("hierarchy")))
	s.tree.SetRepairer(s.hierarchy)
	s.sink = o.sink
	if s.sink == nil {
		s.sink = func(err error) {
			s.log.Error("invariant violated", zap.Error(err))
		}
	}
	return s
}

// Tree returns the edited tree.
func (s *Session) Tree() *model.Tree { return s.tree }

// UndoManager returns the undo log.
func (s *Session) UndoManager() *undo.Manager { return s.undo }

// Queue returns the postponed queue.
func (s *Session) Queue() *postponed.Queue { return s.queue }

// Hierarchy returns the repair engine.
func (s *Session) Hierarchy() *Hierarchy { return s.hierarchy }

// Perform runs fn as one undoable edit labelled label. A new undo group is
// opened, fn runs and the postponed repairs are performed, then the group
// is closed so that later mutations do not join it. The positions tracked
// with Track during fn are untracked at the end. An invariant violation
// aborts the edit, is reported to the error sink and returned; the tree is
// left as it is. Other panics are not recovered. A nested call runs fn in
// the edit already in progress.
func (s *Session) Perform(label string, fn func()) (err error) {
	if s.undo.IsActive() {
		return undo.ErrReplayInProgress
	}
	if s.depth > 0 {
		fn()
		return nil
	}
	s.depth++
	defer func() {
		s.depth--
		scope := s.scope
		s.scope = nil
		s.tree.Untrack(scope...)
		s.undo.CloseGroup()
		if r := recover(); r != nil {
			ie, ok := r.(*model.InvariantError)
			if !ok {
				panic(r)
			}
			s.abort()
			s.sink(ie)
			err = ie
		}
	}()

	s.log.Debug("perform", zap.String("label", label))
	s.undo.NewGroup(label, nil)
	fn()
	if perr := s.queue.Perform(); perr != nil {
		s.abort()
		ie := &model.InvariantError{Op: "Perform", Msg: label, Err: perr}
		s.sink(ie)
		return ie
	}
	return nil
}

func (s *Session) abort() {
	s.queue.Clear()
	s.tree.DiscardRepairs()
}

// Track tracks positions until the end of the edit in progress.
func (s *Session) Track(positions ...*model.Position) {
	if s.depth == 0 {
		model.Misusef("Session.Track", "no edit in progress")
	}
	s.tree.Track(positions...)
	s.scope = append(s.scope, positions...)
}

// Undo reverts the last edit.
func (s *Session) Undo() error { return s.undo.Undo() }

// Redo applies again the last reverted edit.
func (s *Session) Redo() error { return s.undo.Redo() }

// SetIndex undoes or redoes edits until index edits are applied.
func (s *Session) SetIndex(index int) error { return s.undo.SetIndex(index) }

// Load replaces the document with the body of an HTML document, repairs it
// without recording the repair, and clears the undo log.
func (s *Session) Load(r io.Reader) error {
	if err := s.tree.LoadHTML(r); err != nil {
		return err
	}
	return s.Repair()
}

// Repair makes the whole tree valid. The repair is not undoable.
func (s *Session) Repair() (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*model.InvariantError)
			if !ok {
				panic(r)
			}
			s.sink(ie)
			err = ie
		}
	}()
	s.undo.DisableWhileExecuting(func() {
		s.tree.RunRepair(func() {
			EnsureUniqueIDs(s.tree.Root())
			s.hierarchy.EnsureValidHierarchy(s.tree.Root(), true)
		})
	})
	return nil
}

// IsInvariant reports whether err comes from an invariant violation.
func IsInvariant(err error) bool {
	var ie *model.InvariantError
	return errors.As(err, &ie)
}
