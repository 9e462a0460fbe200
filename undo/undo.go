// Package undo implements the undo/redo log of an editing session: inverse
// actions are recorded into groups, and a group is replayed as one atomic
// step.
package undo

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultLimit is the number of groups kept on the undo stack.
const DefaultLimit = 50

// ErrReplayInProgress is returned by Undo, Redo and SetIndex when called from
// inside a replay.
var ErrReplayInProgress = errors.New("undo: replay already in progress")

// State is the state of a Manager.
type State int

const (
	// Idle means that no group is open.
	Idle State = iota
	// Recording means that a group is open and new actions land in it.
	Recording
	// ReplayingUndo means that a group from the undo stack is being replayed.
	ReplayingUndo
	// ReplayingRedo means that a group from the redo stack is being replayed.
	ReplayingRedo
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case ReplayingUndo:
		return "replaying-undo"
	case ReplayingRedo:
		return "replaying-redo"
	}
	return "unknown"
}

// Action is an inverse operation. Fn is a closure over its captured
// arguments, and Desc names it for Dump.
type Action struct {
	Desc string
	Fn   func()
}

// Group is an ordered sequence of actions making one user-visible edit.
type Group struct {
	Label   string
	actions []Action
	onClose func()
}

// Len returns the number of actions in the group.
func (g *Group) Len() int { return len(g.actions) }

// Manager is the undo log of one editing session. It is not safe for
// concurrent use.
type Manager struct {
	undoStack []*Group
	redoStack []*Group
	current   *Group
	pushed    bool
	undoing   bool
	redoing   bool
	disabled  int
	limit     int
	log       *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLimit sets the maximal number of groups on the undo stack.
func WithLimit(limit int) Option {
	return func(m *Manager) {
		if limit > 0 {
			m.limit = limit
		}
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager returns an empty undo log.
func NewManager(opts ...Option) *Manager {
	m := &Manager{limit: DefaultLimit, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddAction records an inverse action in the current group. It does
// nothing while logging is disabled. When no group is open, an anonymous
// one is opened. A group is pushed on a stack when its first action is
// added: on the redo stack while an undo is replayed, on the undo stack
// otherwise. Adding an action outside of any replay clears the redo stack.
func (m *Manager) AddAction(desc string, fn func()) {
	if m.disabled > 0 {
		return
	}
	if m.current == nil {
		m.current = &Group{}
		m.pushed = false
	}
	if !m.undoing && !m.redoing {
		m.redoStack = nil
	}
	if !m.pushed {
		if m.undoing {
			m.redoStack = append(m.redoStack, m.current)
		} else {
			m.undoStack = append(m.undoStack, m.current)
			if !m.redoing && len(m.undoStack) > m.limit {
				m.undoStack = m.undoStack[len(m.undoStack)-m.limit:]
			}
		}
		m.pushed = true
	}
	m.current.actions = append(m.current.actions, Action{Desc: desc, Fn: fn})
}

// NewGroup closes the current group, running its on-close hook, and opens a
// new empty group that is not pushed until it receives an action. It does
// nothing while logging is disabled.
func (m *Manager) NewGroup(label string, onClose func()) {
	if m.disabled > 0 {
		return
	}
	m.closeCurrent()
	m.current = &Group{Label: label, onClose: onClose}
	m.pushed = false
	m.log.Debug("undo group opened", zap.String("label", label))
}

// CloseGroup closes the current group. Actions added afterwards open a new
// group. It does nothing while the manager is disabled.
func (m *Manager) CloseGroup() {
	if m.disabled > 0 {
		return
	}
	m.closeCurrent()
}

// closeCurrent runs the hook of the current group while it is still
// current, so that actions added by the hook land in it.
func (m *Manager) closeCurrent() {
	if m.current == nil {
		return
	}
	if hook := m.current.onClose; hook != nil {
		m.current.onClose = nil
		hook()
	}
	if m.pushed {
		m.log.Debug("undo group closed",
			zap.String("label", m.current.Label),
			zap.Int("actions", len(m.current.actions)))
	}
	m.current = nil
	m.pushed = false
}

// Undo closes the current group and replays the most recent group of the
// undo stack, last action first. Inverses recorded during the replay form a
// group on the redo stack. Panics raised by an action are not recovered.
func (m *Manager) Undo() error {
	if m.undoing || m.redoing {
		return ErrReplayInProgress
	}
	m.closeCurrent()
	if len(m.undoStack) == 0 {
		return nil
	}
	g := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.log.Debug("undo", zap.String("label", g.Label), zap.Int("actions", len(g.actions)))
	m.undoing = true
	defer func() {
		m.closeCurrent()
		m.undoing = false
	}()
	m.replay(g)
	return nil
}

// Redo is the symmetric of Undo: it replays the most recent group of the
// redo stack, and the recorded inverses land back on the undo stack.
func (m *Manager) Redo() error {
	if m.undoing || m.redoing {
		return ErrReplayInProgress
	}
	m.closeCurrent()
	if len(m.redoStack) == 0 {
		return nil
	}
	g := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.log.Debug("redo", zap.String("label", g.Label), zap.Int("actions", len(g.actions)))
	m.redoing = true
	defer func() {
		m.closeCurrent()
		m.redoing = false
	}()
	m.replay(g)
	return nil
}

func (m *Manager) replay(g *Group) {
	m.current = &Group{Label: g.Label}
	m.pushed = false
	for i := len(g.actions) - 1; i >= 0; i-- {
		g.actions[i].Fn()
	}
}

// GetIndex returns the position in the undo timeline: the number of groups
// that can be undone.
func (m *Manager) GetIndex() int { return len(m.undoStack) }

// GetLength returns the length of the undo timeline.
func (m *Manager) GetLength() int { return len(m.undoStack) + len(m.redoStack) }

// SetIndex undoes or redoes groups until the timeline is at index.
func (m *Manager) SetIndex(index int) error {
	if m.undoing || m.redoing {
		return ErrReplayInProgress
	}
	for len(m.undoStack) > index && index >= 0 {
		if err := m.Undo(); err != nil {
			return err
		}
	}
	for len(m.undoStack) < index && len(m.redoStack) > 0 {
		if err := m.Redo(); err != nil {
			return err
		}
	}
	return nil
}

// DisableWhileExecuting runs fn with logging disabled. It can be nested.
func (m *Manager) DisableWhileExecuting(fn func()) {
	m.disabled++
	defer func() { m.disabled-- }()
	fn()
}

// IsDisabled reports whether logging is currently disabled.
func (m *Manager) IsDisabled() bool { return m.disabled > 0 }

// IsActive reports whether an undo or a redo is being replayed.
func (m *Manager) IsActive() bool { return m.undoing || m.redoing }

// CanUndo reports whether the undo stack is not empty.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether the redo stack is not empty.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// GroupLabel returns the label of the current group, or the empty string
// when no group is open.
func (m *Manager) GroupLabel() string {
	if m.current == nil {
		return ""
	}
	return m.current.Label
}

// State returns the state of the log.
func (m *Manager) State() State {
	switch {
	case m.undoing:
		return ReplayingUndo
	case m.redoing:
		return ReplayingRedo
	case m.current != nil:
		return Recording
	}
	return Idle
}

// Clear forgets both stacks and the current group, without running its
// on-close hook.
func (m *Manager) Clear() {
	m.undoStack = nil
	m.redoStack = nil
	m.current = nil
	m.pushed = false
}

// Dump returns a description of both stacks, most recent group last, and
// logs it at debug level.
func (m *Manager) Dump() string {
	var sb strings.Builder
	dumpStack(&sb, "undo", m.undoStack)
	dumpStack(&sb, "redo", m.redoStack)
	out := sb.String()
	m.log.Debug("undo log", zap.String("dump", out))
	return out
}

func dumpStack(sb *strings.Builder, name string, stack []*Group) {
	fmt.Fprintf(sb, "%s stack (%d groups)\n", name, len(stack))
	for i, g := range stack {
		fmt.Fprintf(sb, "  %d %q\n", i, g.Label)
		for _, a := range g.actions {
			fmt.Fprintf(sb, "    %s\n", a.Desc)
		}
	}
}
