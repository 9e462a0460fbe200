// Package postponed defers bookkeeping and repair callbacks until the
// current batch of tree edits is complete.
package postponed

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultMaxRounds is the number of rounds Perform runs before giving up.
const DefaultMaxRounds = 10

// ErrTooManyRounds is returned by Perform when callbacks keep scheduling new
// callbacks.
var ErrTooManyRounds = errors.New("postponed: too many rounds")

// Undoer is the part of the undo log the queue needs.
type Undoer interface {
	IsDisabled() bool
	DisableWhileExecuting(fn func())
}

type action struct {
	fn           func()
	undoDisabled bool
}

// Queue is a FIFO of deferred callbacks. Each callback remembers whether
// undo logging was disabled when it was added, and runs in the same mode.
type Queue struct {
	actions    []action
	undo       Undoer
	maxRounds  int
	performing bool
	log        *zap.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRounds sets the number of rounds after which Perform fails.
func WithMaxRounds(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxRounds = n
		}
	}
}

// WithLogger sets the logger of the queue.
func WithLogger(log *zap.Logger) Option {
	return func(q *Queue) {
		if log != nil {
			q.log = log
		}
	}
}

// NewQueue returns an empty queue. undo may be nil, in which case callbacks
// always run as they are.
func NewQueue(undo Undoer, opts ...Option) *Queue {
	q := &Queue{undo: undo, maxRounds: DefaultMaxRounds, log: zap.NewNop()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Add schedules fn.
func (q *Queue) Add(fn func()) {
	disabled := q.undo != nil && q.undo.IsDisabled()
	q.actions = append(q.actions, action{fn: fn, undoDisabled: disabled})
}

// Len returns the number of callbacks waiting.
func (q *Queue) Len() int { return len(q.actions) }

// Perform runs the queued callbacks in rounds: each round takes the whole
// queue, clears it and runs the callbacks, which may add more. It stops when
// a round leaves the queue empty. A call made from a callback returns at
// once; the outer call picks up the new work.
func (q *Queue) Perform() error {
	if q.performing {
		return nil
	}
	q.performing = true
	defer func() { q.performing = false }()

	rounds := 0
	for len(q.actions) > 0 {
		if rounds >= q.maxRounds {
			left := len(q.actions)
			q.actions = nil
			return fmt.Errorf("%w: %d actions left after %d rounds", ErrTooManyRounds, left, rounds)
		}
		batch := q.actions
		q.actions = nil
		for _, a := range batch {
			if a.undoDisabled && q.undo != nil {
				q.undo.DisableWhileExecuting(a.fn)
			} else {
				a.fn()
			}
		}
		rounds++
		q.log.Debug("postponed round", zap.Int("round", rounds), zap.Int("actions", len(batch)))
	}
	return nil
}

// Clear drops the callbacks waiting.
func (q *Queue) Clear() { q.actions = nil }
