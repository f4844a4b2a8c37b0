package schedule

import (
	"context"
	"sync"
)

// Priority orders commands in the manager queue. Lower values run first.
type Priority int

const (
	// PriorityHigh is for user-triggered navigation and evaluation.
	PriorityHigh Priority = iota
	// PriorityNormal is for presentation and children computation.
	PriorityNormal
	// PriorityLowest is for passive inline hints.
	PriorityLowest

	numPriorities
)

// String returns a short name for logging.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLowest:
		return "lowest"
	default:
		return "unknown"
	}
}

// Command is one unit of work against the debug target.
//
// Ctx binds the command to a suspension episode; nil means a plain
// command that runs regardless of suspension state (used for work that
// must run even outside a normal suspend flow).
//
// Exactly one of Action or Cancelled runs, exactly once, for every
// command accepted by Schedule. Cancelled runs when the bound context is
// invalidated before the action starts, or when the manager shuts down
// with the command still queued.
type Command struct {
	// Ctx is the bound execution context, or nil for a plain command.
	Ctx *ExecutionContext

	// Priority selects the queue band. Zero value is PriorityHigh, so
	// most callers set it explicitly.
	Priority Priority

	// Kind names the command for logging and tracing ("presentation",
	// "children", "expression", ...).
	Kind string

	// Action performs the work on the manager worker.
	Action func(ctx context.Context) error

	// Cancelled runs instead of Action when the command is discarded.
	// May be nil.
	Cancelled func()
}

// commandQueue is a thread-safe priority queue for commands.
//
// Three fixed bands with FIFO order inside each band; the highest
// non-empty band is drained first. The queue is unbounded so that a
// running action can re-entrantly schedule follow-up work without
// blocking the worker.
//
// The signal channel coalesces wakeups for the worker's select loop and
// is closed on Close to wake any waiter.
type commandQueue struct {
	mu     sync.Mutex
	bands  [numPriorities][]Command
	closed bool
	signal chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a command to its priority band.
// Thread-safe: may be called from any goroutine, including the worker.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(cmd Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.bands[cmd.Priority] = append(q.bands[cmd.Priority], cmd)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front command of the highest non-empty band.
// Returns (Command{}, false) if all bands are empty.
func (q *commandQueue) TryDequeue() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := range q.bands {
		band := q.bands[p]
		if len(band) == 0 {
			continue
		}
		cmd := band[0]

		// Nil out the slot so the command's closures (and everything they
		// capture) become collectable while still referenced by the
		// backing array.
		band[0] = Command{}
		if len(band) == 1 {
			q.bands[p] = band[:0]
		} else {
			q.bands[p] = band[1:]
		}
		return cmd, true
	}
	return Command{}, false
}

// Wait returns a channel that signals when commands may be available.
// The channel is closed when the queue closes.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the total number of queued commands.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for p := range q.bands {
		n += len(q.bands[p])
	}
	return n
}

// Closed reports whether Close has been called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close marks the queue closed and wakes all waiters.
// Commands still queued remain dequeueable so the worker can run their
// cancellation path.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
