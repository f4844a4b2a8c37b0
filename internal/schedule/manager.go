package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// CommandEvent describes one transition in a command's lifecycle, for
// post-mortem tracing.
type CommandEvent struct {
	Session  string
	Seq      int64
	Kind     string
	Priority Priority
	Outcome  Outcome
	Error    string
}

// Outcome labels a command lifecycle transition.
type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Recorder receives command lifecycle events.
// Implemented by trace.Store (SQLite) in production and by an in-memory
// recorder in tests. Recording failures are the recorder's problem; the
// manager never blocks on it.
type Recorder interface {
	RecordCommand(ev CommandEvent)
}

// Manager owns the serialization guarantee over the debuggee connection.
//
// Exactly one command runs at a time, system-wide, in priority order with
// FIFO ties. Schedule never blocks; results flow back through the
// command's own callbacks. There is no ambient singleton: everything that
// must run serialized holds an explicit *Manager.
type Manager struct {
	queue   *commandQueue
	clock   *Clock
	rec     Recorder
	session string
	stopped atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder attaches a command lifecycle recorder.
func WithRecorder(rec Recorder) Option {
	return func(m *Manager) {
		m.rec = rec
	}
}

// WithSession sets the session token stamped onto recorded events.
func WithSession(token string) Option {
	return func(m *Manager) {
		m.session = token
	}
}

// NewManager creates a manager with an empty queue.
// Run must be started on exactly one goroutine before scheduled commands
// make progress.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		queue: newCommandQueue(),
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.session == "" {
		m.session = UUIDv7Generator{}.Generate()
	}
	return m
}

// Session returns the session token for this manager.
func (m *Manager) Session() string {
	return m.session
}

// NewSuspendContext captures a new suspension episode.
// Called when the target suspends; the returned context is shared by all
// value nodes created during that episode.
func (m *Manager) NewSuspendContext() *ExecutionContext {
	return &ExecutionContext{generation: m.clock.Next()}
}

// Schedule enqueues a command for execution. Non-blocking.
//
// Returns false when the command was not accepted - its bound context is
// already invalid or the manager has shut down - in which case the
// command's cancellation closure has already run.
func (m *Manager) Schedule(cmd Command) bool {
	if !cmd.Ctx.Valid() {
		m.cancel(cmd)
		return false
	}
	if !m.queue.Enqueue(cmd) {
		m.cancel(cmd)
		return false
	}
	m.record(cmd, OutcomeScheduled, nil)
	return true
}

// QueueLen returns the number of pending commands.
// Useful for monitoring and testing.
func (m *Manager) QueueLen() int {
	return m.queue.Len()
}

// Run starts the single-consumer worker loop.
// Blocks until the context is cancelled or Stop is called; commands still
// queued at that point are drained through their cancellation path.
//
// Must be called from exactly one goroutine.
func (m *Manager) Run(ctx context.Context) error {
	slog.Info("manager starting", "session", m.session)

	for {
		cmd, ok := m.queue.TryDequeue()
		if ok {
			m.dispatch(ctx, cmd)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("manager stopping: context cancelled", "session", m.session)
			m.stopped.Store(true)
			m.queue.Close()
			m.drain()
			return ctx.Err()

		case <-m.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately from then on.
			if m.stopped.Load() || m.queue.Len() == 0 && m.queue.Closed() {
				m.drain()
				slog.Info("manager stopping: queue closed", "session", m.session)
				return nil
			}
		}
	}
}

// Stop shuts the manager down. Pending commands are cancelled, not run.
func (m *Manager) Stop() {
	m.stopped.Store(true)
	m.queue.Close()
}

// dispatch runs exactly one of a command's action or cancellation.
// Called only from the Run goroutine.
func (m *Manager) dispatch(ctx context.Context, cmd Command) {
	// Validity is re-checked here, immediately before the action, to
	// close the race where the target resumed after enqueue.
	if m.stopped.Load() || !cmd.Ctx.Valid() {
		m.cancel(cmd)
		return
	}

	err := m.runAction(ctx, cmd)
	if err != nil {
		slog.Error("command failed",
			"session", m.session,
			"kind", cmd.Kind,
			"priority", cmd.Priority,
			"error", err,
		)
		m.record(cmd, OutcomeFailed, err)
		return
	}
	m.record(cmd, OutcomeCompleted, nil)
}

// runAction invokes the action with panic containment. Nothing thrown
// from an action may escape the worker.
func (m *Manager) runAction(ctx context.Context, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewComputationError(fmt.Sprintf("command %q panicked: %v", cmd.Kind, r), nil)
		}
	}()
	if cmd.Action == nil {
		return nil
	}
	return cmd.Action(ctx)
}

// cancel runs the command's cancellation closure exactly once.
func (m *Manager) cancel(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cancellation panicked",
				"session", m.session,
				"kind", cmd.Kind,
				"panic", r,
			)
		}
	}()
	m.record(cmd, OutcomeCancelled, nil)
	if cmd.Cancelled != nil {
		cmd.Cancelled()
	}
}

// drain cancels everything left in the queue after shutdown.
func (m *Manager) drain() {
	for {
		cmd, ok := m.queue.TryDequeue()
		if !ok {
			return
		}
		m.cancel(cmd)
	}
}

func (m *Manager) record(cmd Command, outcome Outcome, err error) {
	if m.rec == nil {
		return
	}
	ev := CommandEvent{
		Session:  m.session,
		Seq:      m.clock.Next(),
		Kind:     cmd.Kind,
		Priority: cmd.Priority,
		Outcome:  outcome,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.rec.RecordCommand(ev)
}
