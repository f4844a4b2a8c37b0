package schedule

import "sync/atomic"

// ExecutionContext identifies one suspension episode of the debug target:
// "the program is currently suspended at point P".
//
// A context is immutable once captured except for the resumed flag, which
// flips exactly once when the target resumes. After that the context is
// permanently invalid - no command bound to it may produce a UI-visible
// effect.
//
// Many value nodes share one context per suspension episode. Contexts are
// created by the manager when the target suspends (breakpoint, step,
// pause) and invalidated when it resumes.
type ExecutionContext struct {
	generation int64
	resumed    atomic.Bool
}

// Generation returns the monotonic stamp of this suspension episode.
func (c *ExecutionContext) Generation() int64 {
	return c.generation
}

// Resume marks the context permanently invalid.
// Safe to call from any goroutine, idempotent.
func (c *ExecutionContext) Resume() {
	c.resumed.Store(true)
}

// Resumed reports whether the target has resumed since this context was
// captured.
func (c *ExecutionContext) Resumed() bool {
	return c.resumed.Load()
}

// Valid reports whether commands bound to this context may still run.
// A nil context is always valid: it represents a plain command that is
// not tied to any suspension episode.
func (c *ExecutionContext) Valid() bool {
	return c == nil || !c.resumed.Load()
}
