// Package schedule implements the loupe manager queue.
//
// All communication with a live debug target funnels through a single
// worker goroutine so that the wire connection never sees concurrent
// commands. Callers enqueue commands bound to an execution context (one
// suspension episode of the debuggee) and get results back through
// callbacks; nothing here ever blocks the caller.
//
// ARCHITECTURE:
//
// Single-Consumer Priority Queue:
// Commands drain on one goroutine in priority order, FIFO within a
// priority band. This gives total mutual exclusion over the debuggee
// connection without any per-resource locking.
//
// Cancellation Discipline:
// Every command carries both an action and a cancellation closure, and
// exactly one of them runs, exactly once. A command whose execution
// context has been invalidated (the target resumed) never runs its
// action - the cancellation closure fires instead, before the command is
// discarded. The same path handles manager shutdown.
//
// Re-entrant Scheduling:
// A running action may itself call Schedule to enqueue follow-up work.
// This is how two-phase computations (compute a label, then compute a
// fuller label on demand) are expressed.
//
// Nothing thrown from an action escapes the worker: panics are recovered
// and converted to computation failures, errors are logged and the loop
// continues.
package schedule
