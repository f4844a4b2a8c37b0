// Package testutil provides shared helpers for loupe tests: an
// in-memory command recorder and polling utilities for asynchronous
// sink assertions.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/hollis-dev/loupe/internal/schedule"
)

// MemoryRecorder captures command lifecycle events in memory.
// Thread-safe; implements schedule.Recorder.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []schedule.CommandEvent
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// RecordCommand implements schedule.Recorder.
func (r *MemoryRecorder) RecordCommand(ev schedule.CommandEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a snapshot of everything recorded so far.
func (r *MemoryRecorder) Events() []schedule.CommandEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schedule.CommandEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Outcomes returns the recorded outcomes for a command kind, in order.
func (r *MemoryRecorder) Outcomes(kind string) []schedule.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schedule.Outcome
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev.Outcome)
		}
	}
	return out
}

// Eventually polls cond until it returns true or the deadline passes.
// Asynchronous results arrive through callbacks on the manager worker,
// so tests wait for observable effects instead of sleeping fixed
// amounts.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
