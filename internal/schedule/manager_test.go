package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startManager runs a manager worker and returns a stop function that
// shuts it down and waits for the loop to exit.
func startManager(t *testing.T, m *schedule.Manager) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- m.Run(context.Background())
	}()
	return func() {
		m.Stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("manager did not stop")
		}
	}
}

func TestManager_RunsScheduledCommand(t *testing.T) {
	m := schedule.NewManager()
	stop := startManager(t, m)
	defer stop()

	ran := make(chan struct{})
	ok := m.Schedule(schedule.Command{
		Ctx:      m.NewSuspendContext(),
		Priority: schedule.PriorityNormal,
		Kind:     "presentation",
		Action: func(context.Context) error {
			close(ran)
			return nil
		},
	})
	require.True(t, ok)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("action never ran")
	}
}

func TestManager_EagerCancelOnResumedContext(t *testing.T) {
	m := schedule.NewManager()
	stop := startManager(t, m)
	defer stop()

	ec := m.NewSuspendContext()
	ec.Resume()

	cancelled := false
	ok := m.Schedule(schedule.Command{
		Ctx:  ec,
		Kind: "presentation",
		Action: func(context.Context) error {
			t.Error("action must not run for a resumed context")
			return nil
		},
		Cancelled: func() { cancelled = true },
	})

	// Rejection is synchronous: the cancellation has already run when
	// Schedule returns.
	assert.False(t, ok)
	assert.True(t, cancelled)
}

func TestManager_CancelBetweenEnqueueAndRun(t *testing.T) {
	m := schedule.NewManager()
	ec := m.NewSuspendContext()

	var mu sync.Mutex
	var order []string

	// The worker is not running yet, so both commands sit in the queue.
	m.Schedule(schedule.Command{
		Ctx:  ec,
		Kind: "first",
		Action: func(context.Context) error {
			mu.Lock()
			order = append(order, "first-action")
			mu.Unlock()
			return nil
		},
		Cancelled: func() {
			mu.Lock()
			order = append(order, "first-cancelled")
			mu.Unlock()
		},
	})
	ec.Resume()

	stop := startManager(t, m)
	testutil.Eventually(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 1
	}, "command should be cancelled")
	stop()

	assert.Equal(t, []string{"first-cancelled"}, order)
}

func TestManager_PriorityOrderAcrossBands(t *testing.T) {
	m := schedule.NewManager()
	ec := m.NewSuspendContext()

	var mu sync.Mutex
	var order []string
	add := func(kind string, p schedule.Priority) {
		m.Schedule(schedule.Command{
			Ctx:      ec,
			Priority: p,
			Kind:     kind,
			Action: func(context.Context) error {
				mu.Lock()
				order = append(order, kind)
				mu.Unlock()
				return nil
			},
		})
	}

	// Enqueue before the worker starts so band order is observable.
	add("hint", schedule.PriorityLowest)
	add("children", schedule.PriorityNormal)
	add("expression", schedule.PriorityHigh)
	add("presentation", schedule.PriorityNormal)

	stop := startManager(t, m)
	testutil.Eventually(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 4
	}, "all commands should run")
	stop()

	assert.Equal(t, []string{"expression", "children", "presentation", "hint"}, order)
}

func TestManager_ReentrantScheduling(t *testing.T) {
	m := schedule.NewManager()
	stop := startManager(t, m)
	defer stop()

	ec := m.NewSuspendContext()
	followUp := make(chan struct{})

	m.Schedule(schedule.Command{
		Ctx:  ec,
		Kind: "outer",
		Action: func(context.Context) error {
			// Scheduling from inside an action must not deadlock.
			ok := m.Schedule(schedule.Command{
				Ctx:  ec,
				Kind: "inner",
				Action: func(context.Context) error {
					close(followUp)
					return nil
				},
			})
			require.True(t, ok)
			return nil
		},
	})

	select {
	case <-followUp:
	case <-time.After(time.Second):
		t.Fatal("re-entrantly scheduled command never ran")
	}
}

func TestManager_PlainCommandRunsAfterResume(t *testing.T) {
	m := schedule.NewManager()
	stop := startManager(t, m)
	defer stop()

	ec := m.NewSuspendContext()
	ec.Resume()

	ran := make(chan struct{})
	ok := m.Schedule(schedule.Command{
		Ctx:  nil, // plain command, not bound to any suspension
		Kind: "instance-evaluate",
		Action: func(context.Context) error {
			close(ran)
			return nil
		},
	})
	require.True(t, ok)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("plain command never ran")
	}
}

func TestManager_PanicContained(t *testing.T) {
	rec := testutil.NewMemoryRecorder()
	m := schedule.NewManager(schedule.WithRecorder(rec), schedule.WithSession("s-panic"))
	stop := startManager(t, m)
	defer stop()

	after := make(chan struct{})
	m.Schedule(schedule.Command{
		Ctx:  m.NewSuspendContext(),
		Kind: "boom",
		Action: func(context.Context) error {
			panic("renderer exploded")
		},
	})
	m.Schedule(schedule.Command{
		Ctx:  m.NewSuspendContext(),
		Kind: "after",
		Action: func(context.Context) error {
			close(after)
			return nil
		},
	})

	// The worker survives the panic and keeps dispatching.
	select {
	case <-after:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}

	testutil.Eventually(t, time.Second, func() bool {
		outcomes := rec.Outcomes("boom")
		return len(outcomes) == 2 && outcomes[1] == schedule.OutcomeFailed
	}, "panic should be recorded as a failure")
}

func TestManager_StopCancelsPending(t *testing.T) {
	m := schedule.NewManager()
	ec := m.NewSuspendContext()

	var mu sync.Mutex
	cancelled := 0
	for i := 0; i < 3; i++ {
		m.Schedule(schedule.Command{
			Ctx:  ec,
			Kind: "pending",
			Action: func(context.Context) error {
				t.Error("action must not run after stop")
				return nil
			},
			Cancelled: func() {
				mu.Lock()
				cancelled++
				mu.Unlock()
			},
		})
	}

	m.Stop()
	err := m.Run(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, cancelled)

	// New commands are rejected and cancelled synchronously.
	lateCancelled := false
	ok := m.Schedule(schedule.Command{
		Ctx:       ec,
		Kind:      "late",
		Cancelled: func() { lateCancelled = true },
	})
	assert.False(t, ok)
	assert.True(t, lateCancelled)
}

func TestManager_RunReturnsOnContextCancel(t *testing.T) {
	m := schedule.NewManager()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestManager_RecordsLifecycle(t *testing.T) {
	rec := testutil.NewMemoryRecorder()
	m := schedule.NewManager(schedule.WithRecorder(rec), schedule.WithSession("s-1"))
	stop := startManager(t, m)

	m.Schedule(schedule.Command{
		Ctx:      m.NewSuspendContext(),
		Priority: schedule.PriorityNormal,
		Kind:     "presentation",
		Action:   func(context.Context) error { return nil },
	})

	testutil.Eventually(t, time.Second, func() bool {
		return len(rec.Outcomes("presentation")) == 2
	}, "scheduled and completed events expected")
	stop()

	outcomes := rec.Outcomes("presentation")
	assert.Equal(t, []schedule.Outcome{schedule.OutcomeScheduled, schedule.OutcomeCompleted}, outcomes)

	events := rec.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "s-1", events[0].Session)

	// Sequence numbers are strictly increasing within a session.
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}
}

func TestManager_SuspendContextGenerations(t *testing.T) {
	m := schedule.NewManager()

	ec1 := m.NewSuspendContext()
	ec2 := m.NewSuspendContext()

	assert.Greater(t, ec2.Generation(), ec1.Generation())
	assert.True(t, ec1.Valid())

	ec1.Resume()
	assert.False(t, ec1.Valid())
	assert.True(t, ec2.Valid(), "resuming one episode must not invalidate another")
}
