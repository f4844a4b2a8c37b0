package valuetree_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/render"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/testutil"
	"github.com/hollis-dev/loupe/internal/ui"
	"github.com/hollis-dev/loupe/internal/valuetree"
)

func TestNode_ReferrersProvider_SelectsByCapability(t *testing.T) {
	f := newFixture(t, 100)
	defer f.stop()

	n := f.tree.NewRootNode(bridge.Descriptor{Name: "o", Ref: "o1", Kind: bridge.KindObject}, f.ec)
	assert.Equal(t, "basic", n.ReferrersProvider().Name())

	f.snap.EnableCapability(bridge.CapReferringObjects)
	assert.Equal(t, "agent", n.ReferrersProvider().Name())
}

func TestNode_ReferrersProvider_ReturnsReferrers(t *testing.T) {
	f := newFixture(t, 100)
	defer f.stop()

	target := bridge.Descriptor{Name: "shared", Ref: "t1", Kind: bridge.KindObject}
	holder := bridge.Descriptor{Name: "holder", Ref: "h1", Kind: bridge.KindObject}
	f.snap.Add(bridge.Entry{Descriptor: target, Referrers: []bridge.ValueRef{"h1"}})
	f.snap.Add(bridge.Entry{Descriptor: holder})

	n := f.tree.NewRootNode(target, f.ec)
	ds, err := n.ReferrersProvider().ReferringObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "holder", ds[0].Name)
}

// evalRecorder captures the outcome of an instance evaluation.
type evalRecorder struct {
	mu     sync.Mutex
	value  ui.Value
	errMsg string
	done   bool
}

func (r *evalRecorder) Evaluated(v ui.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
	r.done = true
}

func (r *evalRecorder) ErrorOccurred(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = message
	r.done = true
}

func (r *evalRecorder) wait(t *testing.T) (ui.Value, string) {
	t.Helper()
	testutil.Eventually(t, 2*time.Second, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.done
	}, "evaluation result expected")
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.errMsg
}

// stubFrame hands out a fixed evaluation context.
type stubFrame struct {
	ec  *schedule.ExecutionContext
	err error
}

func (s stubFrame) EvaluationContext() (*schedule.ExecutionContext, error) {
	return s.ec, s.err
}

func TestNode_InstanceEvaluator_RerootsInFrameContext(t *testing.T) {
	f := newFixture(t, 100)
	defer f.stop()

	f.addPrimitive("r1", "count", "42")
	d := bridge.Descriptor{Name: "count", Ref: "r1", Kind: bridge.KindPrimitive, Length: -1}
	n := f.tree.NewRootNode(d, f.ec)

	// The original episode ended, but instance evaluation still works:
	// it runs as a plain command and binds to the frame's context.
	f.ec.Resume()
	frameCtx := f.mgr.NewSuspendContext()

	cb := &evalRecorder{}
	n.InstanceEvaluator().Evaluate(cb, stubFrame{ec: frameCtx})

	value, errMsg := cb.wait(t)
	require.Empty(t, errMsg)
	require.NotNil(t, value)

	reRooted := value.(*valuetree.Node)
	assert.Same(t, frameCtx, reRooted.Context())
	assert.Nil(t, reRooted.Parent())
	assert.Equal(t, "count", reRooted.Name())
}

func TestNode_InstanceEvaluator_FrameWithoutContext(t *testing.T) {
	f := newFixture(t, 100)
	defer f.stop()

	n := f.tree.NewRootNode(bridge.Descriptor{Name: "o", Ref: "o1", Kind: bridge.KindObject}, f.ec)

	cb := &evalRecorder{}
	n.InstanceEvaluator().Evaluate(cb, stubFrame{err: errors.New("frame gone")})

	value, errMsg := cb.wait(t)
	assert.Nil(t, value)
	assert.Equal(t, "context is not available", errMsg)
}

// stubNavigator resolves fixed positions.
type stubNavigator struct {
	regular *valuetree.SourcePosition
	inline  *valuetree.SourcePosition
	typed   *valuetree.SourcePosition
}

func (s stubNavigator) SourcePosition(d bridge.Descriptor, inline bool) *valuetree.SourcePosition {
	if inline {
		return s.inline
	}
	return s.regular
}

func (s stubNavigator) TypeSourcePosition(d bridge.Descriptor) *valuetree.SourcePosition {
	return s.typed
}

// positionRecorder collects positions as they arrive.
type positionRecorder struct {
	mu        sync.Mutex
	positions []*valuetree.SourcePosition
}

func (r *positionRecorder) SetSourcePosition(pos *valuetree.SourcePosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, pos)
}

func (r *positionRecorder) all() []*valuetree.SourcePosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*valuetree.SourcePosition, len(r.positions))
	copy(out, r.positions)
	return out
}

func TestNode_ComputeSourcePosition(t *testing.T) {
	nav := stubNavigator{regular: &valuetree.SourcePosition{File: "Config.java", Line: 42}}

	snap := bridge.New()
	mgr := schedule.NewManager()
	tree := newNavigatedTree(t, mgr, snap, nav)
	stop := runManager(t, mgr)
	defer stop()

	n := tree.NewRootNode(bridge.Descriptor{Name: "cfg", Ref: "c1", Kind: bridge.KindObject}, mgr.NewSuspendContext())

	rec := &positionRecorder{}
	n.ComputeSourcePosition(rec)

	testutil.Eventually(t, 2*time.Second, func() bool {
		return len(rec.all()) == 1
	}, "position expected")
	assert.Equal(t, &valuetree.SourcePosition{File: "Config.java", Line: 42}, rec.all()[0])
}

func TestNode_ComputeInlinePosition_ReportsBoth(t *testing.T) {
	nav := stubNavigator{
		regular: &valuetree.SourcePosition{File: "Config.java", Line: 42},
		inline:  &valuetree.SourcePosition{File: "Config.java", Line: 48},
	}

	snap := bridge.New()
	mgr := schedule.NewManager()
	tree := newNavigatedTree(t, mgr, snap, nav)
	stop := runManager(t, mgr)
	defer stop()

	n := tree.NewRootNode(bridge.Descriptor{Name: "cfg", Ref: "c1", Kind: bridge.KindObject}, mgr.NewSuspendContext())

	rec := &positionRecorder{}
	n.ComputeInlinePosition(rec)

	testutil.Eventually(t, 2*time.Second, func() bool {
		return len(rec.all()) == 2
	}, "declaration and inline positions expected")
	assert.Equal(t, 42, rec.all()[0].Line)
	assert.Equal(t, 48, rec.all()[1].Line)
}

func TestNode_ComputeTypeSourcePosition_SkipsResumedContext(t *testing.T) {
	nav := stubNavigator{typed: &valuetree.SourcePosition{File: "Config.java", Line: 1}}

	snap := bridge.New()
	mgr := schedule.NewManager()
	tree := newNavigatedTree(t, mgr, snap, nav)

	ec := mgr.NewSuspendContext()
	ec.Resume()
	n := tree.NewRootNode(bridge.Descriptor{Name: "cfg", Ref: "c1", Kind: bridge.KindObject}, ec)

	rec := &positionRecorder{}
	n.ComputeTypeSourcePosition(rec)

	// Skipped outright: nothing was even enqueued.
	assert.Equal(t, 0, mgr.QueueLen())
	assert.Empty(t, rec.all())
}

func newNavigatedTree(t *testing.T, mgr *schedule.Manager, snap *bridge.Snapshot, nav valuetree.SourceNavigator) *valuetree.Tree {
	t.Helper()
	return valuetree.NewTree(mgr, snap, render.NewRegistry(), valuetree.WithNavigator(nav))
}

func runManager(t *testing.T, mgr *schedule.Manager) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- mgr.Run(context.Background())
	}()
	return func() {
		mgr.Stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("manager did not stop")
		}
	}
}
