package valuetree

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/ui"
)

const messageContextChanged = "context has changed"

// Node is one inspectable runtime value in the presentation tree.
//
// Identity (descriptor, parent, context) is immutable after
// construction. The parent reference is non-owning and used only to
// compute relative presentation, never to extend lifetime or traverse
// upward for lifetime purposes.
type Node struct {
	tree       *Tree
	name       string
	descriptor bridge.Descriptor
	parent     *Node
	ec         *schedule.ExecutionContext

	// calculated flips once when an on-demand value is first triggered.
	calculated atomic.Bool

	mu sync.Mutex
	// childrenRemaining is the pagination cursor: how many child entries
	// a previous expansion withheld. -1 means unknown.
	childrenRemaining int
	// rendererName overrides the registry's kind-based selection.
	rendererName string
	// valueText caches the last computed label text.
	valueText string

	exprFuture atomic.Pointer[ExpressionFuture]
}

// Name returns the member/variable name shown in the tree.
func (n *Node) Name() string {
	return n.name
}

// Descriptor returns the node's runtime value descriptor.
func (n *Node) Descriptor() bridge.Descriptor {
	return n.descriptor
}

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// Context returns the suspension episode this node belongs to.
func (n *Node) Context() *schedule.ExecutionContext {
	return n.ec
}

// ValueText returns the last computed label text, "" before the first
// presentation completes.
func (n *Node) ValueText() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.valueText
}

func (n *Node) setValueText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.valueText = text
}

// InlinePresentation returns the short inline text for primitive and
// null values; ok is false for values too rich to show inline.
func (n *Node) InlinePresentation() (text string, ok bool) {
	switch n.descriptor.Kind {
	case bridge.KindPrimitive, bridge.KindNull, bridge.KindString:
		return n.ValueText(), true
	default:
		return "", false
	}
}

func (n *Node) childrenRemainingValue() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.childrenRemaining
}

func (n *Node) setChildrenRemaining(remaining int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.childrenRemaining = remaining
}

func (n *Node) resetChildrenCursor() {
	n.setChildrenRemaining(-1)
}

func (n *Node) rendererOverride() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rendererName
}

func (n *Node) setRendererOverride(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rendererName = name
}

// SetRenderer switches the node to a named renderer and rebuilds the
// row: the pagination cursor resets to unknown, the children subtree is
// dropped, and presentation recomputes.
func (n *Node) SetRenderer(name string, sink ui.RebuildSink) {
	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityNormal,
		Kind:     "rebuild",
		Cancelled: func() {
			sink.SetPresentation(ui.NewErrorPresentation(messageContextChanged), false)
		},
		Action: func(ctx context.Context) error {
			n.setRendererOverride(name)
			n.resetChildrenCursor()
			sink.ClearChildren()
			n.ComputePresentation(sink)
			return nil
		},
	})
}

// Modifier is the set-value hook for writable descriptors.
type Modifier interface {
	// SetValue writes a new value expression; done is invoked with the
	// outcome, possibly from the manager worker.
	SetValue(expression string, done func(err error))
}

// Modifier returns the set-value hook, or nil when the debuggee does not
// allow writing this value.
func (n *Node) Modifier() Modifier {
	if !n.descriptor.CanSetValue {
		return nil
	}
	return &modifier{n: n}
}

type modifier struct {
	n *Node
}

func (m *modifier) SetValue(expression string, done func(err error)) {
	n := m.n
	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityHigh,
		Kind:     "set-value",
		Cancelled: func() {
			done(schedule.NewContextChangedError(n.ec.Generation()))
		},
		Action: func(ctx context.Context) error {
			done(n.tree.br.SetValue(ctx, n.descriptor.Ref, expression))
			return nil
		},
	})
}
