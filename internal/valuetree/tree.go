package valuetree

import (
	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/render"
	"github.com/hollis-dev/loupe/internal/schedule"
)

// DefaultMaxValueLength is the display-length threshold beyond which a
// presentation gets truncated and receives a default full-value
// evaluator. Presentation policy, so it is a configuration input.
const DefaultMaxValueLength = 1000

// Options carries the presentation-policy knobs for a tree.
type Options struct {
	// MaxValueLength is the maximum display length of a label before
	// truncation kicks in.
	MaxValueLength int
}

// SourcePosition locates a symbol in project sources.
type SourcePosition struct {
	File string
	Line int
}

// SourceNavigator is the project/source-navigation collaborator. Lookups
// run under a read-only snapshot of program and source state, on the
// manager worker.
type SourceNavigator interface {
	// SourcePosition returns where the descriptor's symbol is declared,
	// or nil. The inline variant may prefer a position suited for inline
	// hints.
	SourcePosition(d bridge.Descriptor, inline bool) *SourcePosition

	// TypeSourcePosition returns where the descriptor's runtime type is
	// declared, or nil.
	TypeSourcePosition(d bridge.Descriptor) *SourcePosition
}

// Navigatable receives an asynchronously computed source position.
// A nil position means the lookup was cancelled or found nothing.
type Navigatable interface {
	SetSourcePosition(pos *SourcePosition)
}

// Tree ties together the collaborators shared by every node of one
// inspection tree: the manager, the bridge, the renderer registry, and
// the navigation collaborator.
type Tree struct {
	mgr  *schedule.Manager
	br   bridge.Bridge
	reg  *render.Registry
	nav  SourceNavigator
	opts Options
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithNavigator attaches the source-navigation collaborator.
func WithNavigator(nav SourceNavigator) TreeOption {
	return func(t *Tree) {
		t.nav = nav
	}
}

// WithMaxValueLength overrides the truncation threshold.
func WithMaxValueLength(n int) TreeOption {
	return func(t *Tree) {
		t.opts.MaxValueLength = n
	}
}

// NewTree creates a tree over the given manager, bridge, and registry.
func NewTree(mgr *schedule.Manager, br bridge.Bridge, reg *render.Registry, opts ...TreeOption) *Tree {
	t := &Tree{
		mgr:  mgr,
		br:   br,
		reg:  reg,
		opts: Options{MaxValueLength: DefaultMaxValueLength},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Manager returns the manager this tree schedules on.
func (t *Tree) Manager() *schedule.Manager {
	return t.mgr
}

// NewRootNode creates a top-level node (frame local, watch, evaluation
// result) bound to the given suspension episode.
func (t *Tree) NewRootNode(d bridge.Descriptor, ec *schedule.ExecutionContext) *Node {
	return t.newNode(nil, d, ec)
}

// newChild creates a child node sharing the parent's context.
func (t *Tree) newChild(parent *Node, d bridge.Descriptor) *Node {
	return t.newNode(parent, d, parent.ec)
}

func (t *Tree) newNode(parent *Node, d bridge.Descriptor, ec *schedule.ExecutionContext) *Node {
	return &Node{
		tree:              t,
		name:              d.Name,
		descriptor:        d,
		parent:            parent,
		ec:                ec,
		childrenRemaining: -1,
	}
}
