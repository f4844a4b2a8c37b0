// Package render defines the renderer contract the value tree computes
// against: label producers, children builders, and optional full-value
// evaluator providers. Which renderer applies to which runtime type is
// deliberately a thin kind-based lookup here - registry policy belongs
// to the embedding debugger, not to the engine.
package render

import (
	"context"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/ui"
)

// Label is the computed display text for a value.
type Label struct {
	Text     string
	TypeHint string
}

// LabelListener receives the result of an asynchronous label
// computation. Label computation can involve nested round-trips to the
// debuggee, so results always arrive through this callback rather than a
// return value.
type LabelListener interface {
	LabelComputed(l Label)
	LabelFailed(err error)
}

// Renderer produces a label for one value.
type Renderer interface {
	Name() string
	ComputeLabel(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, listener LabelListener)
}

// CompoundRenderer composes a label renderer with other behavior. The
// presentation computation consults the composed label renderer for a
// full-value evaluator when the outer renderer supplies none.
type CompoundRenderer interface {
	Renderer
	LabelRenderer() Renderer
}

// FullValueEvaluatorProvider is implemented by renderers that supply
// their own "show more" affordance. A nil return means none.
type FullValueEvaluatorProvider interface {
	FullValueEvaluator(ec *schedule.ExecutionContext, d bridge.Descriptor) ui.FullValueEvaluator
}

// ChildrenBuilder is the adapter the value tree hands to a children
// renderer. The builder wraps descriptors into child nodes, tracks the
// pagination cursor, and forwards everything else to the UI sink.
//
// IsObsolete lets a builder short-circuit expensive enumeration early.
type ChildrenBuilder interface {
	AddChildren(ds []bridge.Descriptor, last bool)
	// SetChildren is shorthand for AddChildren(ds, true).
	SetChildren(ds []bridge.Descriptor)
	SetMessage(text string, icon ui.Icon, style ui.MessageStyle, link *ui.TreeLink)
	TooManyChildren(remaining int)
	SetAlreadySorted(sorted bool)
	SetErrorMessage(text string, link *ui.TreeLink)
	// ArrayStart returns the element offset a paginated fetch should
	// start at, given the array's total length. Resumes after a previous
	// TooManyChildren rather than restarting from zero.
	ArrayStart(length int) int
	IsObsolete() bool
}

// ChildrenRenderer enumerates a value's children through the builder.
type ChildrenRenderer interface {
	Name() string
	BuildChildren(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, cb ChildrenBuilder)
}
