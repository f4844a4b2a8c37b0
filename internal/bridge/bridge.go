// Package bridge defines the contract to the paused process: reading
// values, enumerating members, and probing optional capabilities. The
// wire protocol itself lives behind this interface and is not owned by
// loupe; Snapshot provides an in-memory implementation for tests and the
// CLI.
package bridge

import "context"

// ValueRef is an opaque handle to a runtime value in the debuggee.
type ValueRef string

// ValueKind classifies a runtime value for icon and renderer selection.
type ValueKind string

const (
	KindPrimitive ValueKind = "primitive"
	KindString    ValueKind = "string"
	KindArray     ValueKind = "array"
	KindObject    ValueKind = "object"
	KindNull      ValueKind = "null"
	KindWatch     ValueKind = "watch"
	// KindMessage marks a synthetic informational entry produced by a
	// children renderer, not a real runtime value.
	KindMessage ValueKind = "message"
)

// Descriptor identifies one runtime value. Identity is immutable after
// construction; the unbounded flag only appears on derived full-value
// variants.
type Descriptor struct {
	// Name is the member/variable name shown in the tree.
	Name string

	// Ref locates the value in the debuggee. Empty for message entries.
	Ref ValueRef

	// TypeName is the runtime type, when known.
	TypeName string

	Kind ValueKind

	// Length is the element count for arrays and the rune count for
	// strings; -1 when unknown.
	Length int

	// Unbounded marks the full-value variant of a descriptor: label
	// computation against it must not truncate.
	Unbounded bool

	// OnDemand marks values too expensive to present eagerly; the tree
	// shows a placeholder until the user triggers evaluation.
	OnDemand bool

	// CanSetValue reports whether the debuggee allows writing this value.
	CanSetValue bool

	// EvalTemplate is a source-language expression template that would
	// re-evaluate to this value. "{parent}" refers to the parent node's
	// expression. Empty when the value has no expressible provenance.
	EvalTemplate string

	// Language is the source language of EvalTemplate.
	Language string

	// Imports are side imports the expression needs.
	Imports []string

	// Text is the message text for KindMessage entries.
	Text string
}

// FullVariant derives the unbounded descriptor used by the default
// full-value evaluator.
func (d Descriptor) FullVariant() Descriptor {
	d.Unbounded = true
	return d
}

// Expandable reports whether the tree should offer to expand this value.
func (d Descriptor) Expandable() bool {
	switch d.Kind {
	case KindArray:
		return d.Length != 0
	case KindObject:
		return true
	default:
		return false
	}
}

// Capability names an optional debuggee introspection feature.
type Capability string

// CapReferringObjects is the enhanced "what references this object"
// introspection some debug agents provide.
const CapReferringObjects Capability = "referring-objects"

// Bridge is the read-side contract to the paused process.
//
// All methods are round trips to the debuggee and must only be called
// from within manager commands; that discipline, not locking, is what
// keeps the wire serialized.
type Bridge interface {
	// ReadValue returns the display text of a scalar or string value.
	// Honors Unbounded: a bounded read may be server-side truncated, the
	// unbounded variant never is.
	ReadValue(ctx context.Context, d Descriptor) (string, error)

	// EnumerateMembers returns count member descriptors starting at
	// offset. count < 0 means "all remaining".
	EnumerateMembers(ctx context.Context, ref ValueRef, offset, count int) ([]Descriptor, error)

	// HasCapability probes an optional debuggee feature.
	HasCapability(c Capability) bool

	// ReferringObjects returns descriptors of objects referencing ref,
	// at most limit of them; limit < 0 means no limit.
	ReferringObjects(ctx context.Context, ref ValueRef, limit int) ([]Descriptor, error)

	// SetValue writes a new value, for descriptors that allow it.
	SetValue(ctx context.Context, ref ValueRef, expression string) error
}
