package render

import (
	"context"
	"fmt"

	"github.com/hollis-dev/loupe/internal/bridge"
)

// DefaultRenderer reads a value's display text straight from the bridge.
type DefaultRenderer struct{}

func (DefaultRenderer) Name() string { return "default" }

func (DefaultRenderer) ComputeLabel(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, listener LabelListener) {
	if d.Kind == bridge.KindNull {
		listener.LabelComputed(Label{Text: "null", TypeHint: d.TypeName})
		return
	}
	text, err := b.ReadValue(ctx, d)
	if err != nil {
		listener.LabelFailed(err)
		return
	}
	listener.LabelComputed(Label{Text: text, TypeHint: d.TypeName})
}

// ArrayRenderer labels an array by its length.
type ArrayRenderer struct{}

func (ArrayRenderer) Name() string { return "array" }

func (ArrayRenderer) ComputeLabel(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, listener LabelListener) {
	if d.Length >= 0 {
		listener.LabelComputed(Label{Text: fmt.Sprintf("size = %d", d.Length), TypeHint: d.TypeName})
		return
	}
	listener.LabelComputed(Label{TypeHint: d.TypeName})
}

// ArrayChildrenRenderer enumerates array elements in batches, resuming
// from the pagination cursor recorded by a previous too-many-children
// cutoff.
type ArrayChildrenRenderer struct {
	// Batch is the maximum number of elements per expansion.
	Batch int
}

func (r ArrayChildrenRenderer) Name() string { return "array" }

func (r ArrayChildrenRenderer) BuildChildren(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, cb ChildrenBuilder) {
	if cb.IsObsolete() {
		return
	}

	length := d.Length
	if length < 0 {
		cb.SetErrorMessage(fmt.Sprintf("array %s has unknown length", d.Name), nil)
		return
	}

	start := cb.ArrayStart(length)
	end := length
	if r.Batch > 0 && start+r.Batch < end {
		end = start + r.Batch
	}

	elems, err := b.EnumerateMembers(ctx, d.Ref, start, end-start)
	if err != nil {
		cb.SetErrorMessage(err.Error(), nil)
		return
	}

	// Elements arrive in index order.
	cb.SetAlreadySorted(true)
	cb.AddChildren(elems, end >= length)
	if end < length {
		cb.TooManyChildren(length - end)
	}
}

// ObjectChildrenRenderer enumerates all members of an object. It never
// declares the batch sorted, so the builder orders fields by name.
type ObjectChildrenRenderer struct{}

func (ObjectChildrenRenderer) Name() string { return "object" }

func (ObjectChildrenRenderer) BuildChildren(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, cb ChildrenBuilder) {
	if cb.IsObsolete() {
		return
	}
	members, err := b.EnumerateMembers(ctx, d.Ref, 0, -1)
	if err != nil {
		cb.SetErrorMessage(err.Error(), nil)
		return
	}
	cb.SetChildren(members)
}

// LeafChildrenRenderer is used for values with nothing to expand.
type LeafChildrenRenderer struct{}

func (LeafChildrenRenderer) Name() string { return "leaf" }

func (LeafChildrenRenderer) BuildChildren(ctx context.Context, b bridge.Bridge, d bridge.Descriptor, cb ChildrenBuilder) {
	cb.SetChildren(nil)
}
