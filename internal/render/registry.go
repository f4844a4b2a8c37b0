package render

import (
	"sync"

	"github.com/hollis-dev/loupe/internal/bridge"
)

// DefaultChildrenBatch is the fallback per-expansion element limit when
// the registry is built without an explicit batch size.
const DefaultChildrenBatch = 100

// Registry maps runtime values to renderers. The selection policy here
// is the minimal kind-based one the engine, its tests, and the CLI need;
// embedding debuggers register richer renderers by name.
type Registry struct {
	mu        sync.RWMutex
	labelers  map[string]Renderer
	builders  map[string]ChildrenRenderer
	batchSize int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithChildrenBatch sets the per-expansion element limit used by the
// built-in array renderer.
func WithChildrenBatch(n int) RegistryOption {
	return func(r *Registry) {
		r.batchSize = n
	}
}

// NewRegistry creates a registry pre-populated with the built-in
// renderers.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		labelers:  make(map[string]Renderer),
		builders:  make(map[string]ChildrenRenderer),
		batchSize: DefaultChildrenBatch,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Register(DefaultRenderer{})
	r.Register(ArrayRenderer{})
	r.RegisterChildren(ArrayChildrenRenderer{Batch: r.batchSize})
	r.RegisterChildren(ObjectChildrenRenderer{})
	r.RegisterChildren(LeafChildrenRenderer{})

	return r
}

// Register adds or replaces a label renderer under its name.
func (r *Registry) Register(renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labelers[renderer.Name()] = renderer
}

// RegisterChildren adds or replaces a children renderer under its name.
func (r *Registry) RegisterChildren(renderer ChildrenRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[renderer.Name()] = renderer
}

// Lookup returns the named label renderer.
func (r *Registry) Lookup(name string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.labelers[name]
	return renderer, ok
}

// RendererFor selects the label renderer for a descriptor. A non-empty
// override names a registered renderer to use instead of the kind-based
// choice; unknown overrides fall through to the default selection.
func (r *Registry) RendererFor(d bridge.Descriptor, override string) Renderer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if override != "" {
		if renderer, ok := r.labelers[override]; ok {
			return renderer
		}
	}
	switch d.Kind {
	case bridge.KindArray:
		return r.labelers["array"]
	default:
		return r.labelers["default"]
	}
}

// ChildrenRendererFor selects the children renderer for a descriptor.
func (r *Registry) ChildrenRendererFor(d bridge.Descriptor, override string) ChildrenRenderer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if override != "" {
		if renderer, ok := r.builders[override]; ok {
			return renderer
		}
	}
	switch d.Kind {
	case bridge.KindArray:
		return r.builders["array"]
	case bridge.KindObject:
		return r.builders["object"]
	default:
		return r.builders["leaf"]
	}
}
