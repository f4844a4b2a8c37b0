package valuetree

import (
	"context"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/ui"
)

// DefaultReferrersLimit bounds enhanced referring-objects queries so a
// heavily shared object cannot flood the tree.
const DefaultReferrersLimit = 1000

// ReferrersProvider answers "what other objects reference this value".
type ReferrersProvider interface {
	Name() string
	ReferringObjects(ctx context.Context) ([]bridge.Descriptor, error)
}

// ReferrersProvider selects the referring-objects strategy for this
// value: the enhanced agent-backed provider when the debuggee supports
// the capability, else the baseline reflection walk.
func (n *Node) ReferrersProvider() ReferrersProvider {
	if n.tree.br.HasCapability(bridge.CapReferringObjects) {
		return &agentReferrers{n: n, limit: DefaultReferrersLimit}
	}
	return &basicReferrers{n: n}
}

// agentReferrers uses the debuggee's introspection agent, which can
// enumerate incoming references up to a limit.
type agentReferrers struct {
	n     *Node
	limit int
}

func (p *agentReferrers) Name() string { return "agent" }

func (p *agentReferrers) ReferringObjects(ctx context.Context) ([]bridge.Descriptor, error) {
	return p.n.tree.br.ReferringObjects(ctx, p.n.descriptor.Ref, p.limit)
}

// basicReferrers is the unbounded reflection-based fallback.
type basicReferrers struct {
	n *Node
}

func (p *basicReferrers) Name() string { return "basic" }

func (p *basicReferrers) ReferringObjects(ctx context.Context) ([]bridge.Descriptor, error) {
	return p.n.tree.br.ReferringObjects(ctx, p.n.descriptor.Ref, -1)
}

// Frame is a stack frame that can construct an evaluation context, for
// "inspect this object as seen from another frame".
type Frame interface {
	EvaluationContext() (*schedule.ExecutionContext, error)
}

// EvaluationCallback receives the re-rooted value or an error message.
type EvaluationCallback interface {
	Evaluated(v ui.Value)
	ErrorOccurred(message string)
}

// InstanceEvaluator re-roots this value's descriptor in another frame's
// evaluation context.
type InstanceEvaluator interface {
	Evaluate(cb EvaluationCallback, frame Frame)
}

// InstanceEvaluator returns the re-rooting hook for this node.
func (n *Node) InstanceEvaluator() InstanceEvaluator {
	return &instanceEvaluator{n: n}
}

type instanceEvaluator struct {
	n *Node
}

// Evaluate runs as a plain command, not bound to any suspension episode,
// so it works even outside a normal suspend-command flow.
func (e *instanceEvaluator) Evaluate(cb EvaluationCallback, frame Frame) {
	n := e.n
	n.tree.mgr.Schedule(schedule.Command{
		Priority: schedule.PriorityNormal,
		Kind:     "instance-evaluate",
		Cancelled: func() {
			cb.ErrorOccurred(messageContextChanged)
		},
		Action: func(ctx context.Context) error {
			ec, err := frame.EvaluationContext()
			if err != nil || ec == nil {
				cb.ErrorOccurred("context is not available")
				return nil
			}
			cb.Evaluated(n.tree.NewRootNode(n.descriptor, ec))
			return nil
		},
	})
}
