package valuetree

import (
	"context"

	"github.com/hollis-dev/loupe/internal/schedule"
)

// ComputeSourcePosition asynchronously resolves where this value's
// symbol is declared and reports it to the navigatable. Cancellation
// reports a nil position.
func (n *Node) ComputeSourcePosition(nav Navigatable) {
	n.computeSourcePosition(nav, false)
}

// ComputeInlinePosition is the passive variant used for inline debugger
// hints. It runs at the lowest priority so user-triggered work always
// goes first, and additionally reports the inline-preferred position.
func (n *Node) ComputeInlinePosition(nav Navigatable) {
	n.computeSourcePosition(nav, true)
}

func (n *Node) computeSourcePosition(nav Navigatable, inline bool) {
	priority := schedule.PriorityNormal
	if inline {
		priority = schedule.PriorityLowest
	}
	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: priority,
		Kind:     "source-position",
		Cancelled: func() {
			nav.SetSourcePosition(nil)
		},
		Action: func(ctx context.Context) error {
			if n.tree.nav == nil {
				nav.SetSourcePosition(nil)
				return nil
			}
			if pos := n.tree.nav.SourcePosition(n.descriptor, false); pos != nil {
				nav.SetSourcePosition(pos)
			}
			if inline {
				if pos := n.tree.nav.SourcePosition(n.descriptor, true); pos != nil {
					nav.SetSourcePosition(pos)
				}
			}
			return nil
		},
	})
}

// ComputeTypeSourcePosition resolves where this value's runtime type is
// declared. User-triggered navigation, so it runs at high priority; a
// context that already resumed is skipped outright.
func (n *Node) ComputeTypeSourcePosition(nav Navigatable) {
	if n.ec.Resumed() {
		return
	}
	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityHigh,
		Kind:     "type-source-position",
		Action: func(ctx context.Context) error {
			if n.tree.nav == nil {
				return nil
			}
			if pos := n.tree.nav.TypeSourcePosition(n.descriptor); pos != nil {
				nav.SetSourcePosition(pos)
			}
			return nil
		},
	})
}
