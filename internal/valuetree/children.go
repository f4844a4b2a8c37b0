package valuetree

import (
	"context"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/ui"
)

// ComputeChildren lazily enumerates this node's children and pushes the
// batches into the sink.
//
// The heavy lifting is delegated to the registry's children renderer,
// which sees only the builder adapter: descriptors in, child rows out.
// The adapter wraps every value descriptor into a child node sharing
// this node's context, turns message descriptors into non-interactive
// rows, and records the too-many-children cursor so a later re-expansion
// resumes where the cutoff happened.
func (n *Node) ComputeChildren(sink ui.CompositeSink) {
	if sink.IsObsolete() {
		return
	}
	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityNormal,
		Kind:     "children",
		Cancelled: func() {
			sink.SetErrorMessage(messageContextChanged, nil)
		},
		Action: func(ctx context.Context) error {
			if sink.IsObsolete() {
				return nil
			}
			renderer := n.tree.reg.ChildrenRendererFor(n.descriptor, n.rendererOverride())
			renderer.BuildChildren(ctx, n.tree.br, n.descriptor, newChildrenAdapter(n, sink))
			return nil
		},
	})
}

// childrenAdapter implements render.ChildrenBuilder for one expansion.
type childrenAdapter struct {
	n      *Node
	sink   ui.CompositeSink
	sorted bool
	coll   *collate.Collator
}

func newChildrenAdapter(n *Node, sink ui.CompositeSink) *childrenAdapter {
	return &childrenAdapter{
		n:    n,
		sink: sink,
		coll: collate.New(language.Und),
	}
}

func (a *childrenAdapter) AddChildren(ds []bridge.Descriptor, last bool) {
	if a.sink.IsObsolete() {
		return
	}

	rows := make([]ui.Row, 0, len(ds))
	hasMessage := false
	for _, d := range ds {
		if d.Kind == bridge.KindMessage {
			hasMessage = true
			rows = append(rows, ui.Row{
				Name:    d.Name,
				Message: &ui.MessageRow{Text: d.Text, Icon: ui.IconMessage},
			})
			continue
		}
		child := a.n.tree.newChild(a.n, d)
		rows = append(rows, ui.Row{Name: d.Name, Value: child})
	}

	// Batches with interleaved message rows keep the builder's order;
	// reordering would detach a message from the values it refers to.
	if !a.sorted && !hasMessage {
		a.sortRows(rows)
	}

	a.sink.AddChildren(rows, last)
}

func (a *childrenAdapter) sortRows(rows []ui.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return a.coll.CompareString(rows[i].Name, rows[j].Name) < 0
	})
}

func (a *childrenAdapter) SetChildren(ds []bridge.Descriptor) {
	a.AddChildren(ds, true)
}

func (a *childrenAdapter) SetMessage(text string, icon ui.Icon, style ui.MessageStyle, link *ui.TreeLink) {
	a.sink.SetMessage(text, icon, style, link)
}

func (a *childrenAdapter) TooManyChildren(remaining int) {
	a.n.setChildrenRemaining(remaining)
	a.sink.TooManyChildren(remaining)
}

func (a *childrenAdapter) SetAlreadySorted(sorted bool) {
	a.sorted = sorted
	a.sink.SetAlreadySorted(sorted)
}

func (a *childrenAdapter) SetErrorMessage(text string, link *ui.TreeLink) {
	a.sink.SetErrorMessage(text, link)
}

// ArrayStart resumes a paginated fetch after a previous cutoff: with
// remaining entries withheld out of length, enumeration restarts at
// length-remaining, clamped to zero. An unknown cursor starts at zero.
func (a *childrenAdapter) ArrayStart(length int) int {
	remaining := a.n.childrenRemainingValue()
	if remaining < 0 {
		return 0
	}
	start := length - remaining
	if start < 0 {
		start = 0
	}
	return start
}

func (a *childrenAdapter) IsObsolete() bool {
	return a.sink.IsObsolete()
}
