package valuetree

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/hollis-dev/loupe/internal/bridge"
	"github.com/hollis-dev/loupe/internal/render"
	"github.com/hollis-dev/loupe/internal/schedule"
	"github.com/hollis-dev/loupe/internal/ui"
)

// ComputePresentation lazily computes this node's label and pushes it
// into the sink.
//
// On-demand values that were never triggered get a placeholder and a
// click-to-evaluate affordance immediately, with no command enqueued.
// Everything else goes through a NORMAL-priority command; if the bound
// context invalidates first, the sink receives a "context has changed"
// error presentation and no label is ever applied.
func (n *Node) ComputePresentation(sink ui.ValueSink) {
	if n.descriptor.OnDemand && !n.calculated.Load() {
		sink.SetFullValueEvaluator(&onDemandTrigger{n: n, sink: sink})
		sink.SetPresentation(ui.Presentation{Icon: ui.IconWatch, Kind: ui.KindRegular}, false)
		return
	}

	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityNormal,
		Kind:     "presentation",
		Cancelled: func() {
			sink.SetPresentation(ui.NewErrorPresentation(messageContextChanged), false)
		},
		Action: func(ctx context.Context) error {
			if sink.IsObsolete() {
				return nil
			}
			renderer := n.tree.reg.RendererFor(n.descriptor, n.rendererOverride())
			renderer.ComputeLabel(ctx, n.tree.br, n.descriptor, &labelApplier{
				n:        n,
				sink:     sink,
				renderer: renderer,
			})
			return nil
		},
	})
}

// labelApplier turns a computed label into the final presentation.
type labelApplier struct {
	n        *Node
	sink     ui.ValueSink
	renderer render.Renderer
}

func (a *labelApplier) LabelComputed(l render.Label) {
	n := a.n
	// Time may have passed between enqueue and the label callback;
	// staleness is re-checked right before touching UI state.
	if a.sink.IsObsolete() {
		return
	}
	n.setValueText(l.Text)

	var parentDesc *bridge.Descriptor
	if n.parent != nil {
		d := n.parent.descriptor
		parentDesc = &d
	}
	icon := iconFor(n.descriptor, parentDesc)

	fullSet := a.applyProvidedEvaluator(a.renderer)
	if !fullSet {
		if compound, ok := a.renderer.(render.CompoundRenderer); ok {
			fullSet = a.applyProvidedEvaluator(compound.LabelRenderer())
		}
	}

	text := l.Text
	max := n.tree.opts.MaxValueLength
	if !n.descriptor.Unbounded && utf8.RuneCountInString(text) > max {
		if !fullSet {
			a.sink.SetFullValueEvaluator(&fullValueEvaluator{n: n})
		}
		text = truncateDisplay(text, max)
	}

	a.sink.SetPresentation(ui.Presentation{
		Icon:     icon,
		Text:     text,
		TypeHint: l.TypeHint,
		Kind:     ui.KindRegular,
	}, n.descriptor.Expandable())
}

func (a *labelApplier) LabelFailed(err error) {
	if a.sink.IsObsolete() {
		return
	}
	slog.Warn("label computation failed",
		"name", a.n.name,
		"renderer", a.renderer.Name(),
		"error", err,
	)
	a.sink.SetErrorMessage(err.Error(), nil)
}

// applyProvidedEvaluator asks a renderer for its own full-value
// evaluator and attaches it when present.
func (a *labelApplier) applyProvidedEvaluator(r render.Renderer) bool {
	provider, ok := r.(render.FullValueEvaluatorProvider)
	if !ok {
		return false
	}
	ev := provider.FullValueEvaluator(a.n.ec, a.n.descriptor)
	if ev == nil {
		return false
	}
	a.sink.SetFullValueEvaluator(ev)
	return true
}

// iconFor picks the row glyph from the descriptor and its parent.
// Watch membership is inherited: children of a watch row keep the watch
// marker so the tree reads as one unit.
func iconFor(d bridge.Descriptor, parent *bridge.Descriptor) ui.Icon {
	if parent != nil && parent.Kind == bridge.KindWatch {
		return ui.IconWatch
	}
	switch d.Kind {
	case bridge.KindWatch:
		return ui.IconWatch
	case bridge.KindArray:
		return ui.IconArray
	case bridge.KindObject:
		return ui.IconObject
	case bridge.KindMessage:
		return ui.IconMessage
	case bridge.KindPrimitive, bridge.KindString, bridge.KindNull:
		return ui.IconPrimitive
	default:
		return ui.IconValue
	}
}

// truncateDisplay cuts text to at most max runes without splitting a
// combining sequence, appending an ellipsis.
func truncateDisplay(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	var it norm.Iter
	it.InitString(norm.NFC, s)

	var b strings.Builder
	runes := 0
	for !it.Done() {
		seg := it.Next()
		segRunes := utf8.RuneCount(seg)
		if runes+segRunes > max {
			break
		}
		b.Write(seg)
		runes += segRunes
	}
	b.WriteRune('…')
	return b.String()
}

// fullValueEvaluator is the default "show more" affordance: it repeats
// the label computation against the unbounded variant of the same
// descriptor.
type fullValueEvaluator struct {
	n *Node
}

func (e *fullValueEvaluator) LinkText() string { return "Show more" }

func (e *fullValueEvaluator) StartEvaluation(cb ui.FullValueCallback) {
	if cb.IsObsolete() {
		return
	}
	n := e.n
	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityNormal,
		Kind:     "full-value",
		Cancelled: func() {
			cb.ErrorOccurred(messageContextChanged)
		},
		Action: func(ctx context.Context) error {
			if cb.IsObsolete() {
				return nil
			}
			full := n.descriptor.FullVariant()
			renderer := n.tree.reg.RendererFor(full, n.rendererOverride())
			renderer.ComputeLabel(ctx, n.tree.br, full, callbackListener{cb: cb})
			return nil
		},
	})
}

// callbackListener bridges a label listener onto a full-value callback.
type callbackListener struct {
	cb ui.FullValueCallback
}

func (l callbackListener) LabelComputed(lb render.Label) {
	if l.cb.IsObsolete() {
		return
	}
	l.cb.Evaluated(lb.Text)
}

func (l callbackListener) LabelFailed(err error) {
	if l.cb.IsObsolete() {
		return
	}
	l.cb.ErrorOccurred(err.Error())
}

// onDemandTrigger is the click-to-evaluate affordance shown for deferred
// values. Triggering marks the node calculated and runs the real
// presentation computation; until then the engine does no work for the
// node.
type onDemandTrigger struct {
	n    *Node
	sink ui.ValueSink
}

func (t *onDemandTrigger) LinkText() string { return "Evaluate" }

func (t *onDemandTrigger) StartEvaluation(cb ui.FullValueCallback) {
	if cb.IsObsolete() {
		return
	}
	t.n.calculated.Store(true)
	t.n.ComputePresentation(t.sink)
	cb.Evaluated("")
}
