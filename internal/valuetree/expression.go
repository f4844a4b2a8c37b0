package valuetree

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hollis-dev/loupe/internal/schedule"
)

// Expression is a source-language expression that would re-evaluate to a
// node's value, for copy/use-elsewhere actions.
type Expression struct {
	Text     string
	Language string
	Imports  []string
}

// ExpressionFuture is the one-shot result of expression synthesis. A nil
// expression is a legitimate outcome ("none"): the value has no
// expressible provenance, or the context was invalidated before the
// synthesis ran. Either way the result is cached and never retried.
type ExpressionFuture struct {
	done chan struct{}
	expr *Expression
}

func newExpressionFuture() *ExpressionFuture {
	return &ExpressionFuture{done: make(chan struct{})}
}

func (f *ExpressionFuture) complete(e *Expression) {
	f.expr = e
	close(f.done)
}

// Done returns a channel closed when the result is available.
func (f *ExpressionFuture) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx expires.
func (f *ExpressionFuture) Wait(ctx context.Context) (*Expression, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.expr, nil
	}
}

// TryGet returns the result without blocking.
func (f *ExpressionFuture) TryGet() (*Expression, bool) {
	select {
	case <-f.done:
		return f.expr, true
	default:
		return nil, false
	}
}

// CalculateEvaluationExpression returns the future of this node's
// re-evaluable expression.
//
// The first caller to reach the node installs the future and enqueues a
// HIGH-priority synthesis command; every concurrent and subsequent
// caller gets the same future back without re-enqueuing. Synthesis
// failure is logged and cached as "none", never propagated as a hard
// error.
func (n *Node) CalculateEvaluationExpression() *ExpressionFuture {
	if f := n.exprFuture.Load(); f != nil {
		return f
	}

	f := newExpressionFuture()
	if !n.exprFuture.CompareAndSwap(nil, f) {
		// Another caller won the install race; share their future.
		return n.exprFuture.Load()
	}

	n.tree.mgr.Schedule(schedule.Command{
		Ctx:      n.ec,
		Priority: schedule.PriorityHigh,
		Kind:     "expression",
		Cancelled: func() {
			f.complete(nil)
		},
		Action: func(ctx context.Context) error {
			expr, err := n.synthesizeExpression()
			if err != nil {
				slog.Info("evaluation expression synthesis failed",
					"name", n.name,
					"error", err,
				)
				f.complete(nil)
				return nil
			}
			f.complete(expr)
			return nil
		},
	})

	return f
}

// synthesizeExpression expands the descriptor's expression template,
// substituting the parent's synthesized expression for "{parent}" and
// merging side imports up the chain.
func (n *Node) synthesizeExpression() (*Expression, error) {
	d := n.descriptor
	if d.EvalTemplate == "" {
		// Synthetic entries have no expressible provenance.
		return nil, nil
	}

	text := d.EvalTemplate
	imports := append([]string(nil), d.Imports...)

	if strings.Contains(text, "{parent}") {
		if n.parent == nil {
			return nil, fmt.Errorf("expression template for %q references a parent, but the node has none", n.name)
		}
		parentExpr, err := n.parent.synthesizeExpression()
		if err != nil {
			return nil, err
		}
		if parentExpr == nil {
			return nil, nil
		}
		text = strings.ReplaceAll(text, "{parent}", parentExpr.Text)
		imports = mergeImports(parentExpr.Imports, imports)
	}

	lang := d.Language
	if lang == "" && n.parent != nil {
		lang = n.parent.descriptor.Language
	}

	return &Expression{Text: text, Language: lang, Imports: imports}, nil
}

// mergeImports concatenates import lists, dropping duplicates while
// preserving first-seen order.
func mergeImports(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, imp := range a {
		if !seen[imp] {
			seen[imp] = true
			out = append(out, imp)
		}
	}
	for _, imp := range b {
		if !seen[imp] {
			seen[imp] = true
			out = append(out, imp)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
