package sema

import (
	"fmt"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
)

const readOnlyRuleName = "read-only-write"

// exprChecker reports writes to read-only template declarations inside event bindings.
// It only looks at bound events; the walker never hands it anything else.
type exprChecker struct {
	ctx RuleContext
}

func newExprChecker(ctx RuleContext) *exprChecker {
	return &exprChecker{ctx: ctx}
}

func (c *exprChecker) Name() string { return readOnlyRuleName }

func (c *exprChecker) ShouldCheck(*source.File) bool { return true }

func (c *exprChecker) CheckNode(ref NodeRef) ([]diag.Diagnostic, error) {
	ev, ok := c.ctx.Tree.Nodes.BoundEvent(ref.Binding)
	if !ok {
		return nil, nil
	}
	exprs := c.ctx.Tree.Exprs
	root := exprs.Unwrap(ref.Expr)

	var out []diag.Diagnostic
	exprs.Walk(ref.Expr, ast.ExprVisitorFunc(func(id ast.ExprID, expr *ast.Expr) bool {
		switch expr.Kind {
		case ast.ExprPropertyWrite:
			if d, found := c.checkWrite(id, ev); found {
				out = append(out, d)
			}
		case ast.ExprPropertyRead:
			// only the bare root of a two-way binding is written back
			if ev.Type == ast.EventTwoWay && id == root {
				if d, found := c.checkTwoWayRoot(id, ev); found {
					out = append(out, d)
				}
			}
		}
		return true
	}))
	return out, nil
}

func (c *exprChecker) checkWrite(id ast.ExprID, ev *ast.BoundEventData) (diag.Diagnostic, bool) {
	if !c.onImplicitReceiver(id) {
		return diag.Diagnostic{}, false
	}
	target := c.ctx.Resolver.ExpressionTarget(id, c.ctx.Decl)
	if target.Kind != symbols.TargetVariable {
		return diag.Diagnostic{}, false
	}
	msg := fmt.Sprintf("Cannot assign to template variable '%s'. Template variables are read-only.", c.declName(target.Node))
	return readOnlyDiagnostic(c.ctx.Tree, target.Node, ev.HandlerSpan, msg), true
}

func (c *exprChecker) checkTwoWayRoot(id ast.ExprID, ev *ast.BoundEventData) (diag.Diagnostic, bool) {
	if !c.onImplicitReceiver(id) {
		return diag.Diagnostic{}, false
	}
	target := c.ctx.Resolver.ExpressionTarget(id, c.ctx.Decl)
	var msg string
	switch target.Kind {
	case symbols.TargetVariable:
		msg = "Cannot use non-signal template variable '%s' in a two-way binding. Template variables are read-only."
	case symbols.TargetLetDecl:
		msg = "Cannot use non-signal @let declaration '%s' in a two-way binding. @let declarations are read-only."
	default:
		return diag.Diagnostic{}, false
	}
	if c.ctx.Resolver.IsSignal(target, c.ctx.Decl) {
		return diag.Diagnostic{}, false
	}
	return readOnlyDiagnostic(c.ctx.Tree, target.Node, ev.HandlerSpan, fmt.Sprintf(msg, c.declName(target.Node))), true
}

func (c *exprChecker) onImplicitReceiver(id ast.ExprID) bool {
	prop, ok := c.ctx.Tree.Exprs.Property(id)
	return ok && c.ctx.Tree.Exprs.IsImplicitReceiver(prop.Receiver)
}

func (c *exprChecker) declName(node ast.NodeID) string {
	return c.ctx.Tree.Name(c.ctx.Tree.Nodes.DeclName(node))
}
