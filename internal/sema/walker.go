package sema

import (
	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
)

// templateWalker visits every structural node once and dispatches bindings:
// bound attribute values go to the node rules, bound event handlers go to the
// read-only checker first and then to the node rules.
type templateWalker struct {
	nodes    *ast.Nodes
	readOnly *guardedRule
	rules    []*guardedRule
	reporter diag.Reporter
	visited  int
}

func (w *templateWalker) VisitNode(id ast.NodeID, node *ast.Node) bool {
	w.visited++
	switch node.Kind {
	case ast.NodeBoundAttribute:
		attr, _ := w.nodes.BoundAttribute(id)
		w.dispatch(w.rules, NodeRef{Binding: id, Expr: attr.Value})
	case ast.NodeBoundEvent:
		ev, _ := w.nodes.BoundEvent(id)
		ref := NodeRef{Binding: id, Expr: ev.Handler}
		w.emit(w.readOnly.run(ref))
		w.dispatch(w.rules, ref)
	}
	return true
}

func (w *templateWalker) dispatch(rules []*guardedRule, ref NodeRef) {
	if !ref.Expr.IsValid() {
		return
	}
	for _, rule := range rules {
		w.emit(rule.run(ref))
	}
}

func (w *templateWalker) emit(diags []diag.Diagnostic) {
	for _, d := range diags {
		w.reporter.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
	}
}
