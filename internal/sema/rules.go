package sema

import (
	"errors"
	"fmt"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
)

// ErrRuleNotImplemented is returned by rules whose matching is not finished.
// The engine disables such a rule for the component; strict mode surfaces it.
var ErrRuleNotImplemented = errors.New("rule not implemented")

// ErrRuleDisabled is returned when a gated-off rule is invoked anyway.
var ErrRuleDisabled = errors.New("rule disabled")

// NodeRef is one binding handed to a rule: the binding node and its expression root.
type NodeRef struct {
	Binding ast.NodeID
	Expr    ast.ExprID
}

// NodeRule is a rule invoked by the walker at every bound attribute and bound event.
type NodeRule interface {
	Name() string
	// ShouldCheck is a cheap per-file filter evaluated once per component.
	ShouldCheck(file *source.File) bool
	CheckNode(node NodeRef) ([]diag.Diagnostic, error)
}

// RuleContext is what a rule may look at while checking one component.
type RuleContext struct {
	Decl     ast.ComponentID
	Tree     *ast.Builder
	Resolver symbols.Resolver
	Files    *source.FileSet
}

// RuleFactory builds a rule instance scoped to one component check.
type RuleFactory func(ctx RuleContext) NodeRule

// RuleFailure records a rule that errored or panicked on one binding.
type RuleFailure struct {
	Rule string
	Decl ast.ComponentID
	Node ast.NodeID
	Err  error
}

func (f *RuleFailure) Error() string {
	return fmt.Sprintf("rule %s failed on component %d at node %d: %v", f.Rule, f.Decl, f.Node, f.Err)
}

func (f *RuleFailure) Unwrap() error { return f.Err }

// guardedRule isolates a rule so that errors and panics never abort the walk.
// A pluggable rule is disabled for the rest of the component after its first
// failure. The read-only checker is per-node: the failing binding yields no
// diagnostics and later bindings are still checked.
type guardedRule struct {
	rule     NodeRule
	decl     ast.ComponentID
	perNode  bool
	disabled bool
	failures []*RuleFailure
}

func guard(rule NodeRule, decl ast.ComponentID) *guardedRule {
	return &guardedRule{rule: rule, decl: decl}
}

func guardPerNode(rule NodeRule, decl ast.ComponentID) *guardedRule {
	return &guardedRule{rule: rule, decl: decl, perNode: true}
}

func (g *guardedRule) run(ref NodeRef) (out []diag.Diagnostic) {
	if g.disabled {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}
			g.fail(ref, err)
			out = nil
		}
	}()
	diags, err := g.rule.CheckNode(ref)
	if err != nil {
		g.fail(ref, err)
		return nil
	}
	return diags
}

func (g *guardedRule) fail(ref NodeRef, err error) {
	g.disabled = !g.perNode
	g.failures = append(g.failures, &RuleFailure{Rule: g.rule.Name(), Decl: g.decl, Node: ref.Binding, Err: err})
}
