package sema

import (
	"errors"
	"fmt"
	"strconv"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
	"tplcheck/internal/trace"
)

// Engine checks component templates. It holds configuration only; every call
// builds its own rules and diagnostics sink, so one Engine may serve many
// goroutines as long as the tree and resolver are not mutated meanwhile.
type Engine struct {
	tree      *ast.Builder
	templates TemplateSource
	resolver  symbols.Resolver
	opts      Options
}

// Result is the outcome of checking one component.
type Result struct {
	Diagnostics []diag.Diagnostic // traversal order, never nil
	Failures    []*RuleFailure
	Visited     int // structural nodes walked
}

func NewEngine(tree *ast.Builder, resolver symbols.Resolver, opts Options) *Engine {
	templates := opts.Templates
	if templates == nil {
		templates = tree
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Engine{
		tree:      tree,
		templates: templates,
		resolver:  resolver,
		opts:      opts,
	}
}

// GetDiagnostics returns the diagnostics of decl in traversal order; an empty list
// when decl has no template. In strict mode a failing rule panics.
func (e *Engine) GetDiagnostics(decl ast.ComponentID) []diag.Diagnostic {
	res, err := e.Check(decl)
	if err != nil {
		panic(err)
	}
	return res.Diagnostics
}

// Check is GetDiagnostics with rule failures exposed. Failures are always listed in
// the result; the returned error is non-nil only in strict mode.
func (e *Engine) Check(decl ast.ComponentID) (Result, error) {
	res := Result{Diagnostics: []diag.Diagnostic{}}
	roots, ok := e.templates.Template(decl)
	if !ok {
		return res, nil
	}

	span := trace.Begin(e.opts.Tracer, trace.ScopeComponent, "component:"+e.componentName(decl), e.opts.TraceParent)

	ctx := RuleContext{
		Decl:     decl,
		Tree:     e.tree,
		Resolver: e.resolver,
		Files:    e.opts.Files,
	}
	file := e.componentFile(decl)

	var rules []*guardedRule
	nodeRules := make([]NodeRule, 0, 1+len(e.opts.Rules))
	nodeRules = append(nodeRules, NewDeprecatedUsageRule(ctx, e.opts.Deprecated))
	for _, factory := range e.opts.Rules {
		if rule := factory(ctx); rule != nil {
			nodeRules = append(nodeRules, rule)
		}
	}
	for _, rule := range nodeRules {
		if rule.ShouldCheck(file) {
			rules = append(rules, guard(rule, decl))
		}
	}

	sink := &diag.SliceReporter{Items: res.Diagnostics}
	w := &templateWalker{
		nodes:    e.tree.Nodes,
		readOnly: guardPerNode(newExprChecker(ctx), decl),
		rules:    rules,
		reporter: sink,
	}
	e.tree.Nodes.Walk(roots, w)

	res.Diagnostics = sink.Items
	res.Visited = w.visited
	var errs []error
	for _, g := range append([]*guardedRule{w.readOnly}, rules...) {
		for _, failure := range g.failures {
			res.Failures = append(res.Failures, failure)
			errs = append(errs, failure)
			trace.Point(e.opts.Tracer, trace.ScopeNode, "rule-failed", failure.Error(), span.ID())
		}
	}

	span.WithExtra("nodes", strconv.Itoa(res.Visited)).
		WithExtra("diagnostics", strconv.Itoa(len(res.Diagnostics))).
		End(fmt.Sprintf("%d rule(s) active", 1+len(rules)))

	if e.opts.Strict && len(errs) > 0 {
		return res, fmt.Errorf("check %s: %w", e.componentName(decl), errors.Join(errs...))
	}
	return res, nil
}

func (e *Engine) componentName(decl ast.ComponentID) string {
	if name := e.tree.ComponentName(decl); name != "" {
		return name
	}
	return "#" + strconv.FormatUint(uint64(decl), 10)
}

func (e *Engine) componentFile(decl ast.ComponentID) *source.File {
	comp := e.tree.Components.Get(decl)
	if comp == nil || e.opts.Files == nil {
		return nil
	}
	return e.opts.Files.Get(comp.File)
}
