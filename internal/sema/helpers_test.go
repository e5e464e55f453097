package sema

import (
	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
)

// tpl builds small component templates by hand. Every span it hands out is unique
// and non-empty so assertions can tell them apart.
type tpl struct {
	b    *ast.Builder
	decl ast.ComponentID
	file source.FileID
	off  uint32
}

func newTpl() *tpl {
	b := ast.NewBuilder(ast.Hints{}, nil)
	return &tpl{b: b, decl: b.NewComponent("ItemListComponent", 0, source.Span{})}
}

func (t *tpl) span() source.Span {
	t.off += 10
	return source.Span{File: t.file, Start: t.off, End: t.off + 6}
}

func (t *tpl) name(s string) source.StringID { return t.b.StringsInterner.Intern(s) }

func (t *tpl) read(name string) ast.ExprID {
	return t.b.Exprs.NewPropertyRead(t.span(), t.b.Exprs.NewImplicitReceiver(t.span()), t.name(name), t.span())
}

func (t *tpl) write(name string, value ast.ExprID) ast.ExprID {
	return t.b.Exprs.NewPropertyWrite(t.span(), t.b.Exprs.NewImplicitReceiver(t.span()), t.name(name), t.span(), value)
}

func (t *tpl) lit(v string) ast.ExprID {
	return t.b.Exprs.NewLiteral(t.span(), ast.LitNumber, t.name(v))
}

func (t *tpl) wrap(inner ast.ExprID) ast.ExprID {
	return t.b.Exprs.NewWithSource(t.span(), inner, source.NoStringID, source.NoStringID)
}

func (t *tpl) event(kind ast.EventType, handler ast.ExprID) ast.NodeID {
	return t.b.Nodes.NewBoundEvent(t.span(), ast.BoundEventData{
		Name:        t.name("change"),
		Type:        kind,
		Handler:     handler,
		HandlerSpan: t.span(),
		KeySpan:     t.span(),
	})
}

func (t *tpl) attr(value ast.ExprID) ast.NodeID {
	return t.b.Nodes.NewBoundAttribute(t.span(), ast.BoundAttributeData{Name: t.name("value"), Value: value, ValueSpan: t.span()})
}

func (t *tpl) variable(name string, signal bool) ast.NodeID {
	return t.b.Nodes.NewVariable(t.span(), ast.VariableData{
		Name:      t.name(name),
		Value:     t.name("$implicit"),
		KeySpan:   t.span(),
		ValueSpan: t.span(),
		Signal:    signal,
	})
}

func (t *tpl) let(name string, signal bool) ast.NodeID {
	return t.b.Nodes.NewLetDecl(t.span(), ast.LetDeclData{
		Name:      t.name(name),
		Value:     t.lit("0"),
		NameSpan:  t.span(),
		ValueSpan: t.span(),
		Signal:    signal,
	})
}

func (t *tpl) element(outputs []ast.NodeID, children ...ast.NodeID) ast.NodeID {
	return t.b.Nodes.NewElement(t.span(), ast.ElementData{Name: t.name("div"), Outputs: outputs, Children: children})
}

// forLoop wraps children in an ng-template declaring vars.
func (t *tpl) forLoop(vars []ast.NodeID, children ...ast.NodeID) ast.NodeID {
	return t.b.Nodes.NewTemplate(t.span(), ast.TemplateData{TagName: t.name("ng-template"), Variables: vars, Children: children})
}

func (t *tpl) setRoots(roots ...ast.NodeID) {
	t.b.Components.SetTemplate(t.decl, roots)
}

func (t *tpl) engine(opts Options) *Engine {
	res := symbols.Bind(t.b, t.decl, symbols.BindOptions{Validate: true})
	return NewEngine(t.b, res, opts)
}

func (t *tpl) check(opts Options) []diag.Diagnostic {
	return t.engine(opts).GetDiagnostics(t.decl)
}

// stubResolver answers from fixed tables.
type stubResolver struct {
	targets map[ast.ExprID]symbols.Target
	signal  map[ast.NodeID]bool
	panics  bool
}

func (s *stubResolver) ExpressionTarget(expr ast.ExprID, _ ast.ComponentID) symbols.Target {
	if s.panics {
		panic("resolver exploded")
	}
	return s.targets[expr]
}

func (s *stubResolver) IsSignal(target symbols.Target, _ ast.ComponentID) bool {
	return s.signal[target.Node]
}

// flakyResolver delegates to next but panics when asked about failOn.
type flakyResolver struct {
	next   symbols.Resolver
	failOn ast.ExprID
}

func (f *flakyResolver) ExpressionTarget(expr ast.ExprID, decl ast.ComponentID) symbols.Target {
	if expr == f.failOn {
		panic("lookup failed")
	}
	return f.next.ExpressionTarget(expr, decl)
}

func (f *flakyResolver) IsSignal(target symbols.Target, decl ast.ComponentID) bool {
	return f.next.IsSignal(target, decl)
}

// stubRule records calls and fails with err.
type stubRule struct {
	calls int
	err   error
}

func (r *stubRule) Name() string { return "stub" }

func (r *stubRule) ShouldCheck(*source.File) bool { return true }

func (r *stubRule) CheckNode(NodeRef) ([]diag.Diagnostic, error) {
	r.calls++
	return nil, r.err
}
