package symbols

import (
	"fmt"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// BindOptions controls a bind pass for a single component.
type BindOptions struct {
	Hints    Hints
	Reporter diag.Reporter // receives duplicate declaration errors; may be nil
	Validate bool          // panic on table invariant violations
}

// Result is the symbol table of one component plus the expression-to-symbol map.
// It implements Resolver for that component only; other components resolve to nothing.
type Result struct {
	Table       *Table
	Component   ast.ComponentID
	Root        ScopeID
	NodeSymbols map[ast.NodeID]SymbolID
	builder     *ast.Builder
	targets     map[ast.ExprID]SymbolID
}

// Bind builds the scopes of decl's template and resolves every property access on the
// implicit receiver. Members live in the component scope; templates and blocks open child
// scopes holding their variables; @let declarations and references are visible in the
// whole scope that declares them. Accesses through `this` are never mapped.
func Bind(builder *ast.Builder, decl ast.ComponentID, opts BindOptions) *Result {
	table := NewTable(opts.Hints, builder.StringsInterner)
	res := &Result{
		Table:       table,
		Component:   decl,
		NodeSymbols: make(map[ast.NodeID]SymbolID),
		builder:     builder,
		targets:     make(map[ast.ExprID]SymbolID),
	}
	comp := builder.Components.Get(decl)
	if comp == nil {
		return res
	}

	b := binder{
		builder:  builder,
		table:    table,
		result:   res,
		reporter: opts.Reporter,
	}
	res.Root = table.Scopes.New(ScopeComponent, NoScopeID, ast.NoNodeID, comp.Span)
	for _, memberID := range comp.Members {
		b.declareMember(res.Root, memberID)
	}
	if comp.HasTemplate {
		b.bindScope(res.Root, comp.Template)
	}

	if opts.Validate {
		if err := table.Validate(); err != nil {
			panic(fmt.Errorf("symbol table invariant violation: %w", err))
		}
	}
	return res
}

type binder struct {
	builder  *ast.Builder
	table    *Table
	result   *Result
	reporter diag.Reporter
}

// bindScope declares everything nodes contribute to scope, then binds their expressions.
func (b *binder) bindScope(scope ScopeID, nodes []ast.NodeID) {
	b.hoist(scope, nodes)
	b.bindNodes(scope, nodes)
}

// hoist declares @let and references found in nodes without crossing into child scopes.
func (b *binder) hoist(scope ScopeID, nodes []ast.NodeID) {
	n := b.builder.Nodes
	for _, id := range nodes {
		node := n.Get(id)
		if node == nil {
			continue
		}
		switch node.Kind {
		case ast.NodeElement:
			el, _ := n.Element(id)
			b.declareNodes(scope, el.References)
			b.hoist(scope, el.Children)
		case ast.NodeTemplate:
			tmpl, _ := n.Template(id)
			b.declareNodes(scope, tmpl.References)
		case ast.NodeLetDecl:
			b.declareNode(scope, id)
		}
	}
}

func (b *binder) bindNodes(scope ScopeID, nodes []ast.NodeID) {
	n := b.builder.Nodes
	for _, id := range nodes {
		node := n.Get(id)
		if node == nil {
			continue
		}
		switch node.Kind {
		case ast.NodeElement:
			el, _ := n.Element(id)
			b.bindNodes(scope, el.Inputs)
			b.bindNodes(scope, el.Outputs)
			b.bindNodes(scope, el.Children)
		case ast.NodeTemplate:
			tmpl, _ := n.Template(id)
			b.bindNodes(scope, tmpl.TemplateAttrs)
			b.bindNodes(scope, tmpl.Inputs)
			b.bindNodes(scope, tmpl.Outputs)
			child := b.table.Scopes.New(ScopeTemplate, scope, id, node.Span)
			b.declareNodes(child, tmpl.Variables)
			b.bindScope(child, tmpl.Children)
		case ast.NodeBlock:
			blk, _ := n.Block(id)
			child := b.table.Scopes.New(ScopeBlock, scope, id, node.Span)
			b.declareNodes(child, blk.Variables)
			b.bindScope(child, blk.Children)
		case ast.NodeBoundText:
			text, _ := n.BoundText(id)
			b.bindExpr(scope, text.Value)
		case ast.NodeBoundAttribute:
			attr, _ := n.BoundAttribute(id)
			b.bindExpr(scope, attr.Value)
		case ast.NodeBoundEvent:
			ev, _ := n.BoundEvent(id)
			b.bindExpr(scope, ev.Handler)
		case ast.NodeLetDecl:
			let, _ := n.LetDecl(id)
			b.bindExpr(scope, let.Value)
		}
	}
}

func (b *binder) bindExpr(scope ScopeID, root ast.ExprID) {
	exprs := b.builder.Exprs
	exprs.Walk(root, ast.ExprVisitorFunc(func(id ast.ExprID, expr *ast.Expr) bool {
		switch expr.Kind {
		case ast.ExprPropertyRead, ast.ExprSafePropertyRead, ast.ExprPropertyWrite:
			prop, _ := exprs.Property(id)
			if !exprs.IsImplicitReceiver(prop.Receiver) {
				return true
			}
			if sym := b.table.Lookup(scope, prop.Name); sym.IsValid() {
				b.result.targets[id] = sym
			}
		}
		return true
	}))
}

func (b *binder) declareNodes(scope ScopeID, ids []ast.NodeID) {
	for _, id := range ids {
		b.declareNode(scope, id)
	}
}

func (b *binder) declareNode(scope ScopeID, id ast.NodeID) {
	n := b.builder.Nodes
	node := n.Get(id)
	if node == nil {
		return
	}
	sym := Symbol{
		Name:  n.DeclName(id),
		Span:  node.Span,
		Scope: scope,
		Node:  id,
	}
	switch node.Kind {
	case ast.NodeVariable:
		sym.Kind = SymbolVariable
		if v, _ := n.Variable(id); v.Signal {
			sym.Flags |= SymbolFlagSignal
		}
	case ast.NodeLetDecl:
		sym.Kind = SymbolLet
		if l, _ := n.LetDecl(id); l.Signal {
			sym.Flags |= SymbolFlagSignal
		}
	case ast.NodeReference:
		sym.Kind = SymbolReference
	default:
		return
	}
	if symID, ok := b.declare(scope, &sym); ok {
		b.result.NodeSymbols[id] = symID
	}
}

func (b *binder) declareMember(scope ScopeID, id ast.MemberID) {
	m := b.builder.Components.Member(id)
	if m == nil {
		return
	}
	sym := Symbol{
		Name:   m.Name,
		Kind:   SymbolMember,
		Span:   m.Span,
		Scope:  scope,
		Member: id,
	}
	if m.Signal {
		sym.Flags |= SymbolFlagSignal
	}
	if m.Deprecated {
		sym.Flags |= SymbolFlagDeprecated
	}
	// overloads and accessor pairs share a name; the first declaration wins
	if _, exists := b.table.Scopes.Get(scope).NameIndex[m.Name]; exists {
		return
	}
	b.declare(scope, &sym)
}

// declare installs sym unless the scope already holds the name, in which case the
// duplicate is reported and the earlier declaration keeps the name.
func (b *binder) declare(scope ScopeID, sym *Symbol) (SymbolID, bool) {
	s := b.table.Scopes.Get(scope)
	if s == nil {
		return NoSymbolID, false
	}
	if prev, exists := s.NameIndex[sym.Name]; exists {
		b.reportDuplicate(sym, b.table.Symbols.Get(prev))
		return NoSymbolID, false
	}
	id := b.table.Symbols.New(sym)
	s.NameIndex[sym.Name] = id
	s.Symbols = append(s.Symbols, id)
	return id, true
}

func (b *binder) reportDuplicate(sym, prev *Symbol) {
	if b.reporter == nil {
		return
	}
	name := b.builder.Name(sym.Name)
	msg := fmt.Sprintf("duplicate declaration of '%s' in the same template scope", name)
	builder := diag.ReportError(b.reporter, diag.SemaDuplicateDecl, sym.Span, msg)
	if prev != nil && prev.Span != (source.Span{}) {
		builder.WithNote(prev.Span, "previous declaration here")
	}
	builder.Emit()
}

// ExpressionTarget returns the declaration expr was bound to, or TargetNone.
func (r *Result) ExpressionTarget(expr ast.ExprID, decl ast.ComponentID) Target {
	if r == nil || decl != r.Component {
		return Target{}
	}
	sym := r.Table.Symbols.Get(r.targets[expr])
	if sym == nil {
		return Target{}
	}
	return Target{Kind: targetKindOf(sym.Kind), Node: sym.Node, Member: sym.Member}
}

// IsSignal reports the signal classification carried by the target's declaration.
func (r *Result) IsSignal(target Target, decl ast.ComponentID) bool {
	if r == nil || decl != r.Component {
		return false
	}
	switch target.Kind {
	case TargetVariable:
		v, ok := r.builder.Nodes.Variable(target.Node)
		return ok && v.Signal
	case TargetLetDecl:
		l, ok := r.builder.Nodes.LetDecl(target.Node)
		return ok && l.Signal
	case TargetMember:
		m := r.builder.Components.Member(target.Member)
		return m != nil && m.Signal
	}
	return false
}

// Bound reports how many expressions were mapped to a declaration.
func (r *Result) Bound() int {
	return len(r.targets)
}

// Bindings dispatches resolution to the per-component results it holds.
type Bindings map[ast.ComponentID]*Result

func (b Bindings) ExpressionTarget(expr ast.ExprID, decl ast.ComponentID) Target {
	return b[decl].ExpressionTarget(expr, decl)
}

func (b Bindings) IsSignal(target Target, decl ast.ComponentID) bool {
	return b[decl].IsSignal(target, decl)
}
