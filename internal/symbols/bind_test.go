package symbols

import (
	"strings"
	"testing"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

type fixture struct {
	b    *ast.Builder
	decl ast.ComponentID
	off  uint32
}

func newFixture() *fixture {
	b := ast.NewBuilder(ast.Hints{}, nil)
	return &fixture{b: b, decl: b.NewComponent("ListComponent", 0, source.Span{})}
}

// span hands out distinct non-empty spans so symbols are distinguishable.
func (f *fixture) span() source.Span {
	f.off += 10
	return source.Span{Start: f.off, End: f.off + 5}
}

func (f *fixture) name(s string) source.StringID { return f.b.StringsInterner.Intern(s) }

func (f *fixture) read(name string) ast.ExprID {
	recv := f.b.Exprs.NewImplicitReceiver(f.span())
	return f.b.Exprs.NewPropertyRead(f.span(), recv, f.name(name), f.span())
}

func (f *fixture) thisRead(name string) ast.ExprID {
	recv := f.b.Exprs.NewThisReceiver(f.span())
	return f.b.Exprs.NewPropertyRead(f.span(), recv, f.name(name), f.span())
}

func (f *fixture) event(handler ast.ExprID) ast.NodeID {
	return f.b.Nodes.NewBoundEvent(f.span(), ast.BoundEventData{Name: f.name("click"), Handler: handler})
}

func (f *fixture) variable(name string, signal bool) ast.NodeID {
	return f.b.Nodes.NewVariable(f.span(), ast.VariableData{Name: f.name(name), Signal: signal})
}

func TestBindResolvesTemplateVariablesAndMembers(t *testing.T) {
	f := newFixture()
	f.b.Components.AddMember(f.decl, ast.Member{Name: f.name("items"), Signal: true})

	itemRead := f.read("item")
	itemsRead := f.read("items")
	outside := f.read("item")
	item := f.variable("item", false)
	inner := f.b.Nodes.NewElement(f.span(), ast.ElementData{
		Outputs: []ast.NodeID{f.event(itemRead), f.event(itemsRead)},
	})
	tmpl := f.b.Nodes.NewTemplate(f.span(), ast.TemplateData{
		Children:  []ast.NodeID{inner},
		Variables: []ast.NodeID{item},
	})
	f.b.Components.SetTemplate(f.decl, []ast.NodeID{tmpl, f.event(outside)})

	res := Bind(f.b, f.decl, BindOptions{Validate: true})

	got := res.ExpressionTarget(itemRead, f.decl)
	if got.Kind != TargetVariable || got.Node != item {
		t.Fatalf("expected item to resolve to variable %d, got %+v", item, got)
	}
	if res.IsSignal(got, f.decl) {
		t.Fatalf("expected item to be non-signal")
	}
	member := res.ExpressionTarget(itemsRead, f.decl)
	if member.Kind != TargetMember || !res.IsSignal(member, f.decl) {
		t.Fatalf("expected items to resolve to a signal member, got %+v", member)
	}
	if got := res.ExpressionTarget(outside, f.decl); got.IsValid() {
		t.Fatalf("expected template variable to be invisible outside its template, got %+v", got)
	}
	if got := res.ExpressionTarget(itemRead, f.decl+1); got.IsValid() {
		t.Fatalf("expected no resolution for another component, got %+v", got)
	}
}

func TestBindLetAndReferencesAreHoisted(t *testing.T) {
	f := newFixture()

	early := f.read("total")
	refRead := f.read("box")
	let := f.b.Nodes.NewLetDecl(f.span(), ast.LetDeclData{Name: f.name("total"), Signal: true})
	ref := f.b.Nodes.NewReference(f.span(), ast.ReferenceData{Name: f.name("box")})
	first := f.b.Nodes.NewElement(f.span(), ast.ElementData{Outputs: []ast.NodeID{f.event(early), f.event(refRead)}})
	second := f.b.Nodes.NewElement(f.span(), ast.ElementData{
		Children:   []ast.NodeID{let},
		References: []ast.NodeID{ref},
	})
	f.b.Components.SetTemplate(f.decl, []ast.NodeID{first, second})

	res := Bind(f.b, f.decl, BindOptions{Validate: true})

	got := res.ExpressionTarget(early, f.decl)
	if got.Kind != TargetLetDecl || got.Node != let {
		t.Fatalf("expected total to resolve to @let %d, got %+v", let, got)
	}
	if !res.IsSignal(got, f.decl) {
		t.Fatalf("expected @let to carry its signal flag")
	}
	if got := res.ExpressionTarget(refRead, f.decl); got.Kind != TargetReference || got.Node != ref {
		t.Fatalf("expected box to resolve to reference %d, got %+v", ref, got)
	}
}

func TestBindBlockVariablesShadowOuterNames(t *testing.T) {
	f := newFixture()
	f.b.Components.AddMember(f.decl, ast.Member{Name: f.name("item")})

	inner := f.read("item")
	outer := f.read("item")
	v := f.variable("item", false)
	blk := f.b.Nodes.NewBlock(f.span(), ast.BlockData{
		Name:      f.name("for"),
		Variables: []ast.NodeID{v},
		Children:  []ast.NodeID{f.event(inner)},
	})
	f.b.Components.SetTemplate(f.decl, []ast.NodeID{blk, f.event(outer)})

	res := Bind(f.b, f.decl, BindOptions{Validate: true})
	if got := res.ExpressionTarget(inner, f.decl); got.Kind != TargetVariable {
		t.Fatalf("expected block variable to shadow member, got %+v", got)
	}
	if got := res.ExpressionTarget(outer, f.decl); got.Kind != TargetMember {
		t.Fatalf("expected member outside the block, got %+v", got)
	}
}

func TestBindIgnoresThisReceiver(t *testing.T) {
	f := newFixture()
	read := f.thisRead("item")
	v := f.variable("item", false)
	tmpl := f.b.Nodes.NewTemplate(f.span(), ast.TemplateData{
		Children:  []ast.NodeID{f.event(read)},
		Variables: []ast.NodeID{v},
	})
	f.b.Components.SetTemplate(f.decl, []ast.NodeID{tmpl})

	res := Bind(f.b, f.decl, BindOptions{})
	if got := res.ExpressionTarget(read, f.decl); got.IsValid() {
		t.Fatalf("expected this.item to stay unresolved, got %+v", got)
	}
	if res.Bound() != 0 {
		t.Fatalf("expected no bound expressions, got %d", res.Bound())
	}
}

func TestBindReportsDuplicateDeclarations(t *testing.T) {
	f := newFixture()
	a := f.variable("row", false)
	b := f.variable("row", false)
	tmpl := f.b.Nodes.NewTemplate(f.span(), ast.TemplateData{Variables: []ast.NodeID{a, b}})
	f.b.Components.SetTemplate(f.decl, []ast.NodeID{tmpl})

	sink := &diag.SliceReporter{}
	res := Bind(f.b, f.decl, BindOptions{Reporter: sink, Validate: true})

	if len(sink.Items) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(sink.Items))
	}
	d := sink.Items[0]
	if d.Code != diag.SemaDuplicateDecl || !strings.Contains(d.Message, "'row'") {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Span != f.b.Nodes.Get(a).Span {
		t.Fatalf("expected note at the first declaration, got %+v", d.Notes)
	}
	if _, ok := res.NodeSymbols[b]; ok {
		t.Fatalf("expected duplicate to stay undeclared")
	}
}

func TestBindingsDispatchPerComponent(t *testing.T) {
	f := newFixture()
	other := f.b.NewComponent("Other", 0, source.Span{})
	read := f.read("item")
	v := f.variable("item", false)
	tmpl := f.b.Nodes.NewTemplate(f.span(), ast.TemplateData{
		Children:  []ast.NodeID{f.event(read)},
		Variables: []ast.NodeID{v},
	})
	f.b.Components.SetTemplate(f.decl, []ast.NodeID{tmpl})

	all := Bindings{
		f.decl: Bind(f.b, f.decl, BindOptions{}),
		other:  Bind(f.b, other, BindOptions{}),
	}
	if got := all.ExpressionTarget(read, f.decl); got.Kind != TargetVariable {
		t.Fatalf("expected variable, got %+v", got)
	}
	if got := all.ExpressionTarget(read, other); got.IsValid() {
		t.Fatalf("expected nothing for other component, got %+v", got)
	}
	if got := all.ExpressionTarget(read, 99); got.IsValid() {
		t.Fatalf("expected nothing for unknown component, got %+v", got)
	}
}
