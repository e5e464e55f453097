package sema

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/symbols"
)

func TestNoTemplateYieldsEmptyList(t *testing.T) {
	tp := newTpl()
	diags := tp.check(Options{})
	if diags == nil || len(diags) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", diags)
	}
}

func TestTemplateWithoutReadOnlyTargetsIsClean(t *testing.T) {
	tp := newTpl()
	tp.b.Components.AddMember(tp.decl, ast.Member{Name: tp.name("count")})
	item := tp.variable("item", false)
	loop := tp.forLoop([]ast.NodeID{item},
		tp.element(nil, tp.attr(tp.read("item"))),
		tp.b.Nodes.NewBoundText(tp.span(), tp.read("item")),
	)
	tp.setRoots(
		loop,
		tp.element([]ast.NodeID{tp.event(ast.EventRegular, tp.write("count", tp.lit("1")))}),
		tp.element([]ast.NodeID{tp.event(ast.EventTwoWay, tp.read("count"))}),
	)

	if diags := tp.check(Options{}); len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", diags)
	}
}

func TestWriteToTemplateVariable(t *testing.T) {
	tp := newTpl()
	item := tp.variable("item", false)
	ev := tp.event(ast.EventRegular, tp.wrap(tp.write("item", tp.lit("1"))))
	tp.setRoots(tp.forLoop([]ast.NodeID{item}, tp.element([]ast.NodeID{ev})))

	diags := tp.check(Options{})
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %+v", len(diags), diags)
	}
	d := diags[0]
	evData, _ := tp.b.Nodes.BoundEvent(ev)
	varData, _ := tp.b.Nodes.Variable(item)
	if d.Severity != diag.SevError || d.Code != diag.SemaReadOnlyWrite {
		t.Fatalf("expected error SEM3001, got %s %s", d.Severity, d.Code.ID())
	}
	if d.Message != "Cannot assign to template variable 'item'. Template variables are read-only." {
		t.Fatalf("unexpected message %q", d.Message)
	}
	if d.Primary != evData.HandlerSpan {
		t.Fatalf("expected primary %v, got %v", evData.HandlerSpan, d.Primary)
	}
	if len(d.Notes) != 1 || d.Notes[0].Span != varData.ValueSpan || d.Notes[0].Msg != "'item' is declared here." {
		t.Fatalf("unexpected notes %+v", d.Notes)
	}
}

func TestNoteFallsBackToDeclarationSpanInItsOwnFile(t *testing.T) {
	tp := newTpl()
	tp.file = 3
	item := tp.b.Nodes.NewVariable(tp.span(), ast.VariableData{Name: tp.name("item"), KeySpan: tp.span()})
	tp.file = 1
	ev := tp.event(ast.EventRegular, tp.write("item", tp.lit("1")))
	tp.setRoots(tp.forLoop([]ast.NodeID{item}, tp.element([]ast.NodeID{ev})))

	diags := tp.check(Options{})
	if len(diags) != 1 || len(diags[0].Notes) != 1 {
		t.Fatalf("expected 1 diagnostic with 1 note, got %+v", diags)
	}
	note := diags[0].Notes[0]
	if want := tp.b.Nodes.Get(item).Span; note.Span != want || note.Span.File != 3 {
		t.Fatalf("expected note at declaration %v, got %v", want, note.Span)
	}
	if diags[0].Primary.File != 1 {
		t.Fatalf("expected primary in file 1, got %v", diags[0].Primary)
	}
}

func TestTwoWayBindings(t *testing.T) {
	cases := []struct {
		name    string
		build   func(tp *tpl) (decls []ast.NodeID, handler ast.ExprID)
		wantMsg string
	}{
		{
			name: "bare non-signal variable",
			build: func(tp *tpl) ([]ast.NodeID, ast.ExprID) {
				return []ast.NodeID{tp.variable("item", false)}, tp.wrap(tp.read("item"))
			},
			wantMsg: "Cannot use non-signal template variable 'item' in a two-way binding. Template variables are read-only.",
		},
		{
			name: "bare non-signal let",
			build: func(tp *tpl) ([]ast.NodeID, ast.ExprID) {
				return []ast.NodeID{tp.let("total", false)}, tp.read("total")
			},
			wantMsg: "Cannot use non-signal @let declaration 'total' in a two-way binding. @let declarations are read-only.",
		},
		{
			name: "signal variable",
			build: func(tp *tpl) ([]ast.NodeID, ast.ExprID) {
				return []ast.NodeID{tp.variable("item", true)}, tp.read("item")
			},
		},
		{
			name: "signal let",
			build: func(tp *tpl) ([]ast.NodeID, ast.ExprID) {
				return []ast.NodeID{tp.let("total", true)}, tp.read("total")
			},
		},
		{
			name: "nested property of variable",
			build: func(tp *tpl) ([]ast.NodeID, ast.ExprID) {
				inner := tp.read("item")
				return []ast.NodeID{tp.variable("item", false)},
					tp.b.Exprs.NewPropertyRead(tp.span(), inner, tp.name("label"), tp.span())
			},
		},
		{
			name: "variable inside larger expression",
			build: func(tp *tpl) ([]ast.NodeID, ast.ExprID) {
				sum := tp.b.Exprs.NewBinary(tp.span(), ast.BinaryAdd, tp.read("item"), tp.lit("1"))
				return []ast.NodeID{tp.variable("item", false)}, tp.wrap(sum)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tp := newTpl()
			decls, handler := tc.build(tp)
			var vars, children []ast.NodeID
			for _, d := range decls {
				if tp.b.Nodes.Get(d).Kind == ast.NodeVariable {
					vars = append(vars, d)
				} else {
					children = append(children, d)
				}
			}
			children = append(children, tp.element([]ast.NodeID{tp.event(ast.EventTwoWay, handler)}))
			tp.setRoots(tp.forLoop(vars, children...))

			diags := tp.check(Options{})
			if tc.wantMsg == "" {
				if len(diags) != 0 {
					t.Fatalf("expected no diagnostics, got %+v", diags)
				}
				return
			}
			if len(diags) != 1 || diags[0].Message != tc.wantMsg {
				t.Fatalf("expected one diagnostic %q, got %+v", tc.wantMsg, diags)
			}
		})
	}
}

func TestOneWayReadAndOtherTargetsAreIgnored(t *testing.T) {
	tp := newTpl()
	item := tp.variable("item", false)
	total := tp.let("total", false)
	thisRecv := tp.b.Exprs.NewThisReceiver(tp.span())
	thisWrite := tp.b.Exprs.NewPropertyWrite(tp.span(), thisRecv, tp.name("item"), tp.span(), tp.lit("1"))
	tp.setRoots(tp.forLoop([]ast.NodeID{item},
		total,
		tp.element([]ast.NodeID{
			tp.event(ast.EventRegular, tp.read("item")),
			tp.event(ast.EventRegular, tp.write("total", tp.lit("2"))),
			tp.event(ast.EventRegular, thisWrite),
			tp.event(ast.EventRegular, tp.write("unknown", tp.lit("3"))),
		}),
	))

	if diags := tp.check(Options{}); len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", diags)
	}
}

func TestDiagnosticsFollowTraversalOrder(t *testing.T) {
	tp := newTpl()
	a := tp.variable("a", false)
	b := tp.variable("b", false)
	first := tp.event(ast.EventRegular, tp.write("b", tp.lit("1")))
	second := tp.event(ast.EventTwoWay, tp.read("a"))
	third := tp.event(ast.EventRegular, tp.write("a", tp.lit("2")))
	tp.setRoots(tp.forLoop([]ast.NodeID{a, b},
		tp.element([]ast.NodeID{first}, tp.element([]ast.NodeID{second})),
		tp.element([]ast.NodeID{third}),
	))

	diags := tp.check(Options{})
	var got []string
	for _, d := range diags {
		got = append(got, d.Message[:strings.Index(d.Message, "'")+2])
	}
	want := []string{
		"Cannot assign to template variable 'b",
		"Cannot use non-signal template variable 'a",
		"Cannot assign to template variable 'a",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	tp := newTpl()
	item := tp.variable("item", false)
	tp.setRoots(tp.forLoop([]ast.NodeID{item},
		tp.element([]ast.NodeID{
			tp.event(ast.EventRegular, tp.write("item", tp.lit("1"))),
			tp.event(ast.EventTwoWay, tp.read("item")),
		}),
	))

	eng := tp.engine(Options{})
	first := eng.GetDiagnostics(tp.decl)
	second := eng.GetDiagnostics(tp.decl)
	if len(first) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(first))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestComponentsAreIndependent(t *testing.T) {
	tp := newTpl()
	other := tp.b.NewComponent("OtherComponent", 0, source.Span{})

	item := tp.variable("item", false)
	tp.setRoots(tp.forLoop([]ast.NodeID{item},
		tp.element([]ast.NodeID{tp.event(ast.EventRegular, tp.write("item", tp.lit("1")))}),
	))
	row := tp.variable("row", false)
	otherEv := tp.event(ast.EventRegular, tp.write("row", tp.lit("1")))
	tp.b.Components.SetTemplate(other, []ast.NodeID{tp.forLoop([]ast.NodeID{row}, tp.element([]ast.NodeID{otherEv}))})

	resolver := symbols.Bindings{
		tp.decl: symbols.Bind(tp.b, tp.decl, symbols.BindOptions{}),
		other:   symbols.Bind(tp.b, other, symbols.BindOptions{}),
	}
	eng := NewEngine(tp.b, resolver, Options{})

	a := eng.GetDiagnostics(tp.decl)
	b := eng.GetDiagnostics(other)
	if len(a) != 1 || !strings.Contains(a[0].Message, "'item'") {
		t.Fatalf("expected only the item diagnostic for the first component, got %+v", a)
	}
	otherData, _ := tp.b.Nodes.BoundEvent(otherEv)
	if len(b) != 1 || b[0].Primary != otherData.HandlerSpan {
		t.Fatalf("expected only the row diagnostic for the second component, got %+v", b)
	}
	if again := eng.GetDiagnostics(tp.decl); len(again) != 1 {
		t.Fatalf("expected checking another component to leave the first untouched, got %+v", again)
	}
}

func TestTemplateSourceOverride(t *testing.T) {
	tp := newTpl()
	write := tp.write("x", tp.lit("1"))
	v := tp.variable("x", false)
	ev := tp.event(ast.EventRegular, write)

	resolver := &stubResolver{targets: map[ast.ExprID]symbols.Target{
		write: {Kind: symbols.TargetVariable, Node: v},
	}}
	src := templateFunc(func(decl ast.ComponentID) ([]ast.NodeID, bool) {
		return []ast.NodeID{ev}, decl == 42
	})
	eng := NewEngine(tp.b, resolver, Options{Templates: src})

	if diags := eng.GetDiagnostics(42); len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic from the overriding source, got %+v", diags)
	}
	if diags := eng.GetDiagnostics(tp.decl); len(diags) != 0 {
		t.Fatalf("expected the tree's own template to be ignored, got %+v", diags)
	}
}

type templateFunc func(decl ast.ComponentID) ([]ast.NodeID, bool)

func (f templateFunc) Template(decl ast.ComponentID) ([]ast.NodeID, bool) { return f(decl) }

func TestRuleFailuresAreIsolatedInLenientMode(t *testing.T) {
	tp := newTpl()
	item := tp.variable("item", false)
	tp.setRoots(tp.forLoop([]ast.NodeID{item},
		tp.element([]ast.NodeID{
			tp.event(ast.EventRegular, tp.write("item", tp.lit("1"))),
			tp.event(ast.EventRegular, tp.write("item", tp.lit("2"))),
		}),
	))

	stub := &stubRule{err: ErrRuleNotImplemented}
	opts := Options{Rules: []RuleFactory{func(RuleContext) NodeRule { return stub }}}
	res, err := tp.engine(opts).Check(tp.decl)
	if err != nil {
		t.Fatalf("expected no error in lenient mode, got %v", err)
	}
	if len(res.Diagnostics) != 2 {
		t.Fatalf("expected the read-only rule to keep reporting, got %+v", res.Diagnostics)
	}
	if stub.calls != 1 {
		t.Fatalf("expected failed rule to be disabled after the first call, got %d calls", stub.calls)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0], ErrRuleNotImplemented) {
		t.Fatalf("expected one not-implemented failure, got %+v", res.Failures)
	}
}

func TestRuleFailuresAreLoudInStrictMode(t *testing.T) {
	tp := newTpl()
	tp.setRoots(tp.element([]ast.NodeID{tp.event(ast.EventRegular, tp.read("x"))}))

	opts := Options{
		Strict: true,
		Rules:  []RuleFactory{func(RuleContext) NodeRule { return &stubRule{err: ErrRuleNotImplemented} }},
	}
	eng := tp.engine(opts)
	if _, err := eng.Check(tp.decl); !errors.Is(err, ErrRuleNotImplemented) {
		t.Fatalf("expected ErrRuleNotImplemented, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected GetDiagnostics to panic in strict mode")
		}
	}()
	eng.GetDiagnostics(tp.decl)
}

func TestResolverPanicFailsOpenForThatBinding(t *testing.T) {
	tp := newTpl()
	tp.setRoots(tp.element([]ast.NodeID{tp.event(ast.EventRegular, tp.write("x", tp.lit("1")))}))

	eng := NewEngine(tp.b, &stubResolver{panics: true}, Options{})
	res, err := eng.Check(tp.decl)
	if err != nil {
		t.Fatalf("expected lenient mode to swallow the panic, got %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Rule != readOnlyRuleName {
		t.Fatalf("expected a read-only rule failure, got %+v", res.Failures)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", res.Diagnostics)
	}
}

func TestResolverFailureDoesNotHideLaterViolations(t *testing.T) {
	tp := newTpl()
	item := tp.variable("item", false)
	broken := tp.write("broken", tp.lit("1"))
	first := tp.event(ast.EventRegular, broken)
	second := tp.event(ast.EventRegular, tp.write("item", tp.lit("2")))
	tp.setRoots(tp.forLoop([]ast.NodeID{item}, tp.element([]ast.NodeID{first, second})))

	bound := symbols.Bind(tp.b, tp.decl, symbols.BindOptions{Validate: true})
	eng := NewEngine(tp.b, &flakyResolver{next: bound, failOn: broken}, Options{})
	res, err := eng.Check(tp.decl)
	if err != nil {
		t.Fatalf("expected lenient mode to swallow the failure, got %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Node != first {
		t.Fatalf("expected one failure on the first event, got %+v", res.Failures)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected the write to 'item' on the second event to be reported, got %d diagnostics", len(res.Diagnostics))
	}
	evData, _ := tp.b.Nodes.BoundEvent(second)
	if d := res.Diagnostics[0]; d.Primary != evData.HandlerSpan || !strings.Contains(d.Message, "'item'") {
		t.Fatalf("unexpected diagnostic %+v", d)
	}

	strict := NewEngine(tp.b, &flakyResolver{next: bound, failOn: broken}, Options{Strict: true})
	res, err = strict.Check(tp.decl)
	if err == nil || len(res.Diagnostics) != 1 {
		t.Fatalf("expected strict mode to report the failure and still check the rest, got err=%v diags=%d", err, len(res.Diagnostics))
	}
}

func TestNestedWritesAreFound(t *testing.T) {
	cases := []struct {
		name    string
		handler func(tp *tpl) ast.ExprID
	}{
		{"chain", func(tp *tpl) ast.ExprID {
			call := tp.b.Exprs.NewCall(tp.span(), tp.read("save"), nil, tp.span(), false)
			return tp.b.Exprs.NewList(ast.ExprChain, tp.span(), []ast.ExprID{call, tp.write("item", tp.lit("1"))}, nil)
		}},
		{"conditional", func(tp *tpl) ast.ExprID {
			return tp.b.Exprs.NewConditional(tp.span(), tp.read("flag"), tp.write("item", tp.lit("1")), tp.lit("0"))
		}},
		{"call argument", func(tp *tpl) ast.ExprID {
			return tp.b.Exprs.NewCall(tp.span(), tp.read("save"), []ast.ExprID{tp.write("item", tp.lit("1"))}, tp.span(), false)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tp := newTpl()
			item := tp.variable("item", false)
			ev := tp.event(ast.EventRegular, tp.wrap(tc.handler(tp)))
			tp.setRoots(tp.forLoop([]ast.NodeID{item}, tp.element([]ast.NodeID{ev})))

			diags := tp.check(Options{})
			if len(diags) != 1 || diags[0].Message != "Cannot assign to template variable 'item'. Template variables are read-only." {
				t.Fatalf("expected one write diagnostic, got %+v", diags)
			}
			evData, _ := tp.b.Nodes.BoundEvent(ev)
			if diags[0].Primary != evData.HandlerSpan {
				t.Fatalf("expected primary %v, got %v", evData.HandlerSpan, diags[0].Primary)
			}
		})
	}
}
