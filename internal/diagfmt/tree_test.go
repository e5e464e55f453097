package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tplcheck/internal/ast"
	"tplcheck/internal/source"
)

// listComponent builds <ul><ng-template let-item>(click)="item = null" {{ item.name | upper }}</ng-template></ul>.
func listComponent() (*ast.Builder, ast.ComponentID) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	s := b.StringsInterner
	decl := b.NewComponent("ItemListComponent", 0, source.Span{Start: 0, End: 90})
	sp := func(start, end uint32) source.Span { return source.Span{Start: start, End: end} }

	recv := b.Exprs.NewImplicitReceiver(sp(0, 0))
	null := b.Exprs.NewLiteral(sp(50, 54), ast.LitNull, source.NoStringID)
	write := b.Exprs.NewPropertyWrite(sp(43, 54), recv, s.Intern("item"), sp(43, 47), null)
	event := b.Nodes.NewBoundEvent(sp(33, 55), ast.BoundEventData{
		Name:        s.Intern("click"),
		Type:        ast.EventRegular,
		Handler:     b.Exprs.NewWithSource(sp(43, 54), write, source.NoStringID, source.NoStringID),
		HandlerSpan: sp(43, 54),
	})

	item := b.Exprs.NewPropertyRead(sp(60, 64), b.Exprs.NewImplicitReceiver(sp(60, 60)), s.Intern("item"), sp(60, 64))
	name := b.Exprs.NewPropertyRead(sp(60, 69), item, s.Intern("name"), sp(65, 69))
	pipe := b.Exprs.NewPipe(sp(60, 77), s.Intern("upper"), sp(72, 77), name, nil)
	text := b.Nodes.NewBoundText(sp(57, 80), pipe)

	variable := b.Nodes.NewVariable(sp(14, 22), ast.VariableData{Name: s.Intern("item"), Value: s.Intern("$implicit"), KeySpan: sp(18, 22)})
	tmpl := b.Nodes.NewTemplate(sp(4, 85), ast.TemplateData{
		TagName:   s.Intern("ng-template"),
		Outputs:   []ast.NodeID{event},
		Children:  []ast.NodeID{text},
		Variables: []ast.NodeID{variable},
	})
	ul := b.Nodes.NewElement(sp(0, 90), ast.ElementData{Name: s.Intern("ul"), Children: []ast.NodeID{tmpl}})
	b.Components.SetTemplate(decl, []ast.NodeID{ul})
	return b, decl
}

func TestFormatTemplatePretty(t *testing.T) {
	b, decl := listComponent()
	var buf bytes.Buffer
	if err := FormatTemplatePretty(&buf, b, decl, nil); err != nil {
		t.Fatalf("FormatTemplatePretty: %v", err)
	}
	want := strings.Join([]string{
		"Component ItemListComponent (span: span(0-90))",
		"└─ <ul> (span: span(0-90))",
		"   └─ Template <ng-template> (span: span(4-85))",
		`      ├─ (click)="item = null" [regular] (span: span(33-55))`,
		"      ├─ BoundText {{ item.name | upper }} (span: span(57-80))",
		`      └─ let-item="$implicit" (span: span(14-22))`,
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestFormatTemplateTree(t *testing.T) {
	b, decl := listComponent()
	var buf bytes.Buffer
	if err := FormatTemplateTree(&buf, b, decl, nil); err != nil {
		t.Fatalf("FormatTemplateTree: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.Contains(lines[0], "Component ItemListComponent") {
		t.Fatalf("expected component root first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "|") {
		t.Fatalf("expected a connector line, got %q", lines[1])
	}
	last := lines[len(lines)-1]
	for _, want := range []string{"(click)", "BoundText", "let-item"} {
		if !strings.Contains(last, want) {
			t.Fatalf("expected %q among the leaves, got %q", want, last)
		}
	}
}

func TestFormatTemplateJSON(t *testing.T) {
	b, decl := listComponent()
	var buf bytes.Buffer
	if err := FormatTemplateJSON(&buf, b, decl); err != nil {
		t.Fatalf("FormatTemplateJSON: %v", err)
	}
	var out TemplateNodeOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Type != "Component" || out.Text != "ItemListComponent" || len(out.Children) != 1 {
		t.Fatalf("unexpected root %+v", out)
	}
	tmpl := out.Children[0].Children[0]
	if tmpl.Kind != "template" || len(tmpl.Children) != 3 {
		t.Fatalf("expected template with 3 children, got %+v", tmpl)
	}
	event := tmpl.Children[0]
	if event.Kind != "bound-event" || event.Fields["type"] != "regular" {
		t.Fatalf("unexpected event %+v", event)
	}
	handler, ok := event.Fields["handler"].(map[string]any)
	if !ok || handler["kind"] != "with-source" || handler["text"] != "item = null" {
		t.Fatalf("unexpected handler %+v", event.Fields["handler"])
	}
}

func TestFormatTemplateMissing(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	decl := b.NewComponent("Empty", 0, source.Span{})

	var buf bytes.Buffer
	if err := FormatTemplatePretty(&buf, b, decl, nil); err != nil {
		t.Fatalf("FormatTemplatePretty: %v", err)
	}
	if !strings.Contains(buf.String(), "<no template>") {
		t.Fatalf("expected placeholder, got %q", buf.String())
	}
	if err := FormatTemplatePretty(&buf, b, decl+5, nil); err == nil {
		t.Fatalf("expected error for unknown component")
	}
}

func TestFormatExprInline(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	e := b.Exprs
	s := b.StringsInterner
	sp := source.Span{}
	recv := e.NewImplicitReceiver(sp)
	a := e.NewPropertyRead(sp, recv, s.Intern("a"), sp)
	c := e.NewPropertyRead(sp, recv, s.Intern("c"), sp)
	sum := e.NewBinary(sp, ast.BinaryAdd, a, c)
	mul := e.NewBinary(sp, ast.BinaryMul, sum, e.NewLiteral(sp, ast.LitNumber, s.Intern("2")))
	call := e.NewCall(sp, e.NewSafePropertyRead(sp, a, s.Intern("go"), sp), []ast.ExprID{mul, e.NewLiteral(sp, ast.LitString, s.Intern("x"))}, sp, false)
	if got := formatExprInline(b, call); got != `a?.go((a + c) * 2, "x")` {
		t.Fatalf("unexpected rendering %q", got)
	}
	if got := formatExprInline(b, ast.ExprID(0)); got != "<none>" {
		t.Fatalf("expected <none>, got %q", got)
	}
}
