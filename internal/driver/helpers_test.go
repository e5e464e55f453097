package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tplcheck/internal/bundle"
)

const buttonTemplate = `<ng-template let-item><button (click)="item = 1" [title]="legacy"></button></ng-template>`

// buttonBundle describes buttonTemplate: a write to the loop variable in the
// click handler and a read of a deprecated member in [title].
func buttonBundle(name, file string) *bundle.Bundle {
	at := func(s string) int64 { return int64(strings.Index(buttonTemplate, s)) }
	span := func(s string) bundle.Span { return bundle.Span{at(s), at(s) + int64(len(s))} }

	write := &bundle.Expr{
		Kind:     "property-write",
		Span:     span("item = 1"),
		Name:     "item",
		NameSpan: bundle.Span{at("item = 1"), at("item = 1") + 4},
		Value:    &bundle.Expr{Kind: "literal", Literal: "number", Text: "1", Span: bundle.Span{at("item = 1") + 7, at("item = 1") + 8}},
	}
	legacy := &bundle.Expr{Kind: "property-read", Name: "legacy", Span: bundle.Span{at(`"legacy"`) + 1, at(`"legacy"`) + 7}}

	template := []bundle.Node{{
		Kind:      "template",
		Name:      "ng-template",
		Span:      bundle.Span{0, int64(len(buttonTemplate))},
		Variables: []bundle.Node{{Kind: "variable", Name: "item", Value: "$implicit", Span: span("let-item")}},
		Children: []bundle.Node{{
			Kind: "element",
			Name: "button",
			Span: span(`<button (click)="item = 1" [title]="legacy"></button>`),
			Inputs: []bundle.Node{{
				Kind:      "bound-attribute",
				Name:      "title",
				Span:      span(`[title]="legacy"`),
				Expr:      legacy,
				ValueSpan: legacy.Span,
			}},
			Outputs: []bundle.Node{{
				Kind:        "bound-event",
				Name:        "click",
				Span:        span(`(click)="item = 1"`),
				Expr:        write,
				HandlerSpan: write.Span,
			}},
		}},
	}}
	return &bundle.Bundle{
		Version: bundle.SchemaVersion,
		Files:   []bundle.File{{Path: file, Content: buttonTemplate}},
		Components: []bundle.Component{{
			Name:     name,
			File:     file,
			Members:  []bundle.Member{{Name: "legacy", Deprecated: true, Deprecation: "use title"}},
			Template: &template,
		}},
	}
}

func writeBundle(t *testing.T, dir, name string, b *bundle.Bundle) string {
	t.Helper()
	format, ok := bundle.DetectFormat(name)
	if !ok {
		t.Fatalf("not a bundle name: %s", name)
	}
	data, err := bundle.Encode(b, format)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return writeFile(t, dir, name, data)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
