package sema

import (
	"tplcheck/internal/ast"
	"tplcheck/internal/source"
	"tplcheck/internal/trace"
)

// Options configure an Engine. The zero value checks only the read-only rule,
// fails open on rule errors and does not trace.
type Options struct {
	// Templates overrides where component templates come from. Defaults to the tree.
	Templates TemplateSource
	// Files resolves a component's template file for ShouldCheck. May be nil.
	Files *source.FileSet
	// Strict turns rule failures into errors (and panics in GetDiagnostics).
	Strict     bool
	Deprecated DeprecatedOptions
	// Rules registers additional node rules, built fresh for every component.
	Rules       []RuleFactory
	Tracer      trace.Tracer
	TraceParent uint64
}

type DeprecatedOptions struct {
	Enabled bool
	// Exclude holds file globs (`**` allowed) relative to the file set base directory.
	Exclude []string
}

// TemplateSource yields the root node sequence of a component's template.
type TemplateSource interface {
	Template(decl ast.ComponentID) ([]ast.NodeID, bool)
}
