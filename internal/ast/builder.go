package ast

import (
	"tplcheck/internal/source"
)

type Hints struct{ Nodes, Exprs, Components uint }

// Builder owns every arena of a loaded template bundle. It is written while a bundle
// is decoded and read-only afterwards, so checks may share it across goroutines.
type Builder struct {
	Nodes           *Nodes
	Exprs           *Exprs
	Components      *Components
	StringsInterner *source.Interner
}

func NewBuilder(hints Hints, interner *source.Interner) *Builder {
	if hints.Nodes == 0 {
		hints.Nodes = 1 << 7
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Components == 0 {
		hints.Components = 1 << 4
	}
	if interner == nil {
		interner = source.NewInterner()
	}
	return &Builder{
		Nodes:           NewNodes(hints.Nodes),
		Exprs:           NewExprs(hints.Exprs),
		Components:      NewComponents(hints.Components),
		StringsInterner: interner,
	}
}

func (b *Builder) NewComponent(name string, file source.FileID, span source.Span) ComponentID {
	return b.Components.New(ComponentData{
		Name: b.StringsInterner.Intern(name),
		File: file,
		Span: span,
	})
}

// Template returns the root nodes of decl; false when decl has no template.
func (b *Builder) Template(decl ComponentID) ([]NodeID, bool) {
	comp := b.Components.Get(decl)
	if comp == nil || !comp.HasTemplate {
		return nil, false
	}
	return comp.Template, true
}

// Name returns the string behind id, or "" for unknown ids.
func (b *Builder) Name(id source.StringID) string {
	if b == nil || b.StringsInterner == nil {
		return ""
	}
	s, _ := b.StringsInterner.Lookup(id)
	return s
}

// ComponentName is a convenience for traces and reports.
func (b *Builder) ComponentName(decl ComponentID) string {
	comp := b.Components.Get(decl)
	if comp == nil {
		return ""
	}
	return b.Name(comp.Name)
}
