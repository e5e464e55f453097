package symbols

import (
	"tplcheck/internal/ast"
	"tplcheck/internal/source"
)

// SymbolKind classifies what a template name refers to.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolMember             // component class member
	SymbolVariable           // template or block variable
	SymbolLet                // @let declaration
	SymbolReference          // #ref on an element or template
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolMember:
		return "member"
	case SymbolVariable:
		return "variable"
	case SymbolLet:
		return "let"
	case SymbolReference:
		return "reference"
	default:
		return "invalid"
	}
}

type SymbolFlags uint8

const (
	SymbolFlagSignal SymbolFlags = 1 << iota
	SymbolFlagDeprecated
)

func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 2)
	if f&SymbolFlagSignal != 0 {
		labels = append(labels, "signal")
	}
	if f&SymbolFlagDeprecated != 0 {
		labels = append(labels, "deprecated")
	}
	return labels
}

// Symbol is one declared name. Exactly one of Node and Member is set.
type Symbol struct {
	Name   source.StringID
	Kind   SymbolKind
	Flags  SymbolFlags
	Span   source.Span
	Scope  ScopeID
	Node   ast.NodeID
	Member ast.MemberID
}
