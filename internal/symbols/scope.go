package symbols

import (
	"tplcheck/internal/ast"
	"tplcheck/internal/source"
)

type ScopeKind uint8

const (
	ScopeInvalid   ScopeKind = iota
	ScopeComponent           // root: class members
	ScopeTemplate            // ng-template and structural directive hosts
	ScopeBlock               // control-flow blocks
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeComponent:
		return "component"
	case ScopeTemplate:
		return "template"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope is a lexical template scope. Owner is the template or block node that opened it;
// the component scope has no owner.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Owner     ast.NodeID
	Span      source.Span
	NameIndex map[source.StringID]SymbolID
	Symbols   []SymbolID
	Children  []ScopeID
}

// Lookup searches scope and its parents for name.
func (t *Table) Lookup(scope ScopeID, name source.StringID) SymbolID {
	for scope.IsValid() {
		s := t.Scopes.Get(scope)
		if s == nil {
			return NoSymbolID
		}
		if id, ok := s.NameIndex[name]; ok {
			return id
		}
		scope = s.Parent
	}
	return NoSymbolID
}
