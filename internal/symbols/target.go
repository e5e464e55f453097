package symbols

import (
	"tplcheck/internal/ast"
)

// TargetKind is the class of template construct an expression resolves to.
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetVariable
	TargetLetDecl
	TargetReference
	TargetMember
)

func (k TargetKind) String() string {
	switch k {
	case TargetVariable:
		return "variable"
	case TargetLetDecl:
		return "let"
	case TargetReference:
		return "reference"
	case TargetMember:
		return "member"
	default:
		return "none"
	}
}

// Target is the declaration an expression resolves to. Node is set for template
// declarations, Member for component members.
type Target struct {
	Kind   TargetKind
	Node   ast.NodeID
	Member ast.MemberID
}

func (t Target) IsValid() bool { return t.Kind != TargetNone }

// Resolver maps template expressions to their declarations and classifies them.
// Both calls must be side-effect free; unknown expressions resolve to TargetNone.
type Resolver interface {
	ExpressionTarget(expr ast.ExprID, decl ast.ComponentID) Target
	IsSignal(target Target, decl ast.ComponentID) bool
}

func targetKindOf(kind SymbolKind) TargetKind {
	switch kind {
	case SymbolVariable:
		return TargetVariable
	case SymbolLet:
		return TargetLetDecl
	case SymbolReference:
		return TargetReference
	case SymbolMember:
		return TargetMember
	default:
		return TargetNone
	}
}
