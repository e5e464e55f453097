package sema

import (
	"fmt"

	"tplcheck/internal/ast"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// readOnlyDiagnostic reports a write to decl through the binding whose handler covers
// handlerSpan. The note points at decl's initializer, or at decl itself when it has none.
func readOnlyDiagnostic(tree *ast.Builder, decl ast.NodeID, handlerSpan source.Span, msg string) diag.Diagnostic {
	name := tree.Name(tree.Nodes.DeclName(decl))
	noteSpan := tree.Nodes.DeclValueSpan(decl)
	if node := tree.Nodes.Get(decl); node != nil {
		noteSpan = noteSpan.Or(node.Span)
	}
	return diag.ReportError(nil, diag.SemaReadOnlyWrite, handlerSpan, msg).
		WithNote(noteSpan, fmt.Sprintf("'%s' is declared here.", name)).
		Diagnostic()
}
