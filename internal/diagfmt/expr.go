package diagfmt

import (
	"fmt"
	"strconv"
	"strings"

	"tplcheck/internal/ast"
)

const exprInlineMaxDepth = 32

// formatExprInline renders a binding expression back into template syntax.
// Invalid ids render as "<none>"; unknown payloads as "<invalid>".
func formatExprInline(builder *ast.Builder, exprID ast.ExprID) string {
	return formatExprInlineDepth(builder, exprID, 0)
}

func formatExprInlineDepth(builder *ast.Builder, exprID ast.ExprID, depth int) string {
	if !exprID.IsValid() {
		return "<none>"
	}
	if builder == nil || builder.Exprs == nil {
		return "<invalid>"
	}
	if depth >= exprInlineMaxDepth {
		return "..."
	}
	exprs := builder.Exprs
	expr := exprs.Get(exprID)
	if expr == nil {
		return "<invalid>"
	}
	sub := func(id ast.ExprID) string { return formatExprInlineDepth(builder, id, depth+1) }
	list := func(ids []ast.ExprID) string {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = sub(id)
		}
		return strings.Join(parts, ", ")
	}

	switch expr.Kind {
	case ast.ExprImplicitReceiver, ast.ExprEmpty:
		return ""
	case ast.ExprThisReceiver:
		return "this"
	case ast.ExprPropertyRead, ast.ExprSafePropertyRead, ast.ExprPropertyWrite:
		prop, ok := exprs.Property(exprID)
		if !ok {
			return "<invalid-property>"
		}
		name := builder.Name(prop.Name)
		recv := sub(prop.Receiver)
		if recv != "" {
			sep := "."
			if expr.Kind == ast.ExprSafePropertyRead {
				sep = "?."
			}
			name = recv + sep + name
		}
		if expr.Kind == ast.ExprPropertyWrite {
			return name + " = " + sub(prop.Value)
		}
		return name
	case ast.ExprKeyedRead, ast.ExprSafeKeyedRead, ast.ExprKeyedWrite:
		keyed, ok := exprs.KeyedAccess(exprID)
		if !ok {
			return "<invalid-keyed>"
		}
		open := "["
		if expr.Kind == ast.ExprSafeKeyedRead {
			open = "?.["
		}
		out := sub(keyed.Receiver) + open + sub(keyed.Key) + "]"
		if expr.Kind == ast.ExprKeyedWrite {
			out += " = " + sub(keyed.Value)
		}
		return out
	case ast.ExprCall, ast.ExprSafeCall:
		call, ok := exprs.Call(exprID)
		if !ok {
			return "<invalid-call>"
		}
		open := "("
		if expr.Kind == ast.ExprSafeCall {
			open = "?.("
		}
		return sub(call.Receiver) + open + list(call.Args) + ")"
	case ast.ExprLiteral:
		lit, ok := exprs.Literal(exprID)
		if !ok {
			return "<invalid-literal>"
		}
		switch lit.Kind {
		case ast.LitNull:
			return "null"
		case ast.LitUndefined:
			return "undefined"
		case ast.LitString:
			return strconv.Quote(builder.Name(lit.Value))
		default:
			return builder.Name(lit.Value)
		}
	case ast.ExprArray:
		data, ok := exprs.List(exprID)
		if !ok {
			return "<invalid-array>"
		}
		return "[" + list(data.Items) + "]"
	case ast.ExprChain:
		data, ok := exprs.List(exprID)
		if !ok {
			return "<invalid-chain>"
		}
		parts := make([]string, len(data.Items))
		for i, id := range data.Items {
			parts[i] = sub(id)
		}
		return strings.Join(parts, "; ")
	case ast.ExprInterpolation:
		data, ok := exprs.List(exprID)
		if !ok {
			return "<invalid-interpolation>"
		}
		var sb strings.Builder
		for i, s := range data.Strings {
			sb.WriteString(builder.Name(s))
			if i < len(data.Items) {
				sb.WriteString("{{ " + sub(data.Items[i]) + " }}")
			}
		}
		return sb.String()
	case ast.ExprMap:
		data, ok := exprs.Map(exprID)
		if !ok {
			return "<invalid-map>"
		}
		parts := make([]string, 0, len(data.Keys))
		for i, key := range data.Keys {
			k := builder.Name(key.Key)
			if key.Quoted {
				k = strconv.Quote(k)
			}
			v := "<none>"
			if i < len(data.Values) {
				v = sub(data.Values[i])
			}
			parts = append(parts, k+": "+v)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ast.ExprUnary:
		data, ok := exprs.Unary(exprID)
		if !ok {
			return "<invalid-unary>"
		}
		if data.Op == ast.UnaryMinus {
			return "-" + sub(data.Operand)
		}
		return "+" + sub(data.Operand)
	case ast.ExprNot:
		data, ok := exprs.Unary(exprID)
		if !ok {
			return "<invalid-not>"
		}
		return "!" + sub(data.Operand)
	case ast.ExprNonNull:
		data, ok := exprs.Unary(exprID)
		if !ok {
			return "<invalid-non-null>"
		}
		return sub(data.Operand) + "!"
	case ast.ExprBinary:
		data, ok := exprs.Binary(exprID)
		if !ok {
			return "<invalid-binary>"
		}
		return fmt.Sprintf("%s %s %s", wrapExprIfNeeded(builder, data.Left, sub(data.Left)), data.Op, wrapExprIfNeeded(builder, data.Right, sub(data.Right)))
	case ast.ExprConditional:
		data, ok := exprs.Conditional(exprID)
		if !ok {
			return "<invalid-conditional>"
		}
		return fmt.Sprintf("%s ? %s : %s", sub(data.Cond), sub(data.True), sub(data.False))
	case ast.ExprPipe:
		data, ok := exprs.Pipe(exprID)
		if !ok {
			return "<invalid-pipe>"
		}
		out := wrapExprIfNeeded(builder, data.Input, sub(data.Input)) + " | " + builder.Name(data.Name)
		for _, arg := range data.Args {
			out += ":" + sub(arg)
		}
		return out
	case ast.ExprWithSource:
		data, ok := exprs.WithSource(exprID)
		if !ok {
			return "<invalid-source>"
		}
		return sub(data.Inner)
	}
	return "<invalid>"
}

// wrapExprIfNeeded parenthesizes operands that would otherwise re-associate.
func wrapExprIfNeeded(builder *ast.Builder, exprID ast.ExprID, rendered string) string {
	switch builder.Exprs.Kind(exprID) {
	case ast.ExprBinary, ast.ExprConditional, ast.ExprPipe, ast.ExprPropertyWrite, ast.ExprKeyedWrite:
		return "(" + rendered + ")"
	}
	return rendered
}
