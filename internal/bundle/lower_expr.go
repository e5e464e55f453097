package bundle

import (
	"fmt"

	"tplcheck/internal/ast"
	"tplcheck/internal/source"
)

func (l *lowerer) requiredExpr(e *Expr, at string) (ast.ExprID, error) {
	if e == nil {
		return ast.NoExprID, fmt.Errorf("%w: %s: missing expression", ErrMalformed, at)
	}
	return l.expr(e, at)
}

func (l *lowerer) exprs(list []Expr, at string) ([]ast.ExprID, error) {
	if len(list) == 0 {
		return nil, nil
	}
	ids := make([]ast.ExprID, 0, len(list))
	for i := range list {
		id, err := l.expr(&list[i], fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// receiver lowers an optional receiver; a missing one means the implicit receiver.
func (l *lowerer) receiver(e *Expr, span source.Span, at string) (ast.ExprID, error) {
	if e == nil {
		return l.builder.Exprs.NewImplicitReceiver(source.Span{File: span.File, Start: span.Start, End: span.Start}), nil
	}
	return l.expr(e, at)
}

var literalKinds = map[string]ast.LitKind{
	"null":      ast.LitNull,
	"undefined": ast.LitUndefined,
	"bool":      ast.LitBool,
	"number":    ast.LitNumber,
	"string":    ast.LitString,
}

// expr lowers e; nil lowers to NoExprID.
func (l *lowerer) expr(e *Expr, at string) (ast.ExprID, error) {
	if e == nil {
		return ast.NoExprID, nil
	}
	kind, ok := ast.ParseExprKind(e.Kind)
	if !ok {
		return ast.NoExprID, fmt.Errorf("%w: %s: unknown expression kind %q", ErrMalformed, at, e.Kind)
	}
	span, err := l.span(e.Span, at+".span")
	if err != nil {
		return ast.NoExprID, err
	}
	exprs := l.builder.Exprs

	switch kind {
	case ast.ExprImplicitReceiver:
		return exprs.NewImplicitReceiver(span), nil
	case ast.ExprThisReceiver:
		return exprs.NewThisReceiver(span), nil
	case ast.ExprEmpty:
		return exprs.NewEmpty(span), nil

	case ast.ExprPropertyRead, ast.ExprSafePropertyRead, ast.ExprPropertyWrite:
		if e.Name == "" {
			return ast.NoExprID, fmt.Errorf("%w: %s: %s without name", ErrMalformed, at, kind)
		}
		recv, err := l.receiver(e.Receiver, span, at+".receiver")
		if err != nil {
			return ast.NoExprID, err
		}
		nameSpan, err := l.optSpan(e.NameSpan, at+".name_span")
		if err != nil {
			return ast.NoExprID, err
		}
		name := l.intern(e.Name)
		switch kind {
		case ast.ExprSafePropertyRead:
			return exprs.NewSafePropertyRead(span, recv, name, nameSpan), nil
		case ast.ExprPropertyWrite:
			value, err := l.requiredExpr(e.Value, at+".value")
			if err != nil {
				return ast.NoExprID, err
			}
			return exprs.NewPropertyWrite(span, recv, name, nameSpan, value), nil
		default:
			return exprs.NewPropertyRead(span, recv, name, nameSpan), nil
		}

	case ast.ExprKeyedRead, ast.ExprSafeKeyedRead, ast.ExprKeyedWrite:
		recv, err := l.requiredExpr(e.Receiver, at+".receiver")
		if err != nil {
			return ast.NoExprID, err
		}
		key, err := l.requiredExpr(e.Key, at+".key")
		if err != nil {
			return ast.NoExprID, err
		}
		var value ast.ExprID
		if kind == ast.ExprKeyedWrite {
			if value, err = l.requiredExpr(e.Value, at+".value"); err != nil {
				return ast.NoExprID, err
			}
		}
		return exprs.NewKeyed(kind, span, recv, key, value), nil

	case ast.ExprCall, ast.ExprSafeCall:
		recv, err := l.requiredExpr(e.Receiver, at+".receiver")
		if err != nil {
			return ast.NoExprID, err
		}
		args, err := l.exprs(e.Args, at+".args")
		if err != nil {
			return ast.NoExprID, err
		}
		argSpan, err := l.optSpan(e.ArgSpan, at+".arg_span")
		if err != nil {
			return ast.NoExprID, err
		}
		return exprs.NewCall(span, recv, args, argSpan, kind == ast.ExprSafeCall), nil

	case ast.ExprLiteral:
		lit, ok := literalKinds[e.Literal]
		if !ok {
			return ast.NoExprID, fmt.Errorf("%w: %s: unknown literal kind %q", ErrMalformed, at, e.Literal)
		}
		return exprs.NewLiteral(span, lit, l.intern(e.Text)), nil

	case ast.ExprArray, ast.ExprChain, ast.ExprInterpolation:
		items, err := l.exprs(e.Items, at+".items")
		if err != nil {
			return ast.NoExprID, err
		}
		var strs []source.StringID
		if kind == ast.ExprInterpolation {
			if len(e.Strings) != len(items)+1 {
				return ast.NoExprID, fmt.Errorf("%w: %s: interpolation needs %d strings, got %d", ErrMalformed, at, len(items)+1, len(e.Strings))
			}
			strs = make([]source.StringID, len(e.Strings))
			for i, s := range e.Strings {
				strs[i] = l.intern(s)
			}
		}
		return exprs.NewList(kind, span, items, strs), nil

	case ast.ExprMap:
		values, err := l.exprs(e.Items, at+".items")
		if err != nil {
			return ast.NoExprID, err
		}
		if len(values) != len(e.Keys) {
			return ast.NoExprID, fmt.Errorf("%w: %s: map has %d keys and %d values", ErrMalformed, at, len(e.Keys), len(values))
		}
		keys := make([]ast.MapKey, len(e.Keys))
		for i, k := range e.Keys {
			keys[i] = ast.MapKey{Key: l.intern(k.Key), Quoted: k.Quoted}
		}
		return exprs.NewMap(span, keys, values), nil

	case ast.ExprUnary, ast.ExprNot, ast.ExprNonNull:
		operand, err := l.requiredExpr(e.Operand, at+".operand")
		if err != nil {
			return ast.NoExprID, err
		}
		switch kind {
		case ast.ExprNot:
			return exprs.NewNot(span, operand), nil
		case ast.ExprNonNull:
			return exprs.NewNonNull(span, operand), nil
		}
		switch e.Op {
		case "+":
			return exprs.NewUnary(span, ast.UnaryPlus, operand), nil
		case "-":
			return exprs.NewUnary(span, ast.UnaryMinus, operand), nil
		}
		return ast.NoExprID, fmt.Errorf("%w: %s: unknown unary operator %q", ErrMalformed, at, e.Op)

	case ast.ExprBinary:
		op, ok := ast.ParseBinaryOp(e.Op)
		if !ok {
			return ast.NoExprID, fmt.Errorf("%w: %s: unknown binary operator %q", ErrMalformed, at, e.Op)
		}
		left, err := l.requiredExpr(e.Left, at+".left")
		if err != nil {
			return ast.NoExprID, err
		}
		right, err := l.requiredExpr(e.Right, at+".right")
		if err != nil {
			return ast.NoExprID, err
		}
		return exprs.NewBinary(span, op, left, right), nil

	case ast.ExprConditional:
		cond, err := l.requiredExpr(e.Cond, at+".cond")
		if err != nil {
			return ast.NoExprID, err
		}
		whenTrue, err := l.requiredExpr(e.True, at+".true")
		if err != nil {
			return ast.NoExprID, err
		}
		whenFalse, err := l.requiredExpr(e.False, at+".false")
		if err != nil {
			return ast.NoExprID, err
		}
		return exprs.NewConditional(span, cond, whenTrue, whenFalse), nil

	case ast.ExprPipe:
		if e.Name == "" {
			return ast.NoExprID, fmt.Errorf("%w: %s: pipe without name", ErrMalformed, at)
		}
		input, err := l.requiredExpr(e.Input, at+".input")
		if err != nil {
			return ast.NoExprID, err
		}
		args, err := l.exprs(e.Args, at+".args")
		if err != nil {
			return ast.NoExprID, err
		}
		nameSpan, err := l.optSpan(e.NameSpan, at+".name_span")
		if err != nil {
			return ast.NoExprID, err
		}
		return exprs.NewPipe(span, l.intern(e.Name), nameSpan, input, args), nil

	case ast.ExprWithSource:
		inner, err := l.requiredExpr(e.Inner, at+".inner")
		if err != nil {
			return ast.NoExprID, err
		}
		return exprs.NewWithSource(span, inner, l.intern(e.Text), l.intern(e.Location)), nil
	}
	return ast.NoExprID, fmt.Errorf("%w: %s: unsupported expression kind %q", ErrMalformed, at, e.Kind)
}
