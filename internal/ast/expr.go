package ast

import (
	"tplcheck/internal/source"
)

// ExprKind is the closed set of binding expression nodes.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprImplicitReceiver
	ExprThisReceiver
	ExprPropertyRead
	ExprSafePropertyRead
	ExprPropertyWrite
	ExprKeyedRead
	ExprSafeKeyedRead
	ExprKeyedWrite
	ExprCall
	ExprSafeCall
	ExprLiteral
	ExprArray
	ExprMap
	ExprUnary
	ExprBinary
	ExprNot
	ExprNonNull
	ExprConditional
	ExprPipe
	ExprChain
	ExprInterpolation
	ExprWithSource
	ExprEmpty
)

var exprKindNames = [...]string{
	ExprInvalid:          "invalid",
	ExprImplicitReceiver: "implicit-receiver",
	ExprThisReceiver:     "this-receiver",
	ExprPropertyRead:     "property-read",
	ExprSafePropertyRead: "safe-property-read",
	ExprPropertyWrite:    "property-write",
	ExprKeyedRead:        "keyed-read",
	ExprSafeKeyedRead:    "safe-keyed-read",
	ExprKeyedWrite:       "keyed-write",
	ExprCall:             "call",
	ExprSafeCall:         "safe-call",
	ExprLiteral:          "literal",
	ExprArray:            "array",
	ExprMap:              "map",
	ExprUnary:            "unary",
	ExprBinary:           "binary",
	ExprNot:              "not",
	ExprNonNull:          "non-null",
	ExprConditional:      "conditional",
	ExprPipe:             "pipe",
	ExprChain:            "chain",
	ExprInterpolation:    "interpolation",
	ExprWithSource:       "with-source",
	ExprEmpty:            "empty",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "invalid"
}

// ParseExprKind maps the names produced by String back to kinds.
func ParseExprKind(s string) (ExprKind, bool) {
	for i, name := range exprKindNames {
		if name == s && ExprKind(i) != ExprInvalid {
			return ExprKind(i), true //nolint:gosec // i < len(exprKindNames)
		}
	}
	return ExprInvalid, false
}

type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

// PropertyData backs property reads, safe reads and writes. Value is set for writes only.
type PropertyData struct {
	Receiver ExprID
	Name     source.StringID
	NameSpan source.Span
	Value    ExprID
}

// KeyedData backs keyed reads and writes. Value is set for writes only.
type KeyedData struct {
	Receiver ExprID
	Key      ExprID
	Value    ExprID
}

type CallData struct {
	Receiver ExprID
	Args     []ExprID
	ArgSpan  source.Span
}

type LitKind uint8

const (
	LitNull LitKind = iota
	LitUndefined
	LitBool
	LitNumber
	LitString
)

type LiteralData struct {
	Kind  LitKind
	Value source.StringID
}

// ListData backs arrays, chains and interpolations.
type ListData struct {
	Items   []ExprID
	Strings []source.StringID // interpolation text parts
}

type MapKey struct {
	Key    source.StringID
	Quoted bool
}

type MapData struct {
	Keys   []MapKey
	Values []ExprID
}

type UnaryOp uint8

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
)

// UnaryData backs unary, not and non-null expressions.
type UnaryData struct {
	Op      UnaryOp
	Operand ExprID
}

type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryEq
	BinaryNotEq
	BinaryStrictEq
	BinaryStrictNotEq
	BinaryLess
	BinaryLessEq
	BinaryGreater
	BinaryGreaterEq
	BinaryAnd
	BinaryOr
	BinaryNullish
)

var binaryOpSymbols = [...]string{
	BinaryAdd:         "+",
	BinarySub:         "-",
	BinaryMul:         "*",
	BinaryDiv:         "/",
	BinaryMod:         "%",
	BinaryEq:          "==",
	BinaryNotEq:       "!=",
	BinaryStrictEq:    "===",
	BinaryStrictNotEq: "!==",
	BinaryLess:        "<",
	BinaryLessEq:      "<=",
	BinaryGreater:     ">",
	BinaryGreaterEq:   ">=",
	BinaryAnd:         "&&",
	BinaryOr:          "||",
	BinaryNullish:     "??",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return "?"
}

func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, sym := range binaryOpSymbols {
		if sym == s {
			return BinaryOp(i), true //nolint:gosec // i < len(binaryOpSymbols)
		}
	}
	return BinaryAdd, false
}

type BinaryData struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

type ConditionalData struct {
	Cond  ExprID
	True  ExprID
	False ExprID
}

type PipeData struct {
	Name     source.StringID
	NameSpan source.Span
	Input    ExprID
	Args     []ExprID
}

// SourceData wraps the root of a binding together with its original text.
type SourceData struct {
	Inner    ExprID
	Source   source.StringID
	Location source.StringID
}
