package ast

import (
	"tplcheck/internal/source"
)

// Exprs manages allocation of binding expressions.
type Exprs struct {
	Arena        *Arena[Expr]
	Properties   *Arena[PropertyData]
	Keyed        *Arena[KeyedData]
	Calls        *Arena[CallData]
	Literals     *Arena[LiteralData]
	Lists        *Arena[ListData]
	Maps         *Arena[MapData]
	Unaries      *Arena[UnaryData]
	Binaries     *Arena[BinaryData]
	Conditionals *Arena[ConditionalData]
	Pipes        *Arena[PipeData]
	Sources      *Arena[SourceData]
}

// NewExprs preallocates every per-kind arena with capHint (1<<8 when zero).
func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Exprs{
		Arena:        NewArena[Expr](capHint),
		Properties:   NewArena[PropertyData](capHint / 2),
		Keyed:        NewArena[KeyedData](capHint / 8),
		Calls:        NewArena[CallData](capHint / 4),
		Literals:     NewArena[LiteralData](capHint / 4),
		Lists:        NewArena[ListData](capHint / 8),
		Maps:         NewArena[MapData](capHint / 16),
		Unaries:      NewArena[UnaryData](capHint / 16),
		Binaries:     NewArena[BinaryData](capHint / 8),
		Conditionals: NewArena[ConditionalData](capHint / 16),
		Pipes:        NewArena[PipeData](capHint / 16),
		Sources:      NewArena[SourceData](capHint / 4),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload uint32) ExprID {
	return ExprID(e.Arena.Allocate(Expr{
		Kind:    kind,
		Span:    span,
		Payload: PayloadID(payload),
	}))
}

// Get returns the expression with the given ID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

// Kind returns ExprInvalid for unknown ids.
func (e *Exprs) Kind(id ExprID) ExprKind {
	if expr := e.Get(id); expr != nil {
		return expr.Kind
	}
	return ExprInvalid
}

func (e *Exprs) NewImplicitReceiver(span source.Span) ExprID {
	return e.new(ExprImplicitReceiver, span, 0)
}

func (e *Exprs) NewThisReceiver(span source.Span) ExprID {
	return e.new(ExprThisReceiver, span, 0)
}

func (e *Exprs) NewEmpty(span source.Span) ExprID {
	return e.new(ExprEmpty, span, 0)
}

// IsImplicitReceiver reports whether id is a bare implicit receiver. this-receivers do not count.
func (e *Exprs) IsImplicitReceiver(id ExprID) bool {
	return e.Kind(id) == ExprImplicitReceiver
}

func (e *Exprs) NewPropertyRead(span source.Span, receiver ExprID, name source.StringID, nameSpan source.Span) ExprID {
	payload := e.Properties.Allocate(PropertyData{Receiver: receiver, Name: name, NameSpan: nameSpan})
	return e.new(ExprPropertyRead, span, payload)
}

func (e *Exprs) NewSafePropertyRead(span source.Span, receiver ExprID, name source.StringID, nameSpan source.Span) ExprID {
	payload := e.Properties.Allocate(PropertyData{Receiver: receiver, Name: name, NameSpan: nameSpan})
	return e.new(ExprSafePropertyRead, span, payload)
}

func (e *Exprs) NewPropertyWrite(span source.Span, receiver ExprID, name source.StringID, nameSpan source.Span, value ExprID) ExprID {
	payload := e.Properties.Allocate(PropertyData{Receiver: receiver, Name: name, NameSpan: nameSpan, Value: value})
	return e.new(ExprPropertyWrite, span, payload)
}

// Property returns the payload of property reads, safe reads and writes.
func (e *Exprs) Property(id ExprID) (*PropertyData, bool) {
	expr := e.Get(id)
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case ExprPropertyRead, ExprSafePropertyRead, ExprPropertyWrite:
		return e.Properties.Get(uint32(expr.Payload)), true
	}
	return nil, false
}

func (e *Exprs) NewKeyed(kind ExprKind, span source.Span, receiver, key, value ExprID) ExprID {
	switch kind {
	case ExprKeyedRead, ExprSafeKeyedRead, ExprKeyedWrite:
	default:
		panic("ast: NewKeyed with non-keyed kind " + kind.String())
	}
	payload := e.Keyed.Allocate(KeyedData{Receiver: receiver, Key: key, Value: value})
	return e.new(kind, span, payload)
}

func (e *Exprs) KeyedAccess(id ExprID) (*KeyedData, bool) {
	expr := e.Get(id)
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case ExprKeyedRead, ExprSafeKeyedRead, ExprKeyedWrite:
		return e.Keyed.Get(uint32(expr.Payload)), true
	}
	return nil, false
}

func (e *Exprs) NewCall(span source.Span, receiver ExprID, args []ExprID, argSpan source.Span, safe bool) ExprID {
	kind := ExprCall
	if safe {
		kind = ExprSafeCall
	}
	payload := e.Calls.Allocate(CallData{Receiver: receiver, Args: append([]ExprID(nil), args...), ArgSpan: argSpan})
	return e.new(kind, span, payload)
}

func (e *Exprs) Call(id ExprID) (*CallData, bool) {
	expr := e.Get(id)
	if expr == nil || (expr.Kind != ExprCall && expr.Kind != ExprSafeCall) {
		return nil, false
	}
	return e.Calls.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewLiteral(span source.Span, kind LitKind, value source.StringID) ExprID {
	return e.new(ExprLiteral, span, e.Literals.Allocate(LiteralData{Kind: kind, Value: value}))
}

func (e *Exprs) Literal(id ExprID) (*LiteralData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprLiteral {
		return nil, false
	}
	return e.Literals.Get(uint32(expr.Payload)), true
}

// NewList creates an array, chain or interpolation.
func (e *Exprs) NewList(kind ExprKind, span source.Span, items []ExprID, strings []source.StringID) ExprID {
	switch kind {
	case ExprArray, ExprChain, ExprInterpolation:
	default:
		panic("ast: NewList with non-list kind " + kind.String())
	}
	payload := e.Lists.Allocate(ListData{
		Items:   append([]ExprID(nil), items...),
		Strings: append([]source.StringID(nil), strings...),
	})
	return e.new(kind, span, payload)
}

func (e *Exprs) List(id ExprID) (*ListData, bool) {
	expr := e.Get(id)
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case ExprArray, ExprChain, ExprInterpolation:
		return e.Lists.Get(uint32(expr.Payload)), true
	}
	return nil, false
}

func (e *Exprs) NewMap(span source.Span, keys []MapKey, values []ExprID) ExprID {
	payload := e.Maps.Allocate(MapData{
		Keys:   append([]MapKey(nil), keys...),
		Values: append([]ExprID(nil), values...),
	})
	return e.new(ExprMap, span, payload)
}

func (e *Exprs) Map(id ExprID) (*MapData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprMap {
		return nil, false
	}
	return e.Maps.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewUnary(span source.Span, op UnaryOp, operand ExprID) ExprID {
	return e.new(ExprUnary, span, e.Unaries.Allocate(UnaryData{Op: op, Operand: operand}))
}

func (e *Exprs) NewNot(span source.Span, operand ExprID) ExprID {
	return e.new(ExprNot, span, e.Unaries.Allocate(UnaryData{Operand: operand}))
}

func (e *Exprs) NewNonNull(span source.Span, operand ExprID) ExprID {
	return e.new(ExprNonNull, span, e.Unaries.Allocate(UnaryData{Operand: operand}))
}

// Unary returns the payload of unary, not and non-null expressions.
func (e *Exprs) Unary(id ExprID) (*UnaryData, bool) {
	expr := e.Get(id)
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case ExprUnary, ExprNot, ExprNonNull:
		return e.Unaries.Get(uint32(expr.Payload)), true
	}
	return nil, false
}

func (e *Exprs) NewBinary(span source.Span, op BinaryOp, left, right ExprID) ExprID {
	return e.new(ExprBinary, span, e.Binaries.Allocate(BinaryData{Op: op, Left: left, Right: right}))
}

func (e *Exprs) Binary(id ExprID) (*BinaryData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprBinary {
		return nil, false
	}
	return e.Binaries.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewConditional(span source.Span, cond, whenTrue, whenFalse ExprID) ExprID {
	payload := e.Conditionals.Allocate(ConditionalData{Cond: cond, True: whenTrue, False: whenFalse})
	return e.new(ExprConditional, span, payload)
}

func (e *Exprs) Conditional(id ExprID) (*ConditionalData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprConditional {
		return nil, false
	}
	return e.Conditionals.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewPipe(span source.Span, name source.StringID, nameSpan source.Span, input ExprID, args []ExprID) ExprID {
	payload := e.Pipes.Allocate(PipeData{Name: name, NameSpan: nameSpan, Input: input, Args: append([]ExprID(nil), args...)})
	return e.new(ExprPipe, span, payload)
}

func (e *Exprs) Pipe(id ExprID) (*PipeData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprPipe {
		return nil, false
	}
	return e.Pipes.Get(uint32(expr.Payload)), true
}

// NewWithSource wraps inner with the binding's original text.
func (e *Exprs) NewWithSource(span source.Span, inner ExprID, text, location source.StringID) ExprID {
	payload := e.Sources.Allocate(SourceData{Inner: inner, Source: text, Location: location})
	return e.new(ExprWithSource, span, payload)
}

func (e *Exprs) WithSource(id ExprID) (*SourceData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprWithSource {
		return nil, false
	}
	return e.Sources.Get(uint32(expr.Payload)), true
}

// Unwrap strips top-level source wrappers and returns the root expression.
func (e *Exprs) Unwrap(id ExprID) ExprID {
	for {
		src, ok := e.WithSource(id)
		if !ok {
			return id
		}
		id = src.Inner
	}
}
