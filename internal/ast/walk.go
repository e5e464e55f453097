package ast

// ExprVisitor is called for every expression reached by Exprs.Walk.
// Returning false skips the children of that expression.
type ExprVisitor interface {
	VisitExpr(id ExprID, expr *Expr) bool
}

// ExprVisitorFunc adapts a function to ExprVisitor.
type ExprVisitorFunc func(id ExprID, expr *Expr) bool

func (f ExprVisitorFunc) VisitExpr(id ExprID, expr *Expr) bool { return f(id, expr) }

// NodeVisitor is called for every structural node reached by Nodes.Walk.
// Returning false skips the children of that node.
type NodeVisitor interface {
	VisitNode(id NodeID, node *Node) bool
}

type NodeVisitorFunc func(id NodeID, node *Node) bool

func (f NodeVisitorFunc) VisitNode(id NodeID, node *Node) bool { return f(id, node) }

// Children lists the direct operands of id in evaluation order.
func (e *Exprs) Children(id ExprID) []ExprID {
	expr := e.Get(id)
	if expr == nil {
		return nil
	}
	switch expr.Kind {
	case ExprImplicitReceiver, ExprThisReceiver, ExprLiteral, ExprEmpty, ExprInvalid:
		return nil
	case ExprPropertyRead, ExprSafePropertyRead, ExprPropertyWrite:
		p := e.Properties.Get(uint32(expr.Payload))
		return validIDs(p.Receiver, p.Value)
	case ExprKeyedRead, ExprSafeKeyedRead, ExprKeyedWrite:
		k := e.Keyed.Get(uint32(expr.Payload))
		return validIDs(k.Receiver, k.Key, k.Value)
	case ExprCall, ExprSafeCall:
		c := e.Calls.Get(uint32(expr.Payload))
		return append(validIDs(c.Receiver), c.Args...)
	case ExprArray, ExprChain, ExprInterpolation:
		return e.Lists.Get(uint32(expr.Payload)).Items
	case ExprMap:
		return e.Maps.Get(uint32(expr.Payload)).Values
	case ExprUnary, ExprNot, ExprNonNull:
		return validIDs(e.Unaries.Get(uint32(expr.Payload)).Operand)
	case ExprBinary:
		b := e.Binaries.Get(uint32(expr.Payload))
		return validIDs(b.Left, b.Right)
	case ExprConditional:
		c := e.Conditionals.Get(uint32(expr.Payload))
		return validIDs(c.Cond, c.True, c.False)
	case ExprPipe:
		p := e.Pipes.Get(uint32(expr.Payload))
		return append(validIDs(p.Input), p.Args...)
	case ExprWithSource:
		return validIDs(e.Sources.Get(uint32(expr.Payload)).Inner)
	}
	return nil
}

// Walk visits root and its operands depth-first, pre-order.
func (e *Exprs) Walk(root ExprID, v ExprVisitor) {
	expr := e.Get(root)
	if expr == nil || v == nil {
		return
	}
	if !v.VisitExpr(root, expr) {
		return
	}
	for _, child := range e.Children(root) {
		e.Walk(child, v)
	}
}

// Walk visits roots in order, depth-first, pre-order, following Children.
func (n *Nodes) Walk(roots []NodeID, v NodeVisitor) {
	if v == nil {
		return
	}
	for _, id := range roots {
		node := n.Get(id)
		if node == nil {
			continue
		}
		if !v.VisitNode(id, node) {
			continue
		}
		n.Walk(n.Children(id), v)
	}
}

func validIDs(ids ...ExprID) []ExprID {
	out := ids[:0]
	for _, id := range ids {
		if id.IsValid() {
			out = append(out, id)
		}
	}
	return out
}
