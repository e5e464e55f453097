package bundle

import (
	"fmt"

	"tplcheck/internal/ast"
)

func (l *lowerer) nodes(list []Node, at string) ([]ast.NodeID, error) {
	if len(list) == 0 {
		return nil, nil
	}
	ids := make([]ast.NodeID, 0, len(list))
	for i := range list {
		id, err := l.node(&list[i], fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// only reports a node kind used in a slot that does not accept it.
func only(ids []ast.NodeID, nodes *ast.Nodes, at string, kinds ...ast.NodeKind) error {
	for i, id := range ids {
		kind := nodes.Get(id).Kind
		ok := false
		for _, k := range kinds {
			if kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %s[%d]: %s not allowed here", ErrMalformed, at, i, kind)
		}
	}
	return nil
}

// contentKinds may appear as template roots and element children.
var contentKinds = []ast.NodeKind{
	ast.NodeElement, ast.NodeTemplate, ast.NodeBlock, ast.NodeText, ast.NodeBoundText, ast.NodeLetDecl,
}

type containers struct {
	templateAttrs, inputs, outputs, children, references, variables []ast.NodeID
}

func (l *lowerer) containers(n *Node, at string) (containers, error) {
	var c containers
	var err error
	if c.templateAttrs, err = l.nodes(n.TemplateAttrs, at+".template_attrs"); err != nil {
		return c, err
	}
	if c.inputs, err = l.nodes(n.Inputs, at+".inputs"); err != nil {
		return c, err
	}
	if c.outputs, err = l.nodes(n.Outputs, at+".outputs"); err != nil {
		return c, err
	}
	if c.children, err = l.nodes(n.Children, at+".children"); err != nil {
		return c, err
	}
	if c.references, err = l.nodes(n.References, at+".references"); err != nil {
		return c, err
	}
	if c.variables, err = l.nodes(n.Variables, at+".variables"); err != nil {
		return c, err
	}
	nodes := l.builder.Nodes
	if err := only(c.templateAttrs, nodes, at+".template_attrs", ast.NodeBoundAttribute); err != nil {
		return c, err
	}
	if err := only(c.inputs, nodes, at+".inputs", ast.NodeBoundAttribute); err != nil {
		return c, err
	}
	if err := only(c.outputs, nodes, at+".outputs", ast.NodeBoundEvent); err != nil {
		return c, err
	}
	if err := only(c.references, nodes, at+".references", ast.NodeReference); err != nil {
		return c, err
	}
	if err := only(c.variables, nodes, at+".variables", ast.NodeVariable); err != nil {
		return c, err
	}
	if err := only(c.children, nodes, at+".children", contentKinds...); err != nil {
		return c, err
	}
	return c, nil
}

// leafOnly rejects nested lists on nodes that cannot hold them.
func leafOnly(n *Node, at string) error {
	if len(n.TemplateAttrs)+len(n.Inputs)+len(n.Outputs)+len(n.Children)+len(n.References)+len(n.Variables) > 0 {
		return fmt.Errorf("%w: %s: %s cannot have nested nodes", ErrMalformed, at, n.Kind)
	}
	return nil
}

func (l *lowerer) node(n *Node, at string) (ast.NodeID, error) {
	span, err := l.span(n.Span, at+".span")
	if err != nil {
		return ast.NoNodeID, err
	}
	nodes := l.builder.Nodes

	switch n.Kind {
	case "element", "template":
		c, err := l.containers(n, at)
		if err != nil {
			return ast.NoNodeID, err
		}
		if n.Kind == "element" {
			if len(c.variables) > 0 {
				return ast.NoNodeID, fmt.Errorf("%w: %s: element cannot declare variables", ErrMalformed, at)
			}
			if len(c.templateAttrs) > 0 {
				return ast.NoNodeID, fmt.Errorf("%w: %s: template_attrs belong on a template", ErrMalformed, at)
			}
			return nodes.NewElement(span, ast.ElementData{
				Name:       l.intern(n.Name),
				Inputs:     c.inputs,
				Outputs:    c.outputs,
				Children:   c.children,
				References: c.references,
			}), nil
		}
		return nodes.NewTemplate(span, ast.TemplateData{
			TagName:       l.intern(n.Name),
			TemplateAttrs: c.templateAttrs,
			Inputs:        c.inputs,
			Outputs:       c.outputs,
			Children:      c.children,
			References:    c.references,
			Variables:     c.variables,
		}), nil

	case "block":
		if len(n.TemplateAttrs)+len(n.Inputs)+len(n.Outputs)+len(n.References) > 0 {
			return ast.NoNodeID, fmt.Errorf("%w: %s: block holds only variables and children", ErrMalformed, at)
		}
		c, err := l.containers(n, at)
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewBlock(span, ast.BlockData{
			Name:      l.intern(n.Name),
			Variables: c.variables,
			Children:  c.children,
		}), nil

	case "text":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewText(span, l.intern(n.Value)), nil

	case "bound-text":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		value, err := l.requiredExpr(n.Expr, at+".expr")
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewBoundText(span, value), nil

	case "bound-attribute":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		value, err := l.requiredExpr(n.Expr, at+".expr")
		if err != nil {
			return ast.NoNodeID, err
		}
		keySpan, err := l.optSpan(n.KeySpan, at+".key_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		valueSpan, err := l.optSpan(n.ValueSpan, at+".value_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewBoundAttribute(span, ast.BoundAttributeData{
			Name:      l.intern(n.Name),
			Value:     value,
			KeySpan:   keySpan,
			ValueSpan: valueSpan,
		}), nil

	case "bound-event":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		eventType, ok := ast.ParseEventType(n.Type)
		if !ok {
			return ast.NoNodeID, fmt.Errorf("%w: %s: unknown event type %q", ErrMalformed, at, n.Type)
		}
		handler, err := l.requiredExpr(n.Expr, at+".expr")
		if err != nil {
			return ast.NoNodeID, err
		}
		handlerSpan, err := l.optSpan(n.HandlerSpan, at+".handler_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		if handlerSpan.Empty() {
			handlerSpan = l.builder.Exprs.Get(handler).Span
		}
		keySpan, err := l.optSpan(n.KeySpan, at+".key_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewBoundEvent(span, ast.BoundEventData{
			Name:        l.intern(n.Name),
			Type:        eventType,
			Handler:     handler,
			HandlerSpan: handlerSpan,
			KeySpan:     keySpan,
		}), nil

	case "variable":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		if n.Name == "" {
			return ast.NoNodeID, fmt.Errorf("%w: %s: variable without name", ErrMalformed, at)
		}
		keySpan, err := l.optSpan(n.KeySpan, at+".key_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		valueSpan, err := l.optSpan(n.ValueSpan, at+".value_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewVariable(span, ast.VariableData{
			Name:      l.intern(n.Name),
			Value:     l.intern(n.Value),
			KeySpan:   keySpan,
			ValueSpan: valueSpan,
			Signal:    n.Signal,
		}), nil

	case "let":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		if n.Name == "" {
			return ast.NoNodeID, fmt.Errorf("%w: %s: @let without name", ErrMalformed, at)
		}
		value, err := l.expr(n.Expr, at+".expr")
		if err != nil {
			return ast.NoNodeID, err
		}
		nameSpan, err := l.optSpan(n.NameSpan, at+".name_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		valueSpan, err := l.optSpan(n.ValueSpan, at+".value_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewLetDecl(span, ast.LetDeclData{
			Name:      l.intern(n.Name),
			Value:     value,
			NameSpan:  nameSpan,
			ValueSpan: valueSpan,
			Signal:    n.Signal,
		}), nil

	case "reference":
		if err := leafOnly(n, at); err != nil {
			return ast.NoNodeID, err
		}
		if n.Name == "" {
			return ast.NoNodeID, fmt.Errorf("%w: %s: reference without name", ErrMalformed, at)
		}
		keySpan, err := l.optSpan(n.KeySpan, at+".key_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		valueSpan, err := l.optSpan(n.ValueSpan, at+".value_span")
		if err != nil {
			return ast.NoNodeID, err
		}
		return nodes.NewReference(span, ast.ReferenceData{
			Name:      l.intern(n.Name),
			Value:     l.intern(n.Value),
			KeySpan:   keySpan,
			ValueSpan: valueSpan,
		}), nil
	}
	return ast.NoNodeID, fmt.Errorf("%w: %s: unknown node kind %q", ErrMalformed, at, n.Kind)
}
