package ast

import (
	"tplcheck/internal/source"
)

// Nodes manages allocation of structural template nodes.
type Nodes struct {
	Arena      *Arena[Node]
	Elements   *Arena[ElementData]
	Templates  *Arena[TemplateData]
	Blocks     *Arena[BlockData]
	Texts      *Arena[TextData]
	BoundTexts *Arena[BoundTextData]
	Attributes *Arena[BoundAttributeData]
	Events     *Arena[BoundEventData]
	Variables  *Arena[VariableData]
	Lets       *Arena[LetDeclData]
	References *Arena[ReferenceData]
}

func NewNodes(capHint uint) *Nodes {
	if capHint == 0 {
		capHint = 1 << 7
	}
	return &Nodes{
		Arena:      NewArena[Node](capHint),
		Elements:   NewArena[ElementData](capHint / 4),
		Templates:  NewArena[TemplateData](capHint / 8),
		Blocks:     NewArena[BlockData](capHint / 8),
		Texts:      NewArena[TextData](capHint / 4),
		BoundTexts: NewArena[BoundTextData](capHint / 8),
		Attributes: NewArena[BoundAttributeData](capHint / 4),
		Events:     NewArena[BoundEventData](capHint / 4),
		Variables:  NewArena[VariableData](capHint / 8),
		Lets:       NewArena[LetDeclData](capHint / 8),
		References: NewArena[ReferenceData](capHint / 8),
	}
}

func (n *Nodes) new(kind NodeKind, span source.Span, payload uint32) NodeID {
	return NodeID(n.Arena.Allocate(Node{
		Kind:    kind,
		Span:    span,
		Payload: PayloadID(payload),
	}))
}

// Get returns the node with the given ID.
func (n *Nodes) Get(id NodeID) *Node {
	return n.Arena.Get(uint32(id))
}

func (n *Nodes) payload(id NodeID, kind NodeKind) (uint32, bool) {
	node := n.Get(id)
	if node == nil || node.Kind != kind {
		return 0, false
	}
	return uint32(node.Payload), true
}

func (n *Nodes) NewElement(span source.Span, data ElementData) NodeID {
	return n.new(NodeElement, span, n.Elements.Allocate(data))
}

func (n *Nodes) Element(id NodeID) (*ElementData, bool) {
	p, ok := n.payload(id, NodeElement)
	if !ok {
		return nil, false
	}
	return n.Elements.Get(p), true
}

func (n *Nodes) NewTemplate(span source.Span, data TemplateData) NodeID {
	return n.new(NodeTemplate, span, n.Templates.Allocate(data))
}

func (n *Nodes) Template(id NodeID) (*TemplateData, bool) {
	p, ok := n.payload(id, NodeTemplate)
	if !ok {
		return nil, false
	}
	return n.Templates.Get(p), true
}

func (n *Nodes) NewBlock(span source.Span, data BlockData) NodeID {
	return n.new(NodeBlock, span, n.Blocks.Allocate(data))
}

func (n *Nodes) Block(id NodeID) (*BlockData, bool) {
	p, ok := n.payload(id, NodeBlock)
	if !ok {
		return nil, false
	}
	return n.Blocks.Get(p), true
}

func (n *Nodes) NewText(span source.Span, value source.StringID) NodeID {
	return n.new(NodeText, span, n.Texts.Allocate(TextData{Value: value}))
}

func (n *Nodes) Text(id NodeID) (*TextData, bool) {
	p, ok := n.payload(id, NodeText)
	if !ok {
		return nil, false
	}
	return n.Texts.Get(p), true
}

func (n *Nodes) NewBoundText(span source.Span, value ExprID) NodeID {
	return n.new(NodeBoundText, span, n.BoundTexts.Allocate(BoundTextData{Value: value}))
}

func (n *Nodes) BoundText(id NodeID) (*BoundTextData, bool) {
	p, ok := n.payload(id, NodeBoundText)
	if !ok {
		return nil, false
	}
	return n.BoundTexts.Get(p), true
}

func (n *Nodes) NewBoundAttribute(span source.Span, data BoundAttributeData) NodeID {
	return n.new(NodeBoundAttribute, span, n.Attributes.Allocate(data))
}

func (n *Nodes) BoundAttribute(id NodeID) (*BoundAttributeData, bool) {
	p, ok := n.payload(id, NodeBoundAttribute)
	if !ok {
		return nil, false
	}
	return n.Attributes.Get(p), true
}

func (n *Nodes) NewBoundEvent(span source.Span, data BoundEventData) NodeID {
	return n.new(NodeBoundEvent, span, n.Events.Allocate(data))
}

func (n *Nodes) BoundEvent(id NodeID) (*BoundEventData, bool) {
	p, ok := n.payload(id, NodeBoundEvent)
	if !ok {
		return nil, false
	}
	return n.Events.Get(p), true
}

func (n *Nodes) NewVariable(span source.Span, data VariableData) NodeID {
	return n.new(NodeVariable, span, n.Variables.Allocate(data))
}

func (n *Nodes) Variable(id NodeID) (*VariableData, bool) {
	p, ok := n.payload(id, NodeVariable)
	if !ok {
		return nil, false
	}
	return n.Variables.Get(p), true
}

func (n *Nodes) NewLetDecl(span source.Span, data LetDeclData) NodeID {
	return n.new(NodeLetDecl, span, n.Lets.Allocate(data))
}

func (n *Nodes) LetDecl(id NodeID) (*LetDeclData, bool) {
	p, ok := n.payload(id, NodeLetDecl)
	if !ok {
		return nil, false
	}
	return n.Lets.Get(p), true
}

func (n *Nodes) NewReference(span source.Span, data ReferenceData) NodeID {
	return n.new(NodeReference, span, n.References.Allocate(data))
}

func (n *Nodes) Reference(id NodeID) (*ReferenceData, bool) {
	p, ok := n.payload(id, NodeReference)
	if !ok {
		return nil, false
	}
	return n.References.Get(p), true
}

// Children lists the direct structural children of id in traversal order:
// element: inputs, outputs, children, references;
// template: template attrs, inputs, outputs, children, references, variables;
// block: variables, children. Leaves return nil.
func (n *Nodes) Children(id NodeID) []NodeID {
	node := n.Get(id)
	if node == nil {
		return nil
	}
	switch node.Kind {
	case NodeElement:
		el := n.Elements.Get(uint32(node.Payload))
		return concatIDs(el.Inputs, el.Outputs, el.Children, el.References)
	case NodeTemplate:
		tmpl := n.Templates.Get(uint32(node.Payload))
		return concatIDs(tmpl.TemplateAttrs, tmpl.Inputs, tmpl.Outputs, tmpl.Children, tmpl.References, tmpl.Variables)
	case NodeBlock:
		blk := n.Blocks.Get(uint32(node.Payload))
		return concatIDs(blk.Variables, blk.Children)
	case NodeText, NodeBoundText, NodeBoundAttribute, NodeBoundEvent, NodeVariable, NodeLetDecl, NodeReference:
		return nil
	}
	return nil
}

// DeclName returns the declared name of a variable, let declaration or reference.
func (n *Nodes) DeclName(id NodeID) source.StringID {
	if v, ok := n.Variable(id); ok {
		return v.Name
	}
	if l, ok := n.LetDecl(id); ok {
		return l.Name
	}
	if r, ok := n.Reference(id); ok {
		return r.Name
	}
	return source.NoStringID
}

// DeclValueSpan returns the initializer span of a declaration; empty when absent.
func (n *Nodes) DeclValueSpan(id NodeID) source.Span {
	if v, ok := n.Variable(id); ok {
		return v.ValueSpan
	}
	if l, ok := n.LetDecl(id); ok {
		return l.ValueSpan
	}
	if r, ok := n.Reference(id); ok {
		return r.ValueSpan
	}
	return source.Span{}
}

func concatIDs(groups ...[]NodeID) []NodeID {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total == 0 {
		return nil
	}
	out := make([]NodeID, 0, total)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
