package ast

import (
	"tplcheck/internal/source"
)

// NodeKind is the closed set of structural template nodes.
type NodeKind uint8

const (
	NodeInvalid NodeKind = iota
	NodeElement
	NodeTemplate
	NodeBlock
	NodeText
	NodeBoundText
	NodeBoundAttribute
	NodeBoundEvent
	NodeVariable
	NodeLetDecl
	NodeReference
)

func (k NodeKind) String() string {
	switch k {
	case NodeElement:
		return "element"
	case NodeTemplate:
		return "template"
	case NodeBlock:
		return "block"
	case NodeText:
		return "text"
	case NodeBoundText:
		return "bound-text"
	case NodeBoundAttribute:
		return "bound-attribute"
	case NodeBoundEvent:
		return "bound-event"
	case NodeVariable:
		return "variable"
	case NodeLetDecl:
		return "let"
	case NodeReference:
		return "reference"
	default:
		return "invalid"
	}
}

// EventType tags a bound event. It is fixed when the tree is built.
type EventType uint8

const (
	EventRegular EventType = iota
	EventTwoWay
	EventAnimation
	EventLegacyAnimation
)

func (t EventType) String() string {
	switch t {
	case EventRegular:
		return "regular"
	case EventTwoWay:
		return "two-way"
	case EventAnimation:
		return "animation"
	case EventLegacyAnimation:
		return "legacy-animation"
	default:
		return "unknown"
	}
}

// ParseEventType accepts the names produced by String.
func ParseEventType(s string) (EventType, bool) {
	switch s {
	case "", "regular":
		return EventRegular, true
	case "two-way", "twoway":
		return EventTwoWay, true
	case "animation":
		return EventAnimation, true
	case "legacy-animation":
		return EventLegacyAnimation, true
	}
	return EventRegular, false
}

type Node struct {
	Kind    NodeKind
	Span    source.Span
	Payload PayloadID
}

type ElementData struct {
	Name       source.StringID
	Inputs     []NodeID // bound attributes
	Outputs    []NodeID // bound events
	Children   []NodeID
	References []NodeID
}

// TemplateData is a structural template (ng-template or a structural directive host).
type TemplateData struct {
	TagName source.StringID
	// TemplateAttrs are the bindings written on the host of a structural
	// directive (the `of` in *ngFor="let x of xs").
	TemplateAttrs []NodeID
	Inputs        []NodeID
	Outputs       []NodeID
	Children      []NodeID
	References    []NodeID
	Variables     []NodeID
}

// BlockData is a control-flow block such as if, for, switch or defer.
type BlockData struct {
	Name      source.StringID
	Variables []NodeID
	Children  []NodeID
}

type TextData struct {
	Value source.StringID
}

type BoundTextData struct {
	Value ExprID
}

type BoundAttributeData struct {
	Name      source.StringID
	Value     ExprID
	KeySpan   source.Span
	ValueSpan source.Span
}

type BoundEventData struct {
	Name        source.StringID
	Type        EventType
	Handler     ExprID
	HandlerSpan source.Span
	KeySpan     source.Span
}

// VariableData is a read-only name introduced by a template or block.
type VariableData struct {
	Name      source.StringID
	Value     source.StringID // context key, e.g. $implicit
	KeySpan   source.Span
	ValueSpan source.Span // empty when absent
	Signal    bool
}

type LetDeclData struct {
	Name      source.StringID
	Value     ExprID
	NameSpan  source.Span
	ValueSpan source.Span // empty when absent
	Signal    bool
}

type ReferenceData struct {
	Name      source.StringID
	Value     source.StringID
	KeySpan   source.Span
	ValueSpan source.Span
}
