package bundle

// SchemaVersion is the only bundle layout this package understands.
const SchemaVersion = 1

// Span is a half-open byte range [start, end) into the owning file.
// An empty slice means the span is absent.
type Span []int64

// Bundle is the on-disk document.
type Bundle struct {
	Version    int         `json:"version" msgpack:"version"`
	Files      []File      `json:"files,omitempty" msgpack:"files,omitempty"`
	Components []Component `json:"components" msgpack:"components"`
}

// File supplies template text inline. Files not listed are read from disk
// relative to the bundle directory.
type File struct {
	Path    string `json:"path" msgpack:"path"`
	Content string `json:"content" msgpack:"content"`
}

type Component struct {
	Name      string   `json:"name" msgpack:"name"`
	File      string   `json:"file" msgpack:"file"`
	ClassFile string   `json:"class_file,omitempty" msgpack:"class_file,omitempty"`
	Span      Span     `json:"span,omitempty" msgpack:"span,omitempty"`
	Members   []Member `json:"members,omitempty" msgpack:"members,omitempty"`
	// Template is nil when the component has no template at all.
	Template *[]Node `json:"template,omitempty" msgpack:"template,omitempty"`
}

// Member spans point into ClassFile when set, else into File.
type Member struct {
	Name        string `json:"name" msgpack:"name"`
	Span        Span   `json:"span,omitempty" msgpack:"span,omitempty"`
	Signal      bool   `json:"signal,omitempty" msgpack:"signal,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty" msgpack:"deprecated,omitempty"`
	Deprecation string `json:"deprecation,omitempty" msgpack:"deprecation,omitempty"`
}

// Node is one structural template node. Which fields apply depends on Kind:
//
//	element     name, inputs, outputs, children, references
//	template    name (tag), template_attrs, inputs, outputs, children, references, variables
//	block       name, variables, children
//	text        value
//	bound-text  expr
//	bound-attribute  name, expr, key_span, value_span
//	bound-event name, type, expr (handler), handler_span, key_span
//	variable    name, value, key_span, value_span, signal
//	let         name, expr, name_span, value_span, signal
//	reference   name, value, key_span, value_span
type Node struct {
	Kind        string `json:"kind" msgpack:"kind"`
	Span        Span   `json:"span" msgpack:"span"`
	Name        string `json:"name,omitempty" msgpack:"name,omitempty"`
	Value       string `json:"value,omitempty" msgpack:"value,omitempty"`
	Type        string `json:"type,omitempty" msgpack:"type,omitempty"`
	Expr        *Expr  `json:"expr,omitempty" msgpack:"expr,omitempty"`
	Signal      bool   `json:"signal,omitempty" msgpack:"signal,omitempty"`
	KeySpan     Span   `json:"key_span,omitempty" msgpack:"key_span,omitempty"`
	NameSpan    Span   `json:"name_span,omitempty" msgpack:"name_span,omitempty"`
	ValueSpan   Span   `json:"value_span,omitempty" msgpack:"value_span,omitempty"`
	HandlerSpan Span   `json:"handler_span,omitempty" msgpack:"handler_span,omitempty"`

	TemplateAttrs []Node `json:"template_attrs,omitempty" msgpack:"template_attrs,omitempty"`
	Inputs        []Node `json:"inputs,omitempty" msgpack:"inputs,omitempty"`
	Outputs       []Node `json:"outputs,omitempty" msgpack:"outputs,omitempty"`
	Children      []Node `json:"children,omitempty" msgpack:"children,omitempty"`
	References    []Node `json:"references,omitempty" msgpack:"references,omitempty"`
	Variables     []Node `json:"variables,omitempty" msgpack:"variables,omitempty"`
}

// Expr is one binding expression node; Kind uses ast.ExprKind names.
type Expr struct {
	Kind     string `json:"kind" msgpack:"kind"`
	Span     Span   `json:"span" msgpack:"span"`
	Name     string `json:"name,omitempty" msgpack:"name,omitempty"`
	NameSpan Span   `json:"name_span,omitempty" msgpack:"name_span,omitempty"`
	// Literal is null|undefined|bool|number|string; Text holds its source text.
	Literal string `json:"literal,omitempty" msgpack:"literal,omitempty"`
	Text    string `json:"text,omitempty" msgpack:"text,omitempty"`
	Op      string `json:"op,omitempty" msgpack:"op,omitempty"`

	Receiver *Expr `json:"receiver,omitempty" msgpack:"receiver,omitempty"`
	Key      *Expr `json:"key,omitempty" msgpack:"key,omitempty"`
	Value    *Expr `json:"value,omitempty" msgpack:"value,omitempty"`
	Operand  *Expr `json:"operand,omitempty" msgpack:"operand,omitempty"`
	Left     *Expr `json:"left,omitempty" msgpack:"left,omitempty"`
	Right    *Expr `json:"right,omitempty" msgpack:"right,omitempty"`
	Cond     *Expr `json:"cond,omitempty" msgpack:"cond,omitempty"`
	True     *Expr `json:"true,omitempty" msgpack:"true,omitempty"`
	False    *Expr `json:"false,omitempty" msgpack:"false,omitempty"`
	Input    *Expr `json:"input,omitempty" msgpack:"input,omitempty"`
	Inner    *Expr `json:"inner,omitempty" msgpack:"inner,omitempty"`

	Args     []Expr   `json:"args,omitempty" msgpack:"args,omitempty"`
	ArgSpan  Span     `json:"arg_span,omitempty" msgpack:"arg_span,omitempty"`
	Items    []Expr   `json:"items,omitempty" msgpack:"items,omitempty"` // map values pair with Keys
	Strings  []string `json:"strings,omitempty" msgpack:"strings,omitempty"`
	Keys     []MapKey `json:"keys,omitempty" msgpack:"keys,omitempty"`
	Location string   `json:"location,omitempty" msgpack:"location,omitempty"`
}

type MapKey struct {
	Key    string `json:"key" msgpack:"key"`
	Quoted bool   `json:"quoted,omitempty" msgpack:"quoted,omitempty"`
}
