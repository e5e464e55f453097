package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tplcheck/internal/ast"
	"tplcheck/internal/source"
)

type treeNode struct {
	label    string
	children []*treeNode
}

type treeBlock struct {
	lines []string
	width int
	root  int
}

// TemplateNodeOutput is one node of the JSON template dump.
type TemplateNodeOutput struct {
	Type     string               `json:"type"`
	Kind     string               `json:"kind,omitempty"`
	Span     source.Span          `json:"span"`
	Text     string               `json:"text,omitempty"`
	Children []TemplateNodeOutput `json:"children,omitempty"`
	Fields   map[string]any       `json:"fields,omitempty"`
}

// FormatTemplatePretty prints the template of decl as an indented outline.
func FormatTemplatePretty(w io.Writer, builder *ast.Builder, decl ast.ComponentID, fs *source.FileSet) error {
	root, err := buildComponentTreeNode(builder, decl, fs)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, root.label)
	writeOutline(w, root.children, "")
	return nil
}

// FormatTemplateTree prints the template of decl as a top-down ASCII tree.
func FormatTemplateTree(w io.Writer, builder *ast.Builder, decl ast.ComponentID, fs *source.FileSet) error {
	root, err := buildComponentTreeNode(builder, decl, fs)
	if err != nil {
		return err
	}
	for _, line := range renderTree(root).lines {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	return nil
}

// FormatTemplateJSON encodes the template of decl with spans and payload fields.
func FormatTemplateJSON(w io.Writer, builder *ast.Builder, decl ast.ComponentID) error {
	comp := builder.Components.Get(decl)
	if comp == nil {
		return fmt.Errorf("component %d not found", decl)
	}
	out := TemplateNodeOutput{
		Type: "Component",
		Text: builder.Name(comp.Name),
		Span: comp.Span,
		Fields: map[string]any{
			"has_template": comp.HasTemplate,
			"members":      memberFields(builder, comp),
		},
	}
	for _, id := range comp.Template {
		out.Children = append(out.Children, nodeJSON(builder, id))
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func writeOutline(w io.Writer, nodes []*treeNode, prefix string) {
	for i, n := range nodes {
		branch, next := "├─ ", "│  "
		if i == len(nodes)-1 {
			branch, next = "└─ ", "   "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, branch, n.label)
		writeOutline(w, n.children, prefix+next)
	}
}

func buildComponentTreeNode(builder *ast.Builder, decl ast.ComponentID, fs *source.FileSet) (*treeNode, error) {
	if builder == nil {
		return nil, fmt.Errorf("nil builder")
	}
	comp := builder.Components.Get(decl)
	if comp == nil {
		return nil, fmt.Errorf("component %d not found", decl)
	}
	header := builder.Name(comp.Name)
	if fs != nil && fs.Get(comp.File) != nil {
		header = fmt.Sprintf("%s @ %s", header, fs.Get(comp.File).FormatPath("auto", fs.BaseDir()))
	}
	root := &treeNode{label: fmt.Sprintf("Component %s (span: %s)", header, formatSpan(comp.Span, fs))}
	if !comp.HasTemplate {
		root.children = append(root.children, &treeNode{label: "<no template>"})
		return root, nil
	}
	for _, id := range comp.Template {
		root.children = append(root.children, buildNodeTreeNode(builder, id, fs, 0))
	}
	return root, nil
}

const treeMaxDepth = 128

func buildNodeTreeNode(builder *ast.Builder, id ast.NodeID, fs *source.FileSet, depth int) *treeNode {
	node := builder.Nodes.Get(id)
	if node == nil {
		return &treeNode{label: fmt.Sprintf("Node[%d]: <nil>", id)}
	}
	out := &treeNode{label: fmt.Sprintf("%s (span: %s)", nodeLabel(builder, id, node), formatSpan(node.Span, fs))}
	if depth >= treeMaxDepth {
		out.children = append(out.children, &treeNode{label: "..."})
		return out
	}
	for _, child := range builder.Nodes.Children(id) {
		out.children = append(out.children, buildNodeTreeNode(builder, child, fs, depth+1))
	}
	return out
}

func nodeLabel(builder *ast.Builder, id ast.NodeID, node *ast.Node) string {
	nodes := builder.Nodes
	switch node.Kind {
	case ast.NodeElement:
		if el, ok := nodes.Element(id); ok {
			return fmt.Sprintf("<%s>", builder.Name(el.Name))
		}
	case ast.NodeTemplate:
		if tmpl, ok := nodes.Template(id); ok {
			tag := builder.Name(tmpl.TagName)
			if tag == "" {
				tag = "ng-template"
			}
			return fmt.Sprintf("Template <%s>", tag)
		}
	case ast.NodeBlock:
		if blk, ok := nodes.Block(id); ok {
			return fmt.Sprintf("@%s", builder.Name(blk.Name))
		}
	case ast.NodeText:
		if txt, ok := nodes.Text(id); ok {
			return fmt.Sprintf("Text %q", builder.Name(txt.Value))
		}
	case ast.NodeBoundText:
		if bt, ok := nodes.BoundText(id); ok {
			return fmt.Sprintf("BoundText {{ %s }}", formatExprInline(builder, bt.Value))
		}
	case ast.NodeBoundAttribute:
		if attr, ok := nodes.BoundAttribute(id); ok {
			return fmt.Sprintf("[%s]=%q", builder.Name(attr.Name), formatExprInline(builder, attr.Value))
		}
	case ast.NodeBoundEvent:
		if ev, ok := nodes.BoundEvent(id); ok {
			name := fmt.Sprintf("(%s)", builder.Name(ev.Name))
			if ev.Type == ast.EventTwoWay {
				name = fmt.Sprintf("[(%s)]", builder.Name(ev.Name))
			}
			return fmt.Sprintf("%s=%q [%s]", name, formatExprInline(builder, ev.Handler), ev.Type)
		}
	case ast.NodeVariable:
		if v, ok := nodes.Variable(id); ok {
			return fmt.Sprintf("let-%s=%q%s", builder.Name(v.Name), builder.Name(v.Value), signalSuffix(v.Signal))
		}
	case ast.NodeLetDecl:
		if l, ok := nodes.LetDecl(id); ok {
			return fmt.Sprintf("@let %s = %s%s", builder.Name(l.Name), formatExprInline(builder, l.Value), signalSuffix(l.Signal))
		}
	case ast.NodeReference:
		if r, ok := nodes.Reference(id); ok {
			ref := "#" + builder.Name(r.Name)
			if v := builder.Name(r.Value); v != "" {
				ref += fmt.Sprintf("=%q", v)
			}
			return ref
		}
	}
	return fmt.Sprintf("%s[%d]", node.Kind, id)
}

func signalSuffix(signal bool) string {
	if signal {
		return " [signal]"
	}
	return ""
}

func nodeJSON(builder *ast.Builder, id ast.NodeID) TemplateNodeOutput {
	node := builder.Nodes.Get(id)
	if node == nil {
		return TemplateNodeOutput{Type: "Invalid"}
	}
	out := TemplateNodeOutput{
		Type: "Node",
		Kind: node.Kind.String(),
		Span: node.Span,
		Text: nodeLabel(builder, id, node),
	}
	nodes := builder.Nodes
	switch node.Kind {
	case ast.NodeBoundAttribute:
		if attr, ok := nodes.BoundAttribute(id); ok {
			out.Fields = map[string]any{
				"name":       builder.Name(attr.Name),
				"value":      exprJSON(builder, attr.Value),
				"value_span": attr.ValueSpan,
			}
		}
	case ast.NodeBoundEvent:
		if ev, ok := nodes.BoundEvent(id); ok {
			out.Fields = map[string]any{
				"name":         builder.Name(ev.Name),
				"type":         ev.Type.String(),
				"handler":      exprJSON(builder, ev.Handler),
				"handler_span": ev.HandlerSpan,
			}
		}
	case ast.NodeBoundText:
		if bt, ok := nodes.BoundText(id); ok {
			out.Fields = map[string]any{"value": exprJSON(builder, bt.Value)}
		}
	case ast.NodeVariable, ast.NodeLetDecl, ast.NodeReference:
		fields := map[string]any{"name": builder.Name(nodes.DeclName(id))}
		if vs := nodes.DeclValueSpan(id); !vs.Empty() {
			fields["value_span"] = vs
		}
		out.Fields = fields
	}
	for _, child := range nodes.Children(id) {
		out.Children = append(out.Children, nodeJSON(builder, child))
	}
	return out
}

func exprJSON(builder *ast.Builder, id ast.ExprID) map[string]any {
	expr := builder.Exprs.Get(id)
	if expr == nil {
		return nil
	}
	return map[string]any{
		"id":   uint32(id),
		"kind": expr.Kind.String(),
		"span": expr.Span,
		"text": formatExprInline(builder, id),
	}
}

func memberFields(builder *ast.Builder, comp *ast.ComponentData) []map[string]any {
	out := make([]map[string]any, 0, len(comp.Members))
	for _, mid := range comp.Members {
		m := builder.Components.Member(mid)
		if m == nil {
			continue
		}
		entry := map[string]any{"name": builder.Name(m.Name)}
		if m.Signal {
			entry["signal"] = true
		}
		if m.Deprecated {
			entry["deprecated"] = true
		}
		out = append(out, entry)
	}
	return out
}

// renderTree converts a treeNode into a treeBlock containing an ASCII-art representation.
//
// The returned treeBlock.lines is a slice of strings representing the rendered lines of
// the node and its descendants arranged as a tree with connector characters. The block's
// width is the horizontal extent of the rendered lines and root is the column index of
// the root node's vertical connector within those lines.
func renderTree(node *treeNode) treeBlock {
	label := node.label
	labelWidth := len(label)

	if len(node.children) == 0 {
		return treeBlock{
			lines: []string{label},
			width: labelWidth,
			root:  labelWidth / 2,
		}
	}

	childBlocks := make([]treeBlock, len(node.children))
	maxChildHeight := 0
	for i, child := range node.children {
		childBlocks[i] = renderTree(child)
		if len(childBlocks[i].lines) > maxChildHeight {
			maxChildHeight = len(childBlocks[i].lines)
		}
	}

	const spacing = 3

	positions := make([]int, len(childBlocks))
	totalWidth := 0
	for i, block := range childBlocks {
		positions[i] = totalWidth + block.root
		totalWidth += block.width
		if i != len(childBlocks)-1 {
			totalWidth += spacing
		}
	}

	childrenCenter := (positions[0] + positions[len(positions)-1]) / 2
	rootPos := labelWidth / 2
	shift := childrenCenter - rootPos

	childPrefix := 0
	if shift < 0 {
		childPrefix = -shift
		for i := range positions {
			positions[i] += childPrefix
		}
		totalWidth += childPrefix
		shift = 0
		rootPos = labelWidth / 2
	} else {
		rootPos += shift
	}

	width := totalWidth
	rootLine := label
	if shift > 0 {
		rootLine = strings.Repeat(" ", shift) + label
	}
	if len(rootLine) < width {
		rootLine += strings.Repeat(" ", width-len(rootLine))
	} else if len(rootLine) > width {
		width = len(rootLine)
		for i := range positions {
			if positions[i] >= width {
				width = positions[i] + 1
			}
		}
		if len(rootLine) < width {
			rootLine += strings.Repeat(" ", width-len(rootLine))
		}
	}

	connector := make([]byte, width)
	for i := range connector {
		connector[i] = ' '
	}
	if rootPos >= width {
		needed := rootPos - width + 1
		rootLine += strings.Repeat(" ", needed)
		connector = append(connector, make([]byte, needed)...)
		for i := width; i < len(connector); i++ {
			connector[i] = ' '
		}
		width = len(connector)
	}
	connector[rootPos] = '|'
	for _, pos := range positions {
		switch {
		case pos < rootPos:
			connector[pos] = '/'
		case pos > rootPos:
			connector[pos] = '\\'
		default:
			connector[pos] = '|'
		}
	}
	connectorLine := string(connector)

	childLines := make([]string, maxChildHeight)
	for row := range maxChildHeight {
		var sb strings.Builder
		if childPrefix > 0 {
			sb.WriteString(strings.Repeat(" ", childPrefix))
		}
		for i, block := range childBlocks {
			line := ""
			if row < len(block.lines) {
				line = block.lines[row]
			}
			if len(line) < block.width {
				line += strings.Repeat(" ", block.width-len(line))
			}
			sb.WriteString(line)
			if i != len(childBlocks)-1 {
				sb.WriteString(strings.Repeat(" ", spacing))
			}
		}
		rowStr := sb.String()
		if len(rowStr) < width {
			rowStr += strings.Repeat(" ", width-len(rowStr))
		}
		childLines[row] = rowStr
	}

	lines := make([]string, 0, 2+len(childLines))
	lines = append(lines, rootLine, connectorLine)
	lines = append(lines, childLines...)

	return treeBlock{
		lines: lines,
		width: width,
		root:  rootPos,
	}
}
