package ast

import "strings"

// NodeType distinguishes element and text nodes of the item body.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Attr is a single attribute. Prefixed names (xlink:href, xml:lang) keep their prefix.
type Attr struct {
	Name  string
	Value string
}

// Node is a node of the item body markup tree. QTI element and attribute
// names are normalized to their QTI 2 camelCase spelling; other (XHTML, SVG,
// MathML) names are kept as written.
type Node struct {
	Type     NodeType
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
	QTI      bool // Element belongs to the QTI vocabulary
	Location Location
}

// Attr returns an attribute value and whether it was present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns an attribute value, or def when absent.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// IsElement returns true if the node is an element named name.
func (n *Node) IsElement(name string) bool {
	return n.Type == ElementNode && n.Name == name
}

// TextContent returns the concatenated text of the node and its descendants.
func (n *Node) TextContent() string {
	var sb strings.Builder
	Inspect(n, func(c *Node) bool {
		if c.Type == TextNode {
			sb.WriteString(c.Text)
		}
		return true
	})
	return sb.String()
}

// Inspect traverses the tree in depth-first document order, calling fn for
// each node. Children are skipped when fn returns false.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Inspect(c, fn)
	}
}

// KebabName returns the QTI 3 spelling of a normalized QTI element name,
// e.g. choiceInteraction becomes qti-choice-interaction.
func KebabName(name string) string {
	var sb strings.Builder
	sb.WriteString("qti-")
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
