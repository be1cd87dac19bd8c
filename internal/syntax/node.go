package syntax

import "fmt"

// fieldNames are the tree-sitter field names the binder and the call-graph
// walker look up. Other fields are not recorded.
var fieldNames = []string{
	"name", "body", "value", "function", "arguments", "object", "property",
	"parameters", "parameter", "pattern", "source", "declaration", "alias",
	"left", "key",
}

// Node is an owned copy of a tree-sitter node. Unlike *sitter.Node it
// stays valid after the tree is closed, and it knows its parent and file.
type Node struct {
	Kind  string
	Named bool
	// Start and End are byte offsets into File.Source.
	Start, End uint32
	// Row and Column are 0-based, as are EndRow and EndColumn.
	Row, Column       int
	EndRow, EndColumn int

	Parent   *Node
	Children []*Node
	File     *File

	fields map[string]*Node
}

// Field returns the child stored under a tree-sitter field name.
func (n *Node) Field(name string) *Node {
	if n == nil {
		return nil
	}
	return n.fields[name]
}

// NamedChildren returns the named children, skipping comments.
func (n *Node) NamedChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Named && c.Kind != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// FirstNamed returns the first named child of the given kind.
func (n *Node) FirstNamed(kind string) *Node {
	for _, c := range n.Children {
		if c.Named && c.Kind == kind {
			return c
		}
	}
	return nil
}

// HasToken reports whether an anonymous child token such as "default" or
// "*" is present.
func (n *Node) HasToken(token string) bool {
	for _, c := range n.Children {
		if !c.Named && c.Kind == token {
			return true
		}
	}
	return false
}

// Text returns the node's source text.
func (n *Node) Text() string {
	return string(n.File.Source[n.Start:n.End])
}

// Line is the 1-based start line.
func (n *Node) Line() int { return n.Row + 1 }

// Col is the 1-based start column.
func (n *Node) Col() int { return n.Column + 1 }

func (n *Node) EndLine() int { return n.EndRow + 1 }
func (n *Node) EndCol() int  { return n.EndColumn + 1 }

// Ancestor returns the nearest proper ancestor of one of the given kinds.
func (n *Node) Ancestor(kinds ...string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, k := range kinds {
			if p.Kind == k {
				return p
			}
		}
	}
	return nil
}

// Is reports whether n and other are the same syntax location.
func (n *Node) Is(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.File == other.File && n.Start == other.Start && n.End == other.End && n.Kind == other.Kind
}

func (n *Node) String() string {
	return fmt.Sprintf("%s@%s:%d:%d", n.Kind, n.File.Path, n.Line(), n.Col())
}

// Unwrap strips parentheses and type-only wrappers such as "x as T" or
// "x!" from an expression.
func Unwrap(n *Node) *Node {
	for n != nil {
		switch n.Kind {
		case "parenthesized_expression", "as_expression", "satisfies_expression",
			"non_null_expression", "type_assertion":
			named := n.NamedChildren()
			if len(named) == 0 {
				return n
			}
			if n.Kind == "type_assertion" {
				n = named[len(named)-1]
			} else {
				n = named[0]
			}
		default:
			return n
		}
	}
	return nil
}

// IsFunction reports whether n is a function-like node that can carry a
// body: declarations, expressions, arrows and methods.
func IsFunction(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case "function_declaration", "generator_function_declaration",
		"function_expression", "function", "generator_function",
		"arrow_function", "method_definition":
		return true
	}
	return false
}

// IsFunctionExpression reports whether n is an anonymous-capable function
// value (expression or arrow).
func IsFunctionExpression(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case "function_expression", "function", "generator_function", "arrow_function":
		return true
	}
	return false
}

// FunctionValue returns the function expression bound by a variable
// declarator, or nil.
func FunctionValue(declarator *Node) *Node {
	if declarator == nil || declarator.Kind != "variable_declarator" {
		return nil
	}
	v := Unwrap(declarator.Field("value"))
	if IsFunctionExpression(v) {
		return v
	}
	return nil
}

// Name returns a display name for a declaration-like node, or "".
func Name(n *Node) string {
	if n == nil {
		return ""
	}
	if name := n.Field("name"); name != nil {
		return name.Text()
	}
	switch n.Kind {
	case "identifier", "property_identifier", "shorthand_property_identifier":
		return n.Text()
	case "pair":
		if k := n.Field("key"); k != nil {
			return k.Text()
		}
	}
	return ""
}
