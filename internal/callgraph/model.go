package callgraph

import (
	"fmt"
	"strings"

	"github.com/vallerance/no-code/internal/syntax"
)

// Key is the stable identity of a graph node: file path, byte range and
// node kind of the syntax it was built from.
type Key string

// KeyOf returns the stable key of a syntax node.
func KeyOf(n *syntax.Node) Key {
	return Key(fmt.Sprintf("%s:%d:%d:%s", n.File.Path, n.Start, n.End, n.Kind))
}

// runKey is the key of the synthetic definition for a statement run that
// starts at first. It never collides with a declaration at the same node.
func runKey(first *syntax.Node) Key {
	return KeyOf(first) + ":run"
}

// Variant tags the two kinds of Definition.
type Variant string

const (
	Declared  Variant = "declared"
	Synthetic Variant = "synthetic"
)

// Definition is a node of the call graph.
type Definition interface {
	Key() Key
	ID() string
	Variant() Variant
	// Name is a display name, "<anonymous>" when the syntax has none.
	Name() string
	// Node is the syntax the definition is anchored to.
	Node() *syntax.Node
}

// DeclaredDefinition is backed by a function-like declaration.
type DeclaredDefinition struct {
	key Key
	id  string

	// Decl is the anchor: the function node itself, or the variable
	// declarator a function expression is bound to.
	Decl *syntax.Node
	// Function is the function-like node.
	Function *syntax.Node
	// Body is the function body, a statement_block or an expression.
	Body  *syntax.Node
	Block *Block
}

func (d *DeclaredDefinition) Key() Key            { return d.key }
func (d *DeclaredDefinition) ID() string          { return d.id }
func (d *DeclaredDefinition) Variant() Variant    { return Declared }
func (d *DeclaredDefinition) Node() *syntax.Node { return d.Decl }

func (d *DeclaredDefinition) Name() string {
	if name := syntax.Name(d.Decl); name != "" {
		return name
	}
	// Function values take the name of the slot they are stored in.
	if p := d.Decl.Parent; p != nil {
		switch p.Kind {
		case "pair", "public_field_definition", "field_definition":
			if name := syntax.Name(p); name != "" {
				return name
			}
		case "assignment_expression":
			if left := p.Field("left"); left != nil {
				return left.Text()
			}
		}
	}
	return "<anonymous>"
}

// Origin says why a synthetic definition exists.
type Origin string

const (
	// OriginRun groups a contiguous run of statements without calls.
	OriginRun Origin = "run"
	// OriginCall stands in for an unresolvable callee that was passed
	// callbacks.
	OriginCall Origin = "call"
)

// SyntheticDefinition has no declaration of its own.
type SyntheticDefinition struct {
	key Key
	id  string

	Origin Origin
	// Nodes are the covered statements, or the call expression.
	Nodes []*syntax.Node
	// Callbacks are set for OriginCall.
	Callbacks []Definition
}

func (d *SyntheticDefinition) Key() Key         { return d.key }
func (d *SyntheticDefinition) ID() string       { return d.id }
func (d *SyntheticDefinition) Variant() Variant { return Synthetic }

func (d *SyntheticDefinition) Node() *syntax.Node {
	if len(d.Nodes) == 0 {
		return nil
	}
	return d.Nodes[0]
}

func (d *SyntheticDefinition) Name() string {
	if d.Origin == OriginCall && len(d.Nodes) > 0 {
		if fn := d.Nodes[0].Field("function"); fn != nil {
			return fn.Text()
		}
	}
	return d.Label()
}

// Label is the first 20 characters of the first covered node, with
// whitespace runs folded.
func (d *SyntheticDefinition) Label() string {
	n := d.Node()
	if n == nil {
		return ""
	}
	text := strings.Join(strings.Fields(n.Text()), " ")
	if r := []rune(text); len(r) > 20 {
		text = string(r[:20])
	}
	return text
}

// ParsedNode is an element of a Block: a *Call or a nested *Block.
type ParsedNode interface {
	NodeKey() Key
	parsedNode()
}

// Block is the ordered record of one lexical scope.
type Block struct {
	Key Key
	ID  string
	// Node is the statement_block, or the expression body of an arrow.
	Node *syntax.Node
	// Owner is the key of the definition the block belongs to.
	Owner Key
	// Parent is the enclosing block, empty for a definition's root block.
	Parent Key
	Nodes  []ParsedNode

	parent *Block
}

func (b *Block) NodeKey() Key { return b.Key }
func (b *Block) parsedNode()  {}

// Calls returns every call in the block tree in document order.
func (b *Block) Calls() []*Call {
	var out []*Call
	for _, n := range b.Nodes {
		switch n := n.(type) {
		case *Call:
			out = append(out, n)
		case *Block:
			out = append(out, n.Calls()...)
		}
	}
	return out
}

// ParamRef identifies a parameter of a declared definition.
type ParamRef struct {
	Owner Key
	Index int
}

// Call is one call site.
type Call struct {
	Key Key
	ID  string
	// Node is the call expression, or the first statement of a run.
	Node   *syntax.Node
	Target Definition
	// Callbacks are the resolved function-valued arguments, and
	// CallbackArgs their argument positions.
	Callbacks    []Definition
	CallbackArgs []int
	// Block is the key of the owning block.
	Block Key
	// Param is set when the callee is a parameter of the caller and the
	// target was bound from the callbacks passed for it.
	Param *ParamRef

	owner *Block
}

func (c *Call) NodeKey() Key { return c.Key }
func (c *Call) parsedNode()  {}

// IsRun reports whether c wraps a run of plain statements.
func (c *Call) IsRun() bool {
	s, ok := c.Target.(*SyntheticDefinition)
	return ok && s.Origin == OriginRun
}

// FileState summarizes one file after a build.
type FileState struct {
	Path     string
	Language string
	Status   string
	Exports  []string
}

// Graph is the result of one build. It is read-only once returned.
type Graph struct {
	defs   map[Key]Definition
	order  []Key
	blocks map[Key]*Block
	border []Key

	files       []FileState
	diagnostics []Diagnostic
}

func newGraph() *Graph {
	return &Graph{
		defs:   make(map[Key]Definition),
		blocks: make(map[Key]*Block),
	}
}

func (g *Graph) add(d Definition) {
	if _, dup := g.defs[d.Key()]; !dup {
		g.order = append(g.order, d.Key())
	}
	g.defs[d.Key()] = d
}

func (g *Graph) remove(k Key) {
	delete(g.defs, k)
}

func (g *Graph) addBlock(b *Block) {
	if _, dup := g.blocks[b.Key]; !dup {
		g.border = append(g.border, b.Key)
	}
	g.blocks[b.Key] = b
}

func (g *Graph) removeBlock(k Key) {
	delete(g.blocks, k)
}

// Definition returns the definition stored under k.
func (g *Graph) Definition(k Key) (Definition, bool) {
	d, ok := g.defs[k]
	return d, ok
}

// Definitions returns definitions in discovery order.
func (g *Graph) Definitions() []Definition {
	out := make([]Definition, 0, len(g.defs))
	for _, k := range g.order {
		if d, ok := g.defs[k]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Declared returns only the declared definitions, in discovery order.
func (g *Graph) Declared() []*DeclaredDefinition {
	var out []*DeclaredDefinition
	for _, d := range g.Definitions() {
		if dd, ok := d.(*DeclaredDefinition); ok {
			out = append(out, dd)
		}
	}
	return out
}

// Map returns a copy of the key to definition mapping.
func (g *Graph) Map() map[Key]Definition {
	out := make(map[Key]Definition, len(g.defs))
	for k, d := range g.defs {
		out[k] = d
	}
	return out
}

// Len is the number of definitions.
func (g *Graph) Len() int {
	return len(g.defs)
}

// Block returns the block stored under k.
func (g *Graph) Block(k Key) (*Block, bool) {
	b, ok := g.blocks[k]
	return b, ok
}

// Blocks returns every materialized block in creation order.
func (g *Graph) Blocks() []*Block {
	out := make([]*Block, 0, len(g.blocks))
	for _, k := range g.border {
		if b, ok := g.blocks[k]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Calls returns the calls made by the declared definition k.
func (g *Graph) Calls(k Key) []*Call {
	d, ok := g.defs[k].(*DeclaredDefinition)
	if !ok {
		return nil
	}
	return d.Block.Calls()
}

// Files returns the state of every program file, sorted by path.
func (g *Graph) Files() []FileState {
	return g.files
}

// Diagnostics returns everything that could not be resolved.
func (g *Graph) Diagnostics() []Diagnostic {
	return g.diagnostics
}
