package callgraph

import (
	"github.com/google/uuid"

	"github.com/vallerance/no-code/internal/syntax"
)

// walkContext is what a node inherits from its parent.
type walkContext struct {
	def   *DeclaredDefinition
	block *Block
}

// walk visits n and its named children. It returns the calls made beneath
// n that belong to the enclosing definition; calls inside a nested
// definition stay with that definition.
func (s *Session) walk(n *syntax.Node, ctx walkContext) []*Call {
	def := ctx.def
	var (
		calls     []*Call
		blockNode *syntax.Node
	)

	switch {
	case n.Kind == "call_expression":
		if ctx.def != nil {
			if c := s.visitCall(n, ctx.block); c != nil {
				calls = append(calls, c)
			}
		}
	case syntax.IsFunction(n):
		if d := s.resolve(n); d != nil {
			def = d
		}
	case n.Kind == "statement_block":
		blockNode = n
	case n.Kind == "export_statement":
		s.visitExport(n)
	}

	nested := def != nil && def != ctx.def
	block := ctx.block
	if nested {
		block = def.Block
	}

	// A function body is the definition's root block. Any other
	// statement_block under a definition opens a nested block.
	opened := false
	if blockNode != nil && def != nil && ctx.block != nil && ctx.block.Node != blockNode {
		block = &Block{
			Key:    KeyOf(blockNode),
			ID:     uuid.NewString(),
			Node:   blockNode,
			Owner:  def.key,
			Parent: ctx.block.Key,
			parent: ctx.block,
		}
		opened = true
	}

	var run *SyntheticDefinition
	for _, child := range n.NamedChildren() {
		childCalls := s.walk(child, walkContext{def: def, block: block})
		if def == nil {
			continue
		}
		if !nested {
			calls = append(calls, childCalls...)
		}
		if blockNode == nil {
			continue
		}
		if len(childCalls) > 0 {
			run = nil
			continue
		}
		if run == nil {
			run = s.openRun(child, block)
		}
		run.Nodes = append(run.Nodes, child)
	}

	if blockNode != nil && def != nil {
		s.collapse(block)
		if opened && len(block.Nodes) > 0 {
			ctx.block.Nodes = append(ctx.block.Nodes, block)
			s.graph.addBlock(block)
		}
	}
	return calls
}

// visitCall records a call site in block. Calls that resolve to nothing
// and pass no callbacks are dropped.
func (s *Session) visitCall(n *syntax.Node, block *Block) *Call {
	callbacks, positions := s.resolveCallbacks(n)
	target, param := s.resolveCallee(n)

	call := &Call{
		Key:          KeyOf(n),
		ID:           uuid.NewString(),
		Node:         n,
		Callbacks:    callbacks,
		CallbackArgs: positions,
		Block:        block.Key,
		owner:        block,
	}
	switch {
	case target != nil:
		call.Target = target
		s.bind(target.Key(), positions, callbacks)
	case param != nil:
		call.Param = param
		s.pending = append(s.pending, call)
	case len(callbacks) > 0:
		call.Target = s.callSynthetic(n, callbacks)
	default:
		return nil
	}
	block.Nodes = append(block.Nodes, call)
	return call
}

func (s *Session) callSynthetic(n *syntax.Node, callbacks []Definition) *SyntheticDefinition {
	syn := &SyntheticDefinition{
		key:       KeyOf(n),
		id:        uuid.NewString(),
		Origin:    OriginCall,
		Nodes:     []*syntax.Node{n},
		Callbacks: callbacks,
	}
	s.graph.add(syn)
	return syn
}

// openRun starts a synthetic definition for a run of statements beginning
// at first, and records its wrapper call in block.
func (s *Session) openRun(first *syntax.Node, block *Block) *SyntheticDefinition {
	syn := &SyntheticDefinition{
		key:    runKey(first),
		id:     uuid.NewString(),
		Origin: OriginRun,
	}
	s.graph.add(syn)
	block.Nodes = append(block.Nodes, &Call{
		Key:    syn.key,
		ID:     uuid.NewString(),
		Node:   first,
		Target: syn,
		Block:  block.Key,
		owner:  block,
	})
	return syn
}

// collapse removes the only node of block when it carries nothing: a run
// wrapper, or an empty nested block.
func (s *Session) collapse(block *Block) {
	if len(block.Nodes) != 1 {
		return
	}
	switch only := block.Nodes[0].(type) {
	case *Call:
		if !only.IsRun() {
			return
		}
		s.graph.remove(only.Target.Key())
	case *Block:
		if len(only.Nodes) > 0 {
			return
		}
		s.graph.removeBlock(only.Key)
	}
	block.Nodes = block.Nodes[:0]
}

// visitExport records the function-valued exports of an export statement
// in the file's export table.
func (s *Session) visitExport(n *syntax.Node) {
	exports, unsupported := syntax.ExportedNames(n)
	for _, u := range unsupported {
		s.report(u.Node, u.Reason)
	}
	st := s.files.Peek(n.File.Path)
	for _, e := range exports {
		if !syntax.IsFunction(e.Decl) && syntax.FunctionValue(e.Decl) == nil {
			continue
		}
		if def := s.resolve(e.Decl); def != nil {
			st.Export(e.Name, def)
		}
	}
}
