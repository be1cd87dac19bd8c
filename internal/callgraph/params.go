package callgraph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// linkParameters resolves calls whose callee is a parameter. Each such
// call is bound to every distinct callback passed at that parameter
// position anywhere in the program: the first binding reuses the call,
// further ones are inserted right after it. Calls that nothing was bound
// to keep their callbacks behind a synthetic target, or are dropped.
func (s *Session) linkParameters() {
	for _, call := range s.pending {
		block := call.owner
		i := slices.Index(block.Nodes, ParsedNode(call))
		if i < 0 {
			continue
		}
		bound := s.bindings[call.Param.Owner][call.Param.Index]
		switch {
		case len(bound) > 0:
			call.Target = bound[0]
			extra := make([]ParsedNode, 0, len(bound)-1)
			for j, cb := range bound[1:] {
				extra = append(extra, &Call{
					Key:          Key(fmt.Sprintf("%s#%d", call.Key, j+2)),
					ID:           uuid.NewString(),
					Node:         call.Node,
					Target:       cb,
					Callbacks:    call.Callbacks,
					CallbackArgs: call.CallbackArgs,
					Block:        call.Block,
					Param:        call.Param,
					owner:        block,
				})
			}
			block.Nodes = slices.Insert(block.Nodes, i+1, extra...)
		case len(call.Callbacks) > 0:
			call.Target = s.callSynthetic(call.Node, call.Callbacks)
		default:
			s.report(call.Node, "No callback is bound to this parameter.")
			block.Nodes = slices.Delete(block.Nodes, i, i+1)
			s.prune(block)
		}
	}
	s.pending = nil
}

// prune collapses block after a removal and detaches it from its parent
// once it is empty.
func (s *Session) prune(block *Block) {
	for block != nil {
		s.collapse(block)
		if len(block.Nodes) > 0 || block.parent == nil {
			return
		}
		parent := block.parent
		if i := slices.Index(parent.Nodes, ParsedNode(block)); i >= 0 {
			parent.Nodes = slices.Delete(parent.Nodes, i, i+1)
		}
		s.graph.removeBlock(block.Key)
		block = parent
	}
}
