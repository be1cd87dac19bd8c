package nocode

import (
	"github.com/vallerance/no-code/internal/callgraph"
	"github.com/vallerance/no-code/internal/store"
	"github.com/vallerance/no-code/internal/syntax"
)

// graphBatch flattens a built graph into store rows. Blocks are emitted
// parent first by walking each definition's block tree; calls are numbered
// per caller in document order.
func graphBatch(g *callgraph.Graph, hashes map[string]string) *store.Batch {
	b := store.NewBatch()

	for _, f := range g.Files() {
		b.AddFile(store.File{
			Path:     f.Path,
			Language: f.Language,
			Status:   f.Status,
			Hash:     hashes[f.Path],
			Exports:  f.Exports,
		})
	}

	for _, d := range g.Definitions() {
		b.AddDefinition(definitionRow(d))
	}

	for _, d := range g.Declared() {
		if d.Block == nil {
			continue
		}
		addBlocks(b, d.Block)
		for i, c := range d.Block.Calls() {
			if c.Target == nil {
				continue
			}
			row := store.Call{
				Key:       string(c.Key),
				UUID:      c.ID,
				BlockKey:  string(c.Block),
				CallerKey: string(d.Key()),
				CalleeKey: string(c.Target.Key()),
				Ordinal:   i,
				Line:      c.Node.Line(),
				Col:       c.Node.Col(),
			}
			if c.Param != nil {
				idx := c.Param.Index
				row.Parameter = &idx
			}
			b.AddCall(row)
			for j, cb := range c.Callbacks {
				b.AddCallback(store.Callback{
					CallKey:       string(c.Key),
					DefinitionKey: string(cb.Key()),
					Position:      c.CallbackArgs[j],
				})
			}
		}
	}

	for _, d := range g.Diagnostics() {
		b.AddDiagnostic(store.Diagnostic{
			Path:     d.File,
			Line:     d.Line,
			Col:      d.Col,
			Severity: string(d.Severity),
			Message:  d.Message,
		})
	}
	return b
}

func definitionRow(d callgraph.Definition) store.Definition {
	row := store.Definition{
		Key:     string(d.Key()),
		UUID:    d.ID(),
		Variant: string(d.Variant()),
		Name:    d.Name(),
	}
	first, last := d.Node(), d.Node()
	if s, ok := d.(*callgraph.SyntheticDefinition); ok {
		row.Origin = string(s.Origin)
		if len(s.Nodes) > 0 {
			last = s.Nodes[len(s.Nodes)-1]
		}
	}
	if first == nil {
		return row
	}
	row.Path = first.File.Path
	row.Kind = first.Kind
	row.StartLine, row.StartCol = first.Line(), first.Col()
	row.EndLine, row.EndCol = last.EndLine(), last.EndCol()
	return row
}

func addBlocks(b *store.Batch, bl *callgraph.Block) {
	b.AddBlock(store.Block{
		Key:           string(bl.Key),
		UUID:          bl.ID,
		DefinitionKey: string(bl.Owner),
		ParentKey:     string(bl.Parent),
		StartLine:     line(bl.Node),
		StartCol:      col(bl.Node),
		EndLine:       endLine(bl.Node),
		EndCol:        endCol(bl.Node),
	})
	for _, n := range bl.Nodes {
		if child, ok := n.(*callgraph.Block); ok {
			addBlocks(b, child)
		}
	}
}

func line(n *syntax.Node) int {
	if n == nil {
		return 0
	}
	return n.Line()
}

func col(n *syntax.Node) int {
	if n == nil {
		return 0
	}
	return n.Col()
}

func endLine(n *syntax.Node) int {
	if n == nil {
		return 0
	}
	return n.EndLine()
}

func endCol(n *syntax.Node) int {
	if n == nil {
		return 0
	}
	return n.EndCol()
}
