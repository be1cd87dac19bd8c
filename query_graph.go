package nocode

import (
	"fmt"
	"sort"
)

// maxTraversalDepth caps transitive queries.
const maxTraversalDepth = 100

// CallGraph is the subgraph reachable from a root definition. All calls
// are loaded in one query and traversed in memory.
type CallGraph struct {
	Root  string          // root definition key
	Nodes []CallGraphNode // all definitions reachable within depth, root first
	Edges []CallGraphEdge // all edges between nodes
	Depth int             // actual max depth reached (may be < maxDepth if graph is shallow)
}

// CallGraphNode is a definition with its BFS distance from the root.
type CallGraphNode struct {
	Definition *Definition
	Depth      int
}

// CallGraphEdge is one call between two nodes of a CallGraph.
type CallGraphEdge struct {
	CallKey   string
	CallerKey string
	CalleeKey string
	File      string
	Line      int
	Col       int
	Parameter *int
}

// callGraphData holds the bulk-loaded adjacency maps.
type callGraphData struct {
	forward map[int64][]*Call // caller -> calls
	reverse map[int64][]*Call // callee -> calls
}

func (q *QueryBuilder) loadCallGraph() (*callGraphData, error) {
	calls, err := q.store.AllCalls()
	if err != nil {
		return nil, fmt.Errorf("load calls: %w", err)
	}
	data := &callGraphData{
		forward: make(map[int64][]*Call),
		reverse: make(map[int64][]*Call),
	}
	for _, c := range calls {
		data.forward[c.CallerID] = append(data.forward[c.CallerID], c)
		data.reverse[c.CalleeID] = append(data.reverse[c.CalleeID], c)
	}
	return data, nil
}

// TransitiveCallers returns every definition that reaches key through
// calls, up to maxDepth hops. maxDepth of 0 returns only the root node.
// Negative returns an error; depths above 100 are capped. Returns nil, nil
// if key does not exist.
func (q *QueryBuilder) TransitiveCallers(key string, maxDepth int) (*CallGraph, error) {
	g, err := q.transitive(key, maxDepth, false)
	if err != nil {
		return nil, fmt.Errorf("transitive callers: %w", err)
	}
	return g, nil
}

// TransitiveCallees returns every definition reachable from key through
// calls, up to maxDepth hops. Same depth rules as TransitiveCallers.
func (q *QueryBuilder) TransitiveCallees(key string, maxDepth int) (*CallGraph, error) {
	g, err := q.transitive(key, maxDepth, true)
	if err != nil {
		return nil, fmt.Errorf("transitive callees: %w", err)
	}
	return g, nil
}

func (q *QueryBuilder) transitive(key string, maxDepth int, forward bool) (*CallGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be non-negative, got %d", maxDepth)
	}
	maxDepth = min(maxDepth, maxTraversalDepth)

	root, err := q.store.DefinitionByKey(key)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	result := &CallGraph{
		Root:  key,
		Nodes: []CallGraphNode{{Definition: root, Depth: 0}},
		Edges: []CallGraphEdge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data, err := q.loadCallGraph()
	if err != nil {
		return nil, err
	}
	adjacent := data.reverse
	next := func(c *Call) int64 { return c.CallerID }
	if forward {
		adjacent = data.forward
		next = func(c *Call) int64 { return c.CalleeID }
	}

	visited := map[int64]int{root.ID: 0}
	type bfsEntry struct {
		id    int64
		depth int
	}
	queue := []bfsEntry{{id: root.ID}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}
		for _, c := range adjacent[current.id] {
			id := next(c)
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = current.depth + 1
			result.Depth = max(result.Depth, current.depth+1)
			queue = append(queue, bfsEntry{id: id, depth: current.depth + 1})
		}
	}

	ids := make([]int64, 0, len(visited)-1)
	for id := range visited {
		if id != root.ID {
			ids = append(ids, id)
		}
	}
	defs, err := q.store.DefinitionsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	paths := map[int64]string{root.ID: root.Path}
	for _, d := range defs {
		paths[d.ID] = d.Path
	}
	sort.SliceStable(defs, func(i, j int) bool { return visited[defs[i].ID] < visited[defs[j].ID] })
	for _, d := range defs {
		result.Nodes = append(result.Nodes, CallGraphNode{Definition: d, Depth: visited[d.ID]})
	}

	// An edge belongs to the subgraph when both ends were visited.
	for id := range visited {
		for _, c := range data.forward[id] {
			if _, ok := visited[c.CalleeID]; !ok {
				continue
			}
			result.Edges = append(result.Edges, CallGraphEdge{
				CallKey:   c.Key,
				CallerKey: c.CallerKey,
				CalleeKey: c.CalleeKey,
				File:      paths[c.CallerID],
				Line:      c.Line,
				Col:       c.Col,
				Parameter: c.Parameter,
			})
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool { return result.Edges[i].CallKey < result.Edges[j].CallKey })
	return result, nil
}
