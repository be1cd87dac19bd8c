package nocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeDepths(g *CallGraph) map[string]int {
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.Definition.Key] = n.Depth
	}
	return out
}

func edgeKeys(g *CallGraph) []string {
	var out []string
	for _, e := range g.Edges {
		out = append(out, e.CallKey)
	}
	return out
}

func TestTransitiveCallees_Depth1MatchesDirectCallees(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	g, err := q.TransitiveCallees("a", 1)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "a", g.Root)
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, nodeDepths(g))
	assert.Equal(t, []string{"a>b"}, edgeKeys(g))
	assert.Equal(t, 1, g.Depth)
}

func TestTransitiveCallees_FollowsChainsAndCycles(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	g, err := q.TransitiveCallees("a", 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}, nodeDepths(g))
	assert.Equal(t, []string{"a>b", "b>c", "c>a", "c>d"}, edgeKeys(g))
	assert.Equal(t, 3, g.Depth, "depth stops at the longest path, not maxDepth")

	assert.Equal(t, "a", g.Nodes[0].Definition.Key, "root comes first")
	for i := 1; i < len(g.Nodes); i++ {
		assert.LessOrEqual(t, g.Nodes[i-1].Depth, g.Nodes[i].Depth)
	}
}

func TestTransitiveCallers_Depth2(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	g, err := q.TransitiveCallers("a", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "c": 1, "e": 1, "b": 2}, nodeDepths(g))
	assert.Equal(t, []string{"a>b", "b>c", "c>a", "e>a"}, edgeKeys(g))
	assert.Equal(t, 2, g.Depth)

	for _, e := range g.Edges {
		assert.Equal(t, "/p/chain.ts", e.File)
	}
}

func TestTransitive_Depth0ReturnsRootOnly(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	for _, fn := range []func(string, int) (*CallGraph, error){q.TransitiveCallers, q.TransitiveCallees} {
		g, err := fn("c", 0)
		require.NoError(t, err)
		require.Len(t, g.Nodes, 1)
		assert.Equal(t, "c", g.Nodes[0].Definition.Key)
		assert.Empty(t, g.Edges)
		assert.Equal(t, 0, g.Depth)
	}
}

func TestTransitive_LeafAndRoot(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	g, err := q.TransitiveCallees("d", 5)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)

	g, err = q.TransitiveCallers("e", 5)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
}

func TestTransitive_NonExistentKeyReturnsNil(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	g, err := q.TransitiveCallers("missing", 3)
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = q.TransitiveCallees("missing", 3)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestTransitive_NegativeDepthReturnsError(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	_, err := q.TransitiveCallers("a", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transitive callers")

	_, err = q.TransitiveCallees("a", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transitive callees")
}

func TestTransitive_MaxDepthCapped(t *testing.T) {
	t.Parallel()
	q := newChainQueryBuilder(t)

	g, err := q.TransitiveCallees("e", 1000)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"e": 0, "a": 1, "b": 2, "c": 3, "d": 4}, nodeDepths(g))
}
