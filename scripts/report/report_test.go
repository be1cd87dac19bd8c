package report_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nocode "github.com/vallerance/no-code"
	"github.com/vallerance/no-code/scripts"
)

type testEnv struct {
	engine *nocode.Engine
	out    *bytes.Buffer
	root   string
	t      *testing.T
}

// newTestEnv builds a copy of the shared testdata project with the
// embedded scripts.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.CopyFS(root, os.DirFS(filepath.Join("..", "..", "testdata", "project"))))

	var out bytes.Buffer
	e, err := nocode.New(filepath.Join(t.TempDir(), "graph.db"),
		nocode.WithScriptsFS(scripts.FS),
		nocode.WithOutput(&out),
	)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.Build(context.Background(), root)
	require.NoError(t, err)
	return &testEnv{engine: e, out: &out, root: root, t: t}
}

func (e *testEnv) run(name string) []string {
	e.t.Helper()
	e.out.Reset()
	require.NoError(e.t, e.engine.RunScript(context.Background(), filepath.Join("report", name), nil))
	return strings.Split(strings.TrimSuffix(e.out.String(), "\n"), "\n")
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	lines := env.run("summary")

	require.GreaterOrEqual(t, len(lines), 13)
	assert.Equal(t, []string{
		"files",
		"  done 3",
		"  skipped 1",
		"definitions",
		"  declared 5",
		"  synthetic 1",
		"most called",
		"  format 2",
		"  <anonymous> 1",
		"  on 1",
		"  shout 1",
		"diagnostics",
	}, lines[:12])

	missing := filepath.Join(env.root, "src", "main.ts") + ` (11,3): No declaration for "missing".`
	assert.Contains(t, lines[12:], missing)
}

func TestDot(t *testing.T) {
	env := newTestEnv(t)
	lines := env.run("dot")

	require.NotEmpty(t, lines)
	assert.Equal(t, "digraph calls {", lines[0])
	assert.Equal(t, "}", lines[len(lines)-1])

	q := env.engine.Query()
	on, err := q.DefinitionsByName("on")
	require.NoError(t, err)
	require.Len(t, on, 1)
	calls, err := q.Callees(on[0].Key)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	assert.Contains(t, lines, fmt.Sprintf("  %q -> %q [style=dashed];", on[0].Key, calls[0].CalleeKey))
	assert.Contains(t, lines, fmt.Sprintf("  %q [label=%q, shape=box];", on[0].Key, "on"))

	var notes int
	for _, l := range lines {
		if strings.HasSuffix(l, "shape=note];") {
			notes++
		}
	}
	assert.Equal(t, 1, notes, "one synthetic run")
}
