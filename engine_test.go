package nocode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// copyProject copies testdata/project into a fresh directory outside any
// git checkout, so discovery walks the filesystem.
func copyProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(filepath.Join("testdata", "project"))))
	return dir
}

// builtEngine builds a copy of testdata/project.
func builtEngine(t *testing.T, opts ...Option) (*Engine, *BuildResult, string) {
	t.Helper()
	root := copyProject(t)
	e := newTestEngine(t, opts...)
	res, err := e.Build(context.Background(), root)
	require.NoError(t, err)
	return e, res, root
}

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	e := newTestEngine(t)
	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())
	require.NotNil(t, e.Query())
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	e, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestOptions(t *testing.T) {
	e := newTestEngine(t, WithParallel(false), WithSkip("dist/"), WithConfigName("tsconfig.build.json"))
	require.NotNil(t, e.parallel)
	assert.False(t, *e.parallel)
	assert.Equal(t, []string{"dist/"}, e.skip)
	assert.Equal(t, "tsconfig.build.json", e.configName)
}

func TestBuild_Summary(t *testing.T) {
	_, res, root := builtEngine(t)

	assert.Equal(t, root, res.Root)
	assert.Equal(t, 4, res.Files)
	assert.Equal(t, 3, res.Parsed)
	assert.Equal(t, 1, res.Skipped, "src/generated is skipped by .nocode.yaml")
	assert.Equal(t, 6, res.Definitions)
	assert.Equal(t, 1, res.Synthetic)
	assert.Equal(t, 6, res.Calls)
	assert.NotEmpty(t, res.ProjectHash)
	require.NotNil(t, res.Graph)
	assert.Equal(t, res.Definitions, res.Graph.Len())
}

func TestBuild_FileStatuses(t *testing.T) {
	e, _, root := builtEngine(t)

	files, err := e.Query().Files()
	require.NoError(t, err)
	status := make(map[string]string, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		status[filepath.ToSlash(rel)] = f.Status
		assert.Equal(t, "typescript", f.Language)
	}
	assert.Equal(t, map[string]string{
		"src/generated/api.ts": "skipped",
		"src/lib/events.ts":    "done",
		"src/main.ts":          "done",
		"src/util.ts":          "done",
	}, status)
}

func TestBuild_ResolvesAliasedAndRelativeImports(t *testing.T) {
	e, _, _ := builtEngine(t)
	q := e.Query()

	main := definitionNamed(t, q, "main")
	calls, err := q.Callees(main.Key)
	require.NoError(t, err)

	var callees []string
	for _, c := range calls {
		d, err := q.Definition(c.CalleeKey)
		require.NoError(t, err)
		callees = append(callees, d.Name)
	}
	require.Len(t, callees, 3)
	assert.Equal(t, "format", callees[0], "format comes from @/util")
	assert.Equal(t, "on", callees[1], "on comes from ./lib/events")
	assert.Equal(t, "fetchAll();", callees[2], "the trailing run is labeled by its first statement")
}

func TestBuild_LinksCallbackParameters(t *testing.T) {
	e, _, _ := builtEngine(t)
	q := e.Query()

	on := definitionNamed(t, q, "on")
	calls, err := q.Callees(on.Key)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Parameter)
	assert.Equal(t, 0, *calls[0].Parameter)

	target, err := q.Definition(calls[0].CalleeKey)
	require.NoError(t, err)
	assert.Equal(t, "arrow_function", target.Kind)

	sites, err := q.Callbacks(target.Key)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, on.Key, sites[0].Call.CalleeKey)
	assert.Equal(t, 0, sites[0].Position)
}

func TestBuild_Diagnostics(t *testing.T) {
	_, res, root := builtEngine(t)

	var messages []string
	for _, d := range res.Diagnostics {
		messages = append(messages, d.String())
	}
	assert.Contains(t, messages, filepath.Join(root, "src", "main.ts")+` (11,3): No declaration for "missing".`)
}

func TestBuild_ReplacesPreviousGraph(t *testing.T) {
	e, first, root := builtEngine(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.ts"), []byte("export function main() {}\n"), 0o644))
	second, err := e.Build(context.Background(), root)
	require.NoError(t, err)

	assert.Less(t, second.Definitions, first.Definitions)
	stats, err := e.Query().Stats()
	require.NoError(t, err)
	assert.Equal(t, second.Definitions, stats.Definitions)
	assert.Equal(t, second.Calls, stats.Calls)
	assert.Equal(t, len(second.Diagnostics), stats.Diagnostics)
}

func TestBuild_SerialMatchesParallel(t *testing.T) {
	_, parallel, _ := builtEngine(t, WithParallel(true))
	_, serial, _ := builtEngine(t, WithParallel(false))

	assert.Equal(t, parallel.Definitions, serial.Definitions)
	assert.Equal(t, parallel.Calls, serial.Calls)
	assert.Equal(t, len(parallel.Diagnostics), len(serial.Diagnostics))
}

func TestBuild_WithSkip(t *testing.T) {
	_, res, _ := builtEngine(t, WithSkip("src/lib/"))

	assert.Equal(t, 2, res.Skipped)
	for _, d := range res.Graph.Declared() {
		assert.NotEqual(t, "on", d.Name())
	}
}

func TestBuild_NoCompilerConfig(t *testing.T) {
	root := copyProject(t)
	require.NoError(t, os.Remove(filepath.Join(root, "tsconfig.json")))

	e := newTestEngine(t)
	res, err := e.Build(context.Background(), root)
	require.NoError(t, err)

	// Without the alias @/util is a package specifier outside the
	// program, so main no longer calls format.
	q := e.Query()
	main := definitionNamed(t, q, "main")
	calls, err := q.Callees(main.Key)
	require.NoError(t, err)
	var callees []string
	for _, c := range calls {
		d, err := q.Definition(c.CalleeKey)
		require.NoError(t, err)
		callees = append(callees, d.Name)
	}
	assert.NotContains(t, callees, "format")
	assert.Contains(t, callees, "on")
	assert.Greater(t, res.Synthetic, 1)
}

func TestBuild_MissingRoot(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Build(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestFresh(t *testing.T) {
	root := copyProject(t)
	e := newTestEngine(t)

	fresh, err := e.Fresh(root)
	require.NoError(t, err)
	assert.False(t, fresh, "nothing built yet")

	_, err = e.Build(context.Background(), root)
	require.NoError(t, err)
	fresh, err = e.Fresh(root)
	require.NoError(t, err)
	assert.True(t, fresh)

	// Skipped files are hashed by path only.
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "generated", "api.ts"), []byte("// regenerated\n"), 0o644))
	fresh, err = e.Fresh(root)
	require.NoError(t, err)
	assert.True(t, fresh)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util.ts"), []byte("export function format() {}\n"), 0o644))
	fresh, err = e.Fresh(root)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestFresh_ConfigChange(t *testing.T) {
	root := copyProject(t)
	e := newTestEngine(t)
	_, err := e.Build(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(`{"compilerOptions": {}}`), 0o644))
	fresh, err := e.Fresh(root)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestWalkListFiles_SkipsHiddenAndNodeModules(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"a.ts", "b.js", "c.tsx", "notes.md",
		".cache/x.ts", "node_modules/pkg/index.js", "sub/d.mjs",
	} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	paths, err := walkListFiles(root)
	require.NoError(t, err)

	var rels []string
	for _, p := range paths {
		rel, _ := filepath.Rel(root, p)
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"a.ts", "b.js", "c.tsx", "sub/d.mjs"}, rels)
}
