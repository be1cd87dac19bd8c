package callgraph

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vallerance/no-code/internal/alias"
	"github.com/vallerance/no-code/internal/sourcefile"
	"github.com/vallerance/no-code/internal/syntax"
)

// newProgram parses sources keyed by absolute path into a program rooted
// at /proj. Files are added in path order.
func newProgram(t *testing.T, sources map[string]string) *syntax.Program {
	t.Helper()
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]*syntax.File, 0, len(paths))
	for _, p := range paths {
		f, err := syntax.ParseFile(context.Background(), p, []byte(sources[p]))
		require.NoError(t, err)
		files = append(files, f)
	}
	return syntax.NewProgram("/proj", files)
}

func build(t *testing.T, sources map[string]string, opts ...Option) *Graph {
	t.Helper()
	return NewSession(newProgram(t, sources), opts...).Build()
}

func findNode(n *syntax.Node, kind, text string) *syntax.Node {
	if n.Kind == kind && (text == "" || n.Text() == text) {
		return n
	}
	for _, c := range n.Children {
		if got := findNode(c, kind, text); got != nil {
			return got
		}
	}
	return nil
}

func declaredNamed(t *testing.T, g *Graph, name string) *DeclaredDefinition {
	t.Helper()
	for _, d := range g.Declared() {
		if d.Name() == name {
			return d
		}
	}
	require.Failf(t, "definition not found", "no declared definition named %q", name)
	return nil
}

func synthetics(g *Graph) []*SyntheticDefinition {
	var out []*SyntheticDefinition
	for _, d := range g.Definitions() {
		if s, ok := d.(*SyntheticDefinition); ok {
			out = append(out, s)
		}
	}
	return out
}

func targetNames(calls []*Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Target.Name())
	}
	return out
}

func TestBuild_CallbackThroughParameter(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `
function f() { g(() => {}); }
function g(cb) { cb(); }
`,
	})

	require.Equal(t, 3, g.Len())
	assert.Len(t, g.Declared(), 3)
	assert.Empty(t, synthetics(g))
	for k, d := range g.Map() {
		assert.Equal(t, k, d.Key())
	}

	f := declaredNamed(t, g, "f")
	gd := declaredNamed(t, g, "g")
	arrow := declaredNamed(t, g, "<anonymous>")

	fCalls := f.Block.Calls()
	require.Len(t, fCalls, 1)
	assert.Same(t, gd, fCalls[0].Target)
	require.Len(t, fCalls[0].Callbacks, 1)
	assert.Same(t, arrow, fCalls[0].Callbacks[0])
	assert.Equal(t, []int{0}, fCalls[0].CallbackArgs)
	assert.Equal(t, f.Block.Key, fCalls[0].Block)

	gCalls := gd.Block.Calls()
	require.Len(t, gCalls, 1)
	assert.Same(t, arrow, gCalls[0].Target)
	require.NotNil(t, gCalls[0].Param)
	assert.Equal(t, ParamRef{Owner: gd.Key(), Index: 0}, *gCalls[0].Param)
}

func TestResolveDeclaration_Idempotent(t *testing.T) {
	t.Parallel()

	p := newProgram(t, map[string]string{
		"/proj/src/a.ts": `export function f() {}
export const h = (x: number) => x;`,
		"/proj/src/b.ts": `import { f, h } from './a';
function main() { f(); h(1); }`,
	})
	s := NewSession(p)

	a, _ := p.File("/proj/src/a.ts")
	b, _ := p.File("/proj/src/b.ts")
	fn := findNode(a.Root, "function_declaration", "")

	first, err := s.ResolveDeclaration(fn)
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := s.ResolveDeclaration(fn)
	require.NoError(t, err)
	assert.Same(t, first, second)

	viaImport, err := s.ResolveDeclaration(findNode(b.Root, "import_specifier", "f"))
	require.NoError(t, err)
	assert.Same(t, first, viaImport)

	// The arrow and its declarator share one definition.
	arrow := findNode(a.Root, "arrow_function", "")
	byArrow, err := s.ResolveDeclaration(arrow)
	require.NoError(t, err)
	byDeclarator, err := s.ResolveDeclaration(arrow.Parent)
	require.NoError(t, err)
	assert.Same(t, byArrow, byDeclarator)
	assert.Equal(t, "h", byArrow.Name())
	assert.Equal(t, KeyOf(arrow.Parent), byArrow.Key())

	g := s.Build()
	main := declaredNamed(t, g, "main")
	assert.Equal(t, []string{"f", "h"}, targetNames(main.Block.Calls()))
	assert.Same(t, g, s.Build())
}

func TestResolveDeclaration_NotFunction(t *testing.T) {
	t.Parallel()

	p := newProgram(t, map[string]string{
		"/proj/src/a.ts": `const x = 5;
function f() { x(); }`,
	})
	s := NewSession(p)
	a, _ := p.File("/proj/src/a.ts")

	_, err := s.ResolveDeclaration(findNode(a.Root, "variable_declarator", ""))
	require.ErrorIs(t, err, ErrNotFunction)

	g := s.Build()
	f := declaredNamed(t, g, "f")
	assert.Empty(t, f.Block.Calls())
	for _, d := range g.Diagnostics() {
		assert.NotEqual(t, SeverityError, d.Severity, d.String())
	}
	require.NotEmpty(t, g.Diagnostics())
	assert.Contains(t, g.Diagnostics()[0].Message, `"x" is not callable`)
}

func TestBuild_ImportCycle(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `import { g } from './b';
export function f() { g(); }`,
		"/proj/src/b.ts": `import { f } from './a';
export function g() { f(); }`,
	})

	f := declaredNamed(t, g, "f")
	gd := declaredNamed(t, g, "g")
	assert.Equal(t, []string{"g"}, targetNames(f.Block.Calls()))
	assert.Equal(t, []string{"f"}, targetNames(gd.Block.Calls()))

	for _, fs := range g.Files() {
		assert.Equal(t, "done", fs.Status, fs.Path)
	}
}

func TestBuild_ImportCyclePartialExports(t *testing.T) {
	t.Parallel()

	// f is exported only after its body has been walked, so b sees an
	// incomplete export table for a.
	g := build(t, map[string]string{
		"/proj/src/a.ts": `import { g } from './b';
function f() { g(); }
export { f };`,
		"/proj/src/b.ts": `import { f } from './a';
export function g() { f(); }`,
	})

	gd := declaredNamed(t, g, "g")
	assert.Empty(t, gd.Block.Calls())

	var messages []string
	for _, d := range g.Diagnostics() {
		messages = append(messages, d.Message)
	}
	assert.Contains(t, messages, `Export "f" of /proj/src/a.ts is not available inside an import cycle.`)
}

func TestBuild_SyntheticForUnresolvedCallee(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `import { ext } from 'lib';
function f() { ext(() => {}); }
function k() { ext(1); }`,
	})

	syn := synthetics(g)
	require.Len(t, syn, 1)
	assert.Equal(t, OriginCall, syn[0].Origin)
	assert.Len(t, syn[0].Callbacks, 1)
	assert.Equal(t, "ext", syn[0].Name())

	f := declaredNamed(t, g, "f")
	calls := f.Block.Calls()
	require.Len(t, calls, 1)
	assert.Same(t, syn[0], calls[0].Target)

	k := declaredNamed(t, g, "k")
	assert.Empty(t, k.Block.Nodes)
}

func TestBuild_StatementRuns(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `
function f() {
  const a = 1;
  const b = 2;
  g();
  const c = 3;
}
function g() {}
`,
	})

	f := declaredNamed(t, g, "f")
	require.Len(t, f.Block.Nodes, 3)

	first, ok := f.Block.Nodes[0].(*Call)
	require.True(t, ok)
	require.True(t, first.IsRun())
	run := first.Target.(*SyntheticDefinition)
	assert.Len(t, run.Nodes, 2)
	assert.Equal(t, "const a = 1;", run.Label())

	middle := f.Block.Nodes[1].(*Call)
	assert.Equal(t, "g", middle.Target.Name())

	last := f.Block.Nodes[2].(*Call)
	assert.True(t, last.IsRun())
	assert.Len(t, synthetics(g), 2)
}

func TestBuild_CollapsesTrivialBlocks(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `
function f(x) { if (x) { x = 1; } }
function h(x) { if (x) { k(); } }
function k() {}
`,
	})

	f := declaredNamed(t, g, "f")
	assert.Empty(t, f.Block.Nodes)
	assert.Empty(t, synthetics(g))

	h := declaredNamed(t, g, "h")
	require.Len(t, h.Block.Nodes, 1)
	nested, ok := h.Block.Nodes[0].(*Block)
	require.True(t, ok)
	assert.Equal(t, h.Block.Key, nested.Parent)
	assert.Equal(t, h.Key(), nested.Owner)
	assert.Equal(t, []string{"k"}, targetNames(h.Block.Calls()))

	_, registered := g.Block(nested.Key)
	assert.True(t, registered)
}

func TestBuild_KeepsLoneCallbackSynthetic(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `import { ext } from 'lib';
function f() {
  ext(() => {});
}`,
	})

	f := declaredNamed(t, g, "f")
	require.Len(t, f.Block.Nodes, 1)
	only, ok := f.Block.Nodes[0].(*Call)
	require.True(t, ok)
	assert.False(t, only.IsRun())

	syn, ok := only.Target.(*SyntheticDefinition)
	require.True(t, ok)
	assert.Equal(t, OriginCall, syn.Origin)
	require.Len(t, syn.Callbacks, 1)
	assert.Equal(t, Declared, syn.Callbacks[0].Variant())

	_, registered := g.Map()[syn.Key()]
	assert.True(t, registered)
}

func TestBuild_SkipsNodeModules(t *testing.T) {
	t.Parallel()

	p := newProgram(t, map[string]string{
		"/proj/node_modules/lib/index.ts": `export function h(cb) { cb(); }`,
		"/proj/src/a.ts": `import { h } from '../node_modules/lib/index';
function f() { h(() => {}); }`,
	})
	s := NewSession(p)
	g := s.Build()

	assert.Equal(t, sourcefile.Skipped, s.State("/proj/node_modules/lib/index.ts"))
	for _, d := range g.Declared() {
		assert.NotEqual(t, "h", d.Name())
	}
	f := declaredNamed(t, g, "f")
	calls := f.Block.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Synthetic, calls[0].Target.Variant())
}

func TestBuild_Aliases(t *testing.T) {
	t.Parallel()

	trie := alias.Build("/proj", []alias.Mapping{{Pattern: "@/*", Targets: []string{"src/*"}}})
	g := build(t, map[string]string{
		"/proj/src/util/index.ts": `export default function helper() {}`,
		"/proj/src/app/main.ts": `import helper from '@/util';
function main() { helper(); }`,
	}, WithAliases(trie))

	main := declaredNamed(t, g, "main")
	calls := main.Block.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "helper", calls[0].Target.Name())
	assert.Equal(t, "/proj/src/util/index.ts", calls[0].Target.Node().File.Path)
}

func TestBuild_MemberCalls(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/util.ts": `export function g() {}`,
		"/proj/src/a.ts": `import * as u from './util';
const api = { run() { helper(); } };
function helper() {}
class Svc {
  start() { this.stop(); }
  stop() {}
}
function main() { api.run(); u.g(); }`,
	})

	main := declaredNamed(t, g, "main")
	assert.Equal(t, []string{"run", "g"}, targetNames(main.Block.Calls()))

	start := declaredNamed(t, g, "start")
	assert.Equal(t, []string{"stop"}, targetNames(start.Block.Calls()))

	run := declaredNamed(t, g, "run")
	assert.Equal(t, []string{"helper"}, targetNames(run.Block.Calls()))
}

func TestBuild_ParameterBindings(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `
function each(cb) { cb(); }
function unused(cb) { cb(); }
function a() {}
function b() {}
function one() { each(a); }
function two() { each(b); each(a); }
`,
	})

	each := declaredNamed(t, g, "each")
	calls := each.Block.Calls()
	assert.Equal(t, []string{"a", "b"}, targetNames(calls))
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Key+"#2", calls[1].Key)

	unused := declaredNamed(t, g, "unused")
	assert.Empty(t, unused.Block.Nodes)

	var found bool
	for _, d := range g.Diagnostics() {
		if d.Message == "No callback is bound to this parameter." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuild_ExportTable(t *testing.T) {
	t.Parallel()

	g := build(t, map[string]string{
		"/proj/src/a.ts": `export function f() {}
export const k = 1;
export class C {}
const h = () => {};
export { h as renamed };`,
	})

	files := g.Files()
	require.Len(t, files, 1)
	assert.Equal(t, []string{"f", "renamed"}, files[0].Exports)
	assert.Equal(t, "typescript", files[0].Language)

	var reasons []string
	for _, d := range g.Diagnostics() {
		reasons = append(reasons, d.Message)
	}
	assert.Contains(t, reasons, "Class exports are not supported.")
}

func TestDiagnostic_String(t *testing.T) {
	t.Parallel()

	d := Diagnostic{File: "/proj/a.ts", Line: 3, Col: 7, Message: "No declaration for \"x\"."}
	assert.Equal(t, `/proj/a.ts (3,7): No declaration for "x".`, d.String())
}

func TestSyntheticDefinition_Label(t *testing.T) {
	t.Parallel()

	p := newProgram(t, map[string]string{
		"/proj/src/a.ts": "function f() {\n  const message =\n    'a fairly long string literal';\n}",
	})
	g := NewSession(p).Build()
	// A lone run collapses, so build the label from the statement directly.
	a, _ := p.File("/proj/src/a.ts")
	syn := &SyntheticDefinition{Origin: OriginRun, Nodes: []*syntax.Node{findNode(a.Root, "lexical_declaration", "")}}
	assert.Equal(t, "const message = 'a f", syn.Label())
	assert.Equal(t, 1, g.Len())
}
