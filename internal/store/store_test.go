package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// testBatch builds a small graph:
//
//	f (a.ts) calls g (b.ts) passing cb, and g's nested block calls cb
//	through parameter 0. A synthetic run sits in f.
func testBatch() *Batch {
	b := NewBatch()
	b.AddFile(File{Path: "/p/a.ts", Language: "typescript", Status: "done", Hash: "h1", Exports: []string{"f"}})
	b.AddFile(File{Path: "/p/b.ts", Language: "typescript", Status: "done", Hash: "h2", Exports: []string{"g"}})
	b.AddFile(File{Path: "/p/node_modules/x/index.ts", Language: "typescript", Status: "skipped"})

	b.AddDefinition(Definition{Key: "f", UUID: "u-f", Path: "/p/a.ts", Variant: VariantDeclared, Name: "f", Kind: "function_declaration",
		StartLine: 1, StartCol: 1, EndLine: 10, EndCol: 2})
	b.AddDefinition(Definition{Key: "cb", UUID: "u-cb", Path: "/p/a.ts", Variant: VariantDeclared, Name: "<anonymous>", Kind: "arrow_function",
		StartLine: 3, StartCol: 5, EndLine: 5, EndCol: 6})
	b.AddDefinition(Definition{Key: "g", UUID: "u-g", Path: "/p/b.ts", Variant: VariantDeclared, Name: "g", Kind: "function_declaration",
		StartLine: 1, StartCol: 1, EndLine: 4, EndCol: 2})
	b.AddDefinition(Definition{Key: "run", UUID: "u-run", Path: "/p/a.ts", Variant: VariantSynthetic, Origin: OriginRun, Name: "const x = 1;", Kind: "lexical_declaration",
		StartLine: 2, StartCol: 3, EndLine: 2, EndCol: 15})

	b.AddBlock(Block{Key: "f-body", UUID: "u-fb", DefinitionKey: "f"})
	b.AddBlock(Block{Key: "cb-body", UUID: "u-cbb", DefinitionKey: "cb"})
	b.AddBlock(Block{Key: "g-body", UUID: "u-gb", DefinitionKey: "g"})
	b.AddBlock(Block{Key: "g-if", UUID: "u-gi", DefinitionKey: "g", ParentKey: "g-body"})

	b.AddCall(Call{Key: "f>run", UUID: "c1", BlockKey: "f-body", CallerKey: "f", CalleeKey: "run", Ordinal: 0, Line: 2, Col: 3})
	b.AddCall(Call{Key: "f>g", UUID: "c2", BlockKey: "f-body", CallerKey: "f", CalleeKey: "g", Ordinal: 1, Line: 3, Col: 3})
	b.AddCall(Call{Key: "g>cb", UUID: "c3", BlockKey: "g-if", CallerKey: "g", CalleeKey: "cb", Ordinal: 0, Parameter: ptr(0), Line: 2, Col: 14})

	b.AddCallback(Callback{CallKey: "f>g", DefinitionKey: "cb", Position: 0})
	b.AddDiagnostic(Diagnostic{Path: "/p/a.ts", Line: 7, Col: 3, Severity: "warning", Message: `No declaration for "x".`})
	return b
}

func committedStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.CommitBatch(testBatch()))
	return s
}

func defID(t *testing.T, s *Store, key string) int64 {
	t.Helper()
	d, err := s.DefinitionByKey(key)
	require.NoError(t, err)
	require.NotNil(t, d, key)
	return d.ID
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "definitions", "blocks", "calls", "callbacks", "diagnostics", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// Metadata
// =============================================================================

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.GetMetadata("project_hash")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SetMetadata("project_hash", "one"))
	require.NoError(t, s.SetMetadata("project_hash", "two"))
	got, err = s.GetMetadata("project_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	require.NoError(t, s.CommitBatch(testBatch()))
	got, err = s.GetMetadata("project_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", got, "a commit keeps metadata")
}

// =============================================================================
// CommitBatch
// =============================================================================

func TestCommitBatch_Stats(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Definitions: 4, Synthetic: 1, Blocks: 4, Calls: 3, Callbacks: 1, Diagnostics: 1}, st)
}

func TestCommitBatch_ReplacesPreviousGraph(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	b := NewBatch()
	b.AddFile(File{Path: "/p/c.ts", Language: "typescript", Status: "done"})
	b.AddDefinition(Definition{Key: "h", UUID: "u-h", Path: "/p/c.ts", Variant: VariantDeclared, Name: "h", Kind: "function_declaration"})
	require.NoError(t, s.CommitBatch(b))

	defs, err := s.Definitions()
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "h", defs[0].Key)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestCommitBatch_UnknownKeyRollsBack(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	b := NewBatch()
	b.AddDefinition(Definition{Key: "h", UUID: "u-h", Variant: VariantDeclared, Name: "h", Kind: "function_declaration"})
	b.AddBlock(Block{Key: "h-body", UUID: "u", DefinitionKey: "h"})
	b.AddCall(Call{Key: "h>missing", UUID: "c", BlockKey: "h-body", CallerKey: "h", CalleeKey: "missing"})

	err := s.CommitBatch(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown callee "missing"`)

	// The earlier graph is untouched.
	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, st.Definitions)
}

// =============================================================================
// Files & Definitions
// =============================================================================

func TestFiles_SortedWithExports(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "/p/a.ts", files[0].Path)
	assert.Equal(t, []string{"f"}, files[0].Exports)
	assert.False(t, files[0].LastIndexed.IsZero())
	assert.Equal(t, "skipped", files[2].Status)
	assert.Empty(t, files[2].Exports)

	got, err := s.FileByPath("/p/b.ts")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h2", got.Hash)

	missing, err := s.FileByPath("/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDefinitions_Lookups(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	f, err := s.DefinitionByKey("f")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "/p/a.ts", f.Path)
	require.NotNil(t, f.FileID)
	assert.Equal(t, "", f.Origin)

	run, err := s.DefinitionByKey("run")
	require.NoError(t, err)
	assert.Equal(t, OriginRun, run.Origin)
	assert.Equal(t, VariantSynthetic, run.Variant)

	byID, err := s.DefinitionByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "f", byID.Key)

	missing, err := s.DefinitionByKey("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	named, err := s.DefinitionsByName("g")
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "/p/b.ts", named[0].Path)

	inFile, err := s.DefinitionsByFile("/p/a.ts")
	require.NoError(t, err)
	var keys []string
	for _, d := range inFile {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"f", "run", "cb"}, keys)

	byIDs, err := s.DefinitionsByIDs([]int64{defID(t, s, "g"), f.ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)
}

func TestDefinitionAt_Innermost(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	tests := []struct {
		line, col int
		want      string
	}{
		{1, 1, "f"},
		{4, 1, "cb"},
		{5, 6, "cb"},
		{5, 7, "f"},
		{2, 5, "f"}, // synthetic runs are never returned
		{11, 1, ""},
	}
	for _, tt := range tests {
		got, err := s.DefinitionAt("/p/a.ts", tt.line, tt.col)
		require.NoError(t, err)
		if tt.want == "" {
			assert.Nil(t, got)
			continue
		}
		require.NotNil(t, got, "%d:%d", tt.line, tt.col)
		assert.Equal(t, tt.want, got.Key, "%d:%d", tt.line, tt.col)
	}
}

// =============================================================================
// Blocks, Calls & Callbacks
// =============================================================================

func TestBlocks_Nesting(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	blocks, err := s.BlocksByDefinition(defID(t, s, "g"))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Nil(t, blocks[0].ParentID)
	assert.Equal(t, "g-body", blocks[1].ParentKey)
	assert.Equal(t, blocks[0].ID, *blocks[1].ParentID)
	assert.Equal(t, "g", blocks[1].DefinitionKey)
}

func TestCalls_CallersAndCallees(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	callees, err := s.Callees(defID(t, s, "f"))
	require.NoError(t, err)
	require.Len(t, callees, 2)
	assert.Equal(t, "run", callees[0].CalleeKey)
	assert.Equal(t, "g", callees[1].CalleeKey)
	assert.Nil(t, callees[1].Parameter)

	callers, err := s.Callers(defID(t, s, "cb"))
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "g", callers[0].CallerKey)
	assert.Equal(t, "g-if", callers[0].BlockKey)
	require.NotNil(t, callers[0].Parameter)
	assert.Equal(t, 0, *callers[0].Parameter)

	all, err := s.AllCalls()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCallbacks(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	callees, err := s.Callees(defID(t, s, "f"))
	require.NoError(t, err)
	cbs, err := s.CallbacksOf(callees[1].ID)
	require.NoError(t, err)
	require.Len(t, cbs, 1)
	assert.Equal(t, "cb", cbs[0].DefinitionKey)
	assert.Equal(t, "f>g", cbs[0].CallKey)

	passing, err := s.CallbacksPassing(defID(t, s, "cb"))
	require.NoError(t, err)
	assert.Len(t, passing, 1)

	none, err := s.CallbacksOf(callees[0].ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDiagnostics_FilterByPath(t *testing.T) {
	t.Parallel()
	s := committedStore(t)

	all, err := s.Diagnostics("")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 7, all[0].Line)

	none, err := s.Diagnostics("/p/b.ts")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// Hashing
// =============================================================================

func TestComputeProjectHash_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := ComputeProjectHash(map[string]string{"/a.ts": "1", "/b.ts": "2"}, "cfg")
	b := ComputeProjectHash(map[string]string{"/b.ts": "2", "/a.ts": "1"}, "cfg")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ComputeProjectHash(map[string]string{"/a.ts": "1", "/b.ts": "3"}, "cfg"))
	assert.NotEqual(t, a, ComputeProjectHash(map[string]string{"/a.ts": "1", "/b.ts": "2"}, "other"))
	assert.Len(t, ComputeFileHash([]byte("x")), 64)
}
