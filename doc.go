// Package nocode builds a cross-module call graph for TypeScript and
// JavaScript projects and persists it to SQLite for querying and
// rendering.
//
// # Pipeline
//
// [Engine.Build] runs three phases over a project root:
//
//  1. Discover: list source files with git ls-files (or a directory walk)
//     and classify them against the skip patterns. Skipped files stay part
//     of the program so imports of them resolve, but they are never read.
//
//  2. Parse: read and parse the remaining files with tree-sitter, in
//     parallel by default.
//
//  3. Build: walk every file with a callgraph.Session, following imports
//     across files through the tsconfig path aliases, then replace the
//     persisted graph in one transaction.
//
// # Usage
//
//	e, err := nocode.New(".nocode/graph.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	res, err := e.Build(ctx, "path/to/project")
//	for _, d := range res.Diagnostics {
//		fmt.Println(d)
//	}
//
//	q := e.Query()
//	calls, err := q.Callees(key)
//
// # Graph model
//
// Every function-like declaration that is reached becomes a declared
// Definition. Its body is recorded as a tree of Blocks holding Calls in
// document order. Runs of statements that make no calls become synthetic
// Definitions so renderers can show them as steps; a call to an
// unresolvable callee that still receives callbacks becomes a synthetic
// Definition of its own. Calls made through a parameter are linked to
// every callback passed for it.
//
// Anything that cannot be resolved is reported as a diagnostic in the form
// "<file> (<line>,<col>): <message>" and left out of the graph.
//
// # Scripts
//
// Risor scripts can read a persisted graph through [Engine.RunScript].
// The embedded report scripts live under scripts/report.
package nocode
