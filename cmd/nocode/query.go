package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	nocode "github.com/vallerance/no-code"
)

var flagDepth int

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the call graph",
	Long:  "Run queries against a built call graph. Definitions are addressed by key; line and column numbers are 1-based.",
}

func init() {
	transitiveCallersCmd.Flags().IntVar(&flagDepth, "depth", 5, "maximum number of hops (max 100)")
	transitiveCalleesCmd.Flags().IntVar(&flagDepth, "depth", 5, "maximum number of hops (max 100)")

	queryCmd.AddCommand(definitionsCmd)
	queryCmd.AddCommand(definitionAtCmd)
	queryCmd.AddCommand(callersCmd)
	queryCmd.AddCommand(calleesCmd)
	queryCmd.AddCommand(callbacksCmd)
	queryCmd.AddCommand(transitiveCallersCmd)
	queryCmd.AddCommand(transitiveCalleesCmd)
	queryCmd.AddCommand(diagnosticsCmd)
}

// --- Helpers ---

// openEngine opens the Engine over an existing database from the --db flag
// path (or default).
func openEngine(opts ...nocode.Option) (*nocode.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'nocode build' first)", dbPath)
	}
	opts = append([]nocode.Option{nocode.WithLogger(newLogger()), nocode.WithOutput(stdout)}, opts...)
	return nocode.New(dbPath, opts...)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parsePositionArg parses a 1-based line or column argument.
func parsePositionArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return n, nil
}

// callsToCLI converts calls, looking up the names and file of both ends.
func callsToCLI(q *nocode.QueryBuilder, calls []*nocode.Call) ([]CLICall, error) {
	names := make(map[string]*nocode.Definition)
	lookup := func(key string) (*nocode.Definition, error) {
		if d, ok := names[key]; ok {
			return d, nil
		}
		d, err := q.Definition(key)
		if err != nil {
			return nil, err
		}
		names[key] = d
		return d, nil
	}

	out := make([]CLICall, len(calls))
	for i, c := range calls {
		out[i] = CLICall{
			Key:       c.Key,
			CallerKey: c.CallerKey,
			CalleeKey: c.CalleeKey,
			Ordinal:   c.Ordinal,
			Parameter: c.Parameter,
			Line:      c.Line,
			Col:       c.Col,
		}
		caller, err := lookup(c.CallerKey)
		if err != nil {
			return nil, err
		}
		if caller != nil {
			out[i].CallerName = caller.Name
			out[i].File = caller.Path
		}
		callee, err := lookup(c.CalleeKey)
		if err != nil {
			return nil, err
		}
		if callee != nil {
			out[i].CalleeName = callee.Name
		}
	}
	return out, nil
}

// queryRunner wraps a query body with engine setup and error output.
func queryRunner(command string, fn func(q *nocode.QueryBuilder, args []string) (CLIResult, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError(command, err)
		}
		defer e.Close()

		result, err := fn(e.Query(), args)
		if err != nil {
			return outputError(command, err)
		}
		result.Command = command
		return outputResult(result)
	}
}

func countOf(n int) *int { return &n }

// --- Commands ---

var definitionsCmd = &cobra.Command{
	Use:   "definitions [file]",
	Short: "List definitions, optionally limited to one file",
	Args:  cobra.MaximumNArgs(1),
	RunE: queryRunner("definitions", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		file := ""
		if len(args) > 0 {
			var err error
			if file, err = resolveFilePath(args[0]); err != nil {
				return CLIResult{}, err
			}
		}
		defs, err := q.Definitions(file)
		if err != nil {
			return CLIResult{}, err
		}
		return CLIResult{Results: toCLIDefinitions(defs), TotalCount: countOf(len(defs))}, nil
	}),
}

var definitionAtCmd = &cobra.Command{
	Use:   "at <file> <line> <col>",
	Short: "Find the innermost definition at a position",
	Args:  cobra.ExactArgs(3),
	RunE: queryRunner("at", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return CLIResult{}, err
		}
		line, err := parsePositionArg(args[1], "line")
		if err != nil {
			return CLIResult{}, err
		}
		col, err := parsePositionArg(args[2], "col")
		if err != nil {
			return CLIResult{}, err
		}
		d, err := q.DefinitionAt(file, line, col)
		if err != nil {
			return CLIResult{}, err
		}
		if d == nil {
			return CLIResult{Results: nil}, nil
		}
		return CLIResult{Results: toCLIDefinition(d)}, nil
	}),
}

var callersCmd = &cobra.Command{
	Use:   "callers <key>",
	Short: "List the calls that target a definition",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner("callers", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		calls, err := q.Callers(args[0])
		if err != nil {
			return CLIResult{}, err
		}
		edges, err := callsToCLI(q, calls)
		if err != nil {
			return CLIResult{}, err
		}
		return CLIResult{Results: edges, TotalCount: countOf(len(edges))}, nil
	}),
}

var calleesCmd = &cobra.Command{
	Use:   "callees <key>",
	Short: "List the calls a definition makes, in document order",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner("callees", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		calls, err := q.Callees(args[0])
		if err != nil {
			return CLIResult{}, err
		}
		edges, err := callsToCLI(q, calls)
		if err != nil {
			return CLIResult{}, err
		}
		return CLIResult{Results: edges, TotalCount: countOf(len(edges))}, nil
	}),
}

var callbacksCmd = &cobra.Command{
	Use:   "callbacks <key>",
	Short: "List the calls that receive a definition as a callback",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner("callbacks", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		sites, err := q.Callbacks(args[0])
		if err != nil {
			return CLIResult{}, err
		}
		calls := make([]*nocode.Call, len(sites))
		for i, s := range sites {
			calls[i] = s.Call
		}
		edges, err := callsToCLI(q, calls)
		if err != nil {
			return CLIResult{}, err
		}
		out := make([]CLICallbackSite, len(sites))
		for i, s := range sites {
			out[i] = CLICallbackSite{Call: edges[i], Position: s.Position}
		}
		return CLIResult{Results: out, TotalCount: countOf(len(out))}, nil
	}),
}

var transitiveCallersCmd = &cobra.Command{
	Use:   "transitive-callers <key>",
	Short: "Walk callers of a definition up to --depth hops",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner("transitive-callers", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		g, err := q.TransitiveCallers(args[0], flagDepth)
		if err != nil {
			return CLIResult{}, err
		}
		return CLIResult{Results: callGraphToCLI(g)}, nil
	}),
}

var transitiveCalleesCmd = &cobra.Command{
	Use:   "transitive-callees <key>",
	Short: "Walk callees of a definition up to --depth hops",
	Args:  cobra.ExactArgs(1),
	RunE: queryRunner("transitive-callees", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		g, err := q.TransitiveCallees(args[0], flagDepth)
		if err != nil {
			return CLIResult{}, err
		}
		return CLIResult{Results: callGraphToCLI(g)}, nil
	}),
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics [file]",
	Short: "List the diagnostics of the last build",
	Args:  cobra.MaximumNArgs(1),
	RunE: queryRunner("diagnostics", func(q *nocode.QueryBuilder, args []string) (CLIResult, error) {
		file := ""
		if len(args) > 0 {
			var err error
			if file, err = resolveFilePath(args[0]); err != nil {
				return CLIResult{}, err
			}
		}
		diags, err := q.Diagnostics(file)
		if err != nil {
			return CLIResult{}, err
		}
		return CLIResult{Results: toCLIDiagnostics(diags), TotalCount: countOf(len(diags))}, nil
	}),
}

// callGraphToCLI converts a transitive query result; nil stays nil.
func callGraphToCLI(g *nocode.CallGraph) any {
	if g == nil {
		return nil
	}
	out := CLICallGraph{
		Root:  g.Root,
		Nodes: make([]CLICallGraphNode, len(g.Nodes)),
		Edges: make([]CLICall, len(g.Edges)),
		Depth: g.Depth,
	}
	names := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out.Nodes[i] = CLICallGraphNode{Definition: toCLIDefinition(n.Definition), Depth: n.Depth}
		names[n.Definition.Key] = n.Definition.Name
	}
	for i, e := range g.Edges {
		out.Edges[i] = CLICall{
			Key:        e.CallKey,
			CallerKey:  e.CallerKey,
			CallerName: names[e.CallerKey],
			CalleeKey:  e.CalleeKey,
			CalleeName: names[e.CalleeKey],
			Parameter:  e.Parameter,
			File:       e.File,
			Line:       e.Line,
			Col:        e.Col,
		}
	}
	return out
}
