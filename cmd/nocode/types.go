package main

import nocode "github.com/vallerance/no-code"

// CLIResult is the top-level envelope for all commands. YAML output uses
// the same field names as JSON.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIDefinition is a serializable definition.
type CLIDefinition struct {
	Key       string `json:"key" yaml:"key"`
	UUID      string `json:"uuid" yaml:"uuid"`
	Variant   string `json:"variant" yaml:"variant"`
	Origin    string `json:"origin,omitempty" yaml:"origin,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind,omitempty" yaml:"kind,omitempty"`
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	EndCol    int    `json:"end_col" yaml:"end_col"`
}

// CLICall is a serializable call edge with the names of both ends.
type CLICall struct {
	Key        string `json:"key" yaml:"key"`
	CallerKey  string `json:"caller_key" yaml:"caller_key"`
	CallerName string `json:"caller_name,omitempty" yaml:"caller_name,omitempty"`
	CalleeKey  string `json:"callee_key" yaml:"callee_key"`
	CalleeName string `json:"callee_name,omitempty" yaml:"callee_name,omitempty"`
	Ordinal    int    `json:"ordinal" yaml:"ordinal"`
	Parameter  *int   `json:"parameter,omitempty" yaml:"parameter,omitempty"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	Line       int    `json:"line" yaml:"line"`
	Col        int    `json:"col" yaml:"col"`
}

// CLICallbackSite is a call that receives a definition as a callback.
type CLICallbackSite struct {
	Call     CLICall `json:"call" yaml:"call"`
	Position int     `json:"position" yaml:"position"`
}

// CLIDiagnostic is a serializable diagnostic.
type CLIDiagnostic struct {
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Col      int    `json:"col" yaml:"col"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// CLICallGraphNode is a definition with its distance from the root.
type CLICallGraphNode struct {
	Definition CLIDefinition `json:"definition" yaml:"definition"`
	Depth      int           `json:"depth" yaml:"depth"`
}

// CLICallGraph is the result of a transitive query.
type CLICallGraph struct {
	Root  string             `json:"root" yaml:"root"`
	Nodes []CLICallGraphNode `json:"nodes" yaml:"nodes"`
	Edges []CLICall          `json:"edges" yaml:"edges"`
	Depth int                `json:"depth" yaml:"depth"`
}

// CLIBuildSummary reports one build.
type CLIBuildSummary struct {
	Root        string `json:"root" yaml:"root"`
	Database    string `json:"database" yaml:"database"`
	Fresh       bool   `json:"fresh" yaml:"fresh"`
	Files       int    `json:"files" yaml:"files"`
	Parsed      int    `json:"parsed" yaml:"parsed"`
	Skipped     int    `json:"skipped" yaml:"skipped"`
	Definitions int    `json:"definitions" yaml:"definitions"`
	Synthetic   int    `json:"synthetic" yaml:"synthetic"`
	Blocks      int    `json:"blocks" yaml:"blocks"`
	Calls       int    `json:"calls" yaml:"calls"`
	Diagnostics int    `json:"diagnostics" yaml:"diagnostics"`
	DurationMS  int64  `json:"duration_ms" yaml:"duration_ms"`
}

func toCLIDefinition(d *nocode.Definition) CLIDefinition {
	return CLIDefinition{
		Key:       d.Key,
		UUID:      d.UUID,
		Variant:   d.Variant,
		Origin:    d.Origin,
		Name:      d.Name,
		Kind:      d.Kind,
		File:      d.Path,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	}
}

func toCLIDefinitions(defs []*nocode.Definition) []CLIDefinition {
	out := make([]CLIDefinition, len(defs))
	for i, d := range defs {
		out[i] = toCLIDefinition(d)
	}
	return out
}

func toCLIDiagnostics(diags []*nocode.Diagnostic) []CLIDiagnostic {
	out := make([]CLIDiagnostic, len(diags))
	for i, d := range diags {
		out[i] = CLIDiagnostic{
			File:     d.Path,
			Line:     d.Line,
			Col:      d.Col,
			Severity: d.Severity,
			Message:  d.Message,
		}
	}
	return out
}
