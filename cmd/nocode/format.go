package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	switch flagFormat {
	case "text":
		return outputResultText(stdout, result)
	case "yaml":
		return encodeYAML(stdout, result)
	default:
		return encodeJSON(stdout, result)
	}
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON and YAML mode the error is written to
// stdout as a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	result := CLIResult{Command: command, Error: err.Error()}
	switch flagFormat {
	case "text":
		fmt.Fprintf(stderr, "Error: %s\n", err)
	case "yaml":
		_ = encodeYAML(stdout, result)
	default:
		_ = encodeJSON(stdout, result)
	}
	return err
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// formatDefinitionsText formats CLIDefinition results as aligned columns.
func formatDefinitionsText(w io.Writer, defs []CLIDefinition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tVARIANT\tKIND\tFILE\tLINE\tCOL")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			d.Key, d.Name, variantLabel(d), d.Kind, d.File, d.StartLine, d.StartCol)
	}
	tw.Flush()
}

func variantLabel(d CLIDefinition) string {
	if d.Origin != "" {
		return d.Variant + "/" + d.Origin
	}
	return d.Variant
}

// formatCallsText formats CLICall results as aligned columns.
func formatCallsText(w io.Writer, calls []CLICall) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tCALLEE\tPARAM\tFILE\tLINE\tCOL")
	for _, c := range calls {
		param := "-"
		if c.Parameter != nil {
			param = fmt.Sprintf("%d", *c.Parameter)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			c.CallerName, c.CalleeName, param, c.File, c.Line, c.Col)
	}
	tw.Flush()
}

// formatCallbackSitesText formats CLICallbackSite results as aligned columns.
func formatCallbackSitesText(w io.Writer, sites []CLICallbackSite) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tCALLEE\tPOSITION\tFILE\tLINE\tCOL")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\n",
			s.Call.CallerName, s.Call.CalleeName, s.Position, s.Call.File, s.Call.Line, s.Call.Col)
	}
	tw.Flush()
}

// formatDiagnosticsText prints diagnostics in "file (line,col): message"
// form, one per line.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s (%d,%d): %s\n", d.File, d.Line, d.Col, d.Message)
	}
}

// formatCallGraphText prints a transitive query as an indented node list
// followed by its edges.
func formatCallGraphText(w io.Writer, g CLICallGraph) {
	fmt.Fprintf(w, "Root: %s (depth %d)\n\n", g.Root, g.Depth)
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%s%s  %s:%d\n",
			strings.Repeat("  ", n.Depth), n.Definition.Name, n.Definition.File, n.Definition.StartLine)
	}
	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		formatCallsText(w, g.Edges)
	}
}

// formatBuildSummaryText prints a build summary as key/value lines.
func formatBuildSummaryText(w io.Writer, s CLIBuildSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Root:\t%s\n", s.Root)
	if s.Database != "" {
		fmt.Fprintf(tw, "Database:\t%s\n", s.Database)
	}
	fmt.Fprintf(tw, "Up to date:\t%t\n", s.Fresh)
	fmt.Fprintf(tw, "Files:\t%d (%d parsed, %d skipped)\n", s.Files, s.Parsed, s.Skipped)
	fmt.Fprintf(tw, "Definitions:\t%d (%d synthetic)\n", s.Definitions, s.Synthetic)
	fmt.Fprintf(tw, "Blocks:\t%d\n", s.Blocks)
	fmt.Fprintf(tw, "Calls:\t%d\n", s.Calls)
	fmt.Fprintf(tw, "Diagnostics:\t%d\n", s.Diagnostics)
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDefinition:
		formatDefinitionsText(w, v)
	case CLIDefinition:
		formatDefinitionsText(w, []CLIDefinition{v})
	case []CLICall:
		formatCallsText(w, v)
	case []CLICallbackSite:
		formatCallbackSitesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case CLICallGraph:
		formatCallGraphText(w, v)
	case CLIBuildSummary:
		formatBuildSummaryText(w, v)
	case nil:
		// No output for nil results (e.g., at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "yaml", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}
