package callgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vallerance/no-code/internal/syntax"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a located report of something the build could not
// resolve.
type Diagnostic struct {
	File     string
	Line     int
	Col      int
	Message  string
	Severity Severity
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (%d,%d): %s", d.File, d.Line, d.Col, d.Message)
}

func diagnosticAt(n *syntax.Node, sev Severity, msg string) Diagnostic {
	return Diagnostic{
		File:     n.File.Path,
		Line:     n.Line(),
		Col:      n.Col(),
		Message:  msg,
		Severity: sev,
	}
}

// report records a non-fatal resolution failure.
func (s *Session) report(n *syntax.Node, msg string) {
	d := diagnosticAt(n, SeverityWarning, msg)
	s.graph.diagnostics = append(s.graph.diagnostics, d)
	s.log.Warn(d.String(), "file", d.File, "line", d.Line, "col", d.Col)
}

// fail records a broken precondition for a single definition.
func (s *Session) fail(n *syntax.Node, err error) {
	d := diagnosticAt(n, SeverityError, err.Error())
	s.graph.diagnostics = append(s.graph.diagnostics, d)
	s.log.Error(d.String(), "file", d.File, "line", d.Line, "col", d.Col, "error", err)
}

// trace logs progress at debug level without recording it.
func (s *Session) trace(n *syntax.Node, msg string) {
	if !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	d := diagnosticAt(n, "", msg)
	s.log.Debug(d.String(), "file", d.File, "line", d.Line, "col", d.Col)
}
