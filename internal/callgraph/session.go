// Package callgraph builds a cross-module call graph from a parsed
// TypeScript/JavaScript program.
//
// A Session walks every file of the program once. Function-like
// declarations become DeclaredDefinitions with a tree of Blocks recording
// their call sites in document order. Two kinds of SyntheticDefinition fill
// the gaps: one per run of statements without calls, and one per call to
// an unresolvable callee that still receives callbacks. Imports are
// followed across files on demand, so a file may be walked while another
// one is still in progress.
//
// Anything that cannot be resolved is reported as a Diagnostic and
// skipped. A build never fails as a whole.
package callgraph

import (
	"io"
	"log/slog"

	"github.com/vallerance/no-code/internal/alias"
	"github.com/vallerance/no-code/internal/module"
	"github.com/vallerance/no-code/internal/sourcefile"
	"github.com/vallerance/no-code/internal/syntax"
)

// Session holds the state of one build. It is single-threaded and must
// not be shared between goroutines.
type Session struct {
	program  *syntax.Program
	resolver *module.Resolver
	aliases  *alias.Trie
	skip     sourcefile.Matcher
	log      *slog.Logger

	files *sourcefile.Tracker[*DeclaredDefinition]
	graph *Graph

	// bindings[callee][position] lists the callbacks seen for a parameter,
	// in the order the call sites were walked.
	bindings map[Key]map[int][]Definition
	pending  []*Call
	built    bool
}

// Option configures a Session.
type Option func(*Session)

// WithAliases sets the path alias table used for non-relative imports.
func WithAliases(t *alias.Trie) Option {
	return func(s *Session) {
		s.aliases = t
	}
}

// WithSkip replaces the default skip matcher.
func WithSkip(m sourcefile.Matcher) Option {
	return func(s *Session) {
		s.skip = m
	}
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// NewSession prepares a build of program.
func NewSession(program *syntax.Program, opts ...Option) *Session {
	s := &Session{
		program:  program,
		graph:    newGraph(),
		bindings: make(map[Key]map[int][]Definition),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.skip == nil {
		s.skip = sourcefile.NewSkipMatcher(program.Root)
	}
	s.resolver = module.NewResolver(s.aliases)
	s.files = sourcefile.NewTracker[*DeclaredDefinition](sourcefile.MatcherFunc(s.skipped), s.walkFile)
	return s
}

// skipped reports files that are excluded by the matcher or that have no
// syntax tree.
func (s *Session) skipped(path string) bool {
	f, ok := s.program.File(path)
	if !ok || !f.Parsed() {
		return true
	}
	return s.skip.Skip(path)
}

// Build walks every file of the program and returns the graph. Calling it
// again returns the same graph.
func (s *Session) Build() *Graph {
	if s.built {
		return s.graph
	}
	for _, f := range s.program.Files() {
		s.files.Ensure(f.Path)
	}
	s.linkParameters()

	for _, st := range s.files.States() {
		fs := FileState{Path: st.Path, Status: st.Status.String(), Exports: st.Exports()}
		if f, ok := s.program.File(st.Path); ok {
			fs.Language = f.Language
		}
		s.graph.files = append(s.graph.files, fs)
	}
	s.built = true
	s.log.Debug("call graph built",
		"files", s.program.Len(),
		"definitions", s.graph.Len(),
		"diagnostics", len(s.graph.diagnostics))
	return s.graph
}

// State returns the walk status of path.
func (s *Session) State(path string) sourcefile.Status {
	return s.files.Peek(path).Status
}

func (s *Session) walkFile(st *sourcefile.State[*DeclaredDefinition]) {
	f, _ := s.program.File(st.Path)
	s.trace(f.Root, "Parsing source file.")
	s.walk(f.Root, walkContext{})
}
