package sourcefile

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultSkipPatterns are always applied: installed packages and type
// declaration files contain no bodies worth walking.
var DefaultSkipPatterns = []string{"node_modules/", "*.d.ts"}

// Matcher decides which files are Skipped.
type Matcher interface {
	Skip(path string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(path string) bool

func (f MatcherFunc) Skip(path string) bool { return f(path) }

// PatternMatcher skips files matching gitignore-style patterns relative to
// a root directory.
type PatternMatcher struct {
	root     string
	patterns []string
	gi       *ignore.GitIgnore
}

// NewSkipMatcher compiles DefaultSkipPatterns plus extra.
func NewSkipMatcher(root string, extra ...string) *PatternMatcher {
	patterns := append(append([]string{}, DefaultSkipPatterns...), extra...)
	return &PatternMatcher{
		root:     root,
		patterns: patterns,
		gi:       ignore.CompileIgnoreLines(patterns...),
	}
}

// Patterns returns the compiled pattern lines.
func (m *PatternMatcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Skip reports whether path matches a pattern. Paths outside root are
// matched by their full slash-separated form.
func (m *PatternMatcher) Skip(path string) bool {
	rel := path
	if m.root != "" {
		if r, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	if m.gi.MatchesPath(rel) {
		return true
	}
	// node_modules outside root still count as installed packages.
	return strings.Contains("/"+rel, "/node_modules/")
}
