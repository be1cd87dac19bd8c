// Package alias indexes compiler path aliases ("paths" in tsconfig) so that
// module specifiers like "@app/util" can be mapped back onto directories.
package alias

import (
	"path/filepath"
	"strings"
)

// Entry is one configured alias.
type Entry struct {
	// Prefix is the alias pattern with any trailing "*" removed.
	Prefix string
	// Wildcard is set when the pattern ended in "*". Wildcard entries
	// match on plain string prefix and require at least one more character.
	Wildcard bool
	// Targets are absolute paths, in configuration order. A target built
	// from a wildcard pattern keeps its trailing separator.
	Targets []string
}

// Matches reports whether name is covered by e.
func (e *Entry) Matches(name string) bool {
	if e.Wildcard {
		return strings.HasPrefix(name, e.Prefix) && name != e.Prefix
	}
	return name == e.Prefix || strings.HasPrefix(name, e.Prefix+"/")
}

// Expand substitutes every target for the matched prefix of name.
// The caller must check Matches first.
func (e *Entry) Expand(name string) []string {
	rest := name[len(e.Prefix):]
	out := make([]string, 0, len(e.Targets))
	for _, target := range e.Targets {
		out = append(out, target+rest)
	}
	return out
}

// Trie maps alias prefixes to entries, one node per byte of the prefix.
type Trie struct {
	children map[byte]*Trie
	entry    *Entry
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{children: make(map[byte]*Trie)}
}

// Add stores entry under prefix. Adding the same prefix again replaces the
// earlier entry.
func (t *Trie) Add(prefix string, entry *Entry) {
	n := t
	for i := 0; i < len(prefix); i++ {
		child, ok := n.children[prefix[i]]
		if !ok {
			child = NewTrie()
			n.children[prefix[i]] = child
		}
		n = child
	}
	n.entry = entry
}

// Search returns the entry stored under the longest prefix of name. When
// the walk runs out of matching children it falls back to the deepest
// entry seen on the way down, which may be nil.
func (t *Trie) Search(name string) *Entry {
	best := t.entry
	n := t
	for i := 0; i < len(name); i++ {
		child, ok := n.children[name[i]]
		if !ok {
			break
		}
		n = child
		if n.entry != nil {
			best = n.entry
		}
	}
	return best
}

// Lookup is Search followed by the entry's own match test.
func (t *Trie) Lookup(name string) (*Entry, bool) {
	if t == nil {
		return nil, false
	}
	e := t.Search(name)
	if e == nil || !e.Matches(name) {
		return nil, false
	}
	return e, true
}

// Mapping is a single "paths" item: a pattern and its target patterns.
type Mapping struct {
	Pattern string
	Targets []string
}

// Build creates a trie from mappings in declaration order. Targets are
// resolved against baseDir.
func Build(baseDir string, mappings []Mapping) *Trie {
	t := NewTrie()
	for _, m := range mappings {
		prefix, wildcard := strings.CutSuffix(m.Pattern, "*")
		entry := &Entry{Prefix: prefix, Wildcard: wildcard}
		for _, target := range m.Targets {
			entry.Targets = append(entry.Targets, absTarget(baseDir, strings.TrimSuffix(target, "*")))
		}
		t.Add(prefix, entry)
	}
	return t
}

func absTarget(baseDir, target string) string {
	abs := target
	if !filepath.IsAbs(target) {
		abs = filepath.Join(baseDir, target)
	}
	if (target == "" || strings.HasSuffix(target, "/")) && !strings.HasSuffix(abs, "/") {
		abs += "/"
	}
	return abs
}
