// Package module maps import specifiers onto files of the analyzed program.
//
// Resolution is a three stage pipeline. Each stage takes the candidates
// produced by the previous one and may fan them out:
//
//	alias         "@app/util"  -> "./../app/util"
//	relative      "./../app/util" -> "/repo/app/util"
//	extensionless "/repo/app/util" -> "/repo/app/util.ts", "/repo/app/util.js", ...
//
// The first candidate present in the caller's file table wins.
package module

import (
	"path/filepath"
	"strings"

	"github.com/vallerance/no-code/internal/alias"
)

// extensions are tried in order after the bare candidate.
var extensions = buildExtensions()

func buildExtensions() []string {
	var exts []string
	for _, prefix := range []string{"", "c", "m"} {
		for _, suffix := range []string{"", "x"} {
			for _, base := range []string{"ts", "js"} {
				exts = append(exts, "."+prefix+base+suffix)
			}
		}
	}
	return append(exts, ".d.ts", ".d.cts", ".d.mts")
}

// Extensions returns the extension list used by the extensionless stage.
func Extensions() []string {
	out := make([]string, len(extensions))
	copy(out, extensions)
	return out
}

// Resolver holds the project's alias table. The zero value resolves
// without aliases.
type Resolver struct {
	aliases *alias.Trie
}

// NewResolver returns a Resolver using aliases, which may be nil.
func NewResolver(aliases *alias.Trie) *Resolver {
	return &Resolver{aliases: aliases}
}

// Alias expands specifier through the alias table. Expanded candidates are
// rewritten relative to the directory of from. A specifier that matches
// no alias is returned unchanged.
func (r *Resolver) Alias(specifier, from string) []string {
	if r == nil {
		return []string{specifier}
	}
	entry, ok := r.aliases.Lookup(specifier)
	if !ok {
		return []string{specifier}
	}
	dir := filepath.Dir(from)
	var out []string
	for _, target := range entry.Expand(specifier) {
		rel, err := filepath.Rel(dir, target)
		if err != nil {
			out = append(out, target)
			continue
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, "../") && rel != ".." {
			rel = "./" + rel
		}
		out = append(out, rel)
	}
	return out
}

// Relative makes "./" and "../" candidates absolute against the directory
// of from. Anything else, such as a bare package name, passes through.
func (r *Resolver) Relative(candidate, from string) string {
	if !isRelative(candidate) {
		return candidate
	}
	return filepath.Join(filepath.Dir(from), filepath.FromSlash(candidate))
}

// Extensionless returns candidate followed by every supported extension
// and then the same list under an index file.
func (r *Resolver) Extensionless(candidate string) []string {
	out := make([]string, 0, 2*len(extensions)+1)
	out = append(out, candidate)
	for _, ext := range extensions {
		out = append(out, candidate+ext)
	}
	index := filepath.Join(candidate, "index")
	for _, ext := range extensions {
		out = append(out, index+ext)
	}
	return out
}

// Candidates runs all three stages and returns every path that would be
// tried, in precedence order.
func (r *Resolver) Candidates(specifier, from string) []string {
	var out []string
	for _, c := range r.Alias(specifier, from) {
		out = append(out, r.Extensionless(r.Relative(c, from))...)
	}
	return out
}

// Lookup resolves specifier imported from the file at from against files,
// a table keyed by absolute path. It reports the matching path and value.
func Lookup[F any](r *Resolver, specifier, from string, files map[string]F) (string, F, bool) {
	for _, candidate := range r.Candidates(specifier, from) {
		if f, ok := files[candidate]; ok {
			return candidate, f, true
		}
	}
	var zero F
	return "", zero, false
}

func isRelative(s string) bool {
	return s == "." || s == ".." || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}
