package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeFileHash returns the hex SHA-256 of a file's content.
func ComputeFileHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ComputeProjectHash combines per-file hashes and any extra inputs (such
// as the compiler config) into one hash. Paths are sorted, so map order
// does not matter.
func ComputeProjectHash(files map[string]string, extra ...string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "file:%s:%s\n", p, files[p])
	}
	for _, e := range extra {
		fmt.Fprintf(h, "extra:%s\n", e)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
