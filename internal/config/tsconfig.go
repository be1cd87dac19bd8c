// Package config loads the two configuration sources of a project: the
// TypeScript compiler options file (for path aliases) and the optional
// .nocode.yaml project file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/vallerance/no-code/internal/alias"
)

const (
	// DefaultCompilerConfig is searched for first.
	DefaultCompilerConfig = "tsconfig.app.json"
	// FallbackCompilerConfig is used when no DefaultCompilerConfig exists.
	FallbackCompilerConfig = "tsconfig.json"

	maxExtendsDepth = 16
)

// ErrNotFound is returned when no compiler config exists above a directory.
var ErrNotFound = errors.New("config: compiler config not found")

// CompilerOptions is the subset of tsconfig compilerOptions that affects
// module resolution.
type CompilerOptions struct {
	// Path is the config file that was loaded.
	Path string
	// BaseURL is absolute, or empty when unset.
	BaseURL string
	// PathsBase is the directory "paths" targets are relative to.
	PathsBase string
	// Paths keeps declaration order.
	Paths []alias.Mapping

	pathsDir string
}

// Aliases builds the alias trie for these options.
func (o *CompilerOptions) Aliases() *alias.Trie {
	if o == nil || len(o.Paths) == 0 {
		return nil
	}
	return alias.Build(o.PathsBase, o.Paths)
}

// FindCompilerConfig walks upward from dir looking for name. An empty name
// tries DefaultCompilerConfig and then FallbackCompilerConfig in every
// directory.
func FindCompilerConfig(dir, name string) (string, error) {
	names := []string{name}
	if name == "" {
		names = []string{DefaultCompilerConfig, FallbackCompilerConfig}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, n := range names {
			candidate := filepath.Join(dir, n)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// LoadCompilerOptions reads path and every config it extends. Values in
// path override inherited ones.
func LoadCompilerOptions(path string) (*CompilerOptions, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	opts := &CompilerOptions{Path: abs}
	if err := loadInto(opts, abs, 0); err != nil {
		return nil, err
	}
	switch {
	case opts.BaseURL != "":
		opts.PathsBase = opts.BaseURL
	case opts.pathsDir != "":
		opts.PathsBase = opts.pathsDir
	default:
		opts.PathsBase = filepath.Dir(abs)
	}
	return opts, nil
}

type rawCompilerConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string       `json:"baseUrl"`
		Paths   *orderedPaths `json:"paths"`
	} `json:"compilerOptions"`
}

func loadInto(opts *CompilerOptions, path string, depth int) error {
	if depth > maxExtendsDepth {
		return fmt.Errorf("config: %s: extends chain too deep", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	data, err = StripJSONC(data)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	var raw rawCompilerConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, parent := range extendsList(raw.Extends) {
		if !strings.HasPrefix(parent, ".") && !filepath.IsAbs(parent) {
			// Package configs would need node_modules resolution.
			continue
		}
		parentPath := parent
		if !filepath.IsAbs(parentPath) {
			parentPath = filepath.Join(dir, parent)
		}
		if filepath.Ext(parentPath) != ".json" {
			parentPath += ".json"
		}
		if err := loadInto(opts, parentPath, depth+1); err != nil {
			return err
		}
	}

	if raw.CompilerOptions.BaseURL != nil {
		opts.BaseURL = filepath.Join(dir, *raw.CompilerOptions.BaseURL)
	}
	if raw.CompilerOptions.Paths != nil {
		opts.Paths = *raw.CompilerOptions.Paths
		opts.pathsDir = dir
	}
	return nil
}

func extendsList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// orderedPaths decodes a "paths" object without losing key order, which
// decides alias precedence for identical prefixes.
type orderedPaths []alias.Mapping

func (p *orderedPaths) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("paths: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("paths: expected key, got %v", tok)
		}
		var targets []string
		if err := dec.Decode(&targets); err != nil {
			return fmt.Errorf("paths[%q]: %w", key, err)
		}
		*p = append(*p, alias.Mapping{Pattern: key, Targets: targets})
	}
	_, err = dec.Token()
	return err
}

// StripJSONC removes comments and trailing commas so that tsconfig files
// can be fed to encoding/json.
func StripJSONC(data []byte) ([]byte, error) {
	return hujson.Standardize(bytes.Clone(data))
}
