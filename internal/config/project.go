package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional per-project settings file at the repo root.
const ProjectFile = ".nocode.yaml"

// Project holds settings from ProjectFile. Every field is optional.
type Project struct {
	// TSConfig is a compiler config file name or path relative to the root.
	TSConfig string `yaml:"tsconfig"`
	// Skip adds gitignore-style patterns for files that are never parsed.
	Skip []string `yaml:"skip"`
	// Parallel overrides parallel parsing when set.
	Parallel *bool `yaml:"parallel"`
	// Database overrides the graph database path, relative to the root.
	Database string `yaml:"database"`
}

// LoadProject reads ProjectFile from root. A missing file yields an empty
// Project.
func LoadProject(root string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(root, ProjectFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", ProjectFile, err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", ProjectFile, err)
	}
	return &p, nil
}

// CompilerConfigPath locates the compiler config for root, honoring
// p.TSConfig when it is set.
func (p *Project) CompilerConfigPath(root string) (string, error) {
	if p != nil && p.TSConfig != "" {
		path := p.TSConfig
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return FindCompilerConfig(root, filepath.Base(p.TSConfig))
	}
	return FindCompilerConfig(root, "")
}
