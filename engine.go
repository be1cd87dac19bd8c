package nocode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vallerance/no-code/internal/alias"
	"github.com/vallerance/no-code/internal/callgraph"
	"github.com/vallerance/no-code/internal/config"
	"github.com/vallerance/no-code/internal/runtime"
	"github.com/vallerance/no-code/internal/sourcefile"
	"github.com/vallerance/no-code/internal/store"
	"github.com/vallerance/no-code/internal/syntax"
)

// projectHashKey is the metadata key holding the hash of the last build's
// inputs.
const projectHashKey = "project_hash"

// Engine orchestrates the pipeline: file discovery, parsing, call-graph
// construction, persistence, and query and script access.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	output     io.Writer
	logger     *slog.Logger

	// parallel is nil until set by WithParallel; the project file then
	// decides, and parsing defaults to parallel.
	parallel   *bool
	skip       []string
	configName string
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel parsing. When true (default), files are
// read and parsed by a bounded worker group before the call graph is built.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.parallel = &parallel
	}
}

// WithSkip adds gitignore-style patterns for files that stay part of the
// program but are never parsed or walked.
func WithSkip(patterns ...string) Option {
	return func(e *Engine) {
		e.skip = append(e.skip, patterns...)
	}
}

// WithConfigName selects the compiler config file, searched upward from
// the project root. It overrides the project file's tsconfig setting.
func WithConfigName(name string) Option {
	return func(e *Engine) {
		e.configName = name
	}
}

// WithLogger sets the logger for build progress and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from disk. This enables embedding scripts via
// go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads Risor scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithOutput sets where scripts emit. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.output = w
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("nocode: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("nocode: migrate: %w", err)
	}

	e := &Engine{
		store:  s,
		output: os.Stdout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	rtOpts := []runtime.RuntimeOption{
		runtime.WithOutput(e.output),
		runtime.WithLogger(e.logger),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// RunScript runs a Risor script against the persisted graph. name is a
// path relative to the scripts source, with or without ".risor".
func (e *Engine) RunScript(ctx context.Context, name string, extras map[string]any) error {
	if err := e.runtime.RunScript(ctx, name, extras); err != nil {
		return fmt.Errorf("nocode: %w", err)
	}
	return nil
}

// BuildResult summarizes one Build.
type BuildResult struct {
	Root        string
	Files       int
	Parsed      int
	Skipped     int
	Definitions int
	Synthetic   int
	Blocks      int
	Calls       int
	Diagnostics []callgraph.Diagnostic
	ProjectHash string
	Duration    time.Duration

	// Graph is the in-memory graph that was persisted.
	Graph *callgraph.Graph
}

// settings are the resolved configuration of one project root.
type settings struct {
	root     string
	aliases  *alias.Trie
	skip     *sourcefile.PatternMatcher
	parallel bool
	// inputs are hashed with the file contents; a change to the compiler
	// config or skip patterns invalidates the stored graph.
	inputs []string
}

func (e *Engine) loadSettings(root string) (*settings, error) {
	project, err := config.LoadProject(root)
	if err != nil {
		return nil, fmt.Errorf("nocode: %w", err)
	}

	st := &settings{root: root, parallel: true}
	if project.Parallel != nil {
		st.parallel = *project.Parallel
	}
	if e.parallel != nil {
		st.parallel = *e.parallel
	}

	patterns := append(append([]string{}, project.Skip...), e.skip...)
	st.skip = sourcefile.NewSkipMatcher(root, patterns...)
	st.inputs = append(st.inputs, "skip:"+strings.Join(st.skip.Patterns(), ","))

	var path string
	if e.configName != "" {
		path, err = config.FindCompilerConfig(root, e.configName)
	} else {
		path, err = project.CompilerConfigPath(root)
	}
	switch {
	case errors.Is(err, config.ErrNotFound):
		e.logger.Debug("no compiler config, aliases disabled", "root", root)
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("nocode: %w", err)
	}

	opts, err := config.LoadCompilerOptions(path)
	if err != nil {
		return nil, fmt.Errorf("nocode: %w", err)
	}
	st.aliases = opts.Aliases()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nocode: read %s: %w", path, err)
	}
	st.inputs = append(st.inputs, "config:"+path+":"+store.ComputeFileHash(raw))
	e.logger.Debug("loaded compiler config", "path", path, "paths", len(opts.Paths))
	return st, nil
}

// Build discovers every TypeScript and JavaScript file under root, builds
// the call graph and replaces the persisted graph with it. Unresolvable
// references become diagnostics; Build fails only on I/O and storage
// errors.
//
// It runs in three phases:
//
//	Phase A (serial):   discover and classify files; skipped files are never read.
//	Phase B (parallel): read and parse the rest.
//	Phase C (serial):   build the call graph and commit it in one transaction.
func (e *Engine) Build(ctx context.Context, root string) (*BuildResult, error) {
	start := time.Now()

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("nocode: resolve root: %w", err)
	}
	st, err := e.loadSettings(root)
	if err != nil {
		return nil, err
	}

	// ---- Phase A: discovery ----
	paths, err := e.discover(root)
	if err != nil {
		return nil, err
	}
	var toParse []string
	for _, p := range paths {
		if !st.skip.Skip(p) {
			toParse = append(toParse, p)
		}
	}

	// ---- Phase B: parse ----
	parsed, err := e.parseFiles(ctx, toParse, st.parallel)
	if err != nil {
		return nil, err
	}

	files := make([]*syntax.File, 0, len(paths))
	hashes := make(map[string]string, len(paths))
	for _, p := range paths {
		if pf, ok := parsed[p]; ok {
			files = append(files, pf.file)
			hashes[p] = pf.hash
			continue
		}
		files = append(files, syntax.NewUnparsedFile(p))
		hashes[p] = ""
	}

	// ---- Phase C: build and commit ----
	program := syntax.NewProgram(root, files)
	session := callgraph.NewSession(program,
		callgraph.WithAliases(st.aliases),
		callgraph.WithSkip(st.skip),
		callgraph.WithLogger(e.logger),
	)
	graph := session.Build()

	batch := graphBatch(graph, hashes)
	if err := e.store.CommitBatch(batch); err != nil {
		return nil, fmt.Errorf("nocode: %w", err)
	}
	projectHash := store.ComputeProjectHash(hashes, st.inputs...)
	if err := e.store.SetMetadata(projectHashKey, projectHash); err != nil {
		return nil, fmt.Errorf("nocode: %w", err)
	}

	result := &BuildResult{
		Root:        root,
		Files:       len(paths),
		Parsed:      len(parsed),
		Skipped:     len(paths) - len(parsed),
		Blocks:      len(batch.Blocks),
		Calls:       len(batch.Calls),
		Diagnostics: graph.Diagnostics(),
		ProjectHash: projectHash,
		Duration:    time.Since(start),
		Graph:       graph,
	}
	for _, d := range batch.Definitions {
		result.Definitions++
		if d.Variant == store.VariantSynthetic {
			result.Synthetic++
		}
	}
	e.logger.Debug("build complete",
		"root", root,
		"files", result.Files,
		"definitions", result.Definitions,
		"calls", result.Calls,
		"diagnostics", len(result.Diagnostics),
		"duration", result.Duration)
	return result, nil
}

// Fresh reports whether the persisted graph was built from exactly the
// current sources and configuration under root.
func (e *Engine) Fresh(root string) (bool, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return false, fmt.Errorf("nocode: resolve root: %w", err)
	}
	stored, err := e.store.GetMetadata(projectHashKey)
	if err != nil {
		return false, fmt.Errorf("nocode: %w", err)
	}
	if stored == "" {
		return false, nil
	}

	st, err := e.loadSettings(root)
	if err != nil {
		return false, err
	}
	paths, err := e.discover(root)
	if err != nil {
		return false, err
	}
	hashes := make(map[string]string, len(paths))
	for _, p := range paths {
		if st.skip.Skip(p) {
			hashes[p] = ""
			continue
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return false, fmt.Errorf("nocode: read %s: %w", p, err)
		}
		hashes[p] = store.ComputeFileHash(content)
	}
	return store.ComputeProjectHash(hashes, st.inputs...) == stored, nil
}

// skipDirs are never descended into by the walk fallback.
var skipDirs = map[string]bool{
	"node_modules": true,
}

// discover lists the source files under root, sorted. If root is inside a
// git repository, git ls-files is used to respect .gitignore; otherwise
// the filesystem is walked.
func (e *Engine) discover(root string) ([]string, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		e.logger.Debug("git unavailable, walking directory", "root", root, "error", err)
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, fmt.Errorf("nocode: %w", err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := syntax.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available. Skips hidden directories and node_modules.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := syntax.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
