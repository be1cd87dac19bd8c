package nocode

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vallerance/no-code/internal/store"
	"github.com/vallerance/no-code/internal/syntax"
)

// parsedFile is the Phase B output for one path.
type parsedFile struct {
	file *syntax.File
	hash string
}

// parseFiles reads and parses paths. In parallel mode a worker group of
// GOMAXPROCS goroutines does the work; each result is written to its own
// slot, so no locking is needed. The first error cancels the rest.
func (e *Engine) parseFiles(ctx context.Context, paths []string, parallel bool) (map[string]parsedFile, error) {
	results := make([]parsedFile, len(paths))

	limit := 1
	if parallel {
		limit = min(runtime.GOMAXPROCS(0), max(len(paths), 1))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			pf, err := e.parseFile(gctx, path)
			if err != nil {
				return fmt.Errorf("nocode: parse %s: %w", path, err)
			}
			results[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]parsedFile, len(paths))
	for i, path := range paths {
		out[path] = results[i]
	}
	return out, nil
}

func (e *Engine) parseFile(ctx context.Context, path string) (parsedFile, error) {
	if err := ctx.Err(); err != nil {
		return parsedFile{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return parsedFile{}, fmt.Errorf("read file: %w", err)
	}
	f, err := syntax.ParseFile(ctx, path, content)
	if err != nil {
		return parsedFile{}, err
	}
	if f.HasErrors {
		e.logger.Debug("source file has syntax errors", "file", path)
	}
	return parsedFile{file: f, hash: store.ComputeFileHash(content)}, nil
}
