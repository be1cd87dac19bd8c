package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vallerance/no-code/internal/config"
	"github.com/vallerance/no-code/internal/syntax"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild the call graph whenever sources or configuration change",
	Long:  "Builds the project once, then watches it and rebuilds after each burst of changes to source files, tsconfig files or .nocode.yaml. Stops on interrupt.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 200*time.Millisecond, "quiet period before rebuilding")
	watchCmd.Flags().StringVar(&flagTSConfig, "tsconfig", "", "compiler config file name, searched upward from the project")
	watchCmd.Flags().BoolVar(&flagSerial, "serial", false, "parse files one at a time")
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("watch", err)
	}
	e, _, err := createEngine(targetDir)
	if err != nil {
		return outputError("watch", err)
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild := func() {
		summary, err := buildProject(ctx, e, targetDir, true)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s\n", err)
			return
		}
		if !summary.Fresh {
			_ = outputResult(CLIResult{Command: "build", Results: summary})
		}
	}
	rebuild()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return outputError("watch", fmt.Errorf("creating watcher: %w", err))
	}
	defer w.Close()
	if err := addWatchDirs(w, targetDir); err != nil {
		return outputError("watch", err)
	}

	fmt.Fprintf(stderr, "Watching %s\n", targetDir)
	return watchLoop(ctx, w, flagDebounce, rebuild)
}

// watchLoop rebuilds once per burst of relevant events, after debounce of
// quiet. It returns nil when ctx is done.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, rebuild func()) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !ignoredDir(ev.Name) {
					_ = addWatchDirs(w, ev.Name)
				}
			}
			if ev.Has(fsnotify.Chmod) || !relevantChange(ev.Name) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(stderr, "watch: %s\n", err)
		case <-timer.C:
			rebuild()
		}
	}
}

// addWatchDirs watches root and every directory below it that a build
// would descend into.
func addWatchDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// ignoredDir reports whether a directory is hidden or a dependency tree.
func ignoredDir(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// relevantChange reports whether a change to path can alter the graph.
func relevantChange(path string) bool {
	name := filepath.Base(path)
	if name == config.ProjectFile || (strings.HasPrefix(name, "tsconfig") && strings.HasSuffix(name, ".json")) {
		return true
	}
	_, ok := syntax.LanguageForFile(path)
	return ok
}
