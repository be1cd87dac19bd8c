package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	nocode "github.com/vallerance/no-code"
)

var (
	flagForce    bool
	flagTSConfig string
	flagSerial   bool
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build the call graph of a project",
	Long:  "Parses the project's source files, resolves calls across modules and replaces the call graph in the database. The build is skipped when nothing changed since the last one, unless --force is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and rebuild from scratch")
	buildCmd.Flags().StringVar(&flagTSConfig, "tsconfig", "", "compiler config file name, searched upward from the project (default: tsconfig.app.json, then tsconfig.json)")
	buildCmd.Flags().BoolVar(&flagSerial, "serial", false, "parse files one at a time")
}

// engineOptions returns the engine options selected by build flags.
func engineOptions() []nocode.Option {
	opts := []nocode.Option{nocode.WithLogger(newLogger())}
	if flagTSConfig != "" {
		opts = append(opts, nocode.WithConfigName(flagTSConfig))
	}
	if flagSerial {
		opts = append(opts, nocode.WithParallel(false))
	}
	return opts
}

// createEngine opens (or creates) the database for the project at
// targetDir.
func createEngine(targetDir string) (*nocode.Engine, string, error) {
	dbPath := resolveDBPath(findRepoRoot(targetDir))
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", dbDir, err)
	}
	e, err := nocode.New(dbPath, engineOptions()...)
	if err != nil {
		return nil, "", fmt.Errorf("creating engine: %w", err)
	}
	return e, dbPath, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("build", err)
	}

	if flagForce {
		dbPath := resolveDBPath(findRepoRoot(targetDir))
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return outputError("build", fmt.Errorf("removing database for --force: %w", err))
		}
	}

	e, dbPath, err := createEngine(targetDir)
	if err != nil {
		return outputError("build", err)
	}
	defer e.Close()

	summary, err := buildProject(cmd.Context(), e, targetDir, !flagForce)
	if err != nil {
		return outputError("build", err)
	}
	summary.Database = dbPath
	return outputResult(CLIResult{Command: "build", Results: summary})
}

// buildProject builds targetDir unless checkFresh is set and the stored
// graph is already current, and prints a one-line summary to stderr.
func buildProject(ctx context.Context, e *nocode.Engine, targetDir string, checkFresh bool) (CLIBuildSummary, error) {
	if checkFresh {
		fresh, err := e.Fresh(targetDir)
		if err != nil {
			return CLIBuildSummary{}, err
		}
		if fresh {
			st, err := e.Query().Stats()
			if err != nil {
				return CLIBuildSummary{}, err
			}
			fmt.Fprintf(stderr, "Up to date: %s\n", targetDir)
			return CLIBuildSummary{
				Root:        targetDir,
				Fresh:       true,
				Files:       st.Files,
				Definitions: st.Definitions,
				Synthetic:   st.Synthetic,
				Blocks:      st.Blocks,
				Calls:       st.Calls,
				Diagnostics: st.Diagnostics,
			}, nil
		}
	}

	res, err := e.Build(ctx, targetDir)
	if err != nil {
		return CLIBuildSummary{}, err
	}
	fmt.Fprintf(stderr, "Built %s in %s (%d files, %d definitions, %d calls, %d diagnostics)\n",
		res.Root,
		res.Duration.Round(time.Millisecond),
		res.Files,
		res.Definitions,
		res.Calls,
		len(res.Diagnostics),
	)
	return CLIBuildSummary{
		Root:        res.Root,
		Files:       res.Files,
		Parsed:      res.Parsed,
		Skipped:     res.Skipped,
		Definitions: res.Definitions,
		Synthetic:   res.Synthetic,
		Blocks:      res.Blocks,
		Calls:       res.Calls,
		Diagnostics: len(res.Diagnostics),
		DurationMS:  res.Duration.Milliseconds(),
	}, nil
}
