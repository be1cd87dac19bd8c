package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	nocode "github.com/vallerance/no-code"
	"github.com/vallerance/no-code/internal/runtime"
	"github.com/vallerance/no-code/scripts"
)

var (
	flagScriptsDir string
	flagScriptArgs map[string]string
)

var runScriptCmd = &cobra.Command{
	Use:   "run-script <name|path>",
	Short: "Run a Risor script against the call graph",
	Long: `Runs a Risor script with read access to the built call graph.

A path to an existing file runs that file. Otherwise the name is looked up in
--scripts-dir, or among the embedded scripts, where a bare name such as
"summary" or "dot" refers to report/<name>.risor.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	runScriptCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")
	runScriptCmd.Flags().StringToStringVar(&flagScriptArgs, "arg", nil, "extra script globals as key=value")
}

func runScript(cmd *cobra.Command, args []string) error {
	name, opts, err := scriptSource(args[0])
	if err != nil {
		return outputError("run-script", err)
	}

	e, err := openEngine(opts...)
	if err != nil {
		return outputError("run-script", err)
	}
	defer e.Close()

	extras := make(map[string]any, len(flagScriptArgs))
	for k, v := range flagScriptArgs {
		extras[k] = v
	}
	if err := e.RunScript(cmd.Context(), name, extras); err != nil {
		return outputError("run-script", err)
	}
	return nil
}

// scriptSource decides where a script argument is loaded from and returns
// the name to pass to the engine.
func scriptSource(arg string) (string, []nocode.Option, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", nil, fmt.Errorf("resolving script %q: %w", arg, err)
		}
		return abs, nil, nil
	}
	if flagScriptsDir != "" {
		return arg, []nocode.Option{nocode.WithScriptsDir(flagScriptsDir)}, nil
	}
	name := arg
	if !strings.Contains(name, "/") {
		name = runtime.ReportScriptPath(strings.TrimSuffix(name, ".risor"))
	}
	return name, []nocode.Option{nocode.WithScriptsFS(scripts.FS)}, nil
}
