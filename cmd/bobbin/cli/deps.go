package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var (
	depsReverse bool
	depsBoth    bool
)

// depsOutput mirrors the original bobbin CLI's deps command: imports
// and/or dependents for one file, shaped for --reverse/--both.
type depsOutput struct {
	File       string   `json:"file"`
	Imports    []string `json:"imports,omitempty"`
	Dependents []string `json:"dependents,omitempty"`
}

var depsCmd = &cobra.Command{
	Use:   "deps <file_path>",
	Short: "Show a file's resolved import dependencies and/or dependents",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().BoolVarP(&depsReverse, "reverse", "r", false, "show dependents (files that import this file) instead of imports")
	depsCmd.Flags().BoolVarP(&depsBoth, "both", "b", false, "show both imports and dependents")
}

func runDeps(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root, err := repoRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromDir(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	eng, err := engine.Open(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()

	out := depsOutput{File: args[0]}
	if depsBoth || !depsReverse {
		out.Imports, err = eng.Dependencies(ctx, args[0])
		if err != nil {
			return err
		}
	}
	if depsBoth || depsReverse {
		out.Dependents, err = eng.Dependents(ctx, args[0])
		if err != nil {
			return err
		}
	}
	return printJSON(out)
}
