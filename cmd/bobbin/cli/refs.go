package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var refsLimit int

var refsCmd = &cobra.Command{
	Use:   "refs <symbol>",
	Short: "Find a symbol's definition and usages across the index (spec.md §4.8)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)
	refsCmd.Flags().IntVarP(&refsLimit, "limit", "n", 50, "maximum references")
}

func runRefs(cmd *cobra.Command, args []string) error {
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

	refs, err := eng.FindRefs(ctx, args[0], refsLimit)
	if err != nil {
		return err
	}
	return printJSON(refs)
}
