package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/analyze"
	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var (
	impactDepth     int
	impactMode      string
	impactThreshold float64
	impactLimit     int
)

var impactCmd = &cobra.Command{
	Use:   "impact <file_path>",
	Short: "Estimate which files a change to file_path is likely to affect (spec.md §4.8)",
	Args:  cobra.ExactArgs(1),
	RunE:  runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
	impactCmd.Flags().IntVar(&impactDepth, "depth", 2, "coupling/dependency traversal depth")
	impactCmd.Flags().StringVar(&impactMode, "mode", string(analyze.ImpactCombined), "scoring mode: coupling, semantic, dependents, combined")
	impactCmd.Flags().Float64Var(&impactThreshold, "threshold", 0.1, "minimum score to include a result")
	impactCmd.Flags().IntVarP(&impactLimit, "limit", "n", 20, "maximum results")
}

func runImpact(cmd *cobra.Command, args []string) error {
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

	results, err := eng.Impact(ctx, args[0], impactDepth, analyze.ImpactMode(impactMode), impactThreshold, impactLimit)
	if err != nil {
		return err
	}
	return printJSON(results)
}
