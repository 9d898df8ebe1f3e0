package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var (
	relatedLimit     int
	relatedThreshold float64
)

var relatedCmd = &cobra.Command{
	Use:   "related <file_path>",
	Short: "Show a file's top temporal coupling partners (spec.md §4.4 get_coupling)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)
	relatedCmd.Flags().IntVarP(&relatedLimit, "limit", "n", 10, "maximum related files")
	relatedCmd.Flags().Float64Var(&relatedThreshold, "threshold", 0, "minimum coupling score")
}

func runRelated(cmd *cobra.Command, args []string) error {
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

	partners, err := eng.Coupling(ctx, args[0], relatedLimit)
	if err != nil {
		return err
	}

	filtered := partners[:0]
	for _, p := range partners {
		if p.Score >= relatedThreshold {
			filtered = append(filtered, p)
		}
	}
	return printJSON(filtered)
}
