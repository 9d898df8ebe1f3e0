package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var (
	similarChunkID   string
	similarScan      bool
	similarCrossRepo bool
	similarThreshold float64
	similarLimit     int
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find near-duplicate chunks, point-mode or whole-index scan (spec.md §4.8)",
	Long: `With --chunk-id, ranks the index by similarity to that one chunk.
With --scan, clusters the whole index into near-duplicate groups via
union-find over pairwise neighbor edges.`,
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().StringVar(&similarChunkID, "chunk-id", "", "point-mode: find chunks similar to this chunk ID")
	similarCmd.Flags().BoolVar(&similarScan, "scan", false, "scan-mode: cluster the whole index")
	similarCmd.Flags().BoolVar(&similarCrossRepo, "cross-repo", false, "scan-mode: only link chunks whose top-level directories differ")
	similarCmd.Flags().Float64Var(&similarThreshold, "threshold", 0.85, "minimum similarity score")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 20, "point-mode: maximum results")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if similarChunkID == "" && !similarScan {
		return fmt.Errorf("either --chunk-id or --scan is required")
	}

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

	if similarScan {
		clusters, err := eng.SimilarScan(ctx, similarThreshold, similarCrossRepo)
		if err != nil {
			return err
		}
		return printJSON(clusters)
	}

	results, err := eng.Similar(ctx, similarChunkID, similarThreshold, similarLimit)
	if err != nil {
		return err
	}
	return printJSON(results)
}
