package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print index size and dimensionality",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	stats, err := eng.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Chunks:     %d\n", stats.ChunkCount)
	fmt.Printf("Files:      %d\n", stats.FileCount)
	fmt.Printf("Dimensions: %d\n", stats.Dimensions)
	return nil
}
