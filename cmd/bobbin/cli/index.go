package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/bobbinerr"
	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the repository for hybrid code-context retrieval",
	Long: `Index walks the repository, chunks source and docs (tree-sitter
where a grammar is registered, line-window otherwise), embeds each
chunk, and writes the vector+FTS and metadata stores under .bobbin/.

A repeat run re-chunks changed files and replays git history into the
temporal coupling table (spec.md §4.1, §4.5).`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Cancelling indexing...")
		cancel()
	}()

	root, err := repoRoot()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromDir(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !quietFlag {
		fmt.Println("Opening stores...")
	}
	eng, err := engine.Open(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()

	if !quietFlag {
		fmt.Println("✓ Stores ready")
	}

	var stats engine.IngestStats
	sp := newSpinner(quietFlag, "Indexing")
	runErr := sp.run(func() error {
		var ingestErr error
		stats, ingestErr = eng.Ingest(ctx)
		return ingestErr
	})
	if runErr != nil {
		var be *bobbinerr.Error
		if bobbinerr.As(runErr, &be) {
			return fmt.Errorf("indexing failed: %s", be.Error())
		}
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", runErr)
	}

	if !quietFlag {
		fmt.Printf("\n✓ Indexing complete:\n")
		fmt.Printf("  Files: %d walked, %d chunked\n", stats.FilesWalked, stats.FilesChunked)
		fmt.Printf("  Chunks: %d written, %d import edges\n", stats.ChunksWritten, stats.ImportsWritten)
		if stats.CommitsWalked > 0 {
			fmt.Printf("  Git coupling: %d commits walked, %d coupling edges\n", stats.CommitsWalked, stats.CouplingEdges)
		}
	} else {
		fmt.Printf("Indexing complete: %d chunks\n", stats.ChunksWritten)
	}

	return nil
}
