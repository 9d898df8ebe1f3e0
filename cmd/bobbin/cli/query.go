package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/bobbinerr"
	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/search"
)

var (
	queryMode       string
	queryLimit      int
	queryChunkType  string
	queryPathPrefix string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a hybrid, semantic, or keyword search against the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryMode, "mode", string(search.ModeHybrid), "search mode: hybrid, semantic, keyword")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 10, "maximum results")
	queryCmd.Flags().StringVar(&queryChunkType, "chunk-type", "", "filter by chunk type (function, method, class, struct, enum, interface, module, impl, trait, doc, section, table, code_block, commit, issue, other)")
	queryCmd.Flags().StringVar(&queryPathPrefix, "path-prefix", "", "filter by file_path prefix")
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	filters := search.Filters{PathPrefix: queryPathPrefix}
	if queryChunkType != "" {
		filters.ChunkType = model.ChunkType(queryChunkType)
	}

	hits, err := eng.Query(ctx, args[0], search.Mode(queryMode), queryLimit, filters)
	if err != nil {
		var be *bobbinerr.Error
		if bobbinerr.As(err, &be) && be.Kind == bobbinerr.KindEmptyIndex {
			fmt.Fprintln(os.Stderr, "index is empty; run `bobbin index` first")
			return nil
		}
		return err
	}

	return printJSON(hits)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
