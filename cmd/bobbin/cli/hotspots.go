package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var (
	hotspotsSince     string
	hotspotsLimit     int
	hotspotsThreshold float64
)

// hotspotEntry mirrors the original bobbin CLI's hotspots command,
// minus the Rust implementation's complexity score: this repo has no
// cyclomatic-complexity analyzer, so score here is churn alone.
type hotspotEntry struct {
	FilePath string `json:"file_path"`
	Churn    int    `json:"churn"`
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Rank files by commit churn over a time window (spec.md §4.5 get_file_churn)",
	RunE:  runHotspots,
}

func init() {
	rootCmd.AddCommand(hotspotsCmd)
	hotspotsCmd.Flags().StringVar(&hotspotsSince, "since", "8760h", "lookback window, a Go duration (default ~1 year)")
	hotspotsCmd.Flags().IntVarP(&hotspotsLimit, "limit", "n", 20, "maximum hotspots to show")
	hotspotsCmd.Flags().Float64Var(&hotspotsThreshold, "threshold", 0, "minimum churn count to include")
}

func runHotspots(cmd *cobra.Command, args []string) error {
	window, err := time.ParseDuration(hotspotsSince)
	if err != nil {
		return fmt.Errorf("invalid --since duration %q: %w", hotspotsSince, err)
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

	churn, err := eng.FileChurn(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}

	entries := make([]hotspotEntry, 0, len(churn))
	for path, n := range churn {
		if float64(n) < hotspotsThreshold {
			continue
		}
		entries = append(entries, hotspotEntry{FilePath: path, Churn: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Churn != entries[j].Churn {
			return entries[i].Churn > entries[j].Churn
		}
		return entries[i].FilePath < entries[j].FilePath
	})
	if len(entries) > hotspotsLimit {
		entries = entries[:hotspotsLimit]
	}
	return printJSON(entries)
}
