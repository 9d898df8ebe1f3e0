package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobbin-dev/bobbin/internal/assembler"
	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/engine"
)

var (
	assembleMaxLines          int
	assembleDepth             int
	assembleMaxCoupled        int
	assembleCouplingThreshold float64
	assembleLimit             int
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <text>",
	Short: "Assemble a budget-bounded context bundle for a query (spec.md §4.7)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssemble,
}

func init() {
	rootCmd.AddCommand(assembleCmd)
	assembleCmd.Flags().IntVar(&assembleMaxLines, "max-lines", assembler.DefaultMaxLines, "line budget for the assembled bundle")
	assembleCmd.Flags().IntVar(&assembleDepth, "depth", assembler.DefaultDepth, "coupling expansion depth")
	assembleCmd.Flags().IntVar(&assembleMaxCoupled, "max-coupled", assembler.DefaultMaxCoupled, "maximum coupled files pulled in per direct hit")
	assembleCmd.Flags().Float64Var(&assembleCouplingThreshold, "coupling-threshold", assembler.DefaultCouplingThreshold, "minimum coupling score to expand along")
	assembleCmd.Flags().IntVarP(&assembleLimit, "limit", "n", 10, "maximum direct hits to seed assembly from")
}

func runAssemble(cmd *cobra.Command, args []string) error {
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

	opts := assembler.Options{
		MaxLines:          assembleMaxLines,
		Depth:             assembleDepth,
		MaxCoupled:        assembleMaxCoupled,
		CouplingThreshold: assembleCouplingThreshold,
	}
	result, err := eng.Assemble(ctx, args[0], assembleLimit, opts)
	if err != nil {
		return err
	}
	return printJSON(result)
}
