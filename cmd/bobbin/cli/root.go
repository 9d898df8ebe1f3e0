// Package cli implements Bobbin's command-line surface, grounded on
// project-cortex's internal/cli package: a base rootCmd with
// cobra.OnInitialize config loading, each subcommand in its own file
// calling rootCmd.AddCommand from init.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "bobbin",
	Short: "Bobbin - local-first hybrid code-context retrieval",
	Long: `Bobbin indexes a repository's source and docs into a hybrid
semantic + keyword search index, and assembles budget-bounded context
bundles for a query, plus impact/similarity/reference analysis over
the same index.`,
}

// Execute adds every child command to rootCmd and runs it. Called once
// from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path; not read: every command loads .bobbin/config.toml in the working directory")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig exists only to match cobra's OnInitialize convention;
// internal/config.Loader does the actual per-repo config load, since
// Bobbin's config lives under the target repo (.bobbin/config.toml),
// not the user's home directory.
func initConfig() {}

// repoRoot returns the working directory every subcommand treats as
// the repository root.
func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}
