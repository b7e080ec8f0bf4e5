// Command infinite-context is the CLI surface over the memory store: install
// the hooks into a host's settings, inspect and search archived memories,
// prune, and serve the dashboard.
//
// File layout mirrors the per-command-file convention this CLI's commands
// are grounded on: main.go wires the root command and global flags; each
// other file holds one command family.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "infinite-context",
	Short: "Persistent conversational memory for a coding assistant",
	Long: `infinite-context archives a coding assistant's transcripts into a
searchable, decaying, per-project memory store, and restores relevant
context back into new sessions, subagents, and prompts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		installCmd,
		uninstallCmd,
		statusCmd,
		searchCmd,
		exportCmd,
		pruneCmd,
		dashboardCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
