package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "canon",
		Short: "Vocabulary canonicalization for scientific abstracts",
		Long: `canon fetches paper abstracts, cleans them, and finds groups of
near-duplicate terms (galaxy/galaxies, red-shift/redshift) that should be
treated as one canonical token.

Typical workflow:
  canon fetch --category astro-ph.GA --max 2000
  canon clean
  canon build
  canon show clusters
  canon apply`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to canon.yaml")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides store.path)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newFetchCmd(),
		newImportCmd(),
		newCleanCmd(),
		newBuildCmd(),
		newApplyCmd(),
		newShowCmd(),
		newExportCmd(),
		newStopwordsCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "canon version %s\n", version)
		},
	}
}
