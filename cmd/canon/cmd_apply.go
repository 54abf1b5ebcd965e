package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/pkg/canon"
	"github.com/cognicore/canon/pkg/canon/maintenance"
	"github.com/cognicore/canon/pkg/canon/store"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Rewrite cleaned abstracts with a run's canonical map",
		Long: `Replace every token of each cleaned abstract by its canonical form and
store the rewritten text. Uses the latest run unless --run is given.

Examples:
  canon apply
  canon apply --run 01HV3K5X2Y9M4N7P8Q1R2S3T4U`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run")
			category, _ := cmd.Flags().GetString("category")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			unlock, err := a.lock()
			if err != nil {
				return err
			}
			defer unlock()

			engine, err := canon.New(canon.Options{Config: a.cfg, Store: a.store, Logger: a.logger})
			if err != nil {
				return err
			}
			run, lex, err := engine.LoadRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			a.logger.Info("applying canonical map", "run", run.ID, "groups", lex.Stats().Groups)

			rewriter := maintenance.Rewriter{
				Store:   a.store,
				Lexicon: lex,
				Filter:  store.PaperFilter{Category: category},
				Logger:  a.logger,
			}
			res, err := rewriter.Rewrite(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rewrote %d papers with run %s (%d updated, %d errors)\n",
				res.Processed, run.ID, res.Updated, res.Errors)
			return nil
		},
	}
	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().String("category", "", "Only rewrite papers in this category")
	return cmd
}
