package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/pkg/canon"
	"github.com/cognicore/canon/pkg/canon/report"
	"github.com/cognicore/canon/pkg/canon/store"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Find near-duplicate terms and build the canonical map",
		Long: `Count the vocabulary of the cleaned abstracts, drop rare tokens, score
every token pair by character n-gram overlap and embedding similarity,
group accepted pairs into clusters, and pick the most frequent member of
each cluster as its canonical form. The run is saved to the database.

Examples:
  canon build
  canon build --category astro-ph.GA --top 50
  canon --config canon.yaml build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			limit, _ := cmd.Flags().GetInt("limit")
			top, _ := cmd.Flags().GetInt("top")

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
			res, err := engine.BuildStored(cmd.Context(), store.PaperFilter{Category: category, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", res.RunID)
			fmt.Fprintf(out, "  documents:  %d\n", res.Stats.Docs)
			fmt.Fprintf(out, "  vocabulary: %d (%d above min_count %d)\n",
				res.Stats.VocabularySize, res.Stats.FilteredSize, a.cfg.Vocabulary.MinCount)
			fmt.Fprintf(out, "  pairs:      %d\n", res.Stats.PairCount)
			fmt.Fprintf(out, "  clusters:   %d (%d tokens rewritten)\n", res.Stats.ComponentCount, res.Stats.Rewrites)
			fmt.Fprintf(out, "  embeddings: %s\n", res.Stats.Model)

			run, _, err := engine.LoadRun(cmd.Context(), res.RunID)
			if err != nil {
				return err
			}
			if clusters := report.Clusters(run); len(clusters) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, report.RenderClusters(clusters, top))
			}
			return nil
		},
	}
	cmd.Flags().String("category", "", "Only use papers in this category")
	cmd.Flags().Int("limit", 0, "Maximum number of papers (0 = all)")
	cmd.Flags().Int("top", 20, "Clusters to print (0 = all)")
	return cmd
}
