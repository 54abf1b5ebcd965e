package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/pkg/canon/config"
	"github.com/cognicore/canon/pkg/canon/maintenance"
	"github.com/cognicore/canon/pkg/canon/store"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run the cleaning pass over stored abstracts",
		Long: `Lowercase each stored abstract, strip LaTeX, citations and digits,
drop stopwords and short tokens, and store the space-joined result.

Run it again after editing the stoplist; only changed abstracts are written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			comp, err := config.NewLoader(a.cfg.Cleaning).Load()
			if err != nil {
				return err
			}
			a.logger.Debug("cleaning resources loaded", "stopwords", comp.Stoplist.Len(), "lexicon", comp.Lexicon != nil)

			cleaner := maintenance.Cleaner{
				Store:   a.store,
				Cleaner: comp.Cleaner,
				Filter:  store.PaperFilter{Category: category},
				Workers: a.cfg.Cleaning.Workers,
				Logger:  a.logger,
			}
			res, err := cleaner.Clean(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %d papers (%d updated, %d errors)\n", res.Processed, res.Updated, res.Errors)
			return nil
		},
	}
	cmd.Flags().String("category", "", "Only clean papers in this category")
	return cmd
}
