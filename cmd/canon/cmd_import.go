package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/internal/corpus"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Load papers from JSONL files",
		Long: `Load papers from JSONL files into the database.

Each line is a JSON object with id, title, abstract and published fields
(authors, categories, updated and url are optional). Malformed lines are
logged and skipped.

Examples:
  canon import papers.jsonl
  canon import dumps/*.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var total, inserted int
			for _, path := range args {
				docs, err := corpus.LoadFromJSONL(path, a.logger)
				if err != nil {
					return err
				}
				n, err := a.upsertDocs(cmd, docs)
				if err != nil {
					return err
				}
				a.logger.Info("imported file", "path", path, "papers", len(docs), "new", n)
				total += len(docs)
				inserted += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d papers (%d new)\n", total, inserted)
			return nil
		},
	}
}
