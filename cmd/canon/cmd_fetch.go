package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/internal/arxiv"
	"github.com/cognicore/canon/internal/corpus"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download paper metadata from the arXiv API",
		Long: `Download paper metadata from the arXiv API into the database.

Archives expand to their subject classes, so --category astro-ph queries
astro-ph.CO, astro-ph.GA, astro-ph.HE and the rest. arXiv asks clients to
pause between requests; --rate-limit controls the pause.

Examples:
  canon fetch --category astro-ph.GA --from 2024-01-01 --to 2024-02-01
  canon fetch --category astro-ph --max 5000 --out papers.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, _ := cmd.Flags().GetStringSlice("category")
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")
			maxResults, _ := cmd.Flags().GetInt("max")
			start, _ := cmd.Flags().GetInt("start")
			batch, _ := cmd.Flags().GetInt("batch")
			rate, _ := cmd.Flags().GetDuration("rate-limit")
			baseURL, _ := cmd.Flags().GetString("base-url")
			out, _ := cmd.Flags().GetString("out")

			from, err := parseDate(fromFlag)
			if err != nil {
				return err
			}
			to, err := parseDate(toFlag)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if rate == 0 {
				rate = -1
			}
			client := &arxiv.Client{BaseURL: baseURL, RateLimit: rate, Logger: a.logger}
			query := arxiv.Query{
				Categories: categories,
				From:       from,
				To:         to,
				Start:      start,
				MaxResults: maxResults,
				BatchSize:  batch,
			}
			a.logger.Info("fetching from arXiv", "query", query.SearchQuery(), "max", maxResults)

			docs, fetchErr := client.Fetch(cmd.Context(), query)
			// Keep whatever arrived before a failure.
			inserted, err := a.upsertDocs(cmd, docs)
			if err != nil {
				return err
			}
			if out != "" && len(docs) > 0 {
				if err := corpus.WriteFile(out, docs); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d papers (%d new)\n", len(docs), inserted)
			return fetchErr
		},
	}

	cmd.Flags().StringSlice("category", []string{"astro-ph"}, "arXiv archives or subject classes")
	cmd.Flags().String("from", "", "Earliest submission date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Latest submission date (YYYY-MM-DD)")
	cmd.Flags().Int("max", 1000, "Maximum number of papers")
	cmd.Flags().Int("start", 0, "Result offset")
	cmd.Flags().Int("batch", arxiv.DefaultBatchSize, "Papers per request")
	cmd.Flags().Duration("rate-limit", arxiv.DefaultRateLimit, "Pause between requests (0 disables)")
	cmd.Flags().String("base-url", arxiv.DefaultBaseURL, "arXiv API endpoint")
	cmd.Flags().String("out", "", "Also write fetched papers to this JSONL file")
	return cmd
}
