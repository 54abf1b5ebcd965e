package main

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/pkg/canon/config"
	"github.com/cognicore/canon/pkg/canon/stoplist"
	"github.com/cognicore/canon/pkg/canon/store"
)

func newStopwordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stopwords",
		Short: "Suggest stopwords from document frequency",
		Long: `List tokens of the cleaned abstracts that appear in more than --df percent
of the papers and are not yet stopwords. With --write the suggestions are
merged into a stoplist YAML file; re-run 'canon clean' afterwards.

Examples:
  canon stopwords --df 40
  canon stopwords --df 40 --write configs/stoplist.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dfPercent, _ := cmd.Flags().GetFloat64("df")
			write, _ := cmd.Flags().GetString("write")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			comp, err := config.NewLoader(a.cfg.Cleaning).Load()
			if err != nil {
				return err
			}
			papers, err := a.store.ListPapers(cmd.Context(), store.PaperFilter{CleanedOnly: true})
			if err != nil {
				return err
			}
			docs := make([][]string, len(papers))
			for i, p := range papers {
				docs[i] = strings.Fields(p.Cleaned)
			}

			candidates := comp.Stoplist.SuggestCandidates(stoplist.DocumentFrequencies(docs), dfPercent)
			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No new stopwords above the threshold.")
				return nil
			}
			for _, c := range candidates {
				fmt.Fprintf(out, "%-24s %5.1f%%\n", c.Token, c.Reason.DFPercent)
			}

			if write == "" {
				return nil
			}
			terms := make([]string, len(candidates))
			for i, c := range candidates {
				terms[i] = c.Token
			}
			n, err := mergeStoplist(write, terms)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Added %d terms to %s\n", n, write)
			return nil
		},
	}
	cmd.Flags().Float64("df", stoplist.DefaultDFPercent, "Document frequency threshold in percent")
	cmd.Flags().String("write", "", "Merge suggestions into this stoplist YAML file")
	return cmd
}

// mergeStoplist adds terms to the stoplist at path, creating it if needed.
// It returns how many terms were new.
func mergeStoplist(path string, terms []string) (int, error) {
	sl, err := config.LoadStoplist(path)
	if errors.Is(err, fs.ErrNotExist) {
		sl, err = &config.Stoplist{}, nil
	}
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(sl.Terms))
	for _, t := range sl.Terms {
		seen[t] = true
	}
	added := 0
	for _, t := range terms {
		if !seen[t] {
			sl.Terms = append(sl.Terms, t)
			seen[t] = true
			added++
		}
	}
	sort.Strings(sl.Terms)
	return added, config.SaveStoplist(path, sl)
}
