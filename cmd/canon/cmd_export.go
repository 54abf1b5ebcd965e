package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/internal/corpus"
	"github.com/cognicore/canon/pkg/canon"
	"github.com/cognicore/canon/pkg/canon/ingest"
	"github.com/cognicore/canon/pkg/canon/maintenance"
	"github.com/cognicore/canon/pkg/canon/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a canonical map or the stored papers",
	}
	cmd.AddCommand(newExportLexiconCmd(), newExportPapersCmd())
	return cmd
}

// streamWriter sends an export to an io.Writer.
type streamWriter struct {
	w io.Writer
}

func (s streamWriter) WriteMap(ctx context.Context, content string) error {
	_, err := io.WriteString(s.w, content)
	return err
}

func newExportLexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Write a run's canonical map as lexicon YAML",
		Long: `Write a run's canonical map in the lexicon YAML format. Point
cleaning.lexicon at the file to fold the groups in during cleaning.

Examples:
  canon export lexicon > lexicon.yaml
  canon export lexicon --run 01HV3K5X2Y9M4N7P8Q1R2S3T4U -o lexicon.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run")
			out, _ := cmd.Flags().GetString("output")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := canon.New(canon.Options{Config: a.cfg, Store: a.store, Logger: a.logger})
			if err != nil {
				return err
			}
			run, _, err := engine.LoadRun(cmd.Context(), runID)
			if err != nil {
				return err
			}

			var writer maintenance.MapWriter = streamWriter{cmd.OutOrStdout()}
			if out != "" {
				writer = maintenance.FileWriter(out)
			}
			exporter := maintenance.MapExporter{Writer: writer}
			return exporter.Export(cmd.Context(), run)
		},
	}
	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newExportPapersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papers",
		Short: "Write stored papers as JSONL",
		Long: `Write stored papers as JSONL, the format read by 'canon import'.
With --text cleaned or --text rewritten the abstract field carries the
processed text instead of the original.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			text, _ := cmd.Flags().GetString("text")
			out, _ := cmd.Flags().GetString("output")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := store.PaperFilter{Category: category}
			switch text {
			case "abstract":
			case "cleaned", "rewritten":
				filter.CleanedOnly = true
			default:
				return fmt.Errorf("unknown --text %q (want abstract, cleaned or rewritten)", text)
			}

			papers, err := a.store.ListPapers(cmd.Context(), filter)
			if err != nil {
				return err
			}
			docs := make([]ingest.Doc, 0, len(papers))
			for _, p := range papers {
				d := docFromPaper(p)
				switch text {
				case "cleaned":
					d.Abstract = p.Cleaned
				case "rewritten":
					if p.Rewritten == "" {
						continue
					}
					d.Abstract = p.Rewritten
				}
				docs = append(docs, d)
			}

			if out == "" {
				return corpus.Write(cmd.OutOrStdout(), docs)
			}
			if err := corpus.WriteFile(out, docs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d papers to %s\n", len(docs), out)
			return nil
		},
	}
	cmd.Flags().String("category", "", "Only export papers in this category")
	cmd.Flags().String("text", "abstract", "Abstract text to export: abstract, cleaned or rewritten")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}
