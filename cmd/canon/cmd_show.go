package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/canon/pkg/canon"
	"github.com/cognicore/canon/pkg/canon/report"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Inspect runs, clusters and pairs",
	}
	cmd.AddCommand(newShowRunsCmd(), newShowClustersCmd(), newShowPairsCmd())
	return cmd
}

func newShowRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs yet. Run 'canon build' first.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderRuns(runs))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs")
	return cmd
}

func newShowClustersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Show the clusters of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run")
			limit, _ := cmd.Flags().GetInt("limit")

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
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n", run.ID)
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderClusters(report.Clusters(run), limit))
			return nil
		},
	}
	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().Int("limit", 0, "Maximum number of clusters (0 = all)")
	return cmd
}

func newShowPairsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Show the accepted pairs of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run")
			limit, _ := cmd.Flags().GetInt("limit")

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
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n", run.ID)
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderPairs(run.Pairs, limit))
			return nil
		},
	}
	cmd.Flags().String("run", "", "Run ID (default: latest)")
	cmd.Flags().Int("limit", 50, "Maximum number of pairs (0 = all)")
	return cmd
}
