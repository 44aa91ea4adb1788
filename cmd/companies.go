package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/merlin/internal/store"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Inspect stored scores",
	Long:  "Commands for listing the stored leaderboard and viewing a single company's latest score.",
}

// -- companies list --

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored leaderboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runID, _ := cmd.Flags().GetString("run-id")
		minTotal, _ := cmd.Flags().GetFloat64("min-total")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		scores, err := st.ListScores(ctx, store.ScoreFilter{RunID: runID, MinTotal: minTotal, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "companies list")
		}

		if asJSON {
			return writeJSON(os.Stdout, scores)
		}
		if len(scores) == 0 {
			fmt.Fprintln(os.Stderr, "No scores found.")
			return nil
		}

		formatCompaniesList(os.Stdout, scores)
		return nil
	},
}

// -- companies show --

var companiesShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Show the latest scored record for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := st.GetScore(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "companies show")
		}
		return writeJSON(os.Stdout, sc)
	},
}

func formatCompaniesList(out io.Writer, scores []store.StoredScore) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tDOMAIN\tSTAGE\tTOTAL\tTEAM\tMARKET\tFUNDING\tRUN\tSCORED")
	fmt.Fprintln(w, "-\t----\t------\t-----\t-----\t----\t------\t-------\t---\t------")
	for i, s := range scores {
		r := s.Record
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
			i+1,
			truncate(r.Name, 30),
			r.WebsiteDomain,
			r.Stage,
			r.Scores.Total, r.Scores.Team, r.Scores.Market, r.Scores.Funding,
			shortID(s.RunID),
			s.ScoredAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush() //nolint:errcheck
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	companiesListCmd.Flags().String("run-id", "", "list one run instead of the latest score per company")
	companiesListCmd.Flags().Float64("min-total", 0, "only companies at or above this total")
	companiesListCmd.Flags().Int("limit", 50, "max companies to show")
	companiesListCmd.Flags().Bool("json", false, "print JSON instead of a table")

	companiesCmd.AddCommand(companiesListCmd)
	companiesCmd.AddCommand(companiesShowCmd)
	rootCmd.AddCommand(companiesCmd)
}
