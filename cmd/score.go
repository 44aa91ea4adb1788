package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/config"
	"github.com/sells-group/merlin/internal/ingest"
	"github.com/sells-group/merlin/internal/notify"
	"github.com/sells-group/merlin/internal/pipeline"
	"github.com/sells-group/merlin/internal/scorer"
	"github.com/sells-group/merlin/internal/store"
)

// publishOptions controls what happens to a scored batch.
type publishOptions struct {
	Format         string
	Output         string
	Save           bool
	Notify         bool
	Limit          int
	SkipUnenriched bool
	Concurrency    int
}

var scoreOpts publishOptions
var scoreWeights string

var scoreCmd = &cobra.Command{
	Use:   "score <raw-snapshot>",
	Short: "Score a raw snapshot and print the leaderboard",
	Long:  "Replays a snapshot written by `merlin enrich`: maps each vendor payload, builds features, scores every company and ranks them by composite score.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeScore); err != nil {
			return err
		}
		if err := checkFormat(scoreOpts.Format); err != nil {
			return err
		}

		w, err := loadWeights(scoreWeights)
		if err != nil {
			return err
		}

		rows, err := ingest.ReadRawFile(ctx, args[0])
		if err != nil {
			return err
		}

		_, err = scoreAndPublish(ctx, nil, rows, w, scoreOpts)
		return err
	},
}

// scoreAndPublish scores rows and then writes, saves and announces the
// leaderboard as opts asks. A nil st is opened from config when saving.
func scoreAndPublish(ctx context.Context, st store.Store, rows []ingest.RawRow, w scorer.Weights, opts publishOptions) (*pipeline.BatchResult, error) {
	result, err := pipeline.ScoreAll(ctx, rows, w, pipeline.BatchOptions{
		Concurrency:    concurrency(opts.Concurrency),
		SkipUnenriched: opts.SkipUnenriched || cfg.Scoring.SkipUnenriched,
	})
	if err != nil {
		return nil, err
	}

	if err := writeOutput(opts, result); err != nil {
		return result, err
	}

	fmt.Fprintf(os.Stderr, "Scored %d companies (%d failed, %d skipped)\n",
		len(result.Records), len(result.Failures), result.Skipped)
	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "  failed: %s: %s\n", f.Company.Name, f.Error)
	}

	if opts.Save {
		if st == nil {
			st, err = initStore(ctx)
			if err != nil {
				return result, err
			}
			defer st.Close() //nolint:errcheck
		}
		runID, err := saveRun(ctx, st, result)
		if err != nil {
			return result, err
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", runID)
	}

	if opts.Notify {
		if err := notify.New(cfg.Notify).SendLeaderboard(ctx, result.Records); err != nil {
			return result, err
		}
	}

	return result, nil
}

func writeOutput(opts publishOptions, result *pipeline.BatchResult) error {
	var out io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return eris.Wrapf(err, "create output %s", opts.Output)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	records := result.Records
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	if err := pipeline.WriteRecords(out, records, opts.Format); err != nil {
		return err
	}

	// The table already went to stdout; otherwise show the short leaderboard.
	if opts.Output != "" || !isTable(opts.Format) {
		fmt.Fprint(os.Stderr, pipeline.FormatLeaderboard(result.Records, leaderboardSize(opts.Limit)))
	}
	return nil
}

func saveRun(ctx context.Context, st store.Store, result *pipeline.BatchResult) (string, error) {
	runID := newRunID()
	if err := st.SaveScores(ctx, runID, result.Records); err != nil {
		return "", err
	}
	zap.L().Info("scores saved", zap.String("run_id", runID), zap.Int("count", len(result.Records)))
	return runID, nil
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "", pipeline.FormatTable, pipeline.FormatCSV, pipeline.FormatJSON:
		return nil
	default:
		return eris.Errorf("unknown format %q (want table, csv or json)", format)
	}
}

func isTable(format string) bool {
	f := strings.ToLower(format)
	return f == "" || f == pipeline.FormatTable
}

func leaderboardSize(limit int) int {
	if limit > 0 {
		return limit
	}
	return notify.DefaultTopN
}

func addPublishFlags(cmd *cobra.Command, opts *publishOptions, weights *string) {
	cmd.Flags().StringVarP(&opts.Format, "format", "f", pipeline.FormatTable, "output format: table, csv or json")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write records to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "persist scores to the configured store")
	cmd.Flags().BoolVar(&opts.Notify, "notify", false, "post the leaderboard to Slack")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only output the top N companies")
	cmd.Flags().BoolVar(&opts.SkipUnenriched, "skip-unenriched", false, "leave out companies Harmonic did not find")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "parallel scoring workers (default from config)")
	cmd.Flags().StringVar(weights, "weights", "", "YAML weights file (default from config)")
}

func init() {
	addPublishFlags(scoreCmd, &scoreOpts, &scoreWeights)
	rootCmd.AddCommand(scoreCmd)
}
