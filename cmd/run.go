package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/merlin/internal/config"
	"github.com/sells-group/merlin/internal/ingest"
)

var (
	runOpts     publishOptions
	runWeights  string
	runSkipRows int
	runSheet    string
	runRawOut   string
)

var runCmd = &cobra.Command{
	Use:   "run <companies-file>",
	Short: "Enrich, score and publish a company list in one pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeEnrich); err != nil {
			return err
		}
		if err := checkFormat(runOpts.Format); err != nil {
			return err
		}

		w, err := loadWeights(runWeights)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		pruneExpiredPayloads(ctx, st)

		client := newHarmonicClient(st)
		rows, _, err := enrichCompanies(ctx, client, args[0], ingestOptions(runSkipRows, runSheet), concurrency(runOpts.Concurrency))
		if err != nil {
			return err
		}

		if runRawOut != "" {
			if err := ingest.WriteRawFile(runRawOut, rows); err != nil {
				return err
			}
		}

		_, err = scoreAndPublish(ctx, st, rows, w, runOpts)
		return err
	},
}

func init() {
	addPublishFlags(runCmd, &runOpts, &runWeights)
	runCmd.Flags().IntVar(&runSkipRows, "skip-rows", 0, "preamble rows before the header")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	runCmd.Flags().StringVar(&runRawOut, "raw-output", "", "also write the raw snapshot to this path")
	rootCmd.AddCommand(runCmd)
}
