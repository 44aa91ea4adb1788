package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/config"
	"github.com/sells-group/merlin/internal/ingest"
	"github.com/sells-group/merlin/internal/pipeline"
	"github.com/sells-group/merlin/internal/store"
	"github.com/sells-group/merlin/pkg/harmonic"
)

var (
	enrichOutput      string
	enrichSkipRows    int
	enrichSheet       string
	enrichConcurrency int
	enrichNoCache     bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <companies-file>",
	Short: "Look companies up in Harmonic and write a raw snapshot",
	Long:  "Reads a CSV or XLSX company list, queries Harmonic by website domain, and writes one {raw_company, harmonic_raw} row per company to a JSON snapshot that `merlin score` can replay.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeEnrich); err != nil {
			return err
		}

		var payloads harmonic.PayloadStore
		if !enrichNoCache {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			pruneExpiredPayloads(ctx, st)
			payloads = st
		}
		client := newHarmonicClient(payloads)

		rows, stats, err := enrichCompanies(ctx, client, args[0], ingestOptions(enrichSkipRows, enrichSheet), concurrency(enrichConcurrency))
		if err != nil {
			return err
		}

		if err := ingest.WriteRawFile(enrichOutput, rows); err != nil {
			return err
		}

		hits, misses := client.Stats()
		zap.L().Info("enrich complete",
			zap.String("output", enrichOutput),
			zap.Int("companies", len(rows)),
			zap.Int64("found", stats.Found),
			zap.Int64("not_found", stats.NotFound),
			zap.Int64("no_domain", stats.NoDomain),
			zap.Int64("failed", stats.Failed),
			zap.Int64("cache_hits", hits),
			zap.Int64("cache_misses", misses),
		)
		fmt.Fprintf(os.Stderr, "Wrote %d companies to %s (%d found, %d not found, %d without domain, %d failed)\n",
			len(rows), enrichOutput, stats.Found, stats.NotFound, stats.NoDomain, stats.Failed)
		return nil
	},
}

// enrichCompanies reads the company list at path and fetches every company
// from the vendor.
func enrichCompanies(ctx context.Context, client harmonic.Client, path string, opts ingest.Options, conc int) ([]ingest.RawRow, pipeline.FetchStats, error) {
	companies, err := ingest.ReadCompaniesFile(ctx, path, opts)
	if err != nil {
		return nil, pipeline.FetchStats{}, err
	}
	if len(companies) == 0 {
		return nil, pipeline.FetchStats{}, eris.Errorf("enrich: no companies in %s", path)
	}
	zap.L().Info("enrich: companies loaded", zap.String("file", path), zap.Int("count", len(companies)))

	return pipeline.FetchRaw(ctx, client, companies, conc)
}

func pruneExpiredPayloads(ctx context.Context, st store.Store) {
	n, err := st.DeleteExpiredPayloads(ctx)
	if err != nil {
		zap.L().Warn("enrich: prune payload cache", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Debug("enrich: pruned expired payloads", zap.Int("count", n))
	}
}

func ingestOptions(skipRows int, sheet string) ingest.Options {
	return ingest.Options{
		SkipRows: skipRows,
		Sheet:    ingest.XLSXOptions{SheetName: sheet},
	}
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "harmonic_raw.json", "raw snapshot path")
	enrichCmd.Flags().IntVar(&enrichSkipRows, "skip-rows", 0, "preamble rows before the header")
	enrichCmd.Flags().StringVar(&enrichSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "parallel lookups (default from config)")
	enrichCmd.Flags().BoolVar(&enrichNoCache, "no-cache", false, "skip the persistent payload cache")
	rootCmd.AddCommand(enrichCmd)
}
