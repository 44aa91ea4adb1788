package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/merlin/internal/ingest"
	"github.com/sells-group/merlin/internal/model"
	"github.com/sells-group/merlin/internal/resilience"
	"github.com/sells-group/merlin/internal/scorer"
	"github.com/sells-group/merlin/pkg/harmonic"
)

// DefaultConcurrency bounds batch fan-out when no limit is configured.
const DefaultConcurrency = 8

// Failure records why one company could not be processed.
type Failure struct {
	Company model.CompanyRecord `json:"company"`
	Error   string              `json:"error"`
	Kind    string              `json:"kind"`
}

func newFailure(c model.CompanyRecord, err error) Failure {
	return Failure{Company: c, Error: err.Error(), Kind: resilience.ClassifyError(err)}
}

// BatchOptions tunes ScoreAll.
type BatchOptions struct {
	Concurrency int
	// SkipUnenriched drops rows without a vendor company instead of scoring
	// them on self-reported data alone.
	SkipUnenriched bool
}

// BatchResult holds the ranked records and the per-company failures.
type BatchResult struct {
	Records  []model.ScoredCompanyRecord `json:"records"`
	Failures []Failure                   `json:"failures"`
	Skipped  int                         `json:"skipped"`
}

// ScoreAll scores every snapshot row independently and ranks the results by
// composite score, highest first. A structural problem with one row is
// recorded as a Failure and never aborts the batch.
func ScoreAll(ctx context.Context, rows []ingest.RawRow, w scorer.Weights, opts BatchOptions) (*BatchResult, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	records := make([]*model.ScoredCompanyRecord, len(rows))
	failures := make([]*Failure, len(rows))
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			payload := []byte(row.HarmonicRaw)
			if !row.HasPayload() {
				payload = nil
			}
			if opts.SkipUnenriched && !companyFound(payload) {
				skipped.Add(1)
				return nil
			}

			rec, err := ProcessPayload(row.RawCompany, payload, w)
			if err != nil {
				f := newFailure(row.RawCompany, err)
				failures[i] = &f
				zap.L().Warn("pipeline: company failed",
					zap.String("company", row.RawCompany.Name),
					zap.String("kind", f.Kind),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}
			records[i] = &rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: score batch")
	}

	res := &BatchResult{
		Records:  []model.ScoredCompanyRecord{},
		Failures: []Failure{},
		Skipped:  int(skipped.Load()),
	}
	for i := range rows {
		if records[i] != nil {
			res.Records = append(res.Records, *records[i])
		}
		if failures[i] != nil {
			res.Failures = append(res.Failures, *failures[i])
		}
	}
	Rank(res.Records)

	zap.L().Info("pipeline: batch scored",
		zap.Int("scored", len(res.Records)),
		zap.Int("failed", len(res.Failures)),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Rank sorts records by composite score, highest first. Ties keep input order.
func Rank(records []model.ScoredCompanyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Scores.Total > records[j].Scores.Total
	})
}

func companyFound(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	var resp harmonic.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		// Let ProcessPayload report the malformed payload.
		return true
	}
	return resp.Found()
}

// FetchStats summarizes a vendor fetch.
type FetchStats struct {
	Found    int64 `json:"found"`
	NotFound int64 `json:"not_found"`
	NoDomain int64 `json:"no_domain"`
	Failed   int64 `json:"failed"`
}

// FetchRaw looks every company up by domain and returns one snapshot row per
// company in input order. Companies without a domain, and lookups that fail,
// get a null payload so the snapshot stays complete.
func FetchRaw(ctx context.Context, client harmonic.Client, companies []model.CompanyRecord, concurrency int) ([]ingest.RawRow, FetchStats, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	rows := make([]ingest.RawRow, len(companies))
	var found, notFound, noDomain, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, company := range companies {
		rows[i] = ingest.RawRow{RawCompany: company, HarmonicRaw: json.RawMessage("null")}
		g.Go(func() error {
			log := zap.L().With(zap.String("company", company.Name))

			domain := ingest.CleanDomain(company.Domain)
			if domain == "" {
				noDomain.Add(1)
				log.Warn("pipeline: skipping company without domain")
				return nil
			}

			resp, err := client.EnrichCompanyByDomain(gctx, domain)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.Error("pipeline: vendor lookup failed",
					zap.String("domain", domain),
					zap.String("kind", resilience.ClassifyError(err)),
					zap.Error(err),
				)
				return nil
			}

			data, err := json.Marshal(resp)
			if err != nil {
				failed.Add(1)
				log.Error("pipeline: encode vendor response", zap.Error(err))
				return nil
			}
			rows[i].HarmonicRaw = data
			if resp.Found() {
				found.Add(1)
			} else {
				notFound.Add(1)
				log.Info("pipeline: company not found", zap.String("domain", domain))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, FetchStats{}, eris.Wrap(err, "pipeline: fetch batch")
	}

	stats := FetchStats{
		Found:    found.Load(),
		NotFound: notFound.Load(),
		NoDomain: noDomain.Load(),
		Failed:   failed.Load(),
	}
	zap.L().Info("pipeline: fetch complete",
		zap.Int64("found", stats.Found),
		zap.Int64("not_found", stats.NotFound),
		zap.Int64("no_domain", stats.NoDomain),
		zap.Int64("failed", stats.Failed),
	)
	return rows, stats, nil
}
