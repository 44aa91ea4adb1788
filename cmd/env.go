package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/resilience"
	"github.com/sells-group/merlin/internal/scorer"
	"github.com/sells-group/merlin/internal/store"
	"github.com/sells-group/merlin/pkg/harmonic"
)

// initStore opens the configured store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "merlin.db"
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "create store directory %s", dir)
			}
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// loadWeights resolves the active weights: the --weights flag, else
// scoring.weights_file, else the defaults. scoring.market_aggregation
// overrides whatever the file says.
func loadWeights(path string) (scorer.Weights, error) {
	if path == "" {
		path = cfg.Scoring.WeightsFile
	}

	w := scorer.DefaultWeights()
	if path != "" {
		var err error
		w, err = scorer.LoadWeightsFile(path)
		if err != nil {
			return scorer.Weights{}, err
		}
	}

	if agg := cfg.Scoring.MarketAggregation; agg != "" {
		w.MarketAggregation = agg
		if err := scorer.ValidateWeights(w); err != nil {
			return scorer.Weights{}, err
		}
	}

	zap.L().Debug("scoring weights loaded",
		zap.String("file", path),
		zap.String("hash", scorer.ConfigHash(w)),
		zap.String("market_aggregation", w.MarketAggregation),
	)
	return w, nil
}

// newHarmonicClient builds the vendor client from config. When payloads is
// non-nil, responses are also persisted there between runs.
func newHarmonicClient(payloads harmonic.PayloadStore) *harmonic.CachedClient {
	h := cfg.Harmonic

	retry := resilience.DefaultRetryConfig()
	if h.MaxAttempts > 0 {
		retry.MaxAttempts = h.MaxAttempts
	}
	retry.OnRetry = resilience.RetryLogger("harmonic", "enrich_company")

	opts := []harmonic.Option{
		harmonic.WithRateLimit(h.RateLimit, h.Burst),
		harmonic.WithRetry(retry),
	}
	if h.Endpoint != "" {
		opts = append(opts, harmonic.WithEndpoint(h.Endpoint))
	}
	if h.Timeout() > 0 {
		opts = append(opts, harmonic.WithHTTPClient(harmonicHTTPClient(h.Timeout())))
	}
	if h.BreakerThreshold > 0 {
		opts = append(opts, harmonic.WithBreaker(resilience.NewBreaker(h.BreakerThreshold, h.BreakerCooldown())))
	}

	var cacheOpts []harmonic.CacheOption
	if payloads != nil {
		cacheOpts = append(cacheOpts, harmonic.WithPayloadStore(payloads))
	}
	return harmonic.NewCachedClient(harmonic.NewClient(h.Key, opts...), h.CacheTTL(), cacheOpts...)
}

func newRunID() string {
	return uuid.NewString()
}

func concurrency(flag int) int {
	if flag > 0 {
		return flag
	}
	return cfg.Batch.MaxConcurrentCompanies
}

func harmonicHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
