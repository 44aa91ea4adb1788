//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/merlin/internal/scorer"
)

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(file, []byte("weights:\n  smb_bonus: 20\n"), 0o600))

	t.Run("defaults", func(t *testing.T) {
		testConfig(t)
		w, err := loadWeights("")
		require.NoError(t, err)
		assert.Equal(t, scorer.ConfigHash(scorer.DefaultWeights()), scorer.ConfigHash(w))
	})

	t.Run("flag path", func(t *testing.T) {
		testConfig(t)
		w, err := loadWeights(file)
		require.NoError(t, err)
		assert.InDelta(t, 20, w.SMBBonus, 0.0001)
	})

	t.Run("config path", func(t *testing.T) {
		c := testConfig(t)
		c.Scoring.WeightsFile = file
		w, err := loadWeights("")
		require.NoError(t, err)
		assert.InDelta(t, 20, w.SMBBonus, 0.0001)
	})

	t.Run("aggregation override", func(t *testing.T) {
		c := testConfig(t)
		c.Scoring.MarketAggregation = scorer.AggregateMax
		w, err := loadWeights("")
		require.NoError(t, err)
		assert.Equal(t, scorer.AggregateMax, w.MarketAggregation)
	})

	t.Run("invalid override", func(t *testing.T) {
		c := testConfig(t)
		c.Scoring.MarketAggregation = "median"
		_, err := loadWeights("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "market_aggregation")
	})

	t.Run("missing file", func(t *testing.T) {
		testConfig(t)
		_, err := loadWeights(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}

func TestInitStore(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		c := testConfig(t)
		c.Store.DatabaseURL = filepath.Join(t.TempDir(), "nested", "merlin.db")

		st, err := initStore(context.Background())
		require.NoError(t, err)
		defer st.Close() //nolint:errcheck
		require.NoError(t, st.Ping(context.Background()))
		assert.FileExists(t, c.Store.DatabaseURL)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		c := testConfig(t)
		c.Store.Driver = "mysql"
		_, err := initStore(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported store driver")
	})
}

func TestConcurrency(t *testing.T) {
	testConfig(t)
	assert.Equal(t, 2, concurrency(2))
	assert.Equal(t, 4, concurrency(0))
}
