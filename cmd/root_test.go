//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/config"
)

// useConfig installs c as the package config for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = t.TempDir() + "/merlin.db"
	c.Harmonic.Key = "test-key"
	c.Harmonic.TimeoutSecs = 5
	c.Harmonic.MaxAttempts = 1
	c.Harmonic.CacheTTLHours = 1
	c.Batch.MaxConcurrentCompanies = 4
	c.Server.Port = 8080
	useConfig(t, c)
	return c
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"enrich", "score", "run", "serve", "companies", "weights"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "merlin", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, cmd := range []string{"score", "run"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		for _, name := range []string{"format", "output", "save", "notify", "limit", "weights", "skip-unenriched"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should have --%s flag", cmd, name)
		}
	}

	flag := scoreCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
}

func TestEnrichCommand_Flags(t *testing.T) {
	flag := enrichCmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "harmonic_raw.json", flag.DefValue)

	for _, name := range []string{"skip-rows", "sheet", "concurrency", "no-cache"} {
		assert.NotNil(t, enrichCmd.Flags().Lookup(name), "enrich should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCompaniesCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range companiesCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	flag := companiesListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestBootstrap_LoadsEnvConfig(t *testing.T) {
	useConfig(t, nil)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })
	t.Setenv("MERLIN_STORE_DRIVER", "postgres")
	t.Setenv("MERLIN_LOG_LEVEL", "warn")

	require.NoError(t, bootstrap())
	require.NotNil(t, cfg)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
}

func TestBootstrap_BadLogLevel(t *testing.T) {
	useConfig(t, nil)
	t.Setenv("MERLIN_LOG_LEVEL", "chatty")

	err := bootstrap()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merlin: init logger")
	assert.Nil(t, cfg)
}
