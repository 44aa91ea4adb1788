// Package config loads application settings and initializes logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Harmonic HarmonicConfig `yaml:"harmonic" mapstructure:"harmonic"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// HarmonicConfig holds enrichment vendor settings.
type HarmonicConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	Endpoint            string  `yaml:"endpoint" mapstructure:"endpoint"`
	RateLimit           float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst               int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	CacheTTLHours       int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Timeout returns the per-request timeout.
func (h HarmonicConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSecs) * time.Second
}

// CacheTTL returns how long vendor payloads stay cached.
func (h HarmonicConfig) CacheTTL() time.Duration {
	return time.Duration(h.CacheTTLHours) * time.Hour
}

// BreakerCooldown returns how long the breaker stays open.
func (h HarmonicConfig) BreakerCooldown() time.Duration {
	return time.Duration(h.BreakerCooldownSecs) * time.Second
}

// NotifyConfig configures Slack notifications.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
	Username        string `yaml:"username" mapstructure:"username"`
	TopN            int    `yaml:"top_n" mapstructure:"top_n"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig selects the weights and scoring variants.
type ScoringConfig struct {
	// WeightsFile is an optional YAML file overlaid on the default weights.
	WeightsFile string `yaml:"weights_file" mapstructure:"weights_file"`
	// MarketAggregation overrides the weights file when set ("sum" or "max").
	MarketAggregation string `yaml:"market_aggregation" mapstructure:"market_aggregation"`
	// SkipUnenriched leaves companies the vendor did not find out of the
	// leaderboard.
	SkipUnenriched bool `yaml:"skip_unenriched" mapstructure:"skip_unenriched"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MERLIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short names kept for existing deployments.
	_ = v.BindEnv("notify.slack_webhook_url", "MERLIN_NOTIFY_SLACK_WEBHOOK_URL", "MERLIN_SLACK_WEBHOOK_URL")
	_ = v.BindEnv("harmonic.key", "MERLIN_HARMONIC_KEY", "HARMONIC_API_KEY")

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "merlin.db")
	v.SetDefault("harmonic.endpoint", "https://api.harmonic.ai/graphql")
	v.SetDefault("harmonic.rate_limit", 5.0)
	v.SetDefault("harmonic.burst", 1)
	v.SetDefault("harmonic.timeout_secs", 30)
	v.SetDefault("harmonic.max_attempts", 3)
	v.SetDefault("harmonic.breaker_threshold", 5)
	v.SetDefault("harmonic.breaker_cooldown_secs", 30)
	v.SetDefault("harmonic.cache_ttl_hours", 168)
	v.SetDefault("notify.username", "Merlin VC Bot")
	v.SetDefault("notify.top_n", 10)
	v.SetDefault("batch.max_concurrent_companies", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes, one per family of commands.
const (
	ModeScore  = "score"
	ModeEnrich = "enrich"
	ModeServe  = "serve"
)

// Validate checks the settings a command family needs before it starts.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeScore, ModeServe:
	case ModeEnrich:
		if c.Harmonic.Key == "" {
			errs = append(errs, "harmonic.key is required")
		}
		if c.Harmonic.RateLimit < 0 {
			errs = append(errs, "harmonic.rate_limit must be >= 0")
		}
		if c.Harmonic.TimeoutSecs <= 0 {
			errs = append(errs, "harmonic.timeout_secs must be > 0")
		}
		if c.Harmonic.MaxAttempts < 1 {
			errs = append(errs, "harmonic.max_attempts must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Batch.MaxConcurrentCompanies < 1 || c.Batch.MaxConcurrentCompanies > 64 {
		errs = append(errs, "batch.max_concurrent_companies must be between 1 and 64")
	}
	switch c.Scoring.MarketAggregation {
	case "", "sum", "max":
	default:
		errs = append(errs, fmt.Sprintf("scoring.market_aggregation must be sum or max, got %q", c.Scoring.MarketAggregation))
	}
	if mode == ModeServe && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
