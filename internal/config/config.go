package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Marketplace MarketplaceConfig
	Sync        SyncConfig
	Catalog     CatalogConfig
	Log         LogConfig
}

type MarketplaceConfig struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Currency  string

	HTTPTimeout time.Duration
	RetryMax    int
	RetryDelay  time.Duration

	AttemptBudget int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration

	RateLimit float64
	RateBurst int
}

type SyncConfig struct {
	PageSize    int
	Concurrency int
}

type CatalogConfig struct {
	Dir         string
	SizeMapPath string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("MARKETPLACE_BASE_URL", "")
	viper.SetDefault("MARKETPLACE_APP_KEY", "")
	viper.SetDefault("MARKETPLACE_APP_SECRET", "")
	viper.SetDefault("MARKETPLACE_CURRENCY", "UAH")
	viper.SetDefault("MARKETPLACE_HTTP_TIMEOUT", "30s")
	viper.SetDefault("MARKETPLACE_RETRY_MAX", 3)
	viper.SetDefault("MARKETPLACE_RETRY_DELAY", "3s")
	viper.SetDefault("MARKETPLACE_ATTEMPT_BUDGET", 10)
	viper.SetDefault("MARKETPLACE_BASE_DELAY", "10s")
	viper.SetDefault("MARKETPLACE_BACKOFF_FACTOR", 1.5)
	viper.SetDefault("MARKETPLACE_MAX_DELAY", "5m")
	viper.SetDefault("MARKETPLACE_RATE_LIMIT", 10.0)
	viper.SetDefault("MARKETPLACE_RATE_BURST", 10)
	viper.SetDefault("SYNC_PAGE_SIZE", 300)
	viper.SetDefault("SYNC_CONCURRENCY", 10)
	viper.SetDefault("CATALOG_DIR", "data")
	viper.SetDefault("CATALOG_SIZE_MAP", "data/size_mapping.csv")
	viper.SetDefault("LOG_LEVEL", "info")

	httpTimeout, err := time.ParseDuration(viper.GetString("MARKETPLACE_HTTP_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("parsing MARKETPLACE_HTTP_TIMEOUT: %w", err)
	}
	retryDelay, err := time.ParseDuration(viper.GetString("MARKETPLACE_RETRY_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("parsing MARKETPLACE_RETRY_DELAY: %w", err)
	}
	baseDelay, err := time.ParseDuration(viper.GetString("MARKETPLACE_BASE_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("parsing MARKETPLACE_BASE_DELAY: %w", err)
	}
	maxDelay, err := time.ParseDuration(viper.GetString("MARKETPLACE_MAX_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("parsing MARKETPLACE_MAX_DELAY: %w", err)
	}

	cfg := &Config{
		Marketplace: MarketplaceConfig{
			BaseURL:       viper.GetString("MARKETPLACE_BASE_URL"),
			AppKey:        viper.GetString("MARKETPLACE_APP_KEY"),
			AppSecret:     viper.GetString("MARKETPLACE_APP_SECRET"),
			Currency:      viper.GetString("MARKETPLACE_CURRENCY"),
			HTTPTimeout:   httpTimeout,
			RetryMax:      viper.GetInt("MARKETPLACE_RETRY_MAX"),
			RetryDelay:    retryDelay,
			AttemptBudget: viper.GetInt("MARKETPLACE_ATTEMPT_BUDGET"),
			BaseDelay:     baseDelay,
			BackoffFactor: viper.GetFloat64("MARKETPLACE_BACKOFF_FACTOR"),
			MaxDelay:      maxDelay,
			RateLimit:     viper.GetFloat64("MARKETPLACE_RATE_LIMIT"),
			RateBurst:     viper.GetInt("MARKETPLACE_RATE_BURST"),
		},
		Sync: SyncConfig{
			PageSize:    viper.GetInt("SYNC_PAGE_SIZE"),
			Concurrency: viper.GetInt("SYNC_CONCURRENCY"),
		},
		Catalog: CatalogConfig{
			Dir:         viper.GetString("CATALOG_DIR"),
			SizeMapPath: viper.GetString("CATALOG_SIZE_MAP"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Marketplace.BaseURL == "" {
		return nil, fmt.Errorf("MARKETPLACE_BASE_URL is required")
	}

	return cfg, nil
}
