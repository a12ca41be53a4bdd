package syncer

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"palantir/internal/config"
	"palantir/internal/marketplace"
	"palantir/internal/sizemap"
)

// NewModule wires transport, client and engine from configuration.
func NewModule(cfg *config.Config, sizes *sizemap.Table, logger *zap.Logger) *Engine {
	transport := marketplace.NewTransport(marketplace.TransportOptions{
		BaseURL:       cfg.Marketplace.BaseURL,
		Timeout:       cfg.Marketplace.HTTPTimeout,
		RetryMax:      cfg.Marketplace.RetryMax,
		RetryDelay:    cfg.Marketplace.RetryDelay,
		AttemptBudget: cfg.Marketplace.AttemptBudget,
		BaseDelay:     cfg.Marketplace.BaseDelay,
		BackoffFactor: cfg.Marketplace.BackoffFactor,
		MaxDelay:      cfg.Marketplace.MaxDelay,
		RateLimit:     rate.Limit(cfg.Marketplace.RateLimit),
		RateBurst:     cfg.Marketplace.RateBurst,
	}, logger)

	client := marketplace.NewClient(transport, marketplace.ClientOptions{
		AppKey:           cfg.Marketplace.AppKey,
		AppSecret:        cfg.Marketplace.AppSecret,
		Currency:         cfg.Marketplace.Currency,
		PageSize:         cfg.Sync.PageSize,
		FetchConcurrency: cfg.Sync.Concurrency,
	}, logger)

	return NewEngine(client, sizes, cfg.Sync.Concurrency, logger)
}
