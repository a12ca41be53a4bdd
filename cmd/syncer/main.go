package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"palantir/internal/catalog"
	"palantir/internal/config"
	"palantir/internal/infrastructure/logger"
	"palantir/internal/sizemap"
	"palantir/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	offers, err := catalog.LoadDir(cfg.Catalog.Dir, zapLogger)
	if err != nil {
		zapLogger.Fatal("loading catalog", zap.Error(err))
	}
	zapLogger.Info("catalog loaded", zap.Int("offers", len(offers)))

	sizes, err := sizemap.Load(cfg.Catalog.SizeMapPath)
	if err != nil {
		zapLogger.Fatal("loading size mapping", zap.Error(err))
	}
	zapLogger.Info("size mapping loaded", zap.Int("sizes", sizes.Len()))

	engine := syncer.NewModule(cfg, sizes, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Synchronize(ctx, offers); err != nil {
		zapLogger.Fatal("synchronization aborted", zap.Error(err))
	}
}
