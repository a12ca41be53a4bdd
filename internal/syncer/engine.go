package syncer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"palantir/internal/domain"
	"palantir/internal/sizemap"
)

// MarketplaceAPI is everything the engine needs from the remote side.
type MarketplaceAPI interface {
	Authenticate(ctx context.Context) error
	FetchProducts(ctx context.Context) []domain.RemoteProduct
	FetchVariants(ctx context.Context, products []domain.RemoteProduct) map[domain.VariantKey]domain.RemoteVariant
	StatusAPI
	TaskAPI
}

// Engine reconciles the local catalog against the marketplace inventory: it
// computes and applies the minimal set of create, update and deactivate
// operations that make the remote side match the local source of truth.
// Individual failures degrade single task outcomes; the next run re-attempts
// whatever is still different.
type Engine struct {
	api      MarketplaceAPI
	sizes    *sizemap.Table
	executor *Executor
	status   *StatusController
	logger   *zap.Logger
}

func NewEngine(api MarketplaceAPI, sizes *sizemap.Table, concurrency int, logger *zap.Logger) *Engine {
	return &Engine{
		api:      api,
		sizes:    sizes,
		executor: NewExecutor(api, concurrency, logger),
		status:   NewStatusController(api, logger),
		logger:   logger,
	}
}

// Synchronize runs one full reconciliation pass over a fresh remote
// snapshot. There is a hard barrier between phases: every task of a batch
// reaches a terminal outcome before the next phase starts.
func (e *Engine) Synchronize(ctx context.Context, offers []domain.LocalOffer) error {
	logger := e.logger.With(zap.String("run_id", uuid.NewString()))

	if err := e.api.Authenticate(ctx); err != nil {
		// Downstream calls will fail as ordinary HTTP errors and be logged;
		// the run itself is not aborted.
		logger.Error("authentication failed", zap.Error(err))
	}

	products := e.api.FetchProducts(ctx)
	variants := e.api.FetchVariants(ctx, products)
	logger.Info("remote snapshot loaded",
		zap.Int("products", len(products)),
		zap.Int("variants", len(variants)))

	buckets := Categorize(products, LocalArticles(offers), logger)
	pre := e.status.PrePass(ctx, buckets)

	plan := PlanOfferUpdates(offers, buckets, variants, e.sizes, pre, logger)
	logger.Info("update plan ready",
		zap.Int("tasks", len(plan.Tasks)),
		zap.Int("created", plan.Created),
		zap.Int("updated", plan.Updated))

	e.status.MoveToDraft(ctx, plan.NewDrafts)
	updateResults := e.executor.Run(ctx, plan.Tasks)

	refreshed := e.api.FetchProducts(ctx)
	refreshedVariants := e.api.FetchVariants(ctx, refreshed)

	deactivations := PlanDeactivations(refreshed, refreshedVariants, plan.Used, logger)
	logger.Info("deactivation plan ready", zap.Int("tasks", len(deactivations)))
	deactivateResults := e.executor.Run(ctx, deactivations)

	pending := make(map[string]struct{}, len(pre.PendingModeration)+len(plan.Moderate))
	for productID := range pre.PendingModeration {
		pending[productID] = struct{}{}
	}
	for productID := range plan.Moderate {
		pending[productID] = struct{}{}
	}
	e.status.PostPass(ctx, pending)

	logger.Info("synchronization completed",
		zap.Int("updates", countOK(updateResults)),
		zap.Int("update_failures", len(updateResults)-countOK(updateResults)),
		zap.Int("deactivations", countOK(deactivateResults)),
		zap.Int("deactivation_failures", len(deactivateResults)-countOK(deactivateResults)),
		zap.Int("remoderated", len(pending)))
	return ctx.Err()
}

func countOK(results []Result) int {
	ok := 0
	for _, r := range results {
		if r.Err == nil {
			ok++
		}
	}
	return ok
}
