package syncer

import (
	"context"

	"go.uber.org/zap"

	"palantir/internal/domain"
)

// StatusAPI is the slice of the marketplace client the status controller
// drives.
type StatusAPI interface {
	SetStatus(ctx context.Context, productID string, status domain.ProductStatus) error
}

// StatusController moves remote products between statuses around the update
// phase. Transitions are fire-and-forget: failures are logged and the run
// continues.
type StatusController struct {
	api    StatusAPI
	logger *zap.Logger
}

func NewStatusController(api StatusAPI, logger *zap.Logger) *StatusController {
	return &StatusController{api: api, logger: logger}
}

// PreResult is the state the pre-pass hands back to the coordinator.
type PreResult struct {
	// PendingModeration holds product ids to restore to moderate after the
	// run's mutations are applied.
	PendingModeration map[string]struct{}
	// Drafted holds articles already in draft, including those this pass
	// moved there.
	Drafted map[string]struct{}
}

// PrePass moves stale remote-only listings and every moderated product to
// draft so their offers can be edited, remembering which products must be
// restored afterwards.
func (c *StatusController) PrePass(ctx context.Context, buckets Buckets) PreResult {
	result := PreResult{
		PendingModeration: make(map[string]struct{}),
		Drafted:           make(map[string]struct{}, len(buckets.Drafts)),
	}
	for article := range buckets.Drafts {
		result.Drafted[article] = struct{}{}
	}

	for article := range buckets.RemoteOnly {
		if _, notReady := buckets.NotUploaded[article]; notReady {
			continue
		}
		c.toDraft(ctx, buckets.ArticleToID[article])
		result.Drafted[article] = struct{}{}
	}

	for _, article := range buckets.Moderated {
		productID := buckets.ArticleToID[article]
		result.PendingModeration[productID] = struct{}{}
		c.toDraft(ctx, productID)
	}

	return result
}

// MoveToDraft applies the draft transitions the planner asked for. Keys are
// articles, values the matching product ids.
func (c *StatusController) MoveToDraft(ctx context.Context, products map[string]string) {
	for _, productID := range products {
		c.toDraft(ctx, productID)
	}
}

// PostPass restores moderation for every product the run pulled out of it or
// touched during planning.
func (c *StatusController) PostPass(ctx context.Context, pending map[string]struct{}) {
	for productID := range pending {
		if err := c.api.SetStatus(ctx, productID, domain.StatusModerate); err != nil {
			c.logger.Warn("restoring moderation failed",
				zap.String("product_id", productID), zap.Error(err))
		}
	}
}

func (c *StatusController) toDraft(ctx context.Context, productID string) {
	if err := c.api.SetStatus(ctx, productID, domain.StatusDraft); err != nil {
		c.logger.Warn("moving product to draft failed",
			zap.String("product_id", productID), zap.Error(err))
	}
}
