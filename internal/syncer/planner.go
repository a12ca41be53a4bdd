package syncer

import (
	"go.uber.org/zap"

	"palantir/internal/domain"
	"palantir/internal/sizemap"
)

// Plan is the outcome of the offer planning pass.
type Plan struct {
	Tasks []domain.Task
	// Used marks the (product, size) pairs confirmed by the local catalog;
	// every remote variant outside it is a deactivation candidate.
	Used map[domain.VariantKey]struct{}
	// Moderate holds product ids that must go back to moderation after the
	// run's mutations are applied.
	Moderate map[string]struct{}
	// NewDrafts maps articles that still need a draft transition before
	// tasks can be applied to their product ids.
	NewDrafts map[string]string
	Created   int
	Updated   int
}

// PlanOfferUpdates walks the local catalog and decides, per (article, size),
// whether the remote variant must be created, updated or left alone. The
// pass is pure: it emits tasks and status requests instead of applying them.
// Each offer contributes at most one task.
func PlanOfferUpdates(
	offers []domain.LocalOffer,
	buckets Buckets,
	variants map[domain.VariantKey]domain.RemoteVariant,
	sizes *sizemap.Table,
	pre PreResult,
	logger *zap.Logger,
) Plan {
	plan := Plan{
		Used:      make(map[domain.VariantKey]struct{}),
		Moderate:  make(map[string]struct{}),
		NewDrafts: make(map[string]string),
	}

	drafted := make(map[string]struct{}, len(pre.Drafted))
	for article := range pre.Drafted {
		drafted[article] = struct{}{}
	}
	markDraft := func(article, productID string) {
		if _, ok := drafted[article]; ok {
			return
		}
		drafted[article] = struct{}{}
		plan.NewDrafts[article] = productID
	}

	for _, offer := range offers {
		if offer.Article == "" {
			continue
		}
		if _, ok := buckets.LocalOnly[offer.Article]; ok {
			logger.Warn("article missing on the marketplace",
				zap.String("article", offer.Article))
			continue
		}

		productID := buckets.ArticleToID[offer.Article]

		if _, ok := buckets.NotUploaded[offer.Article]; ok {
			logger.Warn("article not fully onboarded",
				zap.String("article", offer.Article))
			plan.Moderate[productID] = struct{}{}
			markDraft(offer.Article, productID)
		}

		size, ok := sizes.Lookup(offer.SizeLabel)
		if !ok {
			logger.Warn("no size mapping",
				zap.String("article", offer.Article),
				zap.String("size", offer.SizeLabel))
			continue
		}

		key := domain.VariantKey{ProductID: productID, SizeID: size.ID}
		variant, exists := variants[key]
		if !exists {
			if offer.Barcode == "" {
				logger.Warn("cannot create variant without a barcode",
					zap.String("article", offer.Article),
					zap.Int("size_id", size.ID))
				continue
			}
			plan.Tasks = append(plan.Tasks, domain.Task{
				Kind:          domain.TaskCreateVariant,
				ProductID:     productID,
				Barcode:       offer.Barcode,
				SizeID:        size.ID,
				Price:         offer.Price,
				DiscountPrice: offer.DiscountPrice,
				Quantity:      offer.Quantity(),
				Active:        true,
			})
			// The refreshed snapshot will contain the created variant; mark
			// the key used so it cannot be scheduled for deactivation.
			plan.Used[key] = struct{}{}
			plan.Moderate[productID] = struct{}{}
			markDraft(offer.Article, productID)
			plan.Created++
			continue
		}

		plan.Used[key] = struct{}{}
		if offer.Price.Equal(variant.BasePrice) &&
			offer.DiscountPrice.Equal(variant.DiscountPrice) &&
			offer.Quantity() == variant.Quantity &&
			variant.Active == offer.Available {
			continue
		}

		plan.Tasks = append(plan.Tasks, domain.Task{
			Kind:          domain.TaskUpdateVariant,
			ProductID:     productID,
			Barcode:       variant.Barcode,
			Price:         offer.Price,
			DiscountPrice: offer.DiscountPrice,
			Quantity:      offer.Quantity(),
			Active:        offer.Available,
		})
		plan.Updated++
	}

	return plan
}
