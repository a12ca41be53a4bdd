package syncer

import (
	"go.uber.org/zap"

	"palantir/internal/domain"
)

// PlanDeactivations computes the remote variants no longer represented in
// the local catalog and schedules them for shutdown: quantity zeroed,
// activity cleared, prices preserved. products and variants must come from
// the refreshed snapshot taken after the update phase, so products the run
// just pulled into draft are excluded along with everything else still
// mid-onboarding.
func PlanDeactivations(
	products []domain.RemoteProduct,
	variants map[domain.VariantKey]domain.RemoteVariant,
	used map[domain.VariantKey]struct{},
	logger *zap.Logger,
) []domain.Task {
	ready := make(map[string]struct{}, len(products))
	for _, product := range products {
		if product.Status.Ready() {
			ready[product.ProductID] = struct{}{}
		}
	}

	var tasks []domain.Task
	for key, variant := range variants {
		if _, ok := used[key]; ok {
			continue
		}
		if _, ok := ready[key.ProductID]; !ok {
			continue
		}
		if !variant.Active {
			continue
		}
		tasks = append(tasks, domain.Task{
			Kind:          domain.TaskDeactivateVariant,
			ProductID:     key.ProductID,
			Barcode:       variant.Barcode,
			Price:         variant.BasePrice,
			DiscountPrice: variant.DiscountPrice,
			Quantity:      0,
			Active:        false,
		})
		logger.Debug("variant scheduled for deactivation",
			zap.String("product_id", key.ProductID),
			zap.Int("size_id", key.SizeID),
			zap.String("barcode", variant.Barcode))
	}
	return tasks
}
