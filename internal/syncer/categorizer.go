// Package syncer reconciles the local catalog against the marketplace:
// categorization, status transitions, update and deactivation planning, and
// bounded-concurrency execution of the planned mutations.
package syncer

import (
	"go.uber.org/zap"

	"palantir/internal/domain"
)

// Buckets partitions the remote snapshot by status relative to the local
// catalog. RemoteOnly never overlaps a locally-matched bucket.
type Buckets struct {
	// ArticleToID resolves a shared article (vendor code) to the remote
	// product id used in API paths.
	ArticleToID map[string]string
	// NotUploaded holds articles whose product is still mid-onboarding:
	// draft, unknown, or any other not-ready status.
	NotUploaded map[string]struct{}
	// Drafts holds articles currently in draft.
	Drafts map[string]struct{}
	// Moderated holds locally-present articles currently under moderation.
	Moderated []string
	// NotApproved holds locally-present articles rejected by moderation.
	NotApproved []string
	// RemoteOnly holds articles listed remotely but absent locally.
	RemoteOnly map[string]struct{}
	// LocalOnly holds articles present locally but missing remotely.
	LocalOnly map[string]struct{}
}

// LocalArticles collects the distinct articles present in the catalog.
// Offers without an article are excluded from reconciliation.
func LocalArticles(offers []domain.LocalOffer) map[string]struct{} {
	articles := make(map[string]struct{})
	for _, offer := range offers {
		if offer.Article == "" {
			continue
		}
		articles[offer.Article] = struct{}{}
	}
	return articles
}

// Categorize is a pure pass over the remote snapshot. Articles rejected by
// moderation need a human to act on the moderator's demand, so each one is
// logged as a warning.
func Categorize(products []domain.RemoteProduct, local map[string]struct{}, logger *zap.Logger) Buckets {
	buckets := Buckets{
		ArticleToID: make(map[string]string, len(products)),
		NotUploaded: make(map[string]struct{}),
		Drafts:      make(map[string]struct{}),
		RemoteOnly:  make(map[string]struct{}),
		LocalOnly:   make(map[string]struct{}),
	}

	for _, product := range products {
		buckets.ArticleToID[product.VendorCode] = product.ProductID
		if !product.Status.Ready() {
			buckets.NotUploaded[product.VendorCode] = struct{}{}
		}
		if product.Status == domain.StatusDraft {
			buckets.Drafts[product.VendorCode] = struct{}{}
		}

		if _, isLocal := local[product.VendorCode]; !isLocal {
			buckets.RemoteOnly[product.VendorCode] = struct{}{}
			continue
		}

		switch product.Status {
		case domain.StatusModerate:
			buckets.Moderated = append(buckets.Moderated, product.VendorCode)
		case domain.StatusNotApproved:
			buckets.NotApproved = append(buckets.NotApproved, product.VendorCode)
		}
	}

	for article := range local {
		if _, ok := buckets.ArticleToID[article]; !ok {
			buckets.LocalOnly[article] = struct{}{}
		}
	}

	for _, article := range buckets.NotApproved {
		logger.Warn("article rejected by moderation, manual action required",
			zap.String("article", article))
	}

	return buckets
}
