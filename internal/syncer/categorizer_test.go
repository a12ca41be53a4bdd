package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"palantir/internal/domain"
)

func TestLocalArticles(t *testing.T) {
	offers := []domain.LocalOffer{
		{Article: "A1", SizeLabel: "M"},
		{Article: "A1", SizeLabel: "L"},
		{Article: "", SizeLabel: "M"},
		{Article: "A2", SizeLabel: "S"},
	}

	articles := LocalArticles(offers)

	assert.Equal(t, map[string]struct{}{"A1": {}, "A2": {}}, articles)
}

func TestCategorizePartitionsSnapshot(t *testing.T) {
	products := []domain.RemoteProduct{
		{VendorCode: "A1", ProductID: "p1", Status: domain.StatusApproved},
		{VendorCode: "A2", ProductID: "p2", Status: domain.StatusDraft},
		{VendorCode: "A3", ProductID: "p3", Status: domain.StatusModerate},
		{VendorCode: "A4", ProductID: "p4", Status: domain.StatusNotApproved},
		{VendorCode: "A5", ProductID: "p5", Status: domain.StatusUploaded},
		{VendorCode: "A6", ProductID: "p6", Status: domain.StatusModerate},
	}
	local := map[string]struct{}{
		"A1": {}, "A2": {}, "A3": {}, "A4": {}, "A7": {},
	}

	buckets := Categorize(products, local, zap.NewNop())

	assert.Len(t, buckets.ArticleToID, 6)
	assert.Equal(t, "p3", buckets.ArticleToID["A3"])

	assert.Equal(t, map[string]struct{}{"A2": {}}, buckets.NotUploaded)
	assert.Equal(t, map[string]struct{}{"A2": {}}, buckets.Drafts)

	// Moderation buckets only carry articles the catalog can still act on.
	assert.Equal(t, []string{"A3"}, buckets.Moderated)
	assert.Equal(t, []string{"A4"}, buckets.NotApproved)

	assert.Equal(t, map[string]struct{}{"A5": {}, "A6": {}}, buckets.RemoteOnly)
	assert.Equal(t, map[string]struct{}{"A7": {}}, buckets.LocalOnly)
}

func TestCategorizeUnknownStatusIsNotUploaded(t *testing.T) {
	products := []domain.RemoteProduct{
		{VendorCode: "A1", ProductID: "p1", Status: domain.StatusUnknown},
	}

	buckets := Categorize(products, map[string]struct{}{"A1": {}}, zap.NewNop())

	assert.Contains(t, buckets.NotUploaded, "A1")
	assert.NotContains(t, buckets.Drafts, "A1")
}

func TestCategorizeEmptySnapshot(t *testing.T) {
	buckets := Categorize(nil, map[string]struct{}{"A1": {}}, zap.NewNop())

	assert.Empty(t, buckets.ArticleToID)
	assert.Equal(t, map[string]struct{}{"A1": {}}, buckets.LocalOnly)
}
