package domain

import "github.com/shopspring/decimal"

// ProductStatus is the moderation state of a remote product. The marketplace
// owns the status; the engine only observes it and requests transitions.
// Codes the marketplace introduces later map to StatusUnknown.
type ProductStatus int

const (
	StatusUnknown ProductStatus = iota
	StatusUploaded
	StatusDraft
	StatusModerate
	StatusApproved
	StatusNotApproved
)

// ParseProductStatus maps a wire status code onto the closed enum.
func ParseProductStatus(code string) ProductStatus {
	switch code {
	case "uploaded":
		return StatusUploaded
	case "draft":
		return StatusDraft
	case "moderate":
		return StatusModerate
	case "approved":
		return StatusApproved
	case "not_approved":
		return StatusNotApproved
	default:
		return StatusUnknown
	}
}

func (s ProductStatus) String() string {
	switch s {
	case StatusUploaded:
		return "uploaded"
	case StatusDraft:
		return "draft"
	case StatusModerate:
		return "moderate"
	case StatusApproved:
		return "approved"
	case StatusNotApproved:
		return "not_approved"
	default:
		return "unknown"
	}
}

// Ready reports whether the product is past onboarding. Only ready products
// take part in variant reconciliation and deactivation.
func (s ProductStatus) Ready() bool {
	switch s {
	case StatusUploaded, StatusModerate, StatusApproved, StatusNotApproved:
		return true
	default:
		return false
	}
}

// RemoteProduct is one product as reported by the marketplace listing.
// VendorCode is the article shared with the local catalog; ProductID is the
// marketplace's own identifier used in API paths.
type RemoteProduct struct {
	VendorCode string
	ProductID  string
	Status     ProductStatus
}

// VariantKey identifies a sellable unit under a product. The marketplace
// guarantees at most one variant per key.
type VariantKey struct {
	ProductID string
	SizeID    int
}

// RemoteVariant is a size-level offer under a remote product. Status is
// inherited from the parent product at snapshot time.
type RemoteVariant struct {
	Barcode       string
	SizeID        int
	BasePrice     decimal.Decimal
	DiscountPrice decimal.Decimal
	Active        bool
	Quantity      int
	Status        ProductStatus
}
