package domain

import "github.com/shopspring/decimal"

// LocalOffer is one sellable unit from the local catalog, already normalized
// by the catalog pipeline. Offers without an article cannot be matched to a
// remote product and are excluded from reconciliation.
type LocalOffer struct {
	Article       string
	Barcode       string
	SizeLabel     string
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	StockQuantity *int
	Available     bool
}

// Quantity normalizes the nullable stock counter for comparison against the
// remote side.
func (o LocalOffer) Quantity() int {
	if o.StockQuantity == nil {
		return 0
	}
	return *o.StockQuantity
}
