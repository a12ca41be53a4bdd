// Package catalog parses supplier YML (Yandex-Market-Language XML) feeds
// into the normalized offers the sync engine consumes.
package catalog

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"palantir/internal/domain"
)

// sizeParamNames are the feed parameter names that carry a size value.
var sizeParamNames = map[string]struct{}{
	"розмір": {},
	"size":   {},
	"зріст":  {},
}

// Catalog is one parsed feed.
type Catalog struct {
	Name   string
	Date   string
	Offers []domain.LocalOffer
}

type ymlFeed struct {
	XMLName xml.Name `xml:"yml_catalog"`
	Date    string   `xml:"date,attr"`
	Shop    struct {
		Name   string     `xml:"name"`
		Offers []ymlOffer `xml:"offers>offer"`
	} `xml:"shop"`
}

type ymlOffer struct {
	ID            string     `xml:"id,attr"`
	Available     string     `xml:"available,attr"`
	Price         string     `xml:"price"`
	OldPrice      string     `xml:"oldprice"`
	Barcode       string     `xml:"barcode"`
	Model         string     `xml:"model"`
	StockQuantity *int       `xml:"stock_quantity"`
	Params        []ymlParam `xml:"param"`
}

type ymlParam struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// ParseFile parses one feed file.
func ParseFile(path string, logger *zap.Logger) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	return Parse(f, logger)
}

// Parse reads a feed. Offers with unparseable prices are skipped with a
// warning; offers without a discount price reuse the base price.
func Parse(r io.Reader, logger *zap.Logger) (*Catalog, error) {
	var feed ymlFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	catalog := &Catalog{
		Name: feed.Shop.Name,
		Date: feed.Date,
	}

	for _, raw := range feed.Shop.Offers {
		offer, err := convertOffer(raw)
		if err != nil {
			logger.Warn("skipping catalog offer",
				zap.String("offer_id", raw.ID), zap.Error(err))
			continue
		}
		catalog.Offers = append(catalog.Offers, offer)
	}

	return catalog, nil
}

// LoadDir parses every *.xml feed in dir and concatenates their offers.
// Files are visited in name order so runs are reproducible.
func LoadDir(dir string, logger *zap.Logger) ([]domain.LocalOffer, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("scanning catalog dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files in %s", dir)
	}
	sort.Strings(paths)

	var offers []domain.LocalOffer
	for _, path := range paths {
		catalog, err := ParseFile(path, logger)
		if err != nil {
			logger.Warn("skipping catalog file", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("catalog parsed",
			zap.String("path", path),
			zap.String("shop", catalog.Name),
			zap.Int("offers", len(catalog.Offers)))
		offers = append(offers, catalog.Offers...)
	}
	return offers, nil
}

func convertOffer(raw ymlOffer) (domain.LocalOffer, error) {
	discount, err := decimal.NewFromString(strings.TrimSpace(raw.Price))
	if err != nil {
		return domain.LocalOffer{}, fmt.Errorf("bad price %q: %w", raw.Price, err)
	}

	// The feed's price is the current selling price; oldprice, when present,
	// is the base the discount applies to.
	base := discount
	if trimmed := strings.TrimSpace(raw.OldPrice); trimmed != "" {
		base, err = decimal.NewFromString(trimmed)
		if err != nil {
			return domain.LocalOffer{}, fmt.Errorf("bad oldprice %q: %w", raw.OldPrice, err)
		}
	}

	barcode := strings.TrimSpace(raw.Barcode)
	if barcode == "" {
		barcode = strings.TrimSpace(raw.ID)
	}

	return domain.LocalOffer{
		Article:       strings.TrimSpace(raw.Model),
		Barcode:       barcode,
		SizeLabel:     sizeLabel(raw.Params),
		Price:         base,
		DiscountPrice: discount,
		StockQuantity: raw.StockQuantity,
		Available:     raw.Available == "true",
	}, nil
}

func sizeLabel(params []ymlParam) string {
	for _, param := range params {
		name := strings.ToLower(strings.TrimSpace(param.Name))
		if _, ok := sizeParamNames[name]; ok {
			return strings.TrimSpace(param.Value)
		}
	}
	return ""
}
