package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"palantir/internal/domain"
)

// ClientOptions configure the typed API client.
type ClientOptions struct {
	AppKey    string
	AppSecret string
	// Currency is attached to every price payload.
	Currency string
	// PageSize is the product listing page size.
	PageSize int
	// FetchConcurrency caps simultaneous per-product offer requests.
	FetchConcurrency int
}

func (o *ClientOptions) applyDefaults() {
	if o.Currency == "" {
		o.Currency = "UAH"
	}
	if o.PageSize <= 0 {
		o.PageSize = 300
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 10
	}
}

// Client wraps the transport with the marketplace's product and offer
// operations.
type Client struct {
	transport *Transport
	opts      ClientOptions
	logger    *zap.Logger
}

func NewClient(transport *Transport, opts ClientOptions, logger *zap.Logger) *Client {
	opts.applyDefaults()
	return &Client{transport: transport, opts: opts, logger: logger}
}

// The marketplace expects bare numbers in price payloads, not quoted
// decimals.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type productItem struct {
	VendorCode string `json:"vendor_code"`
	Article    string `json:"article"`
	Status     struct {
		Code string `json:"code"`
	} `json:"status"`
}

type productPage struct {
	Data struct {
		Items []productItem `json:"items"`
	} `json:"data"`
}

type offerItem struct {
	Barcode       string          `json:"barcode"`
	SizeID        int             `json:"size_id"`
	BasePrice     decimal.Decimal `json:"base_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Active        bool            `json:"active"`
	Quantity      int             `json:"quantity"`
}

type offerPage struct {
	Data struct {
		Items []offerItem `json:"items"`
	} `json:"data"`
}

type authResponse struct {
	Data struct {
		AccessToken struct {
			Token       string `json:"token"`
			ExpiresDate int64  `json:"expires_date"`
		} `json:"access_token"`
	} `json:"data"`
}

// Authenticate exchanges the application key and secret for a bearer token
// and installs it on the transport. A failed exchange leaves the client
// unauthenticated; subsequent calls then fail as ordinary HTTP errors.
func (c *Client) Authenticate(ctx context.Context) error {
	payload := map[string]string{
		"app_key":    c.opts.AppKey,
		"app_secret": c.opts.AppSecret,
	}
	data, err := c.transport.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "auth",
		Body:   payload,
	})
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("decoding auth response: %w", err)
	}
	if resp.Data.AccessToken.Token == "" {
		return fmt.Errorf("auth response carries no token")
	}

	c.transport.SetToken(resp.Data.AccessToken.Token)
	c.logger.Info("authenticated",
		zap.Int64("expires_date", resp.Data.AccessToken.ExpiresDate))
	return nil
}

// FetchProducts retrieves the full remote product listing through offset
// pagination, stopping at the first empty page. A failed page request
// truncates the snapshot: the items collected so far are returned and the
// failure is logged, not raised.
func (c *Client) FetchProducts(ctx context.Context) []domain.RemoteProduct {
	var products []domain.RemoteProduct
	for offset := 0; ; offset += c.opts.PageSize {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.opts.PageSize))
		query.Set("offset", strconv.Itoa(offset))

		data, err := c.transport.Do(ctx, Request{
			Method: http.MethodGet,
			Path:   "products",
			Query:  query,
		})
		if err != nil {
			c.logger.Warn("product listing truncated",
				zap.Int("offset", offset), zap.Error(err))
			break
		}

		var page productPage
		if err := json.Unmarshal(data, &page); err != nil {
			c.logger.Warn("product listing truncated",
				zap.Int("offset", offset), zap.Error(err))
			break
		}
		if len(page.Data.Items) == 0 {
			break
		}

		for _, item := range page.Data.Items {
			products = append(products, domain.RemoteProduct{
				VendorCode: item.VendorCode,
				ProductID:  item.Article,
				Status:     domain.ParseProductStatus(item.Status.Code),
			})
		}
	}
	return products
}

// FetchVariants loads every product's offers concurrently under the fetch
// concurrency cap and materializes them keyed by (product, size). Products
// without offers (404) are skipped.
func (c *Client) FetchVariants(ctx context.Context, products []domain.RemoteProduct) map[domain.VariantKey]domain.RemoteVariant {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		variants = make(map[domain.VariantKey]domain.RemoteVariant)
	)
	gate := make(chan struct{}, c.opts.FetchConcurrency)

	for _, product := range products {
		wg.Add(1)
		go func(p domain.RemoteProduct) {
			defer wg.Done()
			gate <- struct{}{}
			defer func() { <-gate }()

			items, err := c.fetchOffers(ctx, p.ProductID)
			if err != nil {
				c.logger.Error("fetching product offers",
					zap.String("product_id", p.ProductID), zap.Error(err))
				return
			}

			mu.Lock()
			for _, item := range items {
				key := domain.VariantKey{ProductID: p.ProductID, SizeID: item.SizeID}
				variants[key] = domain.RemoteVariant{
					Barcode:       item.Barcode,
					SizeID:        item.SizeID,
					BasePrice:     item.BasePrice,
					DiscountPrice: item.DiscountPrice,
					Active:        item.Active,
					Quantity:      item.Quantity,
					Status:        p.Status,
				}
			}
			mu.Unlock()
		}(product)
	}

	wg.Wait()
	return variants
}

func (c *Client) fetchOffers(ctx context.Context, productID string) ([]offerItem, error) {
	data, err := c.transport.DoPersistent(ctx, Request{
		Method: http.MethodGet,
		Path:   "products/" + productID + "/offers",
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var page offerPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decoding offers for %s: %w", productID, err)
	}
	return page.Data.Items, nil
}

// UpdateVariant patches prices, quantity and activity of an existing offer.
func (c *Client) UpdateVariant(ctx context.Context, task domain.Task) error {
	payload := map[string]any{
		"base_price":     money{Amount: task.Price, Currency: c.opts.Currency},
		"discount_price": money{Amount: task.DiscountPrice, Currency: c.opts.Currency},
		"active":         task.Active,
		"quantity":       task.Quantity,
	}
	_, err := c.transport.DoPersistent(ctx, Request{
		Method: http.MethodPatch,
		Path:   "products/" + task.ProductID + "/offers/" + task.Barcode,
		Body:   payload,
	})
	return err
}

// CreateVariant registers a new offer under a product.
func (c *Client) CreateVariant(ctx context.Context, task domain.Task) error {
	payload := map[string]any{
		"barcode":        task.Barcode,
		"active":         true,
		"base_price":     money{Amount: task.Price, Currency: c.opts.Currency},
		"discount_price": money{Amount: task.DiscountPrice, Currency: c.opts.Currency},
		"quantity":       task.Quantity,
		"size_id":        task.SizeID,
	}
	_, err := c.transport.DoPersistent(ctx, Request{
		Method: http.MethodPost,
		Path:   "products/" + task.ProductID + "/offers",
		Body:   payload,
	})
	return err
}

// DeactivateVariant turns an offer off. The planner has already zeroed the
// quantity and cleared the active flag; prices stay as they were.
func (c *Client) DeactivateVariant(ctx context.Context, task domain.Task) error {
	return c.UpdateVariant(ctx, task)
}

// SetStatus requests a product status transition. Transitions are
// fire-and-forget: bounded retry only, failures are logged by the transport.
func (c *Client) SetStatus(ctx context.Context, productID string, status domain.ProductStatus) error {
	_, err := c.transport.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "products/" + productID + "/status",
		Body:   map[string]string{"status": status.String()},
	})
	return err
}
