// Package testutil hosts the in-memory marketplace API used by package
// tests: a chi-routed httptest server that mimics the remote side's auth,
// listing, offer and status endpoints and records every mutation.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeProduct is one product the fake marketplace lists.
type FakeProduct struct {
	VendorCode string
	ProductID  string
	StatusCode string
	Offers     []FakeOffer
}

// FakeOffer is one variant under a fake product.
type FakeOffer struct {
	Barcode       string
	SizeID        int
	BasePrice     float64
	DiscountPrice float64
	Active        bool
	Quantity      int
}

// StatusChange records one PUT products/{id}/status call.
type StatusChange struct {
	ProductID string
	Status    string
}

// OfferMutation records one PATCH or POST offer call.
type OfferMutation struct {
	Method    string
	ProductID string
	Barcode   string
	Payload   map[string]any
}

// FakeMarketplace is a configurable in-memory marketplace API.
type FakeMarketplace struct {
	mu sync.Mutex

	Token    string
	PageSize int
	products []FakeProduct

	statusChanges  []StatusChange
	offerMutations []OfferMutation
	authCalls      int
	listCalls      int
}

// NewFakeMarketplace builds a fake with the given listing. PageSize governs
// the products endpoint's pagination.
func NewFakeMarketplace(pageSize int, products ...FakeProduct) *FakeMarketplace {
	return &FakeMarketplace{
		Token:    "test-token",
		PageSize: pageSize,
		products: products,
	}
}

// Start runs the fake behind an httptest server torn down with the test.
func (f *FakeMarketplace) Start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(f.Router())
	t.Cleanup(server.Close)
	return server
}

// Router wires the marketplace endpoints.
func (f *FakeMarketplace) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth", f.handleAuth)
	r.Get("/products", f.handleListProducts)
	r.Get("/products/{productID}/offers", f.handleListOffers)
	r.Post("/products/{productID}/offers", f.handleCreateOffer)
	r.Patch("/products/{productID}/offers/{barcode}", f.handlePatchOffer)
	r.Put("/products/{productID}/status", f.handleSetStatus)
	return r
}

// SetProducts replaces the listing, e.g. between sync phases.
func (f *FakeMarketplace) SetProducts(products ...FakeProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = products
}

// StatusChanges returns the recorded status transitions in call order.
func (f *FakeMarketplace) StatusChanges() []StatusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StatusChange(nil), f.statusChanges...)
}

// OfferMutations returns the recorded offer creates and patches.
func (f *FakeMarketplace) OfferMutations() []OfferMutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OfferMutation(nil), f.offerMutations...)
}

// AuthCalls returns how many times the auth endpoint was hit.
func (f *FakeMarketplace) AuthCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// ListCalls returns how many product listing pages were requested.
func (f *FakeMarketplace) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *FakeMarketplace) handleAuth(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.authCalls++
	token := f.Token
	f.mu.Unlock()

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"access_token": map[string]any{
				"token":        token,
				"expires_date": 4102444800,
			},
		},
	})
}

func (f *FakeMarketplace) handleListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = f.PageSize
	}

	f.mu.Lock()
	f.listCalls++
	products := append([]FakeProduct(nil), f.products...)
	f.mu.Unlock()

	items := []map[string]any{}
	for i := offset; i < len(products) && i < offset+limit; i++ {
		p := products[i]
		items = append(items, map[string]any{
			"vendor_code": p.VendorCode,
			"article":     p.ProductID,
			"status":      map[string]any{"code": p.StatusCode},
		})
	}
	writeJSON(w, map[string]any{"data": map[string]any{"items": items}})
}

func (f *FakeMarketplace) handleListOffers(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ProductID != productID {
			continue
		}
		items := []map[string]any{}
		for _, o := range p.Offers {
			items = append(items, map[string]any{
				"barcode":        o.Barcode,
				"size_id":        o.SizeID,
				"base_price":     o.BasePrice,
				"discount_price": o.DiscountPrice,
				"active":         o.Active,
				"quantity":       o.Quantity,
			})
		}
		writeJSON(w, map[string]any{"data": map[string]any{"items": items}})
		return
	}
	http.NotFound(w, r)
}

func (f *FakeMarketplace) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	f.recordMutation(w, r, OfferMutation{
		Method:    http.MethodPost,
		ProductID: chi.URLParam(r, "productID"),
	})
}

func (f *FakeMarketplace) handlePatchOffer(w http.ResponseWriter, r *http.Request) {
	f.recordMutation(w, r, OfferMutation{
		Method:    http.MethodPatch,
		ProductID: chi.URLParam(r, "productID"),
		Barcode:   chi.URLParam(r, "barcode"),
	})
}

func (f *FakeMarketplace) recordMutation(w http.ResponseWriter, r *http.Request, mutation OfferMutation) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("bad payload: %v", err), http.StatusBadRequest)
		return
	}
	mutation.Payload = payload

	f.mu.Lock()
	f.offerMutations = append(f.offerMutations, mutation)
	f.mu.Unlock()

	writeJSON(w, map[string]any{"data": map[string]any{}})
}

func (f *FakeMarketplace) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("bad payload: %v", err), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.statusChanges = append(f.statusChanges, StatusChange{
		ProductID: chi.URLParam(r, "productID"),
		Status:    payload.Status,
	})
	f.mu.Unlock()

	writeJSON(w, map[string]any{"data": map[string]any{}})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
