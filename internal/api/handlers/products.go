// Package handlers implements HTTP handlers for the sale-monitor API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/sale-monitor/internal/catalog"
	"github.com/donaldgifford/sale-monitor/internal/store"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// ProductView merges a catalog entry with its last-known monitoring state.
type ProductView struct {
	Name              string     `json:"name" doc:"Product name, the join key across stores"`
	URL               string     `json:"url" doc:"Product page URL"`
	Selector          string     `json:"selector" doc:"CSS selector for the price element"`
	TargetPrice       *float64   `json:"target_price,omitempty" doc:"Notify at or below this price"`
	DiscountThreshold *float64   `json:"discount_threshold,omitempty" doc:"Notify at or above this discount percent"`
	Enabled           bool       `json:"enabled" doc:"Whether the product is checked each cycle"`
	CooldownHours     int        `json:"cooldown_hours" doc:"Minimum hours between notifications"`
	LastPrice         *float64   `json:"last_price,omitempty" doc:"Most recent successfully observed price"`
	LastCheck         *time.Time `json:"last_check,omitempty" doc:"Time of the most recent check"`
	LastNotified      *time.Time `json:"last_notified,omitempty" doc:"Time of the most recent notification"`
	LastNotifiedPrice *float64   `json:"last_notified_price,omitempty" doc:"Price in the most recent notification"`
}

// ProductsHandler serves the merged catalog-plus-state product listing.
type ProductsHandler struct {
	catalog catalog.Source
	states  store.StateStore
}

// NewProductsHandler creates a new ProductsHandler.
func NewProductsHandler(c catalog.Source, s store.StateStore) *ProductsHandler {
	return &ProductsHandler{catalog: c, states: s}
}

// ProductsInput is the query for the product listing endpoint.
type ProductsInput struct {
	Enabled bool `query:"enabled" doc:"Only return enabled products"`
}

// ProductsOutput is the response body for the product listing endpoint.
type ProductsOutput struct {
	Body struct {
		Products []ProductView `json:"products" doc:"Catalog entries merged with monitoring state"`
	}
}

// List returns every catalog product with its current state attached.
func (h *ProductsHandler) List(ctx context.Context, input *ProductsInput) (*ProductsOutput, error) {
	products, err := h.catalog.Load(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading catalog: " + err.Error())
	}

	states, err := h.states.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing state: " + err.Error())
	}
	byName := make(map[string]domain.ProductState, len(states))
	for _, st := range states {
		byName[st.Name] = st
	}

	out := &ProductsOutput{}
	out.Body.Products = []ProductView{}

	for _, p := range products {
		if input.Enabled && !p.Enabled {
			continue
		}

		view := ProductView{
			Name:              p.Name,
			URL:               p.URL,
			Selector:          p.Selector,
			TargetPrice:       p.TargetPrice,
			DiscountThreshold: p.DiscountThreshold,
			Enabled:           p.Enabled,
			CooldownHours:     p.CooldownHours,
		}

		// Products never checked yet carry catalog fields only.
		if state, ok := byName[p.Name]; ok {
			view.LastPrice = state.LastPrice
			lc := state.LastCheck
			view.LastCheck = &lc
			view.LastNotified = state.LastNotified
			view.LastNotifiedPrice = state.LastNotifiedPrice
		}

		out.Body.Products = append(out.Body.Products, view)
	}

	return out, nil
}

// ResetStateInput identifies the product whose state should be cleared.
type ResetStateInput struct {
	Name string `path:"name" doc:"Product name"`
}

// ResetState clears a product's monitoring state, including its cooldown
// stamps, so the next cycle treats it as never checked. Resetting an
// unknown product succeeds.
func (h *ProductsHandler) ResetState(ctx context.Context, input *ResetStateInput) (*struct{}, error) {
	if err := h.states.Delete(ctx, input.Name); err != nil {
		return nil, huma.Error500InternalServerError("deleting state: " + err.Error())
	}
	return nil, nil
}

// RegisterProductRoutes registers product endpoints with the Huma API.
func RegisterProductRoutes(api huma.API, h *ProductsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List monitored products",
		Description: "Returns catalog products merged with their last-known monitoring state.",
		Tags:        []string{"products"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-product-state",
		Method:        http.MethodDelete,
		Path:          "/api/v1/products/{name}/state",
		Summary:       "Reset a product's monitoring state",
		Description:   "Clears stored price and cooldown state so the next cycle treats the product as never checked.",
		Tags:          []string{"products"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusInternalServerError},
	}, h.ResetState)
}
