package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// ProductView is a catalog entry merged with monitoring state, as returned
// by the products endpoint.
type ProductView struct {
	Name              string     `json:"name"`
	URL               string     `json:"url"`
	Selector          string     `json:"selector"`
	TargetPrice       *float64   `json:"target_price,omitempty"`
	DiscountThreshold *float64   `json:"discount_threshold,omitempty"`
	Enabled           bool       `json:"enabled"`
	CooldownHours     int        `json:"cooldown_hours"`
	LastPrice         *float64   `json:"last_price,omitempty"`
	LastCheck         *time.Time `json:"last_check,omitempty"`
	LastNotified      *time.Time `json:"last_notified,omitempty"`
	LastNotifiedPrice *float64   `json:"last_notified_price,omitempty"`
}

type productsResponse struct {
	Products []ProductView `json:"products"`
}

// ListProducts returns all monitored products with their state.
func (c *Client) ListProducts(ctx context.Context, enabledOnly bool) ([]ProductView, error) {
	path := "/api/v1/products"
	if enabledOnly {
		path += "?enabled=true"
	}

	var resp productsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// ResetState clears a product's stored monitoring state on the server.
func (c *Client) ResetState(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/products/"+url.PathEscape(name)+"/state", nil, nil)
}

type historyProductsResponse struct {
	Products []string `json:"products"`
}

// HistoryProducts returns the product names present in the history log,
// including any no longer in the catalog.
func (c *Client) HistoryProducts(ctx context.Context) ([]string, error) {
	var resp historyProductsResponse
	if err := c.get(ctx, "/api/v1/history/products", &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

type historyResponse struct {
	Records []domain.HistoryRecord `json:"records"`
	Count   int                    `json:"count"`
}

// History returns a product's observations, oldest first.
func (c *Client) History(ctx context.Context, name string, since time.Time) ([]domain.HistoryRecord, error) {
	path := "/api/v1/products/" + url.PathEscape(name) + "/history"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}

	var resp historyResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Stats returns min/max/avg/count over a product's successful observations.
func (c *Client) Stats(ctx context.Context, name string, since time.Time) (*domain.PriceStats, error) {
	path := "/api/v1/products/" + url.PathEscape(name) + "/stats"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}

	var stats domain.PriceStats
	if err := c.get(ctx, path, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type changesResponse struct {
	Changes []domain.PriceChange `json:"changes"`
}

// Changes returns the points where a product's price moved.
func (c *Client) Changes(ctx context.Context, name string, since time.Time) ([]domain.PriceChange, error) {
	path := "/api/v1/products/" + url.PathEscape(name) + "/changes"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}

	var resp changesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Changes, nil
}

// ExportCSV returns the raw CSV export, optionally filtered to one product.
func (c *Client) ExportCSV(ctx context.Context, name string) ([]byte, error) {
	path := "/api/v1/history/export"
	if name != "" {
		path += "?product=" + url.QueryEscape(name)
	}
	return c.getRaw(ctx, path)
}

// CheckResult is the response from triggering a monitoring cycle.
type CheckResult struct {
	Status  string              `json:"status"`
	Summary domain.CycleSummary `json:"summary"`
}

// TriggerCheck runs one monitoring cycle on the server.
func (c *Client) TriggerCheck(ctx context.Context) (*CheckResult, error) {
	var result CheckResult
	if err := c.post(ctx, "/api/v1/checks", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type detectRequest struct {
	URL string `json:"url"`
}

// DetectSelector asks the server to propose a price selector for a page.
func (c *Client) DetectSelector(ctx context.Context, pageURL string) (*domain.Detection, error) {
	var det domain.Detection
	if err := c.post(ctx, "/api/v1/detect", detectRequest{URL: pageURL}, &det); err != nil {
		return nil, err
	}
	return &det, nil
}
