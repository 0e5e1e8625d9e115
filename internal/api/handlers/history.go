package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/sale-monitor/internal/history"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// HistoryHandler serves per-product price history, statistics, and changes.
type HistoryHandler struct {
	history *history.Store
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(h *history.Store) *HistoryHandler {
	return &HistoryHandler{history: h}
}

// HistoryInput identifies a product and an optional time range.
type HistoryInput struct {
	Name  string    `path:"name" doc:"Product name"`
	Since time.Time `query:"since" doc:"Only include records at or after this RFC3339 time"`
}

// HistoryOutput is the response body for the history endpoint.
type HistoryOutput struct {
	Body struct {
		Records []domain.HistoryRecord `json:"records" doc:"Observations, oldest first"`
		Count   int                    `json:"count" doc:"Number of records returned"`
	}
}

// History returns a product's observations, oldest first.
func (h *HistoryHandler) History(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	records, err := h.history.Query(ctx, input.Name, input.Since)
	if err != nil {
		return nil, huma.Error500InternalServerError("querying history: " + err.Error())
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}

	out := &HistoryOutput{}
	out.Body.Records = records
	out.Body.Count = len(records)
	return out, nil
}

// StatsOutput is the response body for the stats endpoint.
type StatsOutput struct {
	Body domain.PriceStats
}

// Stats aggregates a product's successful observations.
func (h *HistoryHandler) Stats(ctx context.Context, input *HistoryInput) (*StatsOutput, error) {
	stats, err := h.history.Aggregate(ctx, input.Name, input.Since)
	if err != nil {
		return nil, huma.Error500InternalServerError("aggregating history: " + err.Error())
	}
	return &StatsOutput{Body: stats}, nil
}

// ChangesOutput is the response body for the changes endpoint.
type ChangesOutput struct {
	Body struct {
		Changes []domain.PriceChange `json:"changes" doc:"Points where the observed price moved"`
	}
}

// Changes returns the points where a product's price moved.
func (h *HistoryHandler) Changes(ctx context.Context, input *HistoryInput) (*ChangesOutput, error) {
	changes, err := h.history.Changes(ctx, input.Name, input.Since)
	if err != nil {
		return nil, huma.Error500InternalServerError("computing changes: " + err.Error())
	}
	if changes == nil {
		changes = []domain.PriceChange{}
	}

	out := &ChangesOutput{}
	out.Body.Changes = changes
	return out, nil
}

// HistoryProductsOutput is the response body for the history product list.
type HistoryProductsOutput struct {
	Body struct {
		Products []string `json:"products" doc:"Product names present in the history log, sorted"`
	}
}

// Products returns the product names that have at least one recorded
// observation, which may include products since removed from the catalog.
func (h *HistoryHandler) Products(ctx context.Context, _ *struct{}) (*HistoryProductsOutput, error) {
	names, err := h.history.Products(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing history products: " + err.Error())
	}
	if names == nil {
		names = []string{}
	}

	out := &HistoryProductsOutput{}
	out.Body.Products = names
	return out, nil
}

// ExportCSV streams history as CSV. An empty product query exports every
// product. Registered directly on Echo since Huma is a poor fit for
// non-JSON streaming responses.
func (h *HistoryHandler) ExportCSV(c echo.Context) error {
	name := c.QueryParam("product")

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="price_history.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	return h.history.ExportCSV(c.Request().Context(), c.Response(), name)
}

// RegisterHistoryRoutes registers history endpoints with the Huma API.
func RegisterHistoryRoutes(api huma.API, h *HistoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-product-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{name}/history",
		Summary:     "Get price history",
		Description: "Returns all recorded observations for a product, oldest first.",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.History)

	huma.Register(api, huma.Operation{
		OperationID: "get-product-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{name}/stats",
		Summary:     "Get price statistics",
		Description: "Returns min/max/avg/count over successful observations.",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "get-product-changes",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{name}/changes",
		Summary:     "Get price changes",
		Description: "Returns the points where the successfully observed price differed from the previous one.",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Changes)

	huma.Register(api, huma.Operation{
		OperationID: "list-history-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/history/products",
		Summary:     "List products with recorded history",
		Description: "Returns the distinct product names present in the history log, including any no longer in the catalog.",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Products)
}
