package handlers

import (
	"context"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/sale-monitor/internal/extractor"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// DocumentFetcher fetches and parses a product page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// DetectHandler handles selector auto-detection requests.
type DetectHandler struct {
	fetcher DocumentFetcher
}

// NewDetectHandler creates a new DetectHandler.
func NewDetectHandler(f DocumentFetcher) *DetectHandler {
	return &DetectHandler{fetcher: f}
}

// DetectInput is the request body for the detect endpoint.
type DetectInput struct {
	Body struct {
		URL string `json:"url" minLength:"1" doc:"Product page URL to inspect" example:"https://shop.example/widget"`
	}
}

// DetectOutput is the response body for the detect endpoint.
type DetectOutput struct {
	Body domain.Detection
}

// Detect fetches a page and proposes a price selector for it.
func (h *DetectHandler) Detect(ctx context.Context, input *DetectInput) (*DetectOutput, error) {
	doc, err := h.fetcher.FetchDocument(ctx, input.Body.URL)
	if err != nil {
		return nil, huma.Error502BadGateway("fetching page: " + err.Error())
	}

	det := extractor.DetectSelector(doc)
	if det == nil {
		return nil, huma.Error404NotFound("no price-like element detected")
	}

	return &DetectOutput{Body: *det}, nil
}

// RegisterDetectRoutes registers the selector detection endpoint with the Huma API.
func RegisterDetectRoutes(api huma.API, h *DetectHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "detect-selector",
		Method:      http.MethodPost,
		Path:        "/api/v1/detect",
		Summary:     "Auto-detect a price selector",
		Description: "Fetches the page and tries known e-commerce selectors until one yields parseable price text.",
		Tags:        []string{"detect"},
		Errors:      []int{http.StatusNotFound, http.StatusBadGateway},
	}, h.Detect)
}
