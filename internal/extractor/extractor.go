// Package extractor fetches product pages and turns them into typed price
// observations. Every failure path is a typed outcome, never an error or a
// panic past the package boundary, so the cycle engine can decide
// per-product continuation. Retry policy deliberately lives with the
// scheduler: a failed check is simply retried on the next tick.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/donaldgifford/sale-monitor/internal/metrics"
	"github.com/donaldgifford/sale-monitor/pkg/pricetext"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; SaleMonitor/1.0)"

// Extractor turns a product definition into a price observation.
type Extractor interface {
	Extract(ctx context.Context, product domain.Product) domain.PriceObservation
}

// HTTPExtractor implements Extractor over plain HTTP GET with a CSS
// selector. A shared token bucket keeps outbound fetches polite when a
// cycle covers many products on the same shop.
type HTTPExtractor struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       *slog.Logger
	nowFunc   func() time.Time
}

// HTTPOption configures the HTTPExtractor.
type HTTPOption func(*HTTPExtractor)

// WithHTTPClient sets a custom HTTP client (the client's Timeout bounds each
// fetch).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPExtractor) {
		e.client = c
	}
}

// WithRateLimit sets the outbound token bucket.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(e *HTTPExtractor) {
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithUserAgent sets the User-Agent header sent with every fetch.
func WithUserAgent(ua string) HTTPOption {
	return func(e *HTTPExtractor) {
		e.userAgent = ua
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(e *HTTPExtractor) {
		e.log = l
	}
}

// WithNowFunc overrides the observation clock for testing.
func WithNowFunc(f func() time.Time) HTTPOption {
	return func(e *HTTPExtractor) {
		e.nowFunc = f
	}
}

// NewHTTPExtractor creates an extractor with a 30s fetch timeout and a
// 2 req/s politeness limit unless overridden.
func NewHTTPExtractor(opts ...HTTPOption) *HTTPExtractor {
	e := &HTTPExtractor{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(2), 4),
		userAgent: defaultUserAgent,
		log:       slog.Default(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches the product page, applies the selector, and parses the
// matched text into a price.
func (e *HTTPExtractor) Extract(ctx context.Context, product domain.Product) domain.PriceObservation {
	obs := domain.PriceObservation{
		Product:   product.Name,
		CheckedAt: e.nowFunc(),
	}

	doc, err := e.fetch(ctx, product.URL)
	if err != nil {
		e.log.Warn("fetch failed", "product", product.Name, "url", product.URL, "error", err)
		return e.observed(obs, domain.OutcomeFetchError, err)
	}

	sel := doc.Find(product.Selector).First()
	if sel.Length() == 0 {
		e.log.Warn("selector not found", "product", product.Name, "selector", product.Selector)
		return e.observed(obs, domain.OutcomeNotFound,
			fmt.Errorf("selector %q matched nothing", product.Selector))
	}

	text := strings.TrimSpace(sel.Text())
	price, err := pricetext.Parse(text)
	if err != nil {
		e.log.Warn("price parse failed", "product", product.Name, "text", text, "error", err)
		return e.observed(obs, domain.OutcomeParseError, err)
	}

	obs.Price = &price
	return e.observed(obs, domain.OutcomeSuccess, nil)
}

// FetchDocument fetches and parses a page without extracting a price.
// Selector auto-detection uses it.
func (e *HTTPExtractor) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	return e.fetch(ctx, url)
}

func (e *HTTPExtractor) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

func (e *HTTPExtractor) observed(
	obs domain.PriceObservation,
	outcome domain.Outcome,
	err error,
) domain.PriceObservation {
	obs.Outcome = outcome
	if err != nil {
		obs.Err = err.Error()
	}
	metrics.ExtractionsTotal.WithLabelValues(string(outcome)).Inc()
	return obs
}
