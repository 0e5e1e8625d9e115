package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPageHandler_DefaultPrice(t *testing.T) {
	page := pages[0] // walnut-desk, woocommerce
	handler := pageHandler(testLogger(), page)
	req := httptest.NewRequest(http.MethodGet, "/products/walnut-desk", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "499.00") {
		t.Errorf("body missing default price:\n%s", body)
	}
	if !strings.Contains(body, "woocommerce-Price-amount") {
		t.Errorf("body missing platform markup:\n%s", body)
	}
}

func TestPageHandler_PriceOverride(t *testing.T) {
	page := pages[1] // trail-shoes, shopify
	handler := pageHandler(testLogger(), page)
	req := httptest.NewRequest(http.MethodGet, "/products/trail-shoes?price=89.99", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "89.99") {
		t.Errorf("body missing overridden price:\n%s", body)
	}
	if strings.Contains(body, "129.95") {
		t.Errorf("body still shows default price:\n%s", body)
	}
}

func TestPageHandler_InvalidOverrideIgnored(t *testing.T) {
	page := pages[2] // espresso-grinder, generic
	handler := pageHandler(testLogger(), page)
	req := httptest.NewRequest(http.MethodGet, "/products/espresso-grinder?price=free", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	if !strings.Contains(w.Body.String(), "249.50") {
		t.Errorf("expected default price when override is invalid:\n%s", w.Body.String())
	}
}

func TestPageHandler_NoPricePage(t *testing.T) {
	page := pages[3] // sold-out-lamp
	handler := pageHandler(testLogger(), page)
	req := httptest.NewRequest(http.MethodGet, "/products/sold-out-lamp", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	body := w.Body.String()
	if strings.Contains(body, "$") {
		t.Errorf("no-price page should not contain a price:\n%s", body)
	}
	if !strings.Contains(body, "Call for price") {
		t.Errorf("body missing availability text:\n%s", body)
	}
}

func TestIndexHandler_ListsAllProducts(t *testing.T) {
	handler := indexHandler(testLogger())
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	body := w.Body.String()
	for _, p := range pages {
		if !strings.Contains(body, p.Slug) {
			t.Errorf("index missing product %q", p.Slug)
		}
	}
}
