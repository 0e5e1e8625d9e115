// Package main implements a mock online shop for local development.
// It serves canned HTML product pages in the markup styles of common
// e-commerce platforms so the extractor and selector detection can be
// exercised without hitting real stores.
package main

import (
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"
)

type productPage struct {
	Slug     string
	Name     string
	Platform string
	Price    float64
	Template string
}

var pages = []productPage{
	{
		Slug:     "walnut-desk",
		Name:     "Walnut Standing Desk",
		Platform: "woocommerce",
		Price:    499.00,
		Template: wooTemplate,
	},
	{
		Slug:     "trail-shoes",
		Name:     "Trail Running Shoes",
		Platform: "shopify",
		Price:    129.95,
		Template: shopifyTemplate,
	},
	{
		Slug:     "espresso-grinder",
		Name:     "Espresso Grinder",
		Platform: "generic",
		Price:    249.50,
		Template: genericTemplate,
	},
	{
		Slug:     "sold-out-lamp",
		Name:     "Arc Floor Lamp",
		Platform: "none",
		Price:    0,
		Template: noPriceTemplate,
	},
}

const wooTemplate = `<!DOCTYPE html>
<html><head><title>{{.Name}}</title></head><body>
<h1 class="product_title">{{.Name}}</h1>
<p class="price"><span class="woocommerce-Price-amount amount">
<bdi><span class="woocommerce-Price-currencySymbol">$</span>{{.PriceText}}</bdi>
</span></p>
</body></html>`

const shopifyTemplate = `<!DOCTYPE html>
<html><head><title>{{.Name}}</title></head><body>
<h1>{{.Name}}</h1>
<div class="price__container">
<span class="price-item price-item--regular">${{.PriceText}}</span>
</div>
</body></html>`

const genericTemplate = `<!DOCTYPE html>
<html><head><title>{{.Name}}</title></head><body>
<h1>{{.Name}}</h1>
<div class="product-info">
<span itemprop="price" content="{{.PriceText}}">${{.PriceText}}</span>
</div>
</body></html>`

const noPriceTemplate = `<!DOCTYPE html>
<html><head><title>{{.Name}}</title></head><body>
<h1>{{.Name}}</h1>
<p class="availability">Currently unavailable. Call for price.</p>
</body></html>`

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", indexHandler(logger))
	for _, p := range pages {
		mux.HandleFunc("GET /products/"+p.Slug, pageHandler(logger, p))
	}

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock shop", "addr", addr, "products", len(pages))

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func indexHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Mock Shop</h1><ul>")
		for _, p := range pages {
			fmt.Fprintf(w, `<li><a href="/products/%s">%s</a> (%s)</li>`, p.Slug, p.Name, p.Platform)
		}
		fmt.Fprint(w, "</ul></body></html>")
		logger.Debug("served index")
	}
}

// pageHandler renders a product page. The price can be overridden with
// a ?price= query parameter so price drops can be simulated between
// monitoring cycles without restarting the server.
func pageHandler(logger *slog.Logger, p productPage) http.HandlerFunc {
	tmpl := template.Must(template.New(p.Slug).Parse(p.Template))
	return func(w http.ResponseWriter, r *http.Request) {
		price := p.Price
		if s := r.URL.Query().Get("price"); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
				price = v
			}
		}

		data := struct {
			Name      string
			PriceText string
		}{Name: p.Name, PriceText: fmt.Sprintf("%.2f", price)}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			logger.Error("rendering page", "slug", p.Slug, "error", err)
			return
		}
		logger.Info("served product page", "slug", p.Slug, "platform", p.Platform, "price", price)
	}
}
