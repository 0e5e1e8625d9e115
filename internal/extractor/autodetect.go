package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/donaldgifford/sale-monitor/pkg/pricetext"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// candidate is one entry in the ranked selector table.
type candidate struct {
	selector   string
	platform   string
	confidence float64
}

// selectorTable ranks known price-element selectors for common e-commerce
// platforms, highest confidence first within each platform.
var selectorTable = []candidate{
	// Shopify
	{".product-single__price .money", "shopify", 0.95},
	{".product__price .money", "shopify", 0.95},
	{"[data-product-price]", "shopify", 0.90},
	{".price--main", "shopify", 0.90},

	// WooCommerce
	{".woocommerce-Price-amount.amount", "woocommerce", 0.95},
	{"p.price ins .woocommerce-Price-amount", "woocommerce", 0.95},
	{"p.price .amount", "woocommerce", 0.90},
	{".summary .price", "woocommerce", 0.85},

	// BigCommerce
	{".productView-price", "bigcommerce", 0.95},

	// Magento
	{`[data-price-type="finalPrice"]`, "magento", 0.95},
	{".price-box .price", "magento", 0.90},
	{".product-info-price .price", "magento", 0.85},

	// Generic fallbacks
	{`[itemprop="price"]`, "generic", 0.80},
	{"[data-price]", "generic", 0.75},
	{".current-price", "generic", 0.75},
	{".product-price", "generic", 0.70},
	{".sale-price", "generic", 0.70},
	{".price", "generic", 0.60},
	{"#price", "generic", 0.60},
}

// DetectSelector tries the ranked selector table against a parsed page and
// returns the best candidate whose matched text parses as a price, or nil
// when nothing plausible matches.
func DetectSelector(doc *goquery.Document) *domain.Detection {
	var best *domain.Detection

	for _, c := range selectorTable {
		if best != nil && c.confidence <= best.Confidence {
			continue
		}

		matched := false
		doc.Find(c.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if _, err := pricetext.Parse(text); err == nil {
				matched = true
				return false
			}
			return true
		})

		if matched {
			best = &domain.Detection{
				Selector:   c.selector,
				Platform:   c.platform,
				Confidence: c.confidence,
			}
		}
	}

	return best
}
