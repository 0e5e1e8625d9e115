// Package catalog reads the product catalog the monitor iterates over. The
// catalog is a plain CSV file owned by the operator; it is re-read on every
// cycle so edits take effect on the next tick without a restart.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

const defaultCooldownHours = 24

// Source provides the current catalog snapshot.
type Source interface {
	Load(ctx context.Context) ([]domain.Product, error)
}

// CSVCatalog reads products from a CSV file with a header row. Required
// columns are name, url, and selector; target_price, discount_threshold,
// enabled, and notification_cooldown_hours are optional.
type CSVCatalog struct {
	path string
}

// NewCSVCatalog returns a catalog backed by the CSV file at path.
func NewCSVCatalog(path string) *CSVCatalog {
	return &CSVCatalog{path: path}
}

// Load reads and validates the whole catalog file. Product names must be
// non-empty and unique within the file.
func (c *CSVCatalog) Load(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"name", "url", "selector"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog is missing required column %q", required)
		}
	}

	var products []domain.Product
	seen := make(map[string]struct{})

	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog line %d: %w", line, err)
		}

		p := domain.Product{
			Name:              field(row, cols, "name"),
			URL:               field(row, cols, "url"),
			Selector:          field(row, cols, "selector"),
			TargetPrice:       parseFloat(field(row, cols, "target_price")),
			DiscountThreshold: parseFloat(field(row, cols, "discount_threshold")),
			Enabled:           parseBool(field(row, cols, "enabled")),
			CooldownHours:     parseInt(field(row, cols, "notification_cooldown_hours"), defaultCooldownHours),
		}

		if p.Name == "" {
			return nil, fmt.Errorf("catalog line %d: empty product name", line)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("catalog line %d: duplicate product name %q", line, p.Name)
		}
		seen[p.Name] = struct{}{}

		products = append(products, p)
	}

	return products, nil
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseFloat is lenient: empty or malformed values mean "not configured".
func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseBool treats anything except an explicit negative as enabled, so a
// missing column keeps existing catalogs working.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "false", "0", "no", "n":
		return false
	default:
		return true
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
