// Package pricetext parses human-facing price strings into decimal values.
//
// Price text on product pages mixes currency symbols, whitespace, and both
// separator conventions ("$1,234.56" vs "199,99 €"). The parser strips
// everything but digits and separators, then applies one heuristic: if the
// last separator is followed by one or two digits it is the decimal point and
// every other separator is a thousands mark; otherwise all separators are
// thousands marks.
package pricetext

import (
	"errors"
	"strconv"
	"strings"
)

// Parse errors.
var (
	ErrNoDigits    = errors.New("pricetext: no digits in input")
	ErrNotAPrice   = errors.New("pricetext: text does not parse as a price")
	ErrNonPositive = errors.New("pricetext: price must be greater than zero")
)

// Parse extracts a decimal price from raw element text.
// It returns an error for empty input, unparsable text, and non-positive
// results.
func Parse(text string) (float64, error) {
	cleaned := keepDigitsAndSeparators(text)
	if cleaned == "" {
		return 0, ErrNoDigits
	}

	normalized := normalizeSeparators(cleaned)

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, ErrNotAPrice
	}
	if v <= 0 {
		return 0, ErrNonPositive
	}
	return v, nil
}

func keepDigitsAndSeparators(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeSeparators rewrites cleaned input into strconv-parsable form.
func normalizeSeparators(s string) string {
	idx := strings.LastIndexAny(s, ".,")
	if idx == -1 {
		return s
	}

	frac := s[idx+1:]
	if n := len(frac); n >= 1 && n <= 2 {
		// Trailing 1-2 digit group: decimal part. Drop the other separators.
		intPart := stripSeparators(s[:idx])
		return intPart + "." + frac
	}

	// No fractional group: every separator is a thousands mark.
	return stripSeparators(s)
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, ".", "")
}
