// Package domain defines the core business types for sale-monitor.
package domain

import (
	"time"
)

// Outcome classifies the result of a single price check.
type Outcome string

// Outcome constants.
const (
	OutcomeSuccess    Outcome = "success"
	OutcomeNotFound   Outcome = "not-found"
	OutcomeParseError Outcome = "parse-error"
	OutcomeFetchError Outcome = "fetch-error"
)

// Product is a catalog entry describing a page to monitor. The name is the
// join key across the state and history stores and must be unique within a
// catalog snapshot.
type Product struct {
	Name              string   `json:"name"                         yaml:"name"`
	URL               string   `json:"url"                          yaml:"url"`
	Selector          string   `json:"selector"                     yaml:"selector"`
	TargetPrice       *float64 `json:"target_price,omitempty"       yaml:"target_price"`
	DiscountThreshold *float64 `json:"discount_threshold,omitempty" yaml:"discount_threshold"`
	Enabled           bool     `json:"enabled"                      yaml:"enabled"`
	CooldownHours     int      `json:"cooldown_hours"               yaml:"cooldown_hours"`
}

// Cooldown returns the notification cooldown as a duration.
func (p *Product) Cooldown() time.Duration {
	return time.Duration(p.CooldownHours) * time.Hour
}

// PriceObservation is the immutable result of one extraction attempt.
// Price is nil unless Outcome is OutcomeSuccess.
type PriceObservation struct {
	Product   string    `json:"product"`
	Price     *float64  `json:"price,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Outcome   Outcome   `json:"outcome"`
	Err       string    `json:"error,omitempty"`
}

// ProductState is the last-known monitoring state for one product. It is
// owned by the state store and replaced atomically, one product per write.
type ProductState struct {
	Name              string     `json:"name"`
	LastPrice         *float64   `json:"last_price,omitempty"`
	LastCheck         time.Time  `json:"last_check"`
	LastNotified      *time.Time `json:"last_notified,omitempty"`
	LastNotifiedPrice *float64   `json:"last_notified_price,omitempty"`
}

// HistoryRecord is the persisted form of a PriceObservation. Records are
// append-only; the only delete path is retention pruning.
type HistoryRecord struct {
	ID         string    `json:"id"`
	Product    string    `json:"product"`
	Price      *float64  `json:"price,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	CheckedAt  time.Time `json:"checked_at"`
	InsertedAt time.Time `json:"inserted_at"`
}

// PriceChange is a point where the successfully observed price differed from
// the previous successful observation.
type PriceChange struct {
	At       time.Time `json:"at"`
	OldPrice float64   `json:"old_price"`
	NewPrice float64   `json:"new_price"`
}

// PriceStats aggregates successful observations over a time range.
type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// NotifyReason explains why a notification decision fired.
type NotifyReason string

// Notify reason constants.
const (
	ReasonTargetPriceHit             NotifyReason = "target-price-hit"
	ReasonDiscountThresholdHit       NotifyReason = "discount-threshold-hit"
	ReasonPriceChangedDuringCooldown NotifyReason = "price-changed-during-cooldown"
)

// NotificationDecision is the transient outcome of evaluating one observation
// against a product's prior state. State carries the full replacement record
// to commit regardless of whether Notify is set.
type NotificationDecision struct {
	Notify bool
	Reason NotifyReason
	State  ProductState
}

// CycleSummary reports one pass over all enabled products. Checked counts
// products whose state write completed, Failed counts per-product failures;
// a product is counted exactly once.
type CycleSummary struct {
	Checked   int           `json:"checked"`
	Notified  int           `json:"notified"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Detection is the result of selector auto-detection on a product page.
type Detection struct {
	Selector   string  `json:"selector"`
	Platform   string  `json:"platform"`
	Confidence float64 `json:"confidence"`
}
