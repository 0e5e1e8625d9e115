// Package notify defines the notification interface and implementations
// for price-drop alert delivery.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// Alert carries everything a sink needs to describe a price drop.
// PreviousPrice is the reference price before this observation, nil on the
// first ever successful check of a product.
type Alert struct {
	Product       domain.Product
	Observation   domain.PriceObservation
	Reason        domain.NotifyReason
	PreviousPrice *float64
}

// Notifier delivers alerts. Delivery is best-effort from the engine's
// perspective; a failed send never rolls back state or history writes.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// Multi fans an alert out to several sinks and joins their errors.
type Multi struct {
	sinks []Notifier
}

// NewMulti creates a fan-out notifier over the given sinks.
func NewMulti(sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks}
}

// Send delivers to every sink, collecting failures instead of stopping at
// the first one.
func (m *Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// alertBody renders the shared plain-text message describing the drop.
func alertBody(alert Alert) string {
	var b strings.Builder

	price := 0.0
	if alert.Observation.Price != nil {
		price = *alert.Observation.Price
	}

	switch alert.Reason {
	case domain.ReasonPriceChangedDuringCooldown:
		fmt.Fprintf(&b, "The price of %s moved again!\n\n", alert.Product.Name)
	default:
		fmt.Fprintf(&b, "Great news! The price of %s has dropped!\n\n", alert.Product.Name)
	}

	if alert.PreviousPrice != nil && *alert.PreviousPrice > 0 {
		prev := *alert.PreviousPrice
		discount := 100 * (prev - price) / prev
		fmt.Fprintf(&b, "Previous price: $%.2f\n", prev)
		fmt.Fprintf(&b, "Current price: $%.2f\n", price)
		fmt.Fprintf(&b, "Discount: %.1f%%\n", discount)
	} else {
		fmt.Fprintf(&b, "Current price: $%.2f\n", price)
	}

	if alert.Product.TargetPrice != nil {
		fmt.Fprintf(&b, "Target price: $%.2f\n", *alert.Product.TargetPrice)
	}

	fmt.Fprintf(&b, "\n%s\n", alert.Product.URL)
	return b.String()
}
