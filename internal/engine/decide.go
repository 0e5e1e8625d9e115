package engine

import (
	"time"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// transition describes one row of the cooldown state machine. When
// reasonChanged is set the notification reason is replaced with
// ReasonPriceChangedDuringCooldown instead of the trigger's own reason.
type transition struct {
	notify        bool
	reasonChanged bool
}

// transitions is keyed by (triggerMet, withinCooldown, priceChangedSincePriorNotify).
// Rows with triggerMet=false never notify; within a cooldown window only a
// price that moved since the last alert gets through.
var transitions = map[[3]bool]transition{
	{false, false, false}: {},
	{false, false, true}:  {},
	{false, true, false}:  {},
	{false, true, true}:   {},
	{true, false, false}:  {notify: true},
	{true, false, true}:   {notify: true},
	{true, true, false}:   {},
	{true, true, true}:    {notify: true, reasonChanged: true},
}

// Decide evaluates one observation against a product's prior state and
// returns whether to notify plus the replacement state to commit. It is a
// pure function: the only clock it sees is the supplied now, and prior may
// be nil for a product that has never been checked.
func Decide(p domain.Product, obs domain.PriceObservation, prior *domain.ProductState, now time.Time) domain.NotificationDecision {
	next := domain.ProductState{Name: p.Name, LastCheck: now}
	if prior != nil {
		next = *prior
		next.LastCheck = now
	}

	if obs.Outcome != domain.OutcomeSuccess || obs.Price == nil {
		return domain.NotificationDecision{State: next}
	}

	price := *obs.Price
	next.LastPrice = obs.Price

	reason, triggerMet := trigger(p, price, prior)

	key := [3]bool{
		triggerMet,
		withinCooldown(p, prior, now),
		priceChangedSincePriorNotify(prior, price),
	}
	tr := transitions[key]
	if !tr.notify {
		return domain.NotificationDecision{State: next}
	}
	if tr.reasonChanged {
		reason = domain.ReasonPriceChangedDuringCooldown
	}

	next.LastNotified = &now
	next.LastNotifiedPrice = obs.Price

	return domain.NotificationDecision{
		Notify: true,
		Reason: reason,
		State:  next,
	}
}

// trigger reports whether the observed price meets the product's target
// price or discount threshold. Target price wins when both are configured.
func trigger(p domain.Product, price float64, prior *domain.ProductState) (domain.NotifyReason, bool) {
	if p.TargetPrice != nil && price <= *p.TargetPrice {
		return domain.ReasonTargetPriceHit, true
	}
	if p.DiscountThreshold != nil {
		if pct, ok := discountPercent(price, prior); ok && pct >= *p.DiscountThreshold {
			return domain.ReasonDiscountThresholdHit, true
		}
	}
	return "", false
}

// discountPercent computes the discount relative to the most recent previous
// observed price. Without a usable reference there is no discount to speak of.
func discountPercent(price float64, prior *domain.ProductState) (float64, bool) {
	if prior == nil || prior.LastPrice == nil || *prior.LastPrice <= 0 {
		return 0, false
	}
	return 100 * (*prior.LastPrice - price) / *prior.LastPrice, true
}

func withinCooldown(p domain.Product, prior *domain.ProductState, now time.Time) bool {
	if prior == nil || prior.LastNotified == nil {
		return false
	}
	return now.Sub(*prior.LastNotified) < p.Cooldown()
}

func priceChangedSincePriorNotify(prior *domain.ProductState, price float64) bool {
	if prior == nil || prior.LastNotifiedPrice == nil {
		return false
	}
	return *prior.LastNotifiedPrice != price
}
