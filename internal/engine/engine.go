// Package engine orchestrates monitoring cycles: extraction, notification
// decisions, state and history persistence, and the schedule that drives
// them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donaldgifford/sale-monitor/internal/catalog"
	"github.com/donaldgifford/sale-monitor/internal/extractor"
	"github.com/donaldgifford/sale-monitor/internal/metrics"
	"github.com/donaldgifford/sale-monitor/internal/notify"
	"github.com/donaldgifford/sale-monitor/internal/store"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// History is the slice of the history store the engine needs.
type History interface {
	Append(ctx context.Context, obs domain.PriceObservation) (domain.HistoryRecord, error)
	Prune(ctx context.Context, retentionDays int) (int64, error)
}

// Engine runs monitoring cycles over the catalog.
type Engine struct {
	catalog   catalog.Source
	extractor extractor.Extractor
	states    store.StateStore
	history   History
	notifier  notify.Notifier
	log       *slog.Logger

	nowFunc       func() time.Time
	staggerOffset time.Duration
	retentionDays int
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	c catalog.Source,
	ex extractor.Extractor,
	st store.StateStore,
	h History,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		catalog:   c,
		extractor: ex,
		states:    st,
		history:   h,
		notifier:  n,
		log:       slog.Default(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// WithStaggerOffset sets the delay between checking each product.
func WithStaggerOffset(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.staggerOffset = d
	}
}

// WithRetentionDays sets the history retention window for RunPrune.
func WithRetentionDays(days int) EngineOption {
	return func(e *Engine) {
		e.retentionDays = days
	}
}

// RunCycle executes one pass over all enabled products in the current
// catalog snapshot. Per-product failures are isolated: they are logged,
// recorded as failed history entries, and counted, but never abort the
// remaining products. Only a catalog read failure or store corruption stops
// the cycle.
func (eng *Engine) RunCycle(ctx context.Context) (domain.CycleSummary, error) {
	start := eng.nowFunc()
	summary := domain.CycleSummary{StartedAt: start}
	defer func() {
		summary.Duration = eng.nowFunc().Sub(start)
		metrics.CycleDuration.Observe(summary.Duration.Seconds())
	}()

	products, err := eng.catalog.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("loading catalog: %w", err)
	}

	enabled := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}

	eng.log.Info("cycle starting", "products", len(enabled))

	for i, p := range enabled {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		notified, err := eng.checkProduct(ctx, p)
		switch {
		case errors.Is(err, store.ErrCorrupt):
			// A corrupt store must be repaired externally. Writing
			// further would paper over it and could storm duplicate
			// notifications, so the cycle stops here.
			summary.Failed++
			metrics.CycleProductsFailed.Inc()
			return summary, fmt.Errorf("checking %s: %w", p.Name, err)
		case err != nil:
			summary.Failed++
			metrics.CycleProductsFailed.Inc()
			eng.log.Error("product check failed", "product", p.Name, "error", err)
		default:
			summary.Checked++
			metrics.CycleProductsChecked.Inc()
			if notified {
				summary.Notified++
			}
		}

		if i < len(enabled)-1 && eng.staggerOffset > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(eng.staggerOffset):
			}
		}
	}

	eng.log.Info("cycle complete",
		"checked", summary.Checked,
		"notified", summary.Notified,
		"failed", summary.Failed,
	)

	return summary, nil
}

// checkProduct runs one product through extract, decide, persist, notify.
// The returned bool reports whether a notification was sent.
func (eng *Engine) checkProduct(ctx context.Context, p domain.Product) (notified bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic checking %s: %v", p.Name, r)
		}
	}()

	obs := eng.extractor.Extract(ctx, p)

	// Every attempt lands in history, failed extractions included.
	if _, histErr := eng.history.Append(ctx, obs); histErr != nil {
		return false, fmt.Errorf("appending history: %w", histErr)
	}

	prior, readErr := eng.states.Read(ctx, p.Name)
	if readErr != nil && !errors.Is(readErr, store.ErrNotFound) {
		if errors.Is(readErr, store.ErrBusy) {
			metrics.StoreBusyTotal.Inc()
			eng.log.Warn("state store busy, skipping product this cycle", "product", p.Name)
		}
		return false, fmt.Errorf("reading state: %w", readErr)
	}

	decision := Decide(p, obs, prior, eng.nowFunc())

	state := decision.State
	if writeErr := eng.states.Write(ctx, &state); writeErr != nil {
		if errors.Is(writeErr, store.ErrBusy) {
			metrics.StoreBusyTotal.Inc()
			eng.log.Warn("state store busy, skipping product this cycle", "product", p.Name)
		}
		return false, fmt.Errorf("writing state: %w", writeErr)
	}

	if obs.Outcome != domain.OutcomeSuccess {
		return false, fmt.Errorf("extraction %s: %s", obs.Outcome, obs.Err)
	}

	if decision.Notify {
		eng.sendAlert(ctx, p, obs, decision, prior)
		notified = true
	}

	return notified, nil
}

// sendAlert delivers a notification best-effort. Failures are logged and
// counted but never roll back the state and history writes that already
// committed for this product.
func (eng *Engine) sendAlert(
	ctx context.Context,
	p domain.Product,
	obs domain.PriceObservation,
	decision domain.NotificationDecision,
	prior *domain.ProductState,
) {
	alert := notify.Alert{
		Product:     p,
		Observation: obs,
		Reason:      decision.Reason,
	}
	if prior != nil {
		alert.PreviousPrice = prior.LastPrice
	}

	if err := eng.notifier.Send(ctx, alert); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		eng.log.Error("notification delivery failed", "product", p.Name, "error", err)
		return
	}

	metrics.NotificationsTotal.WithLabelValues(string(decision.Reason)).Inc()
	eng.log.Info("notification sent",
		"product", p.Name,
		"reason", decision.Reason,
		"price", obs.Price,
	)
}

// RunPrune applies the history retention policy. A retention of zero days
// keeps everything.
func (eng *Engine) RunPrune(ctx context.Context) error {
	deleted, err := eng.history.Prune(ctx, eng.retentionDays)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	if deleted > 0 {
		metrics.HistoryPrunedTotal.Add(float64(deleted))
	}
	eng.log.Info("history pruned", "deleted", deleted, "retention_days", eng.retentionDays)
	return nil
}
