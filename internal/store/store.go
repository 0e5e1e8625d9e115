// Package store defines the durable product-state abstraction for
// sale-monitor. The engine and the management API both depend on the
// StateStore interface, never on a concrete backend; the two backends (a
// single JSON document guarded by an advisory file lock, and SQLite guarded
// by transactions) present one atomicity contract: no torn reads, writers to
// different product names never lose each other's updates, and same-name
// writers serialize last-write-wins.
package store

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// Sentinel errors shared by all backends.
var (
	// ErrNotFound means no state exists yet for the requested product.
	ErrNotFound = errors.New("store: product state not found")

	// ErrBusy means the lock or transaction could not be acquired within the
	// bounded wait. Callers skip the product for this cycle and retry next tick.
	ErrBusy = errors.New("store: busy")

	// ErrCorrupt means the persisted document is malformed. It is never
	// silently replaced with fresh state; doing so would erase cooldown
	// history and storm duplicate notifications.
	ErrCorrupt = errors.New("store: persisted state is corrupt")
)

// StateStore provides atomic per-product access to monitoring state.
type StateStore interface {
	// Read returns the state for one product, or ErrNotFound.
	Read(ctx context.Context, name string) (*domain.ProductState, error)

	// Write atomically replaces one product's record without disturbing
	// concurrent writes to other products.
	Write(ctx context.Context, state *domain.ProductState) error

	// List returns all product states, unordered.
	List(ctx context.Context) ([]domain.ProductState, error)

	// Delete removes one product's record. Deleting an absent record is a
	// no-op. Used by the management surface, never by the cycle engine.
	Delete(ctx context.Context, name string) error

	// Ping verifies the backend is reachable and readable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
