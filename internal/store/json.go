package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

const lockRetryInterval = 50 * time.Millisecond

// JSONStore keeps all product states in one JSON document keyed by product
// name. Because the scheduler process and the management surface may touch
// the file simultaneously, every read-modify-write runs under an advisory
// lock file beside the data file, and replacement is a temp-file rename.
type JSONStore struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration

	// mu serializes goroutines within this process; the flock file
	// serializes against other processes.
	mu sync.Mutex
}

// JSONOption configures a JSONStore.
type JSONOption func(*JSONStore)

// WithLockTimeout bounds the wait for the advisory lock. When exceeded, the
// operation fails with ErrBusy instead of blocking.
func WithLockTimeout(d time.Duration) JSONOption {
	return func(s *JSONStore) {
		s.lockTimeout = d
	}
}

// NewJSONStore creates a JSON-document state store at path. The parent
// directory is created if needed; the document itself is created lazily on
// first write.
func NewJSONStore(path string, opts ...JSONOption) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	s := &JSONStore{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Read returns the state for one product, or ErrNotFound.
func (s *JSONStore) Read(ctx context.Context, name string) (*domain.ProductState, error) {
	var state *domain.ProductState

	err := s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		rec, ok := doc[name]
		if !ok {
			return ErrNotFound
		}
		state = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Write atomically replaces one product's record.
func (s *JSONStore) Write(ctx context.Context, state *domain.ProductState) error {
	if state == nil || state.Name == "" {
		return fmt.Errorf("store: state must have a product name")
	}

	return s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		doc[state.Name] = *state
		return s.replace(doc)
	})
}

// List returns all product states.
func (s *JSONStore) List(ctx context.Context) ([]domain.ProductState, error) {
	var states []domain.ProductState

	err := s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		states = make([]domain.ProductState, 0, len(doc))
		for _, rec := range doc {
			states = append(states, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

// Delete removes one product's record. Absent records are a no-op.
func (s *JSONStore) Delete(ctx context.Context, name string) error {
	return s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := doc[name]; !ok {
			return nil
		}
		delete(doc, name)
		return s.replace(doc)
	})
}

// Ping verifies the document is readable (an absent document is healthy).
func (s *JSONStore) Ping(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		_, err := s.load()
		return err
	})
}

// Close releases the lock file if held.
func (s *JSONStore) Close() error {
	return s.lock.Unlock()
}

// withLock runs fn under the advisory lock, releasing it on every exit path.
// A lock wait beyond the configured timeout yields ErrBusy.
func (s *JSONStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrBusy
		}
		return fmt.Errorf("acquiring state lock: %w", err)
	}
	if !locked {
		return ErrBusy
	}
	defer s.lock.Unlock() //nolint:errcheck // release is best-effort on all paths

	return fn()
}

// load reads the whole document. A missing file is an empty document; a
// malformed file is ErrCorrupt.
func (s *JSONStore) load() (map[string]domain.ProductState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]domain.ProductState{}, nil
		}
		return nil, fmt.Errorf("reading state document: %w", err)
	}

	if len(data) == 0 {
		return map[string]domain.ProductState{}, nil
	}

	doc := map[string]domain.ProductState{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return doc, nil
}

// replace writes the document to a temp file in the same directory and
// renames it over the original, so readers never observe a partial write.
func (s *JSONStore) replace(doc map[string]domain.ProductState) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing state document: %w", err)
	}
	return nil
}
