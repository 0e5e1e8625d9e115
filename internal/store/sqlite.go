package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// SQLiteStore implements StateStore on a SQLite database. Atomicity comes
// from transactions instead of a file lock; a bounded busy timeout maps
// contention to ErrBusy so callers keep the same skip-this-cycle semantics
// as the JSON backend.
type SQLiteStore struct {
	db *sql.DB
}

// stateTimeLayout pads fractional seconds to a fixed width so the stored
// strings compare in chronological order; RFC3339Nano trims trailing zeros.
const stateTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const stateSchema = `
CREATE TABLE IF NOT EXISTS product_state (
	name                TEXT PRIMARY KEY,
	last_price          REAL,
	last_check          TEXT NOT NULL,
	last_notified       TEXT,
	last_notified_price REAL
);
`

// NewSQLiteStore opens (creating if needed) a SQLite state store at path.
func NewSQLiteStore(path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)",
		path, busyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Read returns the state for one product, or ErrNotFound.
func (s *SQLiteStore) Read(ctx context.Context, name string) (*domain.ProductState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, last_price, last_check, last_notified, last_notified_price
		FROM product_state WHERE name = ?`, name)

	state, err := scanState(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, translateSQLiteErr("reading state", err)
	}
	return state, nil
}

// Write atomically replaces one product's record via upsert in an immediate
// transaction.
func (s *SQLiteStore) Write(ctx context.Context, state *domain.ProductState) error {
	if state == nil || state.Name == "" {
		return fmt.Errorf("store: state must have a product name")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateSQLiteErr("beginning state transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO product_state (name, last_price, last_check, last_notified, last_notified_price)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			last_price          = excluded.last_price,
			last_check          = excluded.last_check,
			last_notified       = excluded.last_notified,
			last_notified_price = excluded.last_notified_price`,
		state.Name,
		state.LastPrice,
		state.LastCheck.UTC().Format(stateTimeLayout),
		formatNullableTime(state.LastNotified),
		state.LastNotifiedPrice,
	)
	if err != nil {
		return translateSQLiteErr("writing state", err)
	}

	if err := tx.Commit(); err != nil {
		return translateSQLiteErr("committing state", err)
	}
	return nil
}

// List returns all product states.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.ProductState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, last_price, last_check, last_notified, last_notified_price
		FROM product_state ORDER BY name`)
	if err != nil {
		return nil, translateSQLiteErr("listing state", err)
	}
	defer rows.Close()

	var states []domain.ProductState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, translateSQLiteErr("scanning state", err)
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, translateSQLiteErr("iterating state", err)
	}
	return states, nil
}

// Delete removes one product's record. Absent records are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM product_state WHERE name = ?`, name,
	); err != nil {
		return translateSQLiteErr("deleting state", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(r rowScanner) (*domain.ProductState, error) {
	var (
		state        domain.ProductState
		lastCheck    string
		lastNotified sql.NullString
	)

	if err := r.Scan(
		&state.Name, &state.LastPrice, &lastCheck,
		&lastNotified, &state.LastNotifiedPrice,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, lastCheck)
	if err != nil {
		return nil, fmt.Errorf("%w: bad last_check %q", ErrCorrupt, lastCheck)
	}
	state.LastCheck = t

	if lastNotified.Valid {
		nt, err := time.Parse(time.RFC3339Nano, lastNotified.String)
		if err != nil {
			return nil, fmt.Errorf("%w: bad last_notified %q", ErrCorrupt, lastNotified.String)
		}
		state.LastNotified = &nt
	}

	return &state, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(stateTimeLayout)
}

// translateSQLiteErr maps driver-level contention to ErrBusy so both
// backends surface the same condition.
func translateSQLiteErr(op string, err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
			return ErrBusy
		case sqlitelib.SQLITE_CORRUPT, sqlitelib.SQLITE_NOTADB:
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
