// Package history persists every price observation to an append-only SQLite
// log. Records are keyed by (product name, timestamp); the only delete path
// is retention pruning. The access pattern is single-writer-many-readers:
// appends from the scheduler and manual triggers serialize on row-level
// transactions, never on a whole-file lock.
package history

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// ErrCorrupt means the history database is unreadable. Writes halt until the
// database is externally repaired.
var ErrCorrupt = errors.New("history: database is corrupt")

// timeLayout pads fractional seconds to a fixed width. RFC3339Nano trims
// trailing zeros, so a whole-second timestamp would sort lexicographically
// after sub-second timestamps within the same second; the TEXT columns are
// compared and ordered as strings, so the stored form must keep
// lexicographic and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS price_history (
	id          TEXT PRIMARY KEY,
	product     TEXT NOT NULL,
	price       REAL,
	outcome     TEXT NOT NULL,
	checked_at  TEXT NOT NULL,
	inserted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history(product);
CREATE INDEX IF NOT EXISTS idx_price_history_checked_at ON price_history(checked_at);
`

// Store is the SQLite-backed history log.
type Store struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithNowFunc overrides the clock used for insertion timestamps and prune
// cutoffs. Tests use this for determinism.
func WithNowFunc(f func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = f
	}
}

// New opens (creating if needed) the history database at path.
func New(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	s := &Store{db: db, nowFunc: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append durably records one observation. Failed extractions are recorded
// too, with a NULL price and the outcome preserved.
func (s *Store) Append(ctx context.Context, obs domain.PriceObservation) (domain.HistoryRecord, error) {
	rec := domain.HistoryRecord{
		ID:         uuid.NewString(),
		Product:    obs.Product,
		Price:      obs.Price,
		Outcome:    obs.Outcome,
		CheckedAt:  obs.CheckedAt.UTC(),
		InsertedAt: s.nowFunc().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_history (id, product, price, outcome, checked_at, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Product,
		rec.Price,
		string(rec.Outcome),
		rec.CheckedAt.Format(timeLayout),
		rec.InsertedAt.Format(timeLayout),
	)
	if err != nil {
		return domain.HistoryRecord{}, translateErr("appending history", err)
	}
	return rec, nil
}

// Query returns all records for one product since the given time,
// chronological oldest first. Each call materializes a fresh slice.
func (s *Store) Query(ctx context.Context, name string, since time.Time) ([]domain.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product, price, outcome, checked_at, inserted_at
		FROM price_history
		WHERE product = ? AND checked_at >= ?
		ORDER BY checked_at ASC`,
		name, since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, translateErr("querying history", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("iterating history", err)
	}
	return records, nil
}

// Aggregate computes min/max/avg/count over successful observations for one
// product since the given time.
func (s *Store) Aggregate(ctx context.Context, name string, since time.Time) (domain.PriceStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(price), 0), COALESCE(MAX(price), 0),
		       COALESCE(AVG(price), 0), COUNT(*)
		FROM price_history
		WHERE product = ? AND checked_at >= ? AND outcome = ? AND price IS NOT NULL`,
		name, since.UTC().Format(timeLayout), string(domain.OutcomeSuccess),
	)

	var stats domain.PriceStats
	if err := row.Scan(&stats.Min, &stats.Max, &stats.Avg, &stats.Count); err != nil {
		return domain.PriceStats{}, translateErr("aggregating history", err)
	}
	return stats, nil
}

// Changes returns the points where a successfully observed price differed
// from the previous successful observation, oldest first.
func (s *Store) Changes(ctx context.Context, name string, since time.Time) ([]domain.PriceChange, error) {
	records, err := s.Query(ctx, name, since)
	if err != nil {
		return nil, err
	}

	var (
		changes []domain.PriceChange
		prev    *float64
	)
	for _, rec := range records {
		if rec.Outcome != domain.OutcomeSuccess || rec.Price == nil {
			continue
		}
		if prev != nil && *rec.Price != *prev {
			changes = append(changes, domain.PriceChange{
				At:       rec.CheckedAt,
				OldPrice: *prev,
				NewPrice: *rec.Price,
			})
		}
		prev = rec.Price
	}
	return changes, nil
}

// Products returns the distinct product names present in the log, sorted.
func (s *Store) Products(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT product FROM price_history ORDER BY product`)
	if err != nil {
		return nil, translateErr("listing history products", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, translateErr("scanning history product", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("iterating history products", err)
	}
	return names, nil
}

// Prune deletes records whose check time is older than retentionDays and
// returns the number deleted. retentionDays 0 means keep forever.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.nowFunc().UTC().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM price_history WHERE checked_at < ?`,
		cutoff.Format(timeLayout),
	)
	if err != nil {
		return 0, translateErr("pruning history", err)
	}
	return res.RowsAffected()
}

// ExportCSV streams the log as a flat delimited table, newest first. An
// empty name exports every product.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer, name string) error {
	query := `
		SELECT product, checked_at, price, outcome
		FROM price_history`
	args := []any{}
	if name != "" {
		query += ` WHERE product = ?`
		args = append(args, name)
	}
	query += ` ORDER BY checked_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return translateErr("exporting history", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "timestamp", "price", "outcome"}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	for rows.Next() {
		var (
			product, checkedAt, outcome string
			price                       sql.NullFloat64
		)
		if err := rows.Scan(&product, &checkedAt, &price, &outcome); err != nil {
			return translateErr("scanning export row", err)
		}

		priceText := ""
		if price.Valid {
			priceText = strconv.FormatFloat(price.Float64, 'f', -1, 64)
		}
		if err := cw.Write([]string{product, checkedAt, priceText, outcome}); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return translateErr("iterating export rows", err)
	}

	cw.Flush()
	return cw.Error()
}

func scanRecord(rows *sql.Rows) (domain.HistoryRecord, error) {
	var (
		rec                   domain.HistoryRecord
		outcome               string
		checkedAt, insertedAt string
	)
	if err := rows.Scan(
		&rec.ID, &rec.Product, &rec.Price, &outcome, &checkedAt, &insertedAt,
	); err != nil {
		return domain.HistoryRecord{}, translateErr("scanning history record", err)
	}

	rec.Outcome = domain.Outcome(outcome)

	t, err := time.Parse(time.RFC3339Nano, checkedAt)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("%w: bad checked_at %q", ErrCorrupt, checkedAt)
	}
	rec.CheckedAt = t

	it, err := time.Parse(time.RFC3339Nano, insertedAt)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("%w: bad inserted_at %q", ErrCorrupt, insertedAt)
	}
	rec.InsertedAt = it

	return rec, nil
}

func translateErr(op string, err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlitelib.SQLITE_CORRUPT, sqlitelib.SQLITE_NOTADB:
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
