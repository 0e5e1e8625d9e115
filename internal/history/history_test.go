package history

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

func floatPtr(v float64) *float64 { return &v }

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func obs(name string, price float64, at time.Time) domain.PriceObservation {
	return domain.PriceObservation{
		Product:   name,
		Price:     floatPtr(price),
		CheckedAt: at,
		Outcome:   domain.OutcomeSuccess,
	}
}

func failedObs(name string, outcome domain.Outcome, at time.Time) domain.PriceObservation {
	return domain.PriceObservation{
		Product:   name,
		CheckedAt: at,
		Outcome:   outcome,
		Err:       "boom",
	}
}

func TestAppendAndQuery_ChronologicalOldestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order; query must come back chronological.
	_, err := s.Append(ctx, obs("Laptop", 910, base.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 999, base))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 950, base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Other", 5, base))
	require.NoError(t, err)

	records, err := s.Query(ctx, "Laptop", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.InDelta(t, 999, *records[0].Price, 0.0001)
	assert.InDelta(t, 950, *records[1].Price, 0.0001)
	assert.InDelta(t, 910, *records[2].Price, 0.0001)

	// Since filter is inclusive of newer records only.
	records, err = s.Query(ctx, "Laptop", base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestQuery_SubSecondTimestampsOrderAndFilter(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// A whole-second timestamp and sub-second timestamps inside the same
	// second: the stored strings must still sort chronologically.
	_, err := s.Append(ctx, obs("Laptop", 910, base.Add(250*time.Millisecond)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 999, base))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 950, base.Add(time.Second)))
	require.NoError(t, err)

	records, err := s.Query(ctx, "Laptop", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 999.0, *records[0].Price)
	assert.Equal(t, 910.0, *records[1].Price)
	assert.Equal(t, 950.0, *records[2].Price)

	// A whole-second lower bound must not exclude sub-second records
	// inside that second.
	records, err = s.Query(ctx, "Laptop", base)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = s.Query(ctx, "Laptop", base.Add(250*time.Millisecond))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAppend_FailedObservationKeepsOutcome(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rec, err := s.Append(ctx, failedObs("Laptop", domain.OutcomeFetchError, at))
	require.NoError(t, err)
	assert.Nil(t, rec.Price)
	assert.NotEmpty(t, rec.ID)

	records, err := s.Query(ctx, "Laptop", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OutcomeFetchError, records[0].Outcome)
	assert.Nil(t, records[0].Price)
}

func TestAggregate_SuccessOnly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, price := range []float64{100, 80, 120} {
		_, err := s.Append(ctx, obs("Laptop", price, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, failedObs("Laptop", domain.OutcomeNotFound, base.Add(4*time.Hour)))
	require.NoError(t, err)

	stats, err := s.Aggregate(ctx, "Laptop", time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 80, stats.Min, 0.0001)
	assert.InDelta(t, 120, stats.Max, 0.0001)
	assert.InDelta(t, 100, stats.Avg, 0.0001)
	assert.Equal(t, 3, stats.Count)
}

func TestAggregate_NoRecords(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	stats, err := s.Aggregate(context.Background(), "ghost", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
}

func TestChanges(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	prices := []float64{100, 100, 90, 90, 95}
	for i, price := range prices {
		_, err := s.Append(ctx, obs("Laptop", price, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	// Failed checks must not register as changes.
	_, err := s.Append(ctx, failedObs("Laptop", domain.OutcomeFetchError, base.Add(90*time.Minute)))
	require.NoError(t, err)

	changes, err := s.Changes(ctx, "Laptop", time.Time{})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.InDelta(t, 100, changes[0].OldPrice, 0.0001)
	assert.InDelta(t, 90, changes[0].NewPrice, 0.0001)
	assert.InDelta(t, 90, changes[1].OldPrice, 0.0001)
	assert.InDelta(t, 95, changes[1].NewPrice, 0.0001)
}

func TestPrune(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	_, err := s.Append(ctx, obs("Laptop", 100, now.AddDate(0, 0, -45)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 95, now.AddDate(0, 0, -31)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 90, now.AddDate(0, 0, -10)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Laptop", 85, now))
	require.NoError(t, err)

	deleted, err := s.Prune(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	records, err := s.Query(ctx, "Laptop", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestPrune_ZeroRetentionKeepsForever(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	_, err := s.Append(ctx, obs("Laptop", 100, now.AddDate(-5, 0, 0)))
	require.NoError(t, err)

	deleted, err := s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	records, err := s.Query(ctx, "Laptop", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestProducts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{"Zebra", "Apple", "Apple"} {
		_, err := s.Append(ctx, obs(name, 10, at))
		require.NoError(t, err)
	}

	names, err := s.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Zebra"}, names)
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Append(ctx, obs("Laptop", 999.99, base))
	require.NoError(t, err)
	_, err = s.Append(ctx, failedObs("Laptop", domain.OutcomeParseError, base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.Append(ctx, obs("Mouse", 25, base))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(ctx, &buf, "Laptop"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,timestamp,price,outcome", lines[0])
	// Newest first: the parse-error row precedes the success row.
	assert.Contains(t, lines[1], "parse-error")
	assert.Contains(t, lines[2], "999.99")
	assert.NotContains(t, buf.String(), "Mouse")

	// Empty name exports everything.
	buf.Reset()
	require.NoError(t, s.ExportCSV(ctx, &buf, ""))
	assert.Contains(t, buf.String(), "Mouse")
}
