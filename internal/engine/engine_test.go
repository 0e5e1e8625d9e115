package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/sale-monitor/internal/history"
	"github.com/donaldgifford/sale-monitor/internal/notify"
	"github.com/donaldgifford/sale-monitor/internal/store"
	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

type staticCatalog struct {
	products []domain.Product
	err      error
}

func (c *staticCatalog) Load(_ context.Context) ([]domain.Product, error) {
	return c.products, c.err
}

// scriptedExtractor returns canned observations keyed by product name.
type scriptedExtractor struct {
	mu      sync.Mutex
	results map[string]domain.PriceObservation
	calls   []string
}

func (e *scriptedExtractor) Extract(_ context.Context, p domain.Product) domain.PriceObservation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, p.Name)

	obs, ok := e.results[p.Name]
	if !ok {
		obs = domain.PriceObservation{
			Product: p.Name,
			Outcome: domain.OutcomeFetchError,
			Err:     "no scripted result",
		}
	}
	obs.Product = p.Name
	return obs
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (n *recordingNotifier) Send(_ context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func success(name string, price float64) domain.PriceObservation {
	return domain.PriceObservation{
		Product: name,
		Price:   &price,
		Outcome: domain.OutcomeSuccess,
	}
}

func f64p(v float64) *float64 { return &v }

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	engine    *Engine
	states    store.StateStore
	history   *history.Store
	extractor *scriptedExtractor
	notifier  *recordingNotifier
	now       time.Time
}

func newFixture(t *testing.T, products []domain.Product, results map[string]domain.PriceObservation) *fixture {
	t.Helper()

	dir := t.TempDir()

	states, err := store.NewJSONStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = states.Close() })

	hist, err := history.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	fx := &fixture{
		states:    states,
		history:   hist,
		extractor: &scriptedExtractor{results: results},
		notifier:  &recordingNotifier{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	fx.engine = NewEngine(
		&staticCatalog{products: products},
		fx.extractor,
		states,
		hist,
		fx.notifier,
		WithLogger(quietLog()),
		WithNowFunc(func() time.Time { return fx.now }),
	)
	return fx
}

func TestRunCycle_HappyPath(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "widget", URL: "https://a", Selector: ".p", TargetPrice: f64p(200), Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"widget": success("widget", 150),
	})

	summary, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 0, summary.Failed)

	state, err := fx.states.Read(context.Background(), "widget")
	require.NoError(t, err)
	require.NotNil(t, state.LastPrice)
	assert.Equal(t, 150.0, *state.LastPrice)
	require.NotNil(t, state.LastNotifiedPrice)
	assert.Equal(t, 150.0, *state.LastNotifiedPrice)

	records, err := fx.history.Query(context.Background(), "widget", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OutcomeSuccess, records[0].Outcome)

	require.Len(t, fx.notifier.alerts, 1)
	assert.Equal(t, domain.ReasonTargetPriceHit, fx.notifier.alerts[0].Reason)
}

func TestRunCycle_FaultIsolation(t *testing.T) {
	t.Parallel()

	var products []domain.Product
	results := make(map[string]domain.PriceObservation)
	names := []string{"a", "b", "c", "d", "e"}
	for _, n := range names {
		products = append(products, domain.Product{
			Name: n, URL: "https://" + n, Selector: ".p", Enabled: true, CooldownHours: 24,
		})
		results[n] = success(n, 10)
	}
	results["c"] = domain.PriceObservation{
		Product: "c",
		Outcome: domain.OutcomeFetchError,
		Err:     "connection refused",
	}

	fx := newFixture(t, products, results)

	summary, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Checked)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Notified)

	// All five products got processed, the failure included.
	assert.Equal(t, names, fx.extractor.calls)

	// The failed product still has a history record and a state with an
	// updated check time.
	records, err := fx.history.Query(context.Background(), "c", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OutcomeFetchError, records[0].Outcome)

	state, err := fx.states.Read(context.Background(), "c")
	require.NoError(t, err)
	assert.Nil(t, state.LastPrice)
	assert.Equal(t, fx.now, state.LastCheck.UTC())
}

func TestRunCycle_SkipsDisabledProducts(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "on", URL: "https://on", Selector: ".p", Enabled: true, CooldownHours: 24},
		{Name: "off", URL: "https://off", Selector: ".p", Enabled: false, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"on":  success("on", 10),
		"off": success("off", 10),
	})

	summary, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, []string{"on"}, fx.extractor.calls)
}

func TestRunCycle_Idempotence(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "widget", URL: "https://a", Selector: ".p", Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"widget": success("widget", 99.99),
	})

	_, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	first, err := fx.states.Read(context.Background(), "widget")
	require.NoError(t, err)

	fx.now = fx.now.Add(15 * time.Minute)
	_, err = fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	second, err := fx.states.Read(context.Background(), "widget")
	require.NoError(t, err)

	// Two cycles, two history records, identical state except the check time.
	records, err := fx.history.Query(context.Background(), "widget", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assert.Equal(t, first.LastPrice, second.LastPrice)
	assert.Equal(t, first.LastNotified, second.LastNotified)
	assert.Equal(t, first.LastNotifiedPrice, second.LastNotifiedPrice)
	assert.NotEqual(t, first.LastCheck, second.LastCheck)
}

func TestRunCycle_CooldownAcrossCycles(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "widget", URL: "https://a", Selector: ".p", TargetPrice: f64p(200), Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"widget": success("widget", 150),
	})

	// First cycle notifies.
	summary, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Notified)

	// Same price an hour later stays quiet.
	fx.now = fx.now.Add(time.Hour)
	summary, err = fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Notified)

	// A further drop within the cooldown notifies again.
	fx.extractor.results["widget"] = success("widget", 140)
	fx.now = fx.now.Add(time.Hour)
	summary, err = fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Notified)

	require.Len(t, fx.notifier.alerts, 2)
	assert.Equal(t, domain.ReasonTargetPriceHit, fx.notifier.alerts[0].Reason)
	assert.Equal(t, domain.ReasonPriceChangedDuringCooldown, fx.notifier.alerts[1].Reason)
}

func TestRunCycle_NotifyFailureDoesNotFailProduct(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "widget", URL: "https://a", Selector: ".p", TargetPrice: f64p(200), Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"widget": success("widget", 150),
	})
	fx.notifier.err = errors.New("smtp down")

	summary, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 0, summary.Failed)

	// State committed despite the delivery failure.
	state, err := fx.states.Read(context.Background(), "widget")
	require.NoError(t, err)
	assert.NotNil(t, state.LastNotified)
}

func TestRunCycle_CatalogErrorAbortsCycle(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, nil)
	fx.engine.catalog = &staticCatalog{err: errors.New("catalog unreadable")}

	_, err := fx.engine.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading catalog")
}

func TestRunCycle_CancelledContext(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "widget", URL: "https://a", Selector: ".p", Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"widget": success("widget", 10),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.engine.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fx.extractor.calls)
}

type panickyExtractor struct {
	panicOn string
	inner   *scriptedExtractor
}

func (e *panickyExtractor) Extract(ctx context.Context, p domain.Product) domain.PriceObservation {
	if p.Name == e.panicOn {
		panic("selector engine blew up")
	}
	return e.inner.Extract(ctx, p)
}

func TestRunCycle_PanicIsContained(t *testing.T) {
	t.Parallel()

	products := []domain.Product{
		{Name: "boom", URL: "https://boom", Selector: ".p", Enabled: true, CooldownHours: 24},
		{Name: "ok", URL: "https://ok", Selector: ".p", Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, map[string]domain.PriceObservation{
		"ok": success("ok", 10),
	})
	fx.engine.extractor = &panickyExtractor{panicOn: "boom", inner: fx.extractor}

	summary, err := fx.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunPrune(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, nil)
	fx.engine.retentionDays = 30

	// Nothing to prune on an empty store.
	require.NoError(t, fx.engine.RunPrune(context.Background()))
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, nil)

	s, err := NewScheduler(fx.engine, 15*time.Minute, 24*time.Hour, quietLog())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 2)

	s.Start()
	stopCtx := s.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not drain")
	}
}

// blockingExtractor parks every Extract call until released, holding a
// cycle in flight across scheduler ticks.
type blockingExtractor struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (e *blockingExtractor) Extract(_ context.Context, p domain.Product) domain.PriceObservation {
	e.calls.Add(1)
	select {
	case e.entered <- struct{}{}:
	default:
	}
	<-e.release

	price := 10.0
	return domain.PriceObservation{
		Product: p.Name,
		Price:   &price,
		Outcome: domain.OutcomeSuccess,
	}
}

func TestScheduler_SkipsOverlappingCycles(t *testing.T) {
	products := []domain.Product{
		{Name: "slow", URL: "https://slow", Selector: ".p", Enabled: true, CooldownHours: 24},
	}
	fx := newFixture(t, products, nil)

	ex := &blockingExtractor{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	fx.engine.extractor = ex

	s, err := NewScheduler(fx.engine, time.Second, 0, quietLog())
	require.NoError(t, err)
	s.Start()

	select {
	case <-ex.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("first cycle never started")
	}

	// Hold the cycle across at least two further ticks; each must be
	// skipped rather than start a concurrent cycle.
	time.Sleep(2200 * time.Millisecond)
	assert.EqualValues(t, 1, ex.calls.Load(),
		"ticks during a running cycle must not start another")

	stopCtx := s.Stop()
	close(ex.release)

	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not drain")
	}

	assert.EqualValues(t, 1, ex.calls.Load())
}

func TestNewScheduler_NoPruneJob(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, nil)

	s, err := NewScheduler(fx.engine, 15*time.Minute, 0, quietLog())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)
}
