package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	domsvc "github.com/romkarus000/analytics-product/internal/domain/service"
	"github.com/romkarus000/analytics-product/internal/services/analytics"
	"github.com/romkarus000/analytics-product/pkg/cache"
	"github.com/romkarus000/analytics-product/pkg/logger"
)

type fetchCall struct {
	projectID int64
	from, to  time.Time
	filters   models.Filters
}

type fakeStore struct {
	mu       sync.Mutex
	rows     []models.Transaction
	first    time.Time
	hasFirst bool
	err      error
	calls    []fetchCall

	// started and gate hold a fetch open until the test releases it.
	started chan struct{}
	gate    chan struct{}
}

func (s *fakeStore) FetchTransactions(ctx context.Context, projectID int64, from, to time.Time, filters models.Filters) ([]models.Transaction, error) {
	if s.gate != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fetchCall{projectID: projectID, from: from, to: to, filters: filters})
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Transaction
	for _, tx := range s.rows {
		if !tx.PaidAt.Before(from) && tx.PaidAt.Before(to) && filters.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *fakeStore) FirstTransactionDate(context.Context, int64) (time.Time, bool, error) {
	return s.first, s.hasFirst, nil
}

func (s *fakeStore) Health(context.Context) error { return nil }

func (s *fakeStore) add(tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, tx)
}

func gatedStore() *fakeStore {
	s := sampleStore()
	s.started = make(chan struct{}, 4)
	s.gate = make(chan struct{})
	return s
}

func (s *fakeStore) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeMetrics struct {
	mu     sync.Mutex
	errors []string
	hits   int
	misses int
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}
func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordCacheResult(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}
func (m *fakeMetrics) RecordSnapshotRows(int) {}

func txAt(date, amount string, op models.OperationType, productName string) models.Transaction {
	d, err := time.ParseInLocation(models.DateLayout, date, time.UTC)
	if err != nil {
		panic(err)
	}
	return models.Transaction{
		ProjectID:     7,
		TransactionID: date + "-" + productName + "-" + amount,
		PaidAt:        d.Add(10 * time.Hour),
		Operation:     op,
		Amount:        decimal.RequireFromString(amount),
		ProductName:   productName,
	}
}

func newUseCase(t *testing.T, store *fakeStore) (*MetricsUseCase, *fakeMetrics, *cache.MemoryCache) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	m := &fakeMetrics{}
	u := NewMetricsUseCase(store, mc, m, logger.Nop(), MetricsConfig{
		Location:       time.UTC,
		Policy:         analytics.DefaultPolicy(),
		SnapshotTTL:    time.Minute,
		RequestTimeout: 5 * time.Second,
	})
	return u, m, mc
}

func sampleStore() *fakeStore {
	return &fakeStore{
		rows: []models.Transaction{
			txAt("2024-01-28", "1600", models.OperationSale, "Course A"),
			txAt("2024-01-30", "1600", models.OperationSale, "Course B"),
			txAt("2024-02-01", "2000", models.OperationSale, "Course A"),
			txAt("2024-02-03", "1000", models.OperationSale, "Course B"),
			txAt("2024-02-04", "-300", models.OperationRefund, "Course B"),
		},
		first:    time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		hasFirst: true,
	}
}

func params() domsvc.DetailParams {
	return domsvc.DetailParams{ProjectID: 7, From: "2024-02-01", To: "2024-02-05"}
}

func TestMetricsUseCase_SingleFetchCoversBothPeriods(t *testing.T) {
	store := sampleStore()
	u, _, _ := newUseCase(t, store)

	res, err := u.GrossSales(context.Background(), params())
	require.NoError(t, err)

	require.Len(t, store.calls, 1)
	call := store.calls[0]
	assert.Equal(t, int64(7), call.projectID)
	assert.Equal(t, time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC), call.from)
	assert.Equal(t, time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC), call.to)

	require.NotNil(t, res.Current.Value)
	require.NotNil(t, res.Previous.Value)
	assert.Equal(t, 3000.0, *res.Current.Value)
	assert.Equal(t, 3200.0, *res.Previous.Value)
}

func TestMetricsUseCase_CachesSnapshotAcrossMetrics(t *testing.T) {
	store := sampleStore()
	u, m, _ := newUseCase(t, store)
	ctx := context.Background()

	_, err := u.GrossSales(ctx, params())
	require.NoError(t, err)
	net, err := u.NetRevenue(ctx, params())
	require.NoError(t, err)
	_, err = u.Refunds(ctx, params())
	require.NoError(t, err)

	assert.Equal(t, 1, store.fetches())
	assert.Equal(t, 2, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 2700.0, *net.Current.Value)
}

func TestMetricsUseCase_FiltersAreTheCacheKey(t *testing.T) {
	store := sampleStore()
	u, _, _ := newUseCase(t, store)
	ctx := context.Background()

	p := params()
	_, err := u.GrossSales(ctx, p)
	require.NoError(t, err)

	p.Filters = `{"product":"Course A"}`
	res, err := u.GrossSales(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetches())
	assert.Equal(t, models.Filters{models.FilterProduct: {"Course A"}}, store.calls[1].filters)
	assert.Equal(t, 2000.0, *res.Current.Value)
}

func TestMetricsUseCase_InvalidateProject(t *testing.T) {
	store := sampleStore()
	u, _, mc := newUseCase(t, store)
	ctx := context.Background()

	_, err := u.Summary(ctx, params())
	require.NoError(t, err)
	require.NoError(t, mc.Set(ctx, "snapshot:project:8:x", "other project", time.Minute))

	require.NoError(t, u.InvalidateProject(ctx, 7))
	var other string
	require.NoError(t, mc.Get(ctx, "snapshot:project:8:x", &other), "other projects keep their entries")
	gen, err := mc.Counter(ctx, generationKey(7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	_, err = u.Summary(ctx, params())
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetches())
}

func TestMetricsUseCase_InvalidateDuringLoad(t *testing.T) {
	store := gatedStore()
	u, _, _ := newUseCase(t, store)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := u.GrossSales(ctx, params())
		done <- err
	}()
	<-store.started

	require.NoError(t, u.InvalidateProject(ctx, 7))
	close(store.gate)
	require.NoError(t, <-done)

	store.add(txAt("2024-02-02", "500", models.OperationSale, "Course C"))
	res, err := u.GrossSales(ctx, params())
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetches(), "the load started before invalidation is not served")
	assert.Equal(t, 3500.0, *res.Current.Value)
}

func TestMetricsUseCase_CancelledCallerDoesNotAbortSharedLoad(t *testing.T) {
	store := gatedStore()
	u, m, mc := newUseCase(t, store)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := u.GrossSales(first, params())
		firstErr <- err
	}()
	<-store.started

	type result struct {
		res *models.NetRevenueDetails
		err error
	}
	second := make(chan result, 1)
	go func() {
		res, err := u.NetRevenue(context.Background(), params())
		second <- result{res, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(store.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 2700.0, *got.res.Current.Value)

	require.Eventually(t, func() bool { return mc.Len() == 1 }, time.Second, 10*time.Millisecond,
		"the detached load still fills the cache")
	_, err := u.Refunds(context.Background(), params())
	require.NoError(t, err)
	assert.Positive(t, m.hits)
}

func TestMetricsUseCase_RequestErrors(t *testing.T) {
	u, _, _ := newUseCase(t, sampleStore())
	ctx := context.Background()

	p := params()
	p.From, p.To = "2024-02-05", "2024-02-01"
	_, err := u.GrossSales(ctx, p)
	var rangeErr *analytics.InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)

	p = params()
	p.From = "01.02.2024"
	_, err = u.FeesTotal(ctx, p)
	var dateErr *InvalidDateError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, "from", dateErr.Field)

	p = params()
	p.Filters = `{"city":"Moscow"}`
	_, err = u.BestWorstDays(ctx, p)
	var filterErr *analytics.InvalidFilterError
	assert.ErrorAs(t, err, &filterErr)

	_, err = u.Drivers(ctx, domsvc.DriverParams{DetailParams: params(), Dimension: "city"})
	var dimErr *analytics.UnknownDimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestMetricsUseCase_DriversDefaults(t *testing.T) {
	store := sampleStore()
	u, _, _ := newUseCase(t, store)

	res, err := u.Drivers(context.Background(), domsvc.DriverParams{DetailParams: params(), Dimension: "product"})
	require.NoError(t, err)
	assert.Equal(t, models.MetricNetRevenue, res.Metric)
	assert.Equal(t, "delta_desc", res.Sort)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "Course A", res.Items[0].Name)
}

func TestMetricsUseCase_StoreFailure(t *testing.T) {
	store := sampleStore()
	store.err = errors.New("clickhouse down")
	u, m, _ := newUseCase(t, store)

	_, err := u.GrossSales(context.Background(), params())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse down")
	assert.Contains(t, m.errors, "store")
}

func TestMetricsUseCase_Warm(t *testing.T) {
	store := sampleStore()
	u, _, mc := newUseCase(t, store)
	u.now = func() time.Time { return time.Date(2024, 2, 5, 18, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, u.Warm(ctx, 7, 5))
	require.Equal(t, 1, store.fetches())
	assert.Equal(t, 1, mc.Len())

	_, err := u.GrossSales(ctx, params())
	require.NoError(t, err)
	assert.Equal(t, 1, store.fetches(), "the warmed window is served from cache")

	assert.Error(t, u.Warm(ctx, 7, 0))
}

func TestMetricsUseCase_SlowStoreTimesOut(t *testing.T) {
	store := gatedStore()
	u, _, _ := newUseCase(t, store)
	u.cfg.RequestTimeout = 20 * time.Millisecond
	t.Cleanup(func() { close(store.gate) })

	_, err := u.GrossSales(context.Background(), params())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
