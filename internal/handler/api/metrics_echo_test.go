package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	domsvc "github.com/romkarus000/analytics-product/internal/domain/service"
	"github.com/romkarus000/analytics-product/internal/service/ratelimit"
	"github.com/romkarus000/analytics-product/internal/services/analytics"
	"github.com/romkarus000/analytics-product/internal/usecase"
	xlogger "github.com/romkarus000/analytics-product/pkg/logger"
)

type fakeService struct {
	detail      domsvc.DetailParams
	drivers     domsvc.DriverParams
	invalidated []int64
	err         error
}

func (f *fakeService) record(p domsvc.DetailParams) error {
	f.detail = p
	return f.err
}

func value(v float64) *float64 { return &v }

func (f *fakeService) GrossSales(_ context.Context, p domsvc.DetailParams) (*models.GrossSalesDetails, error) {
	if err := f.record(p); err != nil {
		return nil, err
	}
	res := &models.GrossSalesDetails{}
	res.Metric = models.MetricGrossSales
	res.Current = models.PeriodValue{From: p.From, To: p.To, Value: value(10000)}
	return res, nil
}

func (f *fakeService) NetRevenue(_ context.Context, p domsvc.DetailParams) (*models.NetRevenueDetails, error) {
	return &models.NetRevenueDetails{}, f.record(p)
}

func (f *fakeService) Refunds(_ context.Context, p domsvc.DetailParams) (*models.RefundsDetails, error) {
	return &models.RefundsDetails{}, f.record(p)
}

func (f *fakeService) FeesTotal(_ context.Context, p domsvc.DetailParams) (*models.FeesDetails, error) {
	return &models.FeesDetails{}, f.record(p)
}

func (f *fakeService) BestWorstDays(_ context.Context, p domsvc.DetailParams) (*models.BestWorstDaysDetails, error) {
	return &models.BestWorstDaysDetails{}, f.record(p)
}

func (f *fakeService) Drivers(_ context.Context, p domsvc.DriverParams) (*models.DriversDetails, error) {
	f.drivers = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.DriversDetails{Metric: models.MetricKey(p.Metric), Dimension: p.Dimension, Sort: p.Sort}, nil
}

func (f *fakeService) Summary(_ context.Context, p domsvc.DetailParams) (*models.SummaryDetails, error) {
	return &models.SummaryDetails{}, f.record(p)
}

func (f *fakeService) InvalidateProject(_ context.Context, projectID int64) error {
	f.invalidated = append(f.invalidated, projectID)
	return f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type errorItem struct {
	Code   string                 `json:"code"`
	Field  string                 `json:"field"`
	Params map[string]interface{} `json:"params"`
}

func newEcho(svc *fakeService, limiter *ratelimit.Limiter, health HealthChecker) *echo.Echo {
	e := echo.New()
	NewMetricsEchoHandler(xlogger.Nop(), svc, limiter, health).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func errorsOf(t *testing.T, env envelope) []errorItem {
	t.Helper()
	var items []errorItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	return items
}

func TestGrossSales_OK(t *testing.T) {
	svc := &fakeService{}
	e := newEcho(svc, nil, nil)

	rec, env := do(t, e, http.MethodGet, `/api/projects/7/metrics/gross-sales?from=2024-02-01&to=2024-02-05&filters=%7B%22product%22%3A%22Course%20A%22%7D`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))

	assert.Equal(t, domsvc.DetailParams{ProjectID: 7, From: "2024-02-01", To: "2024-02-05", Filters: `{"product":"Course A"}`}, svc.detail)

	var res models.GrossSalesDetails
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.MetricGrossSales, res.Metric)
	assert.Equal(t, 10000.0, *res.Current.Value)
}

func TestDetailRoutes(t *testing.T) {
	for _, path := range []string{"net-revenue", "refunds", "fees-total", "best-worst-days", "summary"} {
		t.Run(path, func(t *testing.T) {
			svc := &fakeService{}
			rec, _ := do(t, newEcho(svc, nil, nil), http.MethodGet, "/api/projects/3/metrics/"+path+"?from=2024-01-01&to=2024-01-31")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, int64(3), svc.detail.ProjectID)
		})
	}
}

func TestDetail_ValidationErrors(t *testing.T) {
	svc := &fakeService{}
	rec, env := do(t, newEcho(svc, nil, nil), http.MethodGet, "/api/projects/7/metrics/refunds?from=2024-02-01&filters=%7Bbroken")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	fields := map[string]string{}
	for _, it := range errorsOf(t, env) {
		fields[it.Field] = it.Code
	}
	assert.Equal(t, "ERR_REQUIRED", fields["to"])
	assert.Contains(t, fields, "filters")
	assert.Empty(t, svc.detail.From, "the usecase is not called")
}

func TestDrivers_DefaultsAndParams(t *testing.T) {
	svc := &fakeService{}
	rec, _ := do(t, newEcho(svc, nil, nil), http.MethodGet, "/api/projects/7/metrics/drivers?from=2024-02-01&to=2024-02-05&dimension=product")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "net_revenue", svc.drivers.Metric)
	assert.Equal(t, "delta_desc", svc.drivers.Sort)
	assert.Equal(t, 10, svc.drivers.Limit)
	assert.Equal(t, "product", svc.drivers.Dimension)
	assert.Equal(t, int64(7), svc.drivers.ProjectID)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&analytics.InvalidRangeError{From: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, http.StatusBadRequest, "ERR_INVALID_RANGE"},
		{&usecase.InvalidDateError{Field: "to", Value: "x", Err: errors.New("bad")}, http.StatusBadRequest, "ERR_INVALID_RANGE"},
		{fmt.Errorf("drivers: %w", &analytics.UnknownDimensionError{Dimension: "city"}), http.StatusBadRequest, "ERR_UNKNOWN_DIMENSION"},
		{&analytics.InvalidFilterError{Key: "city", Reason: "unsupported key"}, http.StatusBadRequest, "ERR_INVALID_FILTER"},
		{&analytics.UnknownSortError{Sort: "random"}, http.StatusBadRequest, "ERR_UNKNOWN_SORT"},
		{fmt.Errorf("gross_sales: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "ERR_TIMEOUT"},
		{errors.New("clickhouse down"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			rec, env := do(t, newEcho(svc, nil, nil), http.MethodGet, "/api/projects/7/metrics/drivers?from=2024-02-01&to=2024-02-05&dimension=city")
			assert.Equal(t, tc.status, rec.Code)
			items := errorsOf(t, env)
			require.Len(t, items, 1)
			assert.Equal(t, tc.code, items[0].Code)
		})
	}
}

func TestErrorMapping_InternalDetailsStayPrivate(t *testing.T) {
	svc := &fakeService{err: errors.New("dial tcp 10.0.0.5:9000: refused")}
	rec, _ := do(t, newEcho(svc, nil, nil), http.MethodGet, "/api/projects/7/metrics/summary?from=2024-02-01&to=2024-02-05")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestInvalidateCache(t *testing.T) {
	svc := &fakeService{}
	rec, _ := do(t, newEcho(svc, nil, nil), http.MethodPost, "/api/projects/9/cache/invalidate")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{9}, svc.invalidated)
}

func TestRateLimit(t *testing.T) {
	svc := &fakeService{}
	e := newEcho(svc, ratelimit.New(0, 2), nil)
	target := "/api/projects/7/metrics/summary?from=2024-02-01&to=2024-02-05"

	for i := 0; i < 2; i++ {
		rec, _ := do(t, e, http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := do(t, e, http.MethodGet, target)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR_TOO_MANY_REQUESTS", errorsOf(t, env)[0].Code)

	rec, _ = do(t, e, http.MethodGet, "/api/projects/8/metrics/summary?from=2024-02-01&to=2024-02-05")
	assert.Equal(t, http.StatusOK, rec.Code, "buckets are per project")
}

func TestHealth(t *testing.T) {
	rec, _ := do(t, newEcho(&fakeService{}, nil, fakeHealth{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, newEcho(&fakeService{}, nil, fakeHealth{err: errors.New("down")}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ERR_UNAVAILABLE", errorsOf(t, env)[0].Code)
}
