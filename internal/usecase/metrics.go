package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	domrepo "github.com/romkarus000/analytics-product/internal/domain/repository"
	domsvc "github.com/romkarus000/analytics-product/internal/domain/service"
	"github.com/romkarus000/analytics-product/internal/services/analytics"
	"github.com/romkarus000/analytics-product/pkg/cache"
	"github.com/romkarus000/analytics-product/pkg/logger"
	"github.com/romkarus000/analytics-product/pkg/util"
)

const snapshotCache = "snapshot"

// InvalidDateError is returned when from or to is not a YYYY-MM-DD date.
type InvalidDateError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }

// MetricsConfig tunes MetricsUseCase.
type MetricsConfig struct {
	Location       *time.Location
	Policy         analytics.Policy
	SnapshotTTL    time.Duration
	RequestTimeout time.Duration
}

// snapshotEntry is what gets cached for one project, window and filter set:
// the raw rows of both periods plus the history marker.
type snapshotEntry struct {
	Rows       []models.Transaction `json:"rows"`
	First      time.Time            `json:"first"`
	HasHistory bool                 `json:"has_history"`
}

// MetricsUseCase loads one snapshot per request and runs the engine over it.
type MetricsUseCase struct {
	store   domrepo.TransactionStore
	cache   cache.Service
	metrics domrepo.Metrics
	logger  *logger.Logger
	cfg     MetricsConfig
	loads   singleflight.Group
	now     func() time.Time
}

func NewMetricsUseCase(store domrepo.TransactionStore, c cache.Service, metrics domrepo.Metrics, lgr *logger.Logger, cfg MetricsConfig) *MetricsUseCase {
	if c == nil {
		c = cache.NopCache{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &MetricsUseCase{
		store:   store,
		cache:   c,
		metrics: metrics,
		logger:  lgr,
		cfg:     cfg,
		now:     time.Now,
	}
}

var _ domsvc.MetricsService = (*MetricsUseCase)(nil)

func (u *MetricsUseCase) GrossSales(ctx context.Context, p domsvc.DetailParams) (*models.GrossSalesDetails, error) {
	return compose(ctx, u, "gross_sales", p, func(ctx context.Context, s *analytics.Snapshot) (*models.GrossSalesDetails, error) {
		return analytics.GrossSales(ctx, s, u.cfg.Policy)
	})
}

func (u *MetricsUseCase) NetRevenue(ctx context.Context, p domsvc.DetailParams) (*models.NetRevenueDetails, error) {
	return compose(ctx, u, "net_revenue", p, func(ctx context.Context, s *analytics.Snapshot) (*models.NetRevenueDetails, error) {
		return analytics.NetRevenue(ctx, s, u.cfg.Policy)
	})
}

func (u *MetricsUseCase) Refunds(ctx context.Context, p domsvc.DetailParams) (*models.RefundsDetails, error) {
	return compose(ctx, u, "refunds", p, func(ctx context.Context, s *analytics.Snapshot) (*models.RefundsDetails, error) {
		return analytics.Refunds(ctx, s, u.cfg.Policy)
	})
}

func (u *MetricsUseCase) FeesTotal(ctx context.Context, p domsvc.DetailParams) (*models.FeesDetails, error) {
	return compose(ctx, u, "fees_total", p, func(ctx context.Context, s *analytics.Snapshot) (*models.FeesDetails, error) {
		return analytics.FeesTotal(ctx, s, u.cfg.Policy)
	})
}

func (u *MetricsUseCase) BestWorstDays(ctx context.Context, p domsvc.DetailParams) (*models.BestWorstDaysDetails, error) {
	return compose(ctx, u, "best_worst_days", p, func(ctx context.Context, s *analytics.Snapshot) (*models.BestWorstDaysDetails, error) {
		return analytics.BestWorstDays(ctx, s, u.cfg.Policy)
	})
}

func (u *MetricsUseCase) Summary(ctx context.Context, p domsvc.DetailParams) (*models.SummaryDetails, error) {
	return compose(ctx, u, "summary", p, func(ctx context.Context, s *analytics.Snapshot) (*models.SummaryDetails, error) {
		return analytics.Summary(ctx, s, u.cfg.Policy)
	})
}

// Drivers validates the ranking options before touching the store.
func (u *MetricsUseCase) Drivers(ctx context.Context, p domsvc.DriverParams) (*models.DriversDetails, error) {
	q, err := u.driversQuery(p)
	if err != nil {
		return nil, err
	}
	return compose(ctx, u, "drivers", p.DetailParams, func(ctx context.Context, s *analytics.Snapshot) (*models.DriversDetails, error) {
		return analytics.Drivers(ctx, s, q)
	})
}

func (u *MetricsUseCase) driversQuery(p domsvc.DriverParams) (analytics.DriversQuery, error) {
	metric := p.Metric
	if metric == "" {
		metric = string(models.MetricNetRevenue)
	}
	m, err := analytics.ParseMetric(metric)
	if err != nil {
		return analytics.DriversQuery{}, err
	}
	d, err := analytics.ParseDimension(p.Dimension)
	if err != nil {
		return analytics.DriversQuery{}, err
	}
	sort, err := analytics.ParseSortMode(p.Sort)
	if err != nil {
		return analytics.DriversQuery{}, err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = u.cfg.Policy.DriverLimit
	}
	return analytics.DriversQuery{Metric: m, Dimension: d, Sort: sort, Limit: limit}, nil
}

// InvalidateProject bumps the project generation, which every snapshot key
// carries, then drops the entries of older generations. Loads still in flight
// write under their old generation and are never read again.
func (u *MetricsUseCase) InvalidateProject(ctx context.Context, projectID int64) error {
	if _, err := u.cache.Incr(ctx, generationKey(projectID)); err != nil {
		u.metrics.RecordError("cache_invalidate")
		return fmt.Errorf("invalidate project %d: %w", projectID, err)
	}
	if err := u.cache.DeleteByPattern(ctx, cache.BuildPattern(projectKey(projectID))); err != nil {
		u.metrics.RecordError("cache_invalidate")
		return fmt.Errorf("invalidate project %d: %w", projectID, err)
	}
	u.logger.Info("snapshot cache invalidated", logger.Int64("project_id", projectID))
	return nil
}

// Warm recomputes the unfiltered snapshot of the last days calendar days,
// ending today in the project timezone, and stores it in the cache.
func (u *MetricsUseCase) Warm(ctx context.Context, projectID int64, days int) error {
	if days <= 0 {
		return fmt.Errorf("warm project %d: days must be positive", projectID)
	}
	to := analytics.StartOfDay(u.now(), u.cfg.Location)
	from := to.AddDate(0, 0, -(days - 1))
	pair, err := analytics.ResolvePeriods(from, to, u.cfg.Location)
	if err != nil {
		return err
	}
	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	gen, cacheable := u.generation(ctx, projectID)
	filters := models.Filters{}
	entry, err := u.fetch(ctx, projectID, pair, filters)
	if err != nil {
		return err
	}
	if cacheable {
		u.save(ctx, snapshotKey(projectID, gen, pair, filters), entry)
	}
	u.logger.Info("snapshot warmed",
		logger.Int64("project_id", projectID),
		logger.String("from", pair.Current.FromDate()),
		logger.String("to", pair.Current.ToDate()),
		logger.Int("rows", len(entry.Rows)))
	return nil
}

// compose runs fn over the request snapshot under the request timeout.
func compose[T any](ctx context.Context, u *MetricsUseCase, op string, p domsvc.DetailParams, fn func(context.Context, *analytics.Snapshot) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	s, err := u.snapshot(ctx, p)
	if err != nil {
		return zero, err
	}
	out, err := fn(ctx, s)
	u.metrics.RecordLatency(op, time.Since(start).Seconds())
	if err != nil {
		u.metrics.RecordError(op)
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	u.logger.Debug("metric composed",
		logger.String("op", op),
		logger.Int64("project_id", p.ProjectID),
		logger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (u *MetricsUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.cfg.RequestTimeout)
}

// snapshot parses the request window and filters and returns the snapshot,
// from cache when possible.
func (u *MetricsUseCase) snapshot(ctx context.Context, p domsvc.DetailParams) (*analytics.Snapshot, error) {
	from, err := util.ParseDate(p.From, u.cfg.Location)
	if err != nil {
		return nil, &InvalidDateError{Field: "from", Value: p.From, Err: err}
	}
	to, err := util.ParseDate(p.To, u.cfg.Location)
	if err != nil {
		return nil, &InvalidDateError{Field: "to", Value: p.To, Err: err}
	}
	filters, err := analytics.ParseFilters(p.Filters)
	if err != nil {
		return nil, err
	}
	pair, err := analytics.ResolvePeriods(from, to, u.cfg.Location)
	if err != nil {
		return nil, err
	}

	gen, cacheable := u.generation(ctx, p.ProjectID)
	key := snapshotKey(p.ProjectID, gen, pair, filters)
	if cacheable {
		var entry snapshotEntry
		if err := u.cache.Get(ctx, key, &entry); err == nil {
			u.metrics.RecordCacheResult(snapshotCache, true)
			return analytics.NewSnapshot(pair, entry.Rows, entry.First, entry.HasHistory, u.cfg.Location), nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			u.logger.Warn("snapshot cache read failed", logger.String("key", key), logger.Error(err))
		}
	} else {
		key += ":uncached"
	}
	u.metrics.RecordCacheResult(snapshotCache, false)

	// The shared load must not die with whichever caller started it: it runs
	// detached under its own timeout, and each caller waits on its own context.
	detached := context.WithoutCancel(ctx)
	ch := u.loads.DoChan(key, func() (interface{}, error) {
		lctx, cancel := u.withTimeout(detached)
		defer cancel()
		e, err := u.fetch(lctx, p.ProjectID, pair, filters)
		if err != nil {
			return nil, err
		}
		if cacheable {
			u.save(lctx, key, e)
		}
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		e := res.Val.(*snapshotEntry)
		return analytics.NewSnapshot(pair, e.Rows, e.First, e.HasHistory, u.cfg.Location), nil
	}
}

// generation reads the project's invalidation counter. When it cannot be
// read the request bypasses the cache rather than risk a stale entry.
func (u *MetricsUseCase) generation(ctx context.Context, projectID int64) (int64, bool) {
	gen, err := u.cache.Counter(ctx, generationKey(projectID))
	if err != nil {
		u.metrics.RecordError("cache_generation")
		u.logger.Warn("snapshot generation read failed",
			logger.Int64("project_id", projectID),
			logger.Error(err))
		return 0, false
	}
	return gen, true
}

// fetch reads both periods in one query and the first transaction date.
func (u *MetricsUseCase) fetch(ctx context.Context, projectID int64, pair models.PeriodPair, filters models.Filters) (*snapshotEntry, error) {
	start := time.Now()
	entry := &snapshotEntry{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := u.store.FetchTransactions(gctx, projectID, pair.Previous.From, pair.Current.End(), filters)
		if err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		entry.Rows = rows
		return nil
	})
	g.Go(func() error {
		first, ok, err := u.store.FirstTransactionDate(gctx, projectID)
		if err != nil {
			return fmt.Errorf("first transaction date: %w", err)
		}
		entry.First, entry.HasHistory = first, ok
		return nil
	})
	if err := g.Wait(); err != nil {
		u.metrics.RecordError("store")
		u.logger.Error("snapshot load failed",
			logger.Int64("project_id", projectID),
			logger.Error(err))
		return nil, err
	}
	if entry.Rows == nil {
		entry.Rows = []models.Transaction{}
	}

	u.metrics.RecordLatency("snapshot_load", time.Since(start).Seconds())
	u.metrics.RecordSnapshotRows(len(entry.Rows))
	return entry, nil
}

// save writes the entry; cache failures only cost latency.
func (u *MetricsUseCase) save(ctx context.Context, key string, e *snapshotEntry) {
	if err := u.cache.Set(ctx, key, e, u.cfg.SnapshotTTL); err != nil {
		u.logger.Warn("snapshot cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func projectKey(projectID int64) string {
	return cache.GenerateKey("snapshot:project", strconv.FormatInt(projectID, 10))
}

// generationKey lives outside the snapshot prefix so invalidation never
// deletes it.
func generationKey(projectID int64) string {
	return cache.GenerateKey("snapshot-gen:project", strconv.FormatInt(projectID, 10))
}

func snapshotKey(projectID, gen int64, pair models.PeriodPair, filters models.Filters) string {
	return cache.GenerateKeyWithParams(projectKey(projectID), "g"+strconv.FormatInt(gen, 10),
		pair.Current.FromDate(), pair.Current.ToDate(), cache.HashKey(filters.CacheKey()))
}
