package di

import (
	"context"
	"fmt"
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	"github.com/romkarus000/analytics-product/internal/domain/repository"
	"github.com/romkarus000/analytics-product/internal/handler/api"
	internalrepo "github.com/romkarus000/analytics-product/internal/repository"
	"github.com/romkarus000/analytics-product/internal/service/ratelimit"
	"github.com/romkarus000/analytics-product/internal/services/analytics"
	"github.com/romkarus000/analytics-product/internal/usecase"
	"github.com/romkarus000/analytics-product/pkg/cache"
	pkgch "github.com/romkarus000/analytics-product/pkg/clickhouse"
	"github.com/romkarus000/analytics-product/pkg/config"
	xhttp "github.com/romkarus000/analytics-product/pkg/http"
	pkgkafka "github.com/romkarus000/analytics-product/pkg/kafka"
	applogger "github.com/romkarus000/analytics-product/pkg/logger"
	"github.com/romkarus000/analytics-product/pkg/metrics"
	"github.com/romkarus000/analytics-product/pkg/queue"
	"github.com/romkarus000/analytics-product/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogPublisher adapts the producer for the log collector.
func ProvideLogPublisher(producer *pkgkafka.Producer) *internalrepo.KafkaPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, "analytics-metrics")
}

// ProvideLogger creates the application logger. Error entries are shipped to
// the collect topic when one is configured.
func ProvideLogger(cfg *config.Config, pub *internalrepo.KafkaPublisher) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if pub != nil && cfg.Logging.CollectTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.CollectInterval,
			CountThreshold: cfg.Logging.CollectMax,
			Topic:          cfg.Logging.CollectTopic,
			Publisher:      pub,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and, when configured,
// makes sure the transactions table exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if !cfg.ClickHouse.InitSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.TransactionSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTransactionStore creates the ClickHouse transaction store.
func ProvideTransactionStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHTransactionStore {
	return internalrepo.NewCHTransactionStore(ch, cfg.ClickHouse.Table, l)
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr()),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Cache.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideSnapshotCache picks the snapshot cache: memory in front of Redis,
// memory alone without Redis, nothing when caching is off.
func ProvideSnapshotCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	memory := []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		cache.WithMemoryCleanup(cfg.Cache.MemoryCleanup),
	}
	switch {
	case !cfg.Cache.Enabled:
		return cache.NopCache{}
	case rc == nil:
		return cache.NewMemoryCache(memory...)
	default:
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemory(memory...),
			cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
		)
	}
}

func analyticsPolicy(cfg *config.Config) analytics.Policy {
	p := analytics.DefaultPolicy()
	th := cfg.Analytics.Thresholds
	if cfg.Analytics.DriverLimit > 0 {
		p.DriverLimit = cfg.Analytics.DriverLimit
	}
	p.ConcentrationThreshold = map[models.MetricKey]float64{
		models.MetricGrossSales: th.GrossConcentration,
		models.MetricNetRevenue: th.NetConcentration,
		models.MetricRefunds:    th.RefundsConcentration,
		models.MetricFeesTotal:  th.FeesConcentration,
	}
	p.RefundRateGrowthPP = th.RefundRateGrowthPP
	p.FeesOnRefundsShare = th.FeesOnRefundsShare
	p.PaymentShiftDelta = th.PaymentShiftDelta
	return p
}

// ProvideMetricsUseCase creates the metrics use case.
func ProvideMetricsUseCase(
	cfg *config.Config,
	store repository.TransactionStore,
	snapshots cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.MetricsUseCase, error) {
	loc, err := cfg.Analytics.Location()
	if err != nil {
		return nil, fmt.Errorf("analytics timezone: %w", err)
	}
	return usecase.NewMetricsUseCase(store, snapshots, m, l, usecase.MetricsConfig{
		Location:       loc,
		Policy:         analyticsPolicy(cfg),
		SnapshotTTL:    cfg.Cache.SnapshotTTL,
		RequestTimeout: cfg.Analytics.RequestTimeout,
	}), nil
}

// ProvideJobQueue creates the warm-up queue with its job registered, or nil
// when the queue or Redis is disabled.
func ProvideJobQueue(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache, uc *usecase.MetricsUseCase, snapshots cache.Service) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		JobTimeout: cfg.Queue.JobTimeout,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
	q.RegisterJobs(usecase.NewWarmupJob(uc, snapshots, l))
	return q
}

// ProvideImportEventsHandler creates the handler for the imports topic.
func ProvideImportEventsHandler(cfg *config.Config, uc *usecase.MetricsUseCase, q *queue.RedisQueue, m repository.Metrics, l *applogger.Logger) *usecase.ImportEventsHandler {
	var jobs repository.JobQueue
	if q != nil {
		jobs = q
	}
	return usecase.NewImportEventsHandler(cfg.Kafka.ImportsTopic, cfg.Analytics.WarmupDays, uc, jobs, m, l)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.OffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideMetricsHandler creates the HTTP handler of the metric endpoints.
func ProvideMetricsHandler(l *applogger.Logger, uc *usecase.MetricsUseCase, limiter *ratelimit.Limiter, store *internalrepo.CHTransactionStore) *api.MetricsEchoHandler {
	return api.NewMetricsEchoHandler(l, uc, limiter, store)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.MetricsEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	importHandler *usecase.ImportEventsHandler,
	q *queue.RedisQueue,
	limiter *ratelimit.Limiter,
	snapshots cache.Service,
	rc *cache.RedisCache,
	ch *pkgch.Client,
	pub *internalrepo.KafkaPublisher,
) *server.App {
	app := server.New(cfg, l, httpServer)
	if consumer != nil {
		app.WithConsumer(consumer, importHandler)
	}
	if q != nil {
		app.WithQueue(q)
	}
	if limiter != nil {
		app.Go(func(ctx context.Context) {
			t := time.NewTicker(time.Minute)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					limiter.Sweep(5 * time.Minute)
				}
			}
		})
	}

	// closed in reverse order: the log collector flushes through the producer last
	if pub != nil {
		app.OnShutdown("kafka producer", pub.Close)
	}
	app.OnShutdown("logger", func() error { l.RemoveCollector(); return nil })
	app.OnShutdown("clickhouse", ch.Close)
	// the layered cache owns the Redis client when caching is on
	if rc != nil && !cfg.Cache.Enabled {
		app.OnShutdown("redis", rc.Close)
	}
	if c, ok := snapshots.(interface{ Close() error }); ok {
		app.OnShutdown("snapshot cache", c.Close)
	}
	return app
}
