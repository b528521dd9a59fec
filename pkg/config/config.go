package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve in minimal images

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/romkarus000/analytics-product/pkg/util"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     LoggingConfig    `yaml:"logging"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	Cache       CacheConfig      `yaml:"cache"`
	Queue       QueueConfig      `yaml:"queue"`
	Analytics   AnalyticsConfig  `yaml:"analytics"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
	// Error entries are aggregated and shipped to this topic when set.
	CollectTopic    string        `yaml:"collect_topic"`
	CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
	CollectMax      int           `yaml:"collect_max" default:"100"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"20"`
	Burst   int     `yaml:"burst" default:"40"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"analytics"`
	Table            string        `yaml:"table" default:"fact_transactions"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	InitSchema       bool          `yaml:"init_schema" default:"true"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled" default:"true"`
	Brokers      []string `yaml:"brokers"`
	ImportsTopic string   `yaml:"imports_topic" default:"analytics.imports"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"100ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID     string        `yaml:"group_id" default:"analytics-metrics"`
		OffsetReset string        `yaml:"offset_reset" default:"latest"`
		Workers     int           `yaml:"workers" default:"2"`
		BufferSize  int           `yaml:"buffer_size" default:"50"`
		RetryMax    int           `yaml:"retry_max" default:"3"`
		BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic    string        `yaml:"dlq_topic" default:"analytics.imports.dlq"`
	} `yaml:"consumer"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" default:"true"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" default:"true"`
	Prefix        string        `yaml:"prefix" default:"analytics"`
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl" default:"10m"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" default:"1m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"500"`
	MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"5m"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled" default:"true"`
	KeyPrefix  string        `yaml:"key_prefix" default:"analytics:queue"`
	Workers    int           `yaml:"workers" default:"2"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	JobTimeout time.Duration `yaml:"job_timeout" default:"1m"`
}

type AnalyticsConfig struct {
	Timezone       string        `yaml:"timezone" default:"UTC"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"20s"`
	DriverLimit    int           `yaml:"driver_limit" default:"10"`
	// Days recomputed by the warm-up job after an import.
	WarmupDays int `yaml:"warmup_days" default:"30"`
	Thresholds struct {
		GrossConcentration   float64 `yaml:"gross_concentration" default:"0.6"`
		NetConcentration     float64 `yaml:"net_concentration" default:"0.6"`
		RefundsConcentration float64 `yaml:"refunds_concentration" default:"0.5"`
		FeesConcentration    float64 `yaml:"fees_concentration" default:"0.6"`
		RefundRateGrowthPP   float64 `yaml:"refund_rate_growth_pp" default:"2"`
		FeesOnRefundsShare   float64 `yaml:"fees_on_refunds_share" default:"0.05"`
		PaymentShiftDelta    float64 `yaml:"payment_shift_delta" default:"0.05"`
	} `yaml:"thresholds"`
}

// Location resolves the configured timezone.
func (a AnalyticsConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

// Default returns a config populated only from default tags.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := lookup("SERVER_PORT"); ok {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v, ok := lookup("CLICKHOUSE_HOST"); ok && v != "" {
		c.ClickHouse.Host = v
	}
	if v, ok := lookup("CLICKHOUSE_PASSWORD"); ok {
		c.ClickHouse.Password = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		host, port, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if found {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: invalid port %q", port)
			}
			c.Redis.Port = p
		}
	}
	if v, ok := lookup("ANALYTICS_TIMEZONE"); ok && v != "" {
		c.Analytics.Timezone = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment == "" {
		errs = append(errs, fmt.Errorf("environment is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if (c.Cache.Enabled || c.Queue.Enabled) && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("redis must be enabled for cache and queue"))
	}
	if c.ClickHouse.Database == "" || c.ClickHouse.Table == "" {
		errs = append(errs, fmt.Errorf("clickhouse.database and clickhouse.table are required"))
	}
	if _, err := c.Analytics.Location(); err != nil {
		errs = append(errs, fmt.Errorf("analytics.timezone %q: %w", c.Analytics.Timezone, err))
	}
	if c.Analytics.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("analytics.request_timeout must be positive"))
	}
	if c.Analytics.DriverLimit < 1 || c.Analytics.DriverLimit > 100 {
		errs = append(errs, fmt.Errorf("analytics.driver_limit must be in 1..100, got %d", c.Analytics.DriverLimit))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, fmt.Errorf("rate_limit.rps and rate_limit.burst must be positive"))
	}
	return errors.Join(errs...)
}
