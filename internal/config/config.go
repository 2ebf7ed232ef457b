package config

import (
	"fmt"
	"time"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Feeds    []FeedConfig   `mapstructure:"feeds"`
	Spikes   SpikeConfig    `mapstructure:"spikes"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	Environment  string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	AlertTopic   string   `mapstructure:"alert_topic"`
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
	BatchSize    int      `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// PipelineConfig controls stage scheduling and windows.
type PipelineConfig struct {
	IngestionInterval   time.Duration `mapstructure:"ingestion_interval"`
	ScoringInterval     time.Duration `mapstructure:"scoring_interval"`
	SpikeInterval       time.Duration `mapstructure:"spike_interval"`
	ScoringWindowDays   int           `mapstructure:"scoring_window_days"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	MaxConcurrentFeeds  int           `mapstructure:"max_concurrent_feeds"`
	DomainKeywords      []string      `mapstructure:"domain_keywords"`
	DedupCacheTTL       time.Duration `mapstructure:"dedup_cache_ttl"`
	RunLockTTL          time.Duration `mapstructure:"run_lock_ttl"`
}

// FeedConfig describes one upstream feed source.
type FeedConfig struct {
	ID                string `mapstructure:"id"`
	Name              string `mapstructure:"name"`
	Endpoint          string `mapstructure:"endpoint"`
	Format            string `mapstructure:"format"`
	PollIntervalHours int    `mapstructure:"poll_interval_hours"`
	Enabled           bool   `mapstructure:"enabled"`
	APIKey            string `mapstructure:"api_key"`
}

// SpikeConfig configures the spike-detection stage.
type SpikeConfig struct {
	Metrics []SpikeMetricConfig `mapstructure:"metrics"`
}

// SpikeMetricConfig describes one baseline metric. An empty ThreatType
// matches records of every type.
type SpikeMetricConfig struct {
	Name           string  `mapstructure:"name"`
	ThreatType     string  `mapstructure:"threat_type"`
	WindowDays     int     `mapstructure:"window_days"`
	SpikeThreshold float64 `mapstructure:"spike_threshold"`
}

// knownFormats is the fixed enumeration of feed format tags. A tag outside
// this set is a configuration error surfaced at load time, never a runtime
// fetch failure.
var knownFormats = map[constants.FeedFormat]struct{}{
	constants.FeedFormatOTX:     {},
	constants.FeedFormatURLhaus: {},
	constants.FeedFormatGeneric: {},
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Feeds))
	for _, feed := range c.Feeds {
		if feed.ID == "" {
			return errors.New(errors.CodeInvalidConfig, "feed with endpoint %q has no id", feed.Endpoint)
		}
		if _, dup := seen[feed.ID]; dup {
			return errors.New(errors.CodeInvalidConfig, "duplicate feed id %q", feed.ID)
		}
		seen[feed.ID] = struct{}{}
		if feed.Endpoint == "" {
			return errors.New(errors.CodeInvalidConfig, "feed %q has no endpoint", feed.ID)
		}
		if _, ok := knownFormats[constants.FeedFormat(feed.Format)]; !ok {
			return errors.New(errors.CodeInvalidConfig, "feed %q has unrecognized format %q", feed.ID, feed.Format)
		}
	}
	for _, metric := range c.Spikes.Metrics {
		if metric.Name == "" {
			return errors.New(errors.CodeInvalidConfig, "spike metric with empty name")
		}
		if metric.SpikeThreshold <= 0 {
			return errors.New(errors.CodeInvalidConfig, "spike metric %q has non-positive threshold", metric.Name)
		}
		if metric.WindowDays <= 0 {
			return errors.New(errors.CodeInvalidConfig, "spike metric %q has non-positive window", metric.Name)
		}
	}
	return nil
}

// FeedSources materializes the configured feed registry as domain descriptors.
func (c *Config) FeedSources() []models.FeedSource {
	sources := make([]models.FeedSource, 0, len(c.Feeds))
	for _, feed := range c.Feeds {
		interval := time.Duration(feed.PollIntervalHours) * time.Hour
		sources = append(sources, models.FeedSource{
			ID:           feed.ID,
			Name:         feed.Name,
			Endpoint:     feed.Endpoint,
			Format:       constants.FeedFormat(feed.Format),
			PollInterval: interval,
			Enabled:      feed.Enabled,
			APIKey:       feed.APIKey,
		})
	}
	return sources
}
