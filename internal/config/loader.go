package config

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to read config file")
		}
		log.Warn(context.Background(), "no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch re-validates and delivers the configuration whenever the file
// changes on disk. A change that fails validation is logged and dropped; the
// previous configuration stays active.
func Watch(log logger.Logger, onChange func(*Config)) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Error(context.Background(), "config reload failed to unmarshal", err, logger.Fields{"file": e.Name})
			return
		}
		if err := cfg.Validate(); err != nil {
			log.Error(context.Background(), "config reload rejected", err, logger.Fields{"file": e.Name})
			return
		}
		log.Info(context.Background(), "config reloaded", logger.Fields{"file": e.Name})
		onChange(&cfg)
	})
	v.WatchConfig()
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "production")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("tracing.service_name", "intelpipe")
	v.SetDefault("tracing.sampling_rate", 1.0)
	v.SetDefault("kafka.alert_topic", "intelpipe.alerts")
	v.SetDefault("kafka.write_timeout", 10)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("pipeline.ingestion_interval", time.Hour)
	v.SetDefault("pipeline.scoring_interval", 6*time.Hour)
	v.SetDefault("pipeline.spike_interval", time.Hour)
	v.SetDefault("pipeline.scoring_window_days", constants.DefaultScoringWindowDays)
	v.SetDefault("pipeline.fetch_timeout", constants.DefaultFetchTimeout)
	v.SetDefault("pipeline.max_concurrent_feeds", 4)
	v.SetDefault("pipeline.dedup_cache_ttl", time.Hour)
	v.SetDefault("pipeline.run_lock_ttl", constants.DefaultRunLockTTL)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/intelpipe/")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INTELPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}
