// Package config loads application configuration from file and environment
// and installs the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	DB          DBConfig          `yaml:"db" mapstructure:"db"`
	Engine      EngineConfig      `yaml:"engine" mapstructure:"engine"`
	Alerting    AlertingConfig    `yaml:"alerting" mapstructure:"alerting"`
	Calibration CalibrationConfig `yaml:"calibration" mapstructure:"calibration"`
	Sampler     SamplerConfig     `yaml:"sampler" mapstructure:"sampler"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DBConfig configures the shared Postgres pool.
type DBConfig struct {
	DatabaseURL          string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns             int32  `yaml:"max_conns" mapstructure:"max_conns"`
	StatementTimeoutSecs int    `yaml:"statement_timeout_secs" mapstructure:"statement_timeout_secs"`
}

// StatementTimeout returns the per-statement timeout as a duration.
func (c DBConfig) StatementTimeout() time.Duration {
	return time.Duration(c.StatementTimeoutSecs) * time.Second
}

// EngineConfig configures indicator evaluation.
type EngineConfig struct {
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	BatchTimeoutSecs int     `yaml:"batch_timeout_secs" mapstructure:"batch_timeout_secs"`
	HistoryYears     int     `yaml:"history_years" mapstructure:"history_years"`
	Resamples        int     `yaml:"resamples" mapstructure:"resamples"`
	MinCompleteness  float64 `yaml:"min_completeness" mapstructure:"min_completeness"`
}

// BatchTimeout returns the wall-clock limit for a batch analyze run.
func (c EngineConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSecs) * time.Second
}

// AlertingConfig configures the alert evaluation job.
type AlertingConfig struct {
	WebhookURL        string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	WebhookRatePerSec float64 `yaml:"webhook_rate_per_sec" mapstructure:"webhook_rate_per_sec"`
	CronSpec          string  `yaml:"cron_spec" mapstructure:"cron_spec"`
	MaxTendersPerRun  int     `yaml:"max_tenders_per_run" mapstructure:"max_tenders_per_run"`
}

// CalibrationConfig configures the weight recalibration job.
type CalibrationConfig struct {
	MinBatchSize int     `yaml:"min_batch_size" mapstructure:"min_batch_size"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	MaxStep      float64 `yaml:"max_step" mapstructure:"max_step"`
	MinWeight    float64 `yaml:"min_weight" mapstructure:"min_weight"`
}

// SamplerConfig configures the active-learning review queue.
type SamplerConfig struct {
	QueueSize     int     `yaml:"queue_size" mapstructure:"queue_size"`
	BoundaryScore float64 `yaml:"boundary_score" mapstructure:"boundary_score"`
}

// ServerConfig configures the read-only risk API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TENDERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("db.max_conns", 6)
	v.SetDefault("db.statement_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("engine.concurrency", 6)
	v.SetDefault("engine.batch_timeout_secs", 600)
	v.SetDefault("engine.history_years", 3)
	v.SetDefault("engine.resamples", 500)
	v.SetDefault("engine.min_completeness", 0.4)
	v.SetDefault("alerting.webhook_rate_per_sec", 5)
	v.SetDefault("alerting.cron_spec", "*/15 * * * *")
	v.SetDefault("alerting.max_tenders_per_run", 5000)
	v.SetDefault("calibration.min_batch_size", 10)
	v.SetDefault("calibration.learning_rate", 0.5)
	v.SetDefault("calibration.max_step", 0.25)
	v.SetDefault("calibration.min_weight", 0.05)
	v.SetDefault("sampler.queue_size", 50)
	v.SetDefault("sampler.boundary_score", 50)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
