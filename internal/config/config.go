package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ANOMALY_REMOTE_BASE_URL.
const EnvPrefix = "ANOMALY"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	BigQuery  BigQueryConfig  `mapstructure:"bigquery"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Detection DetectionConfig `mapstructure:"detection"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Notion    NotionConfig    `mapstructure:"notion"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty disables the rotating file
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type StoreConfig struct {
	Backend  string `mapstructure:"backend"`
	Fixtures string `mapstructure:"fixtures"` // YAML file for the memory backend
}

type BigQueryConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RemoteConfig points at the external detection service. An empty BaseURL
// disables the remote tiers.
type RemoteConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	CategoryTimeout time.Duration `mapstructure:"category_timeout"`
	UserTimeout     time.Duration `mapstructure:"user_timeout"`
}

type DetectionConfig struct {
	Concurrency int   `mapstructure:"concurrency"`
	Seed        int64 `mapstructure:"seed"` // 0 seeds the forest from the clock
}

type ReportsConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type GeminiConfig struct {
	Model string `mapstructure:"model"`
}

type WorkerConfig struct {
	Users     []string      `mapstructure:"users"`
	Interval  time.Duration `mapstructure:"interval"`
	QueueSize int           `mapstructure:"queue_size"`
}

// Load reads the YAML file at path (optional) and ANOMALY_* environment
// variables on top of the defaults. An empty path looks for config.yaml in
// the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.fixtures", "")
	v.SetDefault("bigquery.project", "")
	v.SetDefault("bigquery.dataset", "")
	v.SetDefault("postgres.dsn", "")

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.category_timeout", 10*time.Second)
	v.SetDefault("remote.user_timeout", 15*time.Second)

	v.SetDefault("detection.concurrency", 4)
	v.SetDefault("detection.seed", 0)

	v.SetDefault("reports.bucket", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("gemini.model", "")

	v.SetDefault("worker.users", []string{})
	v.SetDefault("worker.interval", time.Hour)
	v.SetDefault("worker.queue_size", 100)
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory:
	case BackendBigQuery:
		if c.BigQuery.Project == "" || c.BigQuery.Dataset == "" {
			errs = append(errs, errors.New("bigquery backend requires bigquery.project and bigquery.dataset"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres backend requires postgres.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Remote.CategoryTimeout <= 0 || c.Remote.UserTimeout <= 0 {
		errs = append(errs, errors.New("remote timeouts must be positive"))
	}
	if c.Detection.Concurrency <= 0 {
		errs = append(errs, errors.New("detection.concurrency must be positive"))
	}
	if (c.Notion.Token == "") != (c.Notion.DatabaseID == "") {
		errs = append(errs, errors.New("notion.token and notion.database_id must be set together"))
	}

	return errors.Join(errs...)
}

// NotionEnabled reports whether anomalies should be published to Notion.
func (c *Config) NotionEnabled() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}
