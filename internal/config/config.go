package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingEnvironmentVariables = errors.New("missing required environment variables")
	ErrUnknownDriver               = errors.New("unknown database driver")
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env     string  `mapstructure:"env"`      // current application environment (local, dev, production etc)
	DB      DB      `mapstructure:"database"` // database configuration section
	Redis   Redis   `mapstructure:"redis"`    // settings cache and plan pub/sub
	Mastery Mastery `mapstructure:"mastery"`  // engine defaults
	Worker  Worker  `mapstructure:"worker"`   // daily plan job
	Tracing Tracing `mapstructure:"tracing"`  // OpenTelemetry tracing
}

// DB contains database-related configuration parameters.
type DB struct {
	Driver          string        `mapstructure:"driver"`            // postgres, sqlite or memory
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	SQLitePath      string        `mapstructure:"sqlite_path"`       // database file used by the sqlite driver
	MaxConnections  int32         `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MinConnections  int32         `mapstructure:"min_connections"`   // connections kept open when idle
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
	Migrate         bool          `mapstructure:"migrate"`           // apply embedded migrations on start
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Redis configures the optional Redis adapters.
type Redis struct {
	Enabled     bool          `mapstructure:"enabled"`
	URL         string        `mapstructure:"-"`            // loaded from REDIS_URL
	SettingsTTL time.Duration `mapstructure:"settings_ttl"` // lifetime of cached user settings
	PlanChannel string        `mapstructure:"plan_channel"` // pub/sub channel for daily plans
}

// Mastery holds engine defaults.
type Mastery struct {
	DailyMinutes        int    `mapstructure:"daily_minutes"`         // capacity of users without settings
	Tier                string `mapstructure:"tier"`                  // SURVEY, PROFICIENT or EXPERT
	LearningStyle       string `mapstructure:"learning_style"`        // CONSERVATIVE, BALANCED or AGGRESSIVE
	Timezone            string `mapstructure:"timezone"`              // IANA name or UTC offset
	MaxIntervalDays     int    `mapstructure:"max_interval_days"`     // cap of ease-factor intervals
	CriticalMinutes     int    `mapstructure:"critical_minutes"`      // minutes per critical task
	CoreMinutes         int    `mapstructure:"core_minutes"`          // minutes per core task
	PlusMinutes         int    `mapstructure:"plus_minutes"`          // minutes per plus task
	CriticalOverdueDays int    `mapstructure:"critical_overdue_days"` // overdue days that make a task critical
	CriticalFailures    int    `mapstructure:"critical_failures"`     // consecutive failures that make a task critical
	PreviewLimit        int    `mapstructure:"preview_limit"`         // next-stage previews per plan
}

// Worker configures the daily plan job.
type Worker struct {
	Enabled     bool   `mapstructure:"enabled"`
	Spec        string `mapstructure:"spec"`        // cron spec in UTC
	Concurrency int    `mapstructure:"concurrency"` // users processed in parallel
	BatchSize   int    `mapstructure:"batch_size"`  // users per batch
}

// Tracing configures span export.
type Tracing struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Values from .env never override the real environment.
	_ = godotenv.Load()

	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.sqlite_path", "mastery.db")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.settings_ttl", "10m")
	v.SetDefault("redis.plan_channel", "mastery:daily-plans")
	v.SetDefault("mastery.daily_minutes", 30)
	v.SetDefault("mastery.tier", "PROFICIENT")
	v.SetDefault("mastery.learning_style", "BALANCED")
	v.SetDefault("mastery.timezone", "UTC")
	v.SetDefault("mastery.max_interval_days", 365)
	v.SetDefault("mastery.critical_minutes", 8)
	v.SetDefault("mastery.core_minutes", 5)
	v.SetDefault("mastery.plus_minutes", 3)
	v.SetDefault("mastery.critical_overdue_days", 3)
	v.SetDefault("mastery.critical_failures", 2)
	v.SetDefault("mastery.preview_limit", 5)
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.spec", "0 5 * * *")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.batch_size", 100)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "mastery-engine")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.DB.URL = v.GetString("database_url")
	cfg.Redis.URL = v.GetString("redis_url")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL: %w", ErrMissingEnvironmentVariables)
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("%w %q", ErrUnknownDriver, c.DB.Driver)
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL: %w", ErrMissingEnvironmentVariables)
	}
	return nil
}
