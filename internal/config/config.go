// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"mindmail/internal/logger"
	"mindmail/internal/models"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	FileDir       string `mapstructure:"file_dir"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type LettersConfig struct {
	BodyMinLength    int           `mapstructure:"body_min_length"`
	BodyMaxLength    int           `mapstructure:"body_max_length"`
	MaxScheduled     int           `mapstructure:"max_scheduled"`
	MinScheduleDelay time.Duration `mapstructure:"min_schedule_delay"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"` // empty disables broker publishing
	Queue string `mapstructure:"queue"`
}

// Config is the root of all settings.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`
	Storage       StorageConfig  `mapstructure:"storage"`
	Letters       LettersConfig  `mapstructure:"letters"`
	Notifications struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"notifications"`
	Reconcile struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"reconcile"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Log      logger.Config  `mapstructure:"log"`
	Sanitize struct {
		StripMarkup bool `mapstructure:"strip_markup"`
	} `mapstructure:"sanitize"`
}

var defaults = map[string]any{
	"app.port":                   ":8080",
	"storage.driver":             DriverSQLite,
	"storage.sqlite_path":        "mindmail.db",
	"storage.file_dir":           "./data",
	"storage.postgres_dsn":       "",
	"storage.redis_addr":         "localhost:6379",
	"storage.redis_password":     "",
	"storage.redis_db":           0,
	"storage.key_prefix":         "com.mindmail.",
	"letters.body_min_length":    1,
	"letters.body_max_length":    500,
	"letters.max_scheduled":      100,
	"letters.min_schedule_delay": "60s",
	"notifications.enabled":      true,
	"reconcile.interval":         "1m",
	"rabbitmq.url":               "",
	"rabbitmq.queue":             "letter_deliveries",
	"log.level":                  "info",
	"log.development":            false,
	"log.file":                   "",
	"log.max_size":               100,
	"log.max_backups":            3,
	"log.max_age":                28,
	"log.compress":               true,
	"sanitize.strip_markup":      false,
}

// Load reads MINDMAIL_* environment variables on top of the defaults. Each
// envFile that exists is loaded first; variables already set in the
// environment win. With no envFiles, ".env" is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("mindmail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the app cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.Letters.BodyMinLength < 0 {
		errs = append(errs, errors.New("letters.body_min_length must not be negative"))
	}
	if c.Letters.BodyMaxLength < 1 || c.Letters.BodyMinLength > c.Letters.BodyMaxLength {
		errs = append(errs, fmt.Errorf("letters.body_max_length %d must be positive and at least body_min_length %d",
			c.Letters.BodyMaxLength, c.Letters.BodyMinLength))
	}
	if c.Letters.MaxScheduled < 1 {
		errs = append(errs, errors.New("letters.max_scheduled must be positive"))
	}
	if c.Letters.MinScheduleDelay < models.MinScheduleDelay {
		errs = append(errs, fmt.Errorf("letters.min_schedule_delay %s must be at least %s",
			c.Letters.MinScheduleDelay, models.MinScheduleDelay))
	}
	if c.Reconcile.Interval <= 0 {
		errs = append(errs, errors.New("reconcile.interval must be positive"))
	}

	return errors.Join(errs...)
}
