// Package config loads the journal CLI configuration from a YAML file, an
// optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config represents the CLI configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Verify VerifyConfig `yaml:"verify"`
}

// StoreConfig selects and addresses the store backend.
type StoreConfig struct {
	// Driver is one of postgres, sqlite or mongo.
	Driver string `yaml:"driver"`
	// DSN is the connection string (a MongoDB URI for mongo).
	DSN string `yaml:"dsn"`
	// Database names the MongoDB database. Ignored by SQL drivers.
	Database string `yaml:"database"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// VerifyConfig tunes chain verification.
type VerifyConfig struct {
	PageSize    int `yaml:"page_size"`
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:   DriverSQLite,
			DSN:      "file:journal.db?_pragma=busy_timeout(5000)",
			Database: "journal",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Kafka: KafkaConfig{
			Topic: "journal.events",
		},
		Verify: VerifyConfig{
			PageSize:    500,
			Concurrency: 4,
		},
	}
}

// Load reads the YAML file at path, when path is non-empty, then applies
// environment overrides. A .env file is loaded from envPath, or from the
// current directory if present.
func Load(path string, envPath ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.Store.Driver, "JOURNAL_STORE_DRIVER")
	setString(&c.Store.DSN, "JOURNAL_STORE_DSN")
	setString(&c.Store.Database, "JOURNAL_STORE_DATABASE")
	setString(&c.Log.Level, "JOURNAL_LOG_LEVEL")
	setString(&c.Log.Format, "JOURNAL_LOG_FORMAT")
	setString(&c.Kafka.Topic, "JOURNAL_KAFKA_TOPIC")

	if v := os.Getenv("JOURNAL_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}

	if err := setInt(&c.Verify.PageSize, "JOURNAL_VERIFY_PAGE_SIZE"); err != nil {
		return err
	}
	return setInt(&c.Verify.Concurrency, "JOURNAL_VERIFY_CONCURRENCY")
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want postgres, sqlite or mongo", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required"))
	}
	if c.Store.Driver == DriverMongo && c.Store.Database == "" {
		errs = append(errs, errors.New("store.database is required for mongo"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Logger builds a slog.Logger writing to w per the log settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer value for %s: %s", key, v)
	}
	*dst = n
	return nil
}
