package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddress string          `yaml:"http_address"`
	LogLevel    string          `yaml:"log_level"`
	LogFormat   string          `yaml:"log_format"`
	Postgres    PostgresConfig  `yaml:"postgres"`
	Mongo       MongoConfig     `yaml:"mongo"`
	Migrations  MigrationConfig `yaml:"migrations"`
}

type PostgresConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type MigrationConfig struct {
	Dir               string        `yaml:"dir"`
	AutoRun           bool          `yaml:"auto_run"`
	Timeout           time.Duration `yaml:"timeout"`
	StatusTable       string        `yaml:"status_table"`
	HistoryTable      string        `yaml:"history_table"`
	StatusCollection  string        `yaml:"status_collection"`
	HistoryCollection string        `yaml:"history_collection"`
}

// Load reads the YAML config at path (skipped when path is empty) and then
// applies DUALBASE_* environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTPAddress: ":8080",
		LogLevel:    "info",
		LogFormat:   "json",
		Postgres: PostgresConfig{
			MaxOpenConns: 5,
			MaxIdleTime:  5 * time.Minute,
		},
		Migrations: MigrationConfig{
			Dir:               "./migrations",
			Timeout:           2 * time.Minute,
			StatusTable:       "schema_migrations",
			HistoryTable:      "migration_history",
			StatusCollection:  "schema_migrations",
			HistoryCollection: "migration_history",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddress = getEnv("DUALBASE_HTTP_ADDR", cfg.HTTPAddress)
	cfg.LogLevel = getEnv("DUALBASE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("DUALBASE_LOG_FORMAT", cfg.LogFormat)
	cfg.Postgres.DSN = getEnv("DUALBASE_PG_DSN", cfg.Postgres.DSN)
	cfg.Mongo.URI = getEnv("DUALBASE_MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("DUALBASE_MONGO_DB", cfg.Mongo.Database)
	cfg.Migrations.Dir = getEnv("DUALBASE_MIGRATIONS_DIR", cfg.Migrations.Dir)

	if v := os.Getenv("DUALBASE_PG_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Postgres.MaxOpenConns = n
		}
	}
	if v := os.Getenv("DUALBASE_MIGRATIONS_AUTO_RUN"); v != "" {
		cfg.Migrations.AutoRun = strings.EqualFold(v, "true")
	}
}

func (c Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("postgres dsn is required (postgres.dsn or DUALBASE_PG_DSN)")
	}
	if c.Mongo.URI == "" {
		return errors.New("mongo uri is required (mongo.uri or DUALBASE_MONGO_URI)")
	}
	if c.Mongo.Database == "" {
		return errors.New("mongo database is required (mongo.database or DUALBASE_MONGO_DB)")
	}
	if c.Migrations.Dir == "" {
		return errors.New("migrations dir is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
