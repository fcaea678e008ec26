// Package config loads process configuration for the htnql CLI and
// htnqld gateway: a layered viper config (file, then environment,
// HTNQL_-prefixed) over a set of documented defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the full process configuration.
type Config struct {
	// Agent is the default agent name used when a request does not name one.
	Agent string `mapstructure:"agent"`

	// AgentsConfigPath, if set, points to a YAML document parsed by
	// agentdsl.Parse and merged over the built-in agent catalogs.
	AgentsConfigPath string `mapstructure:"agentsConfigPath"`

	// Schema describes where to load the table/FK reflection from.
	Schema SchemaConfig `mapstructure:"schema"`

	// Database is the audit/report_runs persistence connection (Postgres).
	Database DatabaseConfig `mapstructure:"database"`

	// Executors configures the pluggable SQL execution backends.
	Executors ExecutorsConfig `mapstructure:"executors"`

	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// SchemaConfig points at the reflected table/FK metadata document.
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig holds the PostgreSQL connection used for audit logging.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ExecutorsConfig configures every pluggable Executor backend. Exactly one
// is enabled per deployment: the CLI rejects a config with more than one
// enabled, and htnqld uses the first enabled one in the order duckdb,
// postgres, sqlite, snowflake, trino, bigquery.
type ExecutorsConfig struct {
	DuckDB    DuckDBExecutorConfig    `mapstructure:"duckdb"`
	Postgres  PostgresExecutorConfig  `mapstructure:"postgres"`
	SQLite    SQLiteExecutorConfig    `mapstructure:"sqlite"`
	Snowflake SnowflakeExecutorConfig `mapstructure:"snowflake"`
	Trino     TrinoExecutorConfig     `mapstructure:"trino"`
	BigQuery  BigQueryExecutorConfig  `mapstructure:"bigquery"`
}

type DuckDBExecutorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
}

type PostgresExecutorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type SQLiteExecutorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SnowflakeExecutorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type TrinoExecutorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type BigQueryExecutorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"projectId"`
	Location  string `mapstructure:"location"`
	Dataset   string `mapstructure:"dataset"`
}

// LoggingConfig controls the observability.QueryLogger used by the engine.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Sink selects the QueryLogger backend: "stdout" or "postgres".
	Sink string `mapstructure:"sink"`
}

// ServerConfig configures the htnqld gateway's HTTP listener.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`
}

// DefaultConfig returns the documented defaults: an in-memory DuckDB
// executor, the built-in "default" agent, and stdout JSON logging.
func DefaultConfig() *Config {
	return &Config{
		Agent: "default",
		Schema: SchemaConfig{
			Path: "",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "htnql",
			Password: "htnql_dev",
			Name:     "htnql",
			SSLMode:  "disable",
		},
		Executors: ExecutorsConfig{
			DuckDB: DuckDBExecutorConfig{Enabled: true, Database: ":memory:"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Sink:   "stdout",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
	}
}

// Load loads configuration from configPath (or the default search path
// when empty), then layers HTNQL_-prefixed environment variables on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".htnql"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("HTNQL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent", "default")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "htnql")
	v.SetDefault("database.password", "htnql_dev")
	v.SetDefault("database.name", "htnql")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("executors.duckdb.enabled", true)
	v.SetDefault("executors.duckdb.database", ":memory:")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.sink", "stdout")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
}
