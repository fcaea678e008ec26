package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/htnql/htnql/internal/agents"
	"github.com/htnql/htnql/internal/config"
	"github.com/htnql/htnql/internal/dbexec"
	"github.com/htnql/htnql/internal/migrator"
	"github.com/htnql/htnql/internal/observability"
	"github.com/htnql/htnql/internal/queryengine"
	"github.com/htnql/htnql/internal/schema"
	"github.com/htnql/htnql/internal/sqlbuilder"
)

// buildEngine assembles a queryengine.Engine from cfg: it loads the schema
// document named by cfg.Schema.Path, wires whichever executor is enabled,
// and registers the built-in "default"/"heuristic" agents plus any
// additional catalogs parsed from cfg.AgentsConfigPath.
func (c *CLI) buildEngine(cfg *config.Config) (*queryengine.Engine, error) {
	g, err := loadSchemaFile(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	catalogs := agents.Builtins()
	if cfg.AgentsConfigPath != "" {
		extra, err := loadAgentCatalogs(cfg.AgentsConfigPath)
		if err != nil {
			return nil, err
		}
		for name, cat := range extra {
			catalogs[name] = cat
		}
	}

	return queryengine.New(g, catalogs, sqlbuilder.ANSI{}, exec, logger), nil
}

func loadSchemaFile(path string) (*schema.Graph, error) {
	if path == "" {
		return nil, fmt.Errorf("cli: schema.path is not configured; set it in config.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: reading schema file %s: %w", path, err)
	}
	return schema.Load(data)
}

// newExecutor picks the single enabled executor out of cfg.Executors. It
// fails if none or more than one are enabled, since the engine has exactly
// one execution boundary per process.
func newExecutor(cfg *config.Config) (queryengine.Executor, error) {
	type candidate struct {
		name    string
		enabled bool
		build   func() (queryengine.Executor, error)
	}
	candidates := []candidate{
		{"duckdb", cfg.Executors.DuckDB.Enabled, func() (queryengine.Executor, error) {
			return dbexec.NewDuckDB(cfg.Executors.DuckDB.Database)
		}},
		{"postgres", cfg.Executors.Postgres.Enabled, func() (queryengine.Executor, error) {
			return dbexec.NewPostgres(cfg.Executors.Postgres.DSN)
		}},
		{"sqlite", cfg.Executors.SQLite.Enabled, func() (queryengine.Executor, error) {
			return dbexec.NewSQLite(cfg.Executors.SQLite.Path)
		}},
		{"snowflake", cfg.Executors.Snowflake.Enabled, func() (queryengine.Executor, error) {
			return dbexec.NewSnowflake(cfg.Executors.Snowflake.DSN)
		}},
		{"trino", cfg.Executors.Trino.Enabled, func() (queryengine.Executor, error) {
			return dbexec.NewTrino(cfg.Executors.Trino.DSN)
		}},
		{"bigquery", cfg.Executors.BigQuery.Enabled, func() (queryengine.Executor, error) {
			bq := dbexec.DefaultBigQueryConfig()
			bq.ProjectID = cfg.Executors.BigQuery.ProjectID
			if cfg.Executors.BigQuery.Location != "" {
				bq.Location = cfg.Executors.BigQuery.Location
			}
			bq.DefaultDataset = cfg.Executors.BigQuery.Dataset
			return dbexec.NewBigQueryExecutor(context.Background(), bq)
		}},
	}

	var chosen *candidate
	for i := range candidates {
		if !candidates[i].enabled {
			continue
		}
		if chosen != nil {
			return nil, fmt.Errorf("cli: more than one executor is enabled (%s and %s); enable exactly one", chosen.name, candidates[i].name)
		}
		chosen = &candidates[i]
	}
	if chosen == nil {
		return nil, fmt.Errorf("cli: no executor is enabled; set executors.<name>.enabled in config.yaml")
	}
	return chosen.build()
}

// newLogger builds the configured QueryLogger. The "postgres" sink persists
// report_runs to cfg.Database, sharing its own connection pool rather than
// the report executor's (the audit trail outlives any single executor).
func newLogger(cfg *config.Config) (observability.QueryLogger, error) {
	switch cfg.Logging.Sink {
	case "", "stdout":
		return observability.NewJSONLogger(os.Stdout), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
		exec, err := dbexec.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("cli: opening postgres logging sink: %w", err)
		}
		if err := migrator.NewRunner(exec.DB()).Run(context.Background()); err != nil {
			return nil, fmt.Errorf("cli: running migrations: %w", err)
		}
		return observability.NewPersistentLogger(exec.DB())
	default:
		return nil, fmt.Errorf("cli: unknown logging.sink %q", cfg.Logging.Sink)
	}
}
