// Command htnqld is the htnql gateway: an HTTP facade over the query
// engine, exposing POST /api/v1/report, POST /api/v1/report/explain,
// GET /health, and GET /readyz.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/htnql/htnql/internal/agents"
	"github.com/htnql/htnql/internal/config"
	"github.com/htnql/htnql/internal/dbexec"
	"github.com/htnql/htnql/internal/gatewayhttp"
	"github.com/htnql/htnql/internal/migrator"
	"github.com/htnql/htnql/internal/observability"
	"github.com/htnql/htnql/internal/queryengine"
	"github.com/htnql/htnql/internal/schema"
	"github.com/htnql/htnql/internal/sqlbuilder"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "htnqld: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "config file")
		showVer    = flag.Bool("version", false, "show version")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("htnqld %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Schema.Path == "" {
		return fmt.Errorf("schema.path is not configured")
	}
	data, err := os.ReadFile(cfg.Schema.Path)
	if err != nil {
		return fmt.Errorf("reading schema file: %w", err)
	}
	g, err := schema.Load(data)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	exec, ping, err := buildExecutor(cfg)
	if err != nil {
		return fmt.Errorf("building executor: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("building query logger: %w", err)
	}

	engine := queryengine.New(g, agents.Builtins(), sqlbuilder.ANSI{}, exec, logger)
	handler := gatewayhttp.NewServer(engine, ping)

	readTimeout, writeTimeout := 30*time.Second, 30*time.Second
	if d, err := time.ParseDuration(cfg.Server.ReadTimeout); err == nil {
		readTimeout = d
	}
	if d, err := time.ParseDuration(cfg.Server.WriteTimeout); err == nil {
		writeTimeout = d
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down htnqld...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		close(done)
	}()

	log.Printf("htnqld listening on %s", server.Addr)
	log.Printf("version %s, commit %s", version, commit)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	<-done
	log.Println("htnqld stopped")
	return nil
}

// buildLogger builds the configured QueryLogger. The "postgres" sink opens
// its own connection pool against cfg.Database, runs the report_runs
// migration, and persists every query there.
func buildLogger(cfg *config.Config) (observability.QueryLogger, error) {
	switch cfg.Logging.Sink {
	case "", "stdout":
		return observability.NewJSONLogger(os.Stdout), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
		exec, err := dbexec.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening audit database: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Println("running report_runs migration...")
		if err := migrator.NewRunner(exec.DB()).Run(ctx); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}

		return observability.NewPersistentLogger(exec.DB())
	default:
		return nil, fmt.Errorf("unknown logging.sink %q", cfg.Logging.Sink)
	}
}

// buildExecutor picks the first enabled executor out of cfg.Executors (in
// the order duckdb, postgres, sqlite, snowflake, trino, bigquery) and
// returns it twice: as the Executor and as the Pinger for the readiness
// endpoint. Every executor here, BigQuery included, implements Ping.
func buildExecutor(cfg *config.Config) (queryengine.Executor, gatewayhttp.Pinger, error) {
	switch {
	case cfg.Executors.DuckDB.Enabled:
		e, err := dbexec.NewDuckDB(cfg.Executors.DuckDB.Database)
		return e, e, err
	case cfg.Executors.Postgres.Enabled:
		e, err := dbexec.NewPostgres(cfg.Executors.Postgres.DSN)
		return e, e, err
	case cfg.Executors.SQLite.Enabled:
		e, err := dbexec.NewSQLite(cfg.Executors.SQLite.Path)
		return e, e, err
	case cfg.Executors.Snowflake.Enabled:
		e, err := dbexec.NewSnowflake(cfg.Executors.Snowflake.DSN)
		return e, e, err
	case cfg.Executors.Trino.Enabled:
		e, err := dbexec.NewTrino(cfg.Executors.Trino.DSN)
		return e, e, err
	case cfg.Executors.BigQuery.Enabled:
		bq := dbexec.DefaultBigQueryConfig()
		bq.ProjectID = cfg.Executors.BigQuery.ProjectID
		if cfg.Executors.BigQuery.Location != "" {
			bq.Location = cfg.Executors.BigQuery.Location
		}
		bq.DefaultDataset = cfg.Executors.BigQuery.Dataset
		e, err := dbexec.NewBigQueryExecutor(context.Background(), bq)
		return e, e, err
	default:
		return nil, nil, fmt.Errorf("no executor is enabled; set executors.<name>.enabled in config.yaml")
	}
}
