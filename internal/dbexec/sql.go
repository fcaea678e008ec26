// Package dbexec provides queryengine.Executor implementations over the
// concrete database drivers this module depends on. None of this is part
// of the planning core; it is the external "execute(sql, bound_values)"
// boundary the facade calls through.
package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"            // postgres / redshift (wire-compatible)
	_ "github.com/marcboeker/go-duckdb" // duckdb
	_ "github.com/snowflakedb/gosnowflake" // snowflake
	_ "github.com/trinodb/trino-go-client/trino" // trino
	_ "modernc.org/sqlite"           // sqlite

	"github.com/htnql/htnql/internal/queryengine"
)

// SQLExecutor adapts a database/sql.DB to queryengine.Executor. It is the
// shared implementation behind every driver that speaks database/sql:
// DuckDB, Postgres/Redshift, SQLite, Snowflake, and Trino all register a
// database/sql driver and differ only in DSN shape.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor wraps an already-open *sql.DB.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Open opens driverName with dsn and wraps the result.
func Open(driverName, dsn string) (*SQLExecutor, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbexec: opening %s: %w", driverName, err)
	}
	return &SQLExecutor{db: db}, nil
}

// NewDuckDB opens a DuckDB database at path (":memory:" for in-memory).
func NewDuckDB(path string) (*SQLExecutor, error) {
	if path == "" {
		path = ":memory:"
	}
	return Open("duckdb", path)
}

// NewPostgres opens a Postgres/Redshift connection (Redshift speaks the
// Postgres wire protocol, so lib/pq serves both).
func NewPostgres(dsn string) (*SQLExecutor, error) {
	return Open("postgres", dsn)
}

// NewSQLite opens a SQLite database at path.
func NewSQLite(path string) (*SQLExecutor, error) {
	return Open("sqlite", path)
}

// NewSnowflake opens a Snowflake connection.
func NewSnowflake(dsn string) (*SQLExecutor, error) {
	return Open("snowflake", dsn)
}

// NewTrino opens a Trino connection.
func NewTrino(dsn string) (*SQLExecutor, error) {
	return Open("trino", dsn)
}

// Execute runs sql with boundValues as positional driver arguments and
// scans every row into a queryengine.Row keyed by column name.
func (e *SQLExecutor) Execute(ctx context.Context, query string, boundValues []any) ([]queryengine.Row, error) {
	rows, err := e.db.QueryContext(ctx, query, boundValues...)
	if err != nil {
		return nil, fmt.Errorf("dbexec: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dbexec: reading columns: %w", err)
	}

	var out []queryengine.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dbexec: scanning row: %w", err)
		}
		row := make(queryengine.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dbexec: iterating rows: %w", err)
	}
	return out, nil
}

// Ping checks connectivity.
func (e *SQLExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

// DB returns the underlying connection pool, for callers that need to share
// it with another component (e.g. a PersistentLogger writing to the same
// database).
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}
