package dbexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/htnql/htnql/internal/queryengine"
)

// BigQueryConfig configures a BigQuery executor.
type BigQueryConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	DefaultDataset  string
	QueryTimeout    time.Duration
}

// DefaultBigQueryConfig returns sane BigQuery defaults.
func DefaultBigQueryConfig() BigQueryConfig {
	return BigQueryConfig{Location: "US", QueryTimeout: 5 * time.Minute}
}

func (c BigQueryConfig) validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("dbexec: bigquery project_id is required")
	}
	return nil
}

// BigQueryExecutor runs SQL against BigQuery. Unlike the database/sql
// drivers in sql.go, BigQuery's client uses named query parameters rather
// than driver-level placeholders, so the builder's "?" placeholders are
// translated positionally into bigquery.QueryParameter values here.
type BigQueryExecutor struct {
	mu     sync.RWMutex
	config BigQueryConfig
	client *bigquery.Client
	closed bool
}

// NewBigQueryExecutor dials BigQuery using Application Default Credentials
// unless config.CredentialsJSON is set.
func NewBigQueryExecutor(ctx context.Context, config BigQueryConfig) (*BigQueryExecutor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if config.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("dbexec: bigquery client: %w", err)
	}
	return &BigQueryExecutor{config: config, client: client}, nil
}

// Execute runs query with boundValues supplied as positional parameters.
func (e *BigQueryExecutor) Execute(ctx context.Context, query string, boundValues []any) ([]queryengine.Row, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed || e.client == nil {
		return nil, fmt.Errorf("dbexec: bigquery executor is closed")
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.config.QueryTimeout)
	defer cancel()

	q := e.client.Query(query)
	if e.config.DefaultDataset != "" {
		q.DefaultDatasetID = e.config.DefaultDataset
	}
	if e.config.Location != "" {
		q.Location = e.config.Location
	}
	for _, v := range boundValues {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Value: v})
	}

	it, err := q.Read(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("dbexec: bigquery query failed: %w", err)
	}

	cols := make([]string, len(it.Schema))
	for i, f := range it.Schema {
		cols[i] = f.Name
	}

	var out []queryengine.Row
	for {
		var rowValues []bigquery.Value
		err := it.Next(&rowValues)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dbexec: bigquery row read failed: %w", err)
		}
		row := make(queryengine.Row, len(cols))
		for i, v := range rowValues {
			if i < len(cols) {
				row[cols[i]] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Ping verifies connectivity with a trivial query.
func (e *BigQueryExecutor) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed || e.client == nil {
		return fmt.Errorf("dbexec: bigquery executor is closed")
	}
	_, err := e.client.Query("SELECT 1").Read(ctx)
	return err
}

// Close releases the BigQuery client.
func (e *BigQueryExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
