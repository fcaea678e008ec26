// Package observability provides structured logging for the query engine
// facade: every RunReport/RunReportWithTrace call emits one QueryLogEntry,
// success or failure, so planning and execution outcomes are never silent.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// QueryLogEntry records one report run. There is no user/role/authorization
// concept in this domain, so this intentionally carries fewer fields than a
// multi-tenant gateway's audit log would.
type QueryLogEntry struct {
	// QueryID is a caller-supplied or generated identifier for this run.
	QueryID string

	// Agent is the name of the method catalog that drove planning.
	Agent string

	// Mode is the execution mode chosen: "raw", "base", or "auto".
	Mode string

	// Tables are the final plan's inferred tables. Shape Suggestion
	// bridges that appear only in the join forest are not listed.
	Tables []string

	// ExecutionTime is how long the full run_report call took, planning
	// plus execution.
	ExecutionTime time.Duration

	// Outcome is "success", "error", or "cancelled".
	Outcome string

	// Error contains the error message if the run failed. Empty on success.
	Error string
}

// Validate checks that required fields are present.
func (e *QueryLogEntry) Validate() error {
	if e.QueryID == "" {
		return fmt.Errorf("observability: query_id is required")
	}
	if e.ExecutionTime < 0 {
		return fmt.Errorf("observability: execution_time cannot be negative")
	}
	return nil
}

// QueryLogger is the interface the query engine facade logs through.
type QueryLogger interface {
	LogQuery(ctx context.Context, entry QueryLogEntry) error
	GetAuditSummary() *AuditSummary
}

// AuditSummary is aggregated, non-identifying usage statistics.
type AuditSummary struct {
	SuccessCount     int             `json:"success_count"`
	ErrorCount       int             `json:"error_count"`
	TopErrors        []ErrorStat     `json:"top_errors"`
	TopQueriedTables []TableQueryStat `json:"top_queried_tables"`
}

// ErrorStat counts how often a given error message occurred.
type ErrorStat struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

// TableQueryStat counts how often a table was referenced across runs.
type TableQueryStat struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

type jsonLogOutput struct {
	Timestamp       string   `json:"timestamp"`
	Level           string   `json:"level"`
	QueryID         string   `json:"query_id"`
	Agent           string   `json:"agent,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	Tables          []string `json:"tables"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Outcome         string   `json:"outcome,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// JSONLogger implements QueryLogger, writing one JSON line per entry.
type JSONLogger struct {
	writer  io.Writer
	entries []QueryLogEntry
	mu      sync.RWMutex
}

// NewJSONLogger creates a logger writing to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{entries: make([]QueryLogEntry, 0), writer: w}
}

func toJSONOutput(entry QueryLogEntry) jsonLogOutput {
	level := "info"
	if entry.Error != "" {
		level = "error"
	}
	out := jsonLogOutput{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Level:           level,
		QueryID:         entry.QueryID,
		Agent:           entry.Agent,
		Mode:            entry.Mode,
		Tables:          entry.Tables,
		ExecutionTimeMs: entry.ExecutionTime.Milliseconds(),
		Outcome:         entry.Outcome,
		Error:           entry.Error,
	}
	if out.Tables == nil {
		out.Tables = []string{}
	}
	return out
}

// LogQuery writes entry as a JSON line and retains it for the audit summary.
func (l *JSONLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(toJSONOutput(entry))
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return nil
}

// GetAuditSummary aggregates the in-memory entry history.
func (l *JSONLogger) GetAuditSummary() *AuditSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return summarize(l.entries)
}

func summarize(entries []QueryLogEntry) *AuditSummary {
	summary := &AuditSummary{TopErrors: []ErrorStat{}, TopQueriedTables: []TableQueryStat{}}

	errCounts := make(map[string]int)
	tableCounts := make(map[string]int)

	for _, e := range entries {
		if e.Error == "" {
			summary.SuccessCount++
		} else {
			summary.ErrorCount++
			errCounts[e.Error]++
		}
		for _, t := range e.Tables {
			tableCounts[t]++
		}
	}

	for msg, count := range errCounts {
		summary.TopErrors = append(summary.TopErrors, ErrorStat{Error: msg, Count: count})
	}
	sort.Slice(summary.TopErrors, func(i, j int) bool { return summary.TopErrors[i].Count > summary.TopErrors[j].Count })
	if len(summary.TopErrors) > 5 {
		summary.TopErrors = summary.TopErrors[:5]
	}

	for table, count := range tableCounts {
		summary.TopQueriedTables = append(summary.TopQueriedTables, TableQueryStat{Table: table, Count: count})
	}
	sort.Slice(summary.TopQueriedTables, func(i, j int) bool {
		return summary.TopQueriedTables[i].Count > summary.TopQueriedTables[j].Count
	})
	if len(summary.TopQueriedTables) > 5 {
		summary.TopQueriedTables = summary.TopQueriedTables[:5]
	}

	return summary
}

// NoopLogger discards every entry. Useful when no Logger is configured.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (l *NoopLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error { return nil }

func (l *NoopLogger) GetAuditSummary() *AuditSummary {
	return &AuditSummary{TopErrors: []ErrorStat{}, TopQueriedTables: []TableQueryStat{}}
}

// PersistentLogger persists entries to a report_runs table in PostgreSQL,
// separate from whichever Executor runs the report SQL itself.
type PersistentLogger struct {
	db     *sql.DB
	writer io.Writer
	mu     sync.RWMutex
}

// NewPersistentLogger creates a logger backed by db.
func NewPersistentLogger(db *sql.DB) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db}, nil
}

// NewPersistentLoggerWithWriter also mirrors every entry to w, for local debugging.
func NewPersistentLoggerWithWriter(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db, writer: w}, nil
}

func (l *PersistentLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	tablesJSON, err := json.Marshal(entry.Tables)
	if err != nil {
		tablesJSON = []byte("[]")
	}

	const query = `
		INSERT INTO report_runs (
			query_id, agent, mode, tables_json, execution_time_ms, outcome, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := l.db.ExecContext(ctx, query,
		entry.QueryID, entry.Agent, entry.Mode, tablesJSON,
		entry.ExecutionTime.Milliseconds(), entry.Outcome, nullableString(entry.Error),
	); err != nil {
		return fmt.Errorf("observability: failed to persist query log: %w", err)
	}

	if l.writer != nil {
		if data, err := json.Marshal(toJSONOutput(entry)); err == nil {
			l.mu.Lock()
			l.writer.Write(append(data, '\n'))
			l.mu.Unlock()
		}
	}
	return nil
}

// GetAuditSummary aggregates statistics from report_runs.
func (l *PersistentLogger) GetAuditSummary() *AuditSummary {
	summary := &AuditSummary{TopErrors: []ErrorStat{}, TopQueriedTables: []TableQueryStat{}}
	ctx := context.Background()

	l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_runs WHERE error_message IS NULL OR error_message = ''`).
		Scan(&summary.SuccessCount)
	l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_runs WHERE error_message IS NOT NULL AND error_message != ''`).
		Scan(&summary.ErrorCount)

	if rows, err := l.db.QueryContext(ctx, `
		SELECT error_message, COUNT(*) AS cnt FROM report_runs
		WHERE error_message IS NOT NULL AND error_message != ''
		GROUP BY error_message ORDER BY cnt DESC LIMIT 5
	`); err == nil {
		defer rows.Close()
		for rows.Next() {
			var stat ErrorStat
			if rows.Scan(&stat.Error, &stat.Count) == nil {
				summary.TopErrors = append(summary.TopErrors, stat)
			}
		}
	}

	if rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, COUNT(*) AS cnt
		FROM report_runs, jsonb_array_elements_text(tables_json) AS table_name
		GROUP BY table_name ORDER BY cnt DESC LIMIT 5
	`); err == nil {
		defer rows.Close()
		for rows.Next() {
			var stat TableQueryStat
			if rows.Scan(&stat.Table, &stat.Count) == nil {
				summary.TopQueriedTables = append(summary.TopQueriedTables, stat)
			}
		}
	}

	return summary
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
