// Package queryengine is the facade component: it accepts a ReportSpec,
// drives the HTN kernel with a chosen agent, executes the resulting SQL
// through an external executor, and returns rows plus (optionally) the
// planning trace.
package queryengine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/observability"
	"github.com/htnql/htnql/internal/primitive"
	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/internal/schema"
	"github.com/htnql/htnql/internal/sqlbuilder"
	"github.com/htnql/htnql/internal/state"
)

// Row is one result row, passed through from the Executor unchanged.
type Row = map[string]any

// Executor is the external database boundary: given SQL and its bound
// values, it returns rows. The engine never parses or retains a connection
// of its own.
type Executor interface {
	Execute(ctx context.Context, sql string, boundValues []any) ([]Row, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sql string, boundValues []any) ([]Row, error)

func (f ExecutorFunc) Execute(ctx context.Context, sql string, boundValues []any) ([]Row, error) {
	return f(ctx, sql, boundValues)
}

// Engine is the query engine facade.
type Engine struct {
	Schema   *schema.Graph
	Agents   map[string]htn.Catalog
	Registry *htn.Registry
	Executor Executor
	Logger   observability.QueryLogger

	// NextQueryID generates the QueryID used in log entries. Defaults to a
	// random UUID per call if unset.
	NextQueryID func() string
}

// New builds an Engine. dialect is the SQL dialect used by the builder
// primitives; nil selects sqlbuilder.ANSI.
func New(g *schema.Graph, agents map[string]htn.Catalog, dialect sqlbuilder.Dialect, exec Executor, logger observability.QueryLogger) *Engine {
	registry := htn.NewRegistry(primitive.Build(g, dialect))
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Engine{Schema: g, Agents: agents, Registry: registry, Executor: exec, Logger: logger}
}

func (e *Engine) nextQueryID() string {
	if e.NextQueryID != nil {
		return e.NextQueryID()
	}
	return uuid.New().String()
}

// RunReport plans and executes spec under the named agent, returning rows.
func (e *Engine) RunReport(ctx context.Context, spec reportspec.Spec, agent string) ([]Row, error) {
	rows, _, err := e.run(ctx, spec, agent)
	return rows, err
}

// RunReportWithTrace is RunReport plus the full kernel trace.
func (e *Engine) RunReportWithTrace(ctx context.Context, spec reportspec.Spec, agent string) ([]Row, []htn.TraceStep, error) {
	return e.run(ctx, spec, agent)
}

func (e *Engine) run(ctx context.Context, spec reportspec.Spec, agent string) ([]Row, []htn.TraceStep, error) {
	start := time.Now()
	queryID := e.nextQueryID()

	catalog, ok := e.Agents[agent]
	if !ok {
		err := htnerrors.NewAgentError(agent, fmt.Sprintf("no agent registered under name %q", agent))
		e.log(ctx, queryID, agent, "", nil, start, err)
		return nil, nil, err
	}

	planner := htn.NewPlanner(catalog, e.Registry)
	final, trace, err := planner.Plan(ctx, htn.Task{Name: "AnswerReport"}, state.New(spec))
	if err != nil {
		e.log(ctx, queryID, agent, string(final.Mode), final.InferredTables, start, err)
		return nil, trace, err
	}

	rows, err := e.Executor.Execute(ctx, final.SQL, final.BoundValues)
	if err != nil {
		wrapped := htnerrors.NewExecutionError(err)
		e.log(ctx, queryID, agent, string(final.Mode), final.InferredTables, start, wrapped)
		return nil, trace, wrapped
	}

	e.log(ctx, queryID, agent, string(final.Mode), final.InferredTables, start, nil)
	return rows, trace, nil
}

func (e *Engine) log(ctx context.Context, queryID, agent, mode string, tables []string, start time.Time, runErr error) {
	entry := observability.QueryLogEntry{
		QueryID:       queryID,
		Agent:         agent,
		Mode:          mode,
		Tables:        tables,
		ExecutionTime: time.Since(start),
		Outcome:       "success",
	}
	if runErr != nil {
		entry.Outcome = "error"
		entry.Error = runErr.Error()
		if _, ok := runErr.(*htnerrors.CancelledError); ok {
			entry.Outcome = "cancelled"
		}
	}
	// Logging failures are never fatal to the caller's report run.
	_ = e.Logger.LogQuery(ctx, entry)
}
