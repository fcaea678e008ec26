package queryengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htnql/htnql/internal/agents"
	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/observability"
	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/internal/schema"
)

func testSchema(t *testing.T) *schema.Graph {
	t.Helper()
	g, err := schema.New(
		[]schema.Table{
			{Name: "customers", Columns: []string{"id", "region"}},
			{Name: "orders", Columns: []string{"id", "customer_id", "amount_cents"}},
		},
		[]schema.FKEdge{
			{ChildTable: "orders", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
		},
	)
	require.NoError(t, err)
	return g
}

type capturingExecutor struct {
	sql    string
	bound  []any
	result []Row
	err    error
}

func (c *capturingExecutor) Execute(ctx context.Context, sql string, boundValues []any) ([]Row, error) {
	c.sql = sql
	c.bound = boundValues
	return c.result, c.err
}

func TestRunReportExecutesBuiltSQL(t *testing.T) {
	exec := &capturingExecutor{result: []Row{{"total": 3}}}
	logger := observability.NewJSONLogger(nopWriter{})
	engine := New(testSchema(t), agents.Builtins(), nil, exec, logger)
	engine.NextQueryID = func() string { return "fixed-id" }

	spec := reportspec.Spec{
		Metrics: []reportspec.Metric{{Expression: "SUM(orders.amount_cents)", Alias: "total"}},
		GroupBy: []string{"customers.region"},
	}
	rows, err := engine.RunReport(context.Background(), spec, agents.Default)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"total": 3}}, rows)
	assert.Contains(t, exec.sql, "INNER JOIN")
	assert.Empty(t, exec.bound)
}

func TestRunReportWithTraceReturnsKernelTrace(t *testing.T) {
	exec := &capturingExecutor{}
	engine := New(testSchema(t), agents.Builtins(), nil, exec, nil)

	spec := reportspec.Spec{RawSQL: "SELECT 1"}
	_, trace, err := engine.RunReportWithTrace(context.Background(), spec, agents.Default)
	require.NoError(t, err)
	assert.NotEmpty(t, trace)
	assert.Equal(t, "SELECT 1", exec.sql)
}

func TestRunReportUnknownAgentFails(t *testing.T) {
	exec := &capturingExecutor{}
	engine := New(testSchema(t), agents.Builtins(), nil, exec, nil)

	_, err := engine.RunReport(context.Background(), reportspec.Spec{RawSQL: "SELECT 1"}, "nonexistent")
	require.Error(t, err)
	var agentErr *htnerrors.AgentError
	assert.ErrorAs(t, err, &agentErr)
}

func TestRunReportWrapsExecutorFailure(t *testing.T) {
	exec := &capturingExecutor{err: assertableErr{"connection refused"}}
	engine := New(testSchema(t), agents.Builtins(), nil, exec, nil)

	_, err := engine.RunReport(context.Background(), reportspec.Spec{RawSQL: "SELECT 1"}, agents.Default)
	require.Error(t, err)
	var execErr *htnerrors.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestNextQueryIDDefaultsToRandomUUID(t *testing.T) {
	engine := New(testSchema(t), agents.Builtins(), nil, &capturingExecutor{}, nil)
	a := engine.nextQueryID()
	b := engine.nextQueryID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

type assertableErr struct{ msg string }

func (e assertableErr) Error() string { return e.msg }

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
