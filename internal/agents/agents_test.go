package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/primitive"
	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/internal/schema"
	"github.com/htnql/htnql/internal/state"
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

func TestBuiltinsReturnsBothAgents(t *testing.T) {
	b := Builtins()
	assert.Contains(t, b, Default)
	assert.Contains(t, b, Heuristic)
}

func TestDefaultCatalogRawMode(t *testing.T) {
	g := testSchema(t)
	registry := htn.NewRegistry(primitive.Build(g, nil))
	planner := htn.NewPlanner(DefaultCatalog(), registry)

	spec := reportspec.Spec{RawSQL: "SELECT 1"}
	final, _, err := planner.Plan(context.Background(), htn.Task{Name: "AnswerReport"}, state.New(spec))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", final.SQL)
}

func TestDefaultCatalogBaseMode(t *testing.T) {
	g := testSchema(t)
	registry := htn.NewRegistry(primitive.Build(g, nil))
	planner := htn.NewPlanner(DefaultCatalog(), registry)

	spec := reportspec.Spec{
		BaseSQL: "SELECT * FROM orders",
		Metrics: []reportspec.Metric{{Expression: "COUNT(*)", Alias: "total"}},
	}
	final, _, err := planner.Plan(context.Background(), htn.Task{Name: "AnswerReport"}, state.New(spec))
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS total FROM (SELECT * FROM orders) __base__`, final.SQL)
}

func TestDefaultCatalogAutoModeSingleTable(t *testing.T) {
	g := testSchema(t)
	registry := htn.NewRegistry(primitive.Build(g, nil))
	planner := htn.NewPlanner(DefaultCatalog(), registry)

	spec := reportspec.Spec{
		Metrics: []reportspec.Metric{{Expression: "COUNT(*)", Alias: "total"}},
		GroupBy: []string{"orders.amount_cents"},
	}
	final, _, err := planner.Plan(context.Background(), htn.Task{Name: "AnswerReport"}, state.New(spec))
	require.NoError(t, err)
	assert.Equal(t, state.ComplexityTrivial, final.Complexity)
	assert.Contains(t, final.SQL, `FROM "orders"`)
}

func TestDefaultCatalogAutoModeJoinsOnFK(t *testing.T) {
	g := testSchema(t)
	registry := htn.NewRegistry(primitive.Build(g, nil))
	planner := htn.NewPlanner(DefaultCatalog(), registry)

	spec := reportspec.Spec{
		Metrics: []reportspec.Metric{{Expression: "SUM(orders.amount_cents)", Alias: "total"}},
		GroupBy: []string{"customers.region"},
	}
	final, _, err := planner.Plan(context.Background(), htn.Task{Name: "AnswerReport"}, state.New(spec))
	require.NoError(t, err)
	assert.Contains(t, final.SQL, "INNER JOIN")
	v, ok := final.Get("ready")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestHeuristicCatalogNeverUsesStrictFK(t *testing.T) {
	g := testSchema(t)
	registry := htn.NewRegistry(primitive.Build(g, nil))
	planner := htn.NewPlanner(HeuristicCatalog(), registry)

	spec := reportspec.Spec{
		Metrics: []reportspec.Metric{{Expression: "SUM(orders.amount_cents)", Alias: "total"}},
		GroupBy: []string{"customers.region"},
	}
	final, trace, err := planner.Plan(context.Background(), htn.Task{Name: "AnswerReport"}, state.New(spec))
	require.NoError(t, err)
	assert.Contains(t, final.SQL, "INNER JOIN")

	for _, step := range trace {
		assert.NotEqual(t, "Strict", step.MethodName)
	}
}
