package htn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/predicate"
	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/internal/state"
)

func setMode(ctx context.Context, s state.State, _ Task) (state.State, error) {
	return s.WithMode(state.ModeAuto), nil
}

func setComplexity(ctx context.Context, s state.State, _ Task) (state.State, error) {
	return s.WithComplexity(state.ComplexityTrivial), nil
}

func failingPrimitive(ctx context.Context, s state.State, _ Task) (state.State, error) {
	return s, htnerrors.NewPrimitiveError("boom", "always fails")
}

func testRegistry() *Registry {
	return NewRegistry(map[string]PrimitiveFunc{
		"set_mode":       setMode,
		"set_complexity": setComplexity,
		"fail":           failingPrimitive,
	})
}

func TestPlanDecomposesInOrder(t *testing.T) {
	catalog := Catalog{
		"root": {
			{
				Name: "only",
				Steps: []Step{
					{Primitive: "set_mode"},
					{Primitive: "set_complexity"},
				},
			},
		},
	}
	p := NewPlanner(catalog, testRegistry())

	final, trace, err := p.Plan(context.Background(), Task{Name: "root"}, state.New(reportspec.Spec{}))
	require.NoError(t, err)
	assert.Equal(t, state.ModeAuto, final.Mode)
	assert.Equal(t, state.ComplexityTrivial, final.Complexity)

	// one trace entry for the method, then one per primitive, in order
	require.Len(t, trace, 3)
	assert.Equal(t, "root", trace[0].TaskName)
	assert.Equal(t, "only", trace[0].MethodName)
	assert.Equal(t, "set_mode", trace[1].TaskName)
	assert.Equal(t, "set_complexity", trace[2].TaskName)
}

func TestPlanSelectsFirstPassingGuard(t *testing.T) {
	catalog := Catalog{
		"root": {
			{
				Name:  "raw",
				Guard: predicate.Guard{{Field: "mode", Kind: predicate.KindEquals, Value: "raw"}},
				Steps: []Step{{Primitive: "fail"}},
			},
			{
				Name:  "auto",
				Guard: predicate.Guard{{Field: "mode", Kind: predicate.KindEquals, Value: "auto"}},
				Steps: []Step{{Primitive: "set_complexity"}},
			},
		},
	}
	p := NewPlanner(catalog, testRegistry())

	initial := state.New(reportspec.Spec{}).WithMode(state.ModeAuto)
	final, trace, err := p.Plan(context.Background(), Task{Name: "root"}, initial)
	require.NoError(t, err)
	assert.Equal(t, state.ComplexityTrivial, final.Complexity)
	assert.Equal(t, "auto", trace[0].MethodName)
}

func TestPlanNoApplicableMethodFails(t *testing.T) {
	catalog := Catalog{
		"root": {
			{
				Name:  "never",
				Guard: predicate.Guard{{Field: "mode", Kind: predicate.KindEquals, Value: "raw"}},
			},
		},
	}
	p := NewPlanner(catalog, testRegistry())

	_, _, err := p.Plan(context.Background(), Task{Name: "root"}, state.New(reportspec.Spec{}).WithMode(state.ModeAuto))
	require.Error(t, err)
	var plannerErr *htnerrors.PlannerError
	require.ErrorAs(t, err, &plannerErr)
	assert.Equal(t, htnerrors.PlannerNoApplicableMethod, plannerErr.Kind)
}

func TestPlanUnknownTaskFails(t *testing.T) {
	p := NewPlanner(Catalog{}, testRegistry())
	_, _, err := p.Plan(context.Background(), Task{Name: "nowhere"}, state.New(reportspec.Spec{}))
	require.Error(t, err)
	var plannerErr *htnerrors.PlannerError
	assert.ErrorAs(t, err, &plannerErr)
}

func TestPlanPrimitiveErrorAbortsWithoutRollback(t *testing.T) {
	catalog := Catalog{
		"root": {
			{Name: "only", Steps: []Step{{Primitive: "set_mode"}, {Primitive: "fail"}}},
		},
	}
	p := NewPlanner(catalog, testRegistry())

	final, trace, err := p.Plan(context.Background(), Task{Name: "root"}, state.New(reportspec.Spec{}))
	require.Error(t, err)
	var primErr *htnerrors.PrimitiveError
	assert.ErrorAs(t, err, &primErr)
	// set_mode already ran and its effect is retained on the returned state
	assert.Equal(t, state.ModeAuto, final.Mode)
	assert.Len(t, trace, 2, "method selection plus the one primitive that ran before failing")
}

func TestPlanRespectsCancellation(t *testing.T) {
	catalog := Catalog{
		"root": {{Name: "only", Steps: []Step{{Primitive: "set_mode"}}}},
	}
	p := NewPlanner(catalog, testRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Plan(ctx, Task{Name: "root"}, state.New(reportspec.Spec{}))
	require.Error(t, err)
	var cancelled *htnerrors.CancelledError
	assert.True(t, errors.As(err, &cancelled))
}

func TestRegistryLookupMissing(t *testing.T) {
	r := NewRegistry(nil)
	_, ok := r.Lookup("nope")
	assert.False(t, ok)
}
