package agentdsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/predicate"
)

func TestParseBuildsCatalog(t *testing.T) {
	doc := []byte(`
tasks:
  plan_report:
    methods:
      - name: auto
        when:
          - field: mode
            op: equals
            value: auto
        steps:
          - primitive: InferTablesFromSpec
          - task: join_report
`)
	catalog, err := Parse(doc, map[string]struct{}{"InferTablesFromSpec": {}})
	require.NoError(t, err)

	methods, ok := catalog["plan_report"]
	require.True(t, ok)
	require.Len(t, methods, 1)
	assert.Equal(t, "auto", methods[0].Name)
	require.Len(t, methods[0].Guard, 1)
	assert.Equal(t, predicate.KindEquals, methods[0].Guard[0].Kind)
	require.Len(t, methods[0].Steps, 2)
	assert.Equal(t, "InferTablesFromSpec", methods[0].Steps[0].Primitive)
	assert.Equal(t, "join_report", methods[0].Steps[1].Task)
}

func TestParseRejectsUnknownPrimitive(t *testing.T) {
	doc := []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - primitive: DoesNotExist
`)
	_, err := Parse(doc, map[string]struct{}{})
	require.Error(t, err)
	var agentErr *htnerrors.AgentError
	assert.ErrorAs(t, err, &agentErr)
}

func TestParseRejectsUnknownPredicateOp(t *testing.T) {
	doc := []byte(`
tasks:
  root:
    methods:
      - name: only
        when:
          - field: mode
            op: bogus
            value: auto
        steps:
          - primitive: x
`)
	_, err := Parse(doc, map[string]struct{}{"x": {}})
	require.Error(t, err)
}

func TestParseRejectsStepWithNeitherTaskNorPrimitive(t *testing.T) {
	doc := []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - {}
`)
	_, err := Parse(doc, map[string]struct{}{})
	require.Error(t, err)
}

func TestParseRejectsStepWithBothTaskAndPrimitive(t *testing.T) {
	doc := []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - task: other
            primitive: x
`)
	_, err := Parse(doc, map[string]struct{}{"x": {}})
	require.Error(t, err)
}

func TestParseAllowsForwardTaskReference(t *testing.T) {
	doc := []byte(`
tasks:
  root:
    methods:
      - name: only
        steps:
          - task: not_defined_anywhere_in_this_document
`)
	catalog, err := Parse(doc, map[string]struct{}{})
	require.NoError(t, err)
	assert.Len(t, catalog["root"], 1)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("not: [valid"), map[string]struct{}{})
	require.Error(t, err)
	var agentErr *htnerrors.AgentError
	assert.ErrorAs(t, err, &agentErr)
}
