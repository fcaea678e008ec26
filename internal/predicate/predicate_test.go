package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldGetter(values map[string]any) func(string) (any, bool) {
	return func(name string) (any, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestParse(t *testing.T) {
	for _, k := range All() {
		got, err := Parse(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := Parse("bogus")
	assert.Error(t, err)
}

func TestPredicateEvaluate(t *testing.T) {
	cases := []struct {
		name   string
		pred   Predicate
		fields map[string]any
		want   bool
	}{
		{"equals true", Predicate{Field: "mode", Kind: KindEquals, Value: "auto"}, map[string]any{"mode": "auto"}, true},
		{"equals false", Predicate{Field: "mode", Kind: KindEquals, Value: "auto"}, map[string]any{"mode": "raw"}, false},
		{"equals absent", Predicate{Field: "mode", Kind: KindEquals, Value: "auto"}, map[string]any{}, false},
		{"not_equals absent is true", Predicate{Field: "mode", Kind: KindNotEquals, Value: "auto"}, map[string]any{}, true},
		{"not_equals differs", Predicate{Field: "mode", Kind: KindNotEquals, Value: "auto"}, map[string]any{"mode": "raw"}, true},
		{"is_set present", Predicate{Field: "sql", Kind: KindIsSet}, map[string]any{"sql": "SELECT 1"}, true},
		{"is_set absent", Predicate{Field: "sql", Kind: KindIsSet}, map[string]any{}, false},
		{"is_unset absent", Predicate{Field: "sql", Kind: KindIsUnset}, map[string]any{}, true},
		{"size_lte within", Predicate{Field: "inferred_tables", Kind: KindSizeLTE, Value: 3}, map[string]any{"inferred_tables": []string{"a", "b"}}, true},
		{"size_lte exceeds", Predicate{Field: "inferred_tables", Kind: KindSizeLTE, Value: 1}, map[string]any{"inferred_tables": []string{"a", "b"}}, false},
		{"size_gte met", Predicate{Field: "inferred_tables", Kind: KindSizeGTE, Value: 2}, map[string]any{"inferred_tables": []string{"a", "b"}}, true},
		{"contains present", Predicate{Field: "inferred_tables", Kind: KindContains, Value: "b"}, map[string]any{"inferred_tables": []string{"a", "b"}}, true},
		{"contains absent", Predicate{Field: "inferred_tables", Kind: KindContains, Value: "z"}, map[string]any{"inferred_tables": []string{"a", "b"}}, false},
		{"in membership", Predicate{Field: "complexity", Kind: KindIn, Value: []string{"simple", "standard"}}, map[string]any{"complexity": "simple"}, true},
		{"in non-membership", Predicate{Field: "complexity", Kind: KindIn, Value: []string{"simple", "standard"}}, map[string]any{"complexity": "complex"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, err := c.pred.evaluate(fieldGetter(c.fields))
			require.NoError(t, err)
			assert.Equal(t, c.want, ok)
		})
	}
}

func TestGuardIsConjunction(t *testing.T) {
	g := Guard{
		{Field: "mode", Kind: KindEquals, Value: "auto"},
		{Field: "complexity", Kind: KindEquals, Value: "simple"},
	}

	ok, err := g.Evaluate(fieldGetter(map[string]any{"mode": "auto", "complexity": "simple"}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Evaluate(fieldGetter(map[string]any{"mode": "auto", "complexity": "complex"}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyGuardAlwaysPasses(t *testing.T) {
	var g Guard
	ok, err := g.Evaluate(fieldGetter(nil))
	require.NoError(t, err)
	assert.True(t, ok)
}
