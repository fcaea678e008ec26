// Package primitive implements the ten named primitive operations the HTN
// kernel applies to planning state: each is a pure (state, task) -> state
// transformation that may also consult the schema graph.
package primitive

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/internal/schema"
	"github.com/htnql/htnql/internal/shapesuggest"
	"github.com/htnql/htnql/internal/sqlbuilder"
	"github.com/htnql/htnql/internal/state"
)

const maxInValues = 32

var qualifiedRefRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\b`)

// Build returns the built-in primitive table keyed by "Name" or
// "Name.Variant", ready to pass to htn.NewRegistry. g is the schema graph
// consulted by the join-forest primitives; d is the SQL dialect used by the
// builder primitives (nil selects sqlbuilder.ANSI).
func Build(g *schema.Graph, d sqlbuilder.Dialect) map[string]htn.PrimitiveFunc {
	return map[string]htn.PrimitiveFunc{
		"ChooseExecutionMode":       chooseExecutionMode,
		"ValidateSpecStructurally":  validateSpecStructurally,
		"InferTablesFromSpec":       inferTablesFromSpec,
		"AnalyzeComplexity":         analyzeComplexity,
		"FindJoinForest.StrictFK":   findJoinForestStrictFK(g),
		"FindJoinForest.Heuristic":  findJoinForestHeuristic(g),
		"BuildSqlFromPlan":          buildSqlFromPlan(d),
		"ExecutePlannedSql":         executePlannedSql,
		"PassThroughRawSql":         passThroughRawSql,
		"WrapBaseSql":               wrapBaseSql(d),
	}
}

// Names returns the set of primitive names Build registers, independent of
// any particular schema graph or dialect. agentdsl.Parse uses this to
// reject agent documents that reference an unknown primitive.
func Names() map[string]struct{} {
	names := Build(nil, nil)
	out := make(map[string]struct{}, len(names))
	for name := range names {
		out[name] = struct{}{}
	}
	return out
}

func chooseExecutionMode(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
	if err := s.Spec.ValidateModeHints(); err != nil {
		return s, htnerrors.NewSpecError("raw_sql/base_sql", err.Error(), "set at most one of raw_sql or base_sql")
	}
	switch {
	case s.Spec.RawSQL != "":
		return s.WithMode(state.ModeRaw), nil
	case s.Spec.BaseSQL != "":
		return s.WithMode(state.ModeBase), nil
	default:
		return s.WithMode(state.ModeAuto), nil
	}
}

func validateSpecStructurally(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
	seenAlias := map[string]struct{}{}
	for _, m := range s.Spec.Metrics {
		if _, ok := seenAlias[m.Alias]; ok {
			return s, htnerrors.NewSpecError("metrics", fmt.Sprintf("duplicate metric alias %q", m.Alias), "give each metric a unique alias")
		}
		seenAlias[m.Alias] = struct{}{}
	}

	for _, f := range s.Spec.Filters {
		if !f.Op.IsValid() {
			return s, htnerrors.NewSpecError("filters", fmt.Sprintf("unknown filter operator %q", f.Op), fmt.Sprintf("use one of %v", reportspec.AllFilterOps()))
		}
		if f.Op == reportspec.OpIn && len(f.Values()) == 0 {
			return s, htnerrors.NewSpecError("filters", "IN filter has an empty value list", "supply at least one value for an IN filter")
		}
	}

	if s.Mode == state.ModeAuto {
		for _, col := range s.Spec.GroupBy {
			if !strings.Contains(col, ".") {
				return s, htnerrors.NewSpecError("group_by", fmt.Sprintf("%q is not a qualified table.column reference", col), "qualify group_by columns as table.column in auto mode")
			}
		}
	}

	s = s.WithDiagnostic("structural validation passed")
	return s, nil
}

func inferTablesFromSpec(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
	tableSet := map[string]struct{}{}
	addRefs := func(text string) {
		for _, m := range qualifiedRefRe.FindAllStringSubmatch(text, -1) {
			tableSet[m[1]] = struct{}{}
		}
	}

	for _, m := range s.Spec.Metrics {
		addRefs(m.Expression)
	}
	for _, col := range s.Spec.GroupBy {
		if !strings.Contains(col, ".") {
			if s.Mode == state.ModeAuto {
				return s, htnerrors.NewSpecError("group_by", fmt.Sprintf("%q is not a qualified table.column reference", col), "qualify group_by columns as table.column in auto mode")
			}
			continue
		}
		addRefs(col)
	}
	for _, f := range s.Spec.Filters {
		if !strings.Contains(f.Column, ".") {
			if s.Mode == state.ModeAuto {
				return s, htnerrors.NewSpecError("filters", fmt.Sprintf("%q is not a qualified table.column reference", f.Column), "qualify filter columns as table.column in auto mode")
			}
			continue
		}
		addRefs(f.Column)
	}

	tables := make([]string, 0, len(tableSet))
	for t := range tableSet {
		tables = append(tables, t)
	}
	return s.WithInferredTables(tables), nil
}

func analyzeComplexity(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
	n := len(s.InferredTables)

	if n <= 1 {
		return s.WithComplexity(state.ComplexityTrivial), nil
	}

	for _, f := range s.Spec.Filters {
		if f.Op == reportspec.OpLike {
			return s.WithComplexity(state.ComplexityComplex), nil
		}
		if f.Op == reportspec.OpIn && len(f.Values()) > maxInValues {
			return s.WithComplexity(state.ComplexityComplex), nil
		}
	}

	if n <= 3 {
		return s.WithComplexity(state.ComplexitySimple), nil
	}
	return s.WithComplexity(state.ComplexityStandard), nil
}

// connectForest fans out from root to every other table in targets,
// following the shortest FK path to each, and unions the traversed edges
// into a deduplicated, insertion-ordered join forest.
func connectForest(g *schema.Graph, root string, targets []string) ([]state.JoinEdge, error) {
	var forest []state.JoinEdge
	seen := map[string]struct{}{}

	for _, t := range targets {
		if t == root {
			continue
		}
		edges, err := g.ShortestPathEdges(root, t)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			key := e.ChildTable + "\x00" + e.ChildColumn + "\x00" + e.ParentTable + "\x00" + e.ParentColumn
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			forest = append(forest, state.JoinEdge{
				LeftTable: e.ChildTable, LeftCol: e.ChildColumn,
				RightTable: e.ParentTable, RightCol: e.ParentColumn,
			})
		}
	}
	return forest, nil
}

func rootOf(tables []string) string {
	root := tables[0]
	for _, t := range tables {
		if t < root {
			root = t
		}
	}
	return root
}

func findJoinForestStrictFK(g *schema.Graph) htn.PrimitiveFunc {
	return func(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
		if len(s.InferredTables) <= 1 {
			return s.WithJoinForest(nil), nil
		}
		// Strict FK mode requires the whole inferred table set to lie in one
		// component; report which table fell into a separate group rather
		// than bailing on whichever target connectForest happens to try first.
		if components, err := g.ConnectedComponents(s.InferredTables); err == nil && len(components) > 1 {
			return s, htnerrors.NewJoinDisconnected(components[1][0])
		}
		root := rootOf(s.InferredTables)
		forest, err := connectForest(g, root, s.InferredTables)
		if err != nil {
			return s, err
		}
		return s.WithJoinForest(forest), nil
	}
}

func findJoinForestHeuristic(g *schema.Graph) htn.PrimitiveFunc {
	return func(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
		if len(s.InferredTables) <= 1 {
			return s.WithJoinForest(nil), nil
		}
		root := rootOf(s.InferredTables)
		forest, err := connectForest(g, root, s.InferredTables)
		if err == nil {
			return s.WithJoinForest(forest), nil
		}

		bridges := shapesuggest.Suggest(g, s.InferredTables)
		extended := make([]string, len(s.InferredTables), len(s.InferredTables)+len(bridges))
		copy(extended, s.InferredTables)
		present := map[string]struct{}{}
		for _, t := range s.InferredTables {
			present[t] = struct{}{}
		}
		for _, b := range bridges {
			if _, ok := present[b]; !ok {
				extended = append(extended, b)
				present[b] = struct{}{}
			}
		}
		sort.Strings(extended)

		forest, err2 := connectForest(g, root, extended)
		if err2 != nil {
			return s, err
		}
		return s.WithJoinForest(forest), nil
	}
}

func buildSqlFromPlan(d sqlbuilder.Dialect) htn.PrimitiveFunc {
	return func(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
		sql, bound, err := sqlbuilder.Build(d, s)
		if err != nil {
			return s, htnerrors.NewPrimitiveError("BuildSqlFromPlan", err.Error())
		}
		return s.WithSQL(sql, bound), nil
	}
}

func executePlannedSql(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
	return s.WithExtra("ready", true), nil
}

func passThroughRawSql(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
	return s.WithSQL(s.Spec.RawSQL, nil), nil
}

func wrapBaseSql(d sqlbuilder.Dialect) htn.PrimitiveFunc {
	return func(_ context.Context, s state.State, _ htn.Task) (state.State, error) {
		sql, bound, err := sqlbuilder.WrapBase(d, s)
		if err != nil {
			return s, htnerrors.NewPrimitiveError("WrapBaseSql", err.Error())
		}
		return s.WithSQL(sql, bound), nil
	}
}
