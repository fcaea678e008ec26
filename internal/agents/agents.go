// Package agents ships the built-in method catalogs: "default", covering
// the root AnswerReport decomposition described in the design, and
// "heuristic", a variant whose FindJoinForest always takes the Heuristic
// method, which falls back to Shape Suggestion when the FK walk leaves a
// table disconnected.
package agents

import (
	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/predicate"
)

const (
	Default   = "default"
	Heuristic = "heuristic"
)

func planExecutionMethods() []htn.Method {
	return []htn.Method{
		{
			Name:  "RawPath",
			Guard: predicate.Guard{{Field: "mode", Kind: predicate.KindEquals, Value: "raw"}},
			Steps: []htn.Step{{Primitive: "PassThroughRawSql"}},
		},
		{
			Name:  "BasePath",
			Guard: predicate.Guard{{Field: "mode", Kind: predicate.KindEquals, Value: "base"}},
			Steps: []htn.Step{{Primitive: "ValidateSpecStructurally"}, {Primitive: "WrapBaseSql"}},
		},
		{
			Name:  "AutoPath",
			Guard: nil,
			Steps: []htn.Step{{Task: "PlanAutoSql"}},
		},
	}
}

func planAutoSqlMethod() []htn.Method {
	return []htn.Method{
		{
			Name:  "Auto",
			Guard: nil,
			Steps: []htn.Step{
				{Primitive: "ValidateSpecStructurally"},
				{Primitive: "InferTablesFromSpec"},
				{Primitive: "AnalyzeComplexity"},
				{Task: "FindJoinForest"},
				{Primitive: "BuildSqlFromPlan"},
			},
		},
	}
}

func answerReportMethod() []htn.Method {
	return []htn.Method{
		{
			Name:  "Answer",
			Guard: nil,
			Steps: []htn.Step{
				{Primitive: "ChooseExecutionMode"},
				{Task: "PlanExecution"},
				{Primitive: "ExecutePlannedSql"},
			},
		},
	}
}

// DefaultCatalog is the built-in "default" agent: strict FK joins unless
// the spec's complexity demands the heuristic variant.
func DefaultCatalog() htn.Catalog {
	return htn.Catalog{
		"AnswerReport":  answerReportMethod(),
		"PlanExecution": planExecutionMethods(),
		"PlanAutoSql":   planAutoSqlMethod(),
		"FindJoinForest": []htn.Method{
			{
				Name: "Strict",
				Guard: predicate.Guard{{
					Field: "complexity", Kind: predicate.KindIn,
					Value: []string{"trivial", "simple", "standard"},
				}},
				Steps: []htn.Step{{Primitive: "FindJoinForest.StrictFK"}},
			},
			{
				Name:  "Heuristic",
				Guard: predicate.Guard{{Field: "complexity", Kind: predicate.KindEquals, Value: "complex"}},
				Steps: []htn.Step{{Primitive: "FindJoinForest.Heuristic"}},
			},
		},
	}
}

// HeuristicCatalog is identical to DefaultCatalog except FindJoinForest
// always selects the Heuristic method, so a disconnected join never
// surfaces JoinError(Disconnected) without first trying Shape Suggestion.
func HeuristicCatalog() htn.Catalog {
	return htn.Catalog{
		"AnswerReport":  answerReportMethod(),
		"PlanExecution": planExecutionMethods(),
		"PlanAutoSql":   planAutoSqlMethod(),
		"FindJoinForest": []htn.Method{
			{
				Name:  "Heuristic",
				Guard: nil,
				Steps: []htn.Step{{Primitive: "FindJoinForest.Heuristic"}},
			},
		},
	}
}

// Builtins returns the name-to-catalog map of every built-in agent.
func Builtins() map[string]htn.Catalog {
	return map[string]htn.Catalog{
		Default:   DefaultCatalog(),
		Heuristic: HeuristicCatalog(),
	}
}
