// Package state defines the planning state threaded through HTN primitives:
// a tagged-variant record with one field per documented key, plus an Extra
// escape hatch for primitives registered by a caller. State is immutable by
// convention — every mutation goes through a With... method that returns a
// shallow copy, never through a field assignment on a shared value.
package state

import (
	"fmt"
	"sort"

	"github.com/htnql/htnql/internal/reportspec"
)

// Mode is the chosen execution mode, set by ChooseExecutionMode.
type Mode string

const (
	ModeRaw  Mode = "raw"
	ModeBase Mode = "base"
	ModeAuto Mode = "auto"
)

// Complexity tags a spec's shape, set by AnalyzeComplexity.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
)

// JoinEdge is one edge of the join forest: left_table.left_col =
// right_table.right_col.
type JoinEdge struct {
	LeftTable  string
	LeftCol    string
	RightTable string
	RightCol   string
}

// State is the planning state. Zero value is a valid empty state.
type State struct {
	Spec           reportspec.Spec
	Mode           Mode
	InferredTables []string
	Complexity     Complexity
	JoinForest     []JoinEdge
	SQL            string
	BoundValues    []any
	Diagnostics    []string

	// Extra holds values that have no dedicated field: the built-in
	// ExecutePlannedSql sets "ready" here, and primitives registered by a
	// caller may add their own keys. Built-in primitives never read it.
	Extra map[string]any
}

// New returns the initial state for spec: every other field zero.
func New(spec reportspec.Spec) State {
	return State{Spec: spec}
}

// WithMode returns a copy with Mode set.
func (s State) WithMode(m Mode) State {
	s.Mode = m
	return s
}

// WithInferredTables returns a copy with InferredTables set to the sorted,
// deduplicated union of the given names.
func (s State) WithInferredTables(tables []string) State {
	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	s.InferredTables = out
	return s
}

// WithComplexity returns a copy with Complexity set.
func (s State) WithComplexity(c Complexity) State {
	s.Complexity = c
	return s
}

// WithJoinForest returns a copy with JoinForest set.
func (s State) WithJoinForest(edges []JoinEdge) State {
	s.JoinForest = edges
	return s
}

// WithSQL returns a copy with SQL and BoundValues set.
func (s State) WithSQL(sql string, bound []any) State {
	s.SQL = sql
	s.BoundValues = bound
	return s
}

// WithDiagnostic returns a copy with msg appended to Diagnostics.
func (s State) WithDiagnostic(msg string) State {
	diags := make([]string, len(s.Diagnostics), len(s.Diagnostics)+1)
	copy(diags, s.Diagnostics)
	s.Diagnostics = append(diags, msg)
	return s
}

// ErrMissingKey is returned by MustGet when a key is absent from Extra.
type ErrMissingKey struct {
	Key string
}

func (e *ErrMissingKey) Error() string {
	return fmt.Sprintf("state: key %q is not set in Extra", e.Key)
}

// WithExtra returns a copy with Extra[key] set to value.
func (s State) WithExtra(key string, value any) State {
	extra := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		extra[k] = v
	}
	extra[key] = value
	s.Extra = extra
	return s
}

// Get returns Extra[key] and whether it was present.
func (s State) Get(key string) (any, bool) {
	v, ok := s.Extra[key]
	return v, ok
}

// MustGet returns Extra[key], or an *ErrMissingKey if absent.
func (s State) MustGet(key string) (any, error) {
	v, ok := s.Extra[key]
	if !ok {
		return nil, &ErrMissingKey{Key: key}
	}
	return v, nil
}

// Field looks up a well-known state field by name for guard predicate
// evaluation, falling back to Extra for anything else. This is the single
// stringly-typed seam the kernel needs to let the DSL's closed predicate
// kinds address arbitrary state fields without a type switch per guard.
func (s State) Field(name string) (any, bool) {
	switch name {
	case "mode":
		if s.Mode == "" {
			return nil, false
		}
		return string(s.Mode), true
	case "complexity":
		if s.Complexity == "" {
			return nil, false
		}
		return string(s.Complexity), true
	case "inferred_tables":
		if len(s.InferredTables) == 0 {
			return nil, false
		}
		return s.InferredTables, true
	case "join_forest":
		if len(s.JoinForest) == 0 {
			return nil, false
		}
		return s.JoinForest, true
	case "sql":
		if s.SQL == "" {
			return nil, false
		}
		return s.SQL, true
	case "diagnostics":
		if len(s.Diagnostics) == 0 {
			return nil, false
		}
		return s.Diagnostics, true
	default:
		return s.Get(name)
	}
}

// ChangedKeys returns the well-known field names that differ between prev
// and next, for TraceStep.StateKeysChanged. Extra values are compared by
// their fmt.Sprint form, since they are caller-defined and may not be
// comparable with ==.
func ChangedKeys(prev, next State) []string {
	var changed []string
	if prev.Mode != next.Mode {
		changed = append(changed, "mode")
	}
	if !stringsEqual(prev.InferredTables, next.InferredTables) {
		changed = append(changed, "inferred_tables")
	}
	if prev.Complexity != next.Complexity {
		changed = append(changed, "complexity")
	}
	if !joinForestEqual(prev.JoinForest, next.JoinForest) {
		changed = append(changed, "join_forest")
	}
	if prev.SQL != next.SQL {
		changed = append(changed, "sql")
	}
	if !stringsEqual(prev.Diagnostics, next.Diagnostics) {
		changed = append(changed, "diagnostics")
	}
	if len(prev.Extra) != len(next.Extra) {
		changed = append(changed, "extra")
	} else {
		for k, v := range next.Extra {
			if pv, ok := prev.Extra[k]; !ok || fmt.Sprint(pv) != fmt.Sprint(v) {
				changed = append(changed, "extra")
				break
			}
		}
	}
	return changed
}

func joinForestEqual(a, b []JoinEdge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
