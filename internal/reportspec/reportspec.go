// Package reportspec defines the declarative report description that the
// HTN planner turns into SQL: metrics, grouping columns, filters, and the
// raw/base-SQL mode hints.
package reportspec

import "fmt"

// FilterOp is one of the eight filter operators a ReportSpec may use.
type FilterOp string

const (
	OpEquals      FilterOp = "="
	OpNotEquals   FilterOp = "!="
	OpLessThan    FilterOp = "<"
	OpGreaterThan FilterOp = ">"
	OpLTE         FilterOp = "<="
	OpGTE         FilterOp = ">="
	OpIn          FilterOp = "IN"
	OpLike        FilterOp = "LIKE"
)

// AllFilterOps returns every valid filter operator.
func AllFilterOps() []FilterOp {
	return []FilterOp{OpEquals, OpNotEquals, OpLessThan, OpGreaterThan, OpLTE, OpGTE, OpIn, OpLike}
}

// IsValid reports whether op is a known filter operator.
func (op FilterOp) IsValid() bool {
	for _, valid := range AllFilterOps() {
		if op == valid {
			return true
		}
	}
	return false
}

// Metric is an aggregate expression paired with its output alias.
type Metric struct {
	Expression string `yaml:"expression" json:"expression"`
	Alias      string `yaml:"alias" json:"alias"`
}

// Filter is a single predicate over a fully-qualified column.
type Filter struct {
	Column string   `yaml:"column" json:"column"`
	Op     FilterOp `yaml:"op" json:"op"`
	Value  any      `yaml:"value" json:"value"`
}

// Values returns the filter's value as a slice, for IN-style operators.
// A non-slice value is returned as a single-element slice.
func (f Filter) Values() []any {
	if vs, ok := f.Value.([]any); ok {
		return vs
	}
	return []any{f.Value}
}

// Spec is the input to the query engine: a named request combining
// metrics, grouping, filters, limit, and an optional execution-mode hint.
type Spec struct {
	Name string `yaml:"name" json:"name"`

	Metrics []Metric `yaml:"metrics" json:"metrics"`
	GroupBy []string `yaml:"group_by" json:"group_by"`
	Filters []Filter `yaml:"filters" json:"filters"`

	Limit *int `yaml:"limit,omitempty" json:"limit,omitempty"`

	// RawSQL, if set, selects raw mode: the string is executed verbatim.
	RawSQL string `yaml:"raw_sql,omitempty" json:"raw_sql,omitempty"`

	// BaseSQL, if set, selects base mode: the string becomes the __base__
	// subquery that metrics/filters/group-by apply over.
	BaseSQL string `yaml:"base_sql,omitempty" json:"base_sql,omitempty"`
}

// ValidateModeHints enforces that at most one of RawSQL/BaseSQL is set,
// independent of any other structural validation. ChooseExecutionMode, the
// first primitive of every built-in plan, calls it before touching the
// state, so a mode conflict fails planning before any primitive has changed
// the state.
func (s Spec) ValidateModeHints() error {
	if s.RawSQL != "" && s.BaseSQL != "" {
		return fmt.Errorf("reportspec: raw_sql and base_sql are mutually exclusive")
	}
	return nil
}
