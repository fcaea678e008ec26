// Package sqlbuilder assembles the final SELECT statement from a completed
// auto-mode planning state: SELECT list, FROM/JOIN chain, WHERE clause,
// GROUP BY, and LIMIT, in that fixed order, with every filter value bound
// as a placeholder rather than inlined.
package sqlbuilder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/internal/state"
)

// Dialect controls identifier quoting and placeholder rendering. "ansi" is
// the only built-in today; a MySQL-style backtick dialect or a
// numbered-placeholder PostgreSQL dialect can implement the same interface
// without touching the clause-assembly logic below.
type Dialect interface {
	QuoteIdent(name string) string
	Placeholder(ordinal int) string
}

// ANSI is the default dialect: double-quoted identifiers, `?` placeholders.
type ANSI struct{}

func (ANSI) QuoteIdent(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }
func (ANSI) Placeholder(int) string        { return "?" }

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// qualified renders "table"."column" for a dotted table.column reference,
// quoting each part, or the bare quoted identifier if there is no dot.
func qualified(d Dialect, ref string) string {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) == 1 {
		return d.QuoteIdent(parts[0])
	}
	return d.QuoteIdent(parts[0]) + "." + d.QuoteIdent(parts[1])
}

// Build emits the SELECT statement for an auto-mode state: s.Spec drives
// the metric/group-by/filter/limit clauses, s.InferredTables and
// s.JoinForest drive FROM/JOIN. It returns the SQL string and the bound
// values in placeholder order.
func Build(d Dialect, s state.State) (string, []any, error) {
	if d == nil {
		d = ANSI{}
	}
	if len(s.InferredTables) == 0 {
		return "", nil, fmt.Errorf("sqlbuilder: state has no inferred tables")
	}

	var b strings.Builder
	var bound []any

	b.WriteString("SELECT ")
	selectParts := make([]string, 0, len(s.Spec.GroupBy)+len(s.Spec.Metrics))
	for _, col := range s.Spec.GroupBy {
		selectParts = append(selectParts, qualified(d, col))
	}
	for _, m := range s.Spec.Metrics {
		alias := m.Alias
		if !identRe.MatchString(alias) {
			alias = d.QuoteIdent(alias)
		}
		selectParts = append(selectParts, fmt.Sprintf("%s AS %s", m.Expression, alias))
	}
	b.WriteString(strings.Join(selectParts, ", "))

	root := s.InferredTables[0]
	for _, t := range s.InferredTables {
		if t < root {
			root = t
		}
	}

	b.WriteString(" FROM ")
	b.WriteString(d.QuoteIdent(root))

	included := map[string]struct{}{root: {}}
	joined := map[string]struct{}{}
	for _, e := range s.JoinForest {
		key := e.LeftTable + "\x00" + e.LeftCol + "\x00" + e.RightTable + "\x00" + e.RightCol
		if _, ok := joined[key]; ok {
			continue
		}
		joined[key] = struct{}{}

		var newTable string
		if _, ok := included[e.LeftTable]; !ok {
			newTable = e.LeftTable
		} else if _, ok := included[e.RightTable]; !ok {
			newTable = e.RightTable
		} else {
			continue
		}
		included[newTable] = struct{}{}

		fmt.Fprintf(&b, " INNER JOIN %s ON %s = %s",
			d.QuoteIdent(newTable),
			d.QuoteIdent(e.LeftTable)+"."+d.QuoteIdent(e.LeftCol),
			d.QuoteIdent(e.RightTable)+"."+d.QuoteIdent(e.RightCol),
		)
	}

	if len(s.Spec.Filters) > 0 {
		b.WriteString(" WHERE ")
		clauses := make([]string, 0, len(s.Spec.Filters))
		for _, f := range s.Spec.Filters {
			clause, vals, err := renderFilter(d, f)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			bound = append(bound, vals...)
		}
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if len(s.Spec.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		groupParts := make([]string, len(s.Spec.GroupBy))
		for i, col := range s.Spec.GroupBy {
			groupParts[i] = qualified(d, col)
		}
		b.WriteString(strings.Join(groupParts, ", "))
	}

	if s.Spec.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.Spec.Limit))
	}

	return b.String(), bound, nil
}

func renderFilter(d Dialect, f reportspec.Filter) (string, []any, error) {
	col := qualified(d, f.Column)
	switch f.Op {
	case reportspec.OpIn:
		values := f.Values()
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = d.Placeholder(i)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), values, nil
	case reportspec.OpLike:
		return fmt.Sprintf("%s LIKE %s", col, d.Placeholder(0)), []any{f.Value}, nil
	case reportspec.OpEquals, reportspec.OpNotEquals, reportspec.OpLessThan,
		reportspec.OpGreaterThan, reportspec.OpLTE, reportspec.OpGTE:
		return fmt.Sprintf("%s %s %s", col, string(f.Op), d.Placeholder(0)), []any{f.Value}, nil
	default:
		return "", nil, fmt.Errorf("sqlbuilder: unsupported filter operator %q", f.Op)
	}
}

// WrapBase emits the base-mode scaffold: SELECT <metrics/group-by> FROM
// (<base_sql>) __base__ [WHERE …] [GROUP BY …] [LIMIT …], with the same
// placeholder discipline as Build.
func WrapBase(d Dialect, s state.State) (string, []any, error) {
	if d == nil {
		d = ANSI{}
	}
	var b strings.Builder
	var bound []any

	b.WriteString("SELECT ")
	selectParts := make([]string, 0, len(s.Spec.GroupBy)+len(s.Spec.Metrics))
	for _, col := range s.Spec.GroupBy {
		selectParts = append(selectParts, qualified(d, col))
	}
	for _, m := range s.Spec.Metrics {
		alias := m.Alias
		if !identRe.MatchString(alias) {
			alias = d.QuoteIdent(alias)
		}
		selectParts = append(selectParts, fmt.Sprintf("%s AS %s", m.Expression, alias))
	}
	b.WriteString(strings.Join(selectParts, ", "))

	fmt.Fprintf(&b, " FROM (%s) __base__", s.Spec.BaseSQL)

	if len(s.Spec.Filters) > 0 {
		b.WriteString(" WHERE ")
		clauses := make([]string, 0, len(s.Spec.Filters))
		for _, f := range s.Spec.Filters {
			clause, vals, err := renderFilter(d, f)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			bound = append(bound, vals...)
		}
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if len(s.Spec.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		groupParts := make([]string, len(s.Spec.GroupBy))
		for i, col := range s.Spec.GroupBy {
			groupParts[i] = qualified(d, col)
		}
		b.WriteString(strings.Join(groupParts, ", "))
	}

	if s.Spec.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.Spec.Limit))
	}

	return b.String(), bound, nil
}
