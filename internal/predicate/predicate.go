// Package predicate defines the closed set of guard-predicate kinds the
// agent DSL and HTN kernel evaluate against planning state.
package predicate

import "fmt"

// Kind is a guard predicate kind. The set is closed: the kernel never
// evaluates a predicate stringly, only through this enum.
type Kind string

const (
	KindEquals    Kind = "equals"
	KindNotEquals Kind = "not_equals"
	KindSizeLTE   Kind = "size_lte"
	KindSizeGTE   Kind = "size_gte"
	KindContains  Kind = "contains"
	KindIsSet     Kind = "is_set"
	KindIsUnset   Kind = "is_unset"
	KindIn        Kind = "in"
)

// All returns every valid predicate kind.
func All() []Kind {
	return []Kind{KindEquals, KindNotEquals, KindSizeLTE, KindSizeGTE, KindContains, KindIsSet, KindIsUnset, KindIn}
}

// IsValid reports whether k is a known predicate kind.
func (k Kind) IsValid() bool {
	for _, valid := range All() {
		if k == valid {
			return true
		}
	}
	return false
}

// Parse parses a string into a Kind, failing on anything outside All().
func Parse(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("predicate: unknown kind %q (valid: %v)", s, All())
	}
	return k, nil
}

// Predicate is a single guard condition: state.Field(Field) `Kind` Value.
type Predicate struct {
	Field string
	Kind  Kind
	Value any
}

// Guard is a conjunction of predicates; all must hold for a method to fire.
type Guard []Predicate

// Evaluate evaluates the guard against a state accessor function. get
// returns the current value for a field and whether it is present.
func (g Guard) Evaluate(get func(field string) (any, bool)) (bool, error) {
	for _, p := range g {
		ok, err := p.evaluate(get)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (p Predicate) evaluate(get func(field string) (any, bool)) (bool, error) {
	val, present := get(p.Field)
	switch p.Kind {
	case KindIsSet:
		return present, nil
	case KindIsUnset:
		return !present, nil
	case KindEquals:
		return present && equal(val, p.Value), nil
	case KindNotEquals:
		return !present || !equal(val, p.Value), nil
	case KindSizeLTE:
		n, ok := sizeOf(val)
		return present && ok && n <= asInt(p.Value), nil
	case KindSizeGTE:
		n, ok := sizeOf(val)
		return present && ok && n >= asInt(p.Value), nil
	case KindContains:
		return present && containsValue(val, p.Value), nil
	case KindIn:
		return present && containsValue(p.Value, val), nil
	default:
		return false, fmt.Errorf("predicate: unevaluable kind %q", p.Kind)
	}
}

func equal(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func sizeOf(v any) (int, bool) {
	switch s := v.(type) {
	case []string:
		return len(s), true
	case []any:
		return len(s), true
	case map[string]struct{}:
		return len(s), true
	case string:
		return len(s), true
	default:
		return 0, false
	}
}

func containsValue(container, needle any) bool {
	switch c := container.(type) {
	case []string:
		want := fmt.Sprint(needle)
		for _, v := range c {
			if v == want {
				return true
			}
		}
	case []any:
		for _, v := range c {
			if equal(v, needle) {
				return true
			}
		}
	}
	return false
}
