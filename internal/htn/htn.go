// Package htn implements the HTN planning kernel: a deterministic,
// stack-based, non-backtracking decomposer that turns a root task into a
// trace of primitive applications against a planning state.
package htn

import (
	"context"

	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/predicate"
	"github.com/htnql/htnql/internal/state"
)

// Task is a named unit of work: compound if a method catalog decomposes it,
// primitive if it names a registry entry directly.
type Task struct {
	Name string
}

// Step is one element of a method's body: either a compound sub-task or a
// primitive reference, never both.
type Step struct {
	Task      string
	Primitive string
}

// Method is a named decomposition rule bound to a compound task.
type Method struct {
	Name  string
	Guard predicate.Guard
	Steps []Step
}

// Catalog maps a compound task name to its methods, tried in order.
type Catalog map[string][]Method

// PrimitiveFunc mutates state in response to a task; pure aside from
// reading the schema graph closed over at registration time.
type PrimitiveFunc func(ctx context.Context, s state.State, task Task) (state.State, error)

// Registry is an immutable name-to-function table, built once at startup.
type Registry struct {
	funcs map[string]PrimitiveFunc
}

// NewRegistry builds a Registry from a name-to-function map. Registration
// happens once, before the first Plan call; the returned Registry is never
// mutated afterward.
func NewRegistry(funcs map[string]PrimitiveFunc) *Registry {
	copied := make(map[string]PrimitiveFunc, len(funcs))
	for k, v := range funcs {
		copied[k] = v
	}
	return &Registry{funcs: copied}
}

// Lookup returns the primitive registered under name.
func (r *Registry) Lookup(name string) (PrimitiveFunc, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// TraceStep records one method selection or primitive application.
type TraceStep struct {
	TaskName         string
	MethodName       string // empty for a primitive application
	Depth            int
	StateKeysChanged []string
}

// Planner drives decomposition of a root task against a method catalog and
// primitive registry.
type Planner struct {
	Catalog  Catalog
	Registry *Registry
}

// NewPlanner builds a Planner from a fixed catalog and registry.
func NewPlanner(catalog Catalog, registry *Registry) *Planner {
	return &Planner{Catalog: catalog, Registry: registry}
}

type frame struct {
	task  Task
	depth int
}

// Plan decomposes root against initial, returning the final state and the
// accumulated trace. Method selection is greedy: the first method whose
// guard passes is taken, and there is no backtracking — a primitive that
// cannot proceed aborts planning immediately with its own error, not a
// rollback to try another method.
func (p *Planner) Plan(ctx context.Context, root Task, initial state.State) (state.State, []TraceStep, error) {
	cur := initial
	var trace []TraceStep
	stack := []frame{{task: root, depth: 0}}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return cur, trace, htnerrors.NewCancelledError()
		default:
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fn, ok := p.Registry.Lookup(top.task.Name); ok {
			next, err := fn(ctx, cur, top.task)
			if err != nil {
				return cur, trace, err
			}
			trace = append(trace, TraceStep{
				TaskName:         top.task.Name,
				Depth:            top.depth,
				StateKeysChanged: state.ChangedKeys(cur, next),
			})
			cur = next
			continue
		}

		methods, ok := p.Catalog[top.task.Name]
		if !ok {
			return cur, trace, htnerrors.NewPlannerNoApplicableMethod(top.task.Name)
		}

		selected, err := selectMethod(methods, cur)
		if err != nil {
			return cur, trace, err
		}
		if selected == nil {
			return cur, trace, htnerrors.NewPlannerNoApplicableMethod(top.task.Name)
		}

		trace = append(trace, TraceStep{
			TaskName:   top.task.Name,
			MethodName: selected.Name,
			Depth:      top.depth,
		})

		// Push steps in reverse so the stack pops them left-to-right.
		for i := len(selected.Steps) - 1; i >= 0; i-- {
			step := selected.Steps[i]
			name := step.Task
			if name == "" {
				name = step.Primitive
			}
			stack = append(stack, frame{task: Task{Name: name}, depth: top.depth + 1})
		}
	}

	return cur, trace, nil
}

func selectMethod(methods []Method, s state.State) (*Method, error) {
	for i := range methods {
		ok, err := methods[i].Guard.Evaluate(s.Field)
		if err != nil {
			return nil, err
		}
		if ok {
			return &methods[i], nil
		}
	}
	return nil, nil
}
