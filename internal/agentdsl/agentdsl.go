// Package agentdsl parses the agent configuration language: a YAML document
// naming, for each compound task, an ordered list of guarded methods. It
// produces an in-memory htn.Catalog the kernel can decompose against.
package agentdsl

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/predicate"
)

// Document is the top-level YAML shape: { tasks: { task_name: { methods: [...] } } }.
type Document struct {
	Tasks map[string]TaskDoc `yaml:"tasks"`
}

// TaskDoc holds the methods bound to one compound task.
type TaskDoc struct {
	Methods []MethodDoc `yaml:"methods"`
}

// MethodDoc is one guarded decomposition rule, as written in YAML.
type MethodDoc struct {
	Name  string          `yaml:"name"`
	When  []PredicateDoc  `yaml:"when"`
	Steps []StepDoc       `yaml:"steps"`
}

// PredicateDoc is a single guard predicate: state.Field(Field) Op Value.
type PredicateDoc struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

// StepDoc is either a compound task reference or a primitive reference,
// never both.
type StepDoc struct {
	Task      string `yaml:"task,omitempty"`
	Primitive string `yaml:"primitive,omitempty"`
}

// Parse parses a YAML agent document into a Catalog. knownPrimitives is the
// set of primitive names registered in the primitive.Registry; any
// "primitive:" step referencing a name outside that set fails parsing with
// an *htnerrors.AgentError. Task references are not validated here — they
// are resolved lazily against the catalog at plan time, so a forward
// reference to a task defined later in the document (or injected by a
// caller) is legal.
func Parse(doc []byte, knownPrimitives map[string]struct{}) (htn.Catalog, error) {
	var d Document
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return nil, htnerrors.NewAgentError("", fmt.Sprintf("invalid YAML: %v", err))
	}
	return build(d, knownPrimitives)
}

func build(d Document, knownPrimitives map[string]struct{}) (htn.Catalog, error) {
	catalog := make(htn.Catalog, len(d.Tasks))

	for taskName, taskDoc := range d.Tasks {
		methods := make([]htn.Method, 0, len(taskDoc.Methods))
		for _, md := range taskDoc.Methods {
			guard := make(predicate.Guard, 0, len(md.When))
			for _, pd := range md.When {
				kind, err := predicate.Parse(pd.Op)
				if err != nil {
					return nil, htnerrors.NewAgentError(taskName, err.Error())
				}
				guard = append(guard, predicate.Predicate{Field: pd.Field, Kind: kind, Value: pd.Value})
			}

			steps := make([]htn.Step, 0, len(md.Steps))
			for _, sd := range md.Steps {
				if sd.Task == "" && sd.Primitive == "" {
					return nil, htnerrors.NewAgentError(taskName, "step has neither task nor primitive set")
				}
				if sd.Task != "" && sd.Primitive != "" {
					return nil, htnerrors.NewAgentError(taskName, "step has both task and primitive set")
				}
				if sd.Primitive != "" {
					if _, ok := knownPrimitives[sd.Primitive]; !ok {
						return nil, htnerrors.NewAgentError(taskName, fmt.Sprintf("unknown primitive %q", sd.Primitive))
					}
				}
				steps = append(steps, htn.Step{Task: sd.Task, Primitive: sd.Primitive})
			}

			methods = append(methods, htn.Method{Name: md.Name, Guard: guard, Steps: steps})
		}
		catalog[taskName] = methods
	}

	return catalog, nil
}
