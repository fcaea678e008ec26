package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the YAML shape of a schema reflection: a table catalog plus
// its foreign-key edges, as produced by a DBA or a reflection tool and
// consumed by schema.Load, the CLI's "schema describe" command, and the
// Engine's schema config.
type Document struct {
	Tables []Table  `yaml:"tables"`
	Edges  []FKEdge `yaml:"edges"`
}

// Load parses a schema document and builds the Graph it describes.
func Load(data []byte) (*Graph, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parsing document: %w", err)
	}
	return New(doc.Tables, doc.Edges)
}

// Describe renders a human-readable summary of g: one line per table with
// its columns, followed by one line per foreign-key edge.
func Describe(g *Graph) string {
	out := ""
	for _, name := range g.Tables() {
		cols, _ := g.Columns(name)
		out += fmt.Sprintf("table %s (%v)\n", name, cols)
	}
	for _, e := range g.edges {
		out += fmt.Sprintf("fk %s.%s -> %s.%s\n", e.ChildTable, e.ChildColumn, e.ParentTable, e.ParentColumn)
	}
	return out
}
