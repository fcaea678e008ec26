// Package shapesuggest implements the heuristic bridge-table suggestion
// used by the heuristic join method when a strict FK walk leaves tables
// disconnected: it proposes candidate tables to splice into the join
// forest, ranked by how often they sit on a shortest path between two
// referenced tables.
package shapesuggest

import (
	"sort"

	"github.com/htnql/htnql/internal/schema"
)

// Suggest computes, for every pair of tables in the given set, the
// shortest path between them and collects the tables that appear strictly
// between the endpoints. The result is the distinct set of such bridge
// tables, sorted by how many pairs they bridge (most-shared first, ties
// broken lexicographically).
func Suggest(g *schema.Graph, tables []string) []string {
	counts := map[string]int{}

	sorted := make([]string, len(tables))
	copy(sorted, tables)
	sort.Strings(sorted)

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			path, err := g.ShortestPath(sorted[i], sorted[j])
			if err != nil {
				continue
			}
			if len(path) <= 2 {
				continue
			}
			for _, t := range path[1 : len(path)-1] {
				counts[t]++
			}
		}
	}

	bridges := make([]string, 0, len(counts))
	for t := range counts {
		bridges = append(bridges, t)
	}
	sort.Slice(bridges, func(i, j int) bool {
		if counts[bridges[i]] != counts[bridges[j]] {
			return counts[bridges[i]] > counts[bridges[j]]
		}
		return bridges[i] < bridges[j]
	})
	return bridges
}
