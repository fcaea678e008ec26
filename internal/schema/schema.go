// Package schema builds the foreign-key graph that the HTN planner searches
// when inferring joins for a report. Tables and edges are registered in a
// dominikbraun/graph; adjacency, the deterministic BFS and the component
// queries run over the package's own sorted edge index, since the
// library's own traversal order is not guaranteed sorted.
package schema

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/htnql/htnql/internal/htnerrors"
)

// Table describes one relation available to the planner.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// FKEdge is a directed foreign-key reference from a child table's column to
// a parent table's column.
type FKEdge struct {
	ChildTable   string `yaml:"child_table"`
	ChildColumn  string `yaml:"child_column"`
	ParentTable  string `yaml:"parent_table"`
	ParentColumn string `yaml:"parent_column"`
}

// sortKey orders edges by (child_table, child_column, parent_table,
// parent_column), the tie-break the design notes require for deterministic
// traversal.
func (e FKEdge) sortKey() string {
	return e.ChildTable + "\x00" + e.ChildColumn + "\x00" + e.ParentTable + "\x00" + e.ParentColumn
}

// Graph is the read-only foreign-key graph over a fixed set of tables.
// Once built it is safe for concurrent use by multiple planning runs.
type Graph struct {
	g       graph.Graph[string, string]
	tables  map[string]Table
	edges   []FKEdge
	byTable map[string][]FKEdge // edges incident to a table, either side
}

func tableHash(name string) string { return name }

// New builds a Graph from a table catalog and its foreign-key edges. Every
// edge must reference a known table and column on both sides, or New returns
// a *htnerrors.SchemaError.
func New(tables []Table, edges []FKEdge) (*Graph, error) {
	g := graph.New(tableHash, graph.Directed())

	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		if err := g.AddVertex(t.Name); err != nil {
			return nil, htnerrors.NewSchemaError(t.Name, "", fmt.Sprintf("duplicate table: %v", err))
		}
		byName[t.Name] = t
	}

	hasColumn := func(table, column string) bool {
		t, ok := byName[table]
		if !ok {
			return false
		}
		for _, c := range t.Columns {
			if c == column {
				return true
			}
		}
		return false
	}

	sorted := make([]FKEdge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].sortKey() < sorted[j].sortKey() })

	byTable := make(map[string][]FKEdge)
	for _, e := range sorted {
		if _, ok := byName[e.ChildTable]; !ok {
			return nil, htnerrors.NewSchemaError(e.ChildTable, e.ChildColumn, "edge references an unknown child table")
		}
		if _, ok := byName[e.ParentTable]; !ok {
			return nil, htnerrors.NewSchemaError(e.ParentTable, e.ParentColumn, "edge references an unknown parent table")
		}
		if !hasColumn(e.ChildTable, e.ChildColumn) {
			return nil, htnerrors.NewSchemaError(e.ChildTable, e.ChildColumn, "edge references an unknown child column")
		}
		if !hasColumn(e.ParentTable, e.ParentColumn) {
			return nil, htnerrors.NewSchemaError(e.ParentTable, e.ParentColumn, "edge references an unknown parent column")
		}
		if err := g.AddEdge(e.ChildTable, e.ParentTable); err != nil && err != graph.ErrEdgeAlreadyExists {
			return nil, htnerrors.NewSchemaError(e.ChildTable, e.ChildColumn, fmt.Sprintf("could not add edge: %v", err))
		}
		byTable[e.ChildTable] = append(byTable[e.ChildTable], e)
		byTable[e.ParentTable] = append(byTable[e.ParentTable], e)
	}

	return &Graph{g: g, tables: byName, edges: sorted, byTable: byTable}, nil
}

// Tables returns every table name, sorted.
func (s *Graph) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable reports whether table is part of the graph.
func (s *Graph) HasTable(table string) bool {
	_, ok := s.tables[table]
	return ok
}

// Columns returns table's declared columns, or a SchemaError if table is unknown.
func (s *Graph) Columns(table string) ([]string, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, htnerrors.NewSchemaError(table, "", "table is not part of the schema graph")
	}
	return t.Columns, nil
}

// EdgesIncident returns every foreign-key edge touching table, as either
// child or parent side, sorted by the standard edge tie-break key.
func (s *Graph) EdgesIncident(table string) []FKEdge {
	edges := s.byTable[table]
	out := make([]FKEdge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool { return out[i].sortKey() < out[j].sortKey() })
	return out
}

// adjacency returns the undirected neighbor set of table: every table
// reachable by crossing one foreign-key edge in either direction.
func (s *Graph) adjacency(table string) []string {
	seen := map[string]struct{}{}
	for _, e := range s.EdgesIncident(table) {
		if e.ChildTable == table {
			seen[e.ParentTable] = struct{}{}
		} else {
			seen[e.ChildTable] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ShortestPath finds the shortest undirected chain of foreign-key edges
// connecting from and to, inclusive of both endpoints. Ties among
// equal-length paths are broken by always expanding neighbors in sorted
// table-name order, so the result is deterministic across runs. It returns
// a *htnerrors.JoinError if no path exists.
func (s *Graph) ShortestPath(from, to string) ([]string, error) {
	if !s.HasTable(from) {
		return nil, htnerrors.NewSchemaError(from, "", "table is not part of the schema graph")
	}
	if !s.HasTable(to) {
		return nil, htnerrors.NewSchemaError(to, "", "table is not part of the schema graph")
	}
	if from == to {
		return []string{from}, nil
	}

	type frame struct {
		table string
		path  []string
	}

	visited := map[string]struct{}{from: {}}
	queue := []frame{{table: from, path: []string{from}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range s.adjacency(cur.table) {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			path := make([]string, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			path = append(path, next)
			if next == to {
				return path, nil
			}
			queue = append(queue, frame{table: next, path: path})
		}
	}

	return nil, htnerrors.NewJoinDisconnected(to)
}

// edgeBetween returns the edge connecting a and b (in either direction),
// breaking ties by sort key when more than one FK directly connects them.
func (s *Graph) edgeBetween(a, b string) (FKEdge, bool) {
	var best FKEdge
	found := false
	for _, e := range s.EdgesIncident(a) {
		if (e.ChildTable == a && e.ParentTable == b) || (e.ChildTable == b && e.ParentTable == a) {
			if !found || e.sortKey() < best.sortKey() {
				best = e
				found = true
			}
		}
	}
	return best, found
}

// ShortestPathEdges finds the shortest FK path connecting from and to, like
// ShortestPath, but returns the actual FKEdge traversed at each hop in
// natural child-to-parent orientation rather than the table sequence.
func (s *Graph) ShortestPathEdges(from, to string) ([]FKEdge, error) {
	path, err := s.ShortestPath(from, to)
	if err != nil {
		return nil, err
	}
	edges := make([]FKEdge, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		e, ok := s.edgeBetween(path[i], path[i+1])
		if !ok {
			return nil, htnerrors.NewJoinDisconnected(path[i+1])
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// IsConnected reports whether every table in tableSet lies in a single
// connected component of the undirected foreign-key graph. A set of zero or
// one table is trivially connected.
func (s *Graph) IsConnected(tableSet []string) bool {
	if len(tableSet) <= 1 {
		return true
	}
	want := make(map[string]struct{}, len(tableSet))
	for _, t := range tableSet {
		want[t] = struct{}{}
	}

	start := tableSet[0]
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range s.adjacency(cur) {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	for t := range want {
		if _, ok := visited[t]; !ok {
			return false
		}
	}
	return true
}

// ConnectedComponents partitions tableSet into groups of mutually reachable
// tables, using a union-find over the graph's full edge list so that two
// requested tables joined only through an intermediate table outside
// tableSet still land in the same component. Each returned component is
// sorted, and components are ordered by their lexicographically smallest
// member. It returns a *htnerrors.SchemaError if tableSet names a table not
// in the graph.
func (s *Graph) ConnectedComponents(tableSet []string) ([][]string, error) {
	if len(tableSet) == 0 {
		return nil, nil
	}

	parent := make(map[string]string, len(s.tables))
	for t := range s.tables {
		parent[t] = t
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, e := range s.edges {
		union(e.ChildTable, e.ParentTable)
	}

	seen := make(map[string]struct{}, len(tableSet))
	order := make([]string, 0, len(tableSet))
	for _, t := range tableSet {
		if !s.HasTable(t) {
			return nil, htnerrors.NewSchemaError(t, "", "table is not part of the schema graph")
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		order = append(order, t)
	}

	groups := make(map[string][]string)
	for _, t := range order {
		root := find(t)
		groups[root] = append(groups[root], t)
	}

	components := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components, nil
}
