// Package graph builds the first-party module dependency graph and produces
// a deterministic topological order, tolerating cycles rather than treating
// them as fatal.
package graph

import "sort"

// Graph is a directed graph over first-party module names. Edges run
// importer -> imported. AddNode and AddEdge are idempotent.
type Graph struct {
	nodes map[string]struct{}
	succ  map[string]map[string]struct{}
	pred  map[string]map[string]struct{}
}

// New builds an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		succ:  make(map[string]map[string]struct{}),
		pred:  make(map[string]map[string]struct{}),
	}
}

// AddNode registers name as a node. Idempotent.
func (g *Graph) AddNode(name string) {
	if _, ok := g.nodes[name]; ok {
		return
	}
	g.nodes[name] = struct{}{}
	g.succ[name] = make(map[string]struct{})
	g.pred[name] = make(map[string]struct{})
}

// AddEdge records a dependency from -> to, adding either endpoint as a node
// if not already present. Idempotent.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.succ[from][to] = struct{}{}
	g.pred[to][from] = struct{}{}
}

// Nodes returns every node name, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildFromEntry seeds the graph with entry and performs a BFS over
// first-party dependencies, invoking deps(module) to extract every module
// it depends on and isFirstParty(name) to decide whether an extracted
// identifier becomes a graph edge. Non-first-party identifiers are not
// added as edges; they are collected into a deduplicated, sorted list for
// the requirements-emission collaborator.
func BuildFromEntry(entry string, deps func(string) ([]string, error), isFirstParty func(string) bool) (*Graph, []string, error) {
	g := New()
	g.AddNode(entry)

	visited := map[string]struct{}{entry: {}}
	queue := []string{entry}
	discarded := make(map[string]struct{})

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		found, err := deps(current)
		if err != nil {
			return nil, nil, err
		}

		for _, dep := range found {
			if !isFirstParty(dep) {
				discarded[dep] = struct{}{}
				continue
			}
			g.AddEdge(current, dep)
			if _, ok := visited[dep]; !ok {
				visited[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}

	discardedList := make([]string, 0, len(discarded))
	for d := range discarded {
		discardedList = append(discardedList, d)
	}
	sort.Strings(discardedList)

	return g, discardedList, nil
}

// CycleReport is the sidecar record produced by TopoOrder: each entry is one
// strongly connected component of size > 1 (a genuine import cycle),
// node names sorted within the group.
type CycleReport [][]string

// TopoOrder returns a module emission order suitable for inlining: every
// module's first-party dependencies appear before it, since a bundled
// module's top-level statements (e.g. an alias assignment standing in for a
// removed from-import) can reference names the dependency defines, and
// those names must already be bound by the time the statement runs.
//
// Concretely this runs Kahn's algorithm against the reverse of the stored
// importer->imported edges: a node's "unresolved in-edges" are its own
// not-yet-emitted dependencies. Ties are broken lexicographically. When a
// cycle is present, every node is still emitted exactly once: among nodes
// not yet emitted, the algorithm repeatedly picks the one with the fewest
// unresolved dependencies rather than requiring zero, which deterministically
// breaks the cycle without attempting to "fix" it.
func (g *Graph) TopoOrder() ([]string, CycleReport) {
	unresolved := make(map[string]int, len(g.nodes))
	for n := range g.nodes {
		unresolved[n] = len(g.succ[n])
		if _, self := g.succ[n][n]; self {
			// A self-import never blocks the module's own emission.
			unresolved[n]--
		}
	}

	remaining := make(map[string]struct{}, len(g.nodes))
	for n := range g.nodes {
		remaining[n] = struct{}{}
	}

	order := make([]string, 0, len(g.nodes))
	for len(remaining) > 0 {
		next := pickNext(remaining, unresolved)
		order = append(order, next)
		delete(remaining, next)

		importers := make([]string, 0, len(g.pred[next]))
		for p := range g.pred[next] {
			importers = append(importers, p)
		}
		sort.Strings(importers)
		for _, p := range importers {
			if _, ok := remaining[p]; ok {
				unresolved[p]--
			}
		}
	}

	return order, g.cycleReport()
}

// pickNext selects, among remaining nodes, the one with the fewest
// unresolved in-edges, breaking ties lexicographically.
func pickNext(remaining map[string]struct{}, inDegree map[string]int) string {
	best := ""
	bestDegree := -1
	for n := range remaining {
		d := inDegree[n]
		if bestDegree == -1 || d < bestDegree || (d == bestDegree && n < best) {
			best = n
			bestDegree = d
		}
	}
	return best
}

// cycleReport computes strongly connected components via Tarjan's algorithm
// and returns those with more than one member. A self-loop (a package's
// __init__ whose "from . import x" resolves to the package itself) forms a
// one-member component and is not reported.
func (g *Graph) cycleReport() CycleReport {
	t := &tarjan{
		graph:   g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}

	for _, n := range g.Nodes() {
		if _, visited := t.index[n]; !visited {
			t.strongConnect(n)
		}
	}

	report := make(CycleReport, 0, len(t.components))
	for _, comp := range t.components {
		if len(comp) > 1 {
			sort.Strings(comp)
			report = append(report, comp)
		}
	}
	sort.Slice(report, func(i, j int) bool { return report[i][0] < report[j][0] })
	return report
}

type tarjan struct {
	graph      *Graph
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	counter    int
	components [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	successors := make([]string, 0, len(t.graph.succ[v]))
	for s := range t.graph.succ[v] {
		successors = append(successors, s)
	}
	sort.Strings(successors)

	for _, w := range successors {
		if _, visited := t.index[w]; !visited {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}

// Ancestors returns every node with a path to name (nodes that depend on
// name, directly or transitively), sorted.
func (g *Graph) Ancestors(name string) []string {
	return g.reachable(name, g.pred)
}

// Descendants returns every node reachable from name (nodes name depends
// on, directly or transitively), sorted.
func (g *Graph) Descendants(name string) []string {
	return g.reachable(name, g.succ)
}

func (g *Graph) reachable(start string, adjacency map[string]map[string]struct{}) []string {
	visited := make(map[string]struct{})
	queue := []string{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for next := range adjacency[n] {
			if _, ok := visited[next]; !ok {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	out := make([]string, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
