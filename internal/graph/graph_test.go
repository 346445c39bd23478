package graph

import "testing"

func TestTopoOrderAcyclic(t *testing.T) {
	g := New()
	g.AddEdge("app", "app.utils")
	g.AddEdge("app", "app.db")
	g.AddEdge("app.db", "app.utils")

	order, cycles := g.TopoOrder()

	if len(cycles) != 0 {
		t.Fatalf("cycles = %v, want none", cycles)
	}
	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 entries", order)
	}
	assertPrecedes(t, order, "app.utils", "app.db")
	assertPrecedes(t, order, "app.utils", "app")
}

func TestTopoOrderLexicographicTieBreak(t *testing.T) {
	g := New()
	g.AddNode("zeta")
	g.AddNode("alpha")
	g.AddNode("mid")

	order, _ := g.TopoOrder()
	if len(order) != 3 || order[0] != "alpha" || order[1] != "mid" || order[2] != "zeta" {
		t.Errorf("order = %v, want [alpha mid zeta]", order)
	}
}

func TestTopoOrderEmitsEveryNodeDespiteCycle(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.AddEdge("a", "c")

	order, cycles := g.TopoOrder()

	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 entries despite cycle", order)
	}
	seen := map[string]bool{}
	for _, n := range order {
		seen[n] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Errorf("order %v missing node %q", order, want)
		}
	}

	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Fatalf("cycles = %v, want one 2-node cycle", cycles)
	}
	if cycles[0][0] != "a" || cycles[0][1] != "b" {
		t.Errorf("cycles[0] = %v, want [a b]", cycles[0])
	}
}

func TestTopoOrderDeterministicAcrossRuns(t *testing.T) {
	build := func() *Graph {
		g := New()
		g.AddEdge("x", "y")
		g.AddEdge("y", "z")
		g.AddEdge("x", "z")
		g.AddNode("w")
		return g
	}

	order1, _ := build().TopoOrder()
	order2, _ := build().TopoOrder()

	if len(order1) != len(order2) {
		t.Fatalf("order1=%v order2=%v differ in length", order1, order2)
	}
	for i := range order1 {
		if order1[i] != order2[i] {
			t.Fatalf("order1=%v order2=%v not identical", order1, order2)
		}
	}
}

func TestBuildFromEntryCollectsDiscardedDeps(t *testing.T) {
	depsOf := map[string][]string{
		"entry": {"entry.sub", "numpy", "os"},
		"entry.sub": {"os"},
	}
	deps := func(name string) ([]string, error) { return depsOf[name], nil }
	isFirstParty := func(name string) bool { return name == "entry.sub" }

	g, discarded, err := BuildFromEntry("entry", deps, isFirstParty)
	if err != nil {
		t.Fatalf("BuildFromEntry() error: %v", err)
	}

	nodes := g.Nodes()
	if len(nodes) != 2 || nodes[0] != "entry" || nodes[1] != "entry.sub" {
		t.Errorf("Nodes() = %v, want [entry entry.sub]", nodes)
	}

	if len(discarded) != 2 || discarded[0] != "numpy" || discarded[1] != "os" {
		t.Errorf("discarded = %v, want [numpy os]", discarded)
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	desc := g.Descendants("a")
	if len(desc) != 2 || desc[0] != "b" || desc[1] != "c" {
		t.Errorf("Descendants(a) = %v, want [b c]", desc)
	}

	anc := g.Ancestors("c")
	if len(anc) != 2 || anc[0] != "a" || anc[1] != "b" {
		t.Errorf("Ancestors(c) = %v, want [a b]", anc)
	}
}

func indexOf(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	return pos
}

func assertPrecedes(t *testing.T, order []string, first, second string) {
	t.Helper()
	pos := indexOf(order)
	if pos[first] >= pos[second] {
		t.Errorf("order = %v, want %q before %q", order, first, second)
	}
}
