package budget

import (
	"reflect"
	"testing"
)

func defineAll(t *testing.T, g *LayerGraph, layers ...Layer) {
	t.Helper()
	for _, l := range layers {
		if err := g.Define(l); err != nil {
			t.Fatalf("Define(%s): %v", l.ID, err)
		}
	}
}

func TestLayerGraph_DefineValidation(t *testing.T) {
	g := NewLayerGraph()

	if err := g.Define(Layer{}); err == nil {
		t.Error("Define with empty id succeeded, want error")
	}
	if err := g.Define(Layer{ID: "a", Weight: -1}); err == nil {
		t.Error("Define with negative weight succeeded, want error")
	}
	if err := g.Define(Layer{ID: "a", Weight: 10}); err != nil {
		t.Errorf("Define(a): %v", err)
	}

	// Redefinition overwrites.
	if err := g.Define(Layer{ID: "a", Weight: 20}); err != nil {
		t.Fatalf("redefine: %v", err)
	}
	l, _ := g.Get("a")
	if l.Weight != 20 {
		t.Errorf("redefined weight = %d, want 20", l.Weight)
	}
}

func TestLayerGraph_ResolveClosure_DependencyFirst(t *testing.T) {
	g := NewLayerGraph()
	defineAll(t, g,
		Layer{ID: "base"},
		Layer{ID: "mid", Dependencies: []string{"base"}},
		Layer{ID: "top", Dependencies: []string{"mid"}},
	)

	c := g.ResolveClosure([]string{"top"})
	if c.Cyclic {
		t.Fatal("Cyclic = true for acyclic graph")
	}
	if len(c.Missing) != 0 {
		t.Fatalf("Missing = %v, want empty", c.Missing)
	}
	want := []string{"base", "mid", "top"}
	if !reflect.DeepEqual(c.Order, want) {
		t.Errorf("Order = %v, want %v", c.Order, want)
	}
}

func TestLayerGraph_ResolveClosure_Missing(t *testing.T) {
	g := NewLayerGraph()
	defineAll(t, g, Layer{ID: "x", Dependencies: []string{"y", "z"}})

	c := g.ResolveClosure([]string{"x"})
	if c.Cyclic {
		t.Fatal("Cyclic = true, want false")
	}
	want := []string{"y", "z"}
	if !reflect.DeepEqual(c.Missing, want) {
		t.Errorf("Missing = %v, want %v", c.Missing, want)
	}
}

func TestLayerGraph_ResolveClosure_Cycle(t *testing.T) {
	g := NewLayerGraph()
	defineAll(t, g,
		Layer{ID: "a", Dependencies: []string{"b"}},
		Layer{ID: "b", Dependencies: []string{"c"}},
		Layer{ID: "c", Dependencies: []string{"a"}},
	)

	c := g.ResolveClosure([]string{"a"})
	if !c.Cyclic {
		t.Error("Cyclic = false, want true for a->b->c->a")
	}

	// Self-dependency is the smallest cycle.
	defineAll(t, g, Layer{ID: "self", Dependencies: []string{"self"}})
	if c := g.ResolveClosure([]string{"self"}); !c.Cyclic {
		t.Error("Cyclic = false for self-dependency")
	}
}

func TestLayerGraph_ResolveClosure_SharedDependency(t *testing.T) {
	// Diamond: both mid layers depend on base; base appears once.
	g := NewLayerGraph()
	defineAll(t, g,
		Layer{ID: "base"},
		Layer{ID: "left", Dependencies: []string{"base"}},
		Layer{ID: "right", Dependencies: []string{"base"}},
		Layer{ID: "apex", Dependencies: []string{"left", "right"}},
	)

	c := g.ResolveClosure([]string{"apex"})
	if c.Cyclic {
		t.Fatal("diamond flagged cyclic")
	}
	want := []string{"base", "left", "right", "apex"}
	if !reflect.DeepEqual(c.Order, want) {
		t.Errorf("Order = %v, want %v", c.Order, want)
	}
}

func TestLayerGraph_ExclusivityConflicts(t *testing.T) {
	g := NewLayerGraph()
	defineAll(t, g,
		Layer{ID: "p", ExclusiveWith: []string{"q"}},
		Layer{ID: "q"}, // q does not declare p; the constraint is still mutual
		Layer{ID: "r"},
	)

	pairs := g.ExclusivityConflicts([]string{"q"}, []string{"p", "r"})
	want := []ConflictPair{{RequestedID: "q", ActiveID: "p"}}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("ExclusivityConflicts = %v, want %v", pairs, want)
	}

	// No conflict when the exclusive layer is part of the request itself.
	pairs = g.ExclusivityConflicts([]string{"p", "q"}, []string{"p"})
	if len(pairs) != 0 {
		t.Errorf("conflicts against own closure = %v, want empty", pairs)
	}
}

func TestLayerGraph_InternalConflicts(t *testing.T) {
	g := NewLayerGraph()
	defineAll(t, g,
		Layer{ID: "p", ExclusiveWith: []string{"q"}},
		Layer{ID: "q"},
	)

	pairs := g.InternalConflicts([]string{"p", "q"})
	if len(pairs) != 1 {
		t.Fatalf("InternalConflicts = %v, want one pair", pairs)
	}
}

func TestLayerGraph_Dependents(t *testing.T) {
	g := NewLayerGraph()
	defineAll(t, g,
		Layer{ID: "base"},
		Layer{ID: "a", Dependencies: []string{"base"}},
		Layer{ID: "b", Dependencies: []string{"base", "a"}},
		Layer{ID: "c"},
	)

	got := g.Dependents([]string{"base"})
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dependents(base) = %v, want %v", got, want)
	}

	if got := g.Dependents([]string{"c"}); len(got) != 0 {
		t.Errorf("Dependents(c) = %v, want empty", got)
	}
}
