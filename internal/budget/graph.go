package budget

import (
	"fmt"
	"sort"
)

// LayerGraph holds layer definitions and resolves dependency closures and
// exclusivity conflicts. Definitions may reference not-yet-defined
// dependencies; validation happens lazily at resolution time.
// LayerGraph is not safe for concurrent use; the Scheduler serializes access.
type LayerGraph struct {
	layers map[string]Layer
}

// NewLayerGraph returns an empty graph.
func NewLayerGraph() *LayerGraph {
	return &LayerGraph{layers: make(map[string]Layer)}
}

// Define upserts a layer definition. Redefinition overwrites and is
// idempotent with respect to the active set.
func (g *LayerGraph) Define(layer Layer) error {
	if layer.ID == "" {
		return fmt.Errorf("layer id is required")
	}
	if layer.Weight < 0 {
		return fmt.Errorf("layer %s: weight must not be negative, got %d", layer.ID, layer.Weight)
	}
	g.layers[layer.ID] = layer
	return nil
}

// Get returns the layer definition for the given id.
func (g *LayerGraph) Get(id string) (Layer, bool) {
	l, ok := g.layers[id]
	return l, ok
}

// Has reports whether the layer is defined.
func (g *LayerGraph) Has(id string) bool {
	_, ok := g.layers[id]
	return ok
}

// IDs returns all defined layer ids, sorted.
func (g *LayerGraph) IDs() []string {
	ids := make([]string, 0, len(g.layers))
	for id := range g.layers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Closure is the result of resolving a set of layers to their transitive
// dependency closure.
type Closure struct {
	// Order lists the closure dependency-first: every layer appears after
	// all of its dependencies.
	Order []string

	// Missing lists referenced dependency ids with no definition, sorted.
	Missing []string

	// Cyclic is true if the dependency graph reachable from the requested
	// ids contains a cycle. Cyclic requests are rejected wholesale.
	Cyclic bool
}

// DFS colors for cycle detection.
const (
	colorWhite = 0 // unvisited
	colorGray  = 1 // in current DFS path
	colorBlack = 2 // finished
)

// ResolveClosure computes the transitive dependency closure of the requested
// ids via DFS. A gray-node revisit marks the closure cyclic; undefined
// dependencies are collected in Missing without aborting the walk, so the
// caller can report every gap at once.
func (g *LayerGraph) ResolveClosure(ids []string) Closure {
	var c Closure
	color := make(map[string]int)
	missing := make(map[string]bool)

	var dfs func(id string)
	dfs = func(id string) {
		layer, ok := g.layers[id]
		if !ok {
			missing[id] = true
			return
		}
		color[id] = colorGray
		for _, dep := range layer.Dependencies {
			switch color[dep] {
			case colorWhite:
				dfs(dep)
			case colorGray:
				// Back edge: the dependency chain loops.
				c.Cyclic = true
			}
		}
		color[id] = colorBlack
		c.Order = append(c.Order, id)
	}

	for _, id := range ids {
		if color[id] == colorWhite {
			dfs(id)
		}
	}

	for id := range missing {
		c.Missing = append(c.Missing, id)
	}
	sort.Strings(c.Missing)
	return c
}

// ExclusivityConflicts returns every pair (closure id, active id) where the
// two layers are declared mutually exclusive. A declaration on either side
// binds both. Pairs are ordered by closure id, then active id.
func (g *LayerGraph) ExclusivityConflicts(closure, active []string) []ConflictPair {
	inClosure := make(map[string]bool, len(closure))
	for _, id := range closure {
		inClosure[id] = true
	}

	var pairs []ConflictPair
	for _, id := range closure {
		for _, activeID := range active {
			if activeID == id || inClosure[activeID] {
				// Already part of the request; not a conflict with
				// the running set.
				continue
			}
			if g.exclusive(id, activeID) {
				pairs = append(pairs, ConflictPair{RequestedID: id, ActiveID: activeID})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].RequestedID != pairs[j].RequestedID {
			return pairs[i].RequestedID < pairs[j].RequestedID
		}
		return pairs[i].ActiveID < pairs[j].ActiveID
	})
	return pairs
}

// InternalConflicts returns exclusivity pairs within the given closure
// itself. Such requests cannot be satisfied by deactivation and are rejected.
func (g *LayerGraph) InternalConflicts(closure []string) []ConflictPair {
	var pairs []ConflictPair
	for i, a := range closure {
		for _, b := range closure[i+1:] {
			if g.exclusive(a, b) {
				pairs = append(pairs, ConflictPair{RequestedID: a, ActiveID: b})
			}
		}
	}
	return pairs
}

// exclusive reports whether either layer declares the other exclusive.
func (g *LayerGraph) exclusive(a, b string) bool {
	if la, ok := g.layers[a]; ok {
		for _, x := range la.ExclusiveWith {
			if x == b {
				return true
			}
		}
	}
	if lb, ok := g.layers[b]; ok {
		for _, x := range lb.ExclusiveWith {
			if x == a {
				return true
			}
		}
	}
	return false
}

// Dependents returns the ids of defined layers that declare any of the given
// ids as a direct dependency, sorted. Used on deactivation to decide whether
// dependents must cascade or the request must be rejected.
func (g *LayerGraph) Dependents(ids []string) []string {
	target := make(map[string]bool, len(ids))
	for _, id := range ids {
		target[id] = true
	}

	seen := make(map[string]bool)
	for id, layer := range g.layers {
		if target[id] {
			continue
		}
		for _, dep := range layer.Dependencies {
			if target[dep] {
				seen[id] = true
				break
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
