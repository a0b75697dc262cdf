package graph

import (
	"fmt"
	"sort"
)

// ValidationResult contains the outcome of validating a graph.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks the whole graph for structural problems. Cycles and
// dangling dependency references are errors; excessive depth and fully
// orphaned sprints are warnings only. The orchestrator refuses to start
// execution when Valid is false.
func (g *DependencyGraph) Validate() ValidationResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := ValidationResult{Valid: true}

	if cycle := g.findCycleLocked(); cycle != nil {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("circular dependency: %v", cycle))
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, depID := range g.edges[id] {
			if _, ok := g.nodes[depID]; !ok {
				result.Valid = false
				result.Errors = append(result.Errors,
					(&DanglingDependencyError{SprintID: id, DependsOn: depID}).Error())
			}
		}

		if d := g.depth[id]; d > g.maxDepth {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("sprint %s has dependency depth %d, exceeding max depth %d", id, d, g.maxDepth))
		}

		if len(g.nodes) > 1 && len(g.edges[id]) == 0 && len(g.enables[id]) == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("sprint %s is orphaned: no dependencies and no dependents", id))
		}
	}

	return result
}

// findCycleLocked runs a global DFS with coloring to detect back edges.
// Returns the ids involved in a cycle, or nil. Caller must hold a lock.
func (g *DependencyGraph) findCycleLocked() []string {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		stack = append(stack, id)

		for _, depID := range g.edges[id] {
			if _, ok := g.nodes[depID]; !ok {
				continue
			}
			switch colors[depID] {
			case 1:
				// Back edge: slice the recursion stack from the repeat point.
				for i, sid := range stack {
					if sid == depID {
						cycle = append([]string(nil), stack[i:]...)
						break
					}
				}
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		stack = stack[:len(stack)-1]
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return cycle
		}
	}
	return nil
}
