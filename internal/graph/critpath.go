package graph

import "time"

// CriticalPath returns the ordered sprint IDs on the duration-weighted
// longest path through the graph.
func (g *DependencyGraph) CriticalPath() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.critical...)
}

// CriticalPathDuration returns the summed estimated duration of the
// critical path. It lower-bounds total project time.
func (g *DependencyGraph) CriticalPathDuration() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.criticalDur
}

// OnCriticalPath returns true if the sprint lies on the current critical path.
func (g *DependencyGraph) OnCriticalPath(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.onCritical[id]
}

// tail is the best forward path starting at a node.
type tail struct {
	dur  time.Duration
	path []string
}

// recomputeCriticalLocked rebuilds the critical path with a memoized DFS
// from every root, following enables edges forward. Caller must hold the
// write lock. O(V+E) since each node's tail is computed once.
func (g *DependencyGraph) recomputeCriticalLocked() {
	memo := make(map[string]tail, len(g.nodes))

	var tailOf func(id string) tail
	tailOf = func(id string) tail {
		if t, ok := memo[id]; ok {
			return t
		}
		node := g.nodes[id]
		best := tail{}
		found := false
		for _, nextID := range g.enables[id] {
			if _, ok := g.nodes[nextID]; !ok {
				continue
			}
			t := tailOf(nextID)
			if !found || g.betterTail(t, best) {
				best = t
				found = true
			}
		}
		result := tail{
			dur:  node.EstimatedDuration + best.dur,
			path: append([]string{id}, best.path...),
		}
		memo[id] = result
		return result
	}

	var overall tail
	found := false
	for id := range g.nodes {
		if g.hasKnownDepsLocked(id) {
			continue
		}
		t := tailOf(id)
		if !found || g.betterTail(t, overall) {
			overall = t
			found = true
		}
	}

	g.critical = overall.path
	g.criticalDur = overall.dur
	g.onCritical = make(map[string]bool, len(overall.path))
	for _, id := range overall.path {
		g.onCritical[id] = true
	}
}

// betterTail reports whether a should be preferred over b.
// Longer duration wins; ties go to the configured tie-break rule.
func (g *DependencyGraph) betterTail(a, b tail) bool {
	if a.dur != b.dur {
		return a.dur > b.dur
	}
	if g.tieBreak == TieBreakShortest && len(a.path) != len(b.path) {
		return len(a.path) < len(b.path)
	}
	return lexicalLess(a.path, b.path)
}

// lexicalLess compares two id sequences element-wise.
func lexicalLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// hasKnownDepsLocked returns true if the sprint has at least one dependency
// that is present in the graph. Sprints without known dependencies act as
// roots for the critical path search.
func (g *DependencyGraph) hasKnownDepsLocked(id string) bool {
	for _, depID := range g.edges[id] {
		if _, ok := g.nodes[depID]; ok {
			return true
		}
	}
	return false
}
