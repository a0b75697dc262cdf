// Package graph provides the sprint dependency graph used for scheduling.
package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jcolby/sprintloom/pkg/models"
)

// DefaultMaxDepth is the dependency chain length beyond which Validate warns.
const DefaultMaxDepth = 10

// TieBreak selects how equal-duration critical path candidates are resolved.
type TieBreak string

const (
	// TieBreakLexical prefers the lexicographically smaller id sequence.
	TieBreakLexical TieBreak = "lexical"
	// TieBreakShortest prefers the path with fewer hops.
	TieBreakShortest TieBreak = "shortest"
)

// DependencyGraph is a directed acyclic graph of sprints.
// Edges represent "blocked by" relationships. All methods are safe for
// concurrent use; reads take the read lock and may run concurrently.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps sprint ID to the sprint itself.
	nodes map[string]*models.Sprint
	// edges maps sprint ID to IDs of sprints it depends on.
	edges map[string][]string
	// enables maps sprint ID to IDs of sprints it unblocks (inverse of edges).
	enables map[string][]string
	// pending maps sprint ID to the set of its dependencies not yet completed.
	pending map[string]map[string]bool
	// depth maps sprint ID to its longest dependency chain length.
	depth map[string]int
	// critical is the current duration-weighted longest path, in order.
	critical []string
	// criticalDur is the summed estimated duration of the critical path.
	criticalDur time.Duration
	// onCritical marks membership in the critical path for fast lookup.
	onCritical map[string]bool

	maxDepth int
	tieBreak TieBreak
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph with default settings.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:      make(map[string]*models.Sprint),
		edges:      make(map[string][]string),
		enables:    make(map[string][]string),
		pending:    make(map[string]map[string]bool),
		depth:      make(map[string]int),
		onCritical: make(map[string]bool),
		maxDepth:   DefaultMaxDepth,
		tieBreak:   TieBreakLexical,
		debugLog:   func(format string, args ...interface{}) {},
	}
}

// SetMaxDepth overrides the depth threshold used for validation warnings.
func (g *DependencyGraph) SetMaxDepth(d int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d > 0 {
		g.maxDepth = d
	}
}

// SetTieBreak sets the critical path tie-break rule.
func (g *DependencyGraph) SetTieBreak(tb TieBreak) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tb == TieBreakLexical || tb == TieBreakShortest {
		g.tieBreak = tb
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// AddNode inserts a sprint into the graph. A sprint id may be added only
// once; re-adding it is rejected so dependency edges cannot change after
// validation. Returns a *CycleError if following the dependencies
// transitively would loop back to this sprint. The graph is not mutated
// on error.
func (g *DependencyGraph) AddNode(sprint *models.Sprint) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := sprint.ID
	if _, known := g.nodes[id]; known {
		return fmt.Errorf("%w: %s", ErrDuplicateSprint, id)
	}

	// Probe for cycles before touching any state. Each proposed dependency
	// is followed transitively; reaching id again means the insert would
	// close a loop.
	for _, depID := range sprint.DependsOn {
		if depID == id {
			return &CycleError{SprintID: id, Chain: []string{id, id}}
		}
		if chain := g.findPathLocked(depID, id); chain != nil {
			return &CycleError{SprintID: id, Chain: append([]string{id}, chain...)}
		}
	}

	g.nodes[id] = sprint
	g.edges[id] = nil
	g.debugLog("[graph.AddNode] added sprint %s (%d deps)", id, len(sprint.DependsOn))

	for _, depID := range sprint.DependsOn {
		if containsID(g.edges[id], depID) {
			continue
		}
		g.edges[id] = append(g.edges[id], depID)
		g.enables[depID] = append(g.enables[depID], id)
		if g.pending[id] == nil {
			g.pending[id] = make(map[string]bool)
		}
		dep, ok := g.nodes[depID]
		if !ok || dep.Status != models.SprintStatusCompleted {
			g.pending[id][depID] = true
		}
	}

	if sprint.Status != models.SprintStatusCompleted {
		if len(g.pending[id]) == 0 {
			sprint.Status = models.SprintStatusReady
		} else {
			sprint.Status = models.SprintStatusBlocked
		}
	}

	g.recomputeDepthsLocked()
	g.recomputeCriticalLocked()
	return nil
}

// findPathLocked follows dependency edges from start looking for target.
// Returns the path start..target if found, nil otherwise.
func (g *DependencyGraph) findPathLocked(start, target string) []string {
	var stack []string
	seen := make(map[string]bool)

	var visit func(id string) bool
	visit = func(id string) bool {
		if seen[id] {
			return false
		}
		seen[id] = true
		stack = append(stack, id)
		if id == target {
			return true
		}
		for _, depID := range g.edges[id] {
			if visit(depID) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		return false
	}

	if visit(start) {
		return append([]string(nil), stack...)
	}
	return nil
}

// CanExecute returns true iff every dependency of the sprint is completed.
// Pure query with no side effects.
func (g *DependencyGraph) CanExecute(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return false
	}
	for _, depID := range g.edges[id] {
		dep, ok := g.nodes[depID]
		if !ok || dep.Status != models.SprintStatusCompleted {
			return false
		}
	}
	return true
}

// MarkCompleted transitions a sprint to completed and propagates the change
// to its dependents. Sprints whose last blocker this was become ready and are
// returned, sorted by id. The critical path is recomputed before returning,
// so callers observe a fully consistent graph.
// Returns *AlreadyCompletedError if the sprint is already completed.
func (g *DependencyGraph) MarkCompleted(id string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sprint, ok := g.nodes[id]
	if !ok {
		return nil, ErrUnknownSprint
	}
	if sprint.Status == models.SprintStatusCompleted {
		return nil, &AlreadyCompletedError{SprintID: id}
	}

	sprint.Status = models.SprintStatusCompleted
	now := time.Now()
	sprint.CompletedAt = &now

	var unblocked []string
	for _, depID := range g.enables[id] {
		pend := g.pending[depID]
		if pend == nil {
			continue
		}
		delete(pend, id)
		node := g.nodes[depID]
		if len(pend) == 0 && node != nil && node.Status == models.SprintStatusBlocked {
			node.Status = models.SprintStatusReady
			unblocked = append(unblocked, depID)
		}
	}
	sort.Strings(unblocked)

	g.recomputeCriticalLocked()

	g.debugLog("[graph.MarkCompleted] %s completed, unblocked %v", id, unblocked)
	return unblocked, nil
}

// ReadySprints returns all sprints with status ready, ordered so that
// critical path members come first, then shallower nodes, then higher
// priority. Unblocking critical work early minimizes total makespan;
// shallow nodes win ties because more of the graph sits behind them.
func (g *DependencyGraph) ReadySprints() []*models.Sprint {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Sprint
	for _, sprint := range g.nodes {
		if sprint.Status == models.SprintStatusReady {
			ready = append(ready, sprint)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		ac, bc := g.onCritical[a.ID], g.onCritical[b.ID]
		if ac != bc {
			return ac
		}
		if g.depth[a.ID] != g.depth[b.ID] {
			return g.depth[a.ID] < g.depth[b.ID]
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	return ready
}

// ParallelLayers partitions the graph into topological layers by depth.
// Layers before the execution frontier contain completed work; within the
// frontier layer only ready or completed sprints appear, so sprints still
// blocked by an incomplete earlier node are withheld until unblocked.
// Layers past the frontier list their full depth bucket.
func (g *DependencyGraph) ParallelLayers() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return nil
	}

	maxDepth := 0
	for _, d := range g.depth {
		if d > maxDepth {
			maxDepth = d
		}
	}

	buckets := make([][]string, maxDepth+1)
	for id := range g.nodes {
		buckets[g.depth[id]] = append(buckets[g.depth[id]], id)
	}

	// The frontier is the shallowest layer with incomplete work.
	frontier := maxDepth + 1
	for d := 0; d <= maxDepth && frontier > maxDepth; d++ {
		for _, id := range buckets[d] {
			if g.nodes[id].Status != models.SprintStatusCompleted {
				frontier = d
				break
			}
		}
	}

	var layers [][]string
	for d := 0; d <= maxDepth; d++ {
		var layer []string
		for _, id := range buckets[d] {
			if d == frontier {
				status := g.nodes[id].Status
				if status != models.SprintStatusReady && status != models.SprintStatusCompleted {
					continue
				}
			}
			layer = append(layer, id)
		}
		sort.Strings(layer)
		if len(layer) > 0 {
			layers = append(layers, layer)
		}
	}
	return layers
}

// Sprint returns the sprint for a given ID, or nil if not found.
func (g *DependencyGraph) Sprint(id string) *models.Sprint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// SetStatus transitions a sprint to the given status. Completion must go
// through MarkCompleted so dependents are unblocked.
func (g *DependencyGraph) SetStatus(id string, status models.SprintStatus) error {
	if status == models.SprintStatusCompleted {
		return fmt.Errorf("set status %s: use MarkCompleted", id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sprint, ok := g.nodes[id]
	if !ok {
		return ErrUnknownSprint
	}
	g.debugLog("[graph.SetStatus] %s: %s -> %s", id, sprint.Status, status)
	sprint.Status = status
	return nil
}

// Size returns the number of sprints in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Depth returns the longest dependency chain length for the sprint.
func (g *DependencyGraph) Depth(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.depth[id]
}

// Dependencies returns the IDs the given sprint depends on.
func (g *DependencyGraph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[id]...)
}

// Dependents returns the IDs of sprints that depend on the given sprint.
func (g *DependencyGraph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.enables[id]...)
}

// AllSprints returns every sprint in the graph, sorted by id.
func (g *DependencyGraph) AllSprints() []*models.Sprint {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sprints := make([]*models.Sprint, 0, len(g.nodes))
	for _, s := range g.nodes {
		sprints = append(sprints, s)
	}
	sort.Slice(sprints, func(i, j int) bool { return sprints[i].ID < sprints[j].ID })
	return sprints
}

// AllCompleted returns true when every sprint in the graph is completed.
func (g *DependencyGraph) AllCompleted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return false
	}
	for _, s := range g.nodes {
		if s.Status != models.SprintStatusCompleted {
			return false
		}
	}
	return true
}

// recomputeDepthsLocked rebuilds the depth map from scratch.
// depth(n) = 0 for roots, else 1 + max over dependencies.
// Caller must hold the write lock.
func (g *DependencyGraph) recomputeDepthsLocked() {
	memo := make(map[string]int, len(g.nodes))
	visiting := make(map[string]bool)

	var depthOf func(id string) int
	depthOf = func(id string) int {
		if d, ok := memo[id]; ok {
			return d
		}
		if visiting[id] {
			// Cycle guard; AddNode rejects cycles so this should not fire.
			return 0
		}
		visiting[id] = true
		d := 0
		for _, depID := range g.edges[id] {
			if _, ok := g.nodes[depID]; !ok {
				continue
			}
			if dd := depthOf(depID) + 1; dd > d {
				d = dd
			}
		}
		delete(visiting, id)
		memo[id] = d
		return d
	}

	for id := range g.nodes {
		g.depth[id] = depthOf(id)
	}
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
