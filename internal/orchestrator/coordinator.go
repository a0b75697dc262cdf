package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcolby/sprintloom/internal/graph"
	"github.com/jcolby/sprintloom/pkg/models"
)

// LayerResult reports the outcome of executing one parallel layer.
type LayerResult struct {
	// Succeeded lists sprint IDs that completed, sorted.
	Succeeded []string
	// Failed maps sprint IDs to their execution or claim errors.
	Failed map[string]error
	// Attempted counts sprints actually dispatched to workers.
	Attempted int
	// Elapsed is the wall-clock time for the whole layer.
	Elapsed time.Duration
}

// Coordinator executes the graph layer by layer on top of an Orchestrator:
// within a layer all runnable sprints execute concurrently, and the next
// layer starts only after the current one settles. Each attempt routes
// through the same claim, completion, and failure handling as the
// event-driven path, so retry counting, abandonment, and events behave
// identically. Simpler scheduling than Run, at the cost of idle workers
// near layer boundaries.
type Coordinator struct {
	o             *Orchestrator
	maxConcurrent int
}

// NewCoordinator creates a Coordinator driving the given orchestrator.
// maxConcurrent bounds in-flight executions per layer; zero or negative
// means the pool size.
func NewCoordinator(o *Orchestrator, maxConcurrent int) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = o.pool.Size()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Coordinator{o: o, maxConcurrent: maxConcurrent}
}

// ExecuteLayer runs every ready sprint in the given layer concurrently and
// waits for all of them to settle. Sprints in the layer that are not ready
// (blocked behind earlier failures) are skipped, not failed. A failed
// sprint with retries left comes back ready; rerun the layer to retry it.
func (c *Coordinator) ExecuteLayer(ctx context.Context, layer []string) (*LayerResult, error) {
	result := &LayerResult{Failed: make(map[string]error)}
	started := time.Now()

	var mu sync.Mutex
	g, execCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for _, id := range layer {
		sprint := c.o.graph.Sprint(id)
		if sprint == nil {
			return nil, fmt.Errorf("execute layer: %w: %s", graph.ErrUnknownSprint, id)
		}
		if sprint.Status != models.SprintStatusReady {
			continue
		}

		c.o.mu.Lock()
		worker, err := c.o.claimSprintLocked(ctx, sprint)
		c.o.mu.Unlock()
		if err != nil {
			result.Failed[id] = err
			continue
		}
		result.Attempted++

		g.Go(func() error {
			attemptErr := c.o.attemptSprint(execCtx, sprint, worker)
			mu.Lock()
			defer mu.Unlock()
			if attemptErr != nil {
				result.Failed[sprint.ID] = attemptErr
				return nil
			}
			result.Succeeded = append(result.Succeeded, sprint.ID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(result.Succeeded)
	result.Elapsed = time.Since(started)
	return result, nil
}

// ExecuteAll runs the graph layer by layer until every sprint completes or
// no runnable work remains. A layer whose failures were retryable is rerun,
// so a flaky sprint gets its full retry budget before abandonment blocks
// its downstream subgraph. Layer results are returned in execution order.
func (c *Coordinator) ExecuteAll(ctx context.Context) ([]*LayerResult, error) {
	var results []*LayerResult
	for !c.o.graph.AllCompleted() {
		layer := firstIncompleteLayer(c.o.graph, c.o.graph.ParallelLayers())
		if layer == nil {
			return results, ErrProjectStalled
		}

		res, err := c.ExecuteLayer(ctx, layer)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Attempted == 0 {
			// Ready work exists but no worker could take any of it;
			// rerunning the layer would spin.
			return results, errors.Join(ErrProjectStalled, errNoWorker)
		}
	}
	return results, nil
}

// firstIncompleteLayer picks the earliest layer with runnable work.
func firstIncompleteLayer(g *graph.DependencyGraph, layers [][]string) []string {
	for _, layer := range layers {
		for _, id := range layer {
			s := g.Sprint(id)
			if s != nil && s.Status == models.SprintStatusReady {
				return layer
			}
		}
	}
	return nil
}
