package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jcolby/sprintloom/internal/claim"
	"github.com/jcolby/sprintloom/internal/graph"
	"github.com/jcolby/sprintloom/internal/workers"
	"github.com/jcolby/sprintloom/pkg/models"
)

func buildDiamondGraph(t *testing.T) *graph.DependencyGraph {
	t.Helper()
	g := graph.New()
	sprints := []*models.Sprint{
		{ID: "a", Title: "Root", EstimatedDuration: time.Second},
		{ID: "b", Title: "Left", DependsOn: []string{"a"}, EstimatedDuration: time.Second},
		{ID: "c", Title: "Right", DependsOn: []string{"a"}, EstimatedDuration: time.Second},
		{ID: "d", Title: "Join", DependsOn: []string{"b", "c"}, EstimatedDuration: time.Second},
	}
	for _, s := range sprints {
		if err := g.AddNode(s); err != nil {
			t.Fatalf("AddNode(%s): %v", s.ID, err)
		}
	}
	return g
}

func buildPool(t *testing.T, n int) *workers.Pool {
	t.Helper()
	pool := workers.NewPool()
	for i := 0; i < n; i++ {
		pool.Register(&models.Worker{
			ID:     fmt.Sprintf("w%d", i+1),
			Name:   "worker",
			Status: models.WorkerStatusAvailable,
		})
	}
	return pool
}

func succeedExecutor() SprintExecutor {
	return SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		return &models.Deliverables{ActualDuration: time.Millisecond}, nil
	})
}

func drainEvents(events <-chan Event) []Event {
	var out []Event
	for e := range events {
		out = append(out, e)
	}
	return out
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestRunCompletesDiamond(t *testing.T) {
	g := buildDiamondGraph(t)
	pool := buildPool(t, 2)
	registry := claim.NewRegistry()

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: succeedExecutor()},
		WithClaims(registry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !g.AllCompleted() {
		t.Error("expected all sprints completed")
	}
	if registry.Count() != 0 {
		t.Errorf("expected no outstanding claims, got %d", registry.Count())
	}

	events := drainEvents(o.Events())
	if got := countEvents(events, EventSprintCompleted); got != 4 {
		t.Errorf("expected 4 completion events, got %d", got)
	}
	if got := countEvents(events, EventProjectDone); got != 1 {
		t.Errorf("expected 1 project_done event, got %d", got)
	}
}

func TestRunRetriesTransientFailure(t *testing.T) {
	g := graph.New()
	if err := g.AddNode(&models.Sprint{ID: "a", Title: "Flaky", EstimatedDuration: time.Second}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	pool := buildPool(t, 1)

	var mu sync.Mutex
	attempts := 0
	executor := SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return nil, errors.New("transient failure")
		}
		return &models.Deliverables{}, nil
	})

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: executor})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	sprint := g.Sprint("a")
	if sprint.Status != models.SprintStatusCompleted {
		t.Errorf("status = %s, want completed", sprint.Status)
	}
	if sprint.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", sprint.RetryCount)
	}

	events := drainEvents(o.Events())
	if got := countEvents(events, EventSprintRetried); got != 2 {
		t.Errorf("expected 2 retry events, got %d", got)
	}
}

func TestRunAbandonsAfterMaxRetries(t *testing.T) {
	g := graph.New()
	if err := g.AddNode(&models.Sprint{ID: "a", Title: "Doomed", EstimatedDuration: time.Second}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(&models.Sprint{ID: "b", Title: "Downstream", DependsOn: []string{"a"}, EstimatedDuration: time.Second}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	pool := buildPool(t, 1)

	var mu sync.Mutex
	attempts := 0
	executor := SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return nil, errors.New("permanent failure")
	})

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: executor},
		WithMaxRetries(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = o.Run(context.Background())
	if !errors.Is(err, ErrProjectStalled) {
		t.Fatalf("Run error = %v, want ErrProjectStalled", err)
	}

	// Exactly maxRetries attempts, no fourth allocation.
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if got := g.Sprint("a").Status; got != models.SprintStatusFailed {
		t.Errorf("a status = %s, want failed", got)
	}
	// A failed prerequisite must not unblock its dependents.
	if got := g.Sprint("b").Status; got != models.SprintStatusBlocked {
		t.Errorf("b status = %s, want blocked", got)
	}

	events := drainEvents(o.Events())
	if got := countEvents(events, EventSprintAbandoned); got != 1 {
		t.Errorf("expected 1 abandonment event, got %d", got)
	}
	if got := countEvents(events, EventProjectStalled); got != 1 {
		t.Errorf("expected 1 stall event, got %d", got)
	}
}

func TestRunRejectsDeliverablesBelowThreshold(t *testing.T) {
	g := graph.New()
	if err := g.AddNode(&models.Sprint{ID: "a", Title: "Sloppy", EstimatedDuration: time.Second}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	pool := buildPool(t, 1)

	executor := SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		return &models.Deliverables{ChecksPassed: 7, ChecksTotal: 10}, nil
	})

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: executor},
		WithMaxRetries(1), WithAcceptanceThreshold(0.8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = o.Run(context.Background())
	if !errors.Is(err, ErrProjectStalled) {
		t.Fatalf("Run error = %v, want ErrProjectStalled", err)
	}
	if got := g.Sprint("a").Status; got != models.SprintStatusFailed {
		t.Errorf("status = %s, want failed", got)
	}

	var sawRejection bool
	for _, e := range drainEvents(o.Events()) {
		if e.Type == EventSprintFailed && errors.Is(e.Error, ErrDeliverablesRejected) {
			sawRejection = true
		}
	}
	if !sawRejection {
		t.Error("expected a failure event wrapping ErrDeliverablesRejected")
	}
}

func TestRunAcceptsDeliverablesAtLowerThreshold(t *testing.T) {
	g := graph.New()
	if err := g.AddNode(&models.Sprint{ID: "a", Title: "Good enough", EstimatedDuration: time.Second}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	pool := buildPool(t, 1)

	executor := SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		return &models.Deliverables{ChecksPassed: 7, ChecksTotal: 10}, nil
	})

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: executor},
		WithAcceptanceThreshold(0.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !g.AllCompleted() {
		t.Error("expected completion at 0.5 threshold")
	}
}

func TestRunCancellationReleasesClaims(t *testing.T) {
	g := buildDiamondGraph(t)
	pool := buildPool(t, 2)
	registry := claim.NewRegistry()

	executor := SprintExecutorFunc(func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: executor},
		WithClaims(registry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	// Let the root sprint get claimed before cancelling.
	deadline := time.After(2 * time.Second)
	for registry.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("root sprint was never claimed")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}

	if registry.Count() != 0 {
		t.Errorf("expected all claims released, got %d", registry.Count())
	}

	// In-progress work goes back to blocked without a retry penalty.
	a := g.Sprint("a")
	if a.Status != models.SprintStatusBlocked {
		t.Errorf("a status = %s, want blocked", a.Status)
	}
	if a.RetryCount != 0 {
		t.Errorf("a retry count = %d, want 0", a.RetryCount)
	}
}

func TestRunEmptyGraph(t *testing.T) {
	o, err := New(RequiredConfig{Graph: graph.New(), Pool: buildPool(t, 1), Executor: succeedExecutor()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.Run(context.Background()); err == nil {
		t.Error("expected error for empty graph")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	g := graph.New()
	pool := workers.NewPool()
	exec := succeedExecutor()

	if _, err := New(RequiredConfig{Pool: pool, Executor: exec}); err == nil {
		t.Error("expected error without graph")
	}
	if _, err := New(RequiredConfig{Graph: g, Executor: exec}); err == nil {
		t.Error("expected error without pool")
	}
	if _, err := New(RequiredConfig{Graph: g, Pool: pool}); err == nil {
		t.Error("expected error without executor")
	}
}

func TestHooksFire(t *testing.T) {
	g := buildDiamondGraph(t)
	pool := buildPool(t, 2)

	var mu sync.Mutex
	completed := 0
	projectDone := false

	o, err := New(RequiredConfig{Graph: g, Pool: pool, Executor: succeedExecutor()},
		WithHooks(Hooks{
			OnSprintCompleted: func(sprint *models.Sprint, unblocked []string) {
				mu.Lock()
				completed++
				mu.Unlock()
			},
			OnProjectDone: func() {
				mu.Lock()
				projectDone = true
				mu.Unlock()
			},
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if completed != 4 {
		t.Errorf("completion hook fired %d times, want 4", completed)
	}
	if !projectDone {
		t.Error("project done hook never fired")
	}
}
