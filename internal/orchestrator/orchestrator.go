package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jcolby/sprintloom/internal/claim"
	"github.com/jcolby/sprintloom/internal/graph"
	"github.com/jcolby/sprintloom/internal/store"
	"github.com/jcolby/sprintloom/internal/workers"
	"github.com/jcolby/sprintloom/pkg/models"
)

const (
	defaultMaxRetries          = 3
	defaultTimeoutMultiplier   = 1.5
	defaultAcceptanceThreshold = 0.8
	defaultEventBuffer         = 256

	// fallbackTimeout bounds execution of sprints with no estimate.
	fallbackTimeout = 30 * time.Minute
)

// ErrDeliverablesRejected indicates a sprint's deliverable checks passed at
// a rate below the acceptance threshold. Routed through the retry path.
var ErrDeliverablesRejected = errors.New("deliverables below acceptance threshold")

// ErrProjectStalled indicates no further progress is possible: every
// remaining sprint is abandoned or blocked behind an abandoned one.
var ErrProjectStalled = errors.New("project stalled: abandoned sprints block all remaining work")

// errNoWorker indicates no available worker matched a ready sprint.
var errNoWorker = errors.New("no available worker")

// SprintExecutor runs a sprint on a worker. The real work happens in an
// external collaborator; the orchestrator only awaits the result.
type SprintExecutor interface {
	Execute(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error)
}

// SprintExecutorFunc adapts a function to the SprintExecutor interface.
type SprintExecutorFunc func(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error)

// Execute calls f.
func (f SprintExecutorFunc) Execute(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (*models.Deliverables, error) {
	return f(ctx, sprint, worker)
}

// Hooks are optional lifecycle callbacks invoked synchronously alongside
// events. Nil hooks are skipped.
type Hooks struct {
	// OnSprintCompleted fires after a sprint completes and its dependents
	// are unblocked.
	OnSprintCompleted func(sprint *models.Sprint, unblocked []string)
	// OnSprintFailed fires on every failed execution attempt, including
	// the final one.
	OnSprintFailed func(sprint *models.Sprint, err error)
	// OnSprintAbandoned fires when a sprint fails permanently.
	OnSprintAbandoned func(sprint *models.Sprint)
	// OnSprintsUnblocked fires when a completion makes sprints ready.
	OnSprintsUnblocked func(unblocked []string)
	// OnDependencyViolation fires when a completion callback finds the
	// graph in an inconsistent state, such as a double completion.
	OnDependencyViolation func(sprintID string, err error)
	// OnProjectDone fires when every sprint in the graph is completed.
	OnProjectDone func()
}

// Orchestrator allocates ready sprints to workers, supervises execution,
// and reacts to completion and failure by unblocking or retrying
// downstream work.
type Orchestrator struct {
	graph    *graph.DependencyGraph
	pool     *workers.Pool
	claims   *claim.Registry
	executor SprintExecutor
	recorder store.Recorder
	emitter  *EventEmitter
	logger   *DebugLogger
	hooks    Hooks

	maxRetries          int
	timeoutMultiplier   float64
	acceptanceThreshold float64

	// mu serializes allocation and completion/failure handling. The graph
	// and claim registry have their own locks; this one keeps the
	// claim-then-transition sequence atomic across both.
	mu sync.Mutex
	// records maps sprint IDs to knowledge-store record IDs.
	records map[string]string
	// inflight counts sprints currently claimed or executing.
	inflight int
	// done is closed when the run reaches a terminal state.
	done chan struct{}
	// doneErr is the terminal error, nil on full completion.
	doneErr  error
	doneOnce sync.Once
	// halted stops new allocations once the run is cancelled or finished.
	halted bool
	// wg tracks execution goroutines.
	wg sync.WaitGroup
}

// New creates an Orchestrator for the given graph, pool, and executor.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Graph == nil {
		return nil, fmt.Errorf("orchestrator: Graph is required")
	}
	if req.Pool == nil {
		return nil, fmt.Errorf("orchestrator: Pool is required")
	}
	if req.Executor == nil {
		return nil, fmt.Errorf("orchestrator: Executor is required")
	}

	options := &orchestratorOptions{
		maxRetries:          defaultMaxRetries,
		timeoutMultiplier:   defaultTimeoutMultiplier,
		acceptanceThreshold: defaultAcceptanceThreshold,
		eventBuffer:         defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.claims == nil {
		options.claims = claim.NewRegistry()
	}
	if options.recorder == nil {
		options.recorder = store.Nop{}
	}
	if options.logger == nil {
		options.logger = NopLogger()
	}

	setPackageLogger(options.logger)

	o := &Orchestrator{
		graph:               req.Graph,
		pool:                req.Pool,
		claims:              options.claims,
		executor:            req.Executor,
		recorder:            options.recorder,
		emitter:             NewEventEmitter(options.eventBuffer),
		logger:              options.logger,
		hooks:               options.hooks,
		maxRetries:          options.maxRetries,
		timeoutMultiplier:   options.timeoutMultiplier,
		acceptanceThreshold: options.acceptanceThreshold,
		records:             make(map[string]string),
		done:                make(chan struct{}),
	}
	o.graph.SetDebugLog(debugLog)
	return o, nil
}

// Events returns the event stream for subscribers such as the TUI.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Run executes the graph to completion, stall, or cancellation.
// On cancellation all outstanding claims are released and in-progress
// sprints are marked blocked, not failed, so a future resume can
// re-allocate them without penalizing retry counts.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.graph.Size() == 0 {
		o.emitter.Close()
		return fmt.Errorf("orchestrator: graph has no sprints")
	}

	o.createRecords(ctx)

	o.mu.Lock()
	o.allocateLocked(ctx)
	o.checkTerminalLocked()
	o.mu.Unlock()

	select {
	case <-ctx.Done():
		o.cancel()
		o.wg.Wait()
		o.emitter.Close()
		return ctx.Err()
	case <-o.done:
		o.wg.Wait()
		if o.doneErr == nil {
			o.emit(Event{Type: EventProjectDone, Timestamp: time.Now()})
			if o.hooks.OnProjectDone != nil {
				o.hooks.OnProjectDone()
			}
		} else {
			o.emit(Event{Type: EventProjectStalled, Error: o.doneErr, Timestamp: time.Now()})
		}
		o.emitter.Close()
		return o.doneErr
	}
}

// createRecords mirrors every sprint into the knowledge store up front.
// Store failures are logged and tolerated.
func (o *Orchestrator) createRecords(ctx context.Context) {
	for _, sprint := range o.graph.AllSprints() {
		recordID, err := o.recorder.CreateSprintRecord(ctx, sprint)
		if err != nil {
			o.logger.Log("store: create record for %s: %v", sprint.ID, err)
			continue
		}
		o.mu.Lock()
		o.records[sprint.ID] = recordID
		o.mu.Unlock()
	}
}

// AllocateReadySprints assigns ready sprints to best-matching workers and
// starts their execution. Safe to call concurrently with completion
// callbacks. Returns the number of sprints allocated.
func (o *Orchestrator) AllocateReadySprints(ctx context.Context) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.allocateLocked(ctx)
}

// allocateLocked walks ready sprints in graph order, claiming each for the
// best-matching available worker. A lost claim race is not an error; the
// sprint is simply skipped this pass. Caller must hold o.mu.
func (o *Orchestrator) allocateLocked(ctx context.Context) int {
	if o.halted {
		return 0
	}

	allocated := 0
	for _, sprint := range o.graph.ReadySprints() {
		worker, err := o.claimSprintLocked(ctx, sprint)
		if err != nil {
			var claimErr *claim.AlreadyClaimedError
			switch {
			case errors.Is(err, errNoWorker):
				// Later sprints may have different skill requirements,
				// keep scanning.
			case errors.As(err, &claimErr):
				debugLog("[allocate] %s lost claim race to %s", sprint.ID, claimErr.CurrentOwner)
			default:
				o.logger.Log("allocate: claim %s: %v", sprint.ID, err)
			}
			continue
		}

		o.inflight++
		allocated++
		o.wg.Add(1)
		go o.runSprint(ctx, sprint, worker)
	}
	return allocated
}

// claimSprintLocked pairs a ready sprint with its best-matching worker,
// claims it, and transitions it through claimed into in_progress, emitting
// both events. Caller must hold o.mu.
func (o *Orchestrator) claimSprintLocked(ctx context.Context, sprint *models.Sprint) (*models.Worker, error) {
	worker := o.pool.BestMatch(sprint)
	if worker == nil {
		return nil, fmt.Errorf("%w for %s", errNoWorker, sprint.ID)
	}

	if err := o.claims.Claim(worker.ID, sprint.ID); err != nil {
		return nil, err
	}

	sprint.AssignedTo = worker.ID
	o.graph.SetStatus(sprint.ID, models.SprintStatusClaimed)
	o.pool.SetStatus(worker.ID, models.WorkerStatusBusy)
	o.persistClaim(ctx, sprint.ID, worker.ID)
	o.emit(Event{
		Type:        EventSprintClaimed,
		SprintID:    sprint.ID,
		SprintTitle: sprint.Title,
		WorkerID:    worker.ID,
		Timestamp:   time.Now(),
	})

	o.graph.SetStatus(sprint.ID, models.SprintStatusInProgress)
	o.persistStatus(ctx, sprint.ID, models.SprintStatusInProgress)
	o.emit(Event{
		Type:        EventSprintStarted,
		SprintID:    sprint.ID,
		SprintTitle: sprint.Title,
		WorkerID:    worker.ID,
		Timestamp:   time.Now(),
	})
	return worker, nil
}

// runSprint executes one sprint and routes the result through the
// completion or failure path, then re-allocates and re-checks for a
// terminal state.
func (o *Orchestrator) runSprint(ctx context.Context, sprint *models.Sprint, worker *models.Worker) {
	defer o.wg.Done()

	elapsed, err := o.executeOnce(ctx, sprint, worker)

	if ctx.Err() != nil {
		// Whole-project cancellation; handled centrally by cancel().
		return
	}

	if err != nil {
		o.onSprintFailed(ctx, sprint.ID, worker.ID, err)
		return
	}
	o.onSprintCompleted(ctx, sprint.ID, worker.ID, elapsed)
}

// attemptSprint executes one already-claimed sprint synchronously and
// routes the result through the shared completion and failure handling,
// without touching allocation or terminal detection. Used by the
// layer-by-layer Coordinator. Returns nil when the sprint completed.
func (o *Orchestrator) attemptSprint(ctx context.Context, sprint *models.Sprint, worker *models.Worker) error {
	elapsed, err := o.executeOnce(ctx, sprint, worker)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failLocked(ctx, sprint.ID, worker.ID, err)
		return err
	}
	return o.completeLocked(ctx, sprint.ID, worker.ID, elapsed)
}

// executeOnce runs a single execution attempt under its timeout and
// classifies the outcome: execution errors and deliverables below the
// acceptance threshold both come back as errors.
func (o *Orchestrator) executeOnce(ctx context.Context, sprint *models.Sprint, worker *models.Worker) (time.Duration, error) {
	timeout := o.executionTimeout(sprint)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	deliverables, err := o.executor.Execute(execCtx, sprint, worker)
	elapsed := time.Since(started)

	switch {
	case err != nil:
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("execution timed out after %s: %w", timeout, err)
		}
		return elapsed, err
	case deliverables != nil && deliverables.PassRate() < o.acceptanceThreshold:
		return elapsed, fmt.Errorf("%w: %d/%d checks passed, need %.0f%%",
			ErrDeliverablesRejected, deliverables.ChecksPassed, deliverables.ChecksTotal,
			o.acceptanceThreshold*100)
	default:
		return elapsed, nil
	}
}

// executionTimeout returns the deadline for one execution attempt.
func (o *Orchestrator) executionTimeout(sprint *models.Sprint) time.Duration {
	if sprint.EstimatedDuration <= 0 {
		return fallbackTimeout
	}
	return time.Duration(float64(sprint.EstimatedDuration) * o.timeoutMultiplier)
}

// onSprintCompleted routes a completion through the shared handler, then
// re-allocates newly unblocked work and re-checks for a terminal state.
func (o *Orchestrator) onSprintCompleted(ctx context.Context, sprintID, workerID string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight--
	if err := o.completeLocked(ctx, sprintID, workerID, elapsed); err != nil {
		o.checkTerminalLocked()
		return
	}
	o.allocateLocked(ctx)
	o.checkTerminalLocked()
}

// completeLocked releases the claim, marks the sprint completed, records
// worker performance, and announces any newly unblocked sprints.
// Caller must hold o.mu.
func (o *Orchestrator) completeLocked(ctx context.Context, sprintID, workerID string, elapsed time.Duration) error {
	o.claims.Release(workerID, sprintID)
	o.pool.SetStatus(workerID, models.WorkerStatusAvailable)
	o.pool.RecordOutcome(workerID, true)

	unblocked, err := o.graph.MarkCompleted(sprintID)
	if err != nil {
		o.logger.Log("complete: mark %s: %v", sprintID, err)
		if o.hooks.OnDependencyViolation != nil {
			o.hooks.OnDependencyViolation(sprintID, err)
		}
		return err
	}

	sprint := o.graph.Sprint(sprintID)
	o.persistStatus(ctx, sprintID, models.SprintStatusCompleted)
	o.emit(Event{
		Type:        EventSprintCompleted,
		SprintID:    sprintID,
		SprintTitle: sprint.Title,
		WorkerID:    workerID,
		Duration:    elapsed,
		Timestamp:   time.Now(),
	})
	if len(unblocked) > 0 {
		for _, id := range unblocked {
			o.persistStatus(ctx, id, models.SprintStatusReady)
		}
		o.emit(Event{
			Type:      EventSprintsUnblocked,
			SprintID:  sprintID,
			Unblocked: unblocked,
			Timestamp: time.Now(),
		})
		if o.hooks.OnSprintsUnblocked != nil {
			o.hooks.OnSprintsUnblocked(unblocked)
		}
	}
	if o.hooks.OnSprintCompleted != nil {
		o.hooks.OnSprintCompleted(sprint, unblocked)
	}
	return nil
}

// onSprintFailed routes a failed attempt through the shared handler, then
// re-allocates and re-checks for a terminal state.
func (o *Orchestrator) onSprintFailed(ctx context.Context, sprintID, workerID string, execErr error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight--
	o.failLocked(ctx, sprintID, workerID, execErr)
	o.allocateLocked(ctx)
	o.checkTerminalLocked()
}

// failLocked releases the claim and either requeues the sprint or, once
// retries are exhausted, abandons it. An abandoned sprint keeps its
// entire downstream subgraph blocked; a failed prerequisite must not
// silently unblock dependents. Caller must hold o.mu.
func (o *Orchestrator) failLocked(ctx context.Context, sprintID, workerID string, execErr error) {
	o.claims.Release(workerID, sprintID)
	o.pool.SetStatus(workerID, models.WorkerStatusAvailable)
	o.pool.RecordOutcome(workerID, false)

	sprint := o.graph.Sprint(sprintID)
	if sprint == nil {
		o.logger.Log("fail: unknown sprint %s", sprintID)
		return
	}

	sprint.RetryCount++
	sprint.Error = execErr.Error()
	sprint.AssignedTo = ""

	o.emit(Event{
		Type:        EventSprintFailed,
		SprintID:    sprintID,
		SprintTitle: sprint.Title,
		WorkerID:    workerID,
		Error:       execErr,
		RetryCount:  sprint.RetryCount,
		Timestamp:   time.Now(),
	})
	if o.hooks.OnSprintFailed != nil {
		o.hooks.OnSprintFailed(sprint, execErr)
	}

	if sprint.RetryCount < o.maxRetries {
		o.graph.SetStatus(sprintID, models.SprintStatusReady)
		o.persistStatus(ctx, sprintID, models.SprintStatusReady)
		o.emit(Event{
			Type:        EventSprintRetried,
			SprintID:    sprintID,
			SprintTitle: sprint.Title,
			RetryCount:  sprint.RetryCount,
			Timestamp:   time.Now(),
		})
		return
	}

	o.graph.SetStatus(sprintID, models.SprintStatusFailed)
	o.persistStatus(ctx, sprintID, models.SprintStatusFailed)
	o.logger.Log("abandon: %s after %d attempts: %v", sprintID, sprint.RetryCount, execErr)
	o.emit(Event{
		Type:        EventSprintAbandoned,
		SprintID:    sprintID,
		SprintTitle: sprint.Title,
		Error:       execErr,
		RetryCount:  sprint.RetryCount,
		Timestamp:   time.Now(),
	})
	if o.hooks.OnSprintAbandoned != nil {
		o.hooks.OnSprintAbandoned(sprint)
	}
}

// checkTerminalLocked signals completion when every sprint is done, or a
// stall when nothing is running and incomplete work remains. With no
// in-flight sprint there is no future completion callback to trigger
// another allocation pass, so remaining work is unreachable.
// Caller must hold o.mu.
func (o *Orchestrator) checkTerminalLocked() {
	if o.halted {
		return
	}
	if o.graph.AllCompleted() {
		o.halted = true
		o.signalDone(nil)
		return
	}
	if o.inflight == 0 {
		o.halted = true
		o.signalDone(fmt.Errorf("%w: %s", ErrProjectStalled, o.describeStallLocked()))
	}
}

// describeStallLocked summarizes abandoned and blocked sprints for the
// stall error. Caller must hold o.mu.
func (o *Orchestrator) describeStallLocked() string {
	var abandoned, blocked []string
	for _, s := range o.graph.AllSprints() {
		switch s.Status {
		case models.SprintStatusFailed:
			abandoned = append(abandoned, s.ID)
		case models.SprintStatusBlocked:
			blocked = append(blocked, s.ID)
		}
	}
	return fmt.Sprintf("abandoned %v, blocked %v", abandoned, blocked)
}

func (o *Orchestrator) signalDone(err error) {
	o.doneOnce.Do(func() {
		o.doneErr = err
		close(o.done)
	})
}

// cancel releases every outstanding claim and marks in-progress sprints
// blocked so a resume can re-allocate them without retry penalty.
func (o *Orchestrator) cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.halted = true
	released := o.claims.ReleaseAll()
	for _, s := range o.graph.AllSprints() {
		if s.Status == models.SprintStatusClaimed || s.Status == models.SprintStatusInProgress {
			s.AssignedTo = ""
			o.graph.SetStatus(s.ID, models.SprintStatusBlocked)
		}
	}
	o.logger.Log("cancel: released %d claims", len(released))
	o.signalDone(context.Canceled)
}

// persistClaim mirrors a claim into the knowledge store. Best effort.
func (o *Orchestrator) persistClaim(ctx context.Context, sprintID, workerID string) {
	recordID, ok := o.records[sprintID]
	if !ok {
		return
	}
	if err := o.recorder.ClaimSprintRecord(ctx, recordID, workerID); err != nil {
		o.logger.Log("store: claim record %s: %v", sprintID, err)
	}
}

// persistStatus mirrors a status transition into the knowledge store.
// Best effort.
func (o *Orchestrator) persistStatus(ctx context.Context, sprintID string, status models.SprintStatus) {
	recordID, ok := o.records[sprintID]
	if !ok {
		return
	}
	if err := o.recorder.UpdateSprintStatus(ctx, recordID, status); err != nil {
		o.logger.Log("store: update record %s: %v", sprintID, err)
	}
}

func (o *Orchestrator) emit(event Event) {
	o.emitter.Emit(event)
}
