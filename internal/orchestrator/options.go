package orchestrator

import (
	"github.com/jcolby/sprintloom/internal/claim"
	"github.com/jcolby/sprintloom/internal/graph"
	"github.com/jcolby/sprintloom/internal/store"
	"github.com/jcolby/sprintloom/internal/workers"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Graph is the validated dependency graph to execute.
	Graph *graph.DependencyGraph
	// Pool supplies workers for sprint allocation.
	Pool *workers.Pool
	// Executor runs a sprint on a worker and reports its deliverables.
	Executor SprintExecutor
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	claims              *claim.Registry
	recorder            store.Recorder
	logger              *DebugLogger
	maxRetries          int
	timeoutMultiplier   float64
	acceptanceThreshold float64
	eventBuffer         int
	hooks               Hooks
}

// WithClaims sets the claim registry. Defaults to a fresh registry.
func WithClaims(r *claim.Registry) Option {
	return func(o *orchestratorOptions) { o.claims = r }
}

// WithRecorder sets the knowledge-store recorder. Defaults to store.Nop.
func WithRecorder(r store.Recorder) Option {
	return func(o *orchestratorOptions) { o.recorder = r }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithMaxRetries sets the per-sprint retry bound.
func WithMaxRetries(n int) Option {
	return func(o *orchestratorOptions) { o.maxRetries = n }
}

// WithTimeoutMultiplier sets the execution timeout as a multiple of the
// sprint's estimated duration.
func WithTimeoutMultiplier(m float64) Option {
	return func(o *orchestratorOptions) { o.timeoutMultiplier = m }
}

// WithAcceptanceThreshold sets the minimum deliverable check pass rate
// for a sprint to count as completed.
func WithAcceptanceThreshold(t float64) Option {
	return func(o *orchestratorOptions) { o.acceptanceThreshold = t }
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.eventBuffer = n }
}

// WithHooks sets lifecycle callbacks invoked alongside events.
func WithHooks(h Hooks) Option {
	return func(o *orchestratorOptions) { o.hooks = h }
}
