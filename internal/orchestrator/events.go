// Package orchestrator drives sprint allocation, execution, and
// failure handling over a dependency graph and a worker pool.
package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventSprintClaimed indicates a sprint has been claimed by a worker.
	EventSprintClaimed EventType = "sprint_claimed"
	// EventSprintStarted indicates a sprint has started execution.
	EventSprintStarted EventType = "sprint_started"
	// EventSprintCompleted indicates a sprint completed successfully.
	EventSprintCompleted EventType = "sprint_completed"
	// EventSprintFailed indicates a sprint execution attempt failed.
	EventSprintFailed EventType = "sprint_failed"
	// EventSprintRetried indicates a failed sprint was requeued for retry.
	EventSprintRetried EventType = "sprint_retried"
	// EventSprintAbandoned indicates a sprint failed permanently after
	// exhausting retries. Its downstream subgraph stays blocked.
	EventSprintAbandoned EventType = "sprint_abandoned"
	// EventSprintsUnblocked indicates one or more sprints became ready.
	EventSprintsUnblocked EventType = "sprints_unblocked"
	// EventProjectDone indicates every sprint in the graph is completed.
	EventProjectDone EventType = "project_done"
	// EventProjectStalled indicates no further progress is possible:
	// abandoned sprints block everything that remains.
	EventProjectStalled EventType = "project_stalled"
)

// Event represents an event emitted by the orchestrator.
// These events are used to update the TUI and track progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// SprintID is the ID of the related sprint, if applicable.
	SprintID string
	// SprintTitle is the title of the related sprint, if applicable.
	SprintTitle string
	// WorkerID is the ID of the related worker, if applicable.
	WorkerID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Duration is the actual execution time (for completion events).
	Duration time.Duration
	// Unblocked lists sprint IDs that became ready (for unblock events).
	Unblocked []string
	// RetryCount is the sprint's retry count (for failure events).
	RetryCount int
}
