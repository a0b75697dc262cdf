package models

import "time"

// WorkerStatus represents the availability of a worker.
type WorkerStatus string

const (
	// WorkerStatusAvailable indicates the worker can accept a sprint.
	WorkerStatusAvailable WorkerStatus = "available"
	// WorkerStatusBusy indicates the worker is executing a sprint.
	WorkerStatusBusy WorkerStatus = "busy"
	// WorkerStatusOffline indicates the worker has been deregistered.
	// Workers are never deleted, only marked offline.
	WorkerStatusOffline WorkerStatus = "offline"
)

// Valid returns true if the status is a known value.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusAvailable, WorkerStatusBusy, WorkerStatusOffline:
		return true
	default:
		return false
	}
}

// WorkerType distinguishes ordinary workers from managers.
type WorkerType string

const (
	// WorkerTypeWorker is a standard execution worker.
	WorkerTypeWorker WorkerType = "worker"
	// WorkerTypeManager is a manager-class worker preferred for planning sprints.
	WorkerTypeManager WorkerType = "manager"
)

// Performance tracks a worker's execution history.
type Performance struct {
	// TasksCompleted is the number of sprints this worker has finished.
	TasksCompleted int `json:"tasks_completed"`
	// TasksSucceeded is the number of those attempts that succeeded.
	TasksSucceeded int `json:"tasks_succeeded"`
	// SuccessRate is the fraction of attempts that succeeded, 0-100.
	// Derived from the counters on every recorded outcome.
	SuccessRate float64 `json:"success_rate"`
}

// Worker represents a registered execution worker.
type Worker struct {
	// ID is the unique identifier for this worker.
	ID string `json:"id"`
	// Name is a human-readable label.
	Name string `json:"name,omitempty"`
	// Type is the worker class.
	Type WorkerType `json:"type"`
	// Skills lists the capabilities this worker has.
	Skills []Skill `json:"skills,omitempty"`
	// Status is the current availability of the worker.
	Status WorkerStatus `json:"status"`
	// Performance tracks completion history.
	Performance Performance `json:"performance"`
	// RegisteredAt is when the worker joined the pool.
	RegisteredAt time.Time `json:"registered_at"`
}

// HasSkill returns true if the worker lists the given skill.
func (w *Worker) HasSkill(skill Skill) bool {
	for _, s := range w.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
