package models

import "time"

// SprintStatus represents the current state of a sprint.
type SprintStatus string

const (
	// SprintStatusBacklog indicates the sprint has been created but not yet planned.
	SprintStatusBacklog SprintStatus = "backlog"
	// SprintStatusBlocked indicates the sprint is waiting on unfinished dependencies.
	SprintStatusBlocked SprintStatus = "blocked"
	// SprintStatusReady indicates all dependencies are satisfied and the sprint can be claimed.
	SprintStatusReady SprintStatus = "ready"
	// SprintStatusClaimed indicates a worker has exclusive ownership of the sprint.
	SprintStatusClaimed SprintStatus = "claimed"
	// SprintStatusInProgress indicates the sprint is being executed.
	SprintStatusInProgress SprintStatus = "in_progress"
	// SprintStatusCompleted indicates the sprint finished successfully.
	SprintStatusCompleted SprintStatus = "completed"
	// SprintStatusFailed indicates the sprint failed permanently after exhausting retries.
	SprintStatusFailed SprintStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SprintStatus) Valid() bool {
	switch s {
	case SprintStatusBacklog, SprintStatusBlocked, SprintStatusReady,
		SprintStatusClaimed, SprintStatusInProgress, SprintStatusCompleted,
		SprintStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are possible from this status.
func (s SprintStatus) Terminal() bool {
	return s == SprintStatusCompleted || s == SprintStatusFailed
}

// Skill identifies a capability a worker can have and a sprint can require.
type Skill string

// Sprint represents a bounded-duration unit of work in the dependency graph.
type Sprint struct {
	// ID is the unique identifier for this sprint.
	ID string `json:"id"`
	// Title is the short description of the sprint.
	Title string `json:"title"`
	// Description provides detailed information about the sprint.
	Description string `json:"description,omitempty"`
	// Phase is the work phase this sprint belongs to.
	Phase Phase `json:"phase"`
	// Status is the current state of the sprint.
	Status SprintStatus `json:"status"`
	// DependsOn lists sprint IDs that must complete before this sprint.
	DependsOn []string `json:"depends_on,omitempty"`
	// EstimatedDuration is the expected execution time.
	EstimatedDuration time.Duration `json:"estimated_duration"`
	// RequiredSkills lists the skills a worker needs to execute this sprint.
	RequiredSkills []Skill `json:"required_skills,omitempty"`
	// Priority orders sprints within a layer; higher runs first.
	Priority int `json:"priority"`
	// Deliverable describes the expected output of the sprint.
	Deliverable string `json:"deliverable,omitempty"`
	// AssignedTo is the ID of the worker currently owning this sprint.
	AssignedTo string `json:"assigned_to,omitempty"`
	// RetryCount is the number of times this sprint has been retried.
	RetryCount int `json:"retry_count,omitempty"`
	// Error contains the error message from the most recent failure.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the sprint was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the sprint completed, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RequiresSkill returns true if the sprint lists the given skill.
func (s *Sprint) RequiresSkill(skill Skill) bool {
	for _, sk := range s.RequiredSkills {
		if sk == skill {
			return true
		}
	}
	return false
}

// Deliverables is the result reported by a worker execution callback.
type Deliverables struct {
	// Artifacts maps deliverable names to their produced content or location.
	Artifacts map[string]string `json:"artifacts,omitempty"`
	// ActualDuration is how long the execution actually took.
	ActualDuration time.Duration `json:"actual_duration"`
	// ChecksPassed is the number of required checks that passed.
	ChecksPassed int `json:"checks_passed,omitempty"`
	// ChecksTotal is the number of required checks that were run.
	ChecksTotal int `json:"checks_total,omitempty"`
}

// PassRate returns the fraction of required checks that passed.
// Returns 1.0 when no checks were reported.
func (d *Deliverables) PassRate() float64 {
	if d.ChecksTotal == 0 {
		return 1.0
	}
	return float64(d.ChecksPassed) / float64(d.ChecksTotal)
}
