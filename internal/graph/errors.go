package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycleDetected indicates a circular dependency was found in the sprint graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrAlreadyCompleted indicates a sprint was marked completed twice.
var ErrAlreadyCompleted = errors.New("sprint already completed")

// ErrUnknownSprint indicates an operation referenced a sprint not in the graph.
var ErrUnknownSprint = errors.New("unknown sprint")

// ErrDuplicateSprint indicates a sprint id was added to the graph twice.
var ErrDuplicateSprint = errors.New("duplicate sprint id")

// ErrDanglingDependency indicates a sprint depends on an id not in the graph.
var ErrDanglingDependency = errors.New("dangling dependency")

// CycleError reports the dependency chain that would form a cycle.
type CycleError struct {
	// SprintID is the sprint whose insertion or edge would close the cycle.
	SprintID string
	// Chain is the dependency path that loops back to SprintID.
	Chain []string
}

func (e *CycleError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("sprint %s: %v", e.SprintID, ErrCycleDetected)
	}
	return fmt.Sprintf("sprint %s: %v via %s", e.SprintID, ErrCycleDetected, strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// AlreadyCompletedError reports a double completion of the same sprint.
type AlreadyCompletedError struct {
	SprintID string
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("sprint %s: %v", e.SprintID, ErrAlreadyCompleted)
}

func (e *AlreadyCompletedError) Unwrap() error { return ErrAlreadyCompleted }

// DanglingDependencyError reports a dependency on an id missing from the graph.
type DanglingDependencyError struct {
	SprintID  string
	DependsOn string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("sprint %s depends on unknown sprint %s", e.SprintID, e.DependsOn)
}

func (e *DanglingDependencyError) Unwrap() error { return ErrDanglingDependency }
