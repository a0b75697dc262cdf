// Package claim provides atomic sprint ownership tracking.
package claim

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyClaimed indicates a sprint is owned by another worker.
// Claim races are expected under concurrency; callers skip and retry on the
// next allocation pass rather than treating this as a failure.
var ErrAlreadyClaimed = errors.New("sprint already claimed")

// AlreadyClaimedError reports the worker currently holding the sprint.
type AlreadyClaimedError struct {
	SprintID     string
	CurrentOwner string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("sprint %s already claimed by worker %s", e.SprintID, e.CurrentOwner)
}

func (e *AlreadyClaimedError) Unwrap() error { return ErrAlreadyClaimed }

// Registry maps sprints to their owning workers. The check-then-set in Claim
// is a single critical section, so two workers racing for a freshly
// unblocked sprint cannot both win.
type Registry struct {
	mu sync.Mutex
	// owners maps sprint ID to the owning worker ID.
	owners map[string]string
	// held maps worker ID to the sprint ID it currently owns.
	held map[string]string
}

// NewRegistry creates an empty claim registry.
func NewRegistry() *Registry {
	return &Registry{
		owners: make(map[string]string),
		held:   make(map[string]string),
	}
}

// Claim records workerID as the exclusive owner of sprintID.
// Claiming a sprint the worker already owns is a no-op success. A sprint
// owned by someone else returns *AlreadyClaimedError with the current owner.
// A worker already holding a different sprint cannot claim a second one.
func (r *Registry) Claim(workerID, sprintID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[sprintID]; ok {
		if owner == workerID {
			return nil
		}
		return &AlreadyClaimedError{SprintID: sprintID, CurrentOwner: owner}
	}

	if prev, ok := r.held[workerID]; ok {
		return fmt.Errorf("worker %s already holds sprint %s", workerID, prev)
	}

	r.owners[sprintID] = workerID
	r.held[workerID] = sprintID
	return nil
}

// Release removes the claim only if workerID is the current owner.
// Returns false otherwise, so a worker cannot release another's claim.
func (r *Registry) Release(workerID, sprintID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners[sprintID] != workerID {
		return false
	}
	delete(r.owners, sprintID)
	delete(r.held, workerID)
	return true
}

// Owner returns the worker holding the sprint, or "" if unclaimed.
func (r *Registry) Owner(sprintID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owners[sprintID]
}

// Held returns the sprint the worker currently owns, or "" if none.
func (r *Registry) Held(workerID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held[workerID]
}

// Count returns the number of active claims.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

// ReleaseAll clears every claim and returns the sprint IDs that were held,
// sorted. Used when a project run is cancelled.
func (r *Registry) ReleaseAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := make([]string, 0, len(r.owners))
	for sprintID := range r.owners {
		released = append(released, sprintID)
	}
	sort.Strings(released)

	r.owners = make(map[string]string)
	r.held = make(map[string]string)
	return released
}
