// Package store provides the knowledge-store boundary for sprint records.
// The orchestrator mirrors every status transition into the store, but the
// store is a collaborator, not an authority: failures here are logged and
// retried, never allowed to corrupt in-memory scheduling state.
package store

import (
	"context"

	"github.com/jcolby/sprintloom/pkg/models"
)

// Recorder persists sprint records in an external knowledge store.
type Recorder interface {
	// CreateSprintRecord creates a record for the sprint and returns its id.
	CreateSprintRecord(ctx context.Context, sprint *models.Sprint) (string, error)
	// UpdateSprintStatus updates the status field of an existing record.
	UpdateSprintStatus(ctx context.Context, recordID string, status models.SprintStatus) error
	// ClaimSprintRecord marks the record as owned by the given worker.
	ClaimSprintRecord(ctx context.Context, recordID string, workerID string) error
}

// Compile-time verification of the Recorder implementations.
var (
	_ Recorder = (*DB)(nil)
	_ Recorder = (*Retrying)(nil)
	_ Recorder = (*Nop)(nil)
)

// Nop is a Recorder that records nothing. Used for plan-only runs and tests.
type Nop struct{}

// CreateSprintRecord returns the sprint's own id as the record id.
func (Nop) CreateSprintRecord(_ context.Context, sprint *models.Sprint) (string, error) {
	return sprint.ID, nil
}

// UpdateSprintStatus does nothing.
func (Nop) UpdateSprintStatus(context.Context, string, models.SprintStatus) error { return nil }

// ClaimSprintRecord does nothing.
func (Nop) ClaimSprintRecord(context.Context, string, string) error { return nil }
