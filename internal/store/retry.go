package store

import (
	"context"
	"time"

	"github.com/jcolby/sprintloom/pkg/models"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 100 * time.Millisecond
)

// Retrying wraps a Recorder with bounded retries and exponential backoff.
// Persistence is best-effort: scheduling must not stall on a slow or locked
// store, so the last error is returned only after all attempts fail.
type Retrying struct {
	inner    Recorder
	attempts int
	base     time.Duration
}

// NewRetrying wraps inner with the default retry policy.
func NewRetrying(inner Recorder) *Retrying {
	return &Retrying{inner: inner, attempts: defaultRetryAttempts, base: defaultRetryBase}
}

func (r *Retrying) retry(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == r.attempts-1 {
			break
		}
		backoff := r.base * (1 << i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func (r *Retrying) CreateSprintRecord(ctx context.Context, sprint *models.Sprint) (string, error) {
	var id string
	err := r.retry(ctx, func() error {
		var opErr error
		id, opErr = r.inner.CreateSprintRecord(ctx, sprint)
		return opErr
	})
	return id, err
}

func (r *Retrying) UpdateSprintStatus(ctx context.Context, recordID string, status models.SprintStatus) error {
	return r.retry(ctx, func() error {
		return r.inner.UpdateSprintStatus(ctx, recordID, status)
	})
}

func (r *Retrying) ClaimSprintRecord(ctx context.Context, recordID string, workerID string) error {
	return r.retry(ctx, func() error {
		return r.inner.ClaimSprintRecord(ctx, recordID, workerID)
	})
}
