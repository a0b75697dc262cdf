// Package workers provides the worker registry and best-fit matching.
package workers

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcolby/sprintloom/pkg/models"
)

// Scoring weights for BestMatch. Skill overlap dominates, success rate
// breaks near-ties, and manager-class workers are pulled toward planning.
const (
	skillMatchScore      = 10.0
	managerPlanningScore = 20.0
)

// Pool is a registry of workers with best-fit matching for sprints.
// Workers are never deleted, only marked offline.
type Pool struct {
	mu sync.RWMutex
	// workers maps worker ID to the worker.
	workers map[string]*models.Worker
	// order preserves registration order for deterministic tie-breaks.
	order []string
}

// NewPool creates an empty worker pool.
func NewPool() *Pool {
	return &Pool{
		workers: make(map[string]*models.Worker),
	}
}

// Register adds a worker to the pool. A blank ID is assigned a fresh uuid.
// Registering an existing ID replaces the worker in place without changing
// its registration order. Status defaults to available.
func (p *Pool) Register(w *models.Worker) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.New().String()[:8]
	}
	if w.Status == "" {
		w.Status = models.WorkerStatusAvailable
	}
	if w.Type == "" {
		w.Type = models.WorkerTypeWorker
	}
	if w.RegisteredAt.IsZero() {
		w.RegisteredAt = time.Now()
	}

	if _, exists := p.workers[w.ID]; !exists {
		p.order = append(p.order, w.ID)
	}
	p.workers[w.ID] = w
	return w.ID
}

// Worker returns the worker for the given ID, or nil if not registered.
func (p *Pool) Worker(id string) *models.Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.workers[id]
}

// SetStatus updates a worker's availability.
func (p *Pool) SetStatus(id string, status models.WorkerStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.workers[id]; ok {
		w.Status = status
	}
}

// MarkOffline deregisters a worker without removing it.
func (p *Pool) MarkOffline(id string) {
	p.SetStatus(id, models.WorkerStatusOffline)
}

// RecordOutcome updates a worker's performance after a sprint attempt.
// SuccessRate is a running percentage over all recorded attempts.
func (p *Pool) RecordOutcome(id string, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.workers[id]
	if !ok {
		return
	}

	w.Performance.TasksCompleted++
	if success {
		w.Performance.TasksSucceeded++
	}
	w.Performance.SuccessRate = float64(w.Performance.TasksSucceeded) /
		float64(w.Performance.TasksCompleted) * 100.0
}

// Available returns all workers with status available, in registration order.
func (p *Pool) Available() []*models.Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*models.Worker
	for _, id := range p.order {
		if w := p.workers[id]; w.Status == models.WorkerStatusAvailable {
			out = append(out, w)
		}
	}
	return out
}

// Size returns the number of registered workers, including offline ones.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// BestMatch returns the available worker best suited for the sprint, or nil
// when no workers are available. Scoring: +10 per overlapping required
// skill, + successRate/10, +20 when the sprint is a planning sprint and the
// worker is a manager. Ties go to the first-registered worker so matching
// is deterministic.
func (p *Pool) BestMatch(sprint *models.Sprint) *models.Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var best *models.Worker
	bestScore := -1.0

	for _, id := range p.order {
		w := p.workers[id]
		if w.Status != models.WorkerStatusAvailable {
			continue
		}
		score := Score(sprint, w)
		if score > bestScore {
			best = w
			bestScore = score
		}
	}
	return best
}

// Score computes the match score between a sprint and a worker.
func Score(sprint *models.Sprint, w *models.Worker) float64 {
	score := 0.0
	for _, skill := range sprint.RequiredSkills {
		if w.HasSkill(skill) {
			score += skillMatchScore
		}
	}
	score += w.Performance.SuccessRate / 10.0
	if sprint.Phase == models.PhasePlanning && w.Type == models.WorkerTypeManager {
		score += managerPlanningScore
	}
	return score
}
