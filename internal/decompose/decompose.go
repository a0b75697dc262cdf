// Package decompose turns a work request into a validated sprint plan.
package decompose

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jcolby/sprintloom/internal/graph"
	"github.com/jcolby/sprintloom/pkg/models"
)

// ErrPlanTooLarge indicates decomposition would exceed the sprint limit.
// The decomposer fails fast instead of silently truncating, since truncation
// would break the completeness guarantee callers depend on.
var ErrPlanTooLarge = errors.New("plan exceeds maximum sprint count")

// ErrInvalidPlan indicates the generated graph failed validation.
var ErrInvalidPlan = errors.New("invalid plan")

// PlanTooLargeError reports how far over the limit a decomposition went.
type PlanTooLargeError struct {
	Sprints int
	Max     int
}

func (e *PlanTooLargeError) Error() string {
	return fmt.Sprintf("decomposition produced %d sprints, limit is %d", e.Sprints, e.Max)
}

func (e *PlanTooLargeError) Unwrap() error { return ErrPlanTooLarge }

// InvalidPlanError carries the validation failures of a rejected plan.
type InvalidPlanError struct {
	Result graph.ValidationResult
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("plan validation failed: %s", strings.Join(e.Result.Errors, "; "))
}

func (e *InvalidPlanError) Unwrap() error { return ErrInvalidPlan }

// Constraints bound the shape of a decomposition.
type Constraints struct {
	// MaxSprintDuration is the longest a single sprint may run.
	MaxSprintDuration time.Duration
	// MaxSprintsPerProject caps the total sprint count.
	MaxSprintsPerProject int
	// MaxDepth is the dependency depth warning threshold.
	MaxDepth int
	// Estimate overrides the heuristic total duration estimate when set.
	Estimate time.Duration
	// TieBreak is passed through to the graph's critical path computation.
	TieBreak graph.TieBreak
}

// DefaultConstraints returns the standard decomposition bounds.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxSprintDuration:    30 * time.Minute,
		MaxSprintsPerProject: 50,
		MaxDepth:             graph.DefaultMaxDepth,
		TieBreak:             graph.TieBreakLexical,
	}
}

// Plan is the result of a successful decomposition.
type Plan struct {
	// Graph is the populated, validated dependency graph.
	Graph *graph.DependencyGraph
	// Sprints lists every sprint in creation order.
	Sprints []*models.Sprint
	// TotalDuration is the sum of all sprint estimates.
	TotalDuration time.Duration
	// ParallelGroups is the number of topological layers in the plan.
	ParallelGroups int
}

// Decomposer breaks a request into duration-bounded, dependency-wired sprints.
type Decomposer struct {
	constraints Constraints
}

// New creates a Decomposer with the given constraints. Zero-value fields
// fall back to the defaults.
func New(c Constraints) *Decomposer {
	def := DefaultConstraints()
	if c.MaxSprintDuration <= 0 {
		c.MaxSprintDuration = def.MaxSprintDuration
	}
	if c.MaxSprintsPerProject <= 0 {
		c.MaxSprintsPerProject = def.MaxSprintsPerProject
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.TieBreak == "" {
		c.TieBreak = def.TieBreak
	}
	return &Decomposer{constraints: c}
}

// Decompose runs the full pipeline: estimate complexity, select phases,
// split oversized phases into duration-bounded chunks, wire dependencies,
// and validate the resulting graph.
func (d *Decomposer) Decompose(request string) (*Plan, error) {
	complexity := EstimateComplexity(request)

	total := d.constraints.Estimate
	if total <= 0 {
		total = complexity.Estimate()
	}

	phases := selectPhases(request, complexity)

	// Count chunks up front so an oversized plan fails before any graph work.
	sprintCount := 0
	type phaseChunks struct {
		phase  phaseSpec
		chunks []time.Duration
	}
	var expanded []phaseChunks
	for _, ph := range phases {
		dur := time.Duration(float64(total) * ph.share)
		if dur <= 0 {
			dur = time.Minute
		}
		chunks := SplitDuration(dur, d.constraints.MaxSprintDuration)
		sprintCount += len(chunks)
		expanded = append(expanded, phaseChunks{phase: ph, chunks: chunks})
	}
	if sprintCount > d.constraints.MaxSprintsPerProject {
		return nil, &PlanTooLargeError{Sprints: sprintCount, Max: d.constraints.MaxSprintsPerProject}
	}

	g := graph.New()
	g.SetMaxDepth(d.constraints.MaxDepth)
	g.SetTieBreak(d.constraints.TieBreak)

	var sprints []*models.Sprint
	// prevTails holds the sprint ids the next sequential phase depends on.
	var prevTails []string
	// groupTails accumulates tails of a run of parallelizable phases.
	var groupTails []string
	inParallelGroup := false

	for _, pc := range expanded {
		parallel := pc.phase.phase.Parallelizable() && pc.phase.priority > 2

		if !parallel && inParallelGroup {
			// Close the parallel run: the next sequential phase waits on
			// every branch of the group.
			prevTails = groupTails
			groupTails = nil
			inParallelGroup = false
		}

		deps := prevTails
		var tail string
		for i, chunk := range pc.chunks {
			id := fmt.Sprintf("%s-%02d", pc.phase.phase, i+1)
			title := pc.phase.title
			if len(pc.chunks) > 1 {
				title = fmt.Sprintf("%s (part %d/%d)", pc.phase.title, i+1, len(pc.chunks))
			}
			sprint := &models.Sprint{
				ID:                id,
				Title:             title,
				Description:       request,
				Phase:             pc.phase.phase,
				DependsOn:         append([]string(nil), deps...),
				EstimatedDuration: chunk,
				RequiredSkills:    pc.phase.skills,
				Priority:          pc.phase.priority,
				Deliverable:       pc.phase.deliverable,
				CreatedAt:         time.Now(),
			}
			if err := g.AddNode(sprint); err != nil {
				return nil, fmt.Errorf("add sprint %s: %w", id, err)
			}
			sprints = append(sprints, sprint)
			tail = id
			deps = []string{id}
		}

		if parallel {
			inParallelGroup = true
			groupTails = append(groupTails, tail)
		} else {
			prevTails = []string{tail}
		}
	}

	if result := g.Validate(); !result.Valid {
		return nil, &InvalidPlanError{Result: result}
	}

	var totalDur time.Duration
	for _, s := range sprints {
		totalDur += s.EstimatedDuration
	}

	return &Plan{
		Graph:          g,
		Sprints:        sprints,
		TotalDuration:  totalDur,
		ParallelGroups: len(g.ParallelLayers()),
	}, nil
}

// SplitDuration divides a duration into ceil(d/max) chunks of at most max.
// Every chunk is the maximum except the remainder on the final chunk, so
// 37 minutes at a 10 minute cap yields [10 10 10 7].
func SplitDuration(d, max time.Duration) []time.Duration {
	if max <= 0 || d <= max {
		return []time.Duration{d}
	}
	n := int((d + max - 1) / max)
	chunks := make([]time.Duration, 0, n)
	remaining := d
	for remaining > max {
		chunks = append(chunks, max)
		remaining -= max
	}
	chunks = append(chunks, remaining)
	return chunks
}
