package decompose

import (
	"errors"
	"testing"
	"time"

	"github.com/jcolby/sprintloom/pkg/models"
)

func TestSplitDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		max  time.Duration
		want []time.Duration
	}{
		{
			name: "fits in one sprint",
			d:    8 * time.Minute,
			max:  10 * time.Minute,
			want: []time.Duration{8 * time.Minute},
		},
		{
			name: "exact multiple",
			d:    30 * time.Minute,
			max:  10 * time.Minute,
			want: []time.Duration{10 * time.Minute, 10 * time.Minute, 10 * time.Minute},
		},
		{
			name: "remainder on final chunk",
			d:    37 * time.Minute,
			max:  10 * time.Minute,
			want: []time.Duration{10 * time.Minute, 10 * time.Minute, 10 * time.Minute, 7 * time.Minute},
		},
		{
			name: "equal to max",
			d:    10 * time.Minute,
			max:  10 * time.Minute,
			want: []time.Duration{10 * time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitDuration(tt.d, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitDuration(%v, %v) = %v, want %v", tt.d, tt.max, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("SplitDuration(%v, %v) = %v, want %v", tt.d, tt.max, got, tt.want)
				}
			}
		})
	}
}

func TestEstimateComplexity(t *testing.T) {
	tests := []struct {
		name    string
		request string
		min     Complexity
		max     Complexity
	}{
		{"short request", "fix typo in readme", ComplexityTrivial, ComplexitySimple},
		{"keyword heavy", "migrate the database and integrate the distributed security layer", ComplexityComplex, ComplexityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateComplexity(tt.request)
			if got < tt.min || got > tt.max {
				t.Errorf("EstimateComplexity(%q) = %d, want in [%d, %d]", tt.request, got, tt.min, tt.max)
			}
		})
	}
}

func TestDecompose_CorePhasesAlwaysPresent(t *testing.T) {
	d := New(DefaultConstraints())

	plan, err := d.Decompose("fix the login button")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	found := make(map[models.Phase]bool)
	for _, s := range plan.Sprints {
		found[s.Phase] = true
	}
	for _, ph := range []models.Phase{models.PhasePlanning, models.PhaseImplementation, models.PhaseTesting} {
		if !found[ph] {
			t.Errorf("core phase %s missing from plan", ph)
		}
	}
	if found[models.PhaseDocumentation] {
		t.Error("documentation phase should not appear without keywords")
	}
}

func TestDecompose_KeywordGatedPhases(t *testing.T) {
	d := New(DefaultConstraints())

	plan, err := d.Decompose("research the caching layer and document the findings")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	found := make(map[models.Phase]bool)
	for _, s := range plan.Sprints {
		found[s.Phase] = true
	}
	if !found[models.PhaseAnalysis] {
		t.Error("expected analysis phase for research request")
	}
	if !found[models.PhaseDocumentation] {
		t.Error("expected documentation phase for document request")
	}
}

func TestDecompose_DurationBounded(t *testing.T) {
	c := DefaultConstraints()
	c.MaxSprintDuration = 10 * time.Minute
	c.Estimate = 37 * time.Minute
	d := New(c)

	plan, err := d.Decompose("fix the login button")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	for _, s := range plan.Sprints {
		if s.EstimatedDuration > 10*time.Minute {
			t.Errorf("sprint %s duration %v exceeds max 10m", s.ID, s.EstimatedDuration)
		}
	}
}

func TestDecompose_GraphIsValid(t *testing.T) {
	d := New(DefaultConstraints())

	plan, err := d.Decompose("integrate the new payment system across multiple services, review for production")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	result := plan.Graph.Validate()
	if !result.Valid {
		t.Errorf("decomposed graph invalid: %v", result.Errors)
	}
	if plan.ParallelGroups < 1 {
		t.Errorf("ParallelGroups = %d, want >= 1", plan.ParallelGroups)
	}
	if plan.TotalDuration <= 0 {
		t.Error("TotalDuration should be positive")
	}
}

func TestDecompose_SequentialWiring(t *testing.T) {
	c := DefaultConstraints()
	c.Estimate = 30 * time.Minute
	d := New(c)

	plan, err := d.Decompose("fix the login button")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	// The first planning sprint is the only root.
	roots := 0
	for _, s := range plan.Sprints {
		if len(s.DependsOn) == 0 {
			roots++
			if s.Phase != models.PhasePlanning {
				t.Errorf("root sprint is %s, want planning", s.Phase)
			}
		}
	}
	if roots != 1 {
		t.Errorf("expected exactly 1 root sprint, got %d", roots)
	}
}

func TestDecompose_ParallelizablePhasesShareLayer(t *testing.T) {
	c := DefaultConstraints()
	c.Estimate = 30 * time.Minute
	d := New(c)

	// Testing and documentation are both parallelizable and past priority 2,
	// so they share a dependency parent instead of chaining.
	plan, err := d.Decompose("fix the login button and document the fix for production review")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	var testing1, docs1, review1 *models.Sprint
	for _, s := range plan.Sprints {
		switch {
		case s.Phase == models.PhaseTesting && testing1 == nil:
			testing1 = s
		case s.Phase == models.PhaseDocumentation && docs1 == nil:
			docs1 = s
		case s.Phase == models.PhaseReview && review1 == nil:
			review1 = s
		}
	}
	if testing1 == nil || docs1 == nil || review1 == nil {
		t.Fatal("expected testing, documentation, and review sprints")
	}

	if len(testing1.DependsOn) != 1 || len(docs1.DependsOn) != 1 ||
		testing1.DependsOn[0] != docs1.DependsOn[0] {
		t.Errorf("testing deps %v and documentation deps %v should share a parent",
			testing1.DependsOn, docs1.DependsOn)
	}
	// Review closes the parallel group and waits on both branches.
	if len(review1.DependsOn) != 2 {
		t.Errorf("review deps = %v, want both parallel branches", review1.DependsOn)
	}
}

func TestDecompose_PlanTooLarge(t *testing.T) {
	c := DefaultConstraints()
	c.MaxSprintDuration = time.Minute
	c.MaxSprintsPerProject = 5
	c.Estimate = 3 * time.Hour
	d := New(c)

	_, err := d.Decompose("fix the login button")
	if err == nil {
		t.Fatal("expected plan-too-large error")
	}
	if !errors.Is(err, ErrPlanTooLarge) {
		t.Errorf("expected ErrPlanTooLarge, got %v", err)
	}
	var tooLarge *PlanTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected *PlanTooLargeError, got %T", err)
	}
	if tooLarge.Max != 5 {
		t.Errorf("Max = %d, want 5", tooLarge.Max)
	}
}
