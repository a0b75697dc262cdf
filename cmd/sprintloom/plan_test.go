package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jcolby/sprintloom/internal/config"
	"github.com/jcolby/sprintloom/internal/decompose"
)

func TestPlanConstraintsFlagOverrides(t *testing.T) {
	cfg := config.Default()

	planMaxDuration = 0
	planMaxSprints = 0
	planEstimate = 0
	c := planConstraints(cfg)
	if c.MaxSprintDuration != cfg.Sprints.MaxDuration {
		t.Errorf("max duration = %v, want config default %v", c.MaxSprintDuration, cfg.Sprints.MaxDuration)
	}

	planMaxDuration = 10 * time.Minute
	planMaxSprints = 20
	planEstimate = time.Hour
	defer func() {
		planMaxDuration = 0
		planMaxSprints = 0
		planEstimate = 0
	}()

	c = planConstraints(cfg)
	if c.MaxSprintDuration != 10*time.Minute {
		t.Errorf("max duration = %v, want 10m", c.MaxSprintDuration)
	}
	if c.MaxSprintsPerProject != 20 {
		t.Errorf("max sprints = %d, want 20", c.MaxSprintsPerProject)
	}
	if c.Estimate != time.Hour {
		t.Errorf("estimate = %v, want 1h", c.Estimate)
	}
}

func TestBuildPlanFromFile(t *testing.T) {
	content := `
sprints:
  - id: schema
    title: Design schema
    phase: planning
    duration: 30m
  - id: api
    title: Build API
    phase: implementation
    duration: 1h
    depends_on: [schema]
`
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	plan, err := buildPlan(path, nil, decompose.DefaultConstraints())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if len(plan.Sprints) != 2 {
		t.Errorf("sprints = %d, want 2", len(plan.Sprints))
	}
}

func TestBuildPlanFromRequest(t *testing.T) {
	plan, err := buildPlan("", []string{"implement", "user", "auth"}, decompose.DefaultConstraints())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if len(plan.Sprints) == 0 {
		t.Error("expected a non-empty plan")
	}
}
