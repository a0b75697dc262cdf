package decompose

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jcolby/sprintloom/internal/graph"
	"github.com/jcolby/sprintloom/pkg/models"
)

// planFile is the YAML shape of an explicit sprint plan.
type planFile struct {
	Sprints []planSprint `yaml:"sprints"`
}

type planSprint struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Phase       string   `yaml:"phase"`
	DependsOn   []string `yaml:"depends_on"`
	Duration    duration `yaml:"duration"`
	Skills      []string `yaml:"skills"`
	Priority    int      `yaml:"priority"`
	Deliverable string   `yaml:"deliverable"`
}

// duration accepts Go duration strings ("30m", "1h") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

// LoadPlanFile reads an explicit sprint plan from a YAML file. Explicit
// plans bypass the decomposition heuristics but are held to the same
// constraints and graph validation.
func LoadPlanFile(path string, c Constraints) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return ParsePlan(data, c)
}

// ParsePlan builds a validated Plan from YAML plan bytes.
func ParsePlan(data []byte, c Constraints) (*Plan, error) {
	def := DefaultConstraints()
	if c.MaxSprintsPerProject <= 0 {
		c.MaxSprintsPerProject = def.MaxSprintsPerProject
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.TieBreak == "" {
		c.TieBreak = def.TieBreak
	}

	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}
	if len(pf.Sprints) == 0 {
		return nil, fmt.Errorf("plan file contains no sprints")
	}
	if len(pf.Sprints) > c.MaxSprintsPerProject {
		return nil, &PlanTooLargeError{Sprints: len(pf.Sprints), Max: c.MaxSprintsPerProject}
	}

	g := graph.New()
	g.SetMaxDepth(c.MaxDepth)
	g.SetTieBreak(c.TieBreak)

	var sprints []*models.Sprint
	var total time.Duration
	for i, ps := range pf.Sprints {
		if ps.ID == "" {
			return nil, fmt.Errorf("sprint %d is missing an id", i)
		}
		phase := models.Phase(ps.Phase)
		if ps.Phase != "" && !phase.Valid() {
			return nil, fmt.Errorf("sprint %s has unknown phase %q", ps.ID, ps.Phase)
		}
		skills := make([]models.Skill, 0, len(ps.Skills))
		for _, s := range ps.Skills {
			skills = append(skills, models.Skill(s))
		}
		sprint := &models.Sprint{
			ID:                ps.ID,
			Title:             ps.Title,
			Phase:             phase,
			DependsOn:         ps.DependsOn,
			EstimatedDuration: time.Duration(ps.Duration),
			RequiredSkills:    skills,
			Priority:          ps.Priority,
			Deliverable:       ps.Deliverable,
			CreatedAt:         time.Now(),
		}
		if err := g.AddNode(sprint); err != nil {
			return nil, fmt.Errorf("add sprint %s: %w", ps.ID, err)
		}
		sprints = append(sprints, sprint)
		total += sprint.EstimatedDuration
	}

	if result := g.Validate(); !result.Valid {
		return nil, &InvalidPlanError{Result: result}
	}

	return &Plan{
		Graph:          g,
		Sprints:        sprints,
		TotalDuration:  total,
		ParallelGroups: len(g.ParallelLayers()),
	}, nil
}
