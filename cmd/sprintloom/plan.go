package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jcolby/sprintloom/internal/config"
	"github.com/jcolby/sprintloom/internal/decompose"
	"github.com/jcolby/sprintloom/internal/graph"
)

var (
	planFile        string
	planMaxDuration time.Duration
	planMaxSprints  int
	planEstimate    time.Duration
)

var planCmd = &cobra.Command{
	Use:   "plan [request]",
	Short: "Decompose a request into a sprint plan",
	Long: `Decompose a high-level request into duration-bounded sprints,
wire their dependencies, and print the resulting schedule: sprints,
parallel layers, and the critical path.

With --file, loads an explicit plan from YAML instead of decomposing:

  sprints:
    - id: schema
      title: Design schema
      phase: planning
      duration: 30m
    - id: api
      title: Build API
      phase: implementation
      duration: 1h
      depends_on: [schema]`,
	Args: cobra.ArbitraryArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "", "Load the plan from a YAML file instead of decomposing")
	planCmd.Flags().DurationVar(&planMaxDuration, "max-duration", 0, "Longest a single sprint may run (default from config)")
	planCmd.Flags().IntVar(&planMaxSprints, "max-sprints", 0, "Cap on total sprint count (default from config)")
	planCmd.Flags().DurationVar(&planEstimate, "estimate", 0, "Override the heuristic total duration estimate")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planFile == "" && len(args) == 0 {
		return fmt.Errorf("provide a request to decompose or --file with a plan")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	constraints := planConstraints(cfg)
	plan, err := buildPlan(planFile, args, constraints)
	if err != nil {
		return err
	}

	renderPlan(plan)
	return nil
}

// planConstraints merges config defaults with command-line overrides.
func planConstraints(cfg *config.Config) decompose.Constraints {
	c := decompose.Constraints{
		MaxSprintDuration:    cfg.Sprints.MaxDuration,
		MaxSprintsPerProject: cfg.Sprints.MaxPerProject,
		MaxDepth:             cfg.Graph.MaxDepth,
		TieBreak:             graph.TieBreak(cfg.Scheduling.TieBreak),
	}
	if planMaxDuration > 0 {
		c.MaxSprintDuration = planMaxDuration
	}
	if planMaxSprints > 0 {
		c.MaxSprintsPerProject = planMaxSprints
	}
	if planEstimate > 0 {
		c.Estimate = planEstimate
	}
	return c
}

func buildPlan(file string, args []string, constraints decompose.Constraints) (*decompose.Plan, error) {
	if file != "" {
		return decompose.LoadPlanFile(file, constraints)
	}
	return decompose.New(constraints).Decompose(strings.Join(args, " "))
}

var (
	planTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
	planDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
	planCritStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// renderPlan prints sprints, layers, and the critical path.
func renderPlan(plan *decompose.Plan) {
	fmt.Println(planTitleStyle.Render("Plan"))
	fmt.Printf("  %d sprints, %s total, %d parallel groups\n\n",
		len(plan.Sprints), plan.TotalDuration, plan.ParallelGroups)

	fmt.Println(planTitleStyle.Render("Sprints"))
	for _, s := range plan.Sprints {
		marker := " "
		if plan.Graph.OnCriticalPath(s.ID) {
			marker = planCritStyle.Render("*")
		}
		deps := ""
		if len(s.DependsOn) > 0 {
			deps = planDimStyle.Render(" <- " + strings.Join(s.DependsOn, ", "))
		}
		fmt.Printf("  %s %-24s %-16s %8s%s\n", marker, s.ID, s.Phase, s.EstimatedDuration, deps)
	}
	fmt.Println()

	fmt.Println(planTitleStyle.Render("Parallel layers"))
	for i, layer := range plan.Graph.ParallelLayers() {
		fmt.Printf("  %d. %s\n", i+1, strings.Join(layer, ", "))
	}
	fmt.Println()

	critPath := plan.Graph.CriticalPath()
	fmt.Println(planTitleStyle.Render("Critical path"))
	fmt.Printf("  %s (%s)\n",
		color.YellowString(strings.Join(critPath, " -> ")),
		plan.Graph.CriticalPathDuration())
}
