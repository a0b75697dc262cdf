package decompose

import (
	"strings"
	"time"

	"github.com/jcolby/sprintloom/pkg/models"
)

// Complexity is a coarse 1-5 rating of a work request.
type Complexity int

const (
	// ComplexityTrivial is a one-line change.
	ComplexityTrivial Complexity = iota + 1
	// ComplexitySimple is a small self-contained task.
	ComplexitySimple
	// ComplexityModerate is a typical feature.
	ComplexityModerate
	// ComplexityComplex spans multiple components.
	ComplexityComplex
	// ComplexityCritical is a large cross-cutting effort.
	ComplexityCritical
)

// Estimate returns the heuristic total duration for this complexity level.
func (c Complexity) Estimate() time.Duration {
	switch c {
	case ComplexityTrivial:
		return 30 * time.Minute
	case ComplexitySimple:
		return time.Hour
	case ComplexityModerate:
		return 2 * time.Hour
	case ComplexityComplex:
		return 4 * time.Hour
	default:
		return 8 * time.Hour
	}
}

// complexityKeywords raise the rating when present in the request.
var complexityKeywords = []string{
	"integrate", "integration", "migrate", "migration", "refactor",
	"architecture", "system", "distributed", "concurrent", "security",
	"database", "multiple", "across", "end-to-end", "platform",
}

// EstimateComplexity rates a request from its size and keyword signals.
func EstimateComplexity(request string) Complexity {
	words := len(strings.Fields(request))
	lower := strings.ToLower(request)

	score := 1
	switch {
	case words > 100:
		score = 3
	case words > 40:
		score = 2
	}
	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}

	if score > int(ComplexityCritical) {
		score = int(ComplexityCritical)
	}
	return Complexity(score)
}

// phaseSpec describes one phase of the generated plan.
type phaseSpec struct {
	phase       models.Phase
	title       string
	deliverable string
	skills      []models.Skill
	// share is this phase's fraction of the total estimate, pre-normalization.
	share float64
	// priority orders phases; parallelizable phases past priority 2 share a
	// layer instead of chaining.
	priority int
}

var allPhases = []phaseSpec{
	{
		phase:       models.PhaseAnalysis,
		title:       "Analyze requirements and current state",
		deliverable: "analysis notes",
		skills:      []models.Skill{"research"},
		share:       0.15,
		priority:    1,
	},
	{
		phase:       models.PhasePlanning,
		title:       "Plan the approach and break down the work",
		deliverable: "work breakdown",
		skills:      []models.Skill{"planning"},
		share:       0.15,
		priority:    2,
	},
	{
		phase:       models.PhaseImplementation,
		title:       "Implement the requested change",
		deliverable: "working implementation",
		skills:      []models.Skill{"engineering"},
		share:       0.40,
		priority:    3,
	},
	{
		phase:       models.PhaseTesting,
		title:       "Test the implementation",
		deliverable: "test results",
		skills:      []models.Skill{"testing"},
		share:       0.20,
		priority:    4,
	},
	{
		phase:       models.PhaseDocumentation,
		title:       "Document the change",
		deliverable: "documentation",
		skills:      []models.Skill{"writing"},
		share:       0.10,
		priority:    5,
	},
	{
		phase:       models.PhaseReview,
		title:       "Review completed work",
		deliverable: "review report",
		skills:      []models.Skill{"review"},
		share:       0.10,
		priority:    6,
	},
}

// phaseKeywords gate the optional phases in and out.
var phaseKeywords = map[models.Phase][]string{
	models.PhaseAnalysis:      {"investigate", "research", "analyze", "analyse", "explore", "understand", "audit"},
	models.PhaseDocumentation: {"document", "docs", "readme", "guide", "manual"},
	models.PhaseReview:        {"review", "quality", "production", "critical", "compliance"},
}

// corePhases are always part of a plan regardless of keywords.
var corePhases = map[models.Phase]bool{
	models.PhasePlanning:       true,
	models.PhaseImplementation: true,
	models.PhaseTesting:        true,
}

// selectPhases picks the phases for a request and normalizes their shares
// so they sum to one. The three core phases always appear; the optional
// phases switch on via keywords or high complexity.
func selectPhases(request string, complexity Complexity) []phaseSpec {
	lower := strings.ToLower(request)

	included := func(ph models.Phase) bool {
		if corePhases[ph] {
			return true
		}
		for _, kw := range phaseKeywords[ph] {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		// Big efforts get the analysis and review phases regardless.
		if complexity >= ComplexityComplex && (ph == models.PhaseAnalysis || ph == models.PhaseReview) {
			return true
		}
		return false
	}

	var selected []phaseSpec
	totalShare := 0.0
	for _, ph := range allPhases {
		if included(ph.phase) {
			selected = append(selected, ph)
			totalShare += ph.share
		}
	}
	for i := range selected {
		selected[i].share /= totalShare
	}
	return selected
}
