package models

// Phase represents the kind of work a sprint performs.
type Phase string

const (
	// PhaseAnalysis covers investigation and requirements gathering.
	PhaseAnalysis Phase = "analysis"
	// PhasePlanning covers design and work breakdown.
	PhasePlanning Phase = "planning"
	// PhaseImplementation covers the main build work.
	PhaseImplementation Phase = "implementation"
	// PhaseTesting covers verification of implemented work.
	PhaseTesting Phase = "testing"
	// PhaseReview covers quality review of completed work.
	PhaseReview Phase = "review"
	// PhaseDocumentation covers writing user and developer docs.
	PhaseDocumentation Phase = "documentation"
)

// Valid returns true if the phase is a known value.
func (p Phase) Valid() bool {
	switch p {
	case PhaseAnalysis, PhasePlanning, PhaseImplementation,
		PhaseTesting, PhaseReview, PhaseDocumentation:
		return true
	default:
		return false
	}
}

// Parallelizable returns true if sprints in this phase may share a layer
// instead of chaining sequentially. Planning and implementation always
// serialize; the supporting phases can run alongside each other.
func (p Phase) Parallelizable() bool {
	switch p {
	case PhaseTesting, PhaseDocumentation, PhaseAnalysis:
		return true
	default:
		return false
	}
}
