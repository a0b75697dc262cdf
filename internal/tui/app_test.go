package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcolby/sprintloom/internal/orchestrator"
	"github.com/jcolby/sprintloom/pkg/models"
)

func testApp() *App {
	sprints := []*models.Sprint{
		{ID: "a", Title: "Root", Status: models.SprintStatusReady},
		{ID: "b", Title: "Left", Status: models.SprintStatusBlocked},
		{ID: "c", Title: "Right", Status: models.SprintStatusBlocked},
	}
	return New(sprints, make(chan orchestrator.Event))
}

func TestAppTracksSprintLifecycle(t *testing.T) {
	app := testApp()

	app.applyEvent(orchestrator.Event{Type: orchestrator.EventSprintClaimed, SprintID: "a", WorkerID: "w1"})
	app.applyEvent(orchestrator.Event{Type: orchestrator.EventSprintStarted, SprintID: "a", WorkerID: "w1"})

	_, _, running := app.Counts()
	if running != 1 {
		t.Errorf("running = %d, want 1", running)
	}

	app.applyEvent(orchestrator.Event{
		Type:     orchestrator.EventSprintCompleted,
		SprintID: "a",
		WorkerID: "w1",
		Duration: 42 * time.Millisecond,
	})
	app.applyEvent(orchestrator.Event{
		Type:      orchestrator.EventSprintsUnblocked,
		SprintID:  "a",
		Unblocked: []string{"b", "c"},
	})

	done, _, running := app.Counts()
	if done != 1 {
		t.Errorf("done = %d, want 1", done)
	}
	if running != 0 {
		t.Errorf("running = %d, want 0", running)
	}
	if app.rows[1].status != models.SprintStatusReady {
		t.Errorf("b status = %s, want ready", app.rows[1].status)
	}
	if app.rows[2].status != models.SprintStatusReady {
		t.Errorf("c status = %s, want ready", app.rows[2].status)
	}
}

func TestAppTracksAbandonment(t *testing.T) {
	app := testApp()

	app.applyEvent(orchestrator.Event{
		Type:       orchestrator.EventSprintAbandoned,
		SprintID:   "a",
		RetryCount: 3,
		Error:      errors.New("boom"),
	})
	app.applyEvent(orchestrator.Event{
		Type:  orchestrator.EventProjectStalled,
		Error: errors.New("stalled"),
	})

	_, failed, _ := app.Counts()
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if !app.Done() {
		t.Error("expected app to be done after stall")
	}
	if app.runErr == nil {
		t.Error("expected a run error after stall")
	}
}

func TestAppIgnoresUnknownSprint(t *testing.T) {
	app := testApp()
	app.applyEvent(orchestrator.Event{Type: orchestrator.EventSprintStarted, SprintID: "zzz", WorkerID: "w1"})

	_, _, running := app.Counts()
	if running != 0 {
		t.Errorf("running = %d, want 0", running)
	}
}

func TestAppQuitKey(t *testing.T) {
	app := testApp()

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("expected tea.Quit, got %T", msg)
	}
	if !model.(*App).quitting {
		t.Error("expected quitting flag set")
	}
}

func TestAppViewShowsCounts(t *testing.T) {
	app := testApp()
	app.applyEvent(orchestrator.Event{Type: orchestrator.EventSprintCompleted, SprintID: "a", Duration: time.Second})

	view := app.View()
	if !strings.Contains(view, "1 done") {
		t.Errorf("view missing completion count:\n%s", view)
	}
	if !strings.Contains(view, "Root") {
		t.Errorf("view missing sprint title:\n%s", view)
	}
}
