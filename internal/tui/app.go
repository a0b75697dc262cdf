// Package tui provides the terminal user interface for watching a
// sprint run: a live sprint table, event log, and progress footer.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jcolby/sprintloom/internal/orchestrator"
	"github.com/jcolby/sprintloom/pkg/models"
)

// EventMsg wraps an orchestrator event for the TUI.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the orchestrator run has finished.
type RunDoneMsg struct {
	Err error
}

// LogEntry represents an event line displayed in the log panel.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// sprintRow is the display state for one sprint.
type sprintRow struct {
	id       string
	title    string
	status   models.SprintStatus
	worker   string
	retries  int
	duration time.Duration
}

// App is the main bubbletea model for the run monitor.
type App struct {
	// events is the orchestrator event stream.
	events <-chan orchestrator.Event
	// rows holds per-sprint display state in graph order.
	rows []sprintRow
	// index maps sprint IDs to row positions.
	index map[string]int
	// logs is the scrolling event log.
	logs []LogEntry
	// spin animates while work is in flight.
	spin spinner.Model
	// width and height are the terminal dimensions.
	width  int
	height int
	// done indicates the run has finished.
	done bool
	// runErr is the terminal error, nil on success.
	runErr error
	// quitting indicates the app is shutting down.
	quitting bool
}

// New creates an App monitoring the given sprints and event stream.
func New(sprints []*models.Sprint, events <-chan orchestrator.Event) *App {
	rows := make([]sprintRow, 0, len(sprints))
	index := make(map[string]int, len(sprints))
	for i, s := range sprints {
		rows = append(rows, sprintRow{
			id:     s.ID,
			title:  s.Title,
			status: s.Status,
		})
		index[s.ID] = i
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &App{
		events: events,
		rows:   rows,
		index:  index,
		spin:   sp,
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.waitForEvent())
}

// waitForEvent blocks on the orchestrator event stream and converts the
// next event into a tea message. A closed stream ends the subscription.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-a.events
		if !ok {
			return RunDoneMsg{}
		}
		return EventMsg{Event: event}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case EventMsg:
		a.applyEvent(msg.Event)
		return a, a.waitForEvent()

	case RunDoneMsg:
		a.done = true
		if msg.Err != nil {
			a.runErr = msg.Err
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	return a, nil
}

// applyEvent folds one orchestrator event into the display state.
func (a *App) applyEvent(event orchestrator.Event) {
	switch event.Type {
	case orchestrator.EventSprintClaimed:
		a.setRow(event.SprintID, models.SprintStatusClaimed, event.WorkerID, event.RetryCount, 0)
		a.log("info", "%s claimed by %s", event.SprintID, event.WorkerID)
	case orchestrator.EventSprintStarted:
		a.setRow(event.SprintID, models.SprintStatusInProgress, event.WorkerID, event.RetryCount, 0)
		a.log("info", "%s started on %s", event.SprintID, event.WorkerID)
	case orchestrator.EventSprintCompleted:
		a.setRow(event.SprintID, models.SprintStatusCompleted, event.WorkerID, event.RetryCount, event.Duration)
		a.log("done", "%s completed in %s", event.SprintID, event.Duration.Round(time.Millisecond))
	case orchestrator.EventSprintFailed:
		a.log("warn", "%s failed (attempt %d): %v", event.SprintID, event.RetryCount, event.Error)
	case orchestrator.EventSprintRetried:
		a.setRow(event.SprintID, models.SprintStatusReady, "", event.RetryCount, 0)
		a.log("warn", "%s requeued for retry %d", event.SprintID, event.RetryCount)
	case orchestrator.EventSprintAbandoned:
		a.setRow(event.SprintID, models.SprintStatusFailed, "", event.RetryCount, 0)
		a.log("error", "%s abandoned after %d attempts", event.SprintID, event.RetryCount)
	case orchestrator.EventSprintsUnblocked:
		for _, id := range event.Unblocked {
			a.setRow(id, models.SprintStatusReady, "", 0, 0)
		}
		a.log("info", "unblocked %v", event.Unblocked)
	case orchestrator.EventProjectDone:
		a.done = true
		a.log("done", "all sprints completed")
	case orchestrator.EventProjectStalled:
		a.done = true
		a.runErr = event.Error
		a.log("error", "run stalled: %v", event.Error)
	}
}

func (a *App) setRow(id string, status models.SprintStatus, worker string, retries int, duration time.Duration) {
	i, ok := a.index[id]
	if !ok {
		return
	}
	a.rows[i].status = status
	a.rows[i].worker = worker
	if retries > 0 {
		a.rows[i].retries = retries
	}
	if duration > 0 {
		a.rows[i].duration = duration
	}
}

// Counts returns the number of completed, failed, and running sprints.
func (a *App) Counts() (done, failed, running int) {
	for _, r := range a.rows {
		switch r.status {
		case models.SprintStatusCompleted:
			done++
		case models.SprintStatusFailed:
			failed++
		case models.SprintStatusClaimed, models.SprintStatusInProgress:
			running++
		}
	}
	return done, failed, running
}

// Done reports whether the run has reached a terminal state.
func (a *App) Done() bool {
	return a.done
}
