package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jcolby/sprintloom/pkg/models"
)

const maxLogLines = 200

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Bold(true)

	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// statusGlyph returns the icon and style for a sprint status.
func statusGlyph(status models.SprintStatus) (string, lipgloss.Style) {
	switch status {
	case models.SprintStatusCompleted:
		return "✓", doneStyle
	case models.SprintStatusFailed:
		return "✗", failStyle
	case models.SprintStatusClaimed, models.SprintStatusInProgress:
		return "●", runStyle
	case models.SprintStatusReady:
		return "○", readyStyle
	default:
		return "·", blockedStyle
	}
}

// log appends a formatted entry to the event log, trimming old lines.
func (a *App) log(level, format string, args ...interface{}) {
	a.logs = append(a.logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	})
	if len(a.logs) > maxLogLines {
		a.logs = a.logs[len(a.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("sprintloom run"))
	b.WriteString("\n\n")
	b.WriteString(a.sprintPanel())
	b.WriteString("\n")
	b.WriteString(a.logPanel())
	b.WriteString("\n")
	b.WriteString(a.footer())
	return b.String()
}

// sprintPanel renders one row per sprint with status, worker, and timing.
func (a *App) sprintPanel() string {
	var lines []string
	lines = append(lines, headerStyle.Render(fmt.Sprintf("%-3s %-24s %-12s %-10s %s", "", "SPRINT", "STATUS", "WORKER", "TIME")))

	for _, row := range a.rows {
		glyph, style := statusGlyph(row.status)
		icon := glyph
		if row.status == models.SprintStatusInProgress {
			icon = a.spin.View()
		}

		timing := ""
		if row.duration > 0 {
			timing = row.duration.Round(time.Millisecond).String()
		}
		retries := ""
		if row.retries > 0 {
			retries = fmt.Sprintf(" (retry %d)", row.retries)
		}

		title := row.title
		if len(title) > 24 {
			title = title[:21] + "..."
		}

		line := fmt.Sprintf("%-3s %-24s %-12s %-10s %s%s",
			icon, title, string(row.status), row.worker, timing, retries)
		lines = append(lines, style.Render(line))
	}

	return panelStyle.Width(max(40, a.width-4)).Render(strings.Join(lines, "\n"))
}

// logPanel renders the most recent event log lines that fit.
func (a *App) logPanel() string {
	visible := a.height - len(a.rows) - 10
	if visible < 3 {
		visible = 3
	}
	start := len(a.logs) - visible
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, entry := range a.logs[start:] {
		style := hintStyle
		switch entry.Level {
		case "done":
			style = doneStyle
		case "warn":
			style = runStyle
		case "error":
			style = failStyle
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			hintStyle.Render(entry.Timestamp.Format("15:04:05")),
			style.Render(entry.Message)))
	}
	if len(lines) == 0 {
		lines = append(lines, hintStyle.Render("waiting for events..."))
	}

	return panelStyle.Width(max(40, a.width-4)).Render(strings.Join(lines, "\n"))
}

// footer renders progress counts and keyboard hints.
func (a *App) footer() string {
	done, failed, running := a.Counts()

	status := fmt.Sprintf("%s %d done  %s %d failed  %s %d running  of %d",
		doneStyle.Render("✓"), done,
		failStyle.Render("✗"), failed,
		runStyle.Render("●"), running,
		len(a.rows))

	if a.done {
		if a.runErr != nil {
			status += "  " + failStyle.Render("stalled")
		} else if failed == 0 {
			status += "  " + doneStyle.Render("complete")
		}
	}

	return status + "\n" + hintStyle.Render("q quit")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
