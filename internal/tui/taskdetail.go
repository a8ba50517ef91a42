package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tasklet/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor)
)

// renderDetail shows a summary of the task owning the selected row.
func renderDetail(t models.Task, position int) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Task %d", position)) + "\n")
	b.WriteString(labelStyle.Render("Text:     ") + valueStyle.Render(t.Text) + "\n")

	status := statusOpen.Render("open")
	if t.Completed {
		status = statusDone.Render("done")
	}
	b.WriteString(labelStyle.Render("Status:   ") + status + "\n")

	done, total := t.Progress()
	if total == 0 {
		b.WriteString(labelStyle.Render("Subtasks: ") + valueStyle.Render("none") + "\n")
		return panelStyle.Render(b.String())
	}
	b.WriteString(labelStyle.Render("Subtasks: ") + valueStyle.Render(fmt.Sprintf("%d/%d done", done, total)) + "\n")
	b.WriteString(progressBar(done, total, 20))
	return panelStyle.Render(b.String())
}

func progressBar(done, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}
	filled := done * width / total
	return statusDone.Render(strings.Repeat("█", filled)) +
		labelStyle.Render(strings.Repeat("░", width-filled))
}
