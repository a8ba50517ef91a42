package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tasklet/internal/models"
	"github.com/fentz26/tasklet/internal/todo"
)

var (
	statusOpen = lipgloss.NewStyle().Foreground(warningColor)
	statusDone = lipgloss.NewStyle().Foreground(successColor)
	doneText   = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true)
)

// row is one visible line of the task tree.
type row struct {
	ref     todo.Ref
	task    int
	sub     int // -1 for task rows
	text    string
	done    bool
	hasSubs bool
}

func (r row) isSubtask() bool {
	return r.sub >= 0
}

// flatten lays the list out as task rows each followed by its subtask rows.
func flatten(list models.TaskList) []row {
	var rows []row
	for i, t := range list {
		rows = append(rows, row{
			ref:     todo.Ref{TaskID: t.ID},
			task:    i,
			sub:     -1,
			text:    t.Text,
			done:    t.Completed,
			hasSubs: len(t.Subtasks) > 0,
		})
		for j, s := range t.Subtasks {
			rows = append(rows, row{
				ref:  todo.Ref{TaskID: t.ID, SubtaskID: s.ID},
				task: i,
				sub:  j,
				text: s.Text,
				done: s.Completed,
			})
		}
	}
	return rows
}

// rowIndex finds ref in rows. A subtask that no longer exists falls back to
// its parent task.
func rowIndex(rows []row, ref todo.Ref) int {
	parent := -1
	for i, r := range rows {
		if r.ref == ref {
			return i
		}
		if !r.isSubtask() && r.ref.TaskID == ref.TaskID {
			parent = i
		}
	}
	return parent
}

func checkbox(done bool) string {
	if done {
		return statusDone.Render("[x]")
	}
	return statusOpen.Render("[ ]")
}

func checkboxPlain(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// renderRow draws a single row. editing replaces the text with the input view.
func renderRow(list models.TaskList, r row, selected bool, editing string) string {
	indent := ""
	label := fmt.Sprintf("%d.", r.task+1)
	if r.isSubtask() {
		indent = "    "
		label = fmt.Sprintf("%d.%d", r.task+1, r.sub+1)
	}

	text := r.text
	if editing != "" {
		text = editing
	}

	suffix := ""
	if r.hasSubs {
		done, total := list[r.task].Progress()
		suffix = fmt.Sprintf(" (%d/%d)", done, total)
	}

	if selected {
		return selectedStyle.Render(fmt.Sprintf("%s▶ %s %s %s%s", indent, checkboxPlain(r.done), label, text, suffix))
	}
	if r.done && editing == "" {
		text = doneText.Render(text)
	}
	return taskItemStyle.Render(fmt.Sprintf("%s  %s %s %s%s", indent, checkbox(r.done), label, text, helpStyle.Render(suffix)))
}

// renderTree renders the visible window of rows around the selection.
func renderTree(list models.TaskList, rows []row, selected int, height int, editing string) string {
	if len(rows) == 0 {
		return "\n  No tasks yet. Press a to add one.\n"
	}

	lines := make([]string, 0, len(rows))
	for i, r := range rows {
		edit := ""
		if i == selected {
			edit = editing
		}
		lines = append(lines, renderRow(list, r, i == selected, edit))
	}

	if height > 0 && len(lines) > height {
		start := selected - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}
	return strings.Join(lines, "\n")
}
