package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/tasklet/internal/snapshot"
	"github.com/fentz26/tasklet/internal/todo"
)

const helpText = "space toggle · a add · s subtask · e edit · d delete · K/J move · X clear · : command · q quit"

// executeCommand processes a command bar line.
func (a *App) executeCommand(input string) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	rest := strings.TrimSpace(strings.TrimPrefix(input, cmd))

	switch cmd {
	case "add":
		if rest == "" {
			return result("Usage: add <text>", nil)
		}
		return a.addTask(rest)

	case "sub":
		r, ok := a.current()
		if !ok {
			return result("No task selected", nil)
		}
		if rest == "" {
			return result("Usage: sub <text>", nil)
		}
		return a.addSubtask(r.ref.TaskID, rest)

	case "export":
		return a.export(rest)

	case "import":
		if rest == "" || rest == "-" {
			return result("Usage: import <path.json>", nil)
		}
		if a.store.Len() > 0 {
			a.pendingImport = rest
			a.mode = modeConfirmImport
			return nil
		}
		return a.importFile(rest)

	case "clear":
		if len(a.list) > 0 {
			a.mode = modeConfirmClear
		}
		return nil

	case "help", "?":
		return result(helpText, nil)

	case "q", "quit", "exit":
		return tea.Quit

	default:
		return result(fmt.Sprintf("Unknown: %s (try: add, sub, export, import, clear)", cmd), nil)
	}
}

func result(message string, err error) tea.Cmd {
	return reply(cmdResultMsg{message: message, err: err})
}

// reply delivers an already computed result. Store mutations run inside
// Update so they apply in the order keys were pressed.
func reply(res cmdResultMsg) tea.Cmd {
	return func() tea.Msg {
		return res
	}
}

func (a *App) addTask(text string) tea.Cmd {
	t, err := a.store.AddTask(a.ctx, text)
	if err != nil {
		return reply(cmdResultMsg{err: err})
	}
	ref := todo.Ref{TaskID: t.ID}
	return reply(cmdResultMsg{message: "✓ Added task", selectRef: &ref})
}

func (a *App) addSubtask(taskID, text string) tea.Cmd {
	st, err := a.store.AddSubtask(a.ctx, taskID, text)
	if err != nil {
		return reply(cmdResultMsg{err: err})
	}
	ref := todo.Ref{TaskID: taskID, SubtaskID: st.ID}
	return reply(cmdResultMsg{message: "✓ Added subtask", selectRef: &ref})
}

func (a *App) toggle(r row) tea.Cmd {
	var err error
	if r.isSubtask() {
		err = a.store.ToggleSubtask(a.ctx, r.ref.TaskID, r.ref.SubtaskID)
	} else {
		err = a.store.ToggleTask(a.ctx, r.ref.TaskID)
	}
	return reply(cmdResultMsg{err: err})
}

func (a *App) edit(ref todo.Ref, text string) tea.Cmd {
	var err error
	if ref.IsSubtask() {
		err = a.store.EditSubtask(a.ctx, ref.TaskID, ref.SubtaskID, text)
	} else {
		err = a.store.EditTask(a.ctx, ref.TaskID, text)
	}
	if err != nil {
		return reply(cmdResultMsg{err: err})
	}
	return reply(cmdResultMsg{message: "✓ Saved"})
}

func (a *App) remove(r row) tea.Cmd {
	var err error
	if r.isSubtask() {
		err = a.store.RemoveSubtask(a.ctx, r.ref.TaskID, r.ref.SubtaskID)
	} else {
		err = a.store.RemoveTask(a.ctx, r.ref.TaskID)
	}
	if err != nil {
		return reply(cmdResultMsg{err: err})
	}
	return reply(cmdResultMsg{message: "✓ Deleted"})
}

func (a *App) clear() tea.Cmd {
	if err := a.store.Clear(a.ctx); err != nil {
		return reply(cmdResultMsg{err: err})
	}
	return reply(cmdResultMsg{message: "✓ Cleared all tasks"})
}

// move shifts the item one place up (delta -1) or down (delta 1). A subtask
// at the edge of its task moves into the neighbouring task. Positions are
// looked up from the store by ID, never from the rendered rows, which may
// not reflect earlier moves yet. It returns nil when the item cannot move.
func (a *App) move(ref todo.Ref, delta int) tea.Cmd {
	list := a.store.Snapshot()
	i := list.Index(ref.TaskID)
	if i < 0 {
		return reply(cmdResultMsg{err: fmt.Errorf("%w: task %s", todo.ErrIndex, ref.TaskID)})
	}

	if !ref.IsSubtask() {
		to := i + delta
		if to < 0 || to >= len(list) {
			return nil
		}
		return reply(cmdResultMsg{err: a.store.MoveTask(a.ctx, ref.TaskID, to), selectRef: &ref})
	}

	j := list[i].SubtaskIndex(ref.SubtaskID)
	if j < 0 {
		return reply(cmdResultMsg{err: fmt.Errorf("%w: subtask %s", todo.ErrIndex, ref.SubtaskID)})
	}
	if to := j + delta; to >= 0 && to < len(list[i].Subtasks) {
		return reply(cmdResultMsg{err: a.store.MoveSubtask(a.ctx, ref.TaskID, ref.SubtaskID, ref.TaskID, to), selectRef: &ref})
	}

	dst := i + delta
	if dst < 0 || dst >= len(list) {
		return nil
	}
	pos := 0
	if delta < 0 {
		pos = len(list[dst].Subtasks)
	}
	err := a.store.MoveSubtask(a.ctx, ref.TaskID, ref.SubtaskID, list[dst].ID, pos)
	moved := todo.Ref{TaskID: list[dst].ID, SubtaskID: ref.SubtaskID}
	if err != nil {
		moved = ref
	}
	return reply(cmdResultMsg{err: err, selectRef: &moved})
}

func (a *App) export(base string) tea.Cmd {
	list := a.list
	return func() tea.Msg {
		name, err := snapshot.FileName(base, a.opts.ExportFormat)
		if err != nil {
			return cmdResultMsg{err: err}
		}
		data, err := snapshot.Encode(list, a.opts.ExportFormat)
		if err != nil {
			return cmdResultMsg{err: err}
		}
		path := filepath.Join(a.opts.ExportDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return cmdResultMsg{err: fmt.Errorf("write export: %w", err)}
		}
		return cmdResultMsg{message: fmt.Sprintf("✓ Exported %d tasks to %s", len(list), path)}
	}
}

// importFile replaces the list with the snapshot at path.
func (a *App) importFile(path string) tea.Cmd {
	list, err := snapshot.ReadFile(path, nil)
	if err != nil {
		return reply(cmdResultMsg{err: err})
	}
	if err := a.store.Replace(a.ctx, list); err != nil {
		return reply(cmdResultMsg{err: err})
	}
	return reply(cmdResultMsg{message: fmt.Sprintf("✓ Imported %d tasks", len(list))})
}
