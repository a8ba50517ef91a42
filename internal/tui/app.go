// Package tui provides the interactive terminal UI for tasklet.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tasklet/internal/models"
	"github.com/fentz26/tasklet/internal/snapshot"
	"github.com/fentz26/tasklet/internal/todo"
)

type mode int

const (
	modeList mode = iota
	modeInput
	modeCommand
	modeConfirmDelete
	modeConfirmClear
	modeConfirmImport
)

// Options configures the TUI.
type Options struct {
	ExportDir    string
	ExportFormat snapshot.Format
}

// App is the main TUI application model.
type App struct {
	ctx   context.Context
	store *todo.Store
	opts  Options

	list     models.TaskList
	rows     []row
	cursor   int
	selected todo.Ref

	mode        mode
	session     *EditSession
	input       textinput.Model
	suggestions *Suggestions

	pendingImport string

	message string
	isErr   bool
	width   int
	height  int

	changes     chan struct{}
	unsubscribe func()
}

// New creates a TUI bound to store. The App subscribes to store changes
// until Close is called.
func New(ctx context.Context, store *todo.Store, opts Options) *App {
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = snapshot.FormatJSON
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60

	a := &App{
		ctx:         ctx,
		store:       store,
		opts:        opts,
		input:       ti,
		suggestions: NewSuggestions(),
		changes:     make(chan struct{}, 1),
		width:       80,
		height:      24,
	}
	a.unsubscribe = store.Subscribe(func(models.TaskList) {
		select {
		case a.changes <- struct{}{}:
		default:
		}
	})
	a.refresh()
	return a
}

// Run starts the TUI application.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}

// Close stops listening for store changes.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.waitForChange())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(10, msg.Width-8)
		return a, nil

	case tea.BlurMsg:
		if a.mode == modeInput {
			return a, a.commitInput()
		}
		return a, nil

	case listChangedMsg:
		a.refresh()
		return a, a.waitForChange()

	case cmdResultMsg:
		a.message = msg.message
		a.isErr = msg.err != nil
		if msg.err != nil {
			a.message = "Error: " + msg.err.Error()
		}
		if msg.selectRef != nil {
			a.selected = *msg.selectRef
		}
		a.refresh()
		if msg.quit {
			return a, tea.Quit
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.mode {
		case modeInput:
			return a.updateInput(msg)
		case modeCommand:
			return a.updateCommand(msg)
		case modeConfirmDelete, modeConfirmClear, modeConfirmImport:
			return a.updateConfirm(msg)
		default:
			return a.updateList(msg)
		}
	}

	if a.mode == modeInput || a.mode == modeCommand {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.message = ""
	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "up", "k":
		a.moveCursor(-1)

	case "down", "j":
		a.moveCursor(1)

	case " ", "x":
		if r, ok := a.current(); ok {
			return a, a.toggle(r)
		}

	case "a":
		return a, a.startInput(NewEditSession(EditAddTask, todo.Ref{}, ""), "New task", "")

	case "s":
		if r, ok := a.current(); ok {
			target := todo.Ref{TaskID: r.ref.TaskID}
			return a, a.startInput(NewEditSession(EditAddSubtask, target, ""), "New subtask", "")
		}

	case "e", "enter":
		if r, ok := a.current(); ok {
			return a, a.startInput(NewEditSession(EditText, r.ref, r.text), "Edit", r.text)
		}

	case "d", "delete":
		if _, ok := a.current(); ok {
			a.mode = modeConfirmDelete
		}

	case "X":
		if len(a.list) > 0 {
			a.mode = modeConfirmClear
		}

	case "K", "shift+up":
		if r, ok := a.current(); ok {
			return a, a.move(r.ref, -1)
		}

	case "J", "shift+down":
		if r, ok := a.current(); ok {
			return a, a.move(r.ref, 1)
		}

	case ":", "/":
		a.mode = modeCommand
		a.input.Placeholder = "add <text> | sub <text> | export <name> | import <path> | clear"
		a.input.SetValue("")
		a.suggestions.Update("")
		return a, a.input.Focus()
	}
	return a, nil
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.session.Cancel()
		a.endInput()
		return a, nil

	case "enter", "tab":
		return a, a.commitInput()

	case "up", "down":
		// Leaving the row commits the edit, like clicking elsewhere.
		cmd := a.commitInput()
		if msg.String() == "up" {
			a.moveCursor(-1)
		} else {
			a.moveCursor(1)
		}
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.endInput()
		return a, nil

	case "up":
		a.suggestions.Prev()
		return a, nil

	case "down":
		a.suggestions.Next()
		return a, nil

	case "tab":
		a.acceptSuggestion()
		return a, nil

	case "enter":
		value := strings.TrimSpace(a.input.Value())
		if sel := a.suggestions.Selected(); sel != nil && a.suggestions.IsVisible() && sel.Text != value {
			a.acceptSuggestion()
			return a, nil
		}
		a.endInput()
		return a, a.executeCommand(value)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.suggestions.Update(a.input.Value())
	return a, cmd
}

func (a *App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := a.mode
	a.mode = modeList
	path := a.pendingImport
	a.pendingImport = ""
	switch msg.String() {
	case "y", "Y":
		switch m {
		case modeConfirmClear:
			return a, a.clear()
		case modeConfirmImport:
			return a, a.importFile(path)
		}
		if r, ok := a.current(); ok {
			return a, a.remove(r)
		}
	default:
		a.message = "Cancelled"
	}
	return a, nil
}

func (a *App) acceptSuggestion() {
	if sel := a.suggestions.Selected(); sel != nil {
		a.input.SetValue(sel.Text + " ")
		a.input.CursorEnd()
		a.suggestions.Hide()
	}
}

func (a *App) startInput(s *EditSession, placeholder, value string) tea.Cmd {
	a.session = s
	a.mode = modeInput
	a.input.Placeholder = placeholder
	a.input.SetValue(value)
	a.input.CursorEnd()
	return a.input.Focus()
}

func (a *App) endInput() {
	a.mode = modeList
	a.input.Blur()
	a.input.SetValue("")
	a.suggestions.Hide()
}

// commitInput resolves the active session. It returns nil when the session
// was already resolved.
func (a *App) commitInput() tea.Cmd {
	s := a.session
	text, ok := s.Commit(a.input.Value())
	a.endInput()
	if !ok {
		return nil
	}
	if s.Unchanged(text) {
		return nil
	}

	switch s.Kind {
	case EditAddTask:
		return a.addTask(text)
	case EditAddSubtask:
		return a.addSubtask(s.Target.TaskID, text)
	default:
		return a.edit(s.Target, text)
	}
}

// refresh re-reads the list and re-derives the cursor from the selected ID.
func (a *App) refresh() {
	a.list = a.store.Snapshot()
	a.rows = flatten(a.list)
	if len(a.rows) == 0 {
		a.cursor = 0
		a.selected = todo.Ref{}
		return
	}
	idx := rowIndex(a.rows, a.selected)
	if idx < 0 {
		idx = min(a.cursor, len(a.rows)-1)
	}
	a.cursor = idx
	a.selected = a.rows[idx].ref
}

func (a *App) moveCursor(delta int) {
	if len(a.rows) == 0 {
		return
	}
	a.cursor = max(0, min(len(a.rows)-1, a.cursor+delta))
	a.selected = a.rows[a.cursor].ref
}

func (a *App) current() (row, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return row{}, false
	}
	return a.rows[a.cursor], true
}

func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-a.changes; !ok {
			return nil
		}
		return listChangedMsg{}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	done, total := a.list.Counts()
	header := titleStyle.Render("tasklet")
	header += "  " + helpStyle.Render(fmt.Sprintf("%d/%d done", done, total))
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(0, a.width)) + "\n")

	contentHeight := max(5, a.height-14)
	editing := ""
	if a.mode == modeInput && a.session != nil && a.session.Kind == EditText {
		editing = a.input.View()
	}
	b.WriteString(renderTree(a.list, a.rows, a.cursor, contentHeight, editing))
	b.WriteString("\n")

	if r, ok := a.current(); ok && a.height >= 20 {
		b.WriteString("\n" + renderDetail(a.list[r.task], r.task+1) + "\n")
	}

	switch a.mode {
	case modeConfirmDelete:
		if r, ok := a.current(); ok {
			what := "task"
			if r.isSubtask() {
				what = "subtask"
			}
			b.WriteString("\n" + confirmStyle.Render(fmt.Sprintf("Delete %s %q? (y/n)", what, r.text)))
		}
	case modeConfirmClear:
		b.WriteString("\n" + confirmStyle.Render(fmt.Sprintf("Delete all %d tasks? (y/n)", len(a.list))))
	case modeConfirmImport:
		b.WriteString("\n" + confirmStyle.Render(fmt.Sprintf("Replace %d tasks with %s? (y/n)", len(a.list), a.pendingImport)))
	default:
		if a.message != "" {
			msgStyle := lipgloss.NewStyle().Foreground(successColor)
			if a.isErr {
				msgStyle = lipgloss.NewStyle().Foreground(errorColor)
			}
			b.WriteString("\n" + msgStyle.Render(a.message))
		} else {
			b.WriteString("\n")
		}
	}

	if (a.mode == modeInput && editing == "") || a.mode == modeCommand {
		prefix := ""
		if a.mode == modeCommand {
			prefix = ": "
		}
		b.WriteString("\n" + inputBoxStyle.Render(prefix+a.input.View()))
		if a.mode == modeCommand && a.suggestions.IsVisible() {
			b.WriteString("\n" + a.suggestions.Render(a.width))
		}
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case modeInput:
		status = " Enter/Tab:save | Esc:cancel"
	case modeCommand:
		status = " Enter:run | Tab:complete | Esc:close"
	case modeConfirmDelete, modeConfirmClear, modeConfirmImport:
		status = " y:confirm | any other key:cancel"
	default:
		status = " ↑↓:nav | space:toggle | a:add | s:subtask | e:edit | d:delete | K/J:move | X:clear | ::command | q:quit"
	}
	b.WriteString(statusBarStyle.Width(max(0, a.width)).Render(status))

	return b.String()
}

type listChangedMsg struct{}

type cmdResultMsg struct {
	message   string
	err       error
	selectRef *todo.Ref
	quit      bool
}
