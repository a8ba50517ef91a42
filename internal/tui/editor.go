package tui

import (
	"github.com/fentz26/tasklet/internal/models"
	"github.com/fentz26/tasklet/internal/todo"
)

// EditState is the lifecycle of an inline input.
type EditState int

const (
	Editing EditState = iota
	Committed
	Cancelled
)

func (s EditState) String() string {
	switch s {
	case Editing:
		return "editing"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// EditKind says what a committed session should do with its text.
type EditKind int

const (
	EditAddTask EditKind = iota
	EditAddSubtask
	EditText
)

// EditSession guards an inline input so that it resolves exactly once.
// Enter, Tab, a selection change and terminal focus loss all try to commit;
// whichever arrives first wins and the rest are ignored.
type EditSession struct {
	Kind     EditKind
	Target   todo.Ref
	Original string
	state    EditState
}

// NewEditSession starts a session in the Editing state.
func NewEditSession(kind EditKind, target todo.Ref, original string) *EditSession {
	return &EditSession{Kind: kind, Target: target, Original: original}
}

// State returns the current state.
func (e *EditSession) State() EditState {
	return e.state
}

// Active reports whether the session still accepts a commit or cancel.
func (e *EditSession) Active() bool {
	return e != nil && e.state == Editing
}

// Commit moves the session to Committed and returns the trimmed text.
// ok is false when the session was already resolved.
func (e *EditSession) Commit(text string) (clean string, ok bool) {
	if !e.Active() {
		return "", false
	}
	e.state = Committed
	return models.CleanText(text), true
}

// Cancel moves the session to Cancelled. It reports whether it took effect.
func (e *EditSession) Cancel() bool {
	if !e.Active() {
		return false
	}
	e.state = Cancelled
	return true
}

// Unchanged reports whether text equals the original after trimming.
func (e *EditSession) Unchanged(text string) bool {
	return e.Kind == EditText && models.CleanText(text) == e.Original
}
