// Package models defines the core domain types for tasklet.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is a top-level to-do item.
type Task struct {
	ID        string    `json:"-" yaml:"-"`
	Text      string    `json:"text" yaml:"text"`
	Completed bool      `json:"completed" yaml:"completed"`
	Subtasks  []Subtask `json:"subtasks" yaml:"subtasks"`
}

// Subtask is a child item owned by exactly one Task.
type Subtask struct {
	ID        string `json:"-" yaml:"-"`
	Text      string `json:"text" yaml:"text"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// TaskList is the ordered collection of tasks. Order is display order.
type TaskList []Task

// NewID returns a fresh identifier for a task or subtask.
func NewID() string {
	return uuid.New().String()
}

// CleanText trims surrounding whitespace. An empty result means the text is invalid.
func CleanText(s string) string {
	return strings.TrimSpace(s)
}

// AllSubtasksCompleted reports whether the task has at least one subtask
// and every subtask is completed.
func (t *Task) AllSubtasksCompleted() bool {
	if len(t.Subtasks) == 0 {
		return false
	}
	for _, s := range t.Subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}

// SyncCompletion recomputes Completed from the subtasks. Tasks without
// subtasks keep their explicit flag.
func (t *Task) SyncCompletion() {
	if len(t.Subtasks) == 0 {
		return
	}
	t.Completed = t.AllSubtasksCompleted()
}

// SubtaskIndex returns the position of the subtask with the given ID, or -1.
func (t *Task) SubtaskIndex(id string) int {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Progress returns the number of completed subtasks and the total.
func (t *Task) Progress() (done, total int) {
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		copy(c.Subtasks, t.Subtasks)
	}
	return c
}

// Clone returns a deep copy of the list.
func (l TaskList) Clone() TaskList {
	if l == nil {
		return TaskList{}
	}
	out := make(TaskList, len(l))
	for i := range l {
		out[i] = l[i].Clone()
	}
	return out
}

// EnsureIDs assigns identifiers to every task and subtask that lacks one
// and normalises nil subtask slices to empty ones.
func (l TaskList) EnsureIDs() {
	for i := range l {
		if l[i].ID == "" {
			l[i].ID = NewID()
		}
		if l[i].Subtasks == nil {
			l[i].Subtasks = []Subtask{}
		}
		for j := range l[i].Subtasks {
			if l[i].Subtasks[j].ID == "" {
				l[i].Subtasks[j].ID = NewID()
			}
		}
	}
}

// Index returns the position of the task with the given ID, or -1.
func (l TaskList) Index(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Counts returns the number of completed tasks and the total.
func (l TaskList) Counts() (done, total int) {
	for _, t := range l {
		if t.Completed {
			done++
		}
	}
	return done, len(l)
}

// JournalEntry records a single successful mutation of the task list.
type JournalEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Target     string    `json:"target,omitempty"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
}
