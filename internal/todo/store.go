// Package todo implements the task store: the authoritative in-memory task
// list and every mutation on it.
//
// All mutations are applied to a working copy, persisted through the
// configured Persister and only then published. A failed validation or a
// failed save leaves the list exactly as it was.
package todo

import (
	"context"
	"fmt"
	"sync"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/rs/zerolog/log"
)

// Persister loads and saves full task list snapshots.
type Persister interface {
	Load(ctx context.Context) (models.TaskList, error)
	Save(ctx context.Context, list models.TaskList) error
}

// Recorder receives an entry for every successful mutation.
type Recorder interface {
	Record(ctx context.Context, action, target string, inputs any) error
}

// Listener is called with a copy of the list after each successful mutation.
type Listener func(models.TaskList)

// Option configures a Store.
type Option func(*Store)

// WithRecorder attaches an activity recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// Store owns the task list.
type Store struct {
	mu        sync.Mutex
	persister Persister
	recorder  Recorder
	tasks     models.TaskList

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int
}

// Open loads the persisted list and returns a ready store.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	list, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	list = list.Clone()
	list.EnsureIDs()

	s := &Store{
		persister: p,
		tasks:     list,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Debug().Int("tasks", len(list)).Msg("task store opened")
	return s, nil
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// Snapshot returns a deep copy of the current list.
func (s *Store) Snapshot() models.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Clone()
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Task returns a copy of the task with the given ID.
func (s *Store) Task(id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := findTask(s.tasks, id)
	if err != nil {
		return models.Task{}, err
	}
	return s.tasks[i].Clone(), nil
}

// --- Task operations ---

// AddTask appends a new open task.
func (s *Store) AddTask(ctx context.Context, text string) (models.Task, error) {
	clean := models.CleanText(text)
	if clean == "" {
		return models.Task{}, ErrValidation
	}
	task := models.Task{ID: models.NewID(), Text: clean, Subtasks: []models.Subtask{}}
	err := s.mutate(ctx, "task.add", task.ID, map[string]string{"text": clean}, func(list models.TaskList) (models.TaskList, error) {
		return append(list, task), nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task.Clone(), nil
}

// RemoveTask deletes the task and its subtasks.
func (s *Store) RemoveTask(ctx context.Context, id string) error {
	return s.mutate(ctx, "task.remove", id, nil, func(list models.TaskList) (models.TaskList, error) {
		i, err := findTask(list, id)
		if err != nil {
			return nil, err
		}
		return append(list[:i], list[i+1:]...), nil
	})
}

// ToggleTask flips the task's completion. Completing a task completes all of
// its subtasks; reopening it leaves them as they are.
func (s *Store) ToggleTask(ctx context.Context, id string) error {
	return s.mutate(ctx, "task.toggle", id, nil, func(list models.TaskList) (models.TaskList, error) {
		i, err := findTask(list, id)
		if err != nil {
			return nil, err
		}
		t := &list[i]
		t.Completed = !t.Completed
		if t.Completed {
			for j := range t.Subtasks {
				t.Subtasks[j].Completed = true
			}
		}
		return list, nil
	})
}

// EditTask replaces the task's text.
func (s *Store) EditTask(ctx context.Context, id, text string) error {
	clean := models.CleanText(text)
	if clean == "" {
		return ErrValidation
	}
	return s.mutate(ctx, "task.edit", id, map[string]string{"text": clean}, func(list models.TaskList) (models.TaskList, error) {
		i, err := findTask(list, id)
		if err != nil {
			return nil, err
		}
		list[i].Text = clean
		return list, nil
	})
}

// MoveTask moves the task to position to, shifting the others.
func (s *Store) MoveTask(ctx context.Context, id string, to int) error {
	return s.mutate(ctx, "task.move", id, map[string]int{"to": to}, func(list models.TaskList) (models.TaskList, error) {
		from, err := findTask(list, id)
		if err != nil {
			return nil, err
		}
		return moveTask(list, from, to)
	})
}

// ReorderTask moves the task at position from to position to. Equal
// positions are a no-op and do not persist.
func (s *Store) ReorderTask(ctx context.Context, from, to int) error {
	s.mu.Lock()
	n := len(s.tasks)
	var id string
	if from >= 0 && from < n {
		id = s.tasks[from].ID
	}
	s.mu.Unlock()

	if id == "" {
		return fmt.Errorf("%w: task position %d", ErrIndex, from)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("%w: task position %d", ErrIndex, to)
	}
	if from == to {
		return nil
	}
	return s.MoveTask(ctx, id, to)
}

// Clear removes every task.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "task.clear", "", nil, func(models.TaskList) (models.TaskList, error) {
		return models.TaskList{}, nil
	})
}

// Replace swaps the whole list, as done by an import. IDs are assigned to
// items that have none.
func (s *Store) Replace(ctx context.Context, list models.TaskList) error {
	next := list.Clone()
	for _, t := range next {
		if models.CleanText(t.Text) == "" {
			return ErrValidation
		}
		for _, st := range t.Subtasks {
			if models.CleanText(st.Text) == "" {
				return ErrValidation
			}
		}
	}
	next.EnsureIDs()
	return s.mutate(ctx, "task.replace", "", map[string]int{"tasks": len(next)}, func(models.TaskList) (models.TaskList, error) {
		return next, nil
	})
}

// --- Subtask operations ---

// AddSubtask appends an open subtask and reopens the parent.
func (s *Store) AddSubtask(ctx context.Context, taskID, text string) (models.Subtask, error) {
	clean := models.CleanText(text)
	if clean == "" {
		return models.Subtask{}, ErrValidation
	}
	sub := models.Subtask{ID: models.NewID(), Text: clean}
	err := s.mutate(ctx, "subtask.add", sub.ID, map[string]string{"task": taskID, "text": clean}, func(list models.TaskList) (models.TaskList, error) {
		i, err := findTask(list, taskID)
		if err != nil {
			return nil, err
		}
		list[i].Subtasks = append(list[i].Subtasks, sub)
		list[i].Completed = false
		return list, nil
	})
	if err != nil {
		return models.Subtask{}, err
	}
	return sub, nil
}

// ToggleSubtask flips the subtask and recomputes the parent as the AND of
// all its subtasks.
func (s *Store) ToggleSubtask(ctx context.Context, taskID, subID string) error {
	return s.mutate(ctx, "subtask.toggle", subID, map[string]string{"task": taskID}, func(list models.TaskList) (models.TaskList, error) {
		i, j, err := findSubtask(list, taskID, subID)
		if err != nil {
			return nil, err
		}
		t := &list[i]
		t.Subtasks[j].Completed = !t.Subtasks[j].Completed
		t.SyncCompletion()
		return list, nil
	})
}

// RemoveSubtask deletes the subtask. When subtasks remain the parent is
// recomputed from them; removing the last one keeps the parent's flag.
func (s *Store) RemoveSubtask(ctx context.Context, taskID, subID string) error {
	return s.mutate(ctx, "subtask.remove", subID, map[string]string{"task": taskID}, func(list models.TaskList) (models.TaskList, error) {
		i, j, err := findSubtask(list, taskID, subID)
		if err != nil {
			return nil, err
		}
		t := &list[i]
		t.Subtasks = append(t.Subtasks[:j], t.Subtasks[j+1:]...)
		t.SyncCompletion()
		return list, nil
	})
}

// EditSubtask replaces the subtask's text.
func (s *Store) EditSubtask(ctx context.Context, taskID, subID, text string) error {
	clean := models.CleanText(text)
	if clean == "" {
		return ErrValidation
	}
	return s.mutate(ctx, "subtask.edit", subID, map[string]string{"task": taskID, "text": clean}, func(list models.TaskList) (models.TaskList, error) {
		i, j, err := findSubtask(list, taskID, subID)
		if err != nil {
			return nil, err
		}
		list[i].Subtasks[j].Text = clean
		return list, nil
	})
}

// MoveSubtask moves a subtask to position to in the subtasks of toTaskID,
// which may be a different task. Both parents are recomputed.
func (s *Store) MoveSubtask(ctx context.Context, fromTaskID, subID, toTaskID string, to int) error {
	inputs := map[string]any{"from": fromTaskID, "to_task": toTaskID, "to": to}
	return s.mutate(ctx, "subtask.move", subID, inputs, func(list models.TaskList) (models.TaskList, error) {
		i, j, err := findSubtask(list, fromTaskID, subID)
		if err != nil {
			return nil, err
		}
		k, err := findTask(list, toTaskID)
		if err != nil {
			return nil, err
		}
		return moveSubtask(list, i, j, k, to)
	})
}

// ReorderSubtask is the positional form of MoveSubtask.
func (s *Store) ReorderSubtask(ctx context.Context, fromTask, from, toTask, to int) error {
	s.mu.Lock()
	var fromID, subID, toID string
	if fromTask >= 0 && fromTask < len(s.tasks) {
		fromID = s.tasks[fromTask].ID
		if from >= 0 && from < len(s.tasks[fromTask].Subtasks) {
			subID = s.tasks[fromTask].Subtasks[from].ID
		}
	}
	if toTask >= 0 && toTask < len(s.tasks) {
		toID = s.tasks[toTask].ID
	}
	s.mu.Unlock()

	switch {
	case fromID == "":
		return fmt.Errorf("%w: task position %d", ErrIndex, fromTask)
	case subID == "":
		return fmt.Errorf("%w: subtask position %d", ErrIndex, from)
	case toID == "":
		return fmt.Errorf("%w: task position %d", ErrIndex, toTask)
	}
	if fromTask == toTask && from == to {
		return nil
	}
	return s.MoveSubtask(ctx, fromID, subID, toID, to)
}

// --- internals ---

func (s *Store) mutate(ctx context.Context, action, target string, inputs any, fn func(models.TaskList) (models.TaskList, error)) error {
	s.mu.Lock()
	next, err := fn(s.tasks.Clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persister.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	s.mu.Unlock()

	log.Debug().Str("action", action).Str("target", target).Int("tasks", len(next)).Msg("tasks updated")

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, action, target, inputs); err != nil {
			log.Warn().Err(err).Str("action", action).Msg("journal write failed")
		}
	}
	s.notify(next)
	return nil
}

func (s *Store) notify(list models.TaskList) {
	s.listenerMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(list.Clone())
	}
}

func findTask(list models.TaskList, id string) (int, error) {
	i := list.Index(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: task %s", ErrIndex, id)
	}
	return i, nil
}

func findSubtask(list models.TaskList, taskID, subID string) (int, int, error) {
	i, err := findTask(list, taskID)
	if err != nil {
		return -1, -1, err
	}
	j := list[i].SubtaskIndex(subID)
	if j < 0 {
		return -1, -1, fmt.Errorf("%w: subtask %s", ErrIndex, subID)
	}
	return i, j, nil
}

func moveTask(list models.TaskList, from, to int) (models.TaskList, error) {
	if to < 0 || to >= len(list) {
		return nil, fmt.Errorf("%w: task position %d", ErrIndex, to)
	}
	if from == to {
		return list, nil
	}
	t := list[from]
	list = append(list[:from], list[from+1:]...)
	list = append(list[:to], append(models.TaskList{t}, list[to:]...)...)
	return list, nil
}

func moveSubtask(list models.TaskList, fromTask, from, toTask, to int) (models.TaskList, error) {
	src := &list[fromTask]
	limit := len(list[toTask].Subtasks)
	if fromTask == toTask {
		limit--
	}
	if to < 0 || to > limit {
		return nil, fmt.Errorf("%w: subtask position %d", ErrIndex, to)
	}

	sub := src.Subtasks[from]
	src.Subtasks = append(src.Subtasks[:from], src.Subtasks[from+1:]...)

	dst := &list[toTask]
	subs := make([]models.Subtask, 0, len(dst.Subtasks)+1)
	subs = append(subs, dst.Subtasks[:to]...)
	subs = append(subs, sub)
	subs = append(subs, dst.Subtasks[to:]...)
	dst.Subtasks = subs

	if fromTask != toTask {
		src.SyncCompletion()
		dst.SyncCompletion()
	}
	return list, nil
}
