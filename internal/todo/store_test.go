package todo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type memPersister struct {
	mu      sync.Mutex
	list    models.TaskList
	saves   int
	failErr error
}

func (p *memPersister) Load(context.Context) (models.TaskList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list.Clone(), nil
}

func (p *memPersister) Save(_ context.Context, list models.TaskList) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.saves++
	p.list = list.Clone()
	return nil
}

type recorded struct {
	action string
	target string
}

type fakeRecorder struct {
	entries []recorded
}

func (r *fakeRecorder) Record(_ context.Context, action, target string, _ any) error {
	r.entries = append(r.entries, recorded{action, target})
	return nil
}

func newTestStore(t *testing.T) (*Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	s, err := Open(context.Background(), p)
	require.NoError(t, err)
	return s, p
}

func texts(list models.TaskList) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Text
	}
	return out
}

func TestOpen_AssignsIDsToLoadedTasks(t *testing.T) {
	p := &memPersister{list: models.TaskList{
		{Text: "a", Subtasks: []models.Subtask{{Text: "a1"}}},
		{Text: "b"},
	}}
	s, err := Open(context.Background(), p)
	require.NoError(t, err)

	list := s.Snapshot()
	require.Len(t, list, 2)
	assert.NotEmpty(t, list[0].ID)
	assert.NotEmpty(t, list[0].Subtasks[0].ID)
	assert.NotNil(t, list[1].Subtasks)
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	for i, text := range []string{"Buy milk", "  padded  ", "x"} {
		task, err := s.AddTask(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, i+1, s.Len())
		assert.False(t, task.Completed)
		assert.Empty(t, task.Subtasks)
		assert.NotEmpty(t, task.ID)
	}
	assert.Equal(t, []string{"Buy milk", "padded", "x"}, texts(s.Snapshot()))
	assert.Equal(t, 3, p.saves)
}

func TestAddTask_RejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := s.AddTask(ctx, text)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, p.saves)
}

func TestRemoveTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a, _ := s.AddTask(ctx, "a")
	_, _ = s.AddTask(ctx, "b")

	require.NoError(t, s.RemoveTask(ctx, a.ID))
	assert.Equal(t, []string{"b"}, texts(s.Snapshot()))

	err := s.RemoveTask(ctx, a.ID)
	assert.ErrorIs(t, err, ErrIndex)
	assert.Equal(t, 1, s.Len())
}

func TestToggleTask_CascadesOnlyWhenCompleting(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	sub1, _ := s.AddSubtask(ctx, task.ID, "one")
	_, _ = s.AddSubtask(ctx, task.ID, "two")
	require.NoError(t, s.ToggleSubtask(ctx, task.ID, sub1.ID))

	require.NoError(t, s.ToggleTask(ctx, task.ID))
	got, _ := s.Task(task.ID)
	assert.True(t, got.Completed)
	for _, st := range got.Subtasks {
		assert.True(t, st.Completed)
	}

	require.NoError(t, s.ToggleTask(ctx, task.ID))
	got, _ = s.Task(task.ID)
	assert.False(t, got.Completed)
	for _, st := range got.Subtasks {
		assert.True(t, st.Completed, "reopening a task must not touch subtasks")
	}
}

func TestToggleTask_WithoutSubtasksIsAFlip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")

	require.NoError(t, s.ToggleTask(ctx, task.ID))
	got, _ := s.Task(task.ID)
	assert.True(t, got.Completed)

	require.NoError(t, s.ToggleTask(ctx, task.ID))
	got, _ = s.Task(task.ID)
	assert.False(t, got.Completed)
}

func TestEditTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "old")

	require.NoError(t, s.EditTask(ctx, task.ID, "  new  "))
	got, _ := s.Task(task.ID)
	assert.Equal(t, "new", got.Text)

	assert.ErrorIs(t, s.EditTask(ctx, task.ID, "  "), ErrValidation)
	got, _ = s.Task(task.ID)
	assert.Equal(t, "new", got.Text)

	assert.ErrorIs(t, s.EditTask(ctx, "missing", "x"), ErrIndex)
}

func TestAddSubtask_ReopensParent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	require.NoError(t, s.ToggleTask(ctx, task.ID))

	sub, err := s.AddSubtask(ctx, task.ID, "sub")
	require.NoError(t, err)
	assert.False(t, sub.Completed)

	got, _ := s.Task(task.ID)
	assert.False(t, got.Completed)
	require.Len(t, got.Subtasks, 1)
}

func TestAddSubtask_RejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	saves := p.saves

	_, err := s.AddSubtask(ctx, task.ID, " ")
	assert.ErrorIs(t, err, ErrValidation)
	got, _ := s.Task(task.ID)
	assert.Empty(t, got.Subtasks)
	assert.Equal(t, saves, p.saves)
}

func TestToggleSubtask_ParentIsConjunction(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	a, _ := s.AddSubtask(ctx, task.ID, "a")
	b, _ := s.AddSubtask(ctx, task.ID, "b")

	require.NoError(t, s.ToggleSubtask(ctx, task.ID, a.ID))
	got, _ := s.Task(task.ID)
	assert.False(t, got.Completed)

	require.NoError(t, s.ToggleSubtask(ctx, task.ID, b.ID))
	got, _ = s.Task(task.ID)
	assert.True(t, got.Completed)

	require.NoError(t, s.ToggleSubtask(ctx, task.ID, a.ID))
	got, _ = s.Task(task.ID)
	assert.False(t, got.Completed)
}

func TestRemoveSubtask_RecomputesParent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	done, _ := s.AddSubtask(ctx, task.ID, "done")
	open, _ := s.AddSubtask(ctx, task.ID, "open")
	require.NoError(t, s.ToggleSubtask(ctx, task.ID, done.ID))

	require.NoError(t, s.RemoveSubtask(ctx, task.ID, open.ID))
	got, _ := s.Task(task.ID)
	assert.True(t, got.Completed)

	require.NoError(t, s.RemoveSubtask(ctx, task.ID, done.ID))
	got, _ = s.Task(task.ID)
	assert.Empty(t, got.Subtasks)
	assert.True(t, got.Completed, "last subtask removal keeps the parent flag")

	assert.ErrorIs(t, s.RemoveSubtask(ctx, task.ID, done.ID), ErrIndex)
}

func TestEditSubtask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	sub, _ := s.AddSubtask(ctx, task.ID, "old")

	require.NoError(t, s.EditSubtask(ctx, task.ID, sub.ID, "new"))
	got, _ := s.Task(task.ID)
	assert.Equal(t, "new", got.Subtasks[0].Text)

	assert.ErrorIs(t, s.EditSubtask(ctx, task.ID, sub.ID, ""), ErrValidation)
	assert.ErrorIs(t, s.EditSubtask(ctx, task.ID, "missing", "x"), ErrIndex)
}

func TestReorderTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, text := range []string{"a", "b", "c", "d"} {
		_, _ = s.AddTask(ctx, text)
	}

	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"b", "c", "a", "d"}},
		{2, 0, []string{"a", "b", "c", "d"}},
		{3, 1, []string{"a", "d", "b", "c"}},
		{1, 3, []string{"a", "b", "c", "d"}},
		{2, 2, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d->%d", tt.from, tt.to), func(t *testing.T) {
			require.NoError(t, s.ReorderTask(ctx, tt.from, tt.to))
			assert.Equal(t, tt.want, texts(s.Snapshot()))
		})
	}

	assert.ErrorIs(t, s.ReorderTask(ctx, 4, 0), ErrIndex)
	assert.ErrorIs(t, s.ReorderTask(ctx, 0, 4), ErrIndex)
	assert.ErrorIs(t, s.ReorderTask(ctx, -1, 0), ErrIndex)
}

func TestMoveTask_ByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a, _ := s.AddTask(ctx, "a")
	_, _ = s.AddTask(ctx, "b")
	_, _ = s.AddTask(ctx, "c")

	require.NoError(t, s.MoveTask(ctx, a.ID, 2))
	assert.Equal(t, []string{"b", "c", "a"}, texts(s.Snapshot()))
	assert.ErrorIs(t, s.MoveTask(ctx, a.ID, 3), ErrIndex)
}

func TestReorderSubtask_WithinTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "task")
	for _, text := range []string{"a", "b", "c"} {
		_, _ = s.AddSubtask(ctx, task.ID, text)
	}

	require.NoError(t, s.ReorderSubtask(ctx, 0, 0, 0, 2))
	got, _ := s.Task(task.ID)
	assert.Equal(t, "b", got.Subtasks[0].Text)
	assert.Equal(t, "c", got.Subtasks[1].Text)
	assert.Equal(t, "a", got.Subtasks[2].Text)

	assert.ErrorIs(t, s.ReorderSubtask(ctx, 0, 0, 0, 3), ErrIndex)
}

func TestReorderSubtask_AcrossTasks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	src, _ := s.AddTask(ctx, "src")
	dst, _ := s.AddTask(ctx, "dst")
	done, _ := s.AddSubtask(ctx, src.ID, "done")
	open, _ := s.AddSubtask(ctx, src.ID, "open")
	require.NoError(t, s.ToggleSubtask(ctx, src.ID, done.ID))
	d1, _ := s.AddSubtask(ctx, dst.ID, "d1")
	require.NoError(t, s.ToggleSubtask(ctx, dst.ID, d1.ID))

	require.NoError(t, s.MoveSubtask(ctx, src.ID, open.ID, dst.ID, 0))

	gotSrc, _ := s.Task(src.ID)
	gotDst, _ := s.Task(dst.ID)
	require.Len(t, gotSrc.Subtasks, 1)
	require.Len(t, gotDst.Subtasks, 2)
	assert.Equal(t, "open", gotDst.Subtasks[0].Text)
	assert.True(t, gotSrc.Completed, "remaining subtasks are all done")
	assert.False(t, gotDst.Completed, "moved-in open subtask reopens target")

	require.NoError(t, s.ReorderSubtask(ctx, 1, 0, 0, 1))
	gotSrc, _ = s.Task(src.ID)
	assert.Equal(t, "open", gotSrc.Subtasks[1].Text)

	assert.ErrorIs(t, s.ReorderSubtask(ctx, 0, 0, 5, 0), ErrIndex)
	assert.ErrorIs(t, s.ReorderSubtask(ctx, 0, 9, 1, 0), ErrIndex)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	_, _ = s.AddTask(ctx, "a")
	_, _ = s.AddTask(ctx, "b")

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, p.list)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.AddTask(ctx, "old")

	err := s.Replace(ctx, models.TaskList{{Text: "new", Subtasks: []models.Subtask{{Text: "n1", Completed: true}}}})
	require.NoError(t, err)
	list := s.Snapshot()
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Text)
	assert.NotEmpty(t, list[0].Subtasks[0].ID)

	err = s.Replace(ctx, models.TaskList{{Text: " "}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "new", s.Snapshot()[0].Text)
}

func TestSaveFailure_LeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	task, _ := s.AddTask(ctx, "a")

	boom := errors.New("disk full")
	p.failErr = boom

	_, err := s.AddTask(ctx, "b")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.ToggleTask(ctx, task.ID), boom)

	list := s.Snapshot()
	assert.Equal(t, []string{"a"}, texts(list))
	assert.False(t, list[0].Completed)
}

func TestSnapshot_IsACopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task, _ := s.AddTask(ctx, "a")
	_, _ = s.AddSubtask(ctx, task.ID, "a1")

	list := s.Snapshot()
	list[0].Text = "mutated"
	list[0].Subtasks[0].Text = "mutated"

	got, _ := s.Task(task.ID)
	assert.Equal(t, "a", got.Text)
	assert.Equal(t, "a1", got.Subtasks[0].Text)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var seen []int
	cancel := s.Subscribe(func(list models.TaskList) {
		seen = append(seen, len(list))
	})
	_, _ = s.AddTask(ctx, "a")
	_, _ = s.AddTask(ctx, "")
	_, _ = s.AddTask(ctx, "b")
	cancel()
	_, _ = s.AddTask(ctx, "c")

	assert.Equal(t, []int{1, 2}, seen)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	s, err := Open(ctx, &memPersister{}, WithRecorder(rec))
	require.NoError(t, err)

	task, _ := s.AddTask(ctx, "a")
	_ = s.ToggleTask(ctx, task.ID)
	_ = s.ToggleTask(ctx, "missing")

	require.Len(t, rec.entries, 2)
	assert.Equal(t, recorded{"task.add", task.ID}, rec.entries[0])
	assert.Equal(t, recorded{"task.toggle", task.ID}, rec.entries[1])
}

func TestScenario_MilkShopping(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	task, err := s.AddTask(ctx, "Buy milk")
	require.NoError(t, err)
	sub, err := s.AddSubtask(ctx, task.ID, "2% milk")
	require.NoError(t, err)

	got, _ := s.Task(task.ID)
	require.Len(t, got.Subtasks, 1)
	assert.Equal(t, "2% milk", got.Subtasks[0].Text)
	assert.False(t, got.Completed)

	require.NoError(t, s.ToggleSubtask(ctx, task.ID, sub.ID))
	got, _ = s.Task(task.ID)
	assert.True(t, got.Completed)

	_, err = s.AddSubtask(ctx, task.ID, "Oat milk")
	require.NoError(t, err)
	got, _ = s.Task(task.ID)
	assert.False(t, got.Completed)
	assert.Len(t, got.Subtasks, 2)
}
