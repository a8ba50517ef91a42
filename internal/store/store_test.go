package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created")
}

func TestLoad_EmptyDatabase(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	list, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSaveLoad_PreservesOrderAndIDs(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	list := models.TaskList{
		{ID: "t-2", Text: "second by id, first by position", Subtasks: []models.Subtask{
			{ID: "s-b", Text: "b", Completed: true},
			{ID: "s-a", Text: "a"},
		}},
		{ID: "t-1", Text: "done", Completed: true, Subtasks: []models.Subtask{}},
	}
	require.NoError(t, s.Save(ctx, list))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestSave_OverwritesPreviousSnapshot(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.TaskList{
		{ID: "a", Text: "a", Subtasks: []models.Subtask{{ID: "a1", Text: "a1"}}},
		{ID: "b", Text: "b", Subtasks: []models.Subtask{}},
	}))
	require.NoError(t, s.Save(ctx, models.TaskList{
		{ID: "b", Text: "b", Subtasks: []models.Subtask{{ID: "a1", Text: "a1 moved"}}},
	}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	require.Len(t, got[0].Subtasks, 1)
	assert.Equal(t, "a1 moved", got[0].Subtasks[0].Text)

	require.NoError(t, s.Save(ctx, models.TaskList{}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSave_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	good := models.TaskList{{ID: "a", Text: "a", Subtasks: []models.Subtask{}}}
	require.NoError(t, s.Save(ctx, good))

	// Duplicate primary keys fail half-way through the transaction.
	bad := models.TaskList{
		{ID: "x", Text: "x", Subtasks: []models.Subtask{}},
		{ID: "x", Text: "x again", Subtasks: []models.Subtask{}},
	}
	assert.Error(t, s.Save(ctx, bad))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, good, got)
}

func TestJournal(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	now := time.Now().UTC()
	for i, action := range []string{"task.add", "task.toggle", "task.remove"} {
		err := s.WriteJournal(ctx, models.JournalEntry{
			ID:         action,
			Action:     action,
			Target:     "t1",
			InputsHash: "hash",
			Outcome:    "success",
			Timestamp:  now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := s.ListJournal(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "task.remove", entries[0].Action)
	assert.Equal(t, "task.toggle", entries[1].Action)
	assert.Equal(t, "t1", entries[0].Target)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, s.Ping(ctx))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	require.NoError(t, err)
	return s
}
