package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "data", "tasks.json"))
	require.NoError(t, err)

	list, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStore_UnparseableFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	f, err := NewFile(path)
	require.NoError(t, err)
	list, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")
	f, err := NewFile(path)
	require.NoError(t, err)

	list := models.TaskList{
		{ID: "ignored", Text: "a", Completed: true, Subtasks: []models.Subtask{{Text: "a1", Completed: true}}},
		{Text: "b", Subtasks: []models.Subtask{}},
	}
	require.NoError(t, f.Save(ctx, list))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n]\n"))

	got, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.True(t, got[0].Completed)
	assert.Equal(t, "a1", got[0].Subtasks[0].Text)
	assert.Empty(t, got[0].ID, "ids are not persisted in snapshot files")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}
