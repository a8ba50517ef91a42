package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	entries []models.JournalEntry
	err     error
}

func (m *memWriter) WriteJournal(_ context.Context, e models.JournalEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func TestJournal_Record(t *testing.T) {
	w := &memWriter{}
	j := NewJournal(w)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	j.now = func() time.Time { return fixed }

	err := j.Record(context.Background(), "task.add", "t1", map[string]string{"text": "milk"})
	require.NoError(t, err)
	require.Len(t, w.entries, 1)

	e := w.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "task.add", e.Action)
	assert.Equal(t, "t1", e.Target)
	assert.Equal(t, OutcomeSuccess, e.Outcome)
	assert.Equal(t, fixed.UTC(), e.Timestamp)
	assert.Len(t, e.InputsHash, 64)
}

func TestHashInputs(t *testing.T) {
	a := hashInputs(map[string]string{"text": "milk"})
	b := hashInputs(map[string]string{"text": "milk"})
	c := hashInputs(map[string]string{"text": "eggs"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hash_error", hashInputs(make(chan int)))
}

func TestJournal_PropagatesWriteError(t *testing.T) {
	boom := errors.New("disk full")
	j := NewJournal(&memWriter{err: boom})

	err := j.Record(context.Background(), "task.clear", "", nil)
	assert.ErrorIs(t, err, boom)
}
