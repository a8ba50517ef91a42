// Package audit records an activity journal entry for every task list mutation.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fentz26/tasklet/internal/models"
)

// Outcome recorded for mutations that were persisted.
const OutcomeSuccess = "success"

// Writer stores journal entries.
type Writer interface {
	WriteJournal(ctx context.Context, e models.JournalEntry) error
}

// Journal turns task store mutations into journal entries.
type Journal struct {
	w   Writer
	now func() time.Time
}

// NewJournal creates a journal backed by w.
func NewJournal(w Writer) *Journal {
	return &Journal{w: w, now: time.Now}
}

// Record writes an entry for a successful mutation.
func (j *Journal) Record(ctx context.Context, action, target string, inputs any) error {
	return j.w.WriteJournal(ctx, models.JournalEntry{
		ID:         models.NewID(),
		Action:     action,
		Target:     target,
		InputsHash: hashInputs(inputs),
		Outcome:    OutcomeSuccess,
		Timestamp:  j.now().UTC(),
	})
}

// hashInputs creates a SHA256 hash of the inputs so entries can be compared
// without storing task text.
func hashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
