package todo

import "errors"

// Sentinel errors for task store operations. Snapshot parse failures are
// reported as snapshot.ErrFormat.
var (
	// ErrValidation is returned when a text would be empty after trimming.
	ErrValidation = errors.New("text cannot be empty")
	// ErrIndex is returned when an operation addresses a task, subtask or
	// position that does not exist, for example a stale reference.
	ErrIndex = errors.New("no such item")
)
