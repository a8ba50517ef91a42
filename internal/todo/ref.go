package todo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fentz26/tasklet/internal/models"
)

// minIDPrefix is the shortest ID prefix accepted as a reference.
const minIDPrefix = 4

// Ref identifies a task, or a subtask when SubtaskID is set.
type Ref struct {
	TaskID    string
	SubtaskID string
}

// IsSubtask reports whether the reference points at a subtask.
func (r Ref) IsSubtask() bool {
	return r.SubtaskID != ""
}

// Resolve turns a user reference into IDs against the current list.
//
// Accepted forms:
//   - "3": third task (1-based)
//   - "3.2": second subtask of the third task
//   - an ID prefix of at least four characters, matching a task or subtask
func (s *Store) Resolve(ref string) (Ref, error) {
	return ResolveRef(s.Snapshot(), ref)
}

// ResolveRef resolves ref against list. See Store.Resolve.
func ResolveRef(list models.TaskList, ref string) (Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrIndex)
	}

	if taskPart, subPart, ok := strings.Cut(ref, "."); ok || isDigits(ref) {
		if isDigits(taskPart) && (!ok || isDigits(subPart)) {
			return resolvePositional(list, taskPart, subPart, ok)
		}
	}
	return resolvePrefix(list, ref)
}

func resolvePositional(list models.TaskList, taskPart, subPart string, hasSub bool) (Ref, error) {
	n, _ := strconv.Atoi(taskPart)
	if n < 1 || n > len(list) {
		return Ref{}, fmt.Errorf("%w: task %d", ErrIndex, n)
	}
	t := list[n-1]
	if !hasSub {
		return Ref{TaskID: t.ID}, nil
	}
	m, _ := strconv.Atoi(subPart)
	if m < 1 || m > len(t.Subtasks) {
		return Ref{}, fmt.Errorf("%w: subtask %d.%d", ErrIndex, n, m)
	}
	return Ref{TaskID: t.ID, SubtaskID: t.Subtasks[m-1].ID}, nil
}

func resolvePrefix(list models.TaskList, prefix string) (Ref, error) {
	if len(prefix) < minIDPrefix {
		return Ref{}, fmt.Errorf("invalid reference: %s", prefix)
	}
	var matches []Ref
	for _, t := range list {
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, Ref{TaskID: t.ID})
		}
		for _, st := range t.Subtasks {
			if strings.HasPrefix(st.ID, prefix) {
				matches = append(matches, Ref{TaskID: t.ID, SubtaskID: st.ID})
			}
		}
	}
	switch len(matches) {
	case 0:
		return Ref{}, fmt.Errorf("%w: %s", ErrIndex, prefix)
	case 1:
		return matches[0], nil
	default:
		return Ref{}, fmt.Errorf("ambiguous reference %s: %d matches", prefix, len(matches))
	}
}

// Position returns the 1-based label ("3" or "3.2") for ref in list.
func Position(list models.TaskList, ref Ref) (string, bool) {
	i := list.Index(ref.TaskID)
	if i < 0 {
		return "", false
	}
	if !ref.IsSubtask() {
		return strconv.Itoa(i + 1), true
	}
	j := list[i].SubtaskIndex(ref.SubtaskID)
	if j < 0 {
		return "", false
	}
	return fmt.Sprintf("%d.%d", i+1, j+1), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
