package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/fentz26/tasklet/internal/snapshot"
	"github.com/fentz26/tasklet/internal/todo"
	"github.com/spf13/cobra"
)

func addCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := e.tasks.AddTask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %d: %s\n", e.tasks.Len(), task.Text)
			return nil
		},
	}
}

func listCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks and subtasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := e.tasks.Snapshot()
			out := cmd.OutOrStdout()
			if format != "" {
				f, err := snapshot.ParseFormat(format)
				if err != nil {
					return err
				}
				data, err := snapshot.Encode(list, f)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No tasks found")
				return nil
			}
			printTree(out, list)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "", "print the snapshot as json or yaml instead of a tree")
	return cmd
}

func showCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a task with its subtasks",
		Long: `Show a task with its subtasks.

The task ID is printed only with the sqlite driver. The file driver does not
store IDs, so they change on every run and cannot be used as references later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := e.tasks.Resolve(args[0])
			if err != nil {
				return err
			}
			list := e.tasks.Snapshot()
			i := list.Index(ref.TaskID)
			t := list[i]
			out := cmd.OutOrStdout()

			done, total := t.Progress()
			fmt.Fprintf(out, "Task:     %d\n", i+1)
			if e.db != nil {
				fmt.Fprintf(out, "ID:       %s\n", t.ID)
			}
			fmt.Fprintf(out, "Text:     %s\n", t.Text)
			fmt.Fprintf(out, "Status:   %s\n", status(t.Completed))
			fmt.Fprintf(out, "Subtasks: %d/%d done\n", done, total)
			for j, st := range t.Subtasks {
				fmt.Fprintf(out, "  %d.%d %s %s\n", i+1, j+1, box(st.Completed), st.Text)
			}
			return nil
		},
	}
}

func doneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "done <ref>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task or subtask (e.g. 2 or 2.1)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := e.tasks.Resolve(args[0])
			if err != nil {
				return err
			}
			return toggle(cmd, e, ref)
		},
	}
}

func editCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <ref> <text>",
		Short: "Change the text of a task or subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := e.tasks.Resolve(args[0])
			if err != nil {
				return err
			}
			return edit(cmd, e, ref, strings.Join(args[1:], " "))
		},
	}
}

func rmCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <ref>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task (with its subtasks) or a subtask",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := e.tasks.Resolve(args[0])
			if err != nil {
				return err
			}
			return remove(cmd, e, ref, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func mvCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <ref> <position>",
		Short: "Move a task, or a subtask within or across tasks",
		Long: `Move an item to a new 1-based position.

  tasklet mv 3 1      move task 3 to the top
  tasklet mv 2.3 1    move subtask 3 of task 2 to the first slot of task 2
  tasklet mv 2.3 4.1  move subtask 3 of task 2 to the first slot of task 4`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := e.tasks.Resolve(args[0])
			if err != nil {
				return err
			}
			return move(cmd, e, ref, args[1])
		},
	}
}

func clearCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := e.tasks.Len()
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear")
				return nil
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete all %d tasks?", n))
				if err != nil || !ok {
					return err
				}
			}
			if err := e.tasks.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d tasks\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// --- shared actions ---

func toggle(cmd *cobra.Command, e *env, ref todo.Ref) error {
	ctx := cmd.Context()
	var err error
	if ref.IsSubtask() {
		err = e.tasks.ToggleSubtask(ctx, ref.TaskID, ref.SubtaskID)
	} else {
		err = e.tasks.ToggleTask(ctx, ref.TaskID)
	}
	if err != nil {
		return err
	}
	return printItem(cmd.OutOrStdout(), e.tasks.Snapshot(), ref)
}

func edit(cmd *cobra.Command, e *env, ref todo.Ref, text string) error {
	ctx := cmd.Context()
	var err error
	if ref.IsSubtask() {
		err = e.tasks.EditSubtask(ctx, ref.TaskID, ref.SubtaskID, text)
	} else {
		err = e.tasks.EditTask(ctx, ref.TaskID, text)
	}
	if err != nil {
		return err
	}
	return printItem(cmd.OutOrStdout(), e.tasks.Snapshot(), ref)
}

func remove(cmd *cobra.Command, e *env, ref todo.Ref, yes bool) error {
	list := e.tasks.Snapshot()
	label, _ := todo.Position(list, ref)
	text := itemText(list, ref)

	if !yes {
		what := "task"
		if ref.IsSubtask() {
			what = "subtask"
		}
		ok, err := confirm(cmd, fmt.Sprintf("Delete %s %s %q?", what, label, text))
		if err != nil || !ok {
			return err
		}
	}

	ctx := cmd.Context()
	var err error
	if ref.IsSubtask() {
		err = e.tasks.RemoveSubtask(ctx, ref.TaskID, ref.SubtaskID)
	} else {
		err = e.tasks.RemoveTask(ctx, ref.TaskID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", label, text)
	return nil
}

func move(cmd *cobra.Command, e *env, ref todo.Ref, dest string) error {
	ctx := cmd.Context()
	list := e.tasks.Snapshot()

	if !ref.IsSubtask() {
		pos, err := parsePosition(dest)
		if err != nil {
			return err
		}
		if err := e.tasks.MoveTask(ctx, ref.TaskID, pos-1); err != nil {
			return err
		}
		return printItem(cmd.OutOrStdout(), e.tasks.Snapshot(), ref)
	}

	toTaskID := ref.TaskID
	posPart := dest
	if taskPart, subPart, ok := strings.Cut(dest, "."); ok {
		n, err := parsePosition(taskPart)
		if err != nil {
			return err
		}
		if n > len(list) {
			return fmt.Errorf("%w: task %d", todo.ErrIndex, n)
		}
		toTaskID = list[n-1].ID
		posPart = subPart
	}
	pos, err := parsePosition(posPart)
	if err != nil {
		return err
	}
	if err := e.tasks.MoveSubtask(ctx, ref.TaskID, ref.SubtaskID, toTaskID, pos-1); err != nil {
		return err
	}
	moved := todo.Ref{TaskID: toTaskID, SubtaskID: ref.SubtaskID}
	return printItem(cmd.OutOrStdout(), e.tasks.Snapshot(), moved)
}

// --- output helpers ---

func printTree(w io.Writer, list models.TaskList) {
	for i, t := range list {
		line := fmt.Sprintf("%d. %s %s", i+1, box(t.Completed), t.Text)
		if done, total := t.Progress(); total > 0 {
			line += fmt.Sprintf(" (%d/%d)", done, total)
		}
		fmt.Fprintln(w, line)
		for j, st := range t.Subtasks {
			fmt.Fprintf(w, "   %d.%d %s %s\n", i+1, j+1, box(st.Completed), st.Text)
		}
	}
}

func printItem(w io.Writer, list models.TaskList, ref todo.Ref) error {
	label, ok := todo.Position(list, ref)
	if !ok {
		return fmt.Errorf("%w: %s", todo.ErrIndex, ref.TaskID)
	}
	i := list.Index(ref.TaskID)
	done := list[i].Completed
	if ref.IsSubtask() {
		done = list[i].Subtasks[list[i].SubtaskIndex(ref.SubtaskID)].Completed
	}
	fmt.Fprintf(w, "%s %s %s\n", label, box(done), itemText(list, ref))
	return nil
}

func itemText(list models.TaskList, ref todo.Ref) string {
	i := list.Index(ref.TaskID)
	if i < 0 {
		return ""
	}
	if !ref.IsSubtask() {
		return list[i].Text
	}
	j := list[i].SubtaskIndex(ref.SubtaskID)
	if j < 0 {
		return ""
	}
	return list[i].Subtasks[j].Text
}

func box(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func status(done bool) string {
	if done {
		return "done"
	}
	return "open"
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid position %q", todo.ErrIndex, s)
	}
	return n, nil
}

// confirm asks a yes/no question on the command's input. End of input is a no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return true, nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
	return false, nil
}
