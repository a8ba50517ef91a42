package main

import (
	"fmt"
	"strings"

	"github.com/fentz26/tasklet/internal/todo"
	"github.com/spf13/cobra"
)

func subCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sub",
		Aliases: []string{"subtask"},
		Short:   "Manage subtasks",
	}
	cmd.AddCommand(
		subAddCmd(e),
		subDoneCmd(e),
		subEditCmd(e),
		subRmCmd(e),
		subMvCmd(e),
	)
	return cmd
}

// resolveSubtask resolves ref and requires it to name a subtask.
func resolveSubtask(e *env, ref string) (todo.Ref, error) {
	r, err := e.tasks.Resolve(ref)
	if err != nil {
		return todo.Ref{}, err
	}
	if !r.IsSubtask() {
		return todo.Ref{}, fmt.Errorf("%w: %s is a task, expected a subtask like %s.1", todo.ErrIndex, ref, ref)
	}
	return r, nil
}

func subAddCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task-ref> <text>",
		Short: "Add a subtask to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := e.tasks.Resolve(args[0])
			if err != nil {
				return err
			}
			st, err := e.tasks.AddSubtask(cmd.Context(), ref.TaskID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return printItem(cmd.OutOrStdout(), e.tasks.Snapshot(), todo.Ref{TaskID: ref.TaskID, SubtaskID: st.ID})
		},
	}
}

func subDoneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "done <ref>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a subtask",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := resolveSubtask(e, args[0])
			if err != nil {
				return err
			}
			return toggle(cmd, e, ref)
		},
	}
}

func subEditCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <ref> <text>",
		Short: "Change the text of a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := resolveSubtask(e, args[0])
			if err != nil {
				return err
			}
			return edit(cmd, e, ref, strings.Join(args[1:], " "))
		},
	}
}

func subRmCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <ref>",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := resolveSubtask(e, args[0])
			if err != nil {
				return err
			}
			return remove(cmd, e, ref, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func subMvCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <ref> <position|task.position>",
		Short: "Move a subtask within its task or into another task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := resolveSubtask(e, args[0])
			if err != nil {
				return err
			}
			return move(cmd, e, ref, args[1])
		},
	}
}
