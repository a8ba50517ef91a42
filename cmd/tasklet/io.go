package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fentz26/tasklet/internal/snapshot"
	"github.com/spf13/cobra"
)

func exportCmd(e *env) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Export tasks to <name>.json (or .yaml)",
		Long:  "Export the task list. Without a name argument you are asked for one until a non-empty name is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := e.cfg.Export.Format
			if format != "" {
				parsed, err := snapshot.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			}
			if f == "" {
				f = snapshot.FormatJSON
			}
			if dir == "" {
				dir = e.cfg.Export.Dir
			}

			var base string
			if len(args) == 1 {
				base = args[0]
			} else {
				name, ok, err := promptName(cmd)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Export cancelled")
					return nil
				}
				base = name
			}

			name, err := snapshot.FileName(base, f)
			if err != nil {
				return err
			}
			list := e.tasks.Snapshot()
			data, err := snapshot.Encode(list, f)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create export directory: %w", err)
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(list), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default from config)")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default from config)")
	return cmd
}

// promptName asks for an export base name until a non-empty one is entered.
// ok is false when input ends first.
func promptName(cmd *cobra.Command) (name string, ok bool, err error) {
	out := cmd.OutOrStdout()
	r := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "Enter file name (without extension): ")
		line, readErr := r.ReadString('\n')
		if name := strings.TrimSpace(line); name != "" {
			return name, true, nil
		}
		if readErr == io.EOF {
			fmt.Fprintln(out)
			return "", false, nil
		}
		if readErr != nil {
			return "", false, readErr
		}
		fmt.Fprintln(out, "File name cannot be empty. Please enter a valid name.")
	}
}

func importCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Replace the task list with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			current := e.tasks.Len()
			if path == "-" && current > 0 && !yes {
				return fmt.Errorf("importing from stdin replaces %d tasks; pass --yes to confirm", current)
			}

			list, err := snapshot.ReadFile(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if current > 0 && !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Replace %d tasks with %d from %s?", current, len(list), filepath.Base(path)))
				if err != nil || !ok {
					return err
				}
			}
			if err := e.tasks.Replace(cmd.Context(), list); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", len(list))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
