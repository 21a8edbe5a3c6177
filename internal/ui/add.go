package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afuentes/agendo/internal/task"
)

func (a *App) addCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new task",
		Long: `Add a new unscheduled task. The title may carry scheduling hints
that the scheduler picks up later, like "Review budget tomorrow at 3pm"
or "Write report for 2h".

Example:
  agendo add "Email Laura about the offsite"`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			t, err := task.New(args[0], notes)
			if err != nil {
				return err
			}

			if err := a.repo.CreateTask(context.Background(), t); err != nil {
				return fmt.Errorf("creating task: %w", err)
			}

			fmt.Printf("Created task #%d: %s\n", t.ID, t.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Optional notes for the task")

	return cmd
}
