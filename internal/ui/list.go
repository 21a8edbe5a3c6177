package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/afuentes/agendo/internal/task"
)

var (
	colorHeader  = color.New(color.Bold)
	colorTime    = color.New(color.FgCyan)
	colorDone    = color.New(color.FgGreen)
	colorOverdue = color.New(color.FgRed)
	colorMuted   = color.New(color.FgWhite, color.Faint)
)

func (a *App) listCmd() *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks grouped by schedule state: overdue, scheduled, and
unscheduled. Completed tasks are hidden unless --all is given.`,
		Example: `  agendo list
  agendo list --all`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}

			tasks, err := a.repo.ListTasks(context.Background())
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}

			now := time.Now()
			var overdue, scheduled, unscheduled, done []*task.Task
			for _, t := range tasks {
				switch {
				case t.Completed():
					done = append(done, t)
				case t.Overdue(now):
					overdue = append(overdue, t)
				case t.Scheduled():
					scheduled = append(scheduled, t)
				default:
					unscheduled = append(unscheduled, t)
				}
			}

			if len(overdue)+len(scheduled)+len(unscheduled) == 0 && (!showAll || len(done) == 0) {
				fmt.Println("No tasks. Add one with: agendo add \"...\"")
				return nil
			}

			printGroup(colorOverdue, "Overdue", overdue)
			printGroup(colorHeader, "Scheduled", scheduled)
			printGroup(colorHeader, "Unscheduled", unscheduled)
			if showAll {
				printGroup(colorDone, "Done", done)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "Include completed tasks")

	return cmd
}

func printGroup(header *color.Color, title string, tasks []*task.Task) {
	if len(tasks) == 0 {
		return
	}
	header.Printf("=== %s ===\n", title)
	for _, t := range tasks {
		if t.Scheduled() {
			start := t.StartTime.Local()
			end := t.EndTime.Local()
			fmt.Printf("  #%-4d %s  %s\n", t.ID,
				colorTime.Sprintf("%s %s-%s",
					start.Format("Mon 2006-01-02"),
					start.Format("15:04"),
					end.Format("15:04")),
				t.Title)
		} else {
			fmt.Printf("  #%-4d %s  %s\n", t.ID, colorMuted.Sprint("unscheduled       "), t.Title)
		}
	}
	fmt.Println()
}
