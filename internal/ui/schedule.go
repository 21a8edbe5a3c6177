package ui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/afuentes/agendo/internal/calendar"
	"github.com/afuentes/agendo/internal/llm"
	"github.com/afuentes/agendo/internal/parse"
	"github.com/afuentes/agendo/internal/schedule"
	"github.com/afuentes/agendo/internal/task"
)

func (a *App) scheduleCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Auto-schedule tasks onto the timeline",
		Long: `Place a batch of tasks onto the timeline of 15-minute slots,
working around business hours, lunch, weekends, committed tasks, and
external calendar events.

Modes:
  today     schedule unscheduled tasks starting now (default)
  tomorrow  schedule unscheduled tasks starting tomorrow morning
  someday   same as today, for tasks without urgency
  overdue   clear and re-place tasks whose slot has passed

When a task title names a specific time that conflicts with existing
commitments, the run pauses and asks how to resolve it.`,
		Example: `  agendo schedule
  agendo schedule --mode tomorrow
  agendo schedule --mode overdue`,
		RunE: func(_ *cobra.Command, _ []string) error {
			m, err := schedule.ParseMode(mode)
			if err != nil {
				return err
			}
			if err := a.ensureRepo(); err != nil {
				return err
			}
			return a.runSchedule(context.Background(), m)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(schedule.ModeToday), "Scheduling mode: today, tomorrow, someday, or overdue")

	return cmd
}

func (a *App) runSchedule(ctx context.Context, mode schedule.Mode) error {
	now := time.Now()

	batch, err := a.scheduleBatch(ctx, mode, now)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		fmt.Println("Nothing to schedule.")
		return nil
	}

	engine := schedule.NewEngine(
		a.repo,
		parse.New(),
		a.estimator(),
		a.eventSource(),
		schedule.RulesFromConfig(a.config),
		a.logger(),
	)

	run, err := engine.RunBatch(ctx, batch, mode, now)
	if err != nil {
		return fmt.Errorf("scheduling failed: %w", err)
	}

	for run.State() == schedule.StateAwaitingResolution {
		resolution := promptResolution(run.Conflict())
		if err := run.Resolve(ctx, resolution); err != nil {
			return fmt.Errorf("scheduling failed: %w", err)
		}
	}

	printRunSummary(run)
	return nil
}

// scheduleBatch selects the tasks a mode operates on.
func (a *App) scheduleBatch(ctx context.Context, mode schedule.Mode, now time.Time) ([]*task.Task, error) {
	if mode == schedule.ModeOverdue {
		batch, err := a.repo.ListOverdue(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("listing overdue tasks: %w", err)
		}
		return batch, nil
	}
	batch, err := a.repo.ListUnscheduled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unscheduled tasks: %w", err)
	}
	return batch, nil
}

// estimator builds the LLM duration estimator, or nil when no provider
// is configured or the client cannot be created. Scheduling works either
// way; estimates just fall back to the default duration.
func (a *App) estimator() schedule.DurationEstimator {
	if a.config.LLM.Provider == "" {
		return nil
	}
	client, err := llm.NewClient(a.config.LLM.Provider, a.config.LLM.Model, a.config.LLM.BaseURL)
	if err != nil {
		colorMuted.Printf("duration estimator unavailable (%v), using defaults\n", err)
		return nil
	}
	return llm.NewEstimator(client)
}

// eventSource builds the external calendar source, or nil when no
// calendar is configured.
func (a *App) eventSource() schedule.EventSource {
	if !a.config.HasCalendar() {
		return nil
	}
	return calendar.NewClient(a.config.Calendar.BaseURL, a.config.Calendar.CalendarID, a.config.Calendar.Token)
}

// promptResolution asks the user how to handle a conflict. On a
// non-interactive stdin the run is cancelled rather than stuck waiting.
func promptResolution(c *schedule.Conflict) schedule.Resolution {
	colorOverdue.Printf("\nConflict: %q wants %s-%s\n",
		c.CleanTitle,
		c.At.Format("Mon 15:04"),
		c.At.Add(time.Duration(c.Duration)*time.Minute).Format("15:04"))
	for _, iv := range c.Movable {
		fmt.Printf("  overlaps task   %s-%s  %s\n",
			iv.Start.Local().Format("15:04"), iv.End.Local().Format("15:04"), iv.Title)
	}
	for _, iv := range c.Immovable {
		fmt.Printf("  overlaps event  %s-%s  %s (cannot move)\n",
			iv.Start.Local().Format("15:04"), iv.End.Local().Format("15:04"), iv.Title)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("stdin is not a terminal; cancelling run")
		return schedule.ResolveCancel
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\n[s]chedule anyway, [m]ove conflicting tasks, [r]eschedule this task, [c]ancel: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return schedule.ResolveCancel
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s":
			return schedule.ResolveScheduleAnyway
		case "m":
			if len(c.Immovable) > 0 {
				fmt.Println("calendar events cannot be moved; the new task would still overlap them")
			}
			return schedule.ResolveMoveMovable
		case "r":
			return schedule.ResolveReschedule
		case "c":
			return schedule.ResolveCancel
		}
	}
}

func printRunSummary(run *schedule.Run) {
	if run.State() == schedule.StateAborted && len(run.Scheduled) == 0 {
		fmt.Println("\nRun cancelled; nothing was scheduled.")
		return
	}

	if len(run.Scheduled) > 0 {
		colorHeader.Printf("\nScheduled %d task(s):\n", len(run.Scheduled))
		for _, t := range run.Scheduled {
			fmt.Printf("  #%-4d %s  %s\n", t.ID,
				colorTime.Sprintf("%s %s-%s",
					t.StartTime.Local().Format("Mon 2006-01-02"),
					t.StartTime.Local().Format("15:04"),
					t.EndTime.Local().Format("15:04")),
				t.Title)
		}
	}
	if len(run.Moved) > 0 {
		fmt.Printf("\nMoved %d existing task(s) to make room:\n", len(run.Moved))
		for _, t := range run.Moved {
			fmt.Printf("  #%-4d now %s %s-%s  %s\n", t.ID,
				t.StartTime.Local().Format("Mon 2006-01-02"),
				t.StartTime.Local().Format("15:04"),
				t.EndTime.Local().Format("15:04"),
				t.Title)
		}
	}
	if len(run.Skipped) > 0 {
		colorMuted.Printf("\nLeft unscheduled (no slot within %d days):\n", schedule.HorizonDays)
		for _, t := range run.Skipped {
			fmt.Printf("  #%-4d %s\n", t.ID, t.Title)
		}
	}
	if run.State() == schedule.StateAborted {
		colorMuted.Println("\nRun cancelled before completing; tasks above stay committed.")
	}
}
