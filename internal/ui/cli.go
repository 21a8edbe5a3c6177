// Package ui implements the agendo command-line interface.
package ui

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/afuentes/agendo/internal/config"
	"github.com/afuentes/agendo/internal/db"
	"github.com/afuentes/agendo/internal/task"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	repo   task.Repository
	config *config.Config
	root   *cobra.Command
	debug  bool
}

// NewApp creates a new CLI application with the given repository and config.
// A nil repository is opened lazily from the config on first use.
func NewApp(repo task.Repository, cfg *config.Config) *App {
	a := &App{repo: repo, config: cfg}

	a.root = &cobra.Command{
		Use:   "agendo",
		Short: "A task manager with calendar-aware auto-scheduling",
		Long: `Agendo is a personal task manager that places your tasks onto a
timeline of 15-minute slots, working around business hours, lunch,
weekends, your committed tasks, and external calendar events.`,
		SilenceUsage: true,
	}

	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.addCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.doneCmd())
	a.root.AddCommand(a.scheduleCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("agendo %s (commit: %s)\n", Version, Commit)
		},
	}
}

// ensureRepo opens the SQLite repository from the config if one was not
// injected.
func (a *App) ensureRepo() error {
	if a.repo != nil {
		return nil
	}
	repo, err := db.New(a.config.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.repo = repo
	return nil
}

// logger builds the application logger based on the debug flag.
func (a *App) logger() *zap.Logger {
	if !a.debug {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases the repository if one was opened.
func (a *App) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}
