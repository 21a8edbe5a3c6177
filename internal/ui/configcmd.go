package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afuentes/agendo/internal/config"
)

func (a *App) configCmd() *cobra.Command {
	var initialize bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
		Long: `Show the active configuration. With --init, write a config file
with default values to the standard location if none exists.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := config.DefaultConfigPath()
			fmt.Printf("Config file: %s\n\n", path)

			if initialize {
				if err := config.Default().SaveTo(path); err != nil {
					return fmt.Errorf("writing config: %w", err)
				}
				fmt.Println("Wrote default configuration.")
				return nil
			}

			cfg := a.config
			fmt.Printf("Workdays:    %v\n", cfg.Schedule.Workdays)
			fmt.Printf("Hours:       %s-%s", cfg.Schedule.DayStart, cfg.Schedule.DayEnd)
			if cfg.HasLunch() {
				fmt.Printf(" (lunch %s-%s)", cfg.Schedule.LunchStart, cfg.Schedule.LunchEnd)
			}
			fmt.Println()
			fmt.Printf("LLM:         %s", cfg.LLM.Provider)
			if cfg.LLM.Provider != "" {
				fmt.Printf(" (%s)", cfg.LLM.Model)
			}
			fmt.Println()
			if cfg.HasCalendar() {
				fmt.Printf("Calendar:    %s (%s)\n", cfg.Calendar.BaseURL, cfg.Calendar.CalendarID)
			} else {
				fmt.Println("Calendar:    not configured")
			}
			fmt.Printf("Database:    %s\n", cfg.Storage.DBPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&initialize, "init", false, "Write a default config file")

	return cmd
}
