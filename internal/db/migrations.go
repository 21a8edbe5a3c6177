package db

import "fmt"

// migrate runs database migrations.
func (s *SQLite) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS tasks (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			title        TEXT NOT NULL,
			notes        TEXT NOT NULL DEFAULT '',
			start_time   DATETIME,
			end_time     DATETIME,
			completed_at DATETIME,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_start ON tasks(start_time);
		CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating tasks table: %w", err)
	}

	return nil
}
