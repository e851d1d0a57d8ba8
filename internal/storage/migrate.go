package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func MigrateUp(db *sql.DB) error {
	if err := applyMigrations(db, ".up.sql"); err != nil {
		return err
	}
	return collapseLegacyAssignees(db)
}

func MigrateDown(db *sql.DB) error {
	return applyMigrations(db, ".down.sql")
}

func applyMigrations(db *sql.DB, suffix string) error {
	entries, err := fs.Glob(migrationFiles, "migrations/*"+suffix)
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(entries)
	if suffix == ".down.sql" {
		reverse(entries)
	}
	for _, name := range entries {
		sqlBytes, readErr := migrationFiles.ReadFile(name)
		if readErr != nil {
			return fmt.Errorf("read migration %s: %w", name, readErr)
		}
		if _, execErr := db.Exec(string(sqlBytes)); execErr != nil {
			return fmt.Errorf("apply migration %s: %w", name, execErr)
		}
	}
	return nil
}

// collapseLegacyAssignees moves single-assignee data from the legacy
// tasks.assigned_to column into the task_assignees relation, then drops the
// column. The backfill runs at most once: it is skipped when the relation
// already holds rows, and the whole step is a no-op once the column is gone.
func collapseLegacyAssignees(db *sql.DB) error {
	hasLegacy, err := columnExists(db, "tasks", "assigned_to")
	if err != nil {
		return err
	}
	if !hasLegacy {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM task_assignees`).Scan(&existing); err != nil {
		return err
	}
	if existing == 0 {
		if _, err := tx.Exec(`
			INSERT INTO task_assignees (task_id, assignee)
			SELECT id, assigned_to FROM tasks
			WHERE assigned_to NOT IN ('unassigned', '')`); err != nil {
			return fmt.Errorf("backfill assignees: %w", err)
		}
	}
	if _, err := tx.Exec(`ALTER TABLE tasks DROP COLUMN assigned_to`); err != nil {
		return fmt.Errorf("drop legacy assigned_to: %w", err)
	}
	return tx.Commit()
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
