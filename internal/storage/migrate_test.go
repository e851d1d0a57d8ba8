package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "migrate-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func execMigrationFile(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	sqlBytes, err := migrationFiles.ReadFile("migrations/" + name)
	if err != nil {
		t.Fatalf("read migration %s: %v", name, err)
	}
	if _, err := db.Exec(string(sqlBytes)); err != nil {
		t.Fatalf("apply migration %s: %v", name, err)
	}
}

func TestMigrateRoundTripCompatibility(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	seq, err := repo.AddTask(context.Background(), 1, "repo/pull/1", "https://github.com/o/repo/pull/1", []string{"@a"}, "@me")
	if err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}
	if seq != 1 {
		t.Fatalf("seq after roundtrip = %d, want 1", seq)
	}
}

func TestMigrateUpIsRerunSafe(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("rerun migrate up failed: %v", err)
	}
}

func TestLegacyAssigneeBackfill(t *testing.T) {
	db := openTestDB(t)
	execMigrationFile(t, db, "0001_init.up.sql")

	// Legacy-era rows: single assignee lives in the assigned_to column.
	insert := `INSERT INTO tasks (chat_id, seq_num, task_id, url, assigned_to, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '2024-01-01T00:00:00Z')`
	if _, err := db.Exec(insert, 1, 1, "repo/pull/1", "u1", "@alice", "@me"); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if _, err := db.Exec(insert, 1, 2, "repo/pull/2", "u2", "unassigned", "@me"); err != nil {
		t.Fatalf("insert unassigned legacy row: %v", err)
	}

	execMigrationFile(t, db, "0002_assignees.up.sql")
	if err := collapseLegacyAssignees(db); err != nil {
		t.Fatalf("collapse: %v", err)
	}

	hasLegacy, err := columnExists(db, "tasks", "assigned_to")
	if err != nil {
		t.Fatalf("column check: %v", err)
	}
	if hasLegacy {
		t.Fatal("assigned_to column still present after collapse")
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	tasks, err := repo.ListTasks(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %#v", tasks)
	}
	if !reflect.DeepEqual(tasks[0].Assignees, []string{"@alice"}) {
		t.Fatalf("backfilled assignees = %#v, want [@alice]", tasks[0].Assignees)
	}
	if !tasks[1].Unassigned() {
		t.Fatalf("'unassigned' sentinel leaked into relation: %#v", tasks[1].Assignees)
	}

	// Running again on the collapsed schema is a no-op.
	if err := collapseLegacyAssignees(db); err != nil {
		t.Fatalf("second collapse: %v", err)
	}
}

func TestBackfillSkippedWhenRelationPopulated(t *testing.T) {
	db := openTestDB(t)
	execMigrationFile(t, db, "0001_init.up.sql")
	execMigrationFile(t, db, "0002_assignees.up.sql")

	insert := `INSERT INTO tasks (chat_id, seq_num, task_id, url, assigned_to, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '2024-01-01T00:00:00Z')`
	if _, err := db.Exec(insert, 1, 1, "repo/pull/1", "u1", "@alice", "@me"); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if _, err := db.Exec(insert, 1, 2, "repo/pull/2", "u2", "@bob", "@me"); err != nil {
		t.Fatalf("insert second legacy row: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO task_assignees (task_id, assignee) VALUES (1, '@carol')`); err != nil {
		t.Fatalf("pre-populate relation: %v", err)
	}

	if err := collapseLegacyAssignees(db); err != nil {
		t.Fatalf("collapse: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM task_assignees`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("backfill ran despite populated relation, %d rows", count)
	}
}
