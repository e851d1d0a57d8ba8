package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

const taskColumns = "id, chat_id, seq_num, task_id, url, created_by, created_at"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) AddTask(ctx context.Context, chatID int64, taskID, url string, assignees []string, createdBy string) (int64, error) {
	var seq int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM tasks WHERE chat_id = ? AND task_id = ?`, chatID, taskID).Scan(&one)
		if err == nil {
			return ErrDuplicateTask
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		seq, err = nextSeqNum(ctx, tx, chatID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (chat_id, seq_num, task_id, url, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			chatID, seq, taskID, url, createdBy, mustTime(time.Now()),
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		return replaceAssignees(ctx, tx, id, normalizeAssignees(assignees))
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, chatID int64) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE chat_id = ?
		ORDER BY seq_num ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byTask, err := r.assigneesForChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Assignees = byTask[out[i].ID]
	}
	return out, nil
}

func (r *SQLiteRepository) RemoveTaskBySeq(ctx context.Context, chatID, seqNum int64) (Task, error) {
	return r.removeTask(ctx, chatID, "seq_num = ?", seqNum)
}

func (r *SQLiteRepository) RemoveTaskByID(ctx context.Context, chatID int64, taskID string) (Task, error) {
	return r.removeTask(ctx, chatID, "task_id = ?", taskID)
}

func (r *SQLiteRepository) removeTask(ctx context.Context, chatID int64, cond string, arg any) (Task, error) {
	var out Task
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		task, err := lookupTask(ctx, tx, chatID, cond, arg)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, task.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, task.ID); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateAssigneesBySeq(ctx context.Context, chatID, seqNum int64, assignees []string) (Task, error) {
	return r.updateAssignees(ctx, chatID, "seq_num = ?", seqNum, assignees)
}

func (r *SQLiteRepository) UpdateAssigneesByID(ctx context.Context, chatID int64, taskID string, assignees []string) (Task, error) {
	return r.updateAssignees(ctx, chatID, "task_id = ?", taskID, assignees)
}

func (r *SQLiteRepository) updateAssignees(ctx context.Context, chatID int64, cond string, arg any, assignees []string) (Task, error) {
	var out Task
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		task, err := lookupTask(ctx, tx, chatID, cond, arg)
		if err != nil {
			return err
		}
		normalized := normalizeAssignees(assignees)
		if err := replaceAssignees(ctx, tx, task.ID, normalized); err != nil {
			return err
		}
		task.Assignees = normalized
		out = task
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) SetReminder(ctx context.Context, chatID int64, cronExpr string) error {
	now := mustTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (chat_id, cron_expr, enabled, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			cron_expr = excluded.cron_expr,
			enabled = 1,
			updated_at = excluded.updated_at`,
		chatID, cronExpr, now, now,
	)
	return err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, chatID int64) (ReminderConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, cron_expr, enabled, created_at, updated_at
		FROM reminders WHERE chat_id = ?`, chatID)
	cfg, err := scanReminderConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReminderConfig{}, ErrNotFound
		}
		return ReminderConfig{}, err
	}
	return cfg, nil
}

func (r *SQLiteRepository) ListActiveReminders(ctx context.Context) ([]ReminderConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, cron_expr, enabled, created_at, updated_at
		FROM reminders WHERE enabled = 1
		ORDER BY chat_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ReminderConfig, 0)
	for rows.Next() {
		cfg, scanErr := scanReminderConfig(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DisableReminder(ctx context.Context, chatID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET enabled = 0, updated_at = ? WHERE chat_id = ?`,
		mustTime(time.Now()), chatID)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, chatID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// nextSeqNum allocates the chat's next sequence number from the persistent
// counter. The counter only ever moves forward, so numbers are never reused
// no matter how many tasks get removed.
func nextSeqNum(ctx context.Context, tx *sql.Tx, chatID int64) (int64, error) {
	var next int64
	err := tx.QueryRowContext(ctx,
		`SELECT next_num FROM seq_counters WHERE chat_id = ?`, chatID).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO seq_counters (chat_id, next_num) VALUES (?, 2)`, chatID); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE seq_counters SET next_num = ? WHERE chat_id = ?`, next+1, chatID); err != nil {
		return 0, err
	}
	return next, nil
}

func lookupTask(ctx context.Context, tx *sql.Tx, chatID int64, cond string, arg any) (Task, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE chat_id = ? AND `+cond, chatID, arg)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT assignee FROM task_assignees WHERE task_id = ? ORDER BY assignee ASC`, task.ID)
	if err != nil {
		return Task{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var assignee string
		if err := rows.Scan(&assignee); err != nil {
			return Task{}, err
		}
		task.Assignees = append(task.Assignees, assignee)
	}
	return task, rows.Err()
}

func replaceAssignees(ctx context.Context, tx *sql.Tx, taskDBID int64, assignees []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, taskDBID); err != nil {
		return err
	}
	for _, assignee := range assignees {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_assignees (task_id, assignee) VALUES (?, ?)`, taskDBID, assignee); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) assigneesForChat(ctx context.Context, chatID int64) (map[int64][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.task_id, a.assignee
		FROM task_assignees a
		JOIN tasks t ON t.id = a.task_id
		WHERE t.chat_id = ?
		ORDER BY a.assignee ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var taskDBID int64
		var assignee string
		if err := rows.Scan(&taskDBID, &assignee); err != nil {
			return nil, err
		}
		out[taskDBID] = append(out[taskDBID], assignee)
	}
	return out, rows.Err()
}

func normalizeAssignees(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, assignee := range in {
		assignee = strings.TrimSpace(assignee)
		if assignee == "" {
			continue
		}
		if _, ok := seen[assignee]; ok {
			continue
		}
		seen[assignee] = struct{}{}
		out = append(out, assignee)
	}
	sort.Strings(out)
	return out
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func rowsAffected(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var created string
	if err := s.Scan(&out.ID, &out.ChatID, &out.SeqNum, &out.TaskID, &out.URL, &out.CreatedBy, &created); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func scanReminderConfig(s scanner) (ReminderConfig, error) {
	var out ReminderConfig
	var enabled int
	var created, updated string
	if err := s.Scan(&out.ChatID, &out.CronExpr, &enabled, &created, &updated); err != nil {
		return ReminderConfig{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return ReminderConfig{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return ReminderConfig{}, err
	}
	out.Enabled = enabled == 1
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}
