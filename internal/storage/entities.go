package storage

import "time"

// Task is one tracked review link. SeqNum and TaskID are both unique within
// a chat; SeqNum values are never reused, even after deletion.
type Task struct {
	ID        int64
	ChatID    int64
	SeqNum    int64
	TaskID    string
	URL       string
	Assignees []string
	CreatedBy string
	CreatedAt time.Time
}

// Unassigned reports whether the task has no reviewers.
func (t Task) Unassigned() bool {
	return len(t.Assignees) == 0
}

// ReminderConfig is a chat's reminder schedule. Disabling keeps the row so
// the schedule survives a later re-enable.
type ReminderConfig struct {
	ChatID    int64
	CronExpr  string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
