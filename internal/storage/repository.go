package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrDuplicateTask = errors.New("storage: task already exists")
)

type Repository interface {
	AddTask(ctx context.Context, chatID int64, taskID, url string, assignees []string, createdBy string) (int64, error)
	ListTasks(ctx context.Context, chatID int64) ([]Task, error)
	RemoveTaskBySeq(ctx context.Context, chatID, seqNum int64) (Task, error)
	RemoveTaskByID(ctx context.Context, chatID int64, taskID string) (Task, error)
	UpdateAssigneesBySeq(ctx context.Context, chatID, seqNum int64, assignees []string) (Task, error)
	UpdateAssigneesByID(ctx context.Context, chatID int64, taskID string, assignees []string) (Task, error)

	SetReminder(ctx context.Context, chatID int64, cronExpr string) error
	GetReminder(ctx context.Context, chatID int64) (ReminderConfig, error)
	ListActiveReminders(ctx context.Context) ([]ReminderConfig, error)
	DisableReminder(ctx context.Context, chatID int64) (bool, error)
	DeleteReminder(ctx context.Context, chatID int64) (bool, error)
}
