package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uabjabborov/tg-work-queue/internal/commands"
	"github.com/uabjabborov/tg-work-queue/internal/scheduler"
	"github.com/uabjabborov/tg-work-queue/internal/storage"
	"github.com/uabjabborov/tg-work-queue/internal/taskref"
)

const opTimeout = 10 * time.Second

// Sender is the part of the Telegram API the bot uses to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	repo   storage.Repository
	engine *scheduler.Engine
	log    *slog.Logger
}

func New(api *tgbotapi.BotAPI, repo storage.Repository, log *slog.Logger) *Bot {
	return &Bot{api: api, sender: api, repo: repo, log: log}
}

// AttachScheduler wires the trigger engine. Split from New because the
// engine's fire callback is the bot's SendReminder.
func (b *Bot) AttachScheduler(engine *scheduler.Engine) {
	b.engine = engine
}

// SeedReminders re-arms one trigger per active reminder config. A stored
// schedule the engine rejects is logged and skipped; the rest still arm.
func (b *Bot) SeedReminders(ctx context.Context) error {
	configs, err := b.repo.ListActiveReminders(ctx)
	if err != nil {
		return fmt.Errorf("list active reminders: %w", err)
	}
	for _, cfg := range configs {
		if err := b.engine.Arm(cfg.ChatID, cfg.CronExpr); err != nil {
			b.log.Error("skip reminder", "chat_id", cfg.ChatID, "cron", cfg.CronExpr, "err", err)
			continue
		}
		b.log.Info("armed reminder", "chat_id", cfg.ChatID, "cron", cfg.CronExpr)
	}
	return nil
}

// Run consumes Telegram updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd, err := commands.Parse(msg.Text)
	if err != nil {
		var ce *commands.CommandError
		if errors.As(err, &ce) {
			switch ce.Code {
			case commands.ErrCodeNotCommand, commands.ErrCodeUnknownCommand:
				return
			case commands.ErrCodeInvalidArgument:
				b.reply(msg.Chat.ID, ce.Message)
				return
			}
		}
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := commands.Execute(cmd, b.handlers(opCtx, msg.Chat.ID, senderName(msg.From)))
	if err != nil {
		b.log.Error("command failed", "chat_id", msg.Chat.ID, "command", cmd.Type, "err", err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if res.Message != "" {
		b.reply(msg.Chat.ID, res.Message)
	}
}

func (b *Bot) handlers(ctx context.Context, chatID int64, sender string) commands.Handlers {
	return commands.Handlers{
		Add: func(args commands.AddArgs) (commands.Result, error) {
			taskID, ok := taskref.FromURL(args.URL)
			if !ok {
				return commands.Result{Message: invalidURLText}, nil
			}
			seq, err := b.repo.AddTask(ctx, chatID, taskID, args.URL, args.Assignees, sender)
			if errors.Is(err, storage.ErrDuplicateTask) {
				return commands.Result{Message: fmt.Sprintf("Task %s already exists in the queue.", taskID)}, nil
			}
			if err != nil {
				return commands.Result{}, err
			}
			b.log.Info("added task", "chat_id", chatID, "task_id", taskID, "seq", seq)
			return commands.Result{Message: formatAdded(seq, taskID, args.URL, args.Assignees)}, nil
		},
		List: func() (commands.Result, error) {
			tasks, err := b.repo.ListTasks(ctx, chatID)
			if err != nil {
				return commands.Result{}, err
			}
			if len(tasks) == 0 {
				return commands.Result{Message: "No tasks in the queue."}, nil
			}
			return commands.Result{Message: formatList(tasks)}, nil
		},
		Done: func(args commands.DoneArgs) (commands.Result, error) {
			task, err := b.removeTask(ctx, chatID, args.Ref)
			if errors.Is(err, storage.ErrNotFound) {
				return commands.Result{Message: fmt.Sprintf("Task %s not found.", args.Ref)}, nil
			}
			if err != nil {
				return commands.Result{}, err
			}
			b.log.Info("removed task", "chat_id", chatID, "task_id", task.TaskID, "seq", task.SeqNum)
			return commands.Result{Message: formatRemoved(task)}, nil
		},
		Assign: func(args commands.AssignArgs) (commands.Result, error) {
			task, err := b.updateAssignees(ctx, chatID, args.Ref, args.Assignees)
			if errors.Is(err, storage.ErrNotFound) {
				return commands.Result{Message: fmt.Sprintf("Task %s not found.", args.Ref)}, nil
			}
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: formatAssigned(task)}, nil
		},
		Help: func() (commands.Result, error) {
			return commands.Result{Message: helpText}, nil
		},
		ReminderStatus: func() (commands.Result, error) {
			cfg, err := b.repo.GetReminder(ctx, chatID)
			if errors.Is(err, storage.ErrNotFound) {
				return commands.Result{Message: "No reminder configured for this chat."}, nil
			}
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: formatReminderStatus(cfg)}, nil
		},
		ReminderSet: func(args commands.ReminderSetArgs) (commands.Result, error) {
			if err := b.engine.Arm(chatID, args.CronExpr); err != nil {
				return commands.Result{Message: "Invalid cron expression. Expected: minute hour day month weekday (UTC)."}, nil
			}
			if err := b.repo.SetReminder(ctx, chatID, args.CronExpr); err != nil {
				b.engine.Disarm(chatID)
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("Reminder scheduled: %s (UTC).", args.CronExpr)}, nil
		},
		ReminderOff: func() (commands.Result, error) {
			existed, err := b.repo.DisableReminder(ctx, chatID)
			if err != nil {
				return commands.Result{}, err
			}
			if !existed {
				return commands.Result{Message: "No reminder configured for this chat."}, nil
			}
			b.engine.Disarm(chatID)
			return commands.Result{Message: "Reminder paused. Use !wreminder-set to re-enable."}, nil
		},
		ReminderRemove: func() (commands.Result, error) {
			existed, err := b.repo.DeleteReminder(ctx, chatID)
			if err != nil {
				return commands.Result{}, err
			}
			if !existed {
				return commands.Result{Message: "No reminder configured for this chat."}, nil
			}
			b.engine.Disarm(chatID)
			return commands.Result{Message: "Reminder removed."}, nil
		},
	}
}

func (b *Bot) removeTask(ctx context.Context, chatID int64, ref commands.TaskRef) (storage.Task, error) {
	if ref.BySeq() {
		return b.repo.RemoveTaskBySeq(ctx, chatID, ref.Seq)
	}
	return b.repo.RemoveTaskByID(ctx, chatID, ref.ID)
}

func (b *Bot) updateAssignees(ctx context.Context, chatID int64, ref commands.TaskRef, assignees []string) (storage.Task, error) {
	if ref.BySeq() {
		return b.repo.UpdateAssigneesBySeq(ctx, chatID, ref.Seq, assignees)
	}
	return b.repo.UpdateAssigneesByID(ctx, chatID, ref.ID, assignees)
}

// SendReminder is the trigger engine's fire callback. Chats with an empty
// queue get no message.
func (b *Bot) SendReminder(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tasks, err := b.repo.ListTasks(ctx, chatID)
	if err != nil {
		b.log.Error("reminder query failed", "chat_id", chatID, "err", err)
		return
	}
	if len(tasks) == 0 {
		b.log.Info("no pending tasks, skipping reminder", "chat_id", chatID)
		return
	}
	b.reply(chatID, formatReminder(tasks))
	b.log.Info("sent reminder", "chat_id", chatID, "tasks", len(tasks))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.sender.Send(msg); err != nil {
		b.log.Error("send failed", "chat_id", chatID, "err", err)
	}
}

func senderName(user *tgbotapi.User) string {
	if user == nil {
		return "Unknown"
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return "Unknown"
}
