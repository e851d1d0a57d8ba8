package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/uabjabborov/tg-work-queue/internal/storage"
)

const helpText = `<b>Work queue commands</b>

<code>!wadd &lt;URL&gt; [@user ...]</code>
Add a merge request or pull request, optionally assigning reviewers.

<code>!w</code>
List all pending tasks.

<code>!wdone &lt;ref&gt;</code>
Remove a finished task. The ref is either the task number (for example <code>3</code> or <code>#3</code>) or the task id (for example <code>repo/merge_requests/123</code>).

<code>!wassign &lt;ref&gt; [@user ...]</code>
Replace a task's reviewers. With no handles the task becomes unassigned.

<code>!wreminder</code>
Show this chat's reminder configuration.

<code>!wreminder-set &lt;cron&gt;</code>
Schedule a recurring reminder of pending tasks, for example <code>!wreminder-set 0 9 * * 1-5</code> (UTC).

<code>!wreminder-off</code>
Pause the reminder without losing the schedule.

<code>!wreminder-remove</code>
Delete the reminder configuration.

<b>Supported URLs</b>
GitLab: <code>http://host/group/project/-/merge_requests/N</code>
GitHub: <code>https://github.com/owner/repo/pull/N</code>`

const invalidURLText = `Invalid URL. Please provide a GitLab merge request or GitHub pull request link.
Examples:
http://gitlab.example.com/group/repo/-/merge_requests/123
https://github.com/owner/repo/pull/123`

func taskLine(t storage.Task) string {
	line := fmt.Sprintf(`[#%d] <a href="%s">%s</a>`,
		t.SeqNum, html.EscapeString(t.URL), html.EscapeString(t.TaskID))
	if !t.Unassigned() {
		line += " → " + html.EscapeString(strings.Join(t.Assignees, ", "))
	}
	return line + fmt.Sprintf(" (by %s)", html.EscapeString(t.CreatedBy))
}

func formatList(tasks []storage.Task) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, taskLine(t))
	}
	return strings.Join(lines, "\n")
}

func formatReminder(tasks []storage.Task) string {
	return "<b>📋 Reminder: pending reviews</b>\n\n" + formatList(tasks)
}

func formatAdded(seq int64, taskID, url string, assignees []string) string {
	line := fmt.Sprintf(`[#%d] <a href="%s">%s</a>`,
		seq, html.EscapeString(url), html.EscapeString(taskID))
	if len(assignees) > 0 {
		line += " → " + html.EscapeString(strings.Join(assignees, ", "))
	}
	return line
}

func formatRemoved(t storage.Task) string {
	return fmt.Sprintf(`Removed <a href="%s">%s</a> (added by %s)`,
		html.EscapeString(t.URL), html.EscapeString(t.TaskID), html.EscapeString(t.CreatedBy))
}

func formatAssigned(t storage.Task) string {
	if t.Unassigned() {
		return fmt.Sprintf(`<a href="%s">%s</a> is now unassigned`,
			html.EscapeString(t.URL), html.EscapeString(t.TaskID))
	}
	return fmt.Sprintf(`<a href="%s">%s</a> → %s`,
		html.EscapeString(t.URL), html.EscapeString(t.TaskID),
		html.EscapeString(strings.Join(t.Assignees, ", ")))
}

func formatReminderStatus(cfg storage.ReminderConfig) string {
	state := "enabled"
	if !cfg.Enabled {
		state = "paused"
	}
	return fmt.Sprintf("Reminder schedule: <code>%s</code> (UTC, %s)",
		html.EscapeString(cfg.CronExpr), state)
}
