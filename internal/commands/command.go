package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeAdd            Type = "wadd"
	TypeList           Type = "w"
	TypeDone           Type = "wdone"
	TypeAssign         Type = "wassign"
	TypeHelp           Type = "whelp"
	TypeReminderStatus Type = "wreminder"
	TypeReminderSet    Type = "wreminder-set"
	TypeReminderOff    Type = "wreminder-off"
	TypeReminderRemove Type = "wreminder-remove"
)

type ErrorCode string

const (
	ErrCodeNotCommand      ErrorCode = "not_command"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TaskRef addresses a task either by its per-chat sequence number or by its
// canonical identifier. Exactly one of the two is set.
type TaskRef struct {
	Seq int64
	ID  string
}

func RefBySeq(n int64) TaskRef { return TaskRef{Seq: n} }

func RefByID(id string) TaskRef { return TaskRef{ID: id} }

func (r TaskRef) BySeq() bool { return r.ID == "" }

func (r TaskRef) String() string {
	if r.BySeq() {
		return "#" + strconv.FormatInt(r.Seq, 10)
	}
	return r.ID
}

// ParseTaskRef resolves a user-supplied reference once: a positive integer,
// optionally "#"-prefixed, addresses by sequence number; anything else is
// treated as a canonical task identifier.
func ParseTaskRef(raw string) TaskRef {
	trimmed := strings.TrimPrefix(raw, "#")
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n > 0 {
		return RefBySeq(n)
	}
	return RefByID(raw)
}

type AddArgs struct {
	URL       string
	Assignees []string
}

type DoneArgs struct {
	Ref TaskRef
}

type AssignArgs struct {
	Ref       TaskRef
	Assignees []string
}

type ReminderSetArgs struct {
	CronExpr string
}

type Command struct {
	Type        Type
	Raw         string
	Add         *AddArgs
	Done        *DoneArgs
	Assign      *AssignArgs
	ReminderSet *ReminderSetArgs
}

// Parse maps a raw chat message to a command. Messages that do not carry the
// "!" command prefix yield ErrCodeNotCommand so callers can skip ordinary
// conversation without replying.
func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if !strings.HasPrefix(raw, "!") {
		return Command{}, &CommandError{Code: ErrCodeNotCommand, Message: "no command prefix"}
	}

	parts := strings.Fields(strings.TrimPrefix(raw, "!"))
	if len(parts) == 0 {
		return Command{}, &CommandError{Code: ErrCodeNotCommand, Message: "no command prefix"}
	}
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(raw, args)
	case TypeList, TypeHelp, TypeReminderStatus, TypeReminderOff, TypeReminderRemove:
		return Command{Type: Type(head), Raw: raw}, nil
	case TypeDone:
		return parseDone(raw, args)
	case TypeAssign:
		return parseAssign(raw, args)
	case TypeReminderSet:
		return parseReminderSet(raw, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "wadd requires a merge request or pull request URL"}
	}
	url := args[0]
	if !hasHTTPScheme(url) {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "wadd requires an http(s) URL"}
	}
	assignees, err := parseHandles(args[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{URL: url, Assignees: assignees}}, nil
}

func parseDone(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "wdone requires a task reference"}
	}
	return Command{Type: TypeDone, Raw: raw, Done: &DoneArgs{Ref: ParseTaskRef(args[0])}}, nil
}

func parseAssign(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "wassign requires a task reference"}
	}
	assignees, err := parseHandles(args[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeAssign, Raw: raw, Assign: &AssignArgs{Ref: ParseTaskRef(args[0]), Assignees: assignees}}, nil
}

func parseReminderSet(raw string, args []string) (Command, error) {
	if len(args) != 5 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "wreminder-set requires a 5-field cron expression: minute hour day month weekday"}
	}
	return Command{Type: TypeReminderSet, Raw: raw, ReminderSet: &ReminderSetArgs{CronExpr: strings.Join(args, " ")}}, nil
}

func parseHandles(args []string) ([]string, error) {
	handles := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") || len(arg) < 2 {
			return nil, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("assignees must be @handles, got %q", arg)}
		}
		handles = append(handles, arg)
	}
	return handles, nil
}

func hasHTTPScheme(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
