package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add            func(AddArgs) (Result, error)
	List           func() (Result, error)
	Done           func(DoneArgs) (Result, error)
	Assign         func(AssignArgs) (Result, error)
	Help           func() (Result, error)
	ReminderStatus func() (Result, error)
	ReminderSet    func(ReminderSetArgs) (Result, error)
	ReminderOff    func() (Result, error)
	ReminderRemove func() (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeList:
		if handlers.List == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.List()
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.Done(*cmd.Done)
	case TypeAssign:
		if handlers.Assign == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.Assign(*cmd.Assign)
	case TypeHelp:
		if handlers.Help == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.Help()
	case TypeReminderStatus:
		if handlers.ReminderStatus == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.ReminderStatus()
	case TypeReminderSet:
		if handlers.ReminderSet == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.ReminderSet(*cmd.ReminderSet)
	case TypeReminderOff:
		if handlers.ReminderOff == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.ReminderOff()
	case TypeReminderRemove:
		if handlers.ReminderRemove == nil {
			return Result{}, missingHandler(cmd.Type)
		}
		return handlers.ReminderRemove()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missingHandler(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
