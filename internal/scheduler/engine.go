package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// FireFunc is invoked on each trigger with the chat the trigger belongs to.
type FireFunc func(chatID int64)

// Engine keeps at most one recurring UTC cron trigger per chat. Arming a
// chat that already has a trigger replaces it.
type Engine struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[int64]cron.EntryID
	fire    FireFunc
	started bool
	stopped bool
}

func NewEngine(fire FireFunc) *Engine {
	return &Engine{
		cron: cron.New(cron.WithLocation(time.UTC)),
		jobs: make(map[int64]cron.EntryID),
		fire: fire,
	}
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	e.cron.Start()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopped {
		return
	}
	e.stopped = true
	<-e.cron.Stop().Done()
}

// Arm registers the chat's recurring trigger, replacing any existing one.
// The expression is validated here; a bad schedule leaves any previous
// trigger in place.
func (e *Engine) Arm(chatID int64, cronExpr string) error {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return fmt.Errorf("scheduler: parse %q: %w", cronExpr, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.jobs[chatID]; ok {
		e.cron.Remove(old)
	}
	e.jobs[chatID] = e.cron.Schedule(schedule, cron.FuncJob(func() { e.fire(chatID) }))
	return nil
}

// Disarm removes the chat's trigger. Returns false when none was armed.
func (e *Engine) Disarm(chatID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.jobs[chatID]
	if !ok {
		return false
	}
	e.cron.Remove(id)
	delete(e.jobs, chatID)
	return true
}

// Armed reports whether the chat currently has a trigger.
func (e *Engine) Armed(chatID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.jobs[chatID]
	return ok
}
