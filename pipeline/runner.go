package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/logger"
	"github.com/rs/xid"
)

// ErrTaskFailed is matched by the error returned from Runner.Run when a task fails.
var ErrTaskFailed = errors.New("task failed")

// TaskError wraps the error returned by a failed task.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %v failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func (e *TaskError) Is(target error) bool {
	return target == ErrTaskFailed
}

// Task is one step of a run.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes tasks one at a time in the order given.
type Runner struct {
	log            logger.Logger
	guid           string
	tasks          []Task
	cleanupHandler CleanupHandlerFunc
	mu             sync.Mutex
	statuses       []TaskStatus
}

// SetCleanupHandler returns an option for NewRunner. A nil handler disables signal handling.
func SetCleanupHandler(fn CleanupHandlerFunc) func(r *Runner) {
	return func(r *Runner) {
		r.cleanupHandler = fn
	}
}

func NewRunner(log logger.Logger, tasks []Task, options ...func(r *Runner)) *Runner {
	r := &Runner{
		log:            log,
		guid:           xid.New().String(),
		tasks:          tasks,
		cleanupHandler: CleanupHandlerDefault,
		statuses:       make([]TaskStatus, len(tasks)),
	}
	for idx, t := range tasks {
		r.statuses[idx] = TaskStatus{Task: t.Name, Status: StatusStarting}
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Runner) Guid() string {
	return r.guid
}

// Run executes each task in turn and stops at the first failure.
// Tasks after a failure are marked skipped. A cancelled ctx marks the current and remaining tasks as shutdown.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	if r.cleanupHandler != nil {
		go r.cleanupHandler(ctx, r.log, r.guid, cancelFunc)
	}
	r.log.Info("Starting run ", r.guid, " with ", len(r.tasks), " tasks")
	for idx, t := range r.tasks {
		if ctx.Err() != nil {
			r.finishRemaining(idx, StatusShutdown)
			return errors.Wrapf(ctx.Err(), "run %v", r.guid)
		}
		r.setStatus(idx, StatusRunning, nil)
		r.log.Info(t.Name, " is running")
		err := t.Run(ctx)
		if err != nil {
			if ctx.Err() != nil { // if we were asked to stop...
				r.setStatus(idx, StatusShutdown, err)
				r.finishRemaining(idx+1, StatusShutdown)
				r.log.Info(t.Name, " shutdown")
				return errors.Wrapf(ctx.Err(), "run %v", r.guid)
			}
			r.setStatus(idx, StatusCompleteWithError, err)
			r.finishRemaining(idx+1, StatusSkipped)
			r.log.Error(t.Name, " failed: ", err)
			return &TaskError{Task: t.Name, Err: err}
		}
		r.setStatus(idx, StatusComplete, nil)
		r.log.Info(t.Name, " complete")
	}
	r.log.Info("Run ", r.guid, " complete")
	return nil
}

// Statuses returns a copy of the task statuses in task order.
func (r *Runner) Statuses() []TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func (r *Runner) setStatus(idx int, s Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if s == StatusRunning {
		r.statuses[idx].StartTime = now
	} else {
		r.statuses[idx].EndTime = now
	}
	r.statuses[idx].Status = s
	if err != nil {
		r.statuses[idx].Error = err.Error()
	}
}

func (r *Runner) finishRemaining(from int, s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for idx := from; idx < len(r.statuses); idx++ {
		r.statuses[idx].Status = s
	}
}
