// Package executor runs execution plans. The Engine is the single writer of
// task state: it dispatches tasks over a bounded worker pool, drives each
// one through its status transitions, and commits every change to the status
// store. Groups execute concurrently with each other; ordering exists only
// inside a Sequential group, where a batch is dispatched only after the
// previous batch settled.
package executor

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/stagehand/internal/models"
	"github.com/harrison/stagehand/internal/status"
)

// Logger is the minimal logging surface the engine needs. All methods must
// be safe for concurrent use.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Runner abstracts process execution to allow fakes in tests.
type Runner interface {
	Run(ctx context.Context, command string, targets []string, timeout time.Duration) (ProcessResult, error)
}

// Options configure an Engine.
type Options struct {
	// MaxConcurrency bounds how many tasks run at once across all groups.
	// Zero or negative selects the number of CPUs.
	MaxConcurrency int

	// LookPath overrides PATH resolution for the pre-dispatch command check.
	LookPath LookPath
}

// Engine executes an ExecutionPlan against a status store.
type Engine struct {
	runner         Runner
	store          *status.Store
	logger         Logger
	maxConcurrency int
	lookPath       LookPath
}

// NewEngine constructs an Engine. The logger is optional and can be nil to
// disable logging.
func NewEngine(runner Runner, store *status.Store, logger Logger, opts Options) *Engine {
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Engine{
		runner:         runner,
		store:          store,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		lookPath:       lookPath,
	}
}

// Execute runs every group in the plan and returns the aggregated result.
// Group timeouts are taken as already effective (config resolution applies
// the global default before planning). Task failures are expressed entirely
// through task statuses; the returned error reports internal faults only.
//
// Cancelling ctx terminates running tasks through the grace-then-force path
// and marks every undispatched task Skipped.
func (e *Engine) Execute(ctx context.Context, plan *models.ExecutionPlan) (*models.RunResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan cannot be nil")
	}
	if e.runner == nil {
		return nil, fmt.Errorf("engine requires a runner")
	}
	if e.store == nil {
		return nil, fmt.Errorf("engine requires a status store")
	}

	started := time.Now()
	e.store.Register(plan.Tasks()...)

	sem := make(chan struct{}, e.maxConcurrency)

	var g errgroup.Group
	for _, groupPlan := range plan.Groups {
		g.Go(func() error {
			return e.runGroup(ctx, groupPlan, sem)
		})
	}
	runErr := g.Wait()

	result := &models.RunResult{
		RunID:       plan.RunID,
		Tasks:       e.store.Snapshot(),
		EmptyGroups: plan.EmptyGroups,
		TotalFiles:  plan.TotalFiles,
		Duration:    time.Since(started),
		Cancelled:   ctx.Err() != nil,
	}
	return result, runErr
}

// runGroup walks the group's batches in order. A batch failure with
// continue_on_error disabled skips everything after it; other groups are
// unaffected.
func (e *Engine) runGroup(ctx context.Context, groupPlan models.GroupPlan, sem chan struct{}) error {
	groupFailed := false
	for _, batch := range groupPlan.Batches {
		if ctx.Err() != nil {
			if err := e.skipBatch(batch, "run cancelled"); err != nil {
				return err
			}
			continue
		}
		if groupFailed && !groupPlan.Group.ContinueOnError {
			if err := e.skipBatch(batch, "previous task failed"); err != nil {
				return err
			}
			continue
		}

		failed, err := e.runBatch(ctx, groupPlan.Group, batch, sem)
		if err != nil {
			return err
		}
		if failed {
			groupFailed = true
			if !groupPlan.Group.ContinueOnError && e.logger != nil {
				e.logger.Warnf("group %s: task failed, skipping remaining tasks", groupPlan.Group.Name)
			}
		}
	}
	return nil
}

// runBatch dispatches every task in the batch concurrently and waits for
// all of them to settle. Reports whether any task ended Failed or TimedOut.
func (e *Engine) runBatch(ctx context.Context, group models.Group, batch models.Batch, sem chan struct{}) (bool, error) {
	var failed atomic.Bool
	var g errgroup.Group
	for _, task := range batch.Tasks {
		g.Go(func() error {
			final, err := e.dispatch(ctx, group, task, sem)
			if err != nil {
				return err
			}
			if final == models.StatusFailed || final == models.StatusTimedOut {
				failed.Store(true)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return failed.Load(), err
	}
	return failed.Load(), nil
}

// dispatch runs a single task to its terminal state: worker slot, command
// preflight, process execution, status commit.
func (e *Engine) dispatch(ctx context.Context, group models.Group, task *models.Task, sem chan struct{}) (models.CommandStatus, error) {
	// Never block on a worker slot for a cancelled run.
	select {
	case <-ctx.Done():
		return e.skip(task, "run cancelled")
	case sem <- struct{}{}:
	}
	defer func() { <-sem }()

	if ctx.Err() != nil {
		return e.skip(task, "run cancelled")
	}

	if err := CheckCommand(task.Command, e.lookPath); err != nil {
		task.Status = models.StatusFailed
		task.Stderr = err.Error()
		if e.logger != nil {
			e.logger.Warnf("%v", NewTaskError(task.ID, "command not executable", err))
		}
		if publishErr := e.store.Publish(task); publishErr != nil {
			return task.Status, publishErr
		}
		return task.Status, nil
	}

	startedAt := time.Now()
	task.Status = models.StatusRunning
	task.StartedAt = &startedAt
	if err := e.store.Publish(task); err != nil {
		return task.Status, err
	}
	if e.logger != nil {
		e.logger.Debugf("task %s started: %s", task.ID, task.Command)
	}

	procResult, runErr := e.runner.Run(ctx, task.Command, task.Targets, group.Timeout)

	endedAt := time.Now()
	task.EndedAt = &endedAt
	task.Stdout = procResult.Stdout
	task.Stderr = procResult.Stderr
	if procResult.ExitCode >= 0 {
		code := procResult.ExitCode
		task.ExitCode = &code
	}

	switch {
	case procResult.TimedOut:
		task.Status = models.StatusTimedOut
		if e.logger != nil {
			e.logger.Warnf("%v", NewTimeoutError(task.ID, group.Timeout))
		}
	case runErr != nil:
		task.Status = models.StatusFailed
		if task.Stderr == "" {
			task.Stderr = runErr.Error()
		}
		if e.logger != nil {
			e.logger.Warnf("%v", NewTaskError(task.ID, "execution failed", runErr))
		}
	case procResult.ExitCode == 0:
		task.Status = models.StatusDone
		if e.logger != nil {
			e.logger.Debugf("task %s done in %v", task.ID, task.Duration())
		}
	default:
		task.Status = models.StatusFailed
		if e.logger != nil {
			e.logger.Debugf("task %s failed with exit code %d", task.ID, procResult.ExitCode)
		}
	}

	if err := e.store.Publish(task); err != nil {
		return task.Status, err
	}
	return task.Status, nil
}

// skip marks a task Skipped unless it already reached a terminal state, in
// which case skipping is a no-op.
func (e *Engine) skip(task *models.Task, reason string) (models.CommandStatus, error) {
	if task.Status.IsTerminal() {
		return task.Status, nil
	}
	task.Status = models.StatusSkipped
	task.SkipReason = reason
	if err := e.store.Publish(task); err != nil {
		return task.Status, err
	}
	return models.StatusSkipped, nil
}

// skipBatch marks every task in the batch Skipped.
func (e *Engine) skipBatch(batch models.Batch, reason string) error {
	for _, task := range batch.Tasks {
		if _, err := e.skip(task, reason); err != nil {
			return err
		}
	}
	return nil
}
