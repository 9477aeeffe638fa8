package engine

import (
	"context"
	"time"

	"github.com/maxkimambo/bake/internal/report"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// SetupInfo describes a run that is about to start.
type SetupInfo struct {
	RunID     string
	Targets   []string
	Tasks     []string
	StartTime time.Time
	Data      *taskmanager.SharedContext
}

// TeardownInfo describes a run that has finished executing tasks.
type TeardownInfo struct {
	RunID      string
	Targets    []string
	Report     *report.Report
	Successful bool
	// ThrownError is the error that aborted the run, if any
	ThrownError error
	Duration    time.Duration
	Data        *taskmanager.SharedContext
}

// Lifetime is implemented by hosts that need to run code once before the
// first task and once after the last. Teardown runs whenever Setup was
// attempted, including after failures.
type Lifetime interface {
	Setup(ctx context.Context, info *SetupInfo) error
	Teardown(ctx context.Context, info *TeardownInfo) error
}

// TaskInfo describes the task a TaskLifetime hook is called for.
type TaskInfo struct {
	RunID string
	Task  string
	// Err is the task's failure, set for TaskTeardown only
	Err error
	// SkipReason is set for TaskSkipped only
	SkipReason string
}

// TaskLifetime is implemented by hosts that need hooks around every task
// that is not skipped.
type TaskLifetime interface {
	TaskSetup(ctx context.Context, info *TaskInfo) error
	TaskTeardown(ctx context.Context, info *TaskInfo) error
}

// TaskSkipObserver may be implemented by a TaskLifetime that also wants to
// hear about tasks whose criteria were not met.
type TaskSkipObserver interface {
	TaskSkipped(ctx context.Context, info *TaskInfo)
}

// LifetimeFuncs adapts plain functions to Lifetime. Nil functions are no-ops.
type LifetimeFuncs struct {
	SetupFunc    func(ctx context.Context, info *SetupInfo) error
	TeardownFunc func(ctx context.Context, info *TeardownInfo) error
}

func (l LifetimeFuncs) Setup(ctx context.Context, info *SetupInfo) error {
	if l.SetupFunc == nil {
		return nil
	}
	return l.SetupFunc(ctx, info)
}

func (l LifetimeFuncs) Teardown(ctx context.Context, info *TeardownInfo) error {
	if l.TeardownFunc == nil {
		return nil
	}
	return l.TeardownFunc(ctx, info)
}
