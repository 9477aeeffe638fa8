package taskfile

import (
	"context"
	"fmt"

	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// Registrar accepts new tasks. *engine.Engine satisfies it.
type Registrar interface {
	RegisterTask(name string) (*taskmanager.TaskBuilder, error)
}

// Register adds every task of the file to reg, running commands through
// runner. Registration stops at the first error.
func (f *File) Register(reg Registrar, runner *Runner) error {
	if runner == nil {
		runner = DefaultRunner()
	}

	for _, spec := range f.Tasks {
		b, err := reg.RegisterTask(spec.Name)
		if err != nil {
			return err
		}
		spec.configure(b, runner)
	}

	logger.Op.WithFields(map[string]interface{}{
		"path":  f.Path,
		"tasks": len(f.Tasks),
	}).Debug("Registered tasks from task file")
	return nil
}

func (s *TaskSpec) configure(b *taskmanager.TaskBuilder, runner *Runner) {
	b.Description(s.Description).
		DependsOn(s.DependsOn...).
		IsDependeeOf(s.DependeeOf...)

	if s.Criteria != nil {
		reason := s.Criteria.Reason
		if reason == "" {
			reason = fmt.Sprintf("criteria %q not met", s.Criteria.Source)
		}
		b.WithCriteria(s.Criteria.predicate(), reason)
	}

	for _, command := range s.Commands {
		b.Does(s.commandAction(runner, command))
	}

	if s.OnError != "" {
		b.OnError(func(ctx context.Context, tc *taskmanager.TaskContext, cause error) error {
			return runner.Run(ctx, s.exec(tc, s.OnError, map[string]string{"BAKE_ERROR": cause.Error()}))
		})
	}
	if s.Finally != "" {
		b.FinallyDo(func(ctx context.Context, tc *taskmanager.TaskContext) error {
			return runner.Run(ctx, s.exec(tc, s.Finally, nil))
		})
	}
	if s.ContinueOnError {
		b.ContinueOnError()
	}
	if s.DeferOnError {
		b.DeferOnError()
	}
}

func (s *TaskSpec) commandAction(runner *Runner, command string) taskmanager.Action {
	return func(ctx context.Context, tc *taskmanager.TaskContext) error {
		return runner.Run(ctx, s.exec(tc, command, nil))
	}
}

func (s *TaskSpec) exec(tc *taskmanager.TaskContext, command string, extra map[string]string) Exec {
	env := make(map[string]string, len(s.Env)+len(extra)+2)
	for k, v := range s.Env {
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}
	env["BAKE_TASK"] = tc.Task
	env["BAKE_RUN_ID"] = tc.RunID
	return Exec{Command: command, Dir: s.Dir, Env: env, Log: tc.Log}
}

// Lifetime returns run-level hooks for the file's setup and teardown
// commands, or nil when the file declares neither.
func (f *File) Lifetime(runner *Runner) engine.Lifetime {
	if f.Setup == nil && f.Teardown == nil {
		return nil
	}
	if runner == nil {
		runner = DefaultRunner()
	}

	var funcs engine.LifetimeFuncs
	if f.Setup != nil {
		hook := f.Setup
		funcs.SetupFunc = func(ctx context.Context, info *engine.SetupInfo) error {
			logger.User.Lifecyclef("Setup: %s", hook.Command)
			return runner.Run(ctx, Exec{
				Command: hook.Command,
				Dir:     hook.Dir,
				Env:     map[string]string{"BAKE_RUN_ID": info.RunID},
				Log:     logger.Op.WithFields(map[string]interface{}{"hook": "setup", "run_id": info.RunID}),
			})
		}
	}
	if f.Teardown != nil {
		hook := f.Teardown
		funcs.TeardownFunc = func(ctx context.Context, info *engine.TeardownInfo) error {
			logger.User.Lifecyclef("Teardown: %s", hook.Command)
			status := "success"
			if !info.Successful {
				status = "failure"
			}
			return runner.Run(ctx, Exec{
				Command: hook.Command,
				Dir:     hook.Dir,
				Env:     map[string]string{"BAKE_RUN_ID": info.RunID, "BAKE_STATUS": status},
				Log:     logger.Op.WithFields(map[string]interface{}{"hook": "teardown", "run_id": info.RunID}),
			})
		}
	}
	return funcs
}
