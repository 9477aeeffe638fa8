package taskmanager

import (
	bakeerrors "github.com/maxkimambo/bake/internal/errors"
)

// TaskBuilder configures a single Task. Every method mutates the wrapped
// task in place and returns the builder for chaining. Nothing is checked
// against the registry here; dependencies may name tasks registered later.
type TaskBuilder struct {
	task *Task
}

// NewTaskBuilder wraps the given task.
func NewTaskBuilder(task *Task) (*TaskBuilder, error) {
	if task == nil {
		return nil, bakeerrors.NewInvalidArgumentError("task", "create task builder")
	}
	return &TaskBuilder{task: task}, nil
}

// Task returns the task being configured
func (b *TaskBuilder) Task() *Task {
	return b.task
}

// DependsOn adds tasks that must run before this one.
func (b *TaskBuilder) DependsOn(names ...string) *TaskBuilder {
	b.task.dependencies = appendUnique(b.task.dependencies, names)
	return b
}

// IsDependeeOf declares that this task must run before each named task,
// and is pulled into any run that includes one of them.
func (b *TaskBuilder) IsDependeeOf(names ...string) *TaskBuilder {
	b.task.dependents = appendUnique(b.task.dependents, names)
	return b
}

// WithCriteria adds a run condition evaluated just before the task runs.
func (b *TaskBuilder) WithCriteria(predicate Predicate, message string) *TaskBuilder {
	if predicate == nil {
		return b
	}
	b.task.criteria = append(b.task.criteria, Criterion{Predicate: predicate, Message: message})
	return b
}

// Does appends an action. Actions run in the order they were added.
func (b *TaskBuilder) Does(action Action) *TaskBuilder {
	if action == nil {
		return b
	}
	b.task.actions = append(b.task.actions, action)
	return b
}

func (b *TaskBuilder) OnError(handler ErrorHandler) *TaskBuilder {
	b.task.errorHandler = handler
	return b
}

func (b *TaskBuilder) FinallyDo(handler FinallyHandler) *TaskBuilder {
	b.task.finally = handler
	return b
}

// ContinueOnError lets the run proceed when this task fails.
func (b *TaskBuilder) ContinueOnError() *TaskBuilder {
	b.task.continueOnError = true
	return b
}

// DeferOnError keeps running the remaining actions after one fails and
// reports all failures once the last action has run.
func (b *TaskBuilder) DeferOnError() *TaskBuilder {
	b.task.deferOnError = true
	return b
}

func (b *TaskBuilder) Description(text string) *TaskBuilder {
	b.task.description = text
	return b
}

// appendUnique appends names not already present (case-insensitive).
func appendUnique(existing []string, names []string) []string {
	for _, name := range names {
		k := key(name)
		if k == "" {
			continue
		}
		seen := false
		for _, e := range existing {
			if key(e) == k {
				seen = true
				break
			}
		}
		if !seen {
			existing = append(existing, name)
		}
	}
	return existing
}
