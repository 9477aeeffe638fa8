package taskmanager

import (
	"context"
	"strings"
)

// Action is the function signature for a task's unit of work.
type Action func(ctx context.Context, tc *TaskContext) error

// ErrorHandler is invoked when an action fails. Returning nil marks the
// failure as handled.
type ErrorHandler func(ctx context.Context, tc *TaskContext, err error) error

// FinallyHandler runs after the actions and error handler of a task that was not skipped.
type FinallyHandler func(ctx context.Context, tc *TaskContext) error

// Predicate decides at execution time whether a task should run.
type Predicate func(ctx context.Context, tc *TaskContext) (bool, error)

// Criterion gates a task's actions. Message becomes the skip reason when
// the predicate returns false.
type Criterion struct {
	Predicate Predicate
	Message   string
}

// Task is the mutable draft of a task, configured through a TaskBuilder
// and sealed into a Descriptor when the registry is snapshotted.
type Task struct {
	name            string
	description     string
	dependencies    []string
	dependents      []string
	criteria        []Criterion
	actions         []Action
	errorHandler    ErrorHandler
	finally         FinallyHandler
	continueOnError bool
	deferOnError    bool
}

// NewTask creates a draft task. The name cannot be changed afterwards.
func NewTask(name string) *Task {
	return &Task{name: strings.TrimSpace(name)}
}

// Name returns the task name as it was registered.
func (t *Task) Name() string {
	return t.name
}

// Description returns the human readable description of the task.
func (t *Task) Description() string {
	return t.description
}

// Dependencies returns the names this task depends on.
func (t *Task) Dependencies() []string {
	return append([]string(nil), t.dependencies...)
}

// Dependents returns the names of tasks this task must run before.
func (t *Task) Dependents() []string {
	return append([]string(nil), t.dependents...)
}

// seal copies the draft into an immutable descriptor.
func (t *Task) seal(index int) *Descriptor {
	return &Descriptor{
		name:            t.name,
		description:     t.description,
		dependencies:    append([]string(nil), t.dependencies...),
		dependents:      append([]string(nil), t.dependents...),
		criteria:        append([]Criterion(nil), t.criteria...),
		actions:         append([]Action(nil), t.actions...),
		errorHandler:    t.errorHandler,
		finally:         t.finally,
		continueOnError: t.continueOnError,
		deferOnError:    t.deferOnError,
		index:           index,
	}
}

// Descriptor is the sealed, read-only form of a Task used during a run.
type Descriptor struct {
	name            string
	description     string
	dependencies    []string
	dependents      []string
	criteria        []Criterion
	actions         []Action
	errorHandler    ErrorHandler
	finally         FinallyHandler
	continueOnError bool
	deferOnError    bool
	index           int
}

func (d *Descriptor) Name() string { return d.name }
func (d *Descriptor) Description() string { return d.description }

// Index is the registration position of the task, used for tie-breaking.
func (d *Descriptor) Index() int { return d.index }

func (d *Descriptor) Dependencies() []string {
	return append([]string(nil), d.dependencies...)
}

func (d *Descriptor) Dependents() []string {
	return append([]string(nil), d.dependents...)
}

func (d *Descriptor) Criteria() []Criterion {
	return append([]Criterion(nil), d.criteria...)
}

func (d *Descriptor) Actions() []Action {
	return append([]Action(nil), d.actions...)
}

// HasActions reports whether the task does any work itself. Tasks without
// actions only group their dependencies.
func (d *Descriptor) HasActions() bool {
	return len(d.actions) > 0
}

func (d *Descriptor) ErrorHandler() ErrorHandler { return d.errorHandler }
func (d *Descriptor) Finally() FinallyHandler { return d.finally }
func (d *Descriptor) ContinueOnError() bool { return d.continueOnError }
func (d *Descriptor) DeferOnError() bool { return d.deferOnError }

// key normalizes a task name for case-insensitive lookups.
func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
