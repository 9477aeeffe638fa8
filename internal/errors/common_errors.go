package errors

import (
	"fmt"
	"strings"
)

// Error codes, unique within a category
const (
	CodeInvalidArgument    = "001"
	CodeDuplicateTask      = "002"
	CodeTaskNotFound       = "003"
	CodeMissingDependency  = "004"
	CodeCircularDependency = "005"

	CodeActionFailed = "001"

	CodeSetupFailed    = "001"
	CodeTeardownFailed = "002"
)

// NewInvalidArgumentError creates an error for a nil or otherwise unusable argument
func NewInvalidArgumentError(argument, operation string) *EngineError {
	return NewEngineError(ErrInvalidArgument, ErrorCategoryConfiguration, CodeInvalidArgument,
		fmt.Sprintf("Invalid argument '%s'", argument),
		operation).
		WithContext("argument", argument)
}

// NewDuplicateTaskError creates an error for a task registered twice
func NewDuplicateTaskError(name string) *EngineError {
	return NewEngineError(ErrDuplicateTask, ErrorCategoryConfiguration, CodeDuplicateTask,
		fmt.Sprintf("Task '%s' is already registered", name),
		"Task registration").
		WithContext("task", name).
		WithTroubleshooting(
			"Task names are compared case-insensitively",
			"Rename one of the tasks or remove the duplicate definition",
		)
}

// NewTaskNotFoundError creates an error for a lookup of an unknown task
func NewTaskNotFoundError(name string) *EngineError {
	return NewEngineError(ErrTaskNotFound, ErrorCategoryConfiguration, CodeTaskNotFound,
		fmt.Sprintf("Task '%s' was not found", name),
		"Task lookup").
		WithContext("task", name).
		WithTroubleshooting(
			"Run 'bake tasks' to list the registered tasks",
			"Check the spelling of the target name",
		)
}

// NewMissingDependencyError creates an error for an edge naming an unregistered task
func NewMissingDependencyError(task, dependency string) *EngineError {
	return NewEngineError(ErrMissingDependency, ErrorCategoryConfiguration, CodeMissingDependency,
		fmt.Sprintf("Task '%s' references unknown task '%s'", task, dependency),
		"Dependency graph construction").
		WithContext("task", task).
		WithContext("dependency", dependency).
		WithTroubleshooting(
			"Register the referenced task before running",
			"Use --skip-unresolved to ignore references to unregistered tasks",
		)
}

// NewCircularDependencyError creates an error describing a dependency cycle
func NewCircularDependencyError(cycle []string) *CircularDependencyError {
	path := append([]string(nil), cycle...)
	base := NewEngineError(ErrCircularDependency, ErrorCategoryConfiguration, CodeCircularDependency,
		fmt.Sprintf("Circular dependency detected: %s", strings.Join(path, " -> ")),
		"Dependency graph construction").
		WithContext("cycle", path).
		WithTroubleshooting(
			"Remove one of the dependencies forming the cycle",
			"Check IsDependeeOf declarations, they add edges in the reverse direction",
		)
	return &CircularDependencyError{EngineError: base, Cycle: path}
}

// NewActionFailedError wraps a failure raised by a task action
func NewActionFailedError(task string, originalErr error) *EngineError {
	return NewEngineError(ErrActionFailed, ErrorCategoryExecution, CodeActionFailed,
		fmt.Sprintf("Task '%s' failed", task),
		"Task execution").
		WithContext("task", task).
		WithOriginalError(originalErr)
}

// NewSetupFailedError wraps a failure raised by the setup hook
func NewSetupFailedError(originalErr error) *EngineError {
	return NewEngineError(ErrSetupFailed, ErrorCategoryLifecycle, CodeSetupFailed,
		"Setup failed, no tasks were executed",
		"Setup").
		WithOriginalError(originalErr)
}

// NewTeardownFailedError wraps a failure raised by the teardown hook
func NewTeardownFailedError(originalErr error) *EngineError {
	return NewEngineError(ErrTeardownFailed, ErrorCategoryLifecycle, CodeTeardownFailed,
		"Teardown failed",
		"Teardown").
		WithOriginalError(originalErr)
}
