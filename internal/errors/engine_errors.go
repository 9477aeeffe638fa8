package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryConfiguration represents registration and graph errors detected before a run
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
	// ErrorCategoryExecution represents task action failures
	ErrorCategoryExecution ErrorCategory = "EXECUTION"
	// ErrorCategoryLifecycle represents setup and teardown failures
	ErrorCategoryLifecycle ErrorCategory = "LIFECYCLE"
)

// Sentinel kinds. Every EngineError carries exactly one of these so callers
// can use errors.Is without inspecting messages.
var (
	ErrInvalidArgument    = stderrors.New("invalid argument")
	ErrDuplicateTask      = stderrors.New("duplicate task")
	ErrTaskNotFound       = stderrors.New("task not found")
	ErrMissingDependency  = stderrors.New("missing dependency")
	ErrCircularDependency = stderrors.New("circular dependency")
	ErrActionFailed       = stderrors.New("action failed")
	ErrSetupFailed        = stderrors.New("setup failed")
	ErrTeardownFailed     = stderrors.New("teardown failed")
)

// EngineError represents a structured error with context and troubleshooting information
type EngineError struct {
	Kind            error
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.OriginalError))
	}

	return sb.String()
}

// Details renders the error with its operation, context and troubleshooting steps.
func (e *EngineError) Details() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

func (e *EngineError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unwrap returns the original error for error chain compatibility
func (e *EngineError) Unwrap() error {
	return e.OriginalError
}

// Is matches the sentinel kind of the error.
func (e *EngineError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// NewEngineError creates a new engine error with the specified parameters
func NewEngineError(kind error, category ErrorCategory, code, message, operation string) *EngineError {
	return &EngineError{
		Kind:            kind,
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *EngineError) WithTroubleshooting(steps ...string) *EngineError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the engine error
func (e *EngineError) WithOriginalError(err error) *EngineError {
	e.OriginalError = err
	return e
}

// CircularDependencyError reports a dependency cycle with the task names in
// the order they were discovered. The first and last names are the same task.
type CircularDependencyError struct {
	*EngineError
	Cycle []string
}

// Unwrap exposes the embedded EngineError so errors.As finds it.
func (e *CircularDependencyError) Unwrap() error {
	return e.EngineError
}
