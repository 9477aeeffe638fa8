package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// DisplayErrorSummary provides a brief summary of the error for logs
func DisplayErrorSummary(err error) string {
	var engErr *EngineError
	if stderrors.As(err, &engErr) {
		return fmt.Sprintf("%s-%s: %s", engErr.Category, engErr.Code, engErr.Message)
	}

	errStr := err.Error()
	if len(errStr) > 100 {
		return errStr[:97] + "..."
	}
	return errStr
}

// FormatForCLI formats an error for command-line display with proper spacing
func FormatForCLI(err error) string {
	var engErr *EngineError
	if !stderrors.As(err, &engErr) {
		return fmt.Sprintf("\nError: %v\n", err)
	}

	var sb strings.Builder
	category := string(engErr.Category)
	sb.WriteString(fmt.Sprintf("\n%s Error [%s-%s]\n", category[:1]+strings.ToLower(category[1:]), engErr.Category, engErr.Code))
	sb.WriteString(fmt.Sprintf("  %s\n", engErr.Message))

	if engErr.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nFailed Operation: %s\n", engErr.Operation))
	}

	if len(engErr.Context) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, key := range engErr.contextKeys() {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", key, engErr.Context[key]))
		}
	}

	if len(engErr.Troubleshooting) > 0 {
		sb.WriteString("\nHow to resolve:\n")
		for i, step := range engErr.Troubleshooting {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}

	if engErr.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nTechnical details: %v\n", engErr.OriginalError))
	}

	// errors.Join keeps secondary failures (teardown) next to the primary one
	if joined, ok := err.(interface{ Unwrap() []error }); ok && len(joined.Unwrap()) > 1 {
		for _, other := range joined.Unwrap()[1:] {
			sb.WriteString(fmt.Sprintf("\nAlso: %s\n", DisplayErrorSummary(other)))
		}
	}

	return sb.String()
}

// IsUserError determines if an error is due to task configuration rather than a task failing
func IsUserError(err error) bool {
	var engErr *EngineError
	if stderrors.As(err, &engErr) {
		return engErr.Category == ErrorCategoryConfiguration
	}
	return false
}

// GetErrorCode extracts the error code for reporting
func GetErrorCode(err error) string {
	var engErr *EngineError
	if stderrors.As(err, &engErr) {
		return fmt.Sprintf("%s-%s", engErr.Category, engErr.Code)
	}
	return "UNKNOWN"
}
