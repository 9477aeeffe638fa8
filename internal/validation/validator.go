// Package validation checks task files for mistakes before they are run.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/maxkimambo/bake/internal/taskfile"
)

// Severity of an issue. Errors stop a task file from being run.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// MaxTaskNameLength bounds task names so they fit reports and graphs.
const MaxTaskNameLength = 100

// Issue is a single finding about a task file.
type Issue struct {
	Task     string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	if i.Task == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: task %q: %s", i.Severity, i.Task, i.Message)
}

// Result collects the issues found in a task file, in task order.
type Result struct {
	Issues []Issue
}

// HasErrors reports whether any issue is an error.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

func (r *Result) add(task string, sev Severity, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Task: task, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

// ValidateTaskName checks that name can be used as a task name.
func ValidateTaskName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("task name %q has leading or trailing whitespace", name)
	}
	if len(name) > MaxTaskNameLength {
		return fmt.Errorf("task name must be at most %d characters, got %d", MaxTaskNameLength, len(name))
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("task name %q contains control characters", name)
		}
	}
	return nil
}

// ValidateConcurrency validates the concurrency value is within an acceptable range.
func ValidateConcurrency(concurrency int, max int) error {
	if concurrency < 1 || concurrency > max {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", max, concurrency)
	}
	return nil
}

// ValidateFile checks names, references and commands of every task. Graph
// level problems such as cycles are left to the dependency graph.
func ValidateFile(f *taskfile.File) *Result {
	res := &Result{}
	if len(f.Tasks) == 0 {
		res.add("", SeverityWarning, "task file declares no tasks")
		return res
	}

	known := make(map[string]string, len(f.Tasks))
	for i, t := range f.Tasks {
		if t == nil {
			res.add("", SeverityError, "task %d is empty", i+1)
			continue
		}
		if err := ValidateTaskName(t.Name); err != nil {
			res.add(t.Name, SeverityError, "%v", err)
			continue
		}
		key := strings.ToLower(t.Name)
		if first, dup := known[key]; dup {
			res.add(t.Name, SeverityError, "duplicates task %q (names are case-insensitive)", first)
			continue
		}
		known[key] = t.Name
	}

	for _, t := range f.Tasks {
		if t == nil {
			continue
		}
		checkReferences(res, t, "depends_on", t.DependsOn, known)
		checkReferences(res, t, "dependee_of", t.DependeeOf, known)

		for i, c := range t.Commands {
			if strings.TrimSpace(c) == "" {
				res.add(t.Name, SeverityError, "command %d is empty", i+1)
			}
		}

		if len(t.Commands) == 0 {
			if t.OnError != "" {
				res.add(t.Name, SeverityWarning, "on_error is never used by a task without commands")
			}
			if t.DeferOnError {
				res.add(t.Name, SeverityWarning, "defer_on_error has no effect without commands")
			}
			if len(t.DependsOn) == 0 && len(t.DependeeOf) == 0 && t.Finally == "" {
				res.add(t.Name, SeverityWarning, "task has no commands and no dependencies")
			}
		}
		if t.Criteria != nil && t.Criteria.Reason == "" {
			res.add(t.Name, SeverityWarning, "criteria without skip_reason")
		}
	}
	return res
}

func checkReferences(res *Result, t *taskfile.TaskSpec, attr string, refs []string, known map[string]string) {
	for _, ref := range refs {
		key := strings.ToLower(strings.TrimSpace(ref))
		switch {
		case key == "":
			res.add(t.Name, SeverityError, "%s contains an empty name", attr)
		case key == strings.ToLower(t.Name):
			res.add(t.Name, SeverityError, "%s refers to the task itself", attr)
		default:
			if _, ok := known[key]; !ok {
				res.add(t.Name, SeverityError, "%s refers to unknown task %q", attr, ref)
			}
		}
	}
}
