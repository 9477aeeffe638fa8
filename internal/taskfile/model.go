// Package taskfile loads task definitions from HCL or YAML files and
// registers them with an engine as shell command tasks.
package taskfile

import (
	"github.com/hashicorp/hcl/v2"
)

// File is a parsed task file, independent of its source format.
type File struct {
	Path     string
	Setup    *Hook
	Teardown *Hook
	Tasks    []*TaskSpec
}

// Hook is a shell command run as run-level setup or teardown.
type Hook struct {
	Command string
	Dir     string
}

// TaskSpec describes one task of a task file.
type TaskSpec struct {
	Name            string
	Description     string
	DependsOn       []string
	DependeeOf      []string
	Criteria        *Criteria
	Commands        []string
	OnError         string
	Finally         string
	ContinueOnError bool
	DeferOnError    bool
	Dir             string
	Env             map[string]string
}

// Criteria is an HCL expression evaluated just before the task runs. The
// task is skipped with Reason when it evaluates to false.
type Criteria struct {
	Expr   hcl.Expression
	Source string
	Reason string
}

// hclFile is the HCL schema of a task file.
type hclFile struct {
	Setup    *hclHook   `hcl:"setup,block"`
	Teardown *hclHook   `hcl:"teardown,block"`
	Tasks    []*hclTask `hcl:"task,block"`
}

type hclHook struct {
	Command string `hcl:"command"`
	Dir     string `hcl:"dir,optional"`
}

type hclTask struct {
	Name            string            `hcl:"name,label"`
	Description     string            `hcl:"description,optional"`
	DependsOn       []string          `hcl:"depends_on,optional"`
	DependeeOf      []string          `hcl:"dependee_of,optional"`
	Criteria        hcl.Expression    `hcl:"criteria,optional"`
	SkipReason      string            `hcl:"skip_reason,optional"`
	Commands        []string          `hcl:"commands,optional"`
	OnError         string            `hcl:"on_error,optional"`
	Finally         string            `hcl:"finally,optional"`
	ContinueOnError bool              `hcl:"continue_on_error,optional"`
	DeferOnError    bool              `hcl:"defer_on_error,optional"`
	Dir             string            `hcl:"dir,optional"`
	Env             map[string]string `hcl:"env,optional"`
}

// yamlFile is the YAML schema of a task file. Criteria are HCL expressions
// written as strings.
type yamlFile struct {
	Setup    *yamlHook   `yaml:"setup"`
	Teardown *yamlHook   `yaml:"teardown"`
	Tasks    []*yamlTask `yaml:"tasks"`
}

type yamlHook struct {
	Command string `yaml:"command"`
	Dir     string `yaml:"dir"`
}

type yamlTask struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	DependsOn       []string          `yaml:"depends_on"`
	DependeeOf      []string          `yaml:"dependee_of"`
	Criteria        string            `yaml:"criteria"`
	SkipReason      string            `yaml:"skip_reason"`
	Commands        []string          `yaml:"commands"`
	OnError         string            `yaml:"on_error"`
	Finally         string            `yaml:"finally"`
	ContinueOnError bool              `yaml:"continue_on_error"`
	DeferOnError    bool              `yaml:"defer_on_error"`
	Dir             string            `yaml:"dir"`
	Env             map[string]string `yaml:"env"`
}
