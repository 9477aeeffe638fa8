package taskfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/sirupsen/logrus"
)

// Runner executes task file commands through a shell.
type Runner struct {
	// Shell is invoked as "<Shell> -c <command>"
	Shell string
	// Stdout and Stderr receive command output. When nil, output goes to
	// the task's logger.
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultRunner runs commands with /bin/sh and streams output to the log.
func DefaultRunner() *Runner {
	return &Runner{Shell: "sh"}
}

// Exec describes a single command invocation.
type Exec struct {
	Command string
	Dir     string
	Env     map[string]string
	Log     *logrus.Entry
}

// Run executes the command, returning an error when it exits non-zero.
func (r *Runner) Run(ctx context.Context, x Exec) error {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", x.Command)
	cmd.Dir = x.Dir
	cmd.Env = append(os.Environ(), envList(x.Env)...)

	stdout, stderr := r.Stdout, r.Stderr
	if x.Log != nil {
		if stdout == nil {
			w := x.Log.WriterLevel(logrus.InfoLevel)
			defer w.Close()
			stdout = w
		}
		if stderr == nil {
			w := x.Log.WriterLevel(logrus.WarnLevel)
			defer w.Close()
			stderr = w
		}
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if x.Log != nil {
		x.Log.WithField("command", x.Command).Debug("Running command")
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", x.Command, err)
	}
	return nil
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
