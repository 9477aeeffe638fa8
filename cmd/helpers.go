package cmd

import (
	"os"

	"go.opentelemetry.io/otel/trace"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/taskfile"
)

var defaultTaskFiles = []string{"bake.hcl", "bake.yaml", "bake.yml"}

// resolveTaskFile returns the --file value, or the first default task file
// present in the working directory.
func resolveTaskFile() (string, error) {
	if taskFile != "" {
		return taskFile, nil
	}
	for _, name := range defaultTaskFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", bakeerrors.NewInvalidArgumentError("--file", "Task file discovery").
		WithContext("searched", defaultTaskFiles).
		WithTroubleshooting(
			"Create a bake.hcl or bake.yaml in the current directory",
			"Or point at a task file with --file",
		)
}

// engineSetup carries the optional collaborators of a loaded engine.
type engineSetup struct {
	config  *engine.Config
	metrics *engine.Metrics
	tracer  trace.TracerProvider
	runner  *taskfile.Runner
	hooks   engine.TaskLifetime
}

// loadEngine reads the task file and returns an engine with its tasks
// registered and its setup and teardown hooks installed.
func loadEngine(path string, s engineSetup) (*engine.Engine, *taskfile.File, error) {
	file, err := taskfile.Load(path)
	if err != nil {
		return nil, nil, err
	}

	cfg := s.config
	if cfg == nil {
		cfg = engine.DefaultConfig()
	}

	var opts []engine.Option
	if lt := file.Lifetime(s.runner); lt != nil {
		opts = append(opts, engine.WithLifetime(lt))
	}
	if s.metrics != nil {
		opts = append(opts, engine.WithMetrics(s.metrics))
	}
	if s.hooks != nil {
		opts = append(opts, engine.WithTaskLifetime(s.hooks))
	}
	if s.tracer != nil {
		opts = append(opts, engine.WithTracerProvider(s.tracer))
	}

	e := engine.New(cfg, opts...)
	if err := file.Register(e, s.runner); err != nil {
		return nil, nil, err
	}
	return e, file, nil
}
