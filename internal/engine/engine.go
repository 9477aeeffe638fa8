package engine

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/maxkimambo/bake/internal/dag"
	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/report"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// Engine owns a task registry and runs targets from it
type Engine struct {
	registry     *taskmanager.Registry
	config       *Config
	lifetime     Lifetime
	taskLifetime TaskLifetime
	metrics      *Metrics
	tracer       trace.Tracer
}

// Option configures an Engine
type Option func(*Engine)

// WithRegistry uses an existing registry instead of an empty one
func WithRegistry(registry *taskmanager.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// WithLifetime installs run-level Setup and Teardown hooks
func WithLifetime(lifetime Lifetime) Option {
	return func(e *Engine) {
		e.lifetime = lifetime
	}
}

// WithTaskLifetime installs hooks invoked around every executed task
func WithTaskLifetime(taskLifetime TaskLifetime) Option {
	return func(e *Engine) {
		e.taskLifetime = taskLifetime
	}
}

// WithMetrics records task and run outcomes on m
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracerProvider creates spans from tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an engine. A nil config uses DefaultConfig.
func New(config *Config, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	e := &Engine{
		registry: taskmanager.NewRegistry(),
		config:   config,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's task registry
func (e *Engine) Registry() *taskmanager.Registry {
	return e.registry
}

// RegisterTask registers a new task and returns a builder to configure it
func (e *Engine) RegisterTask(name string) (*taskmanager.TaskBuilder, error) {
	task := taskmanager.NewTask(name)
	if err := e.registry.Register(task); err != nil {
		return nil, err
	}
	return taskmanager.NewTaskBuilder(task)
}

// Plan snapshots the registry, validates the whole graph and resolves the
// tasks a run of targets would execute, in order.
func (e *Engine) Plan(targets []string, opts RunOptions) (*dag.Graph, []*taskmanager.Descriptor, error) {
	graph, err := dag.Build(e.registry.Snapshot(), dag.BuildOptions{SkipUnresolved: opts.SkipUnresolved})
	if err != nil {
		return nil, nil, err
	}

	var order []*taskmanager.Descriptor
	if opts.exclusive() {
		order, err = graph.ExclusiveOrder(targets...)
	} else {
		order, err = graph.ExecutionOrder(targets...)
	}
	if err != nil {
		return nil, nil, err
	}
	return graph, order, nil
}

// Run executes target and everything it depends on
func (e *Engine) Run(ctx context.Context, target string, opts RunOptions) (*report.Report, error) {
	return e.RunTargets(ctx, []string{target}, opts)
}

// RunTargets executes several targets in one run. Configuration errors are
// returned before any hook or task runs, with a nil report. Otherwise the
// report is always returned, also when the run failed.
func (e *Engine) RunTargets(ctx context.Context, targets []string, opts RunOptions) (*report.Report, error) {
	graph, order, err := e.Plan(targets, opts)
	if err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"targets": strings.Join(targets, ","),
			"error":   err.Error(),
		}).Error("Run configuration is invalid")
		e.metrics.observeRun(err)
		return nil, err
	}

	r := newRun(e, graph, order, targets, opts)
	rep, err := r.execute(ctx)
	e.metrics.observeRun(err)
	return rep, err
}
