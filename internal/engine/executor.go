package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maxkimambo/bake/internal/dag"
	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/report"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// run holds the state of a single execution of an ordered task list.
// Only the goroutine driving the run writes to the recorder.
type run struct {
	engine  *Engine
	graph   *dag.Graph
	order   []*taskmanager.Descriptor
	targets []string
	opts    RunOptions

	id       string
	data     *taskmanager.SharedContext
	recorder *report.Recorder
	log      *logrus.Entry

	state       State
	transitions []State
	startTime   time.Time
}

func newRun(e *Engine, graph *dag.Graph, order []*taskmanager.Descriptor, targets []string, opts RunOptions) *run {
	id := uuid.NewString()
	return &run{
		engine:   e,
		graph:    graph,
		order:    order,
		targets:  append([]string(nil), targets...),
		opts:     opts,
		id:       id,
		data:     taskmanager.NewSharedContext(),
		recorder: report.NewRecorder(),
		log: logger.Op.WithFields(map[string]interface{}{
			"run_id": id,
		}),
		state: StateNotStarted,
	}
}

func (r *run) transition(next State) {
	if !r.state.CanTransition(next) {
		r.log.Errorf("Invalid state transition %s -> %s", r.state, next)
	}
	r.log.WithField("state", next.String()).Debug("Executor state changed")
	r.state = next
	r.transitions = append(r.transitions, next)
}

func (r *run) taskNames() []string {
	names := make([]string, 0, len(r.order))
	for _, d := range r.order {
		names = append(names, d.Name())
	}
	return names
}

// execute drives the state machine to completion. The error that aborted
// the run stays the primary error; a teardown failure is joined after it.
func (r *run) execute(ctx context.Context) (*report.Report, error) {
	r.startTime = time.Now()
	ctx, span := r.engine.startSpan(ctx, "bake.run",
		attrRunID.String(r.id),
		attrTargets.StringSlice(r.targets),
		attrParallel.Bool(r.opts.Parallel),
		attrTasks.Int(len(r.order)),
	)

	logger.User.Startingf("Running %s (%d tasks): %s",
		strings.Join(r.targets, ", "), len(r.order), strings.Join(r.taskNames(), " -> "))

	var primary error

	r.transition(StateSettingUp)
	if err := r.setup(ctx); err != nil {
		primary = bakeerrors.NewSetupFailedError(err)
	} else {
		r.transition(StateRunning)
		if r.opts.Parallel {
			primary = r.runParallel(ctx)
		} else {
			primary = r.runSerial(ctx)
		}
		if primary != nil {
			r.transition(StateAborted)
		}
	}

	r.transition(StateTearingDown)
	teardownErr := r.teardown(context.WithoutCancel(ctx), primary)
	if teardownErr != nil {
		teardownErr = bakeerrors.NewTeardownFailedError(teardownErr)
	}
	r.transition(StateCompleted)

	var err error
	switch {
	case primary != nil && teardownErr != nil:
		err = errors.Join(primary, teardownErr)
	case primary != nil:
		err = primary
	default:
		err = teardownErr
	}

	rep := r.recorder.Report()
	duration := time.Since(r.startTime)
	if err != nil {
		logger.User.Errorf("Run failed after %s: %v", duration.Round(time.Millisecond), bakeerrors.DisplayErrorSummary(err))
	} else {
		logger.User.Successf("Run completed in %s", duration.Round(time.Millisecond))
	}
	endSpan(span, "", err)

	return rep, err
}

func (r *run) runSerial(ctx context.Context) error {
	for _, d := range r.order {
		if err := ctx.Err(); err != nil {
			r.log.WithField("task", d.Name()).Warn("Run cancelled before task started")
			return err
		}
		entry, fatal := r.runTask(ctx, d)
		r.record(entry)
		if fatal != nil {
			return fatal
		}
	}
	return nil
}

func (r *run) record(e report.Entry) {
	r.recorder.Record(e)
	r.engine.metrics.observeTask(e)
}

func (r *run) setup(ctx context.Context) error {
	if r.engine.lifetime == nil {
		return nil
	}

	ctx, span := r.engine.startSpan(ctx, "bake.setup", attrRunID.String(r.id))
	logger.User.Lifecyclef("Executing setup")

	start := time.Now()
	err := safeCall("setup", func() error {
		return r.engine.lifetime.Setup(ctx, &SetupInfo{
			RunID:     r.id,
			Targets:   append([]string(nil), r.targets...),
			Tasks:     r.taskNames(),
			StartTime: r.startTime,
			Data:      r.data,
		})
	})

	entry := report.Entry{
		Task:     string(report.CategorySetup),
		Category: report.CategorySetup,
		Status:   report.StatusExecuted,
		Duration: time.Since(start),
	}
	if err != nil {
		entry.Status = report.StatusFailed
		entry.Error = err
		logger.User.Errorf("Setup failed: %v", err)
	}
	r.record(entry)
	endSpan(span, entry.Status, err)
	return err
}

func (r *run) teardown(ctx context.Context, primary error) error {
	if r.engine.lifetime == nil {
		return nil
	}

	ctx, span := r.engine.startSpan(ctx, "bake.teardown", attrRunID.String(r.id))
	logger.User.Lifecyclef("Executing teardown")

	start := time.Now()
	err := safeCall("teardown", func() error {
		return r.engine.lifetime.Teardown(ctx, &TeardownInfo{
			RunID:       r.id,
			Targets:     append([]string(nil), r.targets...),
			Report:      r.recorder.Report(),
			Successful:  primary == nil,
			ThrownError: primary,
			Duration:    time.Since(r.startTime),
			Data:        r.data,
		})
	})

	entry := report.Entry{
		Task:     string(report.CategoryTeardown),
		Category: report.CategoryTeardown,
		Status:   report.StatusExecuted,
		Duration: time.Since(start),
	}
	if err != nil {
		entry.Status = report.StatusFailed
		entry.Error = err
		logger.User.Errorf("Teardown failed: %v", err)
	}
	r.record(entry)
	endSpan(span, entry.Status, err)
	return err
}

// runTask runs one task through criteria, actions, error handling and
// finally. The returned error is non-nil only when the run must abort.
func (r *run) runTask(ctx context.Context, d *taskmanager.Descriptor) (report.Entry, error) {
	entry := report.Entry{
		Task:     d.Name(),
		Category: report.CategoryTask,
	}

	ctx, span := r.engine.startSpan(ctx, "bake.task",
		attrRunID.String(r.id),
		attrTask.String(d.Name()),
	)
	tc := &taskmanager.TaskContext{
		Task:  d.Name(),
		RunID: r.id,
		Data:  r.data,
		Log:   logger.Op.WithTask(d.Name(), r.id),
	}

	start := time.Now()

	skipReason, failure := r.evaluateCriteria(ctx, d, tc)
	if failure == nil && skipReason != "" {
		entry.Status = report.StatusSkipped
		entry.SkipReason = skipReason
		logger.User.Skippedf("Skipping task: %s (%s)", d.Name(), skipReason)
		r.taskSkipped(ctx, d, skipReason)
		endSpan(span, entry.Status, nil)
		return entry, nil
	}

	hooked := failure == nil
	if hooked {
		logger.User.Startingf("Starting task: %s", d.Name())
		failure = r.taskHook(ctx, d, nil, true)
	}
	if failure == nil && d.HasActions() {
		failure = invokeActions(ctx, d, tc)
	}

	var taskErr error
	handled, handlerFailed := false, false
	if failure != nil {
		if handler := d.ErrorHandler(); handler != nil {
			herr := safeCall("error handler", func() error { return handler(ctx, tc, failure) })
			if herr != nil {
				taskErr = herr
				handlerFailed = true
			} else {
				handled = true
				tc.Log.WithField("error", failure.Error()).Warn("Task failure handled by error handler")
			}
		} else {
			taskErr = failure
		}
	}

	if finally := d.Finally(); finally != nil {
		if ferr := safeCall("finally handler", func() error { return finally(ctx, tc) }); ferr != nil {
			taskErr = errors.Join(taskErr, ferr)
		}
	}
	if hooked {
		if herr := r.taskHook(ctx, d, errors.Join(failure, taskErr), false); herr != nil {
			taskErr = errors.Join(taskErr, herr)
		}
	}

	entry.Duration = time.Since(start)
	entry.Handled = handled

	switch {
	case taskErr != nil:
		entry.Status = report.StatusFailed
		entry.Error = taskErr
		logger.User.Errorf("Task failed: %s - %v", d.Name(), taskErr)
	case handled:
		entry.Status = report.StatusExecuted
		if r.engine.config.ReportHandledAsFailed {
			entry.Status = report.StatusFailed
		}
		entry.Error = failure
		logger.User.Warnf("Task %s failed but the error was handled: %v", d.Name(), failure)
	case !d.HasActions():
		entry.Status = report.StatusDelegated
		logger.User.Infof("Task delegated: %s", d.Name())
	default:
		entry.Status = report.StatusExecuted
		logger.User.Successf("Task completed: %s (%s)", d.Name(), entry.Duration.Round(time.Millisecond))
	}

	tc.Log.WithFields(logrus.Fields{
		"status":   string(entry.Status),
		"duration": entry.Duration.String(),
	}).Debug("Task finished")
	endSpan(span, entry.Status, entry.Error)

	if taskErr == nil {
		return entry, nil
	}
	if d.ContinueOnError() && !handlerFailed {
		logger.User.Warnf("Continuing after failure of %s", d.Name())
		return entry, nil
	}
	return entry, bakeerrors.NewActionFailedError(d.Name(), taskErr)
}

// evaluateCriteria returns the skip reason of the first criterion that is
// not met. A criterion that errors is reported as a failure instead.
func (r *run) evaluateCriteria(ctx context.Context, d *taskmanager.Descriptor, tc *taskmanager.TaskContext) (string, error) {
	for i, c := range d.Criteria() {
		var ok bool
		err := safeCall("criterion", func() error {
			var perr error
			ok, perr = c.Predicate(ctx, tc)
			return perr
		})
		if err != nil {
			return "", fmt.Errorf("evaluating criterion %d: %w", i+1, err)
		}
		if !ok {
			if c.Message != "" {
				return c.Message, nil
			}
			return fmt.Sprintf("criterion %d not met", i+1), nil
		}
	}
	return "", nil
}

// taskHook invokes TaskSetup (before) or TaskTeardown (after) if installed.
func (r *run) taskHook(ctx context.Context, d *taskmanager.Descriptor, taskErr error, before bool) error {
	hooks := r.engine.taskLifetime
	if hooks == nil {
		return nil
	}
	info := &TaskInfo{RunID: r.id, Task: d.Name(), Err: taskErr}
	if before {
		return safeCall("task setup", func() error { return hooks.TaskSetup(ctx, info) })
	}
	return safeCall("task teardown", func() error { return hooks.TaskTeardown(ctx, info) })
}

func (r *run) taskSkipped(ctx context.Context, d *taskmanager.Descriptor, reason string) {
	obs, ok := r.engine.taskLifetime.(TaskSkipObserver)
	if !ok {
		return
	}
	info := &TaskInfo{RunID: r.id, Task: d.Name(), SkipReason: reason}
	if err := safeCall("task skipped", func() error { obs.TaskSkipped(ctx, info); return nil }); err != nil {
		logger.Op.WithTask(d.Name(), r.id).WithError(err).Warn("Task skip hook failed")
	}
}

// invokeActions runs the task's actions in order. Without DeferOnError the
// first failure stops the task; with it every action runs and all failures
// are joined.
func invokeActions(ctx context.Context, d *taskmanager.Descriptor, tc *taskmanager.TaskContext) error {
	var errs []error
	for i, action := range d.Actions() {
		err := safeCall("action", func() error { return action(ctx, tc) })
		if err == nil {
			continue
		}
		if !d.DeferOnError() {
			return err
		}
		tc.Log.WithField("action", i+1).Warnf("Action failed, deferring error: %v", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// safeCall converts a panic in host code into an error.
func safeCall(what string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panicked: %v", what, p)
		}
	}()
	return fn()
}
