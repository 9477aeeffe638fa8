package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/progress"
	"github.com/maxkimambo/bake/internal/report"
	"github.com/maxkimambo/bake/internal/taskfile"
	"github.com/maxkimambo/bake/internal/telemetry"
	"github.com/maxkimambo/bake/internal/ui"
	"github.com/maxkimambo/bake/internal/validation"
	"github.com/maxkimambo/bake/internal/watch"
)

var (
	runExclusive       bool
	runSkipDeps        bool
	runParallel        bool
	runMaxParallel     int
	runSkipUnresolved  bool
	runHandledAsFailed bool
	runMetricsFile     string
	runMetricsAddr     string
	runOTLPEndpoint    string
	runOTLPInsecure    bool
	runWatch           bool
	runWatchPaths      []string
	runDebounce        time.Duration
	runShell           string
	runProgress        bool
)

const maxParallelLimit = 256

var runCmd = &cobra.Command{
	Use:   "run TARGET [TARGET...]",
	Short: "Run one or more targets and everything they depend on",
	Long: `Run resolves the targets and their transitive dependencies into a single
execution order and runs each task once. Setup runs before the first task and
teardown after the last, even when a task fails.

EXAMPLES:
# Build and test using bake.hcl in the current directory
bake run Test

# Run only the named tasks, ignoring their dependencies
bake run Lint Test --exclusive

# Run independent tasks concurrently and export metrics for node_exporter
bake run Package --parallel --max-parallel 8 --metrics-file bake.prom

# Re-run whenever the task file or sources change
bake run Test --watch --watch-path ./src
`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateRunFlags,
	RunE:    runTargets,
}

func init() {
	runCmd.Flags().BoolVar(&runExclusive, "exclusive", false, "Run only the named targets, without their dependencies")
	runCmd.Flags().BoolVar(&runSkipDeps, "skip-dependencies", false, "Alias of --exclusive")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "Run independent tasks concurrently")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", engine.DefaultConfig().MaxParallelTasks, "Maximum tasks running at once with --parallel")
	runCmd.Flags().BoolVar(&runSkipUnresolved, "skip-unresolved", false, "Warn about, instead of rejecting, references to unknown tasks")
	runCmd.Flags().BoolVar(&runHandledAsFailed, "report-handled-as-failed", false, "Record failures recovered by on_error as failed")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file after each run")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics over HTTP on this address while bake runs")
	runCmd.Flags().StringVar(&runOTLPEndpoint, "otlp-endpoint", "", "Export traces to this OTLP/gRPC endpoint (host:port)")
	runCmd.Flags().BoolVar(&runOTLPInsecure, "otlp-insecure", false, "Connect to the OTLP endpoint without TLS")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Re-run the targets when watched files change")
	runCmd.Flags().StringArrayVar(&runWatchPaths, "watch-path", nil, "Additional file or directory to watch (repeatable)")
	runCmd.Flags().DurationVar(&runDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a watched change triggers a run")
	runCmd.Flags().StringVar(&runShell, "shell", "sh", "Shell used to run task commands")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "Print a progress line as each task starts and finishes")
}

func validateRunFlags(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateConcurrency(runMaxParallel, maxParallelLimit); err != nil {
		return bakeerrors.NewInvalidArgumentError("--max-parallel", "Parameter validation").
			WithContext("value", runMaxParallel).
			WithOriginalError(err).
			WithTroubleshooting(fmt.Sprintf("Use a value between 1 and %d", maxParallelLimit))
	}
	if runOTLPInsecure && runOTLPEndpoint == "" {
		return fmt.Errorf("--otlp-insecure requires --otlp-endpoint")
	}
	if !runWatch && len(runWatchPaths) > 0 {
		return fmt.Errorf("--watch-path requires --watch")
	}
	for i, target := range args {
		args[i] = strings.TrimSpace(target)
	}
	return nil
}

func runTargets(cmd *cobra.Command, targets []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path, err := resolveTaskFile()
	if err != nil {
		return err
	}

	tp, shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "bake",
		Endpoint:    runOTLPEndpoint,
		Insecure:    runOTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Op.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Failed to flush traces")
		}
	}()

	setup := engineSetup{
		config: &engine.Config{
			MaxParallelTasks:      runMaxParallel,
			ReportHandledAsFailed: runHandledAsFailed,
		},
		metrics: engine.NewMetrics(),
		tracer:  tp,
		runner:  &taskfile.Runner{Shell: runShell},
	}
	if runMetricsAddr != "" {
		srv, err := telemetry.StartMetricsServer(runMetricsAddr, setup.metrics.Registry())
		if err != nil {
			return err
		}
		logger.User.Infof("Serving metrics on http://%s/metrics", srv.Addr())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(stopCtx)
		}()
	}

	opts := engine.RunOptions{
		Exclusive:        runExclusive,
		SkipDependencies: runSkipDeps,
		Parallel:         runParallel,
		SkipUnresolved:   runSkipUnresolved,
	}

	once := func(ctx context.Context) error {
		return runOnce(ctx, cmd, path, targets, setup, opts)
	}

	if !runWatch {
		return once(ctx)
	}

	if err := once(ctx); err != nil {
		logger.User.Errorf("%s", bakeerrors.DisplayErrorSummary(err))
	}

	paths := append([]string{path}, runWatchPaths...)
	w, err := watch.New(paths, runDebounce, func(ctx context.Context, changed []string) error {
		names := make([]string, len(changed))
		for i, c := range changed {
			names[i] = filepath.Base(c)
		}
		logger.User.Infof("Change detected in %s, re-running %s", strings.Join(names, ", "), strings.Join(targets, ", "))
		err := once(ctx)
		if err != nil {
			logger.User.Errorf("%s", bakeerrors.DisplayErrorSummary(err))
		}
		return err
	})
	if err != nil {
		return err
	}
	logger.User.Infof("Watching %s for changes (Ctrl+C to stop)", strings.Join(paths, ", "))
	return w.Run(ctx)
}

// runOnce loads the task file afresh so edits are picked up between runs.
func runOnce(ctx context.Context, cmd *cobra.Command, path string, targets []string, s engineSetup, opts engine.RunOptions) error {
	var tracker *progress.Tracker
	if runProgress {
		tracker = progress.NewTracker()
		s.hooks = tracker
	}

	e, _, err := loadEngine(path, s)
	if err != nil {
		return err
	}

	if tracker != nil {
		// plan errors resurface from RunTargets
		if _, order, err := e.Plan(targets, opts); err == nil {
			tracker.Start(len(order))
		}
	}

	rep, runErr := e.RunTargets(ctx, targets, opts)
	if rep != nil && !quiet {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, report.RenderTable(rep))
		fmt.Fprint(out, ui.RunSummary(targets, rep, runErr, ui.Width(out)))
	}

	if runMetricsFile != "" {
		if err := s.metrics.WriteToTextfile(runMetricsFile); err != nil {
			logger.User.Warnf("Failed to write metrics to %s: %v", runMetricsFile, err)
		}
	}
	return runErr
}
