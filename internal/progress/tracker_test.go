package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestTracker(step time.Duration) (*Tracker, *[]string) {
	var lines []string
	clock := &fakeClock{t: time.Unix(0, 0), step: step}
	return &Tracker{
		now:    clock.now,
		report: func(line string) { lines = append(lines, line) },
	}, &lines
}

func TestTrackerReportsEachTask(t *testing.T) {
	tr, lines := newTestTracker(10 * time.Second)
	tr.Start(4)
	ctx := context.Background()

	require.NoError(t, tr.TaskSetup(ctx, &engine.TaskInfo{Task: "Build"}))
	require.NoError(t, tr.TaskTeardown(ctx, &engine.TaskInfo{Task: "Build"}))
	require.NoError(t, tr.TaskSetup(ctx, &engine.TaskInfo{Task: "Test"}))
	require.NoError(t, tr.TaskTeardown(ctx, &engine.TaskInfo{Task: "Test", Err: errors.New("boom")}))

	assert.Equal(t, []string{
		"[1/4] Build",
		"Progress: 1/4 tasks finished (25.0%) | Elapsed: 10s | ETA: 30s",
		"[2/4] Test",
		"Progress: 2/4 tasks finished (50.0%), 1 failed | Elapsed: 20s | ETA: 20s",
	}, *lines)
}

func TestTrackerTracksRunningTasks(t *testing.T) {
	tr, _ := newTestTracker(time.Second)
	tr.Start(3)
	ctx := context.Background()

	_ = tr.TaskSetup(ctx, &engine.TaskInfo{Task: "Lint"})
	_ = tr.TaskSetup(ctx, &engine.TaskInfo{Task: "Docs"})
	assert.Equal(t, []string{"Lint", "Docs"}, tr.Snapshot().Running)

	_ = tr.TaskTeardown(ctx, &engine.TaskInfo{Task: "Lint"})
	info := tr.Snapshot()
	assert.Equal(t, []string{"Docs"}, info.Running)
	assert.Equal(t, 1, info.Completed)

	tr.Start(2)
	assert.Empty(t, tr.Snapshot().Running)
	assert.Zero(t, tr.Snapshot().Completed)
}

func TestTrackerAsEngineTaskLifetime(t *testing.T) {
	tr, lines := newTestTracker(time.Millisecond)
	e := engine.New(engine.DefaultConfig(), engine.WithTaskLifetime(tr))

	noop := func(context.Context, *taskmanager.TaskContext) error { return nil }
	build, err := e.RegisterTask("Build")
	require.NoError(t, err)
	build.Does(noop)
	test, err := e.RegisterTask("Test")
	require.NoError(t, err)
	test.DependsOn("Build").Does(noop)

	tr.Start(2)
	_, err = e.Run(context.Background(), "Test", engine.RunOptions{})
	require.NoError(t, err)

	require.Len(t, *lines, 4)
	assert.Equal(t, "[1/2] Build", (*lines)[0])
	assert.Contains(t, (*lines)[1], "Progress: 1/2 tasks finished (50.0%)")
	assert.Equal(t, "[2/2] Test", (*lines)[2])
	assert.Contains(t, (*lines)[3], "Progress: 2/2 tasks finished (100.0%)")
}

func TestTrackerCountsSkippedTasks(t *testing.T) {
	tr, lines := newTestTracker(time.Second)
	e := engine.New(engine.DefaultConfig(), engine.WithTaskLifetime(tr))

	noop := func(context.Context, *taskmanager.TaskContext) error { return nil }
	never := func(context.Context, *taskmanager.TaskContext) (bool, error) { return false, nil }
	build, err := e.RegisterTask("Build")
	require.NoError(t, err)
	build.Does(noop)
	docs, err := e.RegisterTask("Docs")
	require.NoError(t, err)
	docs.WithCriteria(never, "docs disabled").Does(noop)
	test, err := e.RegisterTask("Test")
	require.NoError(t, err)
	test.DependsOn("Build", "Docs").Does(noop)

	_, order, err := e.Plan([]string{"Test"}, engine.RunOptions{})
	require.NoError(t, err)
	tr.Start(len(order))
	_, err = e.Run(context.Background(), "Test", engine.RunOptions{})
	require.NoError(t, err)

	require.Len(t, *lines, 5)
	assert.Equal(t, "[1/3] Build", (*lines)[0])
	assert.Contains(t, (*lines)[2], "Progress: 2/3 tasks finished (66.7%), 1 skipped")
	assert.Equal(t, "[3/3] Test", (*lines)[3])
	assert.Contains(t, (*lines)[4], "Progress: 3/3 tasks finished (100.0%), 1 skipped")

	info := tr.Snapshot()
	assert.Equal(t, info.Total, info.Completed)
	assert.Equal(t, 1, info.Skipped)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Progress: 0/0 tasks finished (0.0%) | Elapsed: 0s", Format(Info{}))
	assert.Equal(t,
		"Progress: 1/3 tasks finished (33.3%) | Elapsed: 1m 5s | ETA: 2m 10s | Running: Pack",
		Format(Info{Total: 3, Completed: 1, Elapsed: 65 * time.Second, ETA: 130 * time.Second, Running: []string{"Pack"}}))
}

func TestCalculateETA(t *testing.T) {
	assert.Zero(t, CalculateETA(0, 5, time.Minute))
	assert.Zero(t, CalculateETA(5, 5, time.Minute))
	assert.Equal(t, 3*time.Minute, CalculateETA(2, 5, 2*time.Minute))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 1m", FormatDuration(61*time.Minute))
}
