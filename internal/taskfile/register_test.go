package taskfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/report"
)

// trace appends the running task name to a file in dir.
const trace = `echo "$BAKE_TASK" >> trace.txt`

func readTrace(t *testing.T, dir string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "trace.txt"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Fields(string(b))
}

func newEngine(t *testing.T, f *File, runner *Runner) *engine.Engine {
	t.Helper()
	var opts []engine.Option
	if lt := f.Lifetime(runner); lt != nil {
		opts = append(opts, engine.WithLifetime(lt))
	}
	e := engine.New(engine.DefaultConfig(), opts...)
	require.NoError(t, f.Register(e, runner))
	return e
}

func TestRegisterRunsCommandsInDependencyOrder(t *testing.T) {
	dir := t.TempDir()
	f := &File{Tasks: []*TaskSpec{
		{Name: "Package", DependsOn: []string{"Test"}, Commands: []string{trace}, Dir: dir},
		{Name: "Build", Commands: []string{trace, `echo built > build.out`}, Dir: dir},
		{Name: "Test", DependsOn: []string{"Build"}, Commands: []string{trace}, Dir: dir},
	}}

	var out bytes.Buffer
	e := newEngine(t, f, &Runner{Stdout: &out, Stderr: &out})
	rep, err := e.Run(context.Background(), "Package", engine.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Build", "Test", "Package"}, readTrace(t, dir))
	assert.FileExists(t, filepath.Join(dir, "build.out"))
	assert.Equal(t, 3, rep.Count(report.StatusExecuted))
}

func TestRegisterCriteriaSkipsTask(t *testing.T) {
	dir := t.TempDir()
	f, err := ParseHCL("bake.hcl", []byte(`
task "Docs" {
  criteria    = getenv("BAKE_DOCS") == "1"
  skip_reason = "docs disabled"
  commands    = ["echo docs >> trace.txt"]
}
`))
	require.NoError(t, err)
	f.Tasks[0].Dir = dir

	e := newEngine(t, f, &Runner{Stdout: &bytes.Buffer{}})
	rep, err := e.Run(context.Background(), "Docs", engine.RunOptions{})
	require.NoError(t, err)

	entry, ok := rep.Find("Docs")
	require.True(t, ok)
	assert.Equal(t, report.StatusSkipped, entry.Status)
	assert.Equal(t, "docs disabled", entry.SkipReason)
	assert.Empty(t, readTrace(t, dir))
}

func TestRegisterFailureHandling(t *testing.T) {
	dir := t.TempDir()
	f := &File{Tasks: []*TaskSpec{
		{
			Name:     "Flaky",
			Commands: []string{"exit 3"},
			OnError:  `echo "$BAKE_ERROR" > error.txt`,
			Finally:  `echo done > finally.txt`,
			Dir:      dir,
		},
		{Name: "After", DependsOn: []string{"Flaky"}, Commands: []string{trace}, Dir: dir},
	}}

	e := newEngine(t, f, &Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	rep, err := e.Run(context.Background(), "After", engine.RunOptions{})
	require.NoError(t, err)

	entry, ok := rep.Find("Flaky")
	require.True(t, ok)
	assert.True(t, entry.Handled)

	msg, err := os.ReadFile(filepath.Join(dir, "error.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(msg), "exit status 3")
	assert.FileExists(t, filepath.Join(dir, "finally.txt"))
	assert.Equal(t, []string{"After"}, readTrace(t, dir))
}

func TestRegisterUnhandledFailureAborts(t *testing.T) {
	dir := t.TempDir()
	f := &File{Tasks: []*TaskSpec{
		{Name: "Broken", Commands: []string{"exit 1", trace}, Dir: dir},
		{Name: "After", DependsOn: []string{"Broken"}, Commands: []string{trace}, Dir: dir},
	}}

	e := newEngine(t, f, &Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	rep, err := e.Run(context.Background(), "After", engine.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `command "exit 1" failed`)
	assert.Empty(t, readTrace(t, dir))

	entry, ok := rep.Find("Broken")
	require.True(t, ok)
	assert.Equal(t, report.StatusFailed, entry.Status)
	_, ok = rep.Find("After")
	assert.False(t, ok)
}

func TestRegisterTaskEnvironment(t *testing.T) {
	dir := t.TempDir()
	f := &File{Tasks: []*TaskSpec{{
		Name:     "Env",
		Commands: []string{`echo "$GREETING $BAKE_TASK" > env.txt`},
		Env:      map[string]string{"GREETING": "hello"},
		Dir:      dir,
	}}}

	e := newEngine(t, f, &Runner{Stdout: &bytes.Buffer{}})
	_, err := e.Run(context.Background(), "Env", engine.RunOptions{})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello Env\n", string(b))
}

func TestRegisterDuplicateName(t *testing.T) {
	f := &File{Tasks: []*TaskSpec{{Name: "Build"}, {Name: "build"}}}
	e := engine.New(engine.DefaultConfig())
	require.Error(t, f.Register(e, nil))
}

func TestLifetimeHooks(t *testing.T) {
	assert.Nil(t, (&File{}).Lifetime(nil))

	dir := t.TempDir()
	f := &File{
		Setup:    &Hook{Command: `echo setup >> trace.txt`, Dir: dir},
		Teardown: &Hook{Command: `echo "teardown-$BAKE_STATUS" >> trace.txt`, Dir: dir},
		Tasks:    []*TaskSpec{{Name: "Build", Commands: []string{trace}, Dir: dir}},
	}

	e := newEngine(t, f, &Runner{Stdout: &bytes.Buffer{}})
	rep, err := e.Run(context.Background(), "Build", engine.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"setup", "Build", "teardown-success"}, readTrace(t, dir))
	assert.False(t, rep.HasFailures())
}

func TestRunnerOutputAndExitStatus(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Shell: "sh", Stdout: &out}
	require.NoError(t, r.Run(context.Background(), Exec{Command: "echo hi"}))
	assert.Equal(t, "hi\n", out.String())

	err := r.Run(context.Background(), Exec{Command: "exit 2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 2")
}

func TestRunnerStreamsToLogWithoutWriters(t *testing.T) {
	log, hook := logtest.NewNullLogger()

	r := &Runner{}
	require.NoError(t, r.Run(context.Background(), Exec{
		Command: "echo from-stdout; echo from-stderr 1>&2",
		Log:     log.WithField("task", "Build"),
	}))

	levels := func() map[string]logrus.Level {
		got := make(map[string]logrus.Level)
		for _, e := range hook.AllEntries() {
			got[e.Message] = e.Level
		}
		return got
	}
	assert.Eventually(t, func() bool {
		got := levels()
		return got["from-stdout"] == logrus.InfoLevel && got["from-stderr"] == logrus.WarnLevel
	}, time.Second, 10*time.Millisecond)
}

func TestRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DefaultRunner().Run(ctx, Exec{Command: "sleep 5"})
	require.Error(t, err)
}
