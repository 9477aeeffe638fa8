package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecorder() *Recorder {
	rec := NewRecorder()
	rec.Record(Entry{Task: "Setup", Category: CategorySetup, Status: StatusExecuted, Duration: 5 * time.Millisecond})
	rec.Record(Entry{Task: "Build", Category: CategoryTask, Status: StatusExecuted, Duration: 1500 * time.Millisecond})
	rec.Record(Entry{Task: "Lint", Category: CategoryTask, Status: StatusSkipped, SkipReason: "not on CI"})
	rec.Record(Entry{Task: "Test", Category: CategoryTask, Status: StatusFailed, Error: errors.New("3 tests failed"), Duration: 20 * time.Millisecond})
	rec.Record(Entry{Task: "Default", Category: CategoryTask, Status: StatusDelegated})
	return rec
}

func TestReport_Queries(t *testing.T) {
	r := sampleRecorder().Report()

	assert.Equal(t, 5, r.Len())
	assert.False(t, r.IsEmpty())
	assert.Equal(t, 1, r.Count(StatusExecuted), "setup entries are not counted as tasks")
	assert.Equal(t, 1, r.Count(StatusSkipped))
	assert.Equal(t, 1, r.Count(StatusFailed))
	assert.Equal(t, 1, r.Count(StatusDelegated))
	assert.True(t, r.HasFailures())
	assert.Equal(t, 1525*time.Millisecond, r.TotalDuration())

	e, ok := r.Find("Lint")
	require.True(t, ok)
	assert.Equal(t, "not on CI", e.SkipReason)

	_, ok = r.Find("Setup")
	assert.False(t, ok, "lifecycle entries are not tasks")

	var tasks []string
	for e := range r.Tasks() {
		tasks = append(tasks, e.Task)
	}
	assert.Equal(t, []string{"Build", "Lint", "Test", "Default"}, tasks)
}

func TestReport_IsEmpty(t *testing.T) {
	var nilReport *Report
	assert.True(t, nilReport.IsEmpty())
	assert.Zero(t, nilReport.Len())

	rec := NewRecorder()
	assert.True(t, rec.Report().IsEmpty())

	rec.Record(Entry{Task: "Setup", Category: CategorySetup, Status: StatusFailed})
	rec.Record(Entry{Task: "Teardown", Category: CategoryTeardown, Status: StatusExecuted})
	r := rec.Report()
	assert.False(t, r.IsEmpty(), "lifecycle entries count")
	assert.Equal(t, 2, r.Len())
	for e := range r.Tasks() {
		t.Errorf("unexpected task entry %q", e.Task)
	}
}

func TestRecorder_ReportIsDetached(t *testing.T) {
	rec := sampleRecorder()
	r := rec.Report()

	rec.Record(Entry{Task: "Teardown", Category: CategoryTeardown, Status: StatusExecuted})
	assert.Equal(t, 5, r.Len())

	entries := r.Entries()
	entries[0].Task = "Mutated"
	assert.Equal(t, "Setup", r.Entries()[0].Task)
}

func TestRenderTable(t *testing.T) {
	rec := sampleRecorder()
	rec.Record(Entry{Task: "Publish", Category: CategoryTask, Status: StatusFailed, Handled: true, Error: errors.New("upload refused\nretry later")})
	out := RenderTable(rec.Report())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "┌"))
	assert.Contains(t, lines[1], "Task")
	assert.Contains(t, out, "│ Build   │ Task     │ Executed")
	assert.Contains(t, out, "00:00:01.500")
	assert.Contains(t, out, "not on CI")
	assert.Contains(t, out, "3 tests failed")
	assert.Contains(t, out, "Failed (handled)")
	assert.Contains(t, out, "upload refused")
	assert.NotContains(t, out, "retry later")
	assert.Equal(t, "Executed: 1  Skipped: 1  Failed: 2  Delegated: 1  Total: 00:00:01.525", lines[len(lines)-1])
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{time.Second, "00:00:01.000"},
		{61*time.Minute + 2*time.Second + 3*time.Millisecond, "01:01:02.003"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
