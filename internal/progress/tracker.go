// Package progress reports how far a run has got, one line per task.
package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/logger"
)

// Info is a point-in-time view of a run's progress.
type Info struct {
	Total     int
	Completed int
	Failed    int
	Skipped   int
	Running   []string
	Elapsed   time.Duration
	ETA       time.Duration
}

// Tracker counts task starts and finishes. It implements
// engine.TaskLifetime and is safe for use by parallel runs. Skipped tasks
// count as finished.
type Tracker struct {
	mu        sync.Mutex
	now       func() time.Time
	startTime time.Time
	total     int
	completed int
	failed    int
	skipped   int
	running   []string
	report    func(string)
}

var (
	_ engine.TaskLifetime     = (*Tracker)(nil)
	_ engine.TaskSkipObserver = (*Tracker)(nil)
)

// NewTracker creates a tracker that writes progress lines to the user log.
func NewTracker() *Tracker {
	return &Tracker{
		now:    time.Now,
		report: func(line string) { logger.User.Info(line) },
	}
}

// Start resets the tracker for a run of total planned tasks.
func (t *Tracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = t.now()
	t.total = total
	t.completed, t.failed, t.skipped = 0, 0, 0
	t.running = nil
}

// TaskSetup records that a task started.
func (t *Tracker) TaskSetup(_ context.Context, info *engine.TaskInfo) error {
	t.mu.Lock()
	t.running = append(t.running, info.Task)
	line := fmt.Sprintf("[%d/%d] %s", t.completed+len(t.running), t.total, info.Task)
	t.mu.Unlock()

	t.report(line)
	return nil
}

// TaskTeardown records that a task finished, failed or not.
func (t *Tracker) TaskTeardown(_ context.Context, info *engine.TaskInfo) error {
	t.mu.Lock()
	for i, name := range t.running {
		if name == info.Task {
			t.running = append(t.running[:i], t.running[i+1:]...)
			break
		}
	}
	t.completed++
	if info.Err != nil {
		t.failed++
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.report(Format(snapshot))
	return nil
}

// TaskSkipped records a task whose criteria were not met.
func (t *Tracker) TaskSkipped(_ context.Context, info *engine.TaskInfo) {
	t.mu.Lock()
	t.completed++
	t.skipped++
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.report(Format(snapshot))
}

// Snapshot returns the current progress.
func (t *Tracker) Snapshot() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Info {
	elapsed := t.now().Sub(t.startTime)
	return Info{
		Total:     t.total,
		Completed: t.completed,
		Failed:    t.failed,
		Skipped:   t.skipped,
		Running:   append([]string(nil), t.running...),
		Elapsed:   elapsed,
		ETA:       CalculateETA(t.completed, t.total, elapsed),
	}
}

// Format renders progress as a single line.
func Format(info Info) string {
	percentage := 0.0
	if info.Total > 0 {
		percentage = float64(info.Completed) / float64(info.Total) * 100
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Progress: %d/%d tasks finished (%.1f%%)", info.Completed, info.Total, percentage))
	if info.Failed > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", info.Failed))
	}
	if info.Skipped > 0 {
		sb.WriteString(fmt.Sprintf(", %d skipped", info.Skipped))
	}
	sb.WriteString(fmt.Sprintf(" | Elapsed: %s", FormatDuration(info.Elapsed)))
	if info.ETA > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(info.ETA)))
	}
	if len(info.Running) > 0 {
		sb.WriteString(fmt.Sprintf(" | Running: %s", strings.Join(info.Running, ", ")))
	}
	return sb.String()
}

// CalculateETA estimates time remaining from the average task duration so far.
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}
	perTask := elapsed / time.Duration(completed)
	return perTask * time.Duration(total-completed)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
