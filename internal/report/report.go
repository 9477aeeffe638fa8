package report

import (
	"iter"
	"time"
)

// Status is the outcome of one report entry.
type Status string

const (
	StatusExecuted  Status = "Executed"
	StatusSkipped   Status = "Skipped"
	StatusFailed    Status = "Failed"
	StatusDelegated Status = "Delegated"
)

// Category distinguishes task entries from run lifecycle entries.
type Category string

const (
	CategoryTask     Category = "Task"
	CategorySetup    Category = "Setup"
	CategoryTeardown Category = "Teardown"
)

// Entry is the recorded outcome of a task or lifecycle hook.
type Entry struct {
	Task       string
	Category   Category
	Status     Status
	Duration   time.Duration
	SkipReason string
	Error      error
	// Handled is set when a failure was recovered by the task's error handler.
	Handled bool
}

// Report is the ordered outcome log of a run. It is read-only.
type Report struct {
	entries []Entry
}

// Entries returns a copy of all entries in recording order.
func (r *Report) Entries() []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries...)
}

// All yields entries in recording order.
func (r *Report) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if r == nil {
			return
		}
		for _, e := range r.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Tasks yields only task entries.
func (r *Report) Tasks() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range r.All() {
			if e.Category == CategoryTask && !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries, lifecycle entries included.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// IsEmpty reports whether no entries were recorded, lifecycle entries
// included. Use Tasks to ask whether any task was reached.
func (r *Report) IsEmpty() bool {
	return r.Len() == 0
}

// Find returns the task entry for name.
func (r *Report) Find(name string) (Entry, bool) {
	for e := range r.Tasks() {
		if e.Task == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Count returns the number of task entries with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for e := range r.Tasks() {
		if e.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any entry, lifecycle included, failed.
func (r *Report) HasFailures() bool {
	for e := range r.All() {
		if e.Status == StatusFailed {
			return true
		}
	}
	return false
}

// TotalDuration sums the durations of all entries.
func (r *Report) TotalDuration() time.Duration {
	var total time.Duration
	for e := range r.All() {
		total += e.Duration
	}
	return total
}

// Recorder accumulates entries during a run. It has a single writer and is
// not safe for concurrent use.
type Recorder struct {
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends an entry.
func (rec *Recorder) Record(e Entry) {
	rec.entries = append(rec.entries, e)
}

// Report returns the entries recorded so far as a Report. Later calls to
// Record do not affect it.
func (rec *Recorder) Report() *Report {
	return &Report{entries: append([]Entry(nil), rec.entries...)}
}
