package report

import (
	"fmt"
	"strings"
	"time"
)

// RenderTable renders the report as a table of task, category, status,
// duration and reason, followed by totals.
func RenderTable(r *Report) string {
	table := newTableFormatter("Task", "Category", "Status", "Duration", "Reason")
	for e := range r.All() {
		table.addRow(e.Task, string(e.Category), statusLabel(e), formatDuration(e.Duration), reason(e))
	}

	var sb strings.Builder
	sb.WriteString(table.String())
	sb.WriteString(fmt.Sprintf("Executed: %d  Skipped: %d  Failed: %d  Delegated: %d  Total: %s\n",
		r.Count(StatusExecuted),
		r.Count(StatusSkipped),
		r.Count(StatusFailed),
		r.Count(StatusDelegated),
		formatDuration(r.TotalDuration())))
	return sb.String()
}

func statusLabel(e Entry) string {
	if e.Handled {
		return string(e.Status) + " (handled)"
	}
	return string(e.Status)
}

func reason(e Entry) string {
	switch {
	case e.SkipReason != "":
		return e.SkipReason
	case e.Error != nil:
		msg := e.Error.Error()
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		return msg
	default:
		return ""
	}
}

// formatDuration renders sub-second values in milliseconds and larger ones
// as hh:mm:ss.fff.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := d.Milliseconds() % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
