package ui

import (
	"strings"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/report"
)

// RunSummary frames the outcome of a run for the targets.
func RunSummary(targets []string, rep *report.Report, runErr error, width int) string {
	kind, title := KindSuccess, "Build succeeded"
	switch {
	case runErr != nil:
		kind, title = KindError, "Build failed"
	case rep != nil && rep.HasFailures():
		kind, title = KindWarning, "Build succeeded with handled failures"
	}

	box := NewBox(kind, title, width).Line("Targets: %s", strings.Join(targets, ", "))
	if rep != nil {
		box.Line("Executed %d, skipped %d, failed %d, delegated %d in %s",
			rep.Count(report.StatusExecuted),
			rep.Count(report.StatusSkipped),
			rep.Count(report.StatusFailed),
			rep.Count(report.StatusDelegated),
			rep.TotalDuration().Round(1e6))
		for e := range rep.All() {
			if e.Status == report.StatusFailed {
				box.Bullet(e.Task + " failed")
			}
		}
	}
	if runErr != nil {
		box.Line("%s", bakeerrors.DisplayErrorSummary(runErr))
	}
	return box.Render()
}
