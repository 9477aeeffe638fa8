package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks declared in the task file",
	Args:  cobra.NoArgs,
	RunE:  listTasks,
}

func listTasks(cmd *cobra.Command, args []string) error {
	path, err := resolveTaskFile()
	if err != nil {
		return err
	}
	e, _, err := loadEngine(path, engineSetup{})
	if err != nil {
		return err
	}

	snap := e.Registry().Snapshot()
	width := 0
	for d := range snap.All() {
		if n := utf8.RuneCountInString(d.Name()); n > width {
			width = n
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tasks in %s:\n", path)
	for d := range snap.All() {
		line := fmt.Sprintf("  %s%s", d.Name(), strings.Repeat(" ", width-utf8.RuneCountInString(d.Name())))
		if desc := d.Description(); desc != "" {
			line += "  " + desc
		}
		if deps := d.Dependencies(); len(deps) > 0 {
			line += fmt.Sprintf("  (depends on: %s)", strings.Join(deps, ", "))
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}
