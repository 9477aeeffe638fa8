package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/bake/internal/dag"
	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/logger"
)

var (
	graphFormat    string
	graphOutput    string
	graphExclusive bool
)

var graphCmd = &cobra.Command{
	Use:   "graph [TARGET...]",
	Short: "Show the execution plan of targets as text, DOT or JSON",
	Long: `Graph resolves the targets exactly as run would and prints the resulting plan
without executing anything. With no targets, every task is included.

EXAMPLES:
bake graph Package
bake graph Package --format dot --output plan.dot
`,
	RunE: showGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "text", "Output format: text, dot or json")
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write the graph to this file instead of stdout")
	graphCmd.Flags().BoolVar(&graphExclusive, "exclusive", false, "Plan only the named targets, without their dependencies")
}

func showGraph(cmd *cobra.Command, targets []string) error {
	path, err := resolveTaskFile()
	if err != nil {
		return err
	}
	e, _, err := loadEngine(path, engineSetup{})
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		for d := range e.Registry().Snapshot().All() {
			targets = append(targets, d.Name())
		}
	}

	g, order, err := e.Plan(targets, engine.RunOptions{Exclusive: graphExclusive})
	if err != nil {
		return err
	}
	viz := dag.NewVisualization(g, order)

	if graphOutput != "" {
		if err := viz.ExportToFile(graphOutput, graphFormat); err != nil {
			return err
		}
		logger.User.Successf("Graph written to %s", graphOutput)
		return nil
	}

	out, err := viz.Render(graphFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
