package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/engine"
	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/taskfile"
	"github.com/maxkimambo/bake/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the task file for errors without running anything",
	Long: `Validate loads the task file, checks task names, references and commands,
and then builds the full dependency graph to detect cycles.`,
	Args: cobra.NoArgs,
	RunE: validateTaskFile,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateTaskFile(cmd *cobra.Command, args []string) error {
	path, err := resolveTaskFile()
	if err != nil {
		return err
	}
	file, err := taskfile.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res := validation.ValidateFile(file)
	for _, issue := range res.Issues {
		fmt.Fprintln(out, issue.String())
	}
	if res.HasErrors() {
		return fmt.Errorf("%s has %d error(s)", path, len(res.Errors()))
	}

	e := engine.New(engine.DefaultConfig())
	if err := file.Register(e, nil); err != nil {
		return err
	}
	var all []string
	for d := range e.Registry().Snapshot().All() {
		all = append(all, d.Name())
	}
	if len(all) > 0 {
		if _, _, err := e.Plan(all, engine.RunOptions{}); err != nil {
			fmt.Fprintln(out, bakeerrors.DisplayErrorSummary(err))
			return err
		}
	}

	logger.User.Successf("%s is valid (%d tasks)", path, len(all))
	return nil
}
