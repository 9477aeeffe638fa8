package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/logger"
)

var (
	taskFile string
	debug    bool
	verbose  bool
	jsonLogs bool
	quiet    bool
	version  = "v0.1.0"

	rootCmd = &cobra.Command{
		Use:   "bake",
		Short: "Run tasks from a task file in dependency order",
		Long: `bake runs the tasks declared in an HCL or YAML task file, resolving their
dependencies into a deterministic order and reporting the outcome of every task.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWithWriters(verbose || debug, jsonLogs, quiet, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if debug {
				logger.Op.Debug("Debug logging enabled")
			}
		},
	}
)

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(rootCmd.ErrOrStderr(), bakeerrors.FormatForCLI(err))
	}
	return err
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&taskFile, "file", "f", "", "Task file to load (default: bake.hcl, bake.yaml or bake.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(graphCmd)
}
