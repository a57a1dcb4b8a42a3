// Package cli provides the command-line interface for creative-int.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/version"
)

var (
	// Global flags
	baseDir string
	verbose bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "creative-int",
		Short: "Creative inventory and upload tool",
		Long: `creative-int ` + version.Version + ` - Built: ` + version.BuildTime + `
Ingests creative media assets into a tracked inventory and uploads them
to the ad platform's media library.

Typical workflow:
  creative-int process            Normalize files from source_files/
  creative-int upload             Simulate an upload run (dry run is the default)
  creative-int upload --live      Submit the pending files for real
  creative-int status             Show inventory and upload state`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultLogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&baseDir, "base", "b", ".", "Workspace base directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// AddCommands registers all subcommands on the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newStatusCmd())
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	// Ctrl+C cancels the run; in-flight batch work finishes before exit.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// loadWorkspace resolves the base directory into config and paths, creating
// the tracking directories on the way.
func loadWorkspace() (*config.Config, *config.Paths, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, nil, err
	}
	cfg.Verbose = verbose

	paths := config.NewPaths(baseDir)
	if err := paths.EnsureDirs(); err != nil {
		return nil, nil, fmt.Errorf("failed to prepare workspace directories: %w", err)
	}
	return cfg, paths, nil
}
