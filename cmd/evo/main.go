// Package main implements the evo CLI: the Evolver's daemon process
// (run) and a thin HTTP client against its dashboard control surface
// (status/pause/resume/once), following the teacher's cmd/nerd/main.go
// convention of a single cobra root command with persistent flags and
// a zap-backed logger initialized in PersistentPreRunE.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose      bool
	workspace    string
	configPath   string
	dashboardAddr string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "evo",
	Short: "Evo - a self-modifying evolutionary loop",
	Long: `evo runs a small, safety-gated evolutionary loop over a fixed set
of evolvable functions: it benchmarks a target, proposes a rewrite via
an LLM, validates the candidate through a five-gate safety pipeline,
applies it behind a hot-reloaded plugin, and keeps or rolls back the
change based on measured fitness.

Run without arguments to start the daemon (the run subcommand).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDaemon,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace root (contains evolvable/ and evo.yaml)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "evo.yaml", "Path to config file, relative to workspace")
	rootCmd.PersistentFlags().StringVar(&dashboardAddr, "addr", "", "Dashboard address for status/pause/resume/once (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&httpTimeout, "http-timeout", 10*time.Second, "Timeout for control-surface HTTP requests")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(onceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
