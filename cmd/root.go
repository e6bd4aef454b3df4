package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string // Log verbosity level
	verbose  bool   // Log per-segment progress
	debug    bool   // Pass the debug flag to the advance function
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "endgame-sim",
	Short: "Regime-scheduled time-stepped simulation runner",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log regime installs and step progress")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Pass the debug flag to the model's advance function")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
