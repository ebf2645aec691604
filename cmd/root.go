package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile   string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "coastwatchd",
	Short: "Coastal threat monitoring daemon",
	Long: `coastwatchd ingests periodic coastal sensor readings (sea level, wave
height, wind speed, water quality, temperature), stores them in SQLite or
PostgreSQL, classifies each reading's threat level with a learned anomaly
detector, and exposes a REST API for submitting readings, querying history,
retraining the detector, and asking the status chatbot.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (text or json)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
