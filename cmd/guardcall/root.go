package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guardcall",
	Short: "guardcall notifies stakeholders of worker safety alerts",
	Long: `guardcall receives safety alerts from helmet devices, notifies family and
co-workers by SMS, and escalates to a voice call if an alert is not
acknowledged within the configured grace period.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}
