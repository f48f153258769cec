package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "locus-fsm",
	Short: "locus-fsm drives a bot with a behavior state machine",
	Long: `locus-fsm runs the follow-entity state machine against a simulated world
and optionally exposes its status and Prometheus metrics over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs/config.yaml", "Path to the YAML config file")
}
