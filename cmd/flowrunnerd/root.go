package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowrunnerd",
	Short: "FlowRunner - headless HTTP load-generation engine",
	Long: `flowrunnerd runs the FlowRunner engine behind a small HTTP control API:
health, start, stop, status, and metrics endpoints backed by the engine's
Start/Stop/Status/Snapshot surface.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}
