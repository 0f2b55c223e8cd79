// Package cmd wires the sales assistant's subcommands: serve runs the HTTP
// API, seed loads the course catalog, index manages the semantic index, and
// version prints build information.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sales-assistant",
	Short: "MindDojo sales support chat backend",
	Long: `sales-assistant answers customer questions about the MindDojo course
catalog over a streaming HTTP API, grounding every answer in the seeded
catalog via semantic retrieval.

Run "sales-assistant seed" once to load the catalog, then
"sales-assistant serve" to start the API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
