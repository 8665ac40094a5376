package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "events-cli",
	Short: "Command-line client for the events server",
	Long: `events-cli talks to the events server over its websocket endpoint.

Available commands:
  subscribe    Subscribe to a topic and stream its events
  fetch        Fetch an invoice by id
  create       Create a new invoice

Use "events-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "ws://localhost:8080/ws", "websocket URL of the events server")
}
