package main

import (
	"fmt"
	"os"

	"github.com/mementolab/recall/internal/cli"
	"github.com/mementolab/recall/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "recall",
		Short: "Recall CLI - Embedding-backed knowledge store",
		Long: `Recall CLI stores and retrieves knowledge through the recall daemon.

Environment variables:
  RECALL_SERVER_URL   Server base URL (default: http://localhost:8080)
  RECALL_API_TOKEN    Bearer token, only needed when the server has auth enabled`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "Bearer token (overrides env and config)")
	rootCmd.PersistentFlags().String("server-url", "", "Server base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.ResetCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.CleanupCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
