package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "icarus-bridge",
	Short: "MCP-to-canister bridge",
	Long: `icarus-bridge exposes a single Internet Computer canister's tools
over the Model Context Protocol, speaking JSON-RPC on stdin/stdout to
whatever MCP client launched it.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toolsCmd)

	statusCmd.Flags().StringVarP(&configPath, "config", "c", "icarus-bridge.yaml", "path to the bridge config file")
	toolsCmd.Flags().StringVarP(&configPath, "config", "c", "icarus-bridge.yaml", "path to the bridge config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
