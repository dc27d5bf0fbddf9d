package main

import (
	"context"
	"fmt"

	"github.com/icarus-mcp/icarus-bridge/internal/config"
	"github.com/icarus-mcp/icarus-bridge/internal/console"
	"github.com/icarus-mcp/icarus-bridge/pkg/canistersdk"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Connect to the configured canister and list its tool catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTools(cmd.Context())
	},
}

func runTools(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	b, err := canistersdk.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("connecting to canister: %w", err)
	}

	if err := b.Client.RefreshTools(ctx); err != nil {
		return fmt.Errorf("fetching tool catalog: %w", err)
	}

	descriptors := b.Client.Tools()
	summaries := make([]console.ToolSummary, 0, len(descriptors))
	for _, d := range descriptors {
		summaries = append(summaries, console.ToolSummary{
			Name:        d.Name,
			Style:       string(d.Style),
			ParamCount:  len(d.Params),
			Description: d.Description,
		})
	}

	console.New().Tools(summaries)
	return nil
}
