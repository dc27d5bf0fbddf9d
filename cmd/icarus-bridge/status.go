package main

import (
	"context"
	"fmt"

	"github.com/icarus-mcp/icarus-bridge/internal/config"
	"github.com/icarus-mcp/icarus-bridge/internal/console"
	"github.com/icarus-mcp/icarus-bridge/pkg/canistersdk"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect to the configured canister and print its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

func runStatus(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	b, err := canistersdk.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("connecting to canister: %w", err)
	}

	p := console.New()
	p.Status([]console.StatusField{
		{Field: "State", Value: b.Server.State()},
		{Field: "Canister", Value: cfg.CanisterID},
		{Field: "IC URL", Value: cfg.ICUrl},
		{Field: "Endpoint", Value: b.Client.Endpoint()},
	})
	return nil
}
