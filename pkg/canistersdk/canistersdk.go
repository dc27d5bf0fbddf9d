// Package canistersdk is the bridge's public facade: the small set of
// constructors an embedder (the cobra CLI in cmd/icarus-bridge, or a Go
// program that wants to run a bridge in-process) needs to assemble a
// running internal/bridge.Server from an internal/config.Config. It
// exists for the same reason the teacher keeps its internal packages
// behind thin pkg/ wrappers: internal/* stays free to change shape while
// this package's surface is what downstream code depends on.
package canistersdk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icarus-mcp/icarus-bridge/internal/bridge"
	"github.com/icarus-mcp/icarus-bridge/internal/canisterclient"
	"github.com/icarus-mcp/icarus-bridge/internal/config"
	"github.com/icarus-mcp/icarus-bridge/internal/httpoutcall"
	"github.com/icarus-mcp/icarus-bridge/internal/identity"
	"github.com/icarus-mcp/icarus-bridge/internal/pool"
)

// Bridge bundles the lifecycle Server together with the agent pool that
// constructed its canister client, so a caller can tear both down
// together.
type Bridge struct {
	Server *bridge.Server
	Pool   *pool.Pool
	Client *canisterclient.Client
}

// New resolves the identity named by cfg, builds an agent pool bound to
// it, constructs the canister client for cfg.CanisterID/cfg.ICUrl, and
// returns a Bridge whose Server is already past Connect and ready for
// Serve. A nil logger leaves the Server's default discard logger in
// place, matching the teacher's Gateway default.
func New(cfg *config.Config, logger *slog.Logger) (*Bridge, error) {
	id, err := resolveIdentity(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}

	outcallCfg := httpoutcall.Config{Timeout: cfg.Timeout}
	p := pool.New(canisterclient.NewFactory(id, outcallCfg))

	client, err := p.GetOrCreate(pool.Key{EndpointURL: cfg.ICUrl, IdentityFingerprint: id.Fingerprint()})
	if err != nil {
		return nil, fmt.Errorf("constructing canister client: %w", err)
	}
	canisterClient, ok := client.(*canisterclient.Client)
	if !ok {
		return nil, fmt.Errorf("pool returned unexpected client type %T", client)
	}

	server := bridge.New()
	server.SetLogger(logger)
	if err := server.Connect(context.Background(), canisterClient); err != nil {
		return nil, fmt.Errorf("connecting bridge server: %w", err)
	}

	return &Bridge{Server: server, Pool: p, Client: canisterClient}, nil
}

func resolveIdentity(cfg config.IdentityConfig) (identity.Identity, error) {
	if cfg.PemPath != "" {
		return identity.LoadFromFile(cfg.PemPath)
	}
	return identity.ProbeDefault()
}
