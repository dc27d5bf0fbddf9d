// Package lifecycle implements the Server Lifecycle hooks (spec §4.M): the
// canister-side entrypoints a deployed bridge backend implements to react
// to init/upgrade/stop/heartbeat events from its host. Grounded on the
// teacher's embed-and-override default pattern in pkg/mcp/client_base.go
// (ClientBase supplies default behavior that a concrete client overrides
// selectively by embedding it) — here every hook defaults to no-op via
// NoopHooks, so an implementation only needs to override what it cares
// about.
package lifecycle

import (
	"context"

	"github.com/icarus-mcp/icarus-bridge/internal/version"
)

// upgradeInfoKey is the typed context key carrying UpgradeInfo into
// OnPostUpgrade. Unexported so only this package can construct the
// context value, the same pattern internal/authz uses for its caller key.
type upgradeInfoKey struct{}

// UpgradeInfo describes the version a canister is upgrading from, passed
// to OnPostUpgrade via context.
type UpgradeInfo struct {
	FromVersion version.Version
}

// WithUpgradeInfo attaches UpgradeInfo to ctx.
func WithUpgradeInfo(ctx context.Context, info UpgradeInfo) context.Context {
	return context.WithValue(ctx, upgradeInfoKey{}, info)
}

// UpgradeInfoFromContext retrieves UpgradeInfo attached by WithUpgradeInfo.
func UpgradeInfoFromContext(ctx context.Context) (UpgradeInfo, bool) {
	info, ok := ctx.Value(upgradeInfoKey{}).(UpgradeInfo)
	return info, ok
}

// Hooks is the set of lifecycle callbacks a canister-backed bridge
// implements. Implementations must not mutate package-level state from
// any hook except through internal/stablestore or internal/authz, since
// the host platform does not distinguish a read-only pass (Go has no
// &self/&mut self split to enforce this at the type level).
type Hooks interface {
	// OnInitialize runs once, the first time the canister is deployed.
	OnInitialize(ctx context.Context) error
	// OnPreUpgrade runs immediately before the host tears the canister
	// down for a code upgrade. Must not mutate state beyond what it
	// persists via internal/stablestore.
	OnPreUpgrade(ctx context.Context) error
	// OnPostUpgrade runs immediately after the new code starts, with
	// UpgradeInfo retrievable via UpgradeInfoFromContext.
	OnPostUpgrade(ctx context.Context) error
	// OnStop runs when the host is shutting the canister down outside of
	// an upgrade (e.g. deletion).
	OnStop(ctx context.Context) error
	// OnHeartbeat runs on the host's periodic heartbeat schedule.
	OnHeartbeat(ctx context.Context) error
}

// NoopHooks implements Hooks with every method a no-op. Embed it in a
// concrete type and override only the hooks that type cares about,
// mirroring ClientBase's "embed for the defaults you don't override" role
// in the teacher's client hierarchy.
type NoopHooks struct{}

func (NoopHooks) OnInitialize(context.Context) error  { return nil }
func (NoopHooks) OnPreUpgrade(context.Context) error  { return nil }
func (NoopHooks) OnPostUpgrade(context.Context) error { return nil }
func (NoopHooks) OnStop(context.Context) error        { return nil }
func (NoopHooks) OnHeartbeat(context.Context) error   { return nil }

var _ Hooks = NoopHooks{}
