package lifecycle

import (
	"context"
	"testing"

	"github.com/icarus-mcp/icarus-bridge/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHooks struct {
	NoopHooks
	heartbeats int
}

func (h *countingHooks) OnHeartbeat(ctx context.Context) error {
	h.heartbeats++
	return nil
}

func TestNoopHooks_AllMethodsAreNoop(t *testing.T) {
	var h NoopHooks
	ctx := context.Background()
	require.NoError(t, h.OnInitialize(ctx))
	require.NoError(t, h.OnPreUpgrade(ctx))
	require.NoError(t, h.OnPostUpgrade(ctx))
	require.NoError(t, h.OnStop(ctx))
	require.NoError(t, h.OnHeartbeat(ctx))
}

func TestEmbedding_OverridesOnlyOneHook(t *testing.T) {
	h := &countingHooks{}
	require.NoError(t, h.OnInitialize(context.Background()))
	require.NoError(t, h.OnHeartbeat(context.Background()))
	require.NoError(t, h.OnHeartbeat(context.Background()))
	assert.Equal(t, 2, h.heartbeats)
}

func TestUpgradeInfo_RoundTripsThroughContext(t *testing.T) {
	ctx := WithUpgradeInfo(context.Background(), UpgradeInfo{FromVersion: version.New(1, 2, 3)})
	info, ok := UpgradeInfoFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint8(1), info.FromVersion.Major())
}

func TestUpgradeInfoFromContext_AbsentReturnsFalse(t *testing.T) {
	_, ok := UpgradeInfoFromContext(context.Background())
	assert.False(t, ok)
}
