package toolregistry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustToolId(t *testing.T, s string) ids.ToolId {
	t.Helper()
	id, err := ids.NewToolId(s)
	require.NoError(t, err)
	return id
}

func echoHandler(result string) Handler {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"` + result + `"`), nil
	}
}

func TestRegisterAndDispatch(t *testing.T) {
	r := New()
	r.Register(mustToolId(t, "ping"), echoHandler("pong"))

	out, err := r.Dispatch(context.Background(), mustToolId(t, "ping"), nil)
	require.NoError(t, err)
	assert.Equal(t, `"pong"`, string(out))
}

func TestDispatch_UnknownToolReturnsNotFound(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), mustToolId(t, "missing"), nil)
	var nf *bridgeerr.NotFound
	assert.ErrorAs(t, err, &nf)
}

func TestRegister_ReplaceKeepsInsertionPosition(t *testing.T) {
	r := New()
	r.Register(mustToolId(t, "a"), echoHandler("1"))
	r.Register(mustToolId(t, "b"), echoHandler("2"))
	r.Register(mustToolId(t, "a"), echoHandler("3"))

	ordered := r.Ids()
	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0].String())
	assert.Equal(t, "b", ordered[1].String())

	out, err := r.Dispatch(context.Background(), mustToolId(t, "a"), nil)
	require.NoError(t, err)
	assert.Equal(t, `"3"`, string(out))
}

func TestReset_ClearsRegistry(t *testing.T) {
	r := New()
	r.Register(mustToolId(t, "ping"), echoHandler("pong"))
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Ids())
}

func TestSortedIds_IsLexical(t *testing.T) {
	r := New()
	r.Register(mustToolId(t, "zeta"), echoHandler("z"))
	r.Register(mustToolId(t, "alpha"), echoHandler("a"))

	sorted := r.SortedIds()
	require.Len(t, sorted, 2)
	assert.Equal(t, "alpha", sorted[0].String())
	assert.Equal(t, "zeta", sorted[1].String())
}
