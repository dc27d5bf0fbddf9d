package bridge

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/canisterclient"
	"github.com/icarus-mcp/icarus-bridge/internal/httpoutcall"
	"github.com/icarus-mcp/icarus-bridge/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, listToolsBody string) *canisterclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listToolsBody))
	}))
	t.Cleanup(srv.Close)
	return canisterclient.New(srv.URL, identity.Anonymous(), httpoutcall.Config{MaxRetries: 0})
}

func TestServer_RejectsServeBeforeConnect(t *testing.T) {
	s := New()
	err := s.Serve(context.Background(), strings.NewReader(""), &bytes.Buffer{})
	var state *bridgeerr.State
	assert.ErrorAs(t, err, &state)
}

func TestServer_ConnectThenServe(t *testing.T) {
	s := New()
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))
	assert.Equal(t, "connected", s.State())

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), in, &out))
	assert.Contains(t, out.String(), `"protocolVersion"`)
}

func TestServer_DoubleConnectFails(t *testing.T) {
	s := New()
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))
	err := s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`))
	var state *bridgeerr.State
	assert.ErrorAs(t, err, &state)
}

func TestServer_ConnectFetchesRootKeyForLocalReplica(t *testing.T) {
	client := testClient(t, `{"success":{"tools":[]},"root_key":"AAEC"}`)
	s := New()
	require.NoError(t, s.Connect(context.Background(), client))
	assert.True(t, client.IsLocal())
	assert.NotEmpty(t, client.RootKey())
}

func TestServer_ConnectFailsAtomicallyWhenRefreshToolsFails(t *testing.T) {
	client := testClient(t, `not json`)
	s := New()

	err := s.Connect(context.Background(), client)
	var connErr *bridgeerr.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "refresh_tools", connErr.Step)
	assert.Equal(t, "uninitialized", s.State())

	// a retry with a working client succeeds, proving the failed attempt
	// left the server back in its pre-Connect state rather than stuck.
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))
}

func TestServer_NotificationGetsNoResponse(t *testing.T) {
	s := New()
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))

	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), in, &out))
	assert.Empty(t, out.String())
}

func TestServer_ToolsListBeforeInitializeReturnsError(t *testing.T) {
	s := New()
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), in, &out))
	assert.Contains(t, out.String(), `"error"`)
}

func TestServer_MalformedLineGetsParseError(t *testing.T) {
	s := New()
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))

	in := strings.NewReader("not json\n")
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), in, &out))
	assert.Contains(t, out.String(), "invalid JSON")
}

func TestServer_ShutdownFromUninitializedFails(t *testing.T) {
	s := New()
	err := s.Shutdown(context.Background())
	var state *bridgeerr.State
	assert.ErrorAs(t, err, &state)
}

func TestServer_ShutdownIsIdempotent(t *testing.T) {
	s := New()
	require.NoError(t, s.Connect(context.Background(), testClient(t, `{"success":{"tools":[]}}`)))
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, "shutdown", s.State())
}
