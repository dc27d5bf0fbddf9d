package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/canisterclient"
	"github.com/icarus-mcp/icarus-bridge/internal/httpoutcall"
	"github.com/icarus-mcp/icarus-bridge/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, listToolsBody string) (*Handler, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listToolsBody))
	}))
	client := canisterclient.New(srv.URL, identity.Anonymous(), httpoutcall.Config{MaxRetries: 0})
	return NewHandler(client), srv
}

func TestHandleInitialize(t *testing.T) {
	h, srv := newTestHandler(t, `{"success":{"tools":[]}}`)
	defer srv.Close()

	result, err := h.HandleInitialize(InitializeParams{ProtocolVersion: MCPProtocolVersion})
	require.NoError(t, err)
	assert.Equal(t, MCPProtocolVersion, result.ProtocolVersion)
	assert.True(t, h.Initialized())
}

func TestHandleToolsList_RefreshesAndPopulatesRegistry(t *testing.T) {
	h, srv := newTestHandler(t, `{"success":{"tools":[{"name":"ping","inputSchema":null}]}}`)
	defer srv.Close()

	result, err := h.HandleToolsList(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "ping", result.Tools[0].Name)
	assert.Equal(t, 1, h.Registry().Len())
}

func TestHandleToolsCall_UnknownToolIsNotFound(t *testing.T) {
	h, srv := newTestHandler(t, `{"success":{"tools":[]}}`)
	defer srv.Close()

	_, err := h.HandleToolsCall(context.Background(), ToolCallParams{Name: "missing"})
	var nf *bridgeerr.NotFound
	assert.ErrorAs(t, err, &nf)
}

func TestHandleToolsCall_CanisterErrorBecomesIsErrorContent(t *testing.T) {
	callSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/call/list_tools" {
			w.Write([]byte(`{"success":{"tools":[{"name":"explode","inputSchema":null}]}}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer callSrv.Close()

	client := canisterclient.New(callSrv.URL, identity.Anonymous(), httpoutcall.Config{MaxRetries: 0})
	h := NewHandler(client)
	require.NoError(t, client.RefreshTools(context.Background()))

	result, err := h.HandleToolsCall(context.Background(), ToolCallParams{Name: "explode"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
}

func TestHandleMethod_RejectsToolsListBeforeInitialize(t *testing.T) {
	h, srv := newTestHandler(t, `{"success":{"tools":[]}}`)
	defer srv.Close()

	_, err := h.HandleMethod(context.Background(), "tools/list", nil)
	var state *bridgeerr.State
	assert.ErrorAs(t, err, &state)
}

func TestHandleMethod_Ping(t *testing.T) {
	h, srv := newTestHandler(t, `{"success":{"tools":[]}}`)
	defer srv.Close()

	result, err := h.HandleMethod(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestHandleMethod_UnknownMethod(t *testing.T) {
	h, srv := newTestHandler(t, `{"success":{"tools":[]}}`)
	defer srv.Close()

	_, err := h.HandleMethod(context.Background(), "bogus", nil)
	assert.Error(t, err)
}

func TestHandleMethod_InitializeThenToolsCall(t *testing.T) {
	callSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/call/list_tools" {
			w.Write([]byte(`{"success":{"tools":[{"name":"ping","inputSchema":null}]}}`))
			return
		}
		w.Write([]byte(`{"success":"pong"}`))
	}))
	defer callSrv.Close()

	client := canisterclient.New(callSrv.URL, identity.Anonymous(), httpoutcall.Config{MaxRetries: 0})
	h := NewHandler(client)

	_, err := h.HandleMethod(context.Background(), "initialize", nil)
	require.NoError(t, err)

	_, err = h.HandleMethod(context.Background(), "tools/list", nil)
	require.NoError(t, err)

	raw, err := json.Marshal(ToolCallParams{Name: "ping"})
	require.NoError(t, err)
	result, err := h.HandleMethod(context.Background(), "tools/call", raw)
	require.NoError(t, err)
	callResult, ok := result.(*ToolCallResult)
	require.True(t, ok)
	assert.False(t, callResult.IsError)
}
