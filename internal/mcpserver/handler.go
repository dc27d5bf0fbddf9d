// Package mcpserver: Handler dispatch logic. Grounded on the teacher's
// pkg/mcp/handler.go handleMethod switch (initialize / tools/list /
// tools/call / ping) and pkg/mcp/stdio.go's Initialize/RefreshTools/
// CallTool trio, collapsed onto a single canister backend instead of a
// per-agent router.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/canisterclient"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
	"github.com/icarus-mcp/icarus-bridge/internal/schemamap"
	"github.com/icarus-mcp/icarus-bridge/internal/toolregistry"
)

// BridgeServerInfo is this bridge's identity, reported during initialize.
var BridgeServerInfo = ServerInfo{Name: "icarus-bridge", Version: "0.1.0"}

// Handler dispatches the JSON-RPC methods a single MCP client speaks
// against one canister.Client, keeping a toolregistry.Registry of the
// canister's current tool catalog in sync with CallTool.
type Handler struct {
	client   *canisterclient.Client
	registry *toolregistry.Registry

	mu          sync.Mutex
	initialized bool
}

// NewHandler builds a Handler over an already-constructed canister client.
func NewHandler(client *canisterclient.Client) *Handler {
	return &Handler{client: client, registry: toolregistry.New()}
}

// HandleInitialize performs the MCP initialize handshake: it does not
// itself contact the canister (that happens on the first RefreshTools),
// mirroring the teacher's stdio.go Initialize which separates the
// handshake from tool discovery.
func (h *Handler) HandleInitialize(params InitializeParams) (*InitializeResult, error) {
	h.mu.Lock()
	h.initialized = true
	h.mu.Unlock()

	return &InitializeResult{
		ProtocolVersion: MCPProtocolVersion,
		ServerInfo:      BridgeServerInfo,
		Capabilities:    Capabilities{Tools: &ToolsCapability{}},
	}, nil
}

// HandleToolsList refreshes the canister's tool catalog and returns it in
// MCP Tool shape. Refreshing on every tools/list keeps the catalog from
// going stale between canister upgrades without requiring a separate
// polling loop.
func (h *Handler) HandleToolsList(ctx context.Context) (*ToolsListResult, error) {
	if err := h.client.RefreshTools(ctx); err != nil {
		return nil, err
	}
	h.syncRegistry()

	descriptors := h.client.Tools()
	tools := make([]Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, Tool{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return &ToolsListResult{Tools: tools}, nil
}

// syncRegistry rebuilds the tool registry from the client's current
// cached catalog, so Dispatch-based callers (e.g. a bridge.Server wiring
// both MCP and direct canister access) see the same tool set tools/list
// just reported.
func (h *Handler) syncRegistry() {
	h.registry.Reset()
	for _, d := range h.client.Tools() {
		id, err := ids.NewToolId(d.Name)
		if err != nil {
			continue
		}
		descriptor := d
		h.registry.Register(id, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			return h.client.CallTool(ctx, descriptor.Name, args)
		})
	}
}

// HandleToolsCall invokes one tool by name and wraps its result (or
// error) in an MCP ToolCallResult, the same "errors become IsError
// content, not transport failures" convention the teacher's gateway uses.
func (h *Handler) HandleToolsCall(ctx context.Context, params ToolCallParams) (*ToolCallResult, error) {
	tool, ok := h.client.Tool(params.Name)
	if !ok {
		return nil, &bridgeerr.NotFound{Kind: "tool", Key: params.Name}
	}

	argBytes, err := json.Marshal(params.Arguments)
	if err != nil {
		return nil, bridgeerr.NewValidationError("arguments", err.Error())
	}

	raw, err := callTool(ctx, h.client, tool, argBytes)
	if err != nil {
		return &ToolCallResult{
			Content: []Content{NewTextContent(err.Error())},
			IsError: true,
		}, nil
	}

	return &ToolCallResult{Content: []Content{NewTextContent(string(raw))}}, nil
}

// callTool is split out from HandleToolsCall so tests can exercise the
// encode/call/decode path without a live canister client.
func callTool(ctx context.Context, client *canisterclient.Client, tool schemamap.ToolDescriptor, args json.RawMessage) (json.RawMessage, error) {
	return client.CallTool(ctx, tool.Name, args)
}

// HandlePing answers the MCP keepalive ping.
func (h *Handler) HandlePing() (any, error) {
	return struct{}{}, nil
}

// Registry exposes the handler's tool registry, used by internal/bridge
// when a caller wants to dispatch a tool call without going through the
// MCP JSON-RPC envelope.
func (h *Handler) Registry() *toolregistry.Registry {
	return h.registry
}

// Initialized reports whether HandleInitialize has run, used by
// internal/bridge to reject tools/* calls before the handshake.
func (h *Handler) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

func (h *Handler) requireInitialized() error {
	if !h.Initialized() {
		return &bridgeerr.State{Want: "initialized", Got: "uninitialized"}
	}
	return nil
}

// HandleMethod routes a raw JSON-RPC method name and params to the
// matching Handle* method, mirroring the teacher's handler.go
// handleMethod switch.
func (h *Handler) HandleMethod(ctx context.Context, method string, rawParams json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		var params InitializeParams
		if len(rawParams) > 0 {
			if err := json.Unmarshal(rawParams, &params); err != nil {
				return nil, bridgeerr.NewValidationError("params", "invalid initialize params")
			}
		}
		return h.HandleInitialize(params)
	case "notifications/initialized":
		return nil, nil
	case "tools/list":
		if err := h.requireInitialized(); err != nil {
			return nil, err
		}
		return h.HandleToolsList(ctx)
	case "tools/call":
		if err := h.requireInitialized(); err != nil {
			return nil, err
		}
		var params ToolCallParams
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return nil, bridgeerr.NewValidationError("params", "invalid tools/call params")
		}
		return h.HandleToolsCall(ctx, params)
	case "ping":
		return h.HandlePing()
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}
