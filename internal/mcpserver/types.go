// Package mcpserver implements the MCP Protocol Handler (spec §4.F):
// dispatching the JSON-RPC methods a single MCP client speaks
// (initialize, tools/list, tools/call) against one canister. The wire
// types below are ported close to verbatim in shape from the teacher's
// pkg/mcp/types.go (field names, json tags, omitempty placement) but
// re-expressed against this spec's domain types, and without the
// teacher's multi-agent "agent__tool" prefixing — a bridge instance
// talks to exactly one canister, so there is no name collision to
// disambiguate.
package mcpserver

import "encoding/json"

// MCPProtocolVersion is the protocol version this handler speaks.
const MCPProtocolVersion = "2024-11-05"

// ServerInfo identifies this bridge to the connecting MCP client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientInfo identifies the connecting MCP client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities describes what the server/client can do.
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability indicates tools support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeParams contains parameters for the initialize request.
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// InitializeResult is the response to initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Tool represents an MCP tool definition, surfaced to the client exactly
// as the canister's tool descriptor names it — no agent-name prefix.
type Tool struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolsListResult is the response to tools/list.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams contains parameters for tools/call.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the response to tools/call.
type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents one piece of content in a tool call result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewTextContent builds a text content item.
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}
