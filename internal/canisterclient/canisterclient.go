// Package canisterclient implements the Canister Client (spec §4.D): the
// per-(endpoint, identity) agent that calls a canister's methods over an
// HTTP outcall and caches its tool schema. A Client is the
// internal/pool.SharedClient the Agent Pool constructs and hands out, so
// the bridge never opens more than one Client for the same endpoint and
// identity. Grounded on the teacher's pkg/mcp/client.go Client (request
// id counter, call/notify/send split) and pkg/mcp/router.go's RefreshTools
// atomic tool-list swap, re-expressed against a canister's RPC surface
// instead of a JSON-RPC MCP server.
package canisterclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/httpoutcall"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
	"github.com/icarus-mcp/icarus-bridge/internal/identity"
	"github.com/icarus-mcp/icarus-bridge/internal/pool"
	"github.com/icarus-mcp/icarus-bridge/internal/schemamap"
	"github.com/icarus-mcp/icarus-bridge/internal/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the Canister Client's span source; a no-op until
// internal/tracing.Setup registers a real TracerProvider.
var tracer = otel.Tracer("github.com/icarus-mcp/icarus-bridge/internal/canisterclient")

// listToolsMethod is the well-known method every canister exposing tools
// over this bridge must implement.
const listToolsMethod = "list_tools"

// statusMethod is the well-known replica endpoint this bridge reads the
// platform root public key from, for local replicas only.
const statusMethod = "/api/v2/status"

// isLocalHost reports whether host (as found in a URL's Host component,
// "host" or "host:port") names a local replica rather than a production
// boundary node. Grounded on the platform's own local-vs-production split:
// a developer-run replica is always reached through loopback or the
// "localhost" alias, never through a DNS name.
func isLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// validateEndpointScheme enforces spec §4.B's endpoint classification:
// HTTPS for production hosts, bare HTTP permitted only for local replicas.
// A production host on bare HTTP is rejected outright rather than silently
// upgraded, since the bridge has no certificate to present on its behalf.
func validateEndpointScheme(rawURL string) (local bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return false, bridgeerr.NewValidationError("endpoint", "malformed: "+parseErr.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, bridgeerr.NewValidationError("endpoint", "must use http or https scheme")
	}
	local = isLocalHost(u.Host)
	if u.Scheme == "http" && !local {
		return false, bridgeerr.NewValidationError("endpoint", "production endpoints must use https")
	}
	return local, nil
}

// Client is a single canister's agent: one HTTP outcall wrapper, one
// identity, and a cached tool catalog. It satisfies internal/pool.SharedClient.
type Client struct {
	endpoint string
	isLocal  bool
	identity identity.Identity
	http     *httpoutcall.Wrapper
	requests atomic.Int64

	mu             sync.RWMutex
	tools          map[string]schemamap.ToolDescriptor
	loaded         bool
	rootKey        []byte
	rootKeyFetched bool
}

// New builds a Client for the given canister endpoint and identity, using
// cfg to configure the underlying HTTP outcall wrapper. endpoint's scheme
// is assumed already validated by NewFactory / validateEndpointScheme.
func New(endpoint string, id identity.Identity, cfg httpoutcall.Config) *Client {
	local, _ := validateEndpointScheme(endpoint)
	return &Client{
		endpoint: endpoint,
		isLocal:  local,
		identity: id,
		http:     httpoutcall.New(cfg, sanitizeCanisterResponse),
		tools:    make(map[string]schemamap.ToolDescriptor),
	}
}

// NewFactory adapts New into an internal/pool.Factory bound to a fixed
// identity, so every (endpoint, fingerprint) pool key the identity
// produces resolves to a Client built with the same outcall configuration.
// Scheme classification happens here, inside the closure the Agent Pool's
// per-key sync.Once already runs at most once per endpoint.
func NewFactory(id identity.Identity, cfg httpoutcall.Config) pool.Factory {
	return func(endpointURL, identityFingerprint string) (pool.SharedClient, error) {
		if identityFingerprint != id.Fingerprint() {
			return nil, bridgeerr.NewValidationError("identityFingerprint", "does not match the pool's bound identity")
		}
		if _, err := validateEndpointScheme(endpointURL); err != nil {
			return nil, err
		}
		return New(endpointURL, id, cfg), nil
	}
}

// IsLocal reports whether this client talks to a local replica, as
// classified by validateEndpointScheme when the client was constructed.
func (c *Client) IsLocal() bool { return c.isLocal }

// FetchRootKey reads the platform root public key from a local replica's
// status endpoint and caches it, so canister response signatures made by a
// developer-run replica (whose root key isn't the well-known production
// one) can be verified. Production endpoints carry the well-known root key
// already and never need this; FetchRootKey is a no-op for them. Safe to
// call more than once: only the first call performs the outcall.
func (c *Client) FetchRootKey(ctx context.Context) error {
	if !c.isLocal {
		return nil
	}

	c.mu.RLock()
	fetched := c.rootKeyFetched
	c.mu.RUnlock()
	if fetched {
		return nil
	}

	resp, err := c.http.Get(ctx, c.endpoint+statusMethod, nil)
	if err != nil {
		return fmt.Errorf("fetching root key: %w", err)
	}

	var status struct {
		RootKey []byte `json:"root_key"`
	}
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return fmt.Errorf("parsing replica status: %w", err)
	}

	c.mu.Lock()
	c.rootKey = status.RootKey
	c.rootKeyFetched = true
	c.mu.Unlock()
	return nil
}

// RootKey returns the cached local replica root key, or nil if none was
// fetched (a production client, or FetchRootKey hasn't run yet).
func (c *Client) RootKey() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rootKey
}

// Endpoint implements internal/pool.SharedClient.
func (c *Client) Endpoint() string { return c.endpoint }

// Close implements internal/pool.SharedClient. A Client holds no
// long-lived connection (every call is a fresh HTTP outcall), so Close is
// a no-op kept for interface conformance and test teardown symmetry.
func (c *Client) Close() error { return nil }

// sanitizeCanisterResponse is the httpoutcall.TransformFn for every call
// this client makes: it strips response headers down to the raw JSON
// body, the only part of an IC HTTP outcall response a canister call
// result carries.
func sanitizeCanisterResponse(raw httpoutcall.RawResponse) (httpoutcall.SanitizedResponse, error) {
	return httpoutcall.SanitizedResponse{StatusCode: raw.StatusCode, Body: raw.Body}, nil
}

// CallMethod invokes a canister method with the given argument tuple,
// decoding the canister's tagged Success/Failure result shape via
// internal/wire.
func (c *Client) CallMethod(ctx context.Context, method ids.MethodName, args []wire.Value) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "canisterclient.call_method",
		trace.WithAttributes(attribute.String("canister.method", method.String())))
	defer span.End()

	encoded, err := wire.EncodeTuple(args)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	reqID := c.requests.Add(1)
	envelope := struct {
		RequestID int64  `json:"requestId"`
		Method    string `json:"method"`
		Sender    string `json:"sender"`
		Args      []byte `json:"args"`
	}{
		RequestID: reqID,
		Method:    method.String(),
		Sender:    c.identity.Principal().String(),
		Args:      encoded,
	}

	resp, err := c.http.PostJSON(ctx, c.endpoint+"/call/"+method.String(), nil, envelope)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	result, err := wire.DecodeResult(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// RefreshTools calls the canister's list_tools method and atomically
// replaces the cached tool catalog, mirroring the teacher's
// Router.RefreshTools build-then-swap pattern.
func (c *Client) RefreshTools(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "canisterclient.refresh_tools")
	defer span.End()

	method, err := ids.NewMethodName(listToolsMethod)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	raw, err := c.CallMethod(ctx, method, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("refreshing tool catalog: %w", err)
	}

	metadata, err := schemamap.ParseCanisterMetadata(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("parsing tool catalog: %w", err)
	}
	span.SetAttributes(attribute.Int("canister.tool_count", len(metadata.Tools)))

	next := make(map[string]schemamap.ToolDescriptor, len(metadata.Tools))
	for _, t := range metadata.Tools {
		next[t.Name] = t
	}

	c.mu.Lock()
	c.tools = next
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Tools returns the cached tool catalog in no particular order.
func (c *Client) Tools() []schemamap.ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tools := make([]schemamap.ToolDescriptor, 0, len(c.tools))
	for _, t := range c.tools {
		tools = append(tools, t)
	}
	return tools
}

// Tool looks up a single cached tool descriptor by name.
func (c *Client) Tool(name string) (schemamap.ToolDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tools[name]
	return t, ok
}

// Loaded reports whether RefreshTools has completed at least once.
func (c *Client) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// CallTool encodes arguments against the named tool's cached schema,
// invokes it on the canister, and returns the raw JSON result. It returns
// bridgeerr.NotFound if the tool is not in the cached catalog; callers
// should RefreshTools first if the catalog may be stale.
func (c *Client) CallTool(ctx context.Context, toolName string, arguments json.RawMessage) (json.RawMessage, error) {
	tool, ok := c.Tool(toolName)
	if !ok {
		return nil, &bridgeerr.NotFound{Kind: "tool", Key: toolName}
	}

	args, err := schemamap.Encode(tool, arguments)
	if err != nil {
		return nil, bridgeerr.NewValidationError("arguments", err.Error())
	}

	method, err := ids.NewMethodName(toolName)
	if err != nil {
		return nil, err
	}

	return c.CallMethod(ctx, method, args)
}
