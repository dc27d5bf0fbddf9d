// Package toolregistry implements the Canister Tool Registry (spec §4.H):
// the bridge's in-memory map from a tool id to the handler that serves it,
// rebuilt each time the canister's tool catalog is refreshed. Grounded on
// the teacher's Router in pkg/mcp/router.go (sync.RWMutex-guarded map,
// deterministic name ordering) with the agent-name prefixing dropped,
// since this registry holds exactly one canister's tools rather than an
// aggregation across many agents.
package toolregistry

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
)

// Handler invokes one tool with its raw JSON arguments and returns its raw
// JSON result.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Registry is a concurrency-safe, insertion-ordered set of tool handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[ids.ToolId]Handler
	order    []ids.ToolId
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[ids.ToolId]Handler)}
}

// Register adds or replaces the handler for id. Replacing an existing id
// keeps its original position in Ids()'s insertion order, matching the
// teacher's RefreshTools "rebuild the map" semantics applied incrementally.
func (r *Registry) Register(id ids.ToolId, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.handlers[id] = handler
}

// Reset clears every registered handler, used before a full catalog
// rebuild so stale tool ids from a previous RefreshTools don't linger.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[ids.ToolId]Handler)
	r.order = nil
}

// Ids returns every registered tool id in insertion order.
func (r *Registry) Ids() []ids.ToolId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ids.ToolId, len(r.order))
	copy(out, r.order)
	return out
}

// SortedIds returns every registered tool id in lexical order, used where
// deterministic output matters more than preserving discovery order (e.g.
// tests asserting on tools/list shape).
func (r *Registry) SortedIds() []ids.ToolId {
	out := r.Ids()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Dispatch looks up and invokes the handler for id, returning
// bridgeerr.NotFound if no such tool is registered.
func (r *Registry) Dispatch(ctx context.Context, id ids.ToolId, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	handler, ok := r.handlers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &bridgeerr.NotFound{Kind: "tool", Key: id.String()}
	}
	return handler(ctx, args)
}

// Len reports how many tools are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
