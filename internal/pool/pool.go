// Package pool implements the Agent Pool (spec §4.B): a process-wide cache
// of canister agent clients keyed by (endpoint URL, identity fingerprint),
// created at most once per key and never evicted. Grounded on the
// teacher's Router in pkg/mcp/router.go, whose clients map[string]AgentClient
// behind a sync.RWMutex is the same "register once, look up many" shape;
// adapted here to per-key sync.Once-guarded lazy construction so concurrent
// callers requesting the same key block on one construction instead of
// racing to create duplicates (Testable Property 5: "pool never constructs
// two clients for the same key").
package pool

import (
	"fmt"
	"sync"
)

//go:generate mockgen -source=pool.go -destination=mock_pool.go -package=pool SharedClient

// SharedClient is a canister agent client, shared by every caller that
// requested the same pool key; the pool keeps no reference count. Implemented by
// internal/canisterclient.
type SharedClient interface {
	// Endpoint is the IC URL the client was constructed against.
	Endpoint() string
	// Close releases any resources the client holds. Pool does not call
	// Close itself; entries live for the process lifetime per "never
	// evict" (the wrapper exists for callers doing their own teardown,
	// e.g. in tests).
	Close() error
}

// Factory constructs a SharedClient for a given endpoint URL and identity
// fingerprint. It is invoked at most once per distinct (endpoint,
// fingerprint) pair.
type Factory func(endpointURL, identityFingerprint string) (SharedClient, error)

// Key identifies a pooled client.
type Key struct {
	EndpointURL         string
	IdentityFingerprint string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s", k.EndpointURL, k.IdentityFingerprint)
}

type entry struct {
	once   sync.Once
	client SharedClient
	err    error
}

// Pool is the process-wide agent pool. The zero value is not usable; use
// New.
type Pool struct {
	entries sync.Map // Key -> *entry
	factory Factory
}

// New builds a Pool that constructs clients with factory.
func New(factory Factory) *Pool {
	return &Pool{factory: factory}
}

// GetOrCreate returns the pooled client for key, constructing it via the
// factory on first request. Concurrent callers for the same key share one
// construction: the second caller blocks on the first's sync.Once rather
// than racing to build a duplicate client.
func (p *Pool) GetOrCreate(key Key) (SharedClient, error) {
	v, _ := p.entries.LoadOrStore(key, &entry{})
	e := v.(*entry)

	e.once.Do(func() {
		e.client, e.err = p.factory(key.EndpointURL, key.IdentityFingerprint)
	})

	if e.err != nil {
		// Allow a future call to retry construction after a failure,
		// rather than permanently caching the error.
		p.entries.CompareAndDelete(key, v)
		return nil, e.err
	}
	return e.client, nil
}

// Len reports the number of successfully constructed entries. Intended for
// tests and diagnostics only.
func (p *Pool) Len() int {
	n := 0
	p.entries.Range(func(_, v any) bool {
		if v.(*entry).err == nil {
			n++
		}
		return true
	})
	return n
}
