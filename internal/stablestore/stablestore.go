// Package stablestore implements the Stable Storage Layer (spec §4.I):
// typed wrappers over the host-provided stable-memory primitives. It
// follows the *shape* of the teacher's pkg/state persistence (typed
// load/save with a canonical codec and explicit addressing) while
// targeting the canister host's stable-memory API, addressed by a
// memoryID byte rather than a file path. Encoding reuses internal/wire's
// length-prefixed tagged binary codec (component A) so stable-memory
// values and C-RPC argument tuples share one wire format.
package stablestore

import (
	"sync"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/wire"
)

// StableMemory abstracts the host's stable-memory primitives so tests can
// substitute an in-memory fake instead of a real canister runtime.
type StableMemory interface {
	Load(memoryID byte) ([]byte, bool, error)
	Store(memoryID byte, data []byte) error
}

// Codec converts a value of type T to and from a single wire.Value, the
// same tagged shape internal/wire uses for C-RPC arguments.
type Codec[T any] interface {
	Encode(T) wire.Value
	Decode(wire.Value) (T, error)
}

// Option configures a StableCell or StableMap's size discipline.
type Option struct {
	maxSizeBytes int
	fixed        bool
}

// Bounded caps the encoded size at maxSizeBytes. The fixed flag is kept on
// the Option but not acted on: writes are checked against maxSizeBytes
// only, and nothing is pre-allocated.
func Bounded(maxSizeBytes int, fixed bool) Option {
	return Option{maxSizeBytes: maxSizeBytes, fixed: fixed}
}

// Unbounded places no cap on the encoded size.
func Unbounded() Option {
	return Option{maxSizeBytes: 0}
}

// StableCell is a single typed value backed by one stable-memory region.
type StableCell[T any] struct {
	memoryID byte
	mem      StableMemory
	codec    Codec[T]
	opt      Option
}

// NewStableCell binds a StableCell to memoryID, allocated via Allocate.
func NewStableCell[T any](memoryID byte, mem StableMemory, codec Codec[T], opt Option) *StableCell[T] {
	return &StableCell[T]{memoryID: memoryID, mem: mem, codec: codec, opt: opt}
}

// Get loads and decodes the cell's value. ok is false if nothing has been
// stored yet.
func (c *StableCell[T]) Get() (value T, ok bool, err error) {
	data, found, err := c.mem.Load(c.memoryID)
	if err != nil || !found {
		return value, false, err
	}
	vals, err := wire.DecodeTuple(data)
	if err != nil || len(vals) != 1 {
		return value, false, err
	}
	value, err = c.codec.Decode(vals[0])
	return value, err == nil, err
}

// Set encodes and stores value.
func (c *StableCell[T]) Set(value T) error {
	data, err := wire.EncodeTuple([]wire.Value{c.codec.Encode(value)})
	if err != nil {
		return err
	}
	if c.opt.maxSizeBytes > 0 && len(data) > c.opt.maxSizeBytes {
		return &bridgeerr.ResourceExhausted{Resource: "stable cell", Limit: c.opt.maxSizeBytes}
	}
	return c.mem.Store(c.memoryID, data)
}

// StableMap is a typed key/value map backed by one stable-memory region,
// keeping its whole contents resident and re-serializing on every write
// (adequate at the scale a single bridge canister handles; the host
// primitive itself, not this wrapper, is responsible for true sparse
// stable-memory paging).
type StableMap[K comparable, V any] struct {
	mu       sync.RWMutex
	memoryID byte
	mem      StableMemory
	keyCodec Codec[K]
	valCodec Codec[V]
	opt      Option
	entries  map[K]V
	loaded   bool
}

// NewStableMap binds a StableMap to memoryID.
func NewStableMap[K comparable, V any](memoryID byte, mem StableMemory, keyCodec Codec[K], valCodec Codec[V], opt Option) *StableMap[K, V] {
	return &StableMap[K, V]{memoryID: memoryID, mem: mem, keyCodec: keyCodec, valCodec: valCodec, opt: opt}
}

func (m *StableMap[K, V]) ensureLoaded() error {
	if m.loaded {
		return nil
	}
	data, found, err := m.mem.Load(m.memoryID)
	if err != nil {
		return err
	}
	m.entries = make(map[K]V)
	if found {
		vals, err := wire.DecodeTuple(data)
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(vals); i += 2 {
			k, err := m.keyCodec.Decode(vals[i])
			if err != nil {
				return err
			}
			v, err := m.valCodec.Decode(vals[i+1])
			if err != nil {
				return err
			}
			m.entries[k] = v
		}
	}
	m.loaded = true
	return nil
}

func (m *StableMap[K, V]) persist() error {
	vals := make([]wire.Value, 0, len(m.entries)*2)
	for k, v := range m.entries {
		vals = append(vals, m.keyCodec.Encode(k), m.valCodec.Encode(v))
	}
	data, err := wire.EncodeTuple(vals)
	if err != nil {
		return err
	}
	if m.opt.maxSizeBytes > 0 && len(data) > m.opt.maxSizeBytes {
		return &bridgeerr.ResourceExhausted{Resource: "stable map", Limit: m.opt.maxSizeBytes}
	}
	return m.mem.Store(m.memoryID, data)
}

// Get returns the value for key.
func (m *StableMap[K, V]) Get(key K) (value V, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return value, false, err
	}
	value, ok = m.entries[key]
	return value, ok, nil
}

// Put sets key to value, persisting immediately.
func (m *StableMap[K, V]) Put(key K, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	prev, existed := m.entries[key]
	m.entries[key] = value
	if err := m.persist(); err != nil {
		if existed {
			m.entries[key] = prev
		} else {
			delete(m.entries, key)
		}
		return err
	}
	return nil
}

// Delete removes key, persisting immediately. It is a no-op if key is
// absent.
func (m *StableMap[K, V]) Delete(key K) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	prev, existed := m.entries[key]
	if !existed {
		return nil
	}
	delete(m.entries, key)
	if err := m.persist(); err != nil {
		m.entries[key] = prev
		return err
	}
	return nil
}

// Len reports the number of entries.
func (m *StableMap[K, V]) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(m.entries), nil
}

// Range calls fn for every entry until fn returns false or entries are
// exhausted.
func (m *StableMap[K, V]) Range(fn func(K, V) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	for k, v := range m.entries {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

// Allocator hands out stable-memory IDs from the free list [0, 254].
// Memory ID 255 is reserved by the host and is never allocated.
type Allocator struct {
	mu   sync.Mutex
	next int
	free []byte
}

// NewAllocator builds an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate returns the next free memory ID, preferring freed IDs over new
// ones. It returns bridgeerr.State if the [0, 254] range is exhausted.
func (a *Allocator) Allocate() (byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id, nil
	}
	if a.next > 254 {
		return 0, &bridgeerr.State{Want: "free memory id in [0,254]", Got: "exhausted"}
	}
	id := byte(a.next)
	a.next++
	return id, nil
}

// Release returns memoryID to the free list.
func (a *Allocator) Release(memoryID byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, memoryID)
}
