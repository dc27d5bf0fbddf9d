// Package timers implements the Timer Registry (spec §4.L): a bounded set
// of named one-shot and periodic tasks. Grounded on the teacher's
// Gateway.StartCleanup/StartHealthMonitor ticker-goroutine-with-cancel
// pattern in pkg/mcp/gateway.go, generalized from two fixed background
// tickers to an arbitrary, capped collection of caller-scheduled ones.
package timers

import (
	"strconv"
	"sync"
	"time"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
)

// MaxTimers bounds the registry size, matching spec §4.L.
const MaxTimers = 100

// TimerID identifies a scheduled timer.
type TimerID uint64

// Descriptor describes a scheduled timer for introspection.
type Descriptor struct {
	ID       TimerID
	Periodic bool
	Interval time.Duration
}

// Handle is returned by ScheduleOnce and SchedulePeriodic in place of a
// bare TimerID, and its Cancel deregisters the timer. Its only job is to
// call back into the registry; there is no
// runtime.SetFinalizer here, since finalizers are not reliable release
// points — cancellation must be explicit.
type Handle struct {
	id       TimerID
	registry *Registry
}

// Cancel deregisters the timer. Safe to call more than once: a repeat
// call's bridgeerr.NotFound is discarded here, since a Handle caller has
// no distinct id to report it against.
func (h *Handle) Cancel() {
	_ = h.registry.CancelTimer(h.id)
}

// Registry holds at most MaxTimers scheduled timers.
type Registry struct {
	mu     sync.Mutex
	timers map[TimerID]*descriptorState
	nextID TimerID
}

type descriptorState struct {
	desc   Descriptor
	stop   chan struct{}
	stopCh *sync.Once
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{timers: make(map[TimerID]*descriptorState)}
}

// ScheduleOnce runs fn once after delay. delay must be non-zero.
func (r *Registry) ScheduleOnce(delay time.Duration, fn func()) (*Handle, error) {
	if delay == 0 {
		return nil, bridgeerr.NewValidationError("delay", "must not be zero")
	}
	return r.schedule(Descriptor{Periodic: false}, func(id TimerID, stop chan struct{}) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-stop:
		case <-timer.C:
			fn()
			r.CancelTimer(id)
		}
	})
}

// SchedulePeriodic runs fn every interval until cancelled. interval must
// be non-zero.
func (r *Registry) SchedulePeriodic(interval time.Duration, fn func()) (*Handle, error) {
	if interval == 0 {
		return nil, bridgeerr.NewValidationError("interval", "must not be zero")
	}
	return r.schedule(Descriptor{Periodic: true, Interval: interval}, func(id TimerID, stop chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	})
}

func (r *Registry) schedule(desc Descriptor, run func(id TimerID, stop chan struct{})) (*Handle, error) {
	r.mu.Lock()
	if len(r.timers) >= MaxTimers {
		r.mu.Unlock()
		return nil, &bridgeerr.ResourceExhausted{Resource: "timers", Limit: MaxTimers}
	}
	r.nextID++
	id := r.nextID
	desc.ID = id
	stop := make(chan struct{})
	r.timers[id] = &descriptorState{desc: desc, stop: stop, stopCh: &sync.Once{}}
	r.mu.Unlock()

	go run(id, stop)

	return &Handle{id: id, registry: r}, nil
}

// CancelTimer stops and deregisters a timer. Idempotent-by-missing: a
// second call on an already-cancelled id, or a call on an id that was
// never issued, returns bridgeerr.NotFound rather than panicking or
// silently succeeding.
func (r *Registry) CancelTimer(id TimerID) error {
	r.mu.Lock()
	state, ok := r.timers[id]
	if ok {
		delete(r.timers, id)
	}
	r.mu.Unlock()

	if !ok {
		return &bridgeerr.NotFound{Kind: "timer", Key: strconv.FormatUint(uint64(id), 10)}
	}
	state.stopCh.Do(func() { close(state.stop) })
	return nil
}

// CancelAllTimers stops and deregisters every timer in the registry.
func (r *Registry) CancelAllTimers() {
	r.mu.Lock()
	states := make([]*descriptorState, 0, len(r.timers))
	for id, state := range r.timers {
		states = append(states, state)
		delete(r.timers, id)
	}
	r.mu.Unlock()

	for _, state := range states {
		state.stopCh.Do(func() { close(state.stop) })
	}
}

// Len reports the number of currently scheduled timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Descriptors returns a snapshot of currently scheduled timers.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Descriptor, 0, len(r.timers))
	for _, state := range r.timers {
		out = append(out, state.desc)
	}
	return out
}
