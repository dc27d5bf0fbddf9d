package timers

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleOnce_FiresOnce(t *testing.T) {
	r := NewRegistry()
	var calls int32

	_, err := r.ScheduleOnce(5*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, r.Len())
}

func TestScheduleOnce_RejectsZeroDelay(t *testing.T) {
	r := NewRegistry()
	_, err := r.ScheduleOnce(0, func() {})
	require.Error(t, err)
	var verr *bridgeerr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSchedulePeriodic_FiresRepeatedly(t *testing.T) {
	r := NewRegistry()
	var calls int32

	handle, err := r.SchedulePeriodic(3*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 3
	}, time.Second, time.Millisecond)

	handle.Cancel()
	after := atomic.LoadInt32(&calls)
	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls))
}

func TestSchedulePeriodic_RejectsZeroInterval(t *testing.T) {
	r := NewRegistry()
	_, err := r.SchedulePeriodic(0, func() {})
	require.Error(t, err)
}

func TestCancelTimer_IdempotentAndSafeOnUnknown(t *testing.T) {
	r := NewRegistry()
	handle, err := r.SchedulePeriodic(time.Hour, func() {})
	require.NoError(t, err)

	handle.Cancel()
	handle.Cancel() // second cancel must not panic
	assert.Equal(t, 0, r.Len())

	err = r.CancelTimer(TimerID(99999))
	var notFound *bridgeerr.NotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "timer", notFound.Kind)
}

func TestCancelTimer_SecondCancelReturnsNotFound(t *testing.T) {
	r := NewRegistry()
	handle, err := r.SchedulePeriodic(time.Hour, func() {})
	require.NoError(t, err)

	require.NoError(t, r.CancelTimer(handle.id))

	err = r.CancelTimer(handle.id)
	var notFound *bridgeerr.NotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, strconv.FormatUint(uint64(handle.id), 10), notFound.Key)
}

func TestCancelAllTimers(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		_, err := r.SchedulePeriodic(time.Hour, func() {})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, r.Len())

	r.CancelAllTimers()
	assert.Equal(t, 0, r.Len())
}

func TestSchedule_RejectsPastMax(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxTimers; i++ {
		_, err := r.SchedulePeriodic(time.Hour, func() {})
		require.NoError(t, err)
	}

	_, err := r.SchedulePeriodic(time.Hour, func() {})
	require.Error(t, err)
	var exhausted *bridgeerr.ResourceExhausted
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, MaxTimers, exhausted.Limit)
}

func TestDescriptors_ReflectsScheduled(t *testing.T) {
	r := NewRegistry()
	_, err := r.SchedulePeriodic(time.Hour, func() {})
	require.NoError(t, err)

	descs := r.Descriptors()
	require.Len(t, descs, 1)
	assert.True(t, descs[0].Periodic)
	assert.Equal(t, time.Hour, descs[0].Interval)
}
