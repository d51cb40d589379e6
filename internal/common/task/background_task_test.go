package task

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundTaskManager_RunsUntilStopped(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBackgroundTaskManager("test_", registry)

	var calls int32
	m.Register(func() { atomic.AddInt32(&calls, 1) }, 10*time.Millisecond, "counter")

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, 5*time.Millisecond)
	assert.False(t, m.StopAll(time.Second))

	stopped := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&calls))

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "test_counter_latency_seconds", families[0].GetName())
}

func TestBackgroundTaskManager_NilRegisterer(t *testing.T) {
	m := NewBackgroundTaskManager("test_", nil)
	m.Register(func() {}, time.Millisecond, "noop")
	assert.False(t, m.StopAll(time.Second))
}

func TestBackgroundTaskManager_StopAllTimesOut(t *testing.T) {
	m := NewBackgroundTaskManager("test_", nil)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	m.Register(func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}, time.Millisecond, "blocked")

	<-started
	assert.True(t, m.StopAll(20*time.Millisecond))
	close(release)
}
