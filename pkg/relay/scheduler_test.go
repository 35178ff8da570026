package relay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAndCancels(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var n atomic.Int32
	s.Every("tick", 5*time.Millisecond, func() { n.Add(1) })
	require.True(t, s.Has("tick"))
	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.True(t, s.Cancel("tick"))
	require.False(t, s.Cancel("tick"))
	require.False(t, s.Has("tick"))
}

func TestSchedulerRecoversPanics(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var n atomic.Int32
	s.Every("panics", 5*time.Millisecond, func() {
		n.Add(1)
		panic("boom")
	})
	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler()
	s.Every("a", time.Hour, func() {})
	s.Every("a", time.Hour, func() {})
	s.Stop()
	s.Stop()

	require.False(t, s.Has("a"))
	s.Every("b", time.Millisecond, func() {})
	require.False(t, s.Has("b"))
}
