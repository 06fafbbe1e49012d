// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timeout

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []int64
	ch    chan int64
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan int64, 16)}
}

func (r *fireRecorder) fire(id int64) {
	r.mu.Lock()
	r.fired = append(r.fired, id)
	r.mu.Unlock()
	r.ch <- id
}

func (r *fireRecorder) wait(t *testing.T) int64 {
	t.Helper()
	select {
	case id := <-r.ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timeout never fired")
		return 0
	}
}

func TestSchedulerFires(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(rec.fire)
	defer s.Stop()

	s.Add(7, time.Millisecond)
	require.Equal(t, int64(7), rec.wait(t))
	require.False(t, s.Has(7))
}

func TestSchedulerAddDoesNotReplace(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(rec.fire)
	defer s.Stop()

	s.Add(1, 10*time.Millisecond)
	// The second Add must not reset the pending timeout.
	s.Add(1, time.Hour)
	require.Equal(t, int64(1), rec.wait(t))
}

func TestSchedulerSetReplaces(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(rec.fire)
	defer s.Stop()

	s.Add(1, time.Hour)
	require.True(t, s.Has(1))
	s.Set(1, time.Millisecond)
	require.Equal(t, int64(1), rec.wait(t))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.fired, 1)
}

func TestSchedulerCancel(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(rec.fire)
	defer s.Stop()

	s.Add(1, 10*time.Millisecond)
	s.Cancel(1)
	require.False(t, s.Has(1))

	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Empty(t, rec.fired)
}

func TestSchedulerKeysAndStop(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(rec.fire)

	s.Add(1, time.Hour)
	s.Add(2, time.Hour)
	require.ElementsMatch(t, []int64{1, 2}, s.Keys())

	s.Stop()
	require.Empty(t, s.Keys())

	// Arming after Stop is ignored.
	s.Add(3, time.Millisecond)
	require.False(t, s.Has(3))
}
