// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package timeout schedules at most one pending timeout per int64 key.
package timeout

import (
	"sync"
	"time"
)

// Scheduler fires a callback once per armed key. Re-arming a key replaces its
// pending timeout rather than adding a second one. Callbacks run on their own
// goroutine.
type Scheduler struct {
	fire func(id int64)

	mu      sync.Mutex
	timers  map[int64]*time.Timer
	stopped bool
}

func NewScheduler(fire func(id int64)) *Scheduler {
	return &Scheduler{
		fire:   fire,
		timers: make(map[int64]*time.Timer),
	}
}

// Add arms a timeout for the key unless one is already pending.
func (s *Scheduler) Add(id int64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.timers[id]; ok {
		return
	}
	s.arm(id, d)
}

// Set arms a timeout for the key, replacing any pending one.
func (s *Scheduler) Set(id int64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}
	s.arm(id, d)
}

func (s *Scheduler) arm(id int64, d time.Duration) {
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.timers[id]
		// A Cancel or Set that won the race owns the key now.
		live := ok && current == timer
		if live {
			delete(s.timers, id)
		}
		stopped := s.stopped
		s.mu.Unlock()

		if live && !stopped {
			s.fire(id)
		}
	})
	s.timers[id] = timer
}

// Cancel drops the key's pending timeout, if any.
func (s *Scheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Has reports whether the key has a pending timeout.
func (s *Scheduler) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// Keys returns the keys with pending timeouts.
func (s *Scheduler) Keys() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]int64, 0, len(s.timers))
	for id := range s.timers {
		keys = append(keys, id)
	}
	return keys
}

// Stop cancels every pending timeout and rejects further arming.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
