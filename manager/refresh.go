// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/luxfi/pollsync/poll"
)

// pollingInterval returns the jittered refresh interval for the current
// online state. Jitter spreads refreshes of many visible polls apart.
// Callers hold m.mu.
func (m *Manager) pollingInterval() time.Duration {
	base := m.cfg.OfflinePollPeriod
	if m.online {
		base = m.cfg.OnlinePollPeriod
	}
	factor := m.cfg.JitterMinPercent + rand.IntN(m.cfg.JitterMaxPercent-m.cfg.JitterMinPercent+1)
	return base * time.Duration(factor) / 100
}

// OnOnline records the session's online state. On transition to online,
// every armed refresh is collapsed to a short jittered interval so stale
// tallies catch up quickly.
func (m *Manager) OnOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.online = online
	if !online || m.cfg.AutomationAccount {
		return
	}

	spread := m.cfg.OnlineCatchUpMax - m.cfg.OnlineCatchUpMin
	for id := range m.registrations {
		if !m.timeouts.Has(int64(id)) {
			continue
		}
		interval := m.cfg.OnlineCatchUpMin + rand.N(spread+1)
		m.log.Debug("scheduling poll refresh", "pollID", id, "in", interval)
		m.timeouts.Set(int64(id), interval)
	}
}

// onUpdatePollTimeout fires on the refresh scheduler's goroutine when a
// poll's refresh interval elapses.
func (m *Manager) onUpdatePollTimeout(idInt int64) {
	id := poll.ID(idInt)

	m.mu.Lock()
	if m.shuttingDown || m.cfg.AutomationAccount || id.IsLocal() {
		m.mu.Unlock()
		return
	}
	p := m.getPoll(id)
	if p == nil || p.IsClosed {
		m.mu.Unlock()
		return
	}
	locations := m.registrations[id]
	if locations.Len() == 0 {
		m.mu.Unlock()
		return
	}
	var location poll.Location
	for l := range locations {
		location = l
		break
	}
	generation := m.generation
	m.mu.Unlock()

	m.log.Debug("fetching poll results", "pollID", id, "location", location)
	m.metrics.resultFetches.Inc()
	update, err := m.gateway.FetchResults(context.Background(), location)
	m.onGetPollResults(id, generation, update, err)
}

func (m *Manager) onGetPollResults(id poll.ID, generation uint64, update *ServerUpdate, err error) {
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if p := m.getPoll(id); p != nil && !p.IsClosed && !m.cfg.AutomationAccount {
			interval := m.pollingInterval()
			m.log.Debug("rescheduling poll refresh after failure", "pollID", id, "in", interval, "error", err)
			m.timeouts.Add(int64(id), interval)
		}
		return
	}

	m.mu.Lock()
	stale := generation != m.generation
	if stale {
		m.metrics.staleResponses.Inc()
		m.log.Debug("received possibly outdated poll results, refetching", "pollID", id)
		if p := m.getPoll(id); p != nil && !p.IsClosed && !m.cfg.AutomationAccount {
			m.timeouts.Set(int64(id), 0)
		}
	}
	m.mu.Unlock()
	if stale || update == nil {
		return
	}

	m.ApplyServerUpdate(update)
}
