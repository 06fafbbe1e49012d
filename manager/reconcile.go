// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"math"

	"github.com/luxfi/pollsync/poll"
)

// ApplyServerUpdate merges every poll update carried by a gateway result.
func (m *Manager) ApplyServerUpdate(update *ServerUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pollUpdate := range update.Polls {
		m.onServerPoll(poll.ID(pollUpdate.PollID), pollUpdate.Poll, pollUpdate.Results)
	}
}

// OnServerPoll is the single reconciliation entry point for server-pushed
// poll state. server may be nil (results-only push); results may be nil
// (metadata-only push). Returns the id of the merged poll, or 0 if the push
// was ignored.
func (m *Manager) OnServerPoll(id poll.ID, server *ServerPoll, results *ServerResults) poll.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onServerPoll(id, server, results)
}

// onServerPoll applies the merge rules in order. Callers hold m.mu.
func (m *Manager) onServerPoll(id poll.ID, server *ServerPoll, results *ServerResults) poll.ID {
	if id == 0 && server != nil {
		id = poll.ID(server.ID)
	}
	if id == 0 || id.IsLocal() {
		m.log.Error("received invalid poll id from server", "pollID", id)
		return 0
	}
	if server != nil && server.ID != int64(id) {
		m.log.Error("received mismatched poll from server", "pollID", id, "receivedID", server.ID)
		return 0
	}

	p := m.getPollForce(id)
	changed := false
	if p == nil {
		if server == nil {
			m.log.Debug("ignoring results for unknown poll", "pollID", id)
			return 0
		}
		p = &poll.Poll{}
		m.polls[id] = p
	}

	if server != nil {
		changed = m.mergeMetadata(id, p, server)
	}
	if results != nil {
		if m.mergeResults(id, p, results) {
			changed = true
		}
	}

	if !m.cfg.AutomationAccount && !p.IsClosed {
		interval := m.pollingInterval()
		m.log.Debug("scheduling poll refresh", "pollID", id, "in", interval)
		m.timeouts.Set(int64(id), interval)
	}
	if changed {
		m.notifyOnPollUpdate(id)
		m.savePoll(id, p)
	}
	return id
}

// mergeMetadata syncs question, options, and the closed flag verbatim. An
// option-identifier change at an existing position signals a materially
// different option, so its tally and chosen flag are reset.
func (m *Manager) mergeMetadata(id poll.ID, p *poll.Poll, server *ServerPoll) bool {
	changed := false

	if p.Question != server.Question {
		p.Question = server.Question
		changed = true
	}
	if len(p.Options) != len(server.Answers) {
		p.Options = make([]poll.Option, 0, len(server.Answers))
		for _, answer := range server.Answers {
			p.Options = append(p.Options, poll.Option{
				Text: answer.Text,
				Data: answer.Data,
			})
		}
		changed = true
	} else {
		for i := range p.Options {
			if p.Options[i].Text != server.Answers[i].Text {
				p.Options[i].Text = server.Answers[i].Text
				changed = true
			}
			if p.Options[i].Data != server.Answers[i].Data {
				p.Options[i].Data = server.Answers[i].Data
				p.Options[i].VoterCount = 0
				p.Options[i].IsChosen = false
				changed = true
			}
		}
	}
	if p.IsClosed != server.IsClosed {
		p.IsClosed = server.IsClosed
		changed = true
	}
	return changed
}

// mergeResults overlays the server's tallies. Counts are clamped to safe
// values on anomalies; anomalies are observable, never fatal.
func (m *Manager) mergeResults(id poll.ID, p *poll.Poll, results *ServerResults) bool {
	changed := false

	if results.HasTotalVoters && results.TotalVoters != p.TotalVoterCount {
		p.TotalVoterCount = results.TotalVoters
		if p.TotalVoterCount < 0 {
			m.log.Error("received negative total voter count", "pollID", id, "totalVoters", p.TotalVoterCount)
			m.metrics.dataClamps.Inc()
			p.TotalVoterCount = 0
		}
		changed = true
	}

	for _, result := range results.Results {
		for i := range p.Options {
			option := &p.Options[i]
			if option.Data != result.Data {
				continue
			}
			if !results.IsMin && result.IsChosen != option.IsChosen {
				option.IsChosen = result.IsChosen
				changed = true
			}
			if result.Voters == option.VoterCount {
				continue
			}
			option.VoterCount = result.Voters
			if option.VoterCount < 0 {
				m.log.Error("received negative option voter count", "pollID", id, "voters", option.VoterCount)
				m.metrics.dataClamps.Inc()
				option.VoterCount = 0
			}
			if option.IsChosen && option.VoterCount == 0 {
				m.log.Error("received zero voters for the chosen option", "pollID", id)
				m.metrics.dataClamps.Inc()
				option.VoterCount = 1
			}
			if option.VoterCount > p.TotalVoterCount {
				m.log.Error("option voter count exceeds poll total",
					"pollID", id, "voters", option.VoterCount, "totalVoters", p.TotalVoterCount)
				m.metrics.dataClamps.Inc()
				p.TotalVoterCount = option.VoterCount
			}
			// Keep per-option counts far enough from overflow for the
			// percentage math.
			maxVoterCount := math.MaxInt32/int32(len(p.Options)) - 2
			if option.VoterCount > maxVoterCount {
				m.log.Error("option voter count too large", "pollID", id, "voters", option.VoterCount)
				m.metrics.dataClamps.Inc()
				option.VoterCount = maxVoterCount
			}
			changed = true
		}
	}

	if len(results.Results) > 0 && results.HasTotalVoters {
		var maxTotalVoterCount int32
		for _, option := range p.Options {
			maxTotalVoterCount += option.VoterCount
		}
		if p.TotalVoterCount > maxTotalVoterCount && maxTotalVoterCount != 0 {
			m.log.Error("poll total exceeds sum of option voters",
				"pollID", id, "totalVoters", p.TotalVoterCount, "sum", maxTotalVoterCount)
			m.metrics.dataClamps.Inc()
			p.TotalVoterCount = maxTotalVoterCount
			changed = true
		}
	}
	return changed
}
