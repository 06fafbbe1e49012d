// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"slices"

	"github.com/luxfi/pollsync/poll"
)

// GetPollView builds the public read model of a poll: any pending vote is
// overlaid on the confirmed state, voter counts are hidden until the current
// user has voted or the poll is closed, and the percentage breakdown is
// attached.
func (m *Manager) GetPollView(id poll.ID) (*poll.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.getPollForce(id)
	if p == nil {
		return nil, errPollNotFound
	}

	options := make([]poll.OptionView, 0, len(p.Options))
	pending := m.pendingAnswers[id]
	var voterCountDiff int32
	if pending == nil {
		for _, option := range p.Options {
			options = append(options, poll.OptionView{
				Text:       option.Text,
				VoterCount: option.VoterCount,
				IsChosen:   option.IsChosen,
			})
		}
	} else {
		// The confirmed choice is replaced by the pending one; the
		// confirmed vote is subtracted since the server will move it.
		for _, option := range p.Options {
			if option.IsChosen {
				voterCountDiff = -1
			}
			voterCount := option.VoterCount
			if option.IsChosen {
				voterCount--
			}
			options = append(options, poll.OptionView{
				Text:          option.Text,
				VoterCount:    voterCount,
				IsBeingChosen: slices.Contains(pending.options, option.Data),
			})
		}
	}

	isVoted := false
	for _, option := range options {
		isVoted = isVoted || option.IsChosen
	}
	if !isVoted && !p.IsClosed {
		// Voter counts stay hidden until the user has voted.
		for i := range options {
			options[i].VoterCount = 0
		}
	}

	totalVoterCount := p.TotalVoterCount + voterCountDiff
	voterCounts := make([]int32, len(options))
	for i, option := range options {
		voterCounts[i] = option.VoterCount
		if totalVoterCount < option.VoterCount {
			m.log.Error("fixing total voter count", "pollID", id,
				"totalVoters", totalVoterCount, "voters", option.VoterCount)
			m.metrics.dataClamps.Inc()
			totalVoterCount = option.VoterCount
		}
	}

	percentages := poll.VotePercentage(voterCounts, totalVoterCount)
	for i := range options {
		options[i].VotePercentage = percentages[i]
	}

	return &poll.View{
		Question:        p.Question,
		Options:         options,
		TotalVoterCount: totalVoterCount,
		IsClosed:        p.IsClosed,
	}, nil
}
