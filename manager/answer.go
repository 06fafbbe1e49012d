// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"slices"

	"github.com/luxfi/pollsync/journal"
	"github.com/luxfi/pollsync/poll"
)

// SubmitAnswer submits the user's vote for the poll displayed at location.
// optionIDs are indexes into the poll's option order; at most one may be
// given. The call blocks until the server confirms the vote, the submission
// fails, or a newer submission supersedes this one (which counts as success:
// latest wins, no error).
func (m *Manager) SubmitAnswer(ctx context.Context, id poll.ID, location poll.Location, optionIDs []int32) error {
	waiter := make(chan error, 1)

	m.mu.Lock()
	if len(optionIDs) > 1 {
		m.mu.Unlock()
		return errTooManyOptions
	}
	if id.IsLocal() {
		m.mu.Unlock()
		return errLocalPoll
	}
	p := m.getPollForce(id)
	if p == nil {
		m.mu.Unlock()
		return errPollNotFound
	}
	if p.IsClosed {
		m.mu.Unlock()
		return errPollClosed
	}
	options := make([]string, 0, len(optionIDs))
	for _, optionID := range optionIDs {
		if optionID < 0 || int(optionID) >= len(p.Options) {
			m.mu.Unlock()
			return errInvalidOptionID
		}
		options = append(options, p.Options[optionID].Data)
	}

	m.doSetPollAnswer(id, location, options, 0, waiter)
	m.mu.Unlock()

	select {
	case err := <-waiter:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doSetPollAnswer installs a pending answer and dispatches the request.
// logEntryID is non-zero only on journal replay, where the recorded entry is
// reused instead of appending a new one. Callers hold m.mu.
func (m *Manager) doSetPollAnswer(id poll.ID, location poll.Location, options []string, logEntryID uint64, waiter chan<- error) {
	m.log.Info("set poll answer", "pollID", id, "location", location)

	pending := m.pendingAnswers[id]
	if pending != nil && slices.Equal(pending.options, options) {
		// Same choice already in flight; wait on it instead of racing it.
		pending.waiters = append(pending.waiters, waiter)
		return
	}

	if logEntryID == 0 && m.cfg.PersistPolls {
		record := &journal.VoteRecord{
			PollID:   int64(id),
			Location: location,
			Options:  options,
		}
		payload, err := record.Marshal()
		if err != nil {
			m.log.Error("failed to encode vote record", "pollID", id, "error", err)
		} else if pending == nil {
			logEntryID, err = m.journal.Append(journal.KindSetAnswer, payload)
			if err != nil {
				m.log.Error("failed to append vote journal entry", "pollID", id, "error", err)
				logEntryID = 0
			} else {
				m.log.Debug("added vote journal entry", "pollID", id, "entryID", logEntryID)
			}
		} else {
			// Superseding submission reuses the entry of the one it
			// replaces.
			logEntryID = pending.logEntryID
			if logEntryID != 0 {
				if err := m.journal.Rewrite(logEntryID, journal.KindSetAnswer, payload); err != nil {
					m.log.Error("failed to rewrite vote journal entry",
						"pollID", id, "entryID", logEntryID, "error", err)
				} else {
					m.log.Debug("rewrote vote journal entry", "pollID", id, "entryID", logEntryID)
				}
			}
		}
	}

	if pending != nil {
		// The old submission is superseded by this newer one. Cancel its
		// request and resolve its waiters successfully; their vote was
		// replaced deliberately, not lost.
		pending.cancel()
		for _, old := range pending.waiters {
			old <- nil
		}
		m.metrics.votesSuperseded.Inc()
	}

	m.generation++
	requestCtx, cancel := context.WithCancel(context.Background())
	m.pendingAnswers[id] = &pendingAnswer{
		options:    options,
		generation: m.generation,
		logEntryID: logEntryID,
		cancel:     cancel,
		waiters:    []chan<- error{waiter},
	}

	// The display reflects the pending choice before confirmation.
	m.notifyOnPollUpdate(id)

	m.metrics.votesSubmitted.Inc()
	go m.sendVote(requestCtx, id, m.generation, location, options)
}

func (m *Manager) sendVote(ctx context.Context, id poll.ID, generation uint64, location poll.Location, options []string) {
	update, err := m.gateway.SendVote(ctx, location, options)
	if err == nil && update != nil {
		m.ApplyServerUpdate(update)
	}
	m.onSetPollAnswer(id, generation, err)
}

func (m *Manager) onSetPollAnswer(id poll.ID, generation uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shuttingDown && err != nil {
		// The journal entry survives; the request is re-sent on restart.
		return
	}

	pending := m.pendingAnswers[id]
	if pending == nil {
		// A superseding submission already resolved this one.
		return
	}
	if pending.generation != generation {
		m.metrics.staleResponses.Inc()
		m.log.Debug("dropping stale vote response", "pollID", id, "generation", generation)
		return
	}

	if pending.logEntryID != 0 {
		m.log.Debug("erasing vote journal entry", "pollID", id, "entryID", pending.logEntryID)
		if eraseErr := m.journal.Erase(pending.logEntryID); eraseErr != nil {
			m.log.Error("failed to erase vote journal entry",
				"pollID", id, "entryID", pending.logEntryID, "error", eraseErr)
		}
	}

	for _, waiter := range pending.waiters {
		waiter <- err
	}
	delete(m.pendingAnswers, id)
}
