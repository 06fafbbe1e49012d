// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package manager

import (
	"context"
	"errors"

	"github.com/luxfi/pollsync/journal"
	"github.com/luxfi/pollsync/poll"
)

// StopPoll closes the poll displayed at location. Closing a local draft is
// immediate and involves no network; closing an already-closed server poll
// succeeds without a request. Otherwise the close is journaled, dispatched,
// and the call blocks until the server responds.
func (m *Manager) StopPoll(ctx context.Context, id poll.ID, location poll.Location) error {
	m.mu.Lock()

	if id.IsLocal() {
		m.stopLocalPoll(id)
		m.mu.Unlock()
		return nil
	}

	p := m.getPollForce(id)
	if p == nil {
		m.mu.Unlock()
		return errPollNotFound
	}
	if p.IsClosed {
		m.mu.Unlock()
		return nil
	}

	waiter := make(chan error, 1)
	if pending := m.pendingCloses[id]; pending != nil {
		pending.waiters = append(pending.waiters, waiter)
		m.mu.Unlock()
	} else {
		// Bumping the generation makes any in-flight vote submission's
		// response stale; the vote no longer matters.
		m.generation++

		p.IsClosed = true
		m.notifyOnPollUpdate(id)
		m.savePoll(id, p)

		m.doStopPoll(id, location, 0, waiter)
		m.mu.Unlock()
	}

	select {
	case err := <-waiter:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopLocalPoll flips the closed flag of a draft. Callers hold m.mu.
func (m *Manager) stopLocalPoll(id poll.ID) {
	p := m.getPoll(id)
	if p == nil || p.IsClosed {
		return
	}
	p.IsClosed = true
	m.notifyOnPollUpdate(id)
}

// doStopPoll journals and dispatches the close request. logEntryID is
// non-zero only on journal replay. Callers hold m.mu.
func (m *Manager) doStopPoll(id poll.ID, location poll.Location, logEntryID uint64, waiter chan<- error) {
	m.log.Info("stop poll", "pollID", id, "location", location)

	if logEntryID == 0 && m.cfg.PersistPolls {
		record := &journal.CloseRecord{
			PollID:   int64(id),
			Location: location,
		}
		payload, err := record.Marshal()
		if err != nil {
			m.log.Error("failed to encode close record", "pollID", id, "error", err)
		} else if logEntryID, err = m.journal.Append(journal.KindStopPoll, payload); err != nil {
			m.log.Error("failed to append close journal entry", "pollID", id, "error", err)
			logEntryID = 0
		}
	}

	m.pendingCloses[id] = &pendingClose{
		generation: m.generation,
		logEntryID: logEntryID,
		waiters:    []chan<- error{waiter},
	}

	m.metrics.pollsClosed.Inc()
	go m.sendClose(id, m.pendingCloses[id].generation, location)
}

func (m *Manager) sendClose(id poll.ID, generation uint64, location poll.Location) {
	update, err := m.gateway.ClosePoll(context.Background(), location)
	if err != nil && !m.cfg.AutomationAccount && errors.Is(err, ErrPollNotModified) {
		// The server already considers the poll closed.
		err = nil
		update = nil
	}
	if err == nil && update != nil {
		m.ApplyServerUpdate(update)
	}
	m.onStopPoll(id, generation, err)
}

func (m *Manager) onStopPoll(id poll.ID, generation uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shuttingDown && err != nil {
		// The journal entry survives; the close is retried on restart.
		return
	}

	pending := m.pendingCloses[id]
	if pending == nil || pending.generation != generation {
		m.metrics.staleResponses.Inc()
		return
	}

	if pending.logEntryID != 0 {
		if eraseErr := m.journal.Erase(pending.logEntryID); eraseErr != nil {
			m.log.Error("failed to erase close journal entry",
				"pollID", id, "entryID", pending.logEntryID, "error", eraseErr)
		}
	}

	for _, waiter := range pending.waiters {
		waiter <- err
	}
	delete(m.pendingCloses, id)
}
